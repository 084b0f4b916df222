package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

type GoExtractor struct{}

func NewGoExtractor() *GoExtractor { return &GoExtractor{} }

func (e *GoExtractor) Extract(root *sitter.Node, source []byte, filePath string) (*File, error) {
	file := &File{Path: filePath}

	ctx := &ExtractionContext{Source: source, File: file}
	engine := NewExtractorEngine(map[string]NodeHandler{
		"import_declaration": e.extractImports,
	})
	engine.Walk(ctx, root)

	return file, nil
}

func (e *GoExtractor) extractImports(ctx *ExtractionContext, node *sitter.Node) bool {
	e.walkImports(ctx, node)
	return true
}

func (e *GoExtractor) walkImports(ctx *ExtractionContext, node *sitter.Node) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)

		if child.Kind() != "import_spec" {
			e.walkImports(ctx, child)
			continue
		}

		var alias, path string
		wildcard := false
		for j := uint(0); j < child.ChildCount(); j++ {
			spec := child.Child(j)
			switch spec.Kind() {
			case "package_identifier", "blank_identifier":
				alias = ctx.Text(spec)
			case "dot":
				// Dot imports merge the package into the local scope.
				wildcard = true
			case "interpreted_string_literal", "raw_string_literal":
				path = strings.Trim(ctx.Text(spec), "\"`")
			}
		}

		if path != "" {
			ctx.File.Imports = append(ctx.File.Imports, Import{
				Target:     path,
				Alias:      alias,
				IsWildcard: wildcard,
				Location:   ctx.Location(child),
			})
		}
	}
}
