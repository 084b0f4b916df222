package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

type PythonExtractor struct{}

func NewPythonExtractor() *PythonExtractor { return &PythonExtractor{} }

func (e *PythonExtractor) Extract(root *sitter.Node, source []byte, filePath string) (*File, error) {
	file := &File{Path: filePath}

	ctx := &ExtractionContext{Source: source, File: file}
	engine := NewExtractorEngine(map[string]NodeHandler{
		"import_statement":      e.extractImport,
		"import_from_statement": e.extractFromImport,
	})
	engine.Walk(ctx, root)

	return file, nil
}

func (e *PythonExtractor) extractImport(ctx *ExtractionContext, node *sitter.Node) bool {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)

		switch child.Kind() {
		case "dotted_name", "identifier":
			ctx.File.Imports = append(ctx.File.Imports, Import{
				Target:   ctx.Text(child),
				Location: ctx.Location(child),
			})
		case "aliased_import":
			var target, alias string
			for j := uint(0); j < child.ChildCount(); j++ {
				sub := child.Child(j)
				if sub.Kind() == "dotted_name" || sub.Kind() == "identifier" {
					if target == "" {
						target = ctx.Text(sub)
					} else {
						alias = ctx.Text(sub)
					}
				}
			}
			ctx.File.Imports = append(ctx.File.Imports, Import{
				Target:   target,
				Alias:    alias,
				Location: ctx.Location(child),
			})
		}
	}
	return true
}

func (e *PythonExtractor) extractFromImport(ctx *ExtractionContext, node *sitter.Node) bool {
	var target string
	var items []string
	relative := false
	level := 0
	wildcard := false

	// Imported names after the import keyword are dotted_name children too,
	// so the from target is only read before it.
	pastImport := false
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)

		switch child.Kind() {
		case "import":
			pastImport = true
		case "relative_import":
			relative = true
			relText := ctx.Text(child)
			target = strings.TrimLeft(relText, ".")
			level = len(relText) - len(target)
		case "dotted_name", "identifier":
			if pastImport {
				items = append(items, ctx.Text(child))
			} else if !relative {
				target = ctx.Text(child)
			}
		case "wildcard_import":
			wildcard = true
		case "import_list", "aliased_import":
			e.collectItems(ctx, child, &items)
		}
	}

	ctx.File.Imports = append(ctx.File.Imports, Import{
		Target:        target,
		Items:         items,
		IsRelative:    relative,
		RelativeLevel: level,
		IsWildcard:    wildcard,
		Location:      ctx.Location(node),
	})
	return true
}

func (e *PythonExtractor) collectItems(ctx *ExtractionContext, node *sitter.Node, items *[]string) {
	switch node.Kind() {
	case "identifier", "dotted_name":
		*items = append(*items, ctx.Text(node))
	case "aliased_import":
		// The local alias is not an imported member.
		if name := node.ChildByFieldName("name"); name != nil {
			*items = append(*items, ctx.Text(name))
		}
	default:
		for i := uint(0); i < node.ChildCount(); i++ {
			e.collectItems(ctx, node.Child(i), items)
		}
	}
}
