package parser

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
)

type JavaExtractor struct{}

func NewJavaExtractor() *JavaExtractor { return &JavaExtractor{} }

func (e *JavaExtractor) Extract(root *sitter.Node, source []byte, filePath string) (*File, error) {
	file := &File{Path: filePath}

	ctx := &ExtractionContext{Source: source, File: file}
	engine := NewExtractorEngine(map[string]NodeHandler{
		"import_declaration": e.extractImport,
	})
	engine.Walk(ctx, root)

	return file, nil
}

// extractImport handles "import a.b.C;", "import static a.b.C.m;" and the
// wildcard form "import a.b.*;".
func (e *JavaExtractor) extractImport(ctx *ExtractionContext, node *sitter.Node) bool {
	var target string
	wildcard := false

	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "scoped_identifier", "identifier":
			target = ctx.Text(child)
		case "asterisk":
			wildcard = true
		}
	}

	if target != "" {
		ctx.File.Imports = append(ctx.File.Imports, Import{
			Target:     target,
			IsWildcard: wildcard,
			Location:   ctx.Location(node),
		})
	}
	return true
}
