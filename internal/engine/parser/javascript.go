package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

type JavaScriptExtractor struct{}

func NewJavaScriptExtractor() *JavaScriptExtractor { return &JavaScriptExtractor{} }

func (e *JavaScriptExtractor) Extract(root *sitter.Node, source []byte, filePath string) (*File, error) {
	file := &File{Path: filePath}

	ctx := &ExtractionContext{Source: source, File: file}
	engine := NewExtractorEngine(map[string]NodeHandler{
		"import_statement": e.extractImport,
		"export_statement": e.extractReexport,
		"call_expression":  e.extractRequire,
	})
	engine.Walk(ctx, root)

	return file, nil
}

// extractImport handles "import x from 'm'", "import * as x from 'm'",
// "import { a, b } from 'm'", bare "import 'm'" and the TypeScript form
// "import x = require('m')".
func (e *JavaScriptExtractor) extractImport(ctx *ExtractionContext, node *sitter.Node) bool {
	target := importSource(ctx, node)

	imp := Import{Location: ctx.Location(node)}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "import_clause":
			e.readClause(ctx, child, &imp)
		case "import_require_clause":
			for j := uint(0); j < child.ChildCount(); j++ {
				sub := child.Child(j)
				switch sub.Kind() {
				case "identifier":
					imp.Alias = ctx.Text(sub)
				case "string":
					target = trimStringLiteral(ctx.Text(sub))
				}
			}
		}
	}

	if target == "" {
		return true
	}
	imp.Target = target
	imp.IsRelative, imp.RelativeLevel = relativeJSTarget(target)
	ctx.File.Imports = append(ctx.File.Imports, imp)
	return true
}

func (e *JavaScriptExtractor) readClause(ctx *ExtractionContext, clause *sitter.Node, imp *Import) {
	for i := uint(0); i < clause.ChildCount(); i++ {
		child := clause.Child(i)
		switch child.Kind() {
		case "identifier":
			imp.Alias = ctx.Text(child)
		case "namespace_import":
			imp.IsWildcard = true
			for j := uint(0); j < child.ChildCount(); j++ {
				if sub := child.Child(j); sub.Kind() == "identifier" {
					imp.Alias = ctx.Text(sub)
				}
			}
		case "named_imports":
			for j := uint(0); j < child.ChildCount(); j++ {
				if sub := child.Child(j); sub.Kind() == "import_specifier" {
					if name := sub.ChildByFieldName("name"); name != nil {
						imp.Items = append(imp.Items, ctx.Text(name))
					}
				}
			}
		}
	}
}

// extractReexport handles "export { a } from 'm'" and "export * from 'm'".
// Plain exports without a source are not imports.
func (e *JavaScriptExtractor) extractReexport(ctx *ExtractionContext, node *sitter.Node) bool {
	target := importSource(ctx, node)
	if target == "" {
		return false
	}

	imp := Import{
		Target:     target,
		IsReexport: true,
		Location:   ctx.Location(node),
	}
	imp.IsRelative, imp.RelativeLevel = relativeJSTarget(target)

	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "*", "namespace_export":
			imp.IsWildcard = true
		case "export_clause":
			for j := uint(0); j < child.ChildCount(); j++ {
				if sub := child.Child(j); sub.Kind() == "export_specifier" {
					if name := sub.ChildByFieldName("name"); name != nil {
						imp.Items = append(imp.Items, ctx.Text(name))
					}
				}
			}
		}
	}

	ctx.File.Imports = append(ctx.File.Imports, imp)
	return true
}

// extractRequire handles CommonJS require('m') calls with a literal argument.
func (e *JavaScriptExtractor) extractRequire(ctx *ExtractionContext, node *sitter.Node) bool {
	fn := node.ChildByFieldName("function")
	if fn == nil || ctx.Text(fn) != "require" {
		return false
	}
	args := node.ChildByFieldName("arguments")
	if args == nil {
		return false
	}
	for i := uint(0); i < args.ChildCount(); i++ {
		child := args.Child(i)
		if child.Kind() != "string" {
			continue
		}
		target := trimStringLiteral(ctx.Text(child))
		if target == "" {
			continue
		}
		imp := Import{Target: target, Location: ctx.Location(node)}
		imp.IsRelative, imp.RelativeLevel = relativeJSTarget(target)
		ctx.File.Imports = append(ctx.File.Imports, imp)
	}
	return true
}

func importSource(ctx *ExtractionContext, node *sitter.Node) string {
	src := node.ChildByFieldName("source")
	if src == nil {
		return ""
	}
	return trimStringLiteral(ctx.Text(src))
}

func trimStringLiteral(s string) string {
	return strings.Trim(s, "\"'`")
}

// relativeJSTarget reports whether the target is path-relative and how many
// directories it climbs.
func relativeJSTarget(target string) (bool, int) {
	if !strings.HasPrefix(target, ".") {
		return false, 0
	}
	level := 0
	rest := target
	for strings.HasPrefix(rest, "../") {
		level++
		rest = rest[3:]
	}
	return true, level
}
