package parser

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
)

type RustExtractor struct{}

func NewRustExtractor() *RustExtractor { return &RustExtractor{} }

func (e *RustExtractor) Extract(root *sitter.Node, source []byte, filePath string) (*File, error) {
	file := &File{Path: filePath}

	ctx := &ExtractionContext{Source: source, File: file}
	engine := NewExtractorEngine(map[string]NodeHandler{
		"use_declaration": e.extractUse,
	})
	engine.Walk(ctx, root)

	return file, nil
}

// extractUse flattens a use tree into one import per leaf:
// "use a::{b, c::d};" yields a::b and a::c::d, "use a::*;" is a wildcard on a,
// "use a::b as c;" records the alias.
func (e *RustExtractor) extractUse(ctx *ExtractionContext, node *sitter.Node) bool {
	arg := node.ChildByFieldName("argument")
	if arg == nil {
		return true
	}
	e.flatten(ctx, arg, "", ctx.Location(node))
	return true
}

func (e *RustExtractor) flatten(ctx *ExtractionContext, node *sitter.Node, prefix string, loc Location) {
	switch node.Kind() {
	case "identifier", "scoped_identifier", "crate", "self", "super":
		e.add(ctx, joinRustPath(prefix, ctx.Text(node)), "", false, loc)

	case "use_as_clause":
		path := node.ChildByFieldName("path")
		alias := node.ChildByFieldName("alias")
		if path != nil {
			e.add(ctx, joinRustPath(prefix, ctx.Text(path)), ctx.Text(alias), false, loc)
		}

	case "use_wildcard":
		base := prefix
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			switch child.Kind() {
			case "identifier", "scoped_identifier", "crate", "self", "super":
				base = joinRustPath(prefix, ctx.Text(child))
			}
		}
		e.add(ctx, base, "", true, loc)

	case "scoped_use_list":
		path := node.ChildByFieldName("path")
		list := node.ChildByFieldName("list")
		base := prefix
		if path != nil {
			base = joinRustPath(prefix, ctx.Text(path))
		}
		if list != nil {
			for i := uint(0); i < list.ChildCount(); i++ {
				child := list.Child(i)
				switch child.Kind() {
				case ",", "{", "}":
					continue
				}
				e.flatten(ctx, child, base, loc)
			}
		}

	case "use_list":
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			switch child.Kind() {
			case ",", "{", "}":
				continue
			}
			e.flatten(ctx, child, prefix, loc)
		}
	}
}

func (e *RustExtractor) add(ctx *ExtractionContext, target, alias string, wildcard bool, loc Location) {
	if target == "" {
		return
	}
	ctx.File.Imports = append(ctx.File.Imports, Import{
		Target:     target,
		Alias:      alias,
		IsWildcard: wildcard,
		Location:   loc,
	})
}

func joinRustPath(prefix, rest string) string {
	if prefix == "" {
		return rest
	}
	if rest == "" {
		return prefix
	}
	return prefix + "::" + rest
}
