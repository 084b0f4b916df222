package parser

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"boundary/internal/core/errors"
	"boundary/internal/shared/observability"
)

// Extractor pulls import statements out of a parsed syntax tree.
type Extractor interface {
	Extract(node *sitter.Node, source []byte, filePath string) (*File, error)
}

// Parser detects the language of a path, parses the file with the matching
// tree-sitter grammar and hands the tree to the language's extractor.
type Parser struct {
	languages  map[string]*sitter.Language
	extractors map[string]Extractor
	extensions map[string]string
}

func NewParser() *Parser {
	p := &Parser{
		languages:  make(map[string]*sitter.Language),
		extractors: make(map[string]Extractor),
		extensions: make(map[string]string),
	}

	p.register("go", sitter.NewLanguage(tree_sitter_go.Language()), NewGoExtractor(), ".go")
	p.register("python", sitter.NewLanguage(tree_sitter_python.Language()), NewPythonExtractor(), ".py", ".pyi")
	p.register("javascript", sitter.NewLanguage(tree_sitter_javascript.Language()), NewJavaScriptExtractor(), ".js", ".jsx", ".mjs", ".cjs")
	p.register("typescript", sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()), NewTypeScriptExtractor(), ".ts", ".mts", ".cts")
	p.register("tsx", sitter.NewLanguage(tree_sitter_typescript.LanguageTSX()), NewTypeScriptExtractor(), ".tsx")
	p.register("java", sitter.NewLanguage(tree_sitter_java.Language()), NewJavaExtractor(), ".java")
	p.register("rust", sitter.NewLanguage(tree_sitter_rust.Language()), NewRustExtractor(), ".rs")

	return p
}

func (p *Parser) register(lang string, grammar *sitter.Language, e Extractor, exts ...string) {
	p.languages[lang] = grammar
	p.extractors[lang] = e
	for _, ext := range exts {
		p.extensions[ext] = lang
	}
}

// ParseFile parses content and extracts its imports. A syntax error does not
// fail the call: the extractor keeps whatever it could read and the result is
// marked PartialParse.
func (p *Parser) ParseFile(path string, content []byte) (*File, error) {
	lang := p.detectLanguage(path)
	if lang == "" {
		return nil, errors.AddContext(errors.New(errors.CodeNotSupported, "unsupported language"), errors.CtxPath, path)
	}

	start := time.Now()

	grammar := p.languages[lang]
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar)

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, errors.New(errors.CodeInternal, fmt.Sprintf("parse failed: %s", path))
	}
	defer tree.Close()

	root := tree.RootNode()
	res, err := p.extractors[lang].Extract(root, content, path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "extraction failed")
	}
	res.Language = lang
	res.ParsedAt = time.Now()
	if root.HasError() {
		res.PartialParse = true
		observability.PartialParsesTotal.WithLabelValues(lang).Inc()
	}

	observability.ExtractDuration.WithLabelValues(lang).Observe(time.Since(start).Seconds())
	return res, nil
}

func (p *Parser) detectLanguage(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	return p.extensions[ext]
}

func (p *Parser) IsSupportedPath(path string) bool {
	return p.detectLanguage(path) != ""
}
