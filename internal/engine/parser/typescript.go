package parser

// TypeScriptExtractor shares the JavaScript import forms; the TS grammar adds
// import_require_clause, which the shared handler already reads.
type TypeScriptExtractor struct {
	JavaScriptExtractor
}

func NewTypeScriptExtractor() *TypeScriptExtractor { return &TypeScriptExtractor{} }
