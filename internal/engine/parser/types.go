package parser

import (
	"time"
)

// File is the extraction result for a single source file. Module is filled in
// by the resolver after extraction; the extractor only knows the raw imports.
type File struct {
	Path         string
	Language     string
	Module       string // Dotted module ID, assigned by the resolver
	Imports      []Import
	PartialParse bool // Extraction degraded on a syntax error
	ParsedAt     time.Time
}

// Import is one import/include/require statement as written in the source.
// Target is the raw reference; the resolver maps it to a module ID.
type Import struct {
	Target        string   // Raw imported reference (dotted, slashed, or relative)
	Alias         string   // Optional alias
	Items         []string // For "from X import Y, Z" style member imports
	IsRelative    bool     // Relative import form (leading dots or ./ ../)
	RelativeLevel int      // Number of leading dots for Python-style relative imports
	IsWildcard    bool     // Wildcard import: one edge to the target, never expanded
	IsReexport    bool     // Re-export form (export ... from, __all__ passthrough)
	Location      Location
}

type Location struct {
	File   string
	Line   int
	Column int
}
