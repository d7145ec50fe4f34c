// Package syntax extracts lightweight structure from source text:
// function bodies, identifier occurrences, and declared variable names.
// A parser may not exist for every corpus language; callers treat a
// missing parser as the capability being unavailable rather than an
// error.
package syntax

import "strings"

// Function is a function-like construct located in source text. All
// offsets are byte offsets; End and BodyEnd are exclusive. BodyStart
// points at the opening brace and BodyEnd one past the closing brace,
// so text[BodyStart:BodyEnd] includes both braces.
type Function struct {
	Name      string
	Start     int
	End       int
	BodyStart int
	BodyEnd   int
}

// BodyLen returns the byte length of the brace-delimited body.
func (f Function) BodyLen() int { return f.BodyEnd - f.BodyStart }

// Ident is a single identifier occurrence. Property marks occurrences
// that follow a selector dot, which renaming must leave alone.
type Ident struct {
	Name     string
	Start    int
	End      int
	Property bool
}

// Tree is the extracted structure for one text.
type Tree struct {
	Functions []Function
	Idents    []Ident
	Declared  []Ident
}

// Report summarizes a syntax check over one text.
type Report struct {
	ErrorCount int
	NodeCount  int
}

// Parser extracts structure from source text in one language.
type Parser interface {
	// Parse extracts functions, identifiers, and declarations. A nil
	// error does not imply the text is well formed, only that
	// extraction ran.
	Parse(text string) (*Tree, error)

	// Check counts syntax errors and parsed nodes for filtering.
	Check(text string) Report
}

var (
	golang = goParser{}
	cstyle = cstyleParser{}

	parsers = map[string]Parser{
		"go":         golang,
		"golang":     golang,
		"ts":         cstyle,
		"typescript": cstyle,
		"tsx":        cstyle,
		"js":         cstyle,
		"javascript": cstyle,
		"jsx":        cstyle,
		"arkts":      cstyle,
		"ets":        cstyle,
		"java":       cstyle,
		"c":          cstyle,
		"cpp":        cstyle,
		"c++":        cstyle,
	}
)

// Lookup returns the parser for a language name, matching
// case-insensitively over common aliases.
func Lookup(lang string) (Parser, bool) {
	p, ok := parsers[strings.ToLower(strings.TrimSpace(lang))]
	return p, ok
}

// Supports reports whether a parser exists for the language.
func Supports(lang string) bool {
	_, ok := Lookup(lang)
	return ok
}
