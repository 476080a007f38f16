// Package diagnostic defines the result model shared by every analysis phase.
package diagnostic

import (
	"sort"
	"strconv"
)

// Kind classifies a problem found in submitted code.
type Kind string

const (
	SyntaxError   Kind = "SyntaxError"
	CompileError  Kind = "CompileError"
	RuntimeError  Kind = "RuntimeError"
	LintIssue     Kind = "LintIssue"
	TimeoutError  Kind = "TimeoutError"
	InternalError Kind = "InternalError"
)

// Kinds lists every kind in reporting order.
var Kinds = []Kind{SyntaxError, CompileError, RuntimeError, LintIssue, TimeoutError, InternalError}

// Diagnostic is one problem tied to a source line where possible.
// It never carries locale specific text.
type Diagnostic struct {
	Kind Kind `json:"kind"`
	// Line is 1-based; zero means unknown.
	Line   int `json:"line,omitempty"`
	Column int `json:"column,omitempty"`
	// Category is a tool specific sub-category token, e.g. a lint symbol
	// or an exception class name.
	Category   string `json:"category,omitempty"`
	RawMessage string `json:"raw_message"`
	ToolSource string `json:"tool"`
}

func (d Diagnostic) HasLine() bool {
	return d.Line > 0
}

// LineString renders the line for presentation, "?" when unknown.
func (d Diagnostic) LineString() string {
	if !d.HasLine() {
		return "?"
	}
	return strconv.Itoa(d.Line)
}

// SortByLine orders diagnostics by known line first, keeping arrival order
// for equal lines and for entries without a line.
func SortByLine(diags []Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		a, b := diags[i], diags[j]
		switch {
		case a.HasLine() && b.HasLine():
			return a.Line < b.Line
		case a.HasLine():
			return true
		default:
			return false
		}
	})
}
