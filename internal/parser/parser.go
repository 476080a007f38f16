// Package parser converts raw compiler, interpreter and linter output into
// diagnostics. Each (phase, tool) pair gets a Strategy; every Parser applies
// the same fallback so a failed phase is never reported without a diagnostic.
package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/itstheanurag/kodanaliz/internal/diagnostic"
)

// Strategy recognizes one tool's output format. It returns nil when nothing
// in raw matches. Kind and ToolSource are stamped by the Parser.
type Strategy func(raw string) []diagnostic.Diagnostic

// Parser binds a Strategy to the tool that produced the output and the
// generic kind of the phase it ran in.
type Parser struct {
	Tool     string
	Kind     diagnostic.Kind
	Strategy Strategy
}

// Findings runs the strategy without applying the fallback. A strategy that
// panics on hostile output is treated as matching nothing.
func (p Parser) Findings(raw string) (diags []diagnostic.Diagnostic) {
	if p.Strategy == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			diags = nil
		}
	}()

	found := p.Strategy(raw)
	if len(found) == 0 {
		return nil
	}
	diags = make([]diagnostic.Diagnostic, 0, len(found))
	for _, d := range found {
		if d.Kind == "" {
			d.Kind = p.Kind
		}
		if d.Line < 0 {
			d.Line = 0
		}
		d.ToolSource = p.Tool
		diags = append(diags, d)
	}
	diagnostic.SortByLine(diags)
	return diags
}

// Failure parses the output of a phase that failed. The result is never
// empty: when the strategy matches nothing a single fallback diagnostic is
// returned.
func (p Parser) Failure(raw string) []diagnostic.Diagnostic {
	if diags := p.Findings(raw); len(diags) > 0 {
		return diags
	}
	return []diagnostic.Diagnostic{p.Fallback(raw)}
}

// Fallback builds the line-less diagnostic used when output matches no
// pattern: the last non-empty line of raw, or InternalError if raw is blank.
func (p Parser) Fallback(raw string) diagnostic.Diagnostic {
	msg := LastNonEmptyLine(raw)
	kind := p.Kind
	if msg == "" {
		kind = diagnostic.InternalError
		msg = fmt.Sprintf("%s failed without producing any output", p.Tool)
	}
	return diagnostic.Diagnostic{
		Kind:       kind,
		Category:   Category(msg),
		RawMessage: msg,
		ToolSource: p.Tool,
	}
}

// LastNonEmptyLine returns the last line of s that is not blank, trimmed.
func LastNonEmptyLine(s string) string {
	lines := splitLines(s)
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}

var categoryPattern = regexp.MustCompile(
	`^(?:Sorry:\s*)?(?:Uncaught\s+)?((?:[A-Za-z_$][\w$.]*)?(?:Error|Exception|Warning|Interrupt|Exit))\b`)

// Category extracts the leading error class of a message such as
// "ZeroDivisionError: division by zero" or "java.lang.ArithmeticException".
func Category(message string) string {
	m := categoryPattern.FindStringSubmatch(strings.TrimSpace(message))
	if m == nil {
		return ""
	}
	return m[1]
}

func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.Split(s, "\n")
}
