package parser

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/itstheanurag/kodanaliz/internal/diagnostic"
)

var colonLine = regexp.MustCompile(
	`^(.+?):(\d+):(?:(\d+):)?\s*(?:(fatal error|error|warning|note|style|performance|portability|information)\s*:\s*)?(.*?)(?:\s+\[([\w.,-]+)\])?\s*$`)

// ColonOptions narrows which `<file>:<line>:[<col>:] <severity>: <message>`
// lines a ColonFormat strategy accepts.
type ColonOptions struct {
	// FileSuffix keeps only lines whose file ends with it (".java", ".cpp").
	FileSuffix string
	// Severities keeps only these severities. Empty accepts every line,
	// including ones without a severity.
	Severities []string
}

// ColonFormat handles the common compiler and linter line format used by
// javac, gcc/g++ and cppcheck templates.
func ColonFormat(opts ColonOptions) Strategy {
	accept := make(map[string]bool, len(opts.Severities))
	for _, s := range opts.Severities {
		accept[s] = true
	}
	return func(raw string) []diagnostic.Diagnostic {
		var diags []diagnostic.Diagnostic
		for _, l := range splitLines(raw) {
			m := colonLine.FindStringSubmatch(strings.TrimRight(l, " \t"))
			if m == nil {
				continue
			}
			file, severity := m[1], m[4]
			if opts.FileSuffix != "" && !strings.HasSuffix(filepath.Base(file), opts.FileSuffix) {
				continue
			}
			if len(accept) > 0 && !accept[severity] {
				continue
			}
			line, err := strconv.Atoi(m[2])
			if err != nil || line <= 0 {
				continue
			}
			col, _ := strconv.Atoi(m[3])
			category := m[6]
			if category == "" {
				category = severity
			}
			diags = append(diags, diagnostic.Diagnostic{
				Line:       line,
				Column:     col,
				Category:   category,
				RawMessage: strings.TrimSpace(m[5]),
			})
		}
		return diags
	}
}
