package parser

import (
	"encoding/json"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/itstheanurag/kodanaliz/internal/diagnostic"
)

var pythonTraceMarker = regexp.MustCompile(`^\s*File "([^"]+)", line (\d+)`)

// PythonTraceback summarizes a traceback or a syntax error report into one
// diagnostic. The line comes from the deepest `File "...", line N` marker
// that points at userFile, or the deepest marker at all when none does.
func PythonTraceback(userFile string) Strategy {
	return func(raw string) []diagnostic.Diagnostic {
		var userLine, anyLine int
		for _, l := range splitLines(raw) {
			m := pythonTraceMarker.FindStringSubmatch(l)
			if m == nil {
				continue
			}
			n, err := strconv.Atoi(m[2])
			if err != nil {
				continue
			}
			anyLine = n
			if userFile == "" || filepath.Base(m[1]) == userFile {
				userLine = n
			}
		}
		line := userLine
		if line == 0 {
			line = anyLine
		}
		if line == 0 {
			return nil
		}
		msg := strings.TrimPrefix(LastNonEmptyLine(raw), "Sorry: ")
		return []diagnostic.Diagnostic{{
			Line:       line,
			Category:   Category(msg),
			RawMessage: msg,
		}}
	}
}

type pylintMessage struct {
	Type      string `json:"type"`
	Symbol    string `json:"symbol"`
	Message   string `json:"message"`
	MessageID string `json:"message-id"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	Path      string `json:"path"`
}

// PylintJSON reads `pylint --output-format=json`. The lint symbol becomes
// the diagnostic category.
func PylintJSON(raw string) []diagnostic.Diagnostic {
	start := strings.Index(raw, "[")
	if start < 0 {
		return nil
	}
	var msgs []pylintMessage
	if err := json.NewDecoder(strings.NewReader(raw[start:])).Decode(&msgs); err != nil {
		return nil
	}
	diags := make([]diagnostic.Diagnostic, 0, len(msgs))
	for _, m := range msgs {
		category := m.Symbol
		if category == "" {
			category = m.MessageID
		}
		col := 0
		if m.Column >= 0 && m.Line > 0 {
			col = m.Column + 1
		}
		diags = append(diags, diagnostic.Diagnostic{
			Line:       m.Line,
			Column:     col,
			Category:   category,
			RawMessage: strings.TrimSpace(m.Message),
		})
	}
	return diags
}
