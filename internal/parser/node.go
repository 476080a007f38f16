package parser

import (
	"encoding/json"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/itstheanurag/kodanaliz/internal/diagnostic"
)

var (
	nodeLocationHeader = regexp.MustCompile(`^(\S+):(\d+)$`)
	nodeStackFrame     = regexp.MustCompile(`^at .*?\(?(?:file://)?([^\s()]+):(\d+):(\d+)\)?$`)
	nodeErrorLine      = regexp.MustCompile(`^(?:Uncaught\s+)?(?:[A-Za-z_$][\w$.]*)?(?:Error|Exception)(?::\s*.*)?$`)
)

// NodeTrace summarizes node's report of an uncaught error or a --check
// failure. The line comes from the `<file>:<line>` header node prints above
// the offending source, or from the first stack frame inside userFile.
func NodeTrace(userFile string) Strategy {
	return func(raw string) []diagnostic.Diagnostic {
		line := 0
		msg := ""
		for _, l := range splitLines(raw) {
			t := strings.TrimSpace(l)
			if t == "" {
				continue
			}
			if line == 0 {
				if m := nodeLocationHeader.FindStringSubmatch(t); m != nil && filepath.Base(m[1]) == userFile {
					line, _ = strconv.Atoi(m[2])
					continue
				}
			}
			if msg == "" && nodeErrorLine.MatchString(t) {
				msg = t
				continue
			}
			if line == 0 && strings.HasPrefix(t, "at ") {
				if m := nodeStackFrame.FindStringSubmatch(t); m != nil && filepath.Base(m[1]) == userFile {
					line, _ = strconv.Atoi(m[2])
				}
			}
		}
		if msg == "" {
			return nil
		}
		return []diagnostic.Diagnostic{{
			Line:       line,
			Category:   Category(msg),
			RawMessage: msg,
		}}
	}
}

type eslintFileReport struct {
	FilePath string `json:"filePath"`
	Messages []struct {
		RuleID   *string `json:"ruleId"`
		Severity int     `json:"severity"`
		Message  string  `json:"message"`
		Line     int     `json:"line"`
		Column   int     `json:"column"`
	} `json:"messages"`
}

// ESLintJSON reads `eslint --format json`.
func ESLintJSON(raw string) []diagnostic.Diagnostic {
	start := strings.Index(raw, "[")
	if start < 0 {
		return nil
	}
	var reports []eslintFileReport
	if err := json.NewDecoder(strings.NewReader(raw[start:])).Decode(&reports); err != nil {
		return nil
	}
	var diags []diagnostic.Diagnostic
	for _, r := range reports {
		for _, m := range r.Messages {
			category := "parse"
			if m.RuleID != nil && *m.RuleID != "" {
				category = *m.RuleID
			}
			diags = append(diags, diagnostic.Diagnostic{
				Line:       m.Line,
				Column:     m.Column,
				Category:   category,
				RawMessage: strings.TrimSpace(m.Message),
			})
		}
	}
	return diags
}
