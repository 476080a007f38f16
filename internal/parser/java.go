package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/itstheanurag/kodanaliz/internal/diagnostic"
)

// Javac keeps the error lines of a javac report.
var Javac = ColonFormat(ColonOptions{FileSuffix: ".java", Severities: []string{"error"}})

var (
	javaExceptionHeader = regexp.MustCompile(`^Exception in thread "[^"]*" (.+)$`)
	javaStackFrame      = regexp.MustCompile(`^\s*at\s+(\S+)\(([^():]+\.java):(\d+)\)`)
	checkstyleLine      = regexp.MustCompile(
		`^\[(WARN|ERROR|INFO)\]\s+(.+?\.java):(\d+)(?::(\d+))?:\s*(.*?)(?:\s+\[(\w+)\])?\s*$`)
)

// JavaException summarizes an uncaught exception. The line is taken from
// the first stack frame that is not inside the JDK.
func JavaException(raw string) []diagnostic.Diagnostic {
	var msg string
	line := 0
	for _, l := range splitLines(raw) {
		if msg == "" {
			if m := javaExceptionHeader.FindStringSubmatch(strings.TrimSpace(l)); m != nil {
				msg = strings.TrimSpace(m[1])
			}
			continue
		}
		m := javaStackFrame.FindStringSubmatch(l)
		if m == nil || isJDKFrame(m[1]) {
			continue
		}
		if n, err := strconv.Atoi(m[3]); err == nil {
			line = n
			break
		}
	}
	if msg == "" {
		return nil
	}
	category := msg
	if i := strings.Index(msg, ":"); i >= 0 {
		category = msg[:i]
	}
	return []diagnostic.Diagnostic{{
		Line:       line,
		Category:   strings.TrimSpace(category),
		RawMessage: msg,
	}}
}

func isJDKFrame(method string) bool {
	if strings.Contains(method, "/") {
		return true
	}
	for _, p := range []string{"java.", "javax.", "jdk.", "sun.", "com.sun."} {
		if strings.HasPrefix(method, p) {
			return true
		}
	}
	return false
}

// CheckstylePlain reads checkstyle's default plain formatter.
func CheckstylePlain(raw string) []diagnostic.Diagnostic {
	var diags []diagnostic.Diagnostic
	for _, l := range splitLines(raw) {
		m := checkstyleLine.FindStringSubmatch(strings.TrimSpace(l))
		if m == nil {
			continue
		}
		line, err := strconv.Atoi(m[3])
		if err != nil {
			continue
		}
		col, _ := strconv.Atoi(m[4])
		category := m[6]
		if category == "" {
			category = strings.ToLower(m[1])
		}
		diags = append(diags, diagnostic.Diagnostic{
			Line:       line,
			Column:     col,
			Category:   category,
			RawMessage: m[5],
		})
	}
	return diags
}
