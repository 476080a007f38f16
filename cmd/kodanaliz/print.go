package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/itstheanurag/kodanaliz/internal/diagnostic"
	"github.com/itstheanurag/kodanaliz/internal/localize"
)

var (
	headerColor  = color.New(color.Bold)
	successColor = color.New(color.FgGreen, color.Bold)
	hintColor    = color.New(color.FgCyan)
	kindColors   = map[diagnostic.Kind]*color.Color{
		diagnostic.SyntaxError:   color.New(color.FgRed, color.Bold),
		diagnostic.CompileError:  color.New(color.FgRed, color.Bold),
		diagnostic.RuntimeError:  color.New(color.FgMagenta, color.Bold),
		diagnostic.LintIssue:     color.New(color.FgYellow, color.Bold),
		diagnostic.TimeoutError:  color.New(color.FgBlue, color.Bold),
		diagnostic.InternalError: color.New(color.FgWhite, color.Bold),
	}
)

func printResult(w io.Writer, loc *localize.Localizer, locale, file string, res diagnostic.Result) {
	if res.IsSuccess() {
		successColor.Fprintln(w, "OK")
		if res.Output != "" {
			fmt.Fprintln(w, res.Output)
		}
		return
	}
	for _, d := range res.Diagnostics {
		text := loc.Explain(locale, d)
		kind := kindColors[d.Kind]
		if kind == nil {
			kind = headerColor
		}
		fmt.Fprintf(w, "%s:%s: %s [%s] %s\n", file, d.LineString(), kind.Sprint(d.Kind), d.ToolSource, d.RawMessage)
		if text.Explanation != "" {
			fmt.Fprintf(w, "  %s\n", text.Explanation)
		}
		if text.Solution != "" {
			hintColor.Fprintf(w, "  -> %s\n", text.Solution)
		}
	}
}
