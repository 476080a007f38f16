package judge0

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/itstheanurag/kodanaliz/internal/diagnostic"
	"github.com/itstheanurag/kodanaliz/internal/languages"
	"github.com/itstheanurag/kodanaliz/internal/metrics"
)

// searchTerms narrow the Judge0 language list; "java" alone would also
// match JavaScript.
var searchTerms = map[string]string{
	"python":     "python (3",
	"java":       "java (",
	"javascript": "javascript",
	"cpp":        "c++ (",
}

// pythonSyntaxClasses are raised at load time, before any statement runs.
var pythonSyntaxClasses = map[string]bool{
	"SyntaxError":      true,
	"IndentationError": true,
	"TabError":         true,
}

// Analyzer serves one language through Judge0. The remote service only
// compiles and runs, so static analysis is always skipped.
type Analyzer struct {
	client *Client
	lang   languages.Language
	logger *zerolog.Logger
}

func NewAnalyzer(client *Client, lang languages.Language, logger *zerolog.Logger) *Analyzer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("language", lang.ID).Str("backend", "judge0").Logger()
	return &Analyzer{client: client, lang: lang, logger: &l}
}

func (a *Analyzer) Language() string { return a.lang.ID }

func (a *Analyzer) Analyze(ctx context.Context, source string) (diagnostic.Result, error) {
	term, ok := searchTerms[a.lang.ID]
	if !ok {
		term = a.lang.ID
	}
	id, err := a.client.LanguageID(ctx, term)
	if err != nil {
		return diagnostic.Result{}, err
	}

	limits := a.lang.Run.Limits
	sub := Submission{SourceCode: source, LanguageID: id}
	if limits.CPUTime > 0 {
		sub.CPUTimeLimit = strconv.FormatFloat(limits.CPUTime.Seconds(), 'f', -1, 64)
	}
	if limits.WallClock > 0 {
		sub.WallTimeLimit = strconv.FormatFloat(limits.WallClock.Seconds(), 'f', -1, 64)
	}
	if limits.AddressSpace > 0 {
		sub.MemoryLimitKB = int(limits.AddressSpace >> 10)
	}

	res, err := a.client.Submit(ctx, sub)
	if err != nil {
		return diagnostic.Result{}, err
	}
	a.logger.Debug().Int("status", res.Status.ID).Str("description", res.Status.Description).Msg("judge0 submission finished")

	out, err := a.interpret(res)
	if err == nil && out.IsSuccess() {
		metrics.LintSkipped.WithLabelValues(a.lang.ID, "remote").Inc()
		a.logger.Warn().Msg("static analysis skipped for remote run, reporting no findings")
	}
	return out, err
}

func (a *Analyzer) interpret(res *Result) (diagnostic.Result, error) {
	switch id := res.Status.ID; {
	case id == StatusAccepted, id == StatusWrongAnswer:
		return diagnostic.Success(strings.TrimRight(res.Stdout, "\r\n")), nil

	case id == StatusCompilationError:
		raw := firstNonBlank(res.CompileOutput, res.Stderr, res.Message)
		return diagnostic.Failed(a.lang.Check.Parser.Failure(raw)...), nil

	case id == StatusTimeLimitExceeded:
		return diagnostic.Failed(diagnostic.Diagnostic{
			Kind:       diagnostic.TimeoutError,
			Category:   "wall_clock",
			RawMessage: firstNonBlank(res.Message, "Time Limit Exceeded"),
			ToolSource: "judge0",
		}), nil

	case id >= StatusRuntimeErrorFirst && id <= StatusRuntimeErrorLast:
		raw := firstNonBlank(res.Stderr, res.Message, res.Status.Description)
		d := a.lang.Run.Parser.Failure(raw)[0]
		if !a.lang.Compiled() && pythonSyntaxClasses[d.Category] {
			d.Kind = diagnostic.SyntaxError
		}
		if d.RawMessage == "" {
			d.RawMessage = res.Status.Description
		}
		return diagnostic.Failed(d), nil

	default:
		return diagnostic.Result{}, fmt.Errorf("%w: status %d %s: %s", ErrRemote, id, res.Status.Description, res.Message)
	}
}

func firstNonBlank(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
