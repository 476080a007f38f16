// Package analyzer runs the per-language analysis pipeline: a syntax or
// compile check, then execution, then static analysis, stopping at the
// first phase that fails.
package analyzer

import (
	"context"

	"github.com/itstheanurag/kodanaliz/internal/diagnostic"
)

// Analyzer produces a Result for one language. A returned error is always an
// infrastructure fault; problems in the submitted code are Failed results.
type Analyzer interface {
	Language() string
	Analyze(ctx context.Context, source string) (diagnostic.Result, error)
}
