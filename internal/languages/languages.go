// Package languages defines the supported language variants: which tools
// each phase invokes, where the source file goes, and how each tool's output
// is parsed. Adding a language means adding one Language value.
package languages

import (
	"path/filepath"
	"strings"

	"github.com/itstheanurag/kodanaliz/internal/diagnostic"
	"github.com/itstheanurag/kodanaliz/internal/parser"
	"github.com/itstheanurag/kodanaliz/internal/sandbox"
	"github.com/itstheanurag/kodanaliz/internal/workspace"
)

type PhaseName string

const (
	PhaseCheck PhaseName = "check"
	PhaseRun   PhaseName = "run"
	PhaseLint  PhaseName = "lint"
)

// Stream selects the captured output a phase's parser reads.
type Stream int

const (
	Stderr Stream = iota
	Stdout
	Combined
)

func (s Stream) Select(o *sandbox.Outcome) string {
	switch s {
	case Stdout:
		return o.Stdout
	case Combined:
		return o.Combined()
	default:
		return o.Stderr
	}
}

type Phase struct {
	Name PhaseName
	Tool string
	// Args builds the command line for a prepared workspace. Args[0] is
	// the executable.
	Args   func(ws *workspace.Workspace) []string
	Env    []string
	Limits sandbox.Limits
	Parser parser.Parser
	Stream Stream
}

type Language struct {
	ID         string
	Name       string
	Image      string
	Extensions []string
	Layout     workspace.Layout
	Check      Phase
	Run        Phase
	// Lint is nil when no static analysis backend is configured.
	Lint *Phase
}

// Compiled reports whether the first phase produces compile errors rather
// than syntax errors.
func (l Language) Compiled() bool {
	return l.Check.Parser.Kind == diagnostic.CompileError
}

// HasExtension reports whether path looks like a source file of l.
func (l Language) HasExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range l.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// ByExtension returns the language whose extensions include path's.
func ByExtension(langs []Language, path string) (Language, bool) {
	for _, l := range langs {
		if l.HasExtension(path) {
			return l, true
		}
	}
	return Language{}, false
}
