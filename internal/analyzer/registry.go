package analyzer

import (
	"errors"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/itstheanurag/kodanaliz/internal/languages"
	"github.com/itstheanurag/kodanaliz/internal/sandbox"
	"github.com/itstheanurag/kodanaliz/internal/workspace"
)

var (
	ErrLanguageNotFound = errors.New("language not found")
)

// Registry maps language ids to analyzers. Registration normally happens
// once at start-up; lookups are safe from any goroutine.
type Registry struct {
	mu        sync.RWMutex
	analyzers map[string]Analyzer
}

func NewRegistry() *Registry {
	return &Registry{
		analyzers: make(map[string]Analyzer),
	}
}

// NewDefaultRegistry registers a Pipeline for every language in langs.
func NewDefaultRegistry(langs []languages.Language, sb sandbox.Sandbox, workspaces *workspace.Manager, logger *zerolog.Logger) *Registry {
	r := NewRegistry()
	for _, l := range langs {
		r.Register(NewPipeline(l, sb, workspaces, logger))
	}
	return r
}

// Register adds a, replacing any analyzer registered for the same language.
func (r *Registry) Register(a Analyzer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.analyzers[a.Language()] = a
}

func (r *Registry) Get(id string) (Analyzer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.analyzers[id]
	if !ok {
		return nil, ErrLanguageNotFound
	}
	return a, nil
}

// List returns the registered language ids in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.analyzers))
	for id := range r.analyzers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
