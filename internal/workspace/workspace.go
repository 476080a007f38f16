// Package workspace manages the ephemeral directories analyses run in.
// Every workspace is exclusively owned by one request and removed on every
// exit path.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/itstheanurag/kodanaliz/internal/metrics"
)

type Workspace struct {
	ID  string
	Dir string
	// SourcePath is relative to Dir.
	SourcePath string
	Entry      string

	released bool
}

// SourceFile is the base name of the source file.
func (w *Workspace) SourceFile() string {
	return filepath.Base(w.SourcePath)
}

type Manager struct {
	root   string
	logger *zerolog.Logger
}

// NewManager creates workspaces under root, or the system temp dir when
// root is empty.
func NewManager(root string, logger *zerolog.Logger) *Manager {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Manager{root: root, logger: logger}
}

// Root is always absolute so workspace paths can be bind-mounted.
func (m *Manager) Root() string {
	root := m.root
	if root == "" {
		root = os.TempDir()
	}
	if abs, err := filepath.Abs(root); err == nil {
		return abs
	}
	return root
}

// Acquire creates a uniquely named directory and writes source into it at
// the path chosen by layout.
func (m *Manager) Acquire(languageHint string, layout Layout, source string) (*Workspace, error) {
	root := m.Root()
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}

	id := uuid.NewString()
	dir, err := os.MkdirTemp(root, fmt.Sprintf("ws-%s-%s-", sanitize(languageHint), id[:8]))
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	rel, entry := layout(source)
	ws := &Workspace{ID: id, Dir: dir, SourcePath: filepath.Clean(rel), Entry: entry}
	if err := ws.writeSource(source); err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}

	metrics.WorkspacesActive.Inc()
	m.logger.Debug().Str("workspace", dir).Str("source", ws.SourcePath).Msg("workspace acquired")
	return ws, nil
}

// Release removes the workspace recursively. It is safe to call on a nil
// workspace.
func (m *Manager) Release(ws *Workspace) error {
	if ws == nil || ws.Dir == "" || ws.released {
		return nil
	}
	ws.released = true
	metrics.WorkspacesActive.Dec()
	if err := os.RemoveAll(ws.Dir); err != nil {
		m.logger.Error().Err(err).Str("workspace", ws.Dir).Msg("failed to release workspace")
		return fmt.Errorf("release workspace: %w", err)
	}
	m.logger.Debug().Str("workspace", ws.Dir).Msg("workspace released")
	return nil
}

// With runs fn inside a fresh workspace and releases it afterwards, even
// when fn returns an error or panics.
func (m *Manager) With(languageHint string, layout Layout, source string, fn func(*Workspace) error) error {
	ws, err := m.Acquire(languageHint, layout, source)
	if err != nil {
		return err
	}
	defer m.Release(ws)
	return fn(ws)
}

func (w *Workspace) writeSource(source string) error {
	if w.SourcePath == "." || filepath.IsAbs(w.SourcePath) || strings.HasPrefix(w.SourcePath, "..") {
		return errors.New("source path escapes workspace: " + w.SourcePath)
	}
	dst := filepath.Join(w.Dir, w.SourcePath)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create source dir: %w", err)
	}
	if err := os.WriteFile(dst, []byte(source), 0o644); err != nil {
		return fmt.Errorf("write source: %w", err)
	}
	return nil
}

func sanitize(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
	if s == "" {
		return "code"
	}
	return s
}
