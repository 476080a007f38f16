//go:build unix

package analyzer

import (
	"context"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itstheanurag/kodanaliz/internal/diagnostic"
	"github.com/itstheanurag/kodanaliz/internal/languages"
	"github.com/itstheanurag/kodanaliz/internal/sandbox"
	"github.com/itstheanurag/kodanaliz/internal/workspace"
)

func pythonPipeline(t *testing.T) (*Pipeline, string) {
	t.Helper()
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not installed")
	}
	root := t.TempDir()
	lang := languages.Python(languages.Options{
		Run: sandbox.Limits{WallClock: 3 * time.Second, CPUTime: 2 * time.Second},
	})
	return NewPipeline(lang, sandbox.NewProcessSandbox(nil), workspace.NewManager(root, nil), nil), root
}

func TestPythonUnclosedCall(t *testing.T) {
	p, root := pythonPipeline(t)

	res, err := p.Analyze(context.Background(), "print(1")
	require.NoError(t, err)
	require.Len(t, res.Diagnostics, 1)
	d := res.Diagnostics[0]
	assert.Equal(t, diagnostic.SyntaxError, d.Kind)
	assert.Equal(t, 1, d.Line)
	assert.Equal(t, "py_compile", d.ToolSource)
	assertNoWorkspaces(t, root)
}

func TestPythonPrintsOK(t *testing.T) {
	p, root := pythonPipeline(t)

	res, err := p.Analyze(context.Background(), "print('ok')\n")
	require.NoError(t, err)
	assert.Equal(t, diagnostic.Success("ok"), res)
	assertNoWorkspaces(t, root)
}

func TestPythonDivisionByZero(t *testing.T) {
	p, root := pythonPipeline(t)

	res, err := p.Analyze(context.Background(), "x = 1\ny = x / 0\n")
	require.NoError(t, err)
	require.Len(t, res.Diagnostics, 1)
	d := res.Diagnostics[0]
	assert.Equal(t, diagnostic.RuntimeError, d.Kind)
	assert.Equal(t, 2, d.Line)
	assert.Equal(t, "ZeroDivisionError", d.Category)
	assert.Contains(t, d.RawMessage, "division by zero")
	assertNoWorkspaces(t, root)
}

func TestPythonInfiniteLoop(t *testing.T) {
	p, root := pythonPipeline(t)

	start := time.Now()
	res, err := p.Analyze(context.Background(), "while True: pass\n")
	elapsed := time.Since(start)
	require.NoError(t, err)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, diagnostic.TimeoutError, res.Diagnostics[0].Kind)
	assert.Less(t, elapsed, 3*time.Second+2*time.Second)
	assertNoWorkspaces(t, root)
}

func TestPythonResultsAreStable(t *testing.T) {
	p, _ := pythonPipeline(t)

	src := "def f():\n    raise ValueError('bad')\n\nf()\n"
	first, err := p.Analyze(context.Background(), src)
	require.NoError(t, err)
	second, err := p.Analyze(context.Background(), src)
	require.NoError(t, err)

	require.Len(t, first.Diagnostics, 1)
	require.Len(t, second.Diagnostics, 1)
	assert.Equal(t, first.Diagnostics[0].Kind, second.Diagnostics[0].Kind)
	assert.Equal(t, first.Diagnostics[0].Line, second.Diagnostics[0].Line)
	assert.Equal(t, 2, first.Diagnostics[0].Line)
}

func TestPythonProgramCannotEscapeWorkspace(t *testing.T) {
	p, root := pythonPipeline(t)

	res, err := p.Analyze(context.Background(), "open('artifact.txt', 'w').write('x')\nprint('done')\n")
	require.NoError(t, err)
	assert.NotContains(t, res.Kinds(), diagnostic.RuntimeError)
	assertNoWorkspaces(t, root)
	_, statErr := os.Stat("artifact.txt")
	assert.True(t, os.IsNotExist(statErr), "program wrote outside its workspace")
}
