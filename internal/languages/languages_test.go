package languages

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itstheanurag/kodanaliz/internal/diagnostic"
	"github.com/itstheanurag/kodanaliz/internal/sandbox"
	"github.com/itstheanurag/kodanaliz/internal/workspace"
)

func TestDefaults(t *testing.T) {
	langs := Defaults(Options{})
	ids := make([]string, 0, len(langs))
	for _, l := range langs {
		ids = append(ids, l.ID)
		assert.NotEmpty(t, l.Image, l.ID)
		assert.NotNil(t, l.Layout, l.ID)
		assert.Equal(t, PhaseCheck, l.Check.Name, l.ID)
		assert.Equal(t, PhaseRun, l.Run.Name, l.ID)
		assert.Equal(t, diagnostic.RuntimeError, l.Run.Parser.Kind, l.ID)
		if l.Lint != nil {
			assert.Equal(t, diagnostic.LintIssue, l.Lint.Parser.Kind, l.ID)
		}
	}
	assert.Equal(t, []string{"python", "java", "javascript", "cpp"}, ids)
}

func TestCheckPhaseKinds(t *testing.T) {
	assert.False(t, Python(Options{}).Compiled())
	assert.False(t, JavaScript(Options{}).Compiled())
	assert.True(t, Java(Options{}).Compiled())
	assert.True(t, CPP(Options{}).Compiled())
}

func TestOptionalLinters(t *testing.T) {
	assert.NotNil(t, Python(Options{}).Lint)
	assert.Nil(t, Java(Options{}).Lint, "checkstyle needs a ruleset")
	assert.Nil(t, JavaScript(Options{}).Lint, "eslint needs a config")

	java := Java(Options{CheckstyleConfig: "/etc/checkstyle.xml"})
	require.NotNil(t, java.Lint)
	ws := &workspace.Workspace{SourcePath: "Main.java", Entry: "Main"}
	assert.Equal(t, []string{"checkstyle", "-c", "/etc/checkstyle.xml", "Main.java"}, java.Lint.Args(ws))
}

func TestPythonCommands(t *testing.T) {
	py := Python(Options{PylintRC: "/etc/pylintrc"})
	ws := &workspace.Workspace{SourcePath: "main.py", Entry: "main"}

	assert.Equal(t, []string{"python3", "-I", "-m", "py_compile", "main.py"}, py.Check.Args(ws))
	assert.Equal(t, []string{"python3", "-I", "-B", "main.py"}, py.Run.Args(ws))

	lint := py.Lint.Args(ws)
	assert.Equal(t, "pylint", lint[0])
	assert.Contains(t, lint, "--output-format=json")
	assert.Contains(t, lint, "--rcfile=/etc/pylintrc")
	assert.Equal(t, "main.py", lint[len(lint)-1])
	assert.Equal(t, Stdout, py.Lint.Stream)
}

func TestJavaRunUsesEntry(t *testing.T) {
	java := Java(Options{})
	ws := &workspace.Workspace{SourcePath: "a/b/App.java", Entry: "a.b.App"}
	args := java.Run.Args(ws)
	assert.Equal(t, "java", args[0])
	assert.Equal(t, "a.b.App", args[len(args)-1])
	assert.Zero(t, java.Run.Limits.AddressSpace, "heap is capped with -Xmx instead")
}

func TestRunLimitOverrides(t *testing.T) {
	py := Python(Options{Run: sandbox.Limits{WallClock: 7 * time.Second}})
	assert.Equal(t, 7*time.Second, py.Run.Limits.WallClock)
	assert.Equal(t, sandbox.DefaultLimits().CPUTime, py.Run.Limits.CPUTime)

	java := Java(Options{Run: sandbox.Limits{WallClock: time.Second}})
	assert.Equal(t, 5*time.Second, java.Run.Limits.WallClock, "JVM start-up needs a floor")
}

func TestByExtension(t *testing.T) {
	langs := Defaults(Options{})
	l, ok := ByExtension(langs, "/tmp/Hello.JAVA")
	require.True(t, ok)
	assert.Equal(t, "java", l.ID)

	l, ok = ByExtension(langs, "solve.cc")
	require.True(t, ok)
	assert.Equal(t, "cpp", l.ID)

	_, ok = ByExtension(langs, "README.md")
	assert.False(t, ok)
}

func TestStreamSelect(t *testing.T) {
	o := &sandbox.Outcome{Stdout: "out", Stderr: "err"}
	assert.Equal(t, "err", Stderr.Select(o))
	assert.Equal(t, "out", Stdout.Select(o))
	assert.Equal(t, "out\nerr", Combined.Select(o))
}
