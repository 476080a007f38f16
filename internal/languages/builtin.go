package languages

import (
	"fmt"
	"time"

	"github.com/itstheanurag/kodanaliz/internal/diagnostic"
	"github.com/itstheanurag/kodanaliz/internal/parser"
	"github.com/itstheanurag/kodanaliz/internal/sandbox"
	"github.com/itstheanurag/kodanaliz/internal/workspace"
)

// Options tunes the built-in languages.
type Options struct {
	// Run overrides the execution phase limits; zero fields keep defaults.
	Run sandbox.Limits

	PylintRC         string
	CheckstyleConfig string
	ESLintConfig     string
}

// Tool limits. Compilers and linters are trusted but still bounded; the
// JVM and V8 reserve far more address space than they use, so their memory
// is capped by runtime flags instead of RLIMIT_AS.
var (
	toolLimits = sandbox.Limits{
		WallClock:    10 * time.Second,
		CPUTime:      10 * time.Second,
		AddressSpace: 1 << 30,
		FileSize:     64 << 20,
	}
	lintLimits = sandbox.Limits{
		WallClock: 20 * time.Second,
		CPUTime:   20 * time.Second,
		FileSize:  16 << 20,
	}
	jvmToolLimits = sandbox.Limits{
		WallClock: 20 * time.Second,
		CPUTime:   30 * time.Second,
		FileSize:  64 << 20,
	}
)

const (
	javaHeap = "256m"
	nodeHeap = "128"
)

// Defaults returns python, java, javascript and cpp.
func Defaults(opts Options) []Language {
	return []Language{
		Python(opts),
		Java(opts),
		JavaScript(opts),
		CPP(opts),
	}
}

func src(ws *workspace.Workspace) string { return ws.SourcePath }

func Python(opts Options) Language {
	const file = "main.py"
	lint := &Phase{
		Name: PhaseLint,
		Tool: "pylint",
		Args: func(ws *workspace.Workspace) []string {
			args := []string{"pylint", "--output-format=json", "--score=n", "--persistent=n", "--disable=C,R"}
			if opts.PylintRC != "" {
				args = append(args, "--rcfile="+opts.PylintRC)
			}
			return append(args, src(ws))
		},
		Limits: lintLimits,
		Parser: parser.Parser{Tool: "pylint", Kind: diagnostic.LintIssue, Strategy: parser.PylintJSON},
		Stream: Stdout,
	}
	return Language{
		ID:         "python",
		Name:       "Python",
		Image:      "python:3.12-slim",
		Extensions: []string{".py"},
		Layout:     workspace.FixedFile(file),
		Check: Phase{
			Name: PhaseCheck,
			Tool: "py_compile",
			Args: func(ws *workspace.Workspace) []string {
				return []string{"python3", "-I", "-m", "py_compile", src(ws)}
			},
			Limits: toolLimits,
			Parser: parser.Parser{Tool: "py_compile", Kind: diagnostic.SyntaxError, Strategy: parser.PythonTraceback(file)},
		},
		Run: Phase{
			Name: PhaseRun,
			Tool: "python3",
			Args: func(ws *workspace.Workspace) []string {
				return []string{"python3", "-I", "-B", src(ws)}
			},
			Limits: sandbox.DefaultLimits().Merge(opts.Run),
			Parser: parser.Parser{Tool: "python3", Kind: diagnostic.RuntimeError, Strategy: parser.PythonTraceback(file)},
		},
		Lint: lint,
	}
}

func Java(opts Options) Language {
	runLimits := sandbox.DefaultLimits().Merge(opts.Run)
	runLimits.AddressSpace = 0
	if runLimits.WallClock < 5*time.Second {
		runLimits.WallClock = 5 * time.Second
	}

	l := Language{
		ID:         "java",
		Name:       "Java",
		Image:      "eclipse-temurin:21-jdk",
		Extensions: []string{".java"},
		Layout:     workspace.JavaLayout,
		Check: Phase{
			Name: PhaseCheck,
			Tool: "javac",
			Args: func(ws *workspace.Workspace) []string {
				return []string{"javac", "-J-Xmx" + javaHeap, "-encoding", "UTF-8", "-d", ".", src(ws)}
			},
			Limits: jvmToolLimits,
			Parser: parser.Parser{Tool: "javac", Kind: diagnostic.CompileError, Strategy: parser.Javac},
		},
		Run: Phase{
			Name: PhaseRun,
			Tool: "java",
			Args: func(ws *workspace.Workspace) []string {
				return []string{"java", "-Xmx" + javaHeap, "-Xss8m", "-XX:+UseSerialGC", "-cp", ".", ws.Entry}
			},
			Limits: runLimits,
			Parser: parser.Parser{Tool: "java", Kind: diagnostic.RuntimeError, Strategy: parser.JavaException},
		},
	}
	if opts.CheckstyleConfig != "" {
		l.Lint = &Phase{
			Name: PhaseLint,
			Tool: "checkstyle",
			Args: func(ws *workspace.Workspace) []string {
				return []string{"checkstyle", "-c", opts.CheckstyleConfig, src(ws)}
			},
			Limits: jvmToolLimits,
			Parser: parser.Parser{Tool: "checkstyle", Kind: diagnostic.LintIssue, Strategy: parser.CheckstylePlain},
			Stream: Combined,
		}
	}
	return l
}

func JavaScript(opts Options) Language {
	const file = "main.js"
	runLimits := sandbox.DefaultLimits().Merge(opts.Run)
	runLimits.AddressSpace = 0

	l := Language{
		ID:         "javascript",
		Name:       "JavaScript",
		Image:      "node:20-slim",
		Extensions: []string{".js", ".mjs", ".cjs"},
		Layout:     workspace.FixedFile(file),
		Check: Phase{
			Name: PhaseCheck,
			Tool: "node",
			Args: func(ws *workspace.Workspace) []string {
				return []string{"node", "--check", src(ws)}
			},
			Limits: sandbox.Limits{WallClock: toolLimits.WallClock, CPUTime: toolLimits.CPUTime, FileSize: toolLimits.FileSize},
			Parser: parser.Parser{Tool: "node", Kind: diagnostic.SyntaxError, Strategy: parser.NodeTrace(file)},
		},
		Run: Phase{
			Name: PhaseRun,
			Tool: "node",
			Args: func(ws *workspace.Workspace) []string {
				return []string{"node", fmt.Sprintf("--max-old-space-size=%s", nodeHeap), src(ws)}
			},
			Env:    []string{"NO_COLOR=1"},
			Limits: runLimits,
			Parser: parser.Parser{Tool: "node", Kind: diagnostic.RuntimeError, Strategy: parser.NodeTrace(file)},
		},
	}
	if opts.ESLintConfig != "" {
		l.Lint = &Phase{
			Name: PhaseLint,
			Tool: "eslint",
			Args: func(ws *workspace.Workspace) []string {
				return []string{"eslint", "--format", "json", "-c", opts.ESLintConfig, src(ws)}
			},
			Limits: sandbox.Limits{WallClock: lintLimits.WallClock, CPUTime: lintLimits.CPUTime, FileSize: lintLimits.FileSize},
			Parser: parser.Parser{Tool: "eslint", Kind: diagnostic.LintIssue, Strategy: parser.ESLintJSON},
			Stream: Stdout,
		}
	}
	return l
}

func CPP(opts Options) Language {
	const file = "main.cpp"
	return Language{
		ID:         "cpp",
		Name:       "C++",
		Image:      "gcc:13",
		Extensions: []string{".cpp", ".cc", ".cxx"},
		Layout:     workspace.FixedFile(file),
		Check: Phase{
			Name: PhaseCheck,
			Tool: "g++",
			Args: func(ws *workspace.Workspace) []string {
				return []string{"g++", "-std=c++17", "-O2", "-fdiagnostics-color=never", "-o", "main", src(ws)}
			},
			Limits: toolLimits,
			Parser: parser.Parser{
				Tool:     "g++",
				Kind:     diagnostic.CompileError,
				Strategy: parser.ColonFormat(parser.ColonOptions{FileSuffix: ".cpp", Severities: []string{"error", "fatal error"}}),
			},
		},
		Run: Phase{
			Name: PhaseRun,
			Tool: "main",
			Args: func(*workspace.Workspace) []string {
				return []string{"./main"}
			},
			Limits: sandbox.DefaultLimits().Merge(opts.Run),
			Parser: parser.Parser{Tool: "main", Kind: diagnostic.RuntimeError},
		},
		Lint: &Phase{
			Name: PhaseLint,
			Tool: "cppcheck",
			Args: func(ws *workspace.Workspace) []string {
				return []string{
					"cppcheck", "--enable=warning,style,performance,portability", "--quiet", "--suppress=missingIncludeSystem",
					"--template={file}:{line}:{column}: {severity}: {message} [{id}]",
					src(ws),
				}
			},
			Limits: lintLimits,
			Parser: parser.Parser{Tool: "cppcheck", Kind: diagnostic.LintIssue, Strategy: parser.ColonFormat(parser.ColonOptions{FileSuffix: ".cpp"})},
			Stream: Combined,
		},
	}
}
