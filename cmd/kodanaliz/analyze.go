package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/itstheanurag/kodanaliz/internal/analyzer"
	"github.com/itstheanurag/kodanaliz/internal/languages"
	"github.com/itstheanurag/kodanaliz/internal/localize"
	"github.com/itstheanurag/kodanaliz/internal/orchestrator"
	"github.com/itstheanurag/kodanaliz/internal/sandbox"
	"github.com/itstheanurag/kodanaliz/internal/workspace"
)

// errFindings makes the process exit non-zero when diagnostics were reported.
var errFindings = errors.New("diagnostics reported")

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Check, run and lint a source file",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringP("language", "l", "", "language id (default: inferred from the file extension)")
	analyzeCmd.Flags().String("locale", "tr", "locale for explanations")
	analyzeCmd.Flags().Duration("timeout", 3*time.Second, "wall clock limit for the program run")
	analyzeCmd.Flags().String("pylintrc", os.Getenv("PYLINTRC"), "pylint configuration file")
	analyzeCmd.Flags().String("checkstyle-config", os.Getenv("CHECKSTYLE_CONFIG"), "checkstyle configuration file")
	analyzeCmd.Flags().String("eslint-config", os.Getenv("ESLINT_CONFIG"), "eslint configuration file")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	path := args[0]
	source, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	langID, _ := flags.GetString("language")
	locale, _ := flags.GetString("locale")
	timeout, _ := flags.GetDuration("timeout")
	opts := languages.Options{Run: sandbox.Limits{WallClock: timeout}}
	opts.PylintRC, _ = flags.GetString("pylintrc")
	opts.CheckstyleConfig, _ = flags.GetString("checkstyle-config")
	opts.ESLintConfig, _ = flags.GetString("eslint-config")

	langs := languages.Defaults(opts)
	if langID == "" {
		l, ok := languages.ByExtension(langs, path)
		if !ok {
			return fmt.Errorf("cannot infer language of %s, use --language", filepath.Base(path))
		}
		langID = l.ID
	}

	logger := newLogger(cmd)
	registry := analyzer.NewDefaultRegistry(langs, sandbox.NewProcessSandbox(logger), workspace.NewManager("", logger), logger)
	orch := orchestrator.New(registry, orchestrator.Options{MaxInFlight: 1}, logger)
	localizer, err := localize.New("tr")
	if err != nil {
		return err
	}

	res, err := orch.Analyze(context.Background(), orchestrator.Request{
		SourceCode: string(source),
		Language:   langID,
		Locale:     locale,
	})
	if err != nil {
		return err
	}

	printResult(cmd.OutOrStdout(), localizer, localizer.Resolve(locale), filepath.Base(path), res)
	if !res.IsSuccess() {
		return errFindings
	}
	return nil
}
