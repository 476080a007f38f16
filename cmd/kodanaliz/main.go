package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "kodanaliz",
	Short: "Analyze source files in a local sandbox",
	Long: `kodanaliz checks, runs and lints a single source file with the same
pipeline the HTTP service uses, and prints localized diagnostics.`,
	SilenceUsage:  true,
	SilenceErrors: true,

	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		switch mode, _ := cmd.Flags().GetString("color"); mode {
		case "on":
			color.NoColor = false
		case "off":
			color.NoColor = true
		}
	},
}

func main() {
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(languagesCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("verbose", false, "log sandbox activity to stderr")

	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errFindings) {
			fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		}
		os.Exit(1)
	}
}

func newLogger(cmd *cobra.Command) *zerolog.Logger {
	level := zerolog.WarnLevel
	if v, _ := cmd.Flags().GetBool("verbose"); v {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
	return &logger
}
