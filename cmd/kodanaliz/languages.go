package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/itstheanurag/kodanaliz/internal/languages"
)

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List supported languages and their tools",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()
		for _, l := range languages.Defaults(languages.Options{}) {
			lint := "-"
			if l.Lint != nil {
				lint = l.Lint.Tool
			}
			fmt.Fprintf(out, "%s\t%s\t%s\tcheck=%s run=%s lint=%s\n",
				headerColor.Sprint(l.ID), l.Name, strings.Join(l.Extensions, ","),
				l.Check.Tool, l.Run.Tool, lint)
		}
	},
}
