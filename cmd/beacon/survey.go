package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var surveyCmd = &cobra.Command{
	Use:   "survey <question>",
	Short: "Ask a question about every approved organization",
	Long: `Asks the model the question once per approved organization and stores
the typed answers in the organization profiles.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSurvey,
}

func init() {
	rootCmd.AddCommand(surveyCmd)
}

func runSurvey(cmd *cobra.Command, args []string) error {
	res, err := pipeline.Surveyor.Ask(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return fmt.Errorf("survey failed: %w", err)
	}

	names := make([]string, 0, len(res.Answers))
	for name := range res.Answers {
		names = append(names, name)
	}
	sort.Strings(names)

	cmd.Printf("%s (%s)\n", res.Property, res.Type)
	for _, name := range names {
		cmd.Printf("  %s: %v\n", name, res.Answers[name])
	}
	if len(res.Failed) > 0 {
		cmd.Printf("no usable answer: %s\n", strings.Join(res.Failed, ", "))
	}
	return nil
}
