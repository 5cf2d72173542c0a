package main

import (
	"fmt"

	"github.com/agenthands/beacon/internal/core"
	"github.com/agenthands/beacon/internal/core/ingest"
	"github.com/spf13/cobra"
)

var (
	backfillDays int
	force        bool
	trials       bool
	skipTrials   bool
	categories   []string
	threshold    float64
	maxPosts     int
)

var syncCmd = &cobra.Command{
	Use:   "sync [concept-uri...]",
	Short: "Fetch new events for a concept set",
	Long: `Searches for events published since the last search of every concept in
the set. Without arguments the configured or approved concepts are used.
With --trials the arguments are clinical trial conditions instead.`,
	RunE: runSync,
}

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Score stored events and post the best ones",
	Args:  cobra.NoArgs,
	RunE:  runPublish,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Sync, score and publish in one pass",
	Args:  cobra.NoArgs,
	RunE:  runRun,
}

func init() {
	syncCmd.Flags().IntVar(&backfillDays, "backfill", 0, "also cover the last N days")
	syncCmd.Flags().BoolVar(&force, "force", false, "search even if already searched today")
	syncCmd.Flags().BoolVar(&trials, "trials", false, "sync clinical trials")
	syncCmd.Flags().StringSliceVar(&categories, "category", nil, "restrict the search to a category uri")

	publishCmd.Flags().Float64Var(&threshold, "threshold", 0, "minimum composite score (default from config)")
	publishCmd.Flags().IntVar(&maxPosts, "max-posts", 0, "maximum number of posts (default from config)")

	runCmd.Flags().IntVar(&backfillDays, "backfill", 0, "also cover the last N days")
	runCmd.Flags().BoolVar(&force, "force", false, "search even if already searched today")
	runCmd.Flags().BoolVar(&skipTrials, "skip-trials", false, "leave clinical trials out")

	rootCmd.AddCommand(syncCmd, publishCmd, runCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	opts := ingest.Options{Categories: categories, BackfillDays: backfillDays, Force: force}
	syncFn := pipeline.Sync
	if trials {
		syncFn = pipeline.SyncTrials
	}
	res, err := syncFn(cmd.Context(), args, opts)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	cmd.Printf("%d events known, %d new\n", len(res.All), len(res.New))
	for _, e := range res.New {
		cmd.Printf("  %s  %s  %s\n", e.EventDate, e.URI, e.EnglishTitle())
	}
	return nil
}

func runPublish(cmd *cobra.Command, args []string) error {
	report, err := pipeline.Publish(cmd.Context(), threshold, maxPosts)
	printReport(cmd, report.Posted, report.Skipped, report.Failed)
	if err != nil {
		return fmt.Errorf("publish failed: %w", err)
	}
	return nil
}

func runRun(cmd *cobra.Command, args []string) error {
	report, err := pipeline.Run(cmd.Context(), core.RunOptions{BackfillDays: backfillDays, Force: force, SkipTrials: skipTrials})
	cmd.Printf("%d events synced, %d new, %d scored\n", report.Synced, report.New, report.Scored)
	printReport(cmd, report.Publish.Posted, report.Publish.Skipped, report.Publish.Failed)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}
	return nil
}
