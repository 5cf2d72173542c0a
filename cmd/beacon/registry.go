package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/agenthands/beacon/internal/core/model"
	"github.com/spf13/cobra"
)

var revoke bool

var approveCmd = &cobra.Command{
	Use:   "approve (concept|category) <uri>",
	Short: "Approve or revoke a concept or category",
	Args:  cobra.ExactArgs(2),
	RunE:  runApprove,
}

var discoverCmd = &cobra.Command{
	Use:   "discover <file>",
	Short: "Register approved concepts from a list of labels",
	Long: `Reads one label per line (blank lines and lines starting with # are
ignored), looks up the matching concept and registers it as approved.`,
	Args: cobra.ExactArgs(1),
	RunE: runDiscover,
}

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Fetch wiki introductions for approved concepts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := pipeline.Enrich(cmd.Context())
		if err != nil {
			return fmt.Errorf("enrich failed: %w", err)
		}
		cmd.Printf("%d concepts enriched\n", n)
		return nil
	},
}

func init() {
	approveCmd.Flags().BoolVar(&revoke, "revoke", false, "remove the approval instead")
	rootCmd.AddCommand(approveCmd, discoverCmd, enrichCmd)
}

func runApprove(cmd *cobra.Command, args []string) error {
	kind, uri := args[0], args[1]
	switch kind {
	case "concept":
		c, err := pipeline.Concepts.Approve(cmd.Context(), uri, !revoke)
		if err != nil {
			return err
		}
		cmd.Printf("concept %s approved=%t (%d events)\n", c.URI, c.Approved, len(c.Events))
	case "category":
		c, err := pipeline.Categories.Approve(cmd.Context(), uri, !revoke)
		if err != nil {
			return err
		}
		cmd.Printf("category %s approved=%t (%d events)\n", c.URI, c.Approved, len(c.Events))
	default:
		return fmt.Errorf("unknown kind %q: want concept or category", kind)
	}
	return nil
}

func runDiscover(cmd *cobra.Command, args []string) error {
	labels, err := readLabels(args[0])
	if err != nil {
		return err
	}
	found, missing, err := pipeline.Discover(cmd.Context(), labels)
	if err != nil {
		return err
	}
	for _, c := range found {
		cmd.Printf("  %-14s %s\n", c.Category, c.URI)
	}
	cmd.Printf("%d concepts registered\n", len(found))
	if len(missing) > 0 {
		cmd.Printf("not found: %s\n", strings.Join(missing, ", "))
	}
	return nil
}

func readLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var labels []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		labels = append(labels, line)
	}
	return labels, sc.Err()
}

func printReport(cmd *cobra.Command, posted []model.Post, skipped, failed []string) {
	for _, p := range posted {
		cmd.Printf("posted  %6.1f  %s  %s\n", p.Score, p.Event.URI, p.Event.EnglishTitle())
	}
	for _, uri := range skipped {
		cmd.Printf("skipped %s (nothing new)\n", uri)
	}
	for _, uri := range failed {
		cmd.Printf("failed  %s\n", uri)
	}
	cmd.Printf("%d posted, %d skipped, %d failed\n", len(posted), len(skipped), len(failed))
}
