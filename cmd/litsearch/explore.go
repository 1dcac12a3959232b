// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/litsearch/internal/engine"
	"github.com/pdiddy/litsearch/internal/merge"
)

var exploreCmd = &cobra.Command{
	Use:   "explore [identifier...]",
	Short: "Walk the citation network around seed identifiers",
	Long: `Explore fetches items citing each seed, items each seed cites, and items
the provider judges topically related, merges them into a ranked candidate
set, and attaches an impact metric per candidate.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExplore,
}

func runExplore(cmd *cobra.Command, args []string) error {
	eng, err := engine.NewDefault(engineConfig(), nil, logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	results, err := eng.Explore(cmd.Context(), args)
	if err != nil {
		return err
	}

	snap := eng.Merge()
	if byImpact, _ := cmd.Flags().GetBool("by-impact"); byImpact {
		reordered := *snap
		reordered.Candidates = merge.SortByImpact(snap.Candidates)
		snap = &reordered
	}

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		return merge.FormatJSON(snap, os.Stdout)
	}
	merge.FormatTable(snap, os.Stdout)
	fmt.Fprintf(os.Stdout, "citation lists fetched: %d\n", len(results))
	return nil
}

func init() {
	exploreCmd.Flags().Bool("by-impact", false, "order output by external impact metric instead of confidence")
	exploreCmd.Flags().Bool("json", false, "output the snapshot as JSON")

	rootCmd.AddCommand(exploreCmd)
}
