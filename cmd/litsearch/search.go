// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/litsearch/internal/engine"
	"github.com/pdiddy/litsearch/internal/generate"
	"github.com/pdiddy/litsearch/internal/merge"
	"github.com/pdiddy/litsearch/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run the expansion loop for a topic or structured question",
	Long: `Search generates a batch of distinct provider queries from a free-text
topic or PICO slots (population, intervention, comparison, outcome), runs them
concurrently, merges the results into a ranked candidate set, and expands or
narrows the query set until the candidate count lands inside the configured
floor and ceiling, or the iteration budget runs out.

With --explore, the top candidates additionally seed a citation-network walk
whose results fold into a final merge.`,
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	topic := topicFromFlags(cmd)
	if topic.IsEmpty() {
		return generate.ErrEmptyTopic
	}

	cfg := engineConfig()
	applyTargetFlags(cmd, &cfg)

	eng, err := engine.NewDefault(cfg, nil, logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	result, err := eng.RunExpansionLoop(cmd.Context(), topic)
	if err != nil {
		return err
	}

	if explore, _ := cmd.Flags().GetBool("explore"); explore && len(result.Snapshot.Candidates) > 0 {
		seeds := topSeeds(result.Snapshot, cfg.Expansion.SeedTopK)
		if _, err := eng.Explore(cmd.Context(), seeds); err != nil {
			fmt.Fprintf(os.Stderr, "warning: citation exploration failed: %v\n", err)
		} else {
			result.Snapshot = eng.Merge()
		}
	}

	snap := result.Snapshot
	if byImpact, _ := cmd.Flags().GetBool("by-impact"); byImpact {
		reordered := *snap
		reordered.Candidates = merge.SortByImpact(snap.Candidates)
		snap = &reordered
	}

	if saveSession, _ := cmd.Flags().GetString("save-session"); saveSession != "" {
		if err := eng.Session().WriteFile(saveSession); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved session log to %s\n", saveSession)
	}

	if save, _ := cmd.Flags().GetString("save"); save != "" {
		summarized := *result
		summarized.Snapshot = snap
		if err := engine.WriteSnapshotFile(save, topicLabel(topic), &summarized); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved snapshot to %s\n", save)
	}

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		if err := merge.FormatJSON(snap, os.Stdout); err != nil {
			return err
		}
	} else {
		merge.FormatTable(snap, os.Stdout)
	}

	fmt.Fprintf(os.Stdout, "queries: %d succeeded, %d failed; iterations: %d; converged: %v\n",
		result.Succeeded, result.Failed, result.Iterations, result.Converged)
	return nil
}

func topicFromFlags(cmd *cobra.Command) generate.Topic {
	topic := generate.Topic{}
	topic.FreeText, _ = cmd.Flags().GetString("topic")
	topic.Population, _ = cmd.Flags().GetString("population")
	topic.Intervention, _ = cmd.Flags().GetString("intervention")
	topic.Comparison, _ = cmd.Flags().GetString("comparison")
	topic.Outcome, _ = cmd.Flags().GetString("outcome")
	topic.Filters.MinYear, _ = cmd.Flags().GetInt("from-year")
	topic.Filters.MaxYear, _ = cmd.Flags().GetInt("to-year")
	return topic
}

func applyTargetFlags(cmd *cobra.Command, cfg *types.EngineConfig) {
	if v, _ := cmd.Flags().GetInt("floor"); v > 0 {
		cfg.Expansion.FloorCandidates = v
	}
	if v, _ := cmd.Flags().GetInt("ceiling"); v > 0 {
		cfg.Expansion.CeilingCandidates = v
	}
	if v, _ := cmd.Flags().GetInt("max-iterations"); v > 0 {
		cfg.Expansion.MaxIterations = v
	}
}

func topSeeds(snap *types.MergeSnapshot, k int) []string {
	if k > len(snap.Candidates) {
		k = len(snap.Candidates)
	}
	seeds := make([]string, 0, k)
	for _, c := range snap.Candidates[:k] {
		seeds = append(seeds, c.Identifier)
	}
	return seeds
}

func topicLabel(topic generate.Topic) string {
	if topic.FreeText != "" {
		return topic.FreeText
	}
	label := ""
	for _, s := range []string{topic.Population, topic.Intervention, topic.Comparison, topic.Outcome} {
		if s == "" {
			continue
		}
		if label != "" {
			label += " "
		}
		label += s
	}
	return label
}

func init() {
	searchCmd.Flags().String("topic", "", "free-text research question")
	searchCmd.Flags().String("population", "", "PICO population slot")
	searchCmd.Flags().String("intervention", "", "PICO intervention slot")
	searchCmd.Flags().String("comparison", "", "PICO comparison slot")
	searchCmd.Flags().String("outcome", "", "PICO outcome slot")
	searchCmd.Flags().Int("from-year", 0, "earliest publication year")
	searchCmd.Flags().Int("to-year", 0, "latest publication year")
	searchCmd.Flags().Int("floor", 0, "minimum acceptable candidate count")
	searchCmd.Flags().Int("ceiling", 0, "maximum acceptable candidate count")
	searchCmd.Flags().Int("max-iterations", 0, "expansion iteration budget")
	searchCmd.Flags().Bool("explore", false, "walk the citation network around the top candidates")
	searchCmd.Flags().Bool("by-impact", false, "order output by external impact metric instead of confidence")
	searchCmd.Flags().Bool("json", false, "output the snapshot as JSON")
	searchCmd.Flags().String("save", "", "save the snapshot to a YAML file")
	searchCmd.Flags().String("save-session", "", "save the full session log to a YAML file")

	rootCmd.AddCommand(searchCmd)
}
