// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/litsearch/internal/gateway"
	"github.com/pdiddy/litsearch/internal/provider"
	"github.com/pdiddy/litsearch/pkg/types"
)

var commitCmd = &cobra.Command{
	Use:   "commit [identifier]",
	Short: "Persist a candidate through the trust-tiered gateway",
	Long: `Commit re-fetches the canonical record for the identifier from the
authoritative provider and persists it at the verified tier. When the
provider is unreachable, --fallback-title (with the other fallback flags)
supplies a payload that is accepted at the agent-note tier instead; the
degradation is logged, never silent.

Re-committing an identifier refreshes the verified payload. User notes
attached with --note are append-only and survive every refresh.`,
	Args: cobra.ExactArgs(1),
	RunE: runCommit,
}

func runCommit(cmd *cobra.Command, args []string) error {
	cfg := engineConfig()

	store, err := gateway.NewStore(cfg.Gateway)
	if err != nil {
		return err
	}
	defer store.Close()

	gw := gateway.New(store, provider.NewSearchClient(cfg.Provider), logger)

	annotation, _ := cmd.Flags().GetString("note")

	var fallback *types.CommitPayload
	if title, _ := cmd.Flags().GetString("fallback-title"); title != "" {
		authors, _ := cmd.Flags().GetString("fallback-authors")
		year, _ := cmd.Flags().GetInt("fallback-year")
		fallback = &types.CommitPayload{
			Title:  title,
			Year:   year,
			Source: "caller",
		}
		if authors != "" {
			fallback.Authors = strings.Split(authors, ",")
		}
	}

	record, err := gw.Commit(cmd.Context(), args[0], annotation, fallback)
	if err != nil {
		return err
	}

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(record)
	}

	fmt.Fprintf(os.Stdout, "committed %s (%s tier)\n", record.Identifier, record.Tier)
	if record.Payload.Title != "" {
		fmt.Fprintf(os.Stdout, "  %s (%d)\n", record.Payload.Title, record.Payload.Year)
	}
	if len(record.UserNotes) > 0 {
		fmt.Fprintf(os.Stdout, "  %d user note(s)\n", len(record.UserNotes))
	}
	return nil
}

func init() {
	commitCmd.Flags().String("note", "", "attach a user note to the record")
	commitCmd.Flags().String("fallback-title", "", "fallback payload title, accepted only when the provider is unreachable")
	commitCmd.Flags().String("fallback-authors", "", "fallback payload authors (comma-separated)")
	commitCmd.Flags().Int("fallback-year", 0, "fallback payload publication year")
	commitCmd.Flags().Bool("json", false, "output the commit record as JSON")

	rootCmd.AddCommand(commitCmd)
}
