// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/litsearch/internal/session"
)

var sessionCmd = &cobra.Command{
	Use:   "session [log-file]",
	Short: "Inspect a saved session log",
	Long: `Session replays a session log saved with 'search --save-session'. Entries
are retrieved by absolute or negative index (-1 is the most recent) or
filtered by query-text substring, without re-issuing provider calls.

Use --ids to print the identifier set of the selected entry for reuse by
downstream tooling.`,
	Args: cobra.ExactArgs(1),
	RunE: runSession,
}

func runSession(cmd *cobra.Command, args []string) error {
	store, err := session.ReadFile(args[0])
	if err != nil {
		return err
	}

	if filter, _ := cmd.Flags().GetString("filter"); filter != "" {
		entries := store.Filter(filter)
		if len(entries) == 0 {
			fmt.Println("No entries match.")
			return nil
		}
		return printEntries(cmd, entries)
	}

	index, _ := cmd.Flags().GetInt("index")

	if ids, _ := cmd.Flags().GetBool("ids"); ids {
		identifiers, err := store.Identifiers(index)
		if err != nil {
			return err
		}
		for _, id := range identifiers {
			fmt.Println(id)
		}
		return nil
	}

	entry, err := store.Get(index)
	if err != nil {
		return err
	}
	return printEntries(cmd, []session.Entry{entry})
}

func printEntries(cmd *cobra.Command, entries []session.Entry) error {
	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	for i, e := range entries {
		var texts []string
		for _, q := range e.Queries {
			texts = append(texts, q.Text)
		}
		total := 0
		for _, rr := range e.RawResults {
			total += len(rr.Identifiers)
		}
		fmt.Fprintf(os.Stdout, "entry %d: %d queries (%s), %d raw identifiers, %d failures",
			i, len(e.Queries), strings.Join(texts, "; "), total, len(e.Failures))
		if e.Snapshot != nil {
			fmt.Fprintf(os.Stdout, ", snapshot with %d candidates", len(e.Snapshot.Candidates))
		}
		fmt.Fprintln(os.Stdout)
	}
	return nil
}

func init() {
	sessionCmd.Flags().Int("index", -1, "entry index (-1 is the most recent)")
	sessionCmd.Flags().String("filter", "", "select entries whose query text contains this substring")
	sessionCmd.Flags().Bool("ids", false, "print the identifier set of the selected entry")
	sessionCmd.Flags().Bool("json", false, "output entries as JSON")

	rootCmd.AddCommand(sessionCmd)
}
