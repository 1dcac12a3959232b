// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package merge

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/litsearch/pkg/types"
)

// FormatTable writes a snapshot as a human-readable table to w.
func FormatTable(snap *types.MergeSnapshot, w io.Writer) {
	if len(snap.Candidates) == 0 {
		fmt.Fprintln(w, "No candidates.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-40s  %-4s  %-10s  %s\n",
		"Rank", "Identifier", "Hits", "Confidence", "Impact")
	fmt.Fprintln(w, strings.Repeat("-", 72))

	for i, c := range snap.Candidates {
		id := c.Identifier
		if len(id) > 40 {
			id = id[:37] + "..."
		}
		impact := ""
		if c.ExternalMetric != nil {
			impact = fmt.Sprintf("%.2f", *c.ExternalMetric)
		}
		fmt.Fprintf(w, "%-4d  %-40s  %-4d  %-10.3f  %s\n",
			i+1, id, c.HitCount, c.Confidence, impact)
	}

	fmt.Fprintf(w, "\n%d candidates from %d queries\n", len(snap.Candidates), snap.TotalQueries)
}

// FormatJSON writes a snapshot as indented JSON to w.
func FormatJSON(snap *types.MergeSnapshot, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}
