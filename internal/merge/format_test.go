// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package merge

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/pdiddy/litsearch/pkg/types"
)

func TestFormatTable(t *testing.T) {
	impact := 4.5
	snap := &types.MergeSnapshot{
		TotalQueries: 6,
		Candidates: []types.Candidate{
			{Identifier: "10.1234/abc", HitCount: 3, Confidence: 3.5, ExternalMetric: &impact},
			{Identifier: "10.1234/def", HitCount: 1, Confidence: 1.2},
		},
	}

	var sb strings.Builder
	FormatTable(snap, &sb)
	out := sb.String()

	for _, want := range []string{"10.1234/abc", "4.50", "2 candidates from 6 queries"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatTableEmpty(t *testing.T) {
	var sb strings.Builder
	FormatTable(&types.MergeSnapshot{}, &sb)
	if !strings.Contains(sb.String(), "No candidates.") {
		t.Errorf("empty table output = %q", sb.String())
	}
}

func TestFormatJSON(t *testing.T) {
	snap := &types.MergeSnapshot{
		TotalQueries: 2,
		Candidates:   []types.Candidate{{Identifier: "10.1234/abc", HitCount: 2, Confidence: 2.5}},
	}

	var sb strings.Builder
	if err := FormatJSON(snap, &sb); err != nil {
		t.Fatalf("FormatJSON: %v", err)
	}

	var decoded types.MergeSnapshot
	if err := json.Unmarshal([]byte(sb.String()), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded.Candidates) != 1 || decoded.Candidates[0].Identifier != "10.1234/abc" {
		t.Errorf("decoded = %+v", decoded)
	}
}
