// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package merge combines raw provider results into a single ranked,
// deduplicated candidate set with cross-query confidence scoring.
// Implements: prd010-orchestration (R3.1-R3.6);
//
//	docs/ARCHITECTURE § Merger.
package merge

import (
	"sort"

	"github.com/pdiddy/litsearch/internal/session"
	"github.com/pdiddy/litsearch/pkg/types"
)

// Merge computes a snapshot over the session's cumulative raw-result set and
// records it in the session. Identical cumulative input always yields
// identical candidate ordering.
func Merge(store *session.Store) *types.MergeSnapshot {
	raw := store.RawResults()
	candidates := Combine(raw)

	for i := range candidates {
		if score, ok := store.Metric(candidates[i].Identifier); ok {
			s := score
			candidates[i].ExternalMetric = &s
		}
	}

	snap := &types.MergeSnapshot{
		Candidates:   candidates,
		TotalQueries: countQueries(raw),
	}
	snap.SessionIndex = store.RecordSnapshot(snap)
	return snap
}

// Combine groups identifiers across raw results and scores each candidate.
// The input order does not affect the output: candidates are sorted by
// confidence descending with identifier lexical order breaking ties.
func Combine(raw []types.RawResult) []types.Candidate {
	type evidence struct {
		queryIDs map[string]bool
		ranks    []int
	}

	byID := make(map[string]*evidence)
	for _, rr := range raw {
		for rank, id := range rr.Identifiers {
			ev, ok := byID[id]
			if !ok {
				ev = &evidence{queryIDs: make(map[string]bool)}
				byID[id] = ev
			}
			// A query contributes at most once per identifier; repeated
			// batches of the same query keep the first-seen rank.
			if ev.queryIDs[rr.QueryID] {
				continue
			}
			ev.queryIDs[rr.QueryID] = true
			ev.ranks = append(ev.ranks, rank)
		}
	}

	candidates := make([]types.Candidate, 0, len(byID))
	for id, ev := range byID {
		queryIDs := make([]string, 0, len(ev.queryIDs))
		for qid := range ev.queryIDs {
			queryIDs = append(queryIDs, qid)
		}
		sort.Strings(queryIDs)
		sort.Ints(ev.ranks)

		candidates = append(candidates, types.Candidate{
			Identifier: id,
			QueryIDs:   queryIDs,
			HitCount:   len(queryIDs),
			Ranks:      ev.ranks,
			Confidence: confidence(len(queryIDs), ev.ranks),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		return candidates[i].Identifier < candidates[j].Identifier
	})
	return candidates
}

// confidence scores a candidate as hitCount + 1/(1+avgRank) with zero-based
// ranks. The integer part is the hit count, so an identifier found by k+1
// queries always outranks one found by k regardless of rank; within equal
// hit counts the better (lower) average provider rank wins.
func confidence(hitCount int, ranks []int) float64 {
	if hitCount == 0 {
		return 0
	}
	sum := 0
	for _, r := range ranks {
		sum += r
	}
	avg := float64(sum) / float64(len(ranks))
	return float64(hitCount) + 1.0/(1.0+avg)
}

// SortByImpact reorders candidates by ExternalMetric descending. Candidates
// without a metric sort after those with one, by confidence. The input is
// not modified.
func SortByImpact(candidates []types.Candidate) []types.Candidate {
	out := make([]types.Candidate, len(candidates))
	copy(out, candidates)

	sort.SliceStable(out, func(i, j int) bool {
		mi, mj := out[i].ExternalMetric, out[j].ExternalMetric
		switch {
		case mi != nil && mj != nil:
			if *mi != *mj {
				return *mi > *mj
			}
			return out[i].Identifier < out[j].Identifier
		case mi != nil:
			return true
		case mj != nil:
			return false
		default:
			return false
		}
	})
	return out
}

func countQueries(raw []types.RawResult) int {
	seen := make(map[string]bool)
	for _, rr := range raw {
		seen[rr.QueryID] = true
	}
	return len(seen)
}
