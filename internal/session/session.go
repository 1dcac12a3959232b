// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package session holds the append-only log of all searches in the current
// working session, for replay and indexed retrieval without re-querying.
// Implements: prd011-session (R1-R4);
//
//	docs/ARCHITECTURE § Session Store.
package session

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pdiddy/litsearch/pkg/types"
)

// Entry is one step of the session: the queries issued in a batch, the raw
// results and failures they produced, and the merge snapshot computed
// afterwards (nil until a merge runs for that entry).
type Entry struct {
	Queries    []types.Query        `json:"queries" yaml:"queries"`
	RawResults []types.RawResult    `json:"raw_results" yaml:"raw_results"`
	Failures   []types.QueryFailure `json:"failures,omitempty" yaml:"failures,omitempty"`
	Snapshot   *types.MergeSnapshot `json:"snapshot,omitempty" yaml:"snapshot,omitempty"`
}

// Store is the in-memory session log. Entries are only ever appended within
// a session; a new session replaces the store wholesale. Appends are
// serialized by a mutex so concurrent dispatcher completions are never lost.
type Store struct {
	mu      sync.RWMutex
	entries []Entry

	// metrics holds external impact scores recorded by the citation
	// explorer, folded into candidates on the next merge.
	metrics map[string]float64
}

// New returns an empty session store.
func New() *Store {
	return &Store{metrics: make(map[string]float64)}
}

// Append adds an entry to the log and returns its index.
func (s *Store) Append(e Entry) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return len(s.entries) - 1
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Get returns the entry at index. Negative indices count from the end
// (-1 is the most recent entry).
func (s *Store) Get(index int) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := index
	if i < 0 {
		i += len(s.entries)
	}
	if i < 0 || i >= len(s.entries) {
		return Entry{}, fmt.Errorf("session index %d out of range (%d entries)", index, len(s.entries))
	}
	return s.entries[i], nil
}

// Filter returns all entries with at least one query whose text contains
// substr (case-insensitive).
func (s *Store) Filter(substr string) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(substr)
	var matched []Entry
	for _, e := range s.entries {
		for _, q := range e.Queries {
			if strings.Contains(strings.ToLower(q.Text), needle) {
				matched = append(matched, e)
				break
			}
		}
	}
	return matched
}

// Identifiers returns the identifier set from the entry at index, for reuse
// by downstream consumers without re-issuing provider calls.
func (s *Store) Identifiers(index int) ([]string, error) {
	e, err := s.Get(index)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var ids []string
	for _, rr := range e.RawResults {
		for _, id := range rr.Identifiers {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

// RawResults returns the cumulative raw-result set across all entries, in
// append order. Merges always compute over this full set.
func (s *Store) RawResults() []types.RawResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []types.RawResult
	for _, e := range s.entries {
		all = append(all, e.RawResults...)
	}
	return all
}

// Queries returns every query issued so far, in append order.
func (s *Store) Queries() []types.Query {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []types.Query
	for _, e := range s.entries {
		all = append(all, e.Queries...)
	}
	return all
}

// RecordSnapshot stores the snapshot of a merge. It attaches to the most
// recent entry when that entry has none yet (the usual dispatch-then-merge
// step); otherwise it appends a snapshot-only entry, keeping prior
// snapshots untouched. Returns the index of the entry holding the snapshot.
func (s *Store) RecordSnapshot(snap *types.MergeSnapshot) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	last := len(s.entries) - 1
	if last >= 0 && s.entries[last].Snapshot == nil {
		s.entries[last].Snapshot = snap
		return last
	}
	s.entries = append(s.entries, Entry{Snapshot: snap})
	return len(s.entries) - 1
}

// RecordMetric stores an external impact score for an identifier. The next
// merge attaches it to the matching candidate.
func (s *Store) RecordMetric(identifier string, score float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics[identifier] = score
}

// Metric returns the recorded impact score for identifier, if any.
func (s *Store) Metric(identifier string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.metrics[identifier]
	return v, ok
}

// Reset discards the log and metrics wholesale, starting a new session.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.metrics = make(map[string]float64)
}
