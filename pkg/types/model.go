// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the litsearch engine.
// Implements: prd010-orchestration (Query, RawResult, Candidate, MergeSnapshot);
//
//	prd011-session (SessionEntry);
//	prd012-commit (CommitRecord).
//
// See docs/ARCHITECTURE.md § Data Model.
package types

import "time"

// OriginPolicy identifies how a query came to be issued: the initial seed
// generation, one of the expansion policies, or the citation explorer.
type OriginPolicy string

const (
	OriginSeed     OriginPolicy = "seed"
	OriginBroaden  OriginPolicy = "broaden"
	OriginNarrow   OriginPolicy = "narrow"
	OriginLateral  OriginPolicy = "lateral"
	OriginTemporal OriginPolicy = "temporal"
	OriginCitation OriginPolicy = "citation"
)

// QueryFilters narrows a provider search. Zero values mean "no restriction".
type QueryFilters struct {
	// MinYear and MaxYear bound the publication year range (inclusive).
	MinYear int `json:"min_year,omitempty" yaml:"min_year,omitempty"`
	MaxYear int `json:"max_year,omitempty" yaml:"max_year,omitempty"`

	// ArticleTypes restricts results to the given provider article types
	// (e.g. "journal-article", "review").
	ArticleTypes []string `json:"article_types,omitempty" yaml:"article_types,omitempty"`

	// Exclusions lists terms the provider should exclude from matches.
	Exclusions []string `json:"exclusions,omitempty" yaml:"exclusions,omitempty"`
}

// Query is a single provider search request. Immutable once issued.
type Query struct {
	// ID uniquely identifies the query within a session.
	ID string `json:"id" yaml:"id"`

	// Text is the provider search string.
	Text string `json:"text" yaml:"text"`

	// Filters narrows the search.
	Filters QueryFilters `json:"filters" yaml:"filters"`

	// Origin records which policy produced this query.
	Origin OriginPolicy `json:"origin" yaml:"origin"`

	// Slots names the decomposition slots or synonym expansions that
	// contributed to the query text (e.g. "population", "synonym:efficacy").
	Slots []string `json:"slots,omitempty" yaml:"slots,omitempty"`
}

// RawResult is the ordered identifier list one successful query returned.
// Immutable.
type RawResult struct {
	// QueryID links back to the Query that produced this result.
	QueryID string `json:"query_id" yaml:"query_id"`

	// Identifiers are in provider rank order, best first.
	Identifiers []string `json:"identifiers" yaml:"identifiers"`

	// FetchedAt is when the provider responded.
	FetchedAt time.Time `json:"fetched_at" yaml:"fetched_at"`
}

// QueryFailure records a query that exhausted retries or was rejected.
type QueryFailure struct {
	QueryID string `json:"query_id" yaml:"query_id"`
	Reason  string `json:"reason" yaml:"reason"`
}

// Candidate is a deduplicated identifier with aggregated cross-query
// evidence. Recomputed on every merge; at most one Candidate per identifier
// within a snapshot.
type Candidate struct {
	// Identifier is the natural key (DOI, arXiv ID, or provider work ID).
	Identifier string `json:"identifier" yaml:"identifier"`

	// QueryIDs lists the distinct queries that found this identifier.
	QueryIDs []string `json:"query_ids" yaml:"query_ids"`

	// HitCount is len(QueryIDs).
	HitCount int `json:"hit_count" yaml:"hit_count"`

	// Ranks holds the zero-based provider rank from each contributing query.
	Ranks []int `json:"ranks" yaml:"ranks"`

	// Confidence combines hit count and rank; higher is better. Strictly
	// increasing in HitCount for any ranks.
	Confidence float64 `json:"confidence" yaml:"confidence"`

	// ExternalMetric is an impact score attached by the citation explorer,
	// nil until one has been fetched. It never affects Confidence.
	ExternalMetric *float64 `json:"external_metric,omitempty" yaml:"external_metric,omitempty"`
}

// MergeSnapshot is one merge over the session's cumulative raw results.
// Append-only; a new merge produces a new snapshot.
type MergeSnapshot struct {
	// SessionIndex is the position of the session entry holding this snapshot.
	SessionIndex int `json:"session_index" yaml:"session_index"`

	// Candidates are ordered by Confidence descending, identifier ascending
	// on ties.
	Candidates []Candidate `json:"candidates" yaml:"candidates"`

	// TotalQueries is the number of distinct queries the merge considered.
	TotalQueries int `json:"total_queries" yaml:"total_queries"`
}

// ExpansionDecision records one controller transition and drives the next
// generator call.
type ExpansionDecision struct {
	Policy OriginPolicy `json:"policy" yaml:"policy"`

	// Reason is a human-readable trigger description (e.g. "12 candidates
	// below floor 20").
	Reason string `json:"reason" yaml:"reason"`

	// TriggerSnapshot is the session index of the snapshot that triggered
	// the decision.
	TriggerSnapshot int `json:"trigger_snapshot" yaml:"trigger_snapshot"`
}

// ProvenanceTier classifies how trustworthy a committed record's source is.
type ProvenanceTier string

const (
	// TierVerified marks payloads fetched fresh from the authoritative
	// provider at commit time.
	TierVerified ProvenanceTier = "verified"

	// TierAgentNote marks caller-supplied fallback payloads accepted while
	// the provider was unreachable.
	TierAgentNote ProvenanceTier = "agent_note"

	// TierUserNote marks free-text annotations; never generated or edited
	// by the gateway.
	TierUserNote ProvenanceTier = "user_note"
)

// CommitPayload holds the bibliographic fields persisted for a committed
// identifier.
type CommitPayload struct {
	Title    string   `json:"title" yaml:"title"`
	Authors  []string `json:"authors" yaml:"authors"`
	Year     int      `json:"year" yaml:"year"`
	Abstract string   `json:"abstract" yaml:"abstract"`
	Source   string   `json:"source" yaml:"source"`
}

// CommitRecord is one persisted reference with its provenance tier.
type CommitRecord struct {
	Identifier  string         `json:"identifier" yaml:"identifier"`
	Tier        ProvenanceTier `json:"tier" yaml:"tier"`
	Payload     CommitPayload  `json:"payload" yaml:"payload"`
	UserNotes   []string       `json:"user_notes,omitempty" yaml:"user_notes,omitempty"`
	CommittedAt time.Time      `json:"committed_at" yaml:"committed_at"`
}
