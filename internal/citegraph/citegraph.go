// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package citegraph expands a candidate set along the citation network:
// items citing a seed, items cited by a seed, and items the provider judges
// related. Each derived list is folded back into the session as a synthetic
// raw result so the next merge weighs it like any other query evidence.
// Implements: prd010-orchestration (R5.1-R5.4);
//
//	docs/ARCHITECTURE § Citation Explorer.
package citegraph

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"

	"github.com/pdiddy/litsearch/internal/provider"
	"github.com/pdiddy/litsearch/internal/session"
	"github.com/pdiddy/litsearch/pkg/types"
)

// GraphClient fetches citation edges and impact metrics.
// provider.MetricsClient implements it; tests substitute fakes.
type GraphClient interface {
	Citations(ctx context.Context, id string) ([]string, error)
	References(ctx context.Context, id string) ([]string, error)
	Related(ctx context.Context, id string) ([]string, error)
	Lookup(ctx context.Context, ids []string) (map[string]provider.CitationMetrics, error)
}

// edges are fetched in this order; each produces one synthetic raw result.
var edges = []string{"citing", "cited", "related"}

// Explorer walks the citation graph around seed identifiers.
type Explorer struct {
	client GraphClient
	store  *session.Store
	pool   *ants.Pool
	log    zerolog.Logger
}

// New builds an explorer whose per-seed fetches run on a pool of workers
// goroutines.
func New(client GraphClient, store *session.Store, workers int, log zerolog.Logger) (*Explorer, error) {
	if workers <= 0 {
		workers = 4
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("creating worker pool: %w", err)
	}
	return &Explorer{client: client, store: store, pool: pool, log: log}, nil
}

// Close releases the worker pool.
func (e *Explorer) Close() {
	e.pool.Release()
}

// Explore fetches the citing, cited, and related identifier lists for the
// seeds, wraps each list as a synthetic raw result with a citation-origin
// query, and appends them to the session. It then records an impact metric
// per discovered identifier for the next merge. Individual seed failures
// are logged and skipped; Explore fails only when nothing could be fetched.
func (e *Explorer) Explore(ctx context.Context, seeds []string) ([]types.RawResult, error) {
	if len(seeds) == 0 {
		return nil, fmt.Errorf("no seed identifiers")
	}

	// fetched[edge][seedIndex] keeps provider order per seed; flattening in
	// seed order makes the synthetic results deterministic regardless of
	// completion order.
	fetched := make(map[string][][]string, len(edges))
	for _, edge := range edges {
		fetched[edge] = make([][]string, len(seeds))
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		failures int
	)

	for i, seed := range seeds {
		for _, edge := range edges {
			i, seed, edge := i, seed, edge
			wg.Add(1)
			err := e.pool.Submit(func() {
				defer wg.Done()

				ids, err := e.fetchEdge(ctx, edge, seed)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					failures++
					e.log.Warn().Str("seed", seed).Str("edge", edge).Err(err).Msg("citation fetch failed")
					return
				}
				fetched[edge][i] = ids
			})
			if err != nil {
				wg.Done()
				mu.Lock()
				failures++
				mu.Unlock()
			}
		}
	}
	wg.Wait()

	var (
		queries []types.Query
		results []types.RawResult
	)
	for _, edge := range edges {
		ids := flatten(fetched[edge])
		if len(ids) == 0 {
			continue
		}
		q := syntheticQuery(edge, seeds)
		queries = append(queries, q)
		results = append(results, types.RawResult{
			QueryID:     q.ID,
			Identifiers: ids,
			FetchedAt:   time.Now().UTC(),
		})
	}

	if len(results) == 0 {
		return nil, fmt.Errorf("citation exploration produced no results (%d fetch failures)", failures)
	}

	e.store.Append(session.Entry{Queries: queries, RawResults: results})

	e.recordMetrics(ctx, seeds, results)

	return results, nil
}

// fetchEdge dispatches to the client method for one edge kind.
func (e *Explorer) fetchEdge(ctx context.Context, edge, seed string) ([]string, error) {
	switch edge {
	case "citing":
		return e.client.Citations(ctx, seed)
	case "cited":
		return e.client.References(ctx, seed)
	default:
		return e.client.Related(ctx, seed)
	}
}

// recordMetrics looks up impact scores for the seeds and every discovered
// identifier and stores them in the session. Metric failures are logged,
// never fatal: metrics are a secondary sort key, not evidence.
func (e *Explorer) recordMetrics(ctx context.Context, seeds []string, results []types.RawResult) {
	seen := make(map[string]bool)
	var ids []string
	for _, id := range seeds {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, rr := range results {
		for _, id := range rr.Identifiers {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}

	metrics, err := e.client.Lookup(ctx, ids)
	if err != nil {
		e.log.Warn().Err(err).Msg("impact metric lookup failed")
		return
	}
	for id, m := range metrics {
		e.store.RecordMetric(id, m.ImpactScore)
	}
}

// syntheticQuery tags a derived identifier list with its provenance.
func syntheticQuery(edge string, seeds []string) types.Query {
	return types.Query{
		ID:     uuid.NewString(),
		Text:   fmt.Sprintf("citation:%s %s", edge, strings.Join(seeds, " ")),
		Origin: types.OriginCitation,
		Slots:  []string{"citation:" + edge},
	}
}

// flatten concatenates per-seed lists in seed order, deduplicating while
// preserving first-seen rank.
func flatten(perSeed [][]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, ids := range perSeed {
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}
