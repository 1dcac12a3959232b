// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dispatch executes query batches concurrently against the search
// provider with per-query timeouts and bounded retries. Partial success is
// the normal case: a query that exhausts retries is recorded as failed
// without aborting the batch.
// Implements: prd010-orchestration (R2.1-R2.6);
//
//	docs/ARCHITECTURE § Dispatcher.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"

	"github.com/pdiddy/litsearch/internal/provider"
	"github.com/pdiddy/litsearch/internal/session"
	"github.com/pdiddy/litsearch/pkg/types"
)

// Searcher executes a single query against the provider.
// provider.SearchClient implements it; tests substitute fakes.
type Searcher interface {
	Search(ctx context.Context, query types.Query) ([]string, error)
}

// Dispatcher fans query batches out over a bounded worker pool.
type Dispatcher struct {
	searcher Searcher
	store    *session.Store
	pool     *ants.Pool
	cfg      types.DispatchConfig
	log      zerolog.Logger
}

// New builds a dispatcher with a worker pool of cfg.Workers goroutines.
func New(searcher Searcher, store *session.Store, cfg types.DispatchConfig, log zerolog.Logger) (*Dispatcher, error) {
	pool, err := ants.NewPool(cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("creating worker pool: %w", err)
	}
	return &Dispatcher{
		searcher: searcher,
		store:    store,
		pool:     pool,
		cfg:      cfg,
		log:      log,
	}, nil
}

// Close releases the worker pool.
func (d *Dispatcher) Close() {
	d.pool.Release()
}

// Dispatch runs every query in the batch concurrently and appends one
// session entry holding the batch's queries, raw results, and failures
// before returning. In-flight queries are allowed to drain even when ctx is
// cancelled mid-batch, so no completed result goes unrecorded.
func (d *Dispatcher) Dispatch(ctx context.Context, queries []types.Query) ([]types.RawResult, []types.QueryFailure, error) {
	if len(queries) == 0 {
		return nil, nil, fmt.Errorf("empty query batch")
	}

	var (
		mu       sync.Mutex
		results  []types.RawResult
		failures []types.QueryFailure
		wg       sync.WaitGroup
	)

	record := func(rr *types.RawResult, qf *types.QueryFailure) {
		mu.Lock()
		defer mu.Unlock()
		if rr != nil {
			results = append(results, *rr)
		}
		if qf != nil {
			failures = append(failures, *qf)
		}
	}

	for _, q := range queries {
		q := q
		wg.Add(1)
		err := d.pool.Submit(func() {
			defer wg.Done()

			ids, err := d.searchWithRetry(ctx, q)
			if err != nil {
				d.log.Warn().Str("query_id", q.ID).Str("text", q.Text).Err(err).Msg("query failed")
				record(nil, &types.QueryFailure{QueryID: q.ID, Reason: err.Error()})
				return
			}
			d.log.Debug().Str("query_id", q.ID).Int("results", len(ids)).Msg("query succeeded")
			record(&types.RawResult{QueryID: q.ID, Identifiers: ids, FetchedAt: time.Now().UTC()}, nil)
		})
		if err != nil {
			wg.Done()
			record(nil, &types.QueryFailure{QueryID: q.ID, Reason: fmt.Sprintf("submitting to pool: %v", err)})
		}
	}

	wg.Wait()

	d.store.Append(session.Entry{
		Queries:    queries,
		RawResults: results,
		Failures:   failures,
	})

	return results, failures, nil
}

// searchWithRetry executes one query with a per-call timeout, retrying
// transient provider failures with exponential backoff. Permanent provider
// errors fail immediately. Each attempt runs on a timeout-only context, so a
// batch cancellation drains the in-flight call instead of hard-killing it;
// cancellation is honored between attempts by the retry loop.
func (d *Dispatcher) searchWithRetry(ctx context.Context, q types.Query) ([]string, error) {
	var ids []string

	op := func() error {
		qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.cfg.QueryTimeout)
		defer cancel()

		got, err := d.searcher.Search(qctx, q)
		if err != nil {
			if provider.IsTransient(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		ids = got
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = d.cfg.RetryBaseDelay
	bo.MaxElapsedTime = 0

	err := backoff.Retry(op, backoff.WithContext(
		backoff.WithMaxRetries(bo, uint64(d.cfg.MaxRetries)), ctx))
	if err != nil {
		return nil, err
	}
	return ids, nil
}
