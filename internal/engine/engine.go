// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package engine wires the generator, dispatcher, merger, expansion
// controller, citation explorer, session store, and commit gateway into the
// caller-facing search orchestration surface.
// Implements: prd010-orchestration (R6.1-R6.7);
//
//	docs/ARCHITECTURE § Engine.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pdiddy/litsearch/internal/citegraph"
	"github.com/pdiddy/litsearch/internal/dispatch"
	"github.com/pdiddy/litsearch/internal/expand"
	"github.com/pdiddy/litsearch/internal/gateway"
	"github.com/pdiddy/litsearch/internal/generate"
	"github.com/pdiddy/litsearch/internal/merge"
	"github.com/pdiddy/litsearch/internal/provider"
	"github.com/pdiddy/litsearch/internal/session"
	"github.com/pdiddy/litsearch/pkg/types"
)

// SearchProvider is the slice of the provider the engine needs: query
// execution for the dispatcher and canonical refetch for the gateway.
type SearchProvider interface {
	Search(ctx context.Context, query types.Query) ([]string, error)
	Fetch(ctx context.Context, identifier string) (*types.CommitPayload, error)
}

// Engine orchestrates one working session.
type Engine struct {
	cfg        types.EngineConfig
	store      *session.Store
	dispatcher *dispatch.Dispatcher
	explorer   *citegraph.Explorer
	gateway    *gateway.Gateway
	log        zerolog.Logger
}

// New builds an engine over the given provider clients. gw may be nil when
// the caller never commits (e.g. read-only exploration sessions).
func New(cfg types.EngineConfig, search SearchProvider, graph citegraph.GraphClient, gw *gateway.Gateway, log zerolog.Logger) (*Engine, error) {
	cfg = cfg.WithDefaults()
	store := session.New()

	dispatcher, err := dispatch.New(search, store, cfg.Dispatch, log)
	if err != nil {
		return nil, err
	}

	explorer, err := citegraph.New(graph, store, cfg.Dispatch.Workers, log)
	if err != nil {
		dispatcher.Close()
		return nil, err
	}

	return &Engine{
		cfg:        cfg,
		store:      store,
		dispatcher: dispatcher,
		explorer:   explorer,
		gateway:    gw,
		log:        log,
	}, nil
}

// NewDefault builds an engine with live provider clients.
func NewDefault(cfg types.EngineConfig, gw *gateway.Gateway, log zerolog.Logger) (*Engine, error) {
	cfg = cfg.WithDefaults()
	return New(cfg, provider.NewSearchClient(cfg.Provider), provider.NewMetricsClient(cfg.Provider), gw, log)
}

// Close releases the worker pools.
func (e *Engine) Close() {
	e.dispatcher.Close()
	e.explorer.Close()
}

// Session exposes the append-only session log for indexed retrieval.
func (e *Engine) Session() *session.Store {
	return e.store
}

// Generate produces a query batch for the topic, biased by decision when
// the expansion controller supplies one.
func (e *Engine) Generate(topic generate.Topic, decision *types.ExpansionDecision) ([]types.Query, error) {
	return generate.Generate(topic, decision)
}

// Dispatch executes a query batch and records it in the session.
func (e *Engine) Dispatch(ctx context.Context, queries []types.Query) ([]types.RawResult, []types.QueryFailure, error) {
	return e.dispatcher.Dispatch(ctx, queries)
}

// Merge computes a snapshot over the session's cumulative raw results.
func (e *Engine) Merge() *types.MergeSnapshot {
	return merge.Merge(e.store)
}

// Explore walks the citation network around the seeds and folds the derived
// lists into the session for the next merge.
func (e *Engine) Explore(ctx context.Context, seeds []string) ([]types.RawResult, error) {
	return e.explorer.Explore(ctx, seeds)
}

// Commit persists an identifier through the trust-tiered gateway.
func (e *Engine) Commit(ctx context.Context, identifier, annotation string, fallback *types.CommitPayload) (*types.CommitRecord, error) {
	if e.gateway == nil {
		return nil, fmt.Errorf("no commit gateway configured")
	}
	return e.gateway.Commit(ctx, identifier, annotation, fallback)
}

// LoopResult is the terminal outcome of an expansion loop. It reports how
// many queries succeeded and failed and whether the loop converged, so the
// caller can accept a partial result or retry with different input.
type LoopResult struct {
	Snapshot   *types.MergeSnapshot
	Converged  bool
	Iterations int
	Succeeded  int
	Failed     int
	Decisions  []types.ExpansionDecision
}

// RunExpansionLoop generates seed queries for the topic, dispatches them,
// and expands or narrows the query set until the merged candidate count
// lands inside the configured targets or the iteration budget runs out.
// The loop checks ctx between iterations; the dispatcher drains in-flight
// queries first so every completed raw result is recorded.
func (e *Engine) RunExpansionLoop(ctx context.Context, topic generate.Topic) (*LoopResult, error) {
	queries, err := generate.Generate(topic, nil)
	if err != nil {
		return nil, err
	}

	controller := expand.New(e.cfg.Expansion)
	result := &LoopResult{}
	var best *types.MergeSnapshot

	for {
		raw, failures, err := e.dispatcher.Dispatch(ctx, queries)
		if err != nil {
			return result, err
		}
		result.Succeeded += len(raw)
		result.Failed += len(failures)

		snap := merge.Merge(e.store)
		best = better(best, snap, e.cfg.Expansion)
		result.Snapshot = best

		state, decision := controller.Evaluate(snap)
		result.Iterations = controller.Iterations()

		switch state {
		case expand.StateConverged:
			result.Snapshot = snap
			result.Converged = true
			e.log.Info().Int("candidates", len(snap.Candidates)).
				Int("iterations", result.Iterations).Msg("expansion converged")
			return result, nil

		case expand.StateExhausted:
			e.log.Warn().Int("candidates", len(best.Candidates)).
				Int("iterations", result.Iterations).Msg("expansion exhausted before convergence")
			return result, nil
		}

		// Cooperative cancellation checkpoint between iterations.
		if err := ctx.Err(); err != nil {
			return result, err
		}

		result.Decisions = append(result.Decisions, *decision)
		e.log.Info().Str("policy", string(decision.Policy)).Str("reason", decision.Reason).Msg("expanding")

		queries, err = generate.Generate(topic, decision)
		for errors.Is(err, generate.ErrPolicyUnproductive) {
			// The policy produced nothing for this topic. Ask the controller
			// for the next untried remedy instead of stopping early.
			e.log.Warn().Str("policy", string(decision.Policy)).Msg("policy yielded no queries, trying the next")
			_, decision = controller.Evaluate(snap)
			result.Iterations = controller.Iterations()
			if decision == nil {
				return result, nil
			}
			result.Decisions = append(result.Decisions, *decision)
			queries, err = generate.Generate(topic, decision)
		}
		if err != nil {
			return result, fmt.Errorf("generating %s queries: %w", decision.Policy, err)
		}
	}
}

// better prefers the snapshot whose candidate count is closest to the
// target band; within the band, the later snapshot wins (more evidence).
func better(a, b *types.MergeSnapshot, cfg types.ExpansionConfig) *types.MergeSnapshot {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	da := distance(len(a.Candidates), cfg)
	db := distance(len(b.Candidates), cfg)
	if db <= da {
		return b
	}
	return a
}

func distance(count int, cfg types.ExpansionConfig) int {
	switch {
	case count < cfg.FloorCandidates:
		return cfg.FloorCandidates - count
	case count > cfg.CeilingCandidates:
		return count - cfg.CeilingCandidates
	default:
		return 0
	}
}
