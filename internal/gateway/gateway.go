// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/litsearch/internal/identify"
	"github.com/pdiddy/litsearch/pkg/types"
)

// Fetcher retrieves the canonical record for an identifier from the
// authoritative provider. provider.SearchClient implements it.
type Fetcher interface {
	Fetch(ctx context.Context, identifier string) (*types.CommitPayload, error)
}

// Gateway is the boundary across which candidates are persisted.
type Gateway struct {
	store   *Store
	fetcher Fetcher
	log     zerolog.Logger
}

// New builds a gateway over store and fetcher.
func New(store *Store, fetcher Fetcher, log zerolog.Logger) *Gateway {
	return &Gateway{store: store, fetcher: fetcher, log: log}
}

// Commit persists the identifier. The verified payload is re-fetched from
// the provider at commit time, keyed only by the identifier; cached search
// payloads are never reused for committed fields. When the provider is
// unreachable, a caller-supplied fallback payload is accepted only under
// the explicit fallback flag, written at the agent-note tier, and the
// degradation is logged. Committing an identifier twice refreshes the
// verified payload without touching existing user notes; a fallback commit
// never downgrades an existing verified record.
func (g *Gateway) Commit(ctx context.Context, identifier, annotation string, fallback *types.CommitPayload) (*types.CommitRecord, error) {
	idType, normalized := identify.Classify(identifier)
	if idType == identify.TypeUnknown {
		g.log.Debug().Str("identifier", identifier).Msg("unrecognized identifier format, committing as-is")
	}

	now := time.Now()

	payload, fetchErr := g.fetcher.Fetch(ctx, normalized)
	switch {
	case fetchErr == nil:
		if err := g.store.upsert(ctx, normalized, types.TierVerified, *payload, now); err != nil {
			return nil, err
		}

	case fallback != nil:
		existing, _ := g.store.Get(ctx, normalized)
		if existing != nil && existing.Tier == types.TierVerified {
			return nil, fmt.Errorf("provider unreachable and %s already has a verified record; refusing fallback downgrade: %w", normalized, fetchErr)
		}
		g.log.Warn().Str("identifier", normalized).Err(fetchErr).
			Msg("commit fallback used: provider unreachable, accepting caller payload at agent-note tier")
		if err := g.store.upsert(ctx, normalized, types.TierAgentNote, *fallback, now); err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("fetching canonical record for %s: %w", normalized, fetchErr)
	}

	if annotation != "" {
		if err := g.store.appendNote(ctx, normalized, annotation, now); err != nil {
			return nil, err
		}
	}

	return g.store.Get(ctx, normalized)
}

// AttachUserNote appends a user note to an existing commit record. The
// gateway never generates or edits note content.
func (g *Gateway) AttachUserNote(ctx context.Context, identifier, note string) error {
	_, normalized := identify.Classify(identifier)

	exists, err := g.store.Exists(ctx, normalized)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("no commit record for %s", normalized)
	}
	return g.store.appendNote(ctx, normalized, note, time.Now())
}

// Exists reports whether identifier has been committed.
func (g *Gateway) Exists(ctx context.Context, identifier string) (bool, error) {
	_, normalized := identify.Classify(identifier)
	return g.store.Exists(ctx, normalized)
}

// Get returns the commit record for identifier.
func (g *Gateway) Get(ctx context.Context, identifier string) (*types.CommitRecord, error) {
	_, normalized := identify.Classify(identifier)
	return g.store.Get(ctx, normalized)
}
