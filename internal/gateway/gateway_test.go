// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/litsearch/pkg/types"
)

// fakeFetcher serves canned provider payloads, or fails when down.
type fakeFetcher struct {
	payloads map[string]*types.CommitPayload
	down     bool
	fetched  []string
}

func (f *fakeFetcher) Fetch(_ context.Context, identifier string) (*types.CommitPayload, error) {
	f.fetched = append(f.fetched, identifier)
	if f.down {
		return nil, errors.New("provider unreachable")
	}
	p, ok := f.payloads[identifier]
	if !ok {
		return nil, errors.New("HTTP 404")
	}
	return p, nil
}

func canonicalPayload() *types.CommitPayload {
	return &types.CommitPayload{
		Title:    "Drug X in adults",
		Authors:  []string{"Ada Lovelace"},
		Year:     2023,
		Abstract: "Drug X reduces mortality.",
		Source:   "openalex",
	}
}

func newTestGateway(t *testing.T, fetcher Fetcher) *Gateway {
	t.Helper()
	store, err := NewStore(types.GatewayConfig{StoreDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return New(store, fetcher, zerolog.Nop())
}

func TestCommitVerified(t *testing.T) {
	fetcher := &fakeFetcher{payloads: map[string]*types.CommitPayload{
		"10.1234/abc": canonicalPayload(),
	}}
	g := newTestGateway(t, fetcher)

	rec, err := g.Commit(context.Background(), "https://doi.org/10.1234/abc", "", nil)
	require.NoError(t, err)

	assert.Equal(t, "10.1234/abc", rec.Identifier, "identifier normalized before commit")
	assert.Equal(t, types.TierVerified, rec.Tier)
	assert.Equal(t, "Drug X in adults", rec.Payload.Title)
	assert.Equal(t, []string{"Ada Lovelace"}, rec.Payload.Authors)
	assert.False(t, rec.CommittedAt.IsZero())

	// The payload came from a fresh fetch keyed by the normalized identifier.
	require.Len(t, fetcher.fetched, 1)
	assert.Equal(t, "10.1234/abc", fetcher.fetched[0])
}

func TestCommitProviderDownWithoutFallback(t *testing.T) {
	g := newTestGateway(t, &fakeFetcher{down: true})

	_, err := g.Commit(context.Background(), "10.1234/abc", "", nil)
	require.Error(t, err, "no fallback flag means no degraded write")

	exists, err := g.Exists(context.Background(), "10.1234/abc")
	require.NoError(t, err)
	assert.False(t, exists, "nothing persisted on a failed commit")
}

func TestCommitFallbackWritesAgentNoteTier(t *testing.T) {
	g := newTestGateway(t, &fakeFetcher{down: true})

	rec, err := g.Commit(context.Background(), "10.1234/abc", "", canonicalPayload())
	require.NoError(t, err)

	assert.Equal(t, types.TierAgentNote, rec.Tier, "caller payload isolated to the agent-note tier")
	assert.Equal(t, "Drug X in adults", rec.Payload.Title)
}

func TestCommitFallbackNeverDowngradesVerified(t *testing.T) {
	fetcher := &fakeFetcher{payloads: map[string]*types.CommitPayload{
		"10.1234/abc": canonicalPayload(),
	}}
	g := newTestGateway(t, fetcher)

	_, err := g.Commit(context.Background(), "10.1234/abc", "", nil)
	require.NoError(t, err)

	// Provider goes down; a fallback commit must not overwrite the
	// verified record.
	fetcher.down = true
	stale := canonicalPayload()
	stale.Title = "Stale caller copy"
	_, err = g.Commit(context.Background(), "10.1234/abc", "", stale)
	require.Error(t, err)

	rec, err := g.Get(context.Background(), "10.1234/abc")
	require.NoError(t, err)
	assert.Equal(t, types.TierVerified, rec.Tier)
	assert.Equal(t, "Drug X in adults", rec.Payload.Title)
}

func TestCommitRefreshUpgradesAgentNoteToVerified(t *testing.T) {
	fetcher := &fakeFetcher{down: true}
	g := newTestGateway(t, fetcher)

	_, err := g.Commit(context.Background(), "10.1234/abc", "", canonicalPayload())
	require.NoError(t, err)

	// Provider comes back; re-committing refreshes to the verified tier.
	fetcher.down = false
	fetcher.payloads = map[string]*types.CommitPayload{"10.1234/abc": canonicalPayload()}

	rec, err := g.Commit(context.Background(), "10.1234/abc", "", nil)
	require.NoError(t, err)
	assert.Equal(t, types.TierVerified, rec.Tier)
}

func TestCommitRefreshPreservesUserNotes(t *testing.T) {
	fetcher := &fakeFetcher{payloads: map[string]*types.CommitPayload{
		"10.1234/abc": canonicalPayload(),
	}}
	g := newTestGateway(t, fetcher)

	_, err := g.Commit(context.Background(), "10.1234/abc", "", nil)
	require.NoError(t, err)
	require.NoError(t, g.AttachUserNote(context.Background(), "10.1234/abc", "key RCT for section 3"))
	require.NoError(t, g.AttachUserNote(context.Background(), "10.1234/abc", "check dosage table"))

	rec, err := g.Commit(context.Background(), "10.1234/abc", "", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"key RCT for section 3", "check dosage table"}, rec.UserNotes,
		"notes survive payload refreshes in insertion order")
}

func TestCommitWithAnnotation(t *testing.T) {
	fetcher := &fakeFetcher{payloads: map[string]*types.CommitPayload{
		"10.1234/abc": canonicalPayload(),
	}}
	g := newTestGateway(t, fetcher)

	rec, err := g.Commit(context.Background(), "10.1234/abc", "found via citation walk", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"found via citation walk"}, rec.UserNotes)
}

func TestAttachUserNoteRequiresExistingRecord(t *testing.T) {
	g := newTestGateway(t, &fakeFetcher{})
	err := g.AttachUserNote(context.Background(), "10.1234/missing", "orphan note")
	assert.Error(t, err)
}

func TestExists(t *testing.T) {
	fetcher := &fakeFetcher{payloads: map[string]*types.CommitPayload{
		"10.1234/abc": canonicalPayload(),
	}}
	g := newTestGateway(t, fetcher)

	exists, err := g.Exists(context.Background(), "10.1234/abc")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = g.Commit(context.Background(), "10.1234/abc", "", nil)
	require.NoError(t, err)

	// Any spelling of the identifier resolves to the same record.
	exists, err = g.Exists(context.Background(), "https://doi.org/10.1234/abc")
	require.NoError(t, err)
	assert.True(t, exists)
}
