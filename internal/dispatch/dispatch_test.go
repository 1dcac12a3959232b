// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/litsearch/internal/provider"
	"github.com/pdiddy/litsearch/internal/session"
	"github.com/pdiddy/litsearch/pkg/types"
)

// fakeSearcher maps query text to a canned response or error, counting calls
// per query so retry behavior is observable.
type fakeSearcher struct {
	mu      sync.Mutex
	calls   map[string]int
	respond func(q types.Query, attempt int) ([]string, error)
}

func (f *fakeSearcher) Search(_ context.Context, q types.Query) ([]string, error) {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[q.Text]++
	attempt := f.calls[q.Text]
	f.mu.Unlock()
	return f.respond(q, attempt)
}

func (f *fakeSearcher) callCount(text string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[text]
}

func testConfig() types.DispatchConfig {
	return types.DispatchConfig{
		Workers:        4,
		MaxRetries:     2,
		RetryBaseDelay: time.Millisecond,
		QueryTimeout:   time.Second,
	}
}

func queries(texts ...string) []types.Query {
	var qs []types.Query
	for i, text := range texts {
		qs = append(qs, types.Query{ID: string(rune('a' + i)), Text: text, Origin: types.OriginSeed})
	}
	return qs
}

func newTestDispatcher(t *testing.T, searcher Searcher, store *session.Store) *Dispatcher {
	t.Helper()
	d, err := New(searcher, store, testConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(d.Close)
	return d
}

func TestDispatchEmptyBatch(t *testing.T) {
	d := newTestDispatcher(t, &fakeSearcher{}, session.New())
	if _, _, err := d.Dispatch(context.Background(), nil); err == nil {
		t.Error("expected error for empty batch")
	}
}

func TestDispatchAllSucceed(t *testing.T) {
	searcher := &fakeSearcher{
		respond: func(q types.Query, _ int) ([]string, error) {
			return []string{"ID-" + q.Text}, nil
		},
	}
	store := session.New()
	d := newTestDispatcher(t, searcher, store)

	results, failures, err := d.Dispatch(context.Background(), queries("one", "two", "three"))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("results = %d, want 3", len(results))
	}
	if len(failures) != 0 {
		t.Errorf("failures = %v, want none", failures)
	}
}

func TestDispatchPartialFailure(t *testing.T) {
	// 8 queries, 3 of which fail permanently: the other 5 still land.
	searcher := &fakeSearcher{
		respond: func(q types.Query, _ int) ([]string, error) {
			switch q.Text {
			case "bad1", "bad2", "bad3":
				return nil, &provider.PermanentError{Err: errors.New("HTTP 400")}
			default:
				return []string{"ID-" + q.Text}, nil
			}
		},
	}
	store := session.New()
	d := newTestDispatcher(t, searcher, store)

	results, failures, err := d.Dispatch(context.Background(),
		queries("g1", "g2", "g3", "g4", "g5", "bad1", "bad2", "bad3"))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(results) != 5 {
		t.Errorf("results = %d, want 5", len(results))
	}
	if len(failures) != 3 {
		t.Errorf("failures = %d, want 3", len(failures))
	}
	for _, f := range failures {
		if f.Reason == "" {
			t.Errorf("failure %s has no reason", f.QueryID)
		}
	}
}

func TestDispatchPermanentErrorNotRetried(t *testing.T) {
	searcher := &fakeSearcher{
		respond: func(types.Query, int) ([]string, error) {
			return nil, &provider.PermanentError{Err: errors.New("HTTP 400")}
		},
	}
	d := newTestDispatcher(t, searcher, session.New())

	_, failures, err := d.Dispatch(context.Background(), queries("doomed"))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(failures) != 1 {
		t.Fatalf("failures = %d, want 1", len(failures))
	}
	if got := searcher.callCount("doomed"); got != 1 {
		t.Errorf("call count = %d, want 1 (permanent errors are not retried)", got)
	}
}

func TestDispatchTransientErrorRetriedThenSucceeds(t *testing.T) {
	searcher := &fakeSearcher{
		respond: func(q types.Query, attempt int) ([]string, error) {
			if attempt < 3 {
				return nil, &provider.TransientError{Err: errors.New("HTTP 429")}
			}
			return []string{"ID-1"}, nil
		},
	}
	d := newTestDispatcher(t, searcher, session.New())

	results, failures, err := d.Dispatch(context.Background(), queries("flaky"))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(failures) != 0 {
		t.Errorf("failures = %v, want none after retry", failures)
	}
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	if got := searcher.callCount("flaky"); got != 3 {
		t.Errorf("call count = %d, want 3 (two retries)", got)
	}
}

func TestDispatchTransientErrorExhaustsRetries(t *testing.T) {
	searcher := &fakeSearcher{
		respond: func(types.Query, int) ([]string, error) {
			return nil, &provider.TransientError{Err: errors.New("HTTP 503")}
		},
	}
	d := newTestDispatcher(t, searcher, session.New())

	_, failures, err := d.Dispatch(context.Background(), queries("always-busy"))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(failures) != 1 {
		t.Fatalf("failures = %d, want 1 after retries exhausted", len(failures))
	}
	// MaxRetries=2 means one initial attempt plus two retries.
	if got := searcher.callCount("always-busy"); got != 3 {
		t.Errorf("call count = %d, want 3", got)
	}
}

// slowSearcher answers after a delay, aborting early if its context is
// cancelled, like a real provider call would.
type slowSearcher struct {
	delay time.Duration
}

func (s *slowSearcher) Search(ctx context.Context, q types.Query) ([]string, error) {
	select {
	case <-time.After(s.delay):
		return []string{"ID-" + q.Text}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestDispatchDrainsInFlightOnCancel(t *testing.T) {
	// Cancelling mid-batch must let the in-flight call finish: the completed
	// result lands in the session instead of a context-cancelled failure.
	store := session.New()
	d := newTestDispatcher(t, &slowSearcher{delay: 200 * time.Millisecond}, store)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	defer cancel()

	results, failures, err := d.Dispatch(ctx, queries("slow"))
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(failures) != 0 {
		t.Errorf("failures = %v, want none (in-flight query drains)", failures)
	}
	if len(results) != 1 {
		t.Fatalf("results = %d, want the drained query's result", len(results))
	}
	if store.Len() != 1 {
		t.Errorf("session has %d entries, want 1", store.Len())
	}
}

func TestDispatchAppendsSessionEntry(t *testing.T) {
	searcher := &fakeSearcher{
		respond: func(q types.Query, _ int) ([]string, error) {
			if q.Text == "bad" {
				return nil, &provider.PermanentError{Err: errors.New("HTTP 404")}
			}
			return []string{"ID-" + q.Text}, nil
		},
	}
	store := session.New()
	d := newTestDispatcher(t, searcher, store)

	batch := queries("good", "bad")
	if _, _, err := d.Dispatch(context.Background(), batch); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	if store.Len() != 1 {
		t.Fatalf("session has %d entries, want 1", store.Len())
	}
	entry, err := store.Get(-1)
	if err != nil {
		t.Fatalf("Get(-1): %v", err)
	}
	if len(entry.Queries) != 2 {
		t.Errorf("entry queries = %d, want the full batch of 2", len(entry.Queries))
	}
	if len(entry.RawResults) != 1 || len(entry.Failures) != 1 {
		t.Errorf("entry results/failures = %d/%d, want 1/1", len(entry.RawResults), len(entry.Failures))
	}
}
