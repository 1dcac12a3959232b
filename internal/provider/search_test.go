// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pdiddy/litsearch/pkg/types"
)

func testProviderConfig() types.ProviderConfig {
	return types.ProviderConfig{
		Email:             "research@example.org",
		RequestsPerMinute: 60000,
		PageSize:          25,
		HTTPConfig: types.HTTPConfig{
			Timeout:   5 * time.Second,
			UserAgent: "litsearch-test",
		},
	}
}

// swapSearchBase points the client at an httptest server for the duration of
// a test.
func swapSearchBase(t *testing.T, url string) {
	t.Helper()
	old := searchBase
	searchBase = url
	t.Cleanup(func() { searchBase = old })
}

func TestSearchSendsQueryParameters(t *testing.T) {
	var gotQuery, gotFilter, gotMailto, gotPerPage string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("search")
		gotFilter = r.URL.Query().Get("filter")
		gotMailto = r.URL.Query().Get("mailto")
		gotPerPage = r.URL.Query().Get("per_page")
		fmt.Fprint(w, `{"meta":{"count":0},"results":[]}`)
	}))
	defer server.Close()
	swapSearchBase(t, server.URL)

	c := NewSearchClient(testProviderConfig())
	_, err := c.Search(context.Background(), types.Query{
		ID:   "q1",
		Text: "drug X outcome",
		Filters: types.QueryFilters{
			MinYear:      2020,
			MaxYear:      2024,
			ArticleTypes: []string{"journal-article", "review"},
			Exclusions:   []string{"editorial"},
		},
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if gotQuery != "drug X outcome -editorial" {
		t.Errorf("search param = %q, want exclusion folded in", gotQuery)
	}
	want := "from_publication_date:2020-01-01,to_publication_date:2024-12-31,type:journal-article|review"
	if gotFilter != want {
		t.Errorf("filter param = %q, want %q", gotFilter, want)
	}
	if gotMailto != "research@example.org" {
		t.Errorf("mailto param = %q", gotMailto)
	}
	if gotPerPage != "25" {
		t.Errorf("per_page param = %q, want 25", gotPerPage)
	}
}

func TestSearchReturnsIdentifiersInRankOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"meta":{"count":3},"results":[
			{"id":"https://openalex.org/W1","doi":"https://doi.org/10.1234/first"},
			{"id":"https://openalex.org/W2"},
			{"id":"https://openalex.org/W3","doi":"https://doi.org/10.1234/third"}
		]}`)
	}))
	defer server.Close()
	swapSearchBase(t, server.URL)

	c := NewSearchClient(testProviderConfig())
	ids, err := c.Search(context.Background(), types.Query{ID: "q1", Text: "drug X"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	want := []string{"10.1234/first", "https://openalex.org/W2", "10.1234/third"}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d] = %s, want %s (provider rank order, DOI preferred)", i, ids[i], want[i])
		}
	}
}

func TestSearchErrorClassification(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		wantTransient bool
	}{
		{"rate limited", http.StatusTooManyRequests, true},
		{"server error", http.StatusInternalServerError, true},
		{"unavailable", http.StatusBadGateway, true},
		{"bad request", http.StatusBadRequest, false},
		{"forbidden", http.StatusForbidden, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, http.StatusText(tt.status), tt.status)
			}))
			defer server.Close()
			swapSearchBase(t, server.URL)

			c := NewSearchClient(testProviderConfig())
			_, err := c.Search(context.Background(), types.Query{ID: "q1", Text: "drug X"})
			if err == nil {
				t.Fatal("expected error")
			}
			if got := IsTransient(err); got != tt.wantTransient {
				t.Errorf("IsTransient = %v, want %v for HTTP %d", got, tt.wantTransient, tt.status)
			}
		})
	}
}

func TestSearchContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()
	swapSearchBase(t, server.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := NewSearchClient(testProviderConfig())
	_, err := c.Search(ctx, types.Query{ID: "q1", Text: "drug X"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want context deadline", err)
	}
}

func TestFetchReconstructsAbstract(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"id":"https://openalex.org/W1",
			"title":"Drug X in adults",
			"publication_year":2023,
			"authorships":[
				{"author":{"id":"A1","display_name":"Ada Lovelace"}},
				{"author":{"id":"A2","display_name":"Alan Turing"}}
			],
			"abstract_inverted_index":{"reduces":[2],"Drug":[0],"mortality":[3],"X":[1]}
		}`)
	}))
	defer server.Close()
	swapSearchBase(t, server.URL)

	c := NewSearchClient(testProviderConfig())
	payload, err := c.Fetch(context.Background(), "10.1234/first")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if payload.Title != "Drug X in adults" {
		t.Errorf("title = %q", payload.Title)
	}
	if payload.Year != 2023 {
		t.Errorf("year = %d, want 2023", payload.Year)
	}
	if payload.Abstract != "Drug X reduces mortality" {
		t.Errorf("abstract = %q, want positions rebuilt in order", payload.Abstract)
	}
	if len(payload.Authors) != 2 || payload.Authors[0] != "Ada Lovelace" {
		t.Errorf("authors = %v", payload.Authors)
	}
	if payload.Source != "openalex" {
		t.Errorf("source = %q", payload.Source)
	}
}

func TestFetchNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()
	swapSearchBase(t, server.URL)

	c := NewSearchClient(testProviderConfig())
	_, err := c.Fetch(context.Background(), "10.9999/missing")
	if err == nil {
		t.Fatal("expected error for unknown identifier")
	}
	if IsTransient(err) {
		t.Error("404 classified transient, want permanent")
	}
}

func TestReconstructAbstract(t *testing.T) {
	tests := []struct {
		name string
		in   map[string][]int
		want string
	}{
		{"empty", nil, ""},
		{"single word", map[string][]int{"hello": {0}}, "hello"},
		{"repeated word", map[string][]int{"the": {0, 2}, "end": {1, 3}}, "the end the end"},
		{"gap in positions", map[string][]int{"a": {0}, "b": {5}}, "a b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := reconstructAbstract(tt.in); got != tt.want {
				t.Errorf("reconstructAbstract = %q, want %q", got, tt.want)
			}
		})
	}
}
