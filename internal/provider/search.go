// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"github.com/pdiddy/litsearch/pkg/types"
)

// searchBase is the provider works endpoint. Declared as a var so tests can
// substitute an httptest server.
var searchBase = "https://api.openalex.org/works"

// SearchClient queries the bibliographic search provider. A rate limiter
// keeps the client inside the provider's polite-pool ceiling across
// concurrent dispatcher workers.
type SearchClient struct {
	client  *http.Client
	limiter *rate.Limiter
	cfg     types.ProviderConfig
}

// NewSearchClient builds a client from cfg. Zero config values fall back to
// EngineConfig defaults.
func NewSearchClient(cfg types.ProviderConfig) *SearchClient {
	rps := float64(cfg.RequestsPerMinute) / 60.0
	if rps <= 0 {
		rps = 1.0
	}
	return &SearchClient{
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		cfg:     cfg,
	}
}

// Search executes one query and returns the identifier list in provider
// rank order. Errors are classified transient or permanent for the
// dispatcher's retry policy.
func (c *SearchClient) Search(ctx context.Context, query types.Query) ([]string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{
		"search":   {searchText(query)},
		"per_page": {fmt.Sprintf("%d", c.cfg.PageSize)},
		"page":     {"1"},
	}
	if f := filterString(query.Filters); f != "" {
		params.Set("filter", f)
	}
	if c.cfg.Email != "" {
		params.Set("mailto", c.cfg.Email)
	}

	var wr worksResponse
	if err := c.getJSON(ctx, searchBase+"?"+params.Encode(), &wr); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(wr.Results))
	for _, w := range wr.Results {
		ids = append(ids, w.identifier())
	}
	return ids, nil
}

// Fetch retrieves the canonical record for one identifier, keyed only by
// the identifier. The commit gateway calls this at commit time instead of
// reusing cached search payloads.
func (c *SearchClient) Fetch(ctx context.Context, identifier string) (*types.CommitPayload, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	if c.cfg.Email != "" {
		params.Set("mailto", c.cfg.Email)
	}
	reqURL := searchBase + "/" + url.PathEscape(identifier)
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var w work
	if err := c.getJSON(ctx, reqURL, &w); err != nil {
		return nil, err
	}

	payload := &types.CommitPayload{
		Title:    w.Title,
		Year:     w.PublicationYear,
		Abstract: reconstructAbstract(w.AbstractInvertedIndex),
		Source:   "openalex",
	}
	for _, a := range w.Authorships {
		if a.Author.DisplayName != "" {
			payload.Authors = append(payload.Authors, a.Author.DisplayName)
		}
	}
	return payload, nil
}

func (c *SearchClient) getJSON(ctx context.Context, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return &PermanentError{Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &TransientError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return statusError(resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &PermanentError{Err: fmt.Errorf("parsing provider response: %w", err)}
	}
	return nil
}

// searchText combines the query text with exclusion terms.
func searchText(q types.Query) string {
	parts := []string{q.Text}
	for _, excl := range q.Filters.Exclusions {
		parts = append(parts, "-"+excl)
	}
	return strings.Join(parts, " ")
}

// filterString builds the provider filter parameter from query filters.
func filterString(f types.QueryFilters) string {
	var filters []string
	if f.MinYear > 0 {
		filters = append(filters, fmt.Sprintf("from_publication_date:%d-01-01", f.MinYear))
	}
	if f.MaxYear > 0 {
		filters = append(filters, fmt.Sprintf("to_publication_date:%d-12-31", f.MaxYear))
	}
	if len(f.ArticleTypes) > 0 {
		filters = append(filters, "type:"+strings.Join(f.ArticleTypes, "|"))
	}
	return strings.Join(filters, ",")
}

// reconstructAbstract converts the provider's abstract inverted index back
// to plain text. The index maps each word to the positions where it appears.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	maxPos := 0
	for _, positions := range invertedIndex {
		for _, pos := range positions {
			if pos > maxPos {
				maxPos = pos
			}
		}
	}

	words := make([]string, maxPos+1)
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			if pos >= 0 {
				words[pos] = word
			}
		}
	}

	var filled []string
	for _, w := range words {
		if w != "" {
			filled = append(filled, w)
		}
	}
	return strings.Join(filled, " ")
}

// Provider works API JSON structures.
type worksResponse struct {
	Meta    worksMeta `json:"meta"`
	Results []work    `json:"results"`
}

type worksMeta struct {
	Count   int `json:"count"`
	PerPage int `json:"per_page"`
	Page    int `json:"page"`
}

type work struct {
	ID                    string           `json:"id"`
	Title                 string           `json:"title"`
	DOI                   string           `json:"doi"`
	PublicationYear       int              `json:"publication_year"`
	Authorships           []workAuthorship `json:"authorships"`
	AbstractInvertedIndex map[string][]int `json:"abstract_inverted_index"`
}

type workAuthorship struct {
	Author workAuthor `json:"author"`
}

type workAuthor struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// identifier prefers the bare DOI, then the provider work ID.
func (w work) identifier() string {
	if w.DOI != "" {
		return strings.TrimPrefix(w.DOI, "https://doi.org/")
	}
	return w.ID
}
