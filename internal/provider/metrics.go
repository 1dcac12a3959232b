// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/litsearch/internal/httputil"
	"github.com/pdiddy/litsearch/pkg/types"
)

// metricsBase is the citation-graph endpoint. Declared as a var so tests
// can substitute an httptest server.
var metricsBase = "https://api.semanticscholar.org/graph/v1/paper"

const graphFields = "externalIds,paperId,citationCount,year"

// CitationMetrics is the per-identifier result of a metrics lookup.
type CitationMetrics struct {
	CitingCount int
	RelatedIDs  []string

	// ImpactScore is the provider citation count normalized by years since
	// publication (citations per year).
	ImpactScore float64
}

// MetricsClient queries the citation-graph provider for citing/cited/related
// identifier lists and impact metrics.
type MetricsClient struct {
	client  *http.Client
	limiter *rate.Limiter
	cfg     types.ProviderConfig
}

// NewMetricsClient builds a client from cfg.
func NewMetricsClient(cfg types.ProviderConfig) *MetricsClient {
	rps := float64(cfg.RequestsPerMinute) / 60.0
	if rps <= 0 {
		rps = 1.0
	}
	return &MetricsClient{
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		cfg:     cfg,
	}
}

// Citations returns identifiers of items citing id, in provider order.
func (c *MetricsClient) Citations(ctx context.Context, id string) ([]string, error) {
	return c.edgeList(ctx, id, "citations", "citingPaper")
}

// References returns identifiers of items cited by id, in provider order.
func (c *MetricsClient) References(ctx context.Context, id string) ([]string, error) {
	return c.edgeList(ctx, id, "references", "citedPaper")
}

// Related returns identifiers the provider judges topically related to id.
func (c *MetricsClient) Related(ctx context.Context, id string) ([]string, error) {
	reqURL := metricsBase + "/" + url.PathEscape(id) + "/related?" + url.Values{
		"fields": {graphFields},
	}.Encode()

	var rr relatedResponse
	if err := c.getJSON(ctx, reqURL, &rr); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(rr.Data))
	for _, p := range rr.Data {
		if pid := p.identifier(); pid != "" {
			ids = append(ids, pid)
		}
	}
	return ids, nil
}

// Lookup fetches citation metrics for each identifier. Identifiers the
// provider does not know are absent from the result map, not errors.
func (c *MetricsClient) Lookup(ctx context.Context, ids []string) (map[string]CitationMetrics, error) {
	out := make(map[string]CitationMetrics, len(ids))
	for _, id := range ids {
		reqURL := metricsBase + "/" + url.PathEscape(id) + "?" + url.Values{
			"fields": {graphFields},
		}.Encode()

		var p graphPaper
		if err := c.getJSON(ctx, reqURL, &p); err != nil {
			var pe *PermanentError
			if errors.As(err, &pe) && strings.Contains(pe.Error(), "HTTP 404") {
				continue
			}
			return nil, fmt.Errorf("metrics lookup for %s: %w", id, err)
		}

		out[id] = CitationMetrics{
			CitingCount: p.CitationCount,
			ImpactScore: impactScore(p.CitationCount, p.Year),
		}
	}
	return out, nil
}

// impactScore normalizes a citation count by years since publication.
func impactScore(citations, year int) float64 {
	age := time.Now().Year() - year + 1
	if age < 1 {
		age = 1
	}
	return float64(citations) / float64(age)
}

func (c *MetricsClient) edgeList(ctx context.Context, id, edge, side string) ([]string, error) {
	reqURL := metricsBase + "/" + url.PathEscape(id) + "/" + edge + "?" + url.Values{
		"fields": {graphFields},
	}.Encode()

	var er edgeResponse
	if err := c.getJSON(ctx, reqURL, &er); err != nil {
		return nil, err
	}

	var ids []string
	for _, d := range er.Data {
		var p *graphPaper
		switch side {
		case "citingPaper":
			p = d.CitingPaper
		case "citedPaper":
			p = d.CitedPaper
		}
		if p == nil {
			continue
		}
		if pid := p.identifier(); pid != "" {
			ids = append(ids, pid)
		}
	}
	return ids, nil
}

func (c *MetricsClient) getJSON(ctx context.Context, reqURL string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return &PermanentError{Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if c.cfg.MetricsAPIKey != "" {
		req.Header.Set("x-api-key", c.cfg.MetricsAPIKey)
	}

	resp, err := httputil.DoWithRetry(ctx, c.client, req, 0)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &TransientError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp.StatusCode, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &PermanentError{Err: fmt.Errorf("parsing metrics response: %w", err)}
	}
	return nil
}

// Citation-graph API JSON structures.
type edgeResponse struct {
	Data []edgeEntry `json:"data"`
}

type edgeEntry struct {
	CitingPaper *graphPaper `json:"citingPaper"`
	CitedPaper  *graphPaper `json:"citedPaper"`
}

type relatedResponse struct {
	Data []graphPaper `json:"data"`
}

type graphPaper struct {
	PaperID       string           `json:"paperId"`
	Year          int              `json:"year"`
	CitationCount int              `json:"citationCount"`
	ExternalIDs   graphExternalIDs `json:"externalIds"`
}

type graphExternalIDs struct {
	DOI   string `json:"DOI"`
	ArXiv string `json:"ArXiv"`
}

// identifier prefers the DOI, then the arXiv ID, then the graph paper ID.
func (p graphPaper) identifier() string {
	if p.ExternalIDs.DOI != "" {
		return p.ExternalIDs.DOI
	}
	if p.ExternalIDs.ArXiv != "" {
		return p.ExternalIDs.ArXiv
	}
	return p.PaperID
}
