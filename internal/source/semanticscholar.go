// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/time/rate"

	"github.com/pdiddy/literature-engine/internal/httputil"
	"github.com/pdiddy/literature-engine/pkg/types"
)

// semanticAPIBase is the Semantic Scholar paper search endpoint. Declared
// as a var so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1/paper/search"

const semanticFields = "title,abstract,authors,externalIds,year,venue,citationCount,openAccessPdf"

// SemanticScholar queries the Semantic Scholar Graph API.
type SemanticScholar struct {
	Client  *http.Client
	APIKey  string
	limiter *rate.Limiter
}

// NewSemanticScholar returns a Semantic Scholar adapter. The unauthenticated
// pool allows roughly one request per second.
func NewSemanticScholar(client *http.Client, apiKey string) *SemanticScholar {
	return &SemanticScholar{
		Client:  client,
		APIKey:  apiKey,
		limiter: rate.NewLimiter(rate.Limit(1), 1),
	}
}

// Name returns the adapter identifier.
func (s *SemanticScholar) Name() string { return "semantic_scholar" }

// Search queries the Semantic Scholar API and returns raw records.
func (s *SemanticScholar) Search(ctx context.Context, query types.SearchQuery, cfg types.SearchConfig) ([]types.RawRecord, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if query.IsEmpty() {
		return nil, fmt.Errorf("empty Semantic Scholar query")
	}

	params := url.Values{
		"query":  {query.Text},
		"limit":  {strconv.Itoa(maxPerSource(query, cfg))},
		"fields": {semanticFields},
	}
	if yr := yearFilter(query); yr != "" {
		params.Set("year", yr)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, semanticAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)
	if s.APIKey != "" {
		req.Header.Set("x-api-key", s.APIKey)
	}

	resp, err := httputil.DoWithRetry(ctx, s.Client, req, retries(cfg))
	if err != nil {
		return nil, fmt.Errorf("Semantic Scholar API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Semantic Scholar API returned HTTP %d", resp.StatusCode)
	}

	var sr semanticResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing Semantic Scholar response: %w", err)
	}

	var records []types.RawRecord
	for _, paper := range sr.Data {
		r := types.RawRecord{
			Source:        s.Name(),
			SourceID:      paper.PaperID,
			Title:         paper.Title,
			Abstract:      paper.Abstract,
			Year:          paper.Year,
			Venue:         paper.Venue,
			DOI:           paper.ExternalIDs.DOI,
			CitationCount: paper.CitationCount,
		}
		for _, au := range paper.Authors {
			r.Authors = append(r.Authors, au.Name)
		}
		if paper.OpenAccessPdf != nil {
			r.PDFURL = paper.OpenAccessPdf.URL
		}
		r.Raw, _ = json.Marshal(paper)

		records = append(records, r)
	}
	return records, nil
}

// Semantic Scholar API JSON structures.
type semanticResponse struct {
	Total  int             `json:"total"`
	Offset int             `json:"offset"`
	Data   []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID       string              `json:"paperId"`
	Title         string              `json:"title"`
	Abstract      string              `json:"abstract"`
	Year          int                 `json:"year"`
	Venue         string              `json:"venue"`
	CitationCount int                 `json:"citationCount"`
	Authors       []semanticAuthor    `json:"authors"`
	ExternalIDs   semanticExternalIDs `json:"externalIds"`
	OpenAccessPdf *semanticOpenAccess `json:"openAccessPdf"`
}

type semanticAuthor struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}

type semanticExternalIDs struct {
	DOI      string `json:"DOI"`
	ArXiv    string `json:"ArXiv"`
	CorpusID int    `json:"CorpusId"`
}

type semanticOpenAccess struct {
	URL string `json:"url"`
}
