// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/pdiddy/literature-engine/internal/httputil"
	"github.com/pdiddy/literature-engine/pkg/types"
)

// openAlexAPIBase is the OpenAlex Works search endpoint. Declared as a var
// so tests can substitute an httptest server.
var openAlexAPIBase = "https://api.openalex.org/works"

// OpenAlex queries the OpenAlex Works API.
type OpenAlex struct {
	Client *http.Client
	// Email is sent as the mailto parameter for polite pool access.
	Email   string
	limiter *rate.Limiter
}

// NewOpenAlex returns an OpenAlex adapter. The polite pool allows up to
// ten requests per second.
func NewOpenAlex(client *http.Client, email string) *OpenAlex {
	return &OpenAlex{
		Client:  client,
		Email:   email,
		limiter: rate.NewLimiter(rate.Limit(10), 1),
	}
}

// Name returns the adapter identifier.
func (o *OpenAlex) Name() string { return "openalex" }

// Search queries the OpenAlex API and returns raw records.
func (o *OpenAlex) Search(ctx context.Context, query types.SearchQuery, cfg types.SearchConfig) ([]types.RawRecord, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if query.IsEmpty() {
		return nil, fmt.Errorf("empty OpenAlex query")
	}

	max := maxPerSource(query, cfg)
	if max > 200 {
		max = 200 // OpenAlex page ceiling
	}

	params := url.Values{
		"search":   {query.Text},
		"per_page": {strconv.Itoa(max)},
		"page":     {"1"},
	}
	var filters []string
	if query.YearFrom > 0 {
		filters = append(filters, fmt.Sprintf("from_publication_date:%d-01-01", query.YearFrom))
	}
	if query.YearTo > 0 {
		filters = append(filters, fmt.Sprintf("to_publication_date:%d-12-31", query.YearTo))
	}
	if len(filters) > 0 {
		params.Set("filter", strings.Join(filters, ","))
	}
	if o.Email != "" {
		params.Set("mailto", o.Email)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, openAlexAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, o.Client, req, retries(cfg))
	if err != nil {
		return nil, fmt.Errorf("OpenAlex API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenAlex API returned HTTP %d", resp.StatusCode)
	}

	var oar openAlexResponse
	if err := json.NewDecoder(resp.Body).Decode(&oar); err != nil {
		return nil, fmt.Errorf("parsing OpenAlex response: %w", err)
	}

	var records []types.RawRecord
	for _, work := range oar.Results {
		r := types.RawRecord{
			Source:        o.Name(),
			SourceID:      strings.TrimPrefix(work.ID, "https://openalex.org/"),
			Title:         work.DisplayName,
			Year:          work.PublicationYear,
			DOI:           work.DOI,
			CitationCount: work.CitedByCount,
		}
		for _, auth := range work.Authorships {
			if auth.Author.DisplayName != "" {
				r.Authors = append(r.Authors, auth.Author.DisplayName)
			}
		}
		if work.PrimaryLocation != nil {
			r.PDFURL = work.PrimaryLocation.PDFURL
			if work.PrimaryLocation.Source != nil {
				r.Venue = work.PrimaryLocation.Source.DisplayName
			}
		}
		r.Abstract = reassembleAbstract(work.AbstractInvertedIndex)
		r.Raw, _ = json.Marshal(work)

		records = append(records, r)
	}
	return records, nil
}

// reassembleAbstract rebuilds plain text from OpenAlex's inverted index
// (word -> positions).
func reassembleAbstract(index map[string][]int) string {
	if len(index) == 0 {
		return ""
	}
	max := 0
	for _, positions := range index {
		for _, p := range positions {
			if p > max {
				max = p
			}
		}
	}
	words := make([]string, max+1)
	for word, positions := range index {
		for _, p := range positions {
			words[p] = word
		}
	}
	return strings.Join(strings.Fields(strings.Join(words, " ")), " ")
}

// OpenAlex API JSON structures.
type openAlexResponse struct {
	Results []openAlexWork `json:"results"`
}

type openAlexWork struct {
	ID                    string               `json:"id"`
	DOI                   string               `json:"doi"`
	DisplayName           string               `json:"display_name"`
	PublicationYear       int                  `json:"publication_year"`
	CitedByCount          int                  `json:"cited_by_count"`
	Authorships           []openAlexAuthorship `json:"authorships"`
	PrimaryLocation       *openAlexLocation    `json:"primary_location"`
	AbstractInvertedIndex map[string][]int     `json:"abstract_inverted_index"`
}

type openAlexAuthorship struct {
	Author openAlexAuthor `json:"author"`
}

type openAlexAuthor struct {
	DisplayName string `json:"display_name"`
}

type openAlexLocation struct {
	PDFURL string          `json:"pdf_url"`
	Source *openAlexSource `json:"source"`
}

type openAlexSource struct {
	DisplayName string `json:"display_name"`
}
