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

// pubmedAPIBase is the NCBI E-utilities endpoint. Declared as a var so
// tests can substitute an httptest server.
var pubmedAPIBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

// PubMed queries the NCBI E-utilities in two steps: esearch for PMIDs,
// esummary for metadata.
type PubMed struct {
	Client  *http.Client
	APIKey  string
	limiter *rate.Limiter
}

// NewPubMed returns a PubMed adapter. NCBI allows 3 requests per second
// without an API key, 10 with one.
func NewPubMed(client *http.Client, apiKey string) *PubMed {
	perSec := 3.0
	if apiKey != "" {
		perSec = 10.0
	}
	return &PubMed{
		Client:  client,
		APIKey:  apiKey,
		limiter: rate.NewLimiter(rate.Limit(perSec), 1),
	}
}

// Name returns the adapter identifier.
func (p *PubMed) Name() string { return "pubmed" }

// Search queries PubMed and returns raw records.
func (p *PubMed) Search(ctx context.Context, query types.SearchQuery, cfg types.SearchConfig) ([]types.RawRecord, error) {
	if query.IsEmpty() {
		return nil, fmt.Errorf("empty PubMed query")
	}

	ids, err := p.esearch(ctx, query, cfg)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return p.esummary(ctx, ids, cfg)
}

func (p *PubMed) esearch(ctx context.Context, query types.SearchQuery, cfg types.SearchConfig) ([]string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{
		"db":      {"pubmed"},
		"term":    {query.Text},
		"retmax":  {strconv.Itoa(maxPerSource(query, cfg))},
		"retmode": {"json"},
		"sort":    {"relevance"},
	}
	if query.YearFrom > 0 {
		params.Set("mindate", strconv.Itoa(query.YearFrom))
		params.Set("datetype", "pdat")
	}
	if query.YearTo > 0 {
		params.Set("maxdate", strconv.Itoa(query.YearTo))
		params.Set("datetype", "pdat")
	}
	if p.APIKey != "" {
		params.Set("api_key", p.APIKey)
	}

	var sr pubmedSearchResponse
	if err := p.getJSON(ctx, "/esearch.fcgi?"+params.Encode(), cfg, &sr); err != nil {
		return nil, err
	}
	return sr.Result.IDList, nil
}

func (p *PubMed) esummary(ctx context.Context, ids []string, cfg types.SearchConfig) ([]types.RawRecord, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{
		"db":      {"pubmed"},
		"id":      {strings.Join(ids, ",")},
		"retmode": {"json"},
	}
	if p.APIKey != "" {
		params.Set("api_key", p.APIKey)
	}

	var sum pubmedSummaryResponse
	if err := p.getJSON(ctx, "/esummary.fcgi?"+params.Encode(), cfg, &sum); err != nil {
		return nil, err
	}

	// Iterate the esearch ID order; the summary result is keyed by UID.
	var records []types.RawRecord
	for _, id := range ids {
		raw, ok := sum.Result[id]
		if !ok {
			continue
		}
		var doc pubmedDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			continue
		}

		r := types.RawRecord{
			Source:   p.Name(),
			SourceID: id,
			Title:    strings.TrimSuffix(doc.Title, "."),
			Venue:    doc.FullJournalName,
			Year:     pubmedYear(doc.PubDate),
		}
		for _, au := range doc.Authors {
			r.Authors = append(r.Authors, au.Name)
		}
		for _, aid := range doc.ArticleIDs {
			if aid.IDType == "doi" {
				r.DOI = aid.Value
			}
		}
		r.Raw = raw

		records = append(records, r)
	}
	return records, nil
}

func (p *PubMed) getJSON(ctx context.Context, path string, cfg types.SearchConfig, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pubmedAPIBase+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, p.Client, req, retries(cfg))
	if err != nil {
		return fmt.Errorf("PubMed API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("PubMed API returned HTTP %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parsing PubMed response: %w", err)
	}
	return nil
}

// pubmedYear parses the leading year from an E-utilities pubdate
// (e.g. "2023 Jan 10").
func pubmedYear(pubdate string) int {
	fields := strings.Fields(pubdate)
	if len(fields) == 0 {
		return 0
	}
	year, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0
	}
	return year
}

// PubMed E-utilities JSON structures.
type pubmedSearchResponse struct {
	Result pubmedSearchResult `json:"esearchresult"`
}

type pubmedSearchResult struct {
	IDList []string `json:"idlist"`
}

// pubmedSummaryResponse keeps documents raw: the result object mixes UID
// keys with a "uids" array.
type pubmedSummaryResponse struct {
	Result map[string]json.RawMessage `json:"result"`
}

type pubmedDoc struct {
	UID             string            `json:"uid"`
	Title           string            `json:"title"`
	FullJournalName string            `json:"fulljournalname"`
	PubDate         string            `json:"pubdate"`
	Authors         []pubmedAuthor    `json:"authors"`
	ArticleIDs      []pubmedArticleID `json:"articleids"`
}

type pubmedAuthor struct {
	Name string `json:"name"`
}

type pubmedArticleID struct {
	IDType string `json:"idtype"`
	Value  string `json:"value"`
}
