// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/literature-engine/internal/httputil"
	"github.com/pdiddy/literature-engine/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// arXiv asks for no more than one request every three seconds.
const arxivRatePerSec = 1.0 / 3.0

// Arxiv queries the arXiv Atom API.
type Arxiv struct {
	Client  *http.Client
	limiter *rate.Limiter
}

// NewArxiv returns an arXiv adapter with the published rate limit applied.
func NewArxiv(client *http.Client) *Arxiv {
	return &Arxiv{
		Client:  client,
		limiter: rate.NewLimiter(rate.Limit(arxivRatePerSec), 1),
	}
}

// Name returns the adapter identifier.
func (a *Arxiv) Name() string { return "arxiv" }

// Search queries the arXiv API and returns raw records. The API has no year
// filter parameter, so the query's year range is applied to the parsed
// publication dates.
func (a *Arxiv) Search(ctx context.Context, query types.SearchQuery, cfg types.SearchConfig) ([]types.RawRecord, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	max := maxPerSource(query, cfg)
	terms := strings.Fields(query.Text)
	if len(terms) == 0 {
		return nil, fmt.Errorf("empty arXiv query")
	}

	url := fmt.Sprintf("%s?search_query=all:%s&start=0&max_results=%d&sortBy=relevance&sortOrder=descending",
		arxivAPIBase, strings.Join(terms, "+"), max)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, a.Client, req, retries(cfg))
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}

	var records []types.RawRecord
	for _, entry := range feed.Entries {
		arxivID := extractArxivID(entry.ID)
		if arxivID == "" {
			continue
		}

		r := types.RawRecord{
			Source:   a.Name(),
			SourceID: arxivID,
			Title:    strings.TrimSpace(entry.Title),
			Abstract: strings.TrimSpace(entry.Summary),
			DOI:      entry.DOI,
			Venue:    entry.JournalRef,
			PDFURL:   "https://arxiv.org/pdf/" + arxivID,
		}
		for _, au := range entry.Authors {
			r.Authors = append(r.Authors, strings.TrimSpace(au.Name))
		}
		if t, parseErr := time.Parse(time.RFC3339, entry.Published); parseErr == nil {
			r.Year = t.Year()
		}
		if !yearInRange(r.Year, query) {
			continue
		}
		r.Raw, _ = json.Marshal(entry)

		records = append(records, r)
		if len(records) >= max {
			break
		}
	}
	return records, nil
}

// yearInRange applies the query's year bounds; records without a year pass.
func yearInRange(year int, query types.SearchQuery) bool {
	if year == 0 {
		return true
	}
	if query.YearFrom > 0 && year < query.YearFrom {
		return false
	}
	if query.YearTo > 0 && year > query.YearTo {
		return false
	}
	return true
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID         string        `xml:"id" json:"id"`
	Title      string        `xml:"title" json:"title"`
	Summary    string        `xml:"summary" json:"summary"`
	Published  string        `xml:"published" json:"published"`
	DOI        string        `xml:"doi" json:"doi,omitempty"`
	JournalRef string        `xml:"journal_ref" json:"journal_ref,omitempty"`
	Authors    []arxivAuthor `xml:"author" json:"authors"`
}

type arxivAuthor struct {
	Name string `xml:"name" json:"name"`
}

// extractArxivID pulls the arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" -> "2301.07041").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := idURL[idx+len(prefix):]

	// Strip version suffix (e.g. "v1", "v2").
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}
