// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pdiddy/literature-engine/internal/cache"
	"github.com/pdiddy/literature-engine/pkg/types"
)

func testCfg() types.SearchConfig {
	return types.SearchConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   10 * time.Second,
			UserAgent: "test/0.1",
		},
		MaxPerSource: 20,
		MaxRetries:   1,
	}
}

const arxivFeedXML = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/2301.07041v2</id>
    <title>Attention Is All You Need, Revisited</title>
    <summary>  A closer look at transformer attention.  </summary>
    <published>2023-01-17T12:00:00Z</published>
    <author><name>Ada Lovelace</name></author>
    <author><name>Alan Turing</name></author>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/1706.03762v7</id>
    <title>Attention Is All You Need</title>
    <summary>The transformer paper.</summary>
    <published>2017-06-12T12:00:00Z</published>
    <author><name>Ashish Vaswani</name></author>
  </entry>
</feed>`

func TestArxivSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("search_query"); got != "all:attention+transformers" {
			t.Errorf("search_query = %q", got)
		}
		fmt.Fprint(w, arxivFeedXML)
	}))
	defer srv.Close()

	old := arxivAPIBase
	arxivAPIBase = srv.URL
	t.Cleanup(func() { arxivAPIBase = old })

	a := NewArxiv(srv.Client())
	records, err := a.Search(context.Background(), types.SearchQuery{Text: "attention transformers"}, testCfg())
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}

	r := records[0]
	if r.SourceID != "2301.07041" {
		t.Errorf("SourceID = %q, want version suffix stripped", r.SourceID)
	}
	if r.Title != "Attention Is All You Need, Revisited" {
		t.Errorf("Title = %q", r.Title)
	}
	if r.Abstract != "A closer look at transformer attention." {
		t.Errorf("Abstract = %q, want trimmed", r.Abstract)
	}
	if r.Year != 2023 {
		t.Errorf("Year = %d, want 2023", r.Year)
	}
	if len(r.Authors) != 2 || r.Authors[0] != "Ada Lovelace" {
		t.Errorf("Authors = %v", r.Authors)
	}
	if r.PDFURL != "https://arxiv.org/pdf/2301.07041" {
		t.Errorf("PDFURL = %q", r.PDFURL)
	}
	if len(r.Raw) == 0 {
		t.Error("Raw payload not retained")
	}
}

func TestArxivSearchAppliesYearRange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, arxivFeedXML)
	}))
	defer srv.Close()

	old := arxivAPIBase
	arxivAPIBase = srv.URL
	t.Cleanup(func() { arxivAPIBase = old })

	a := NewArxiv(srv.Client())
	records, err := a.Search(context.Background(),
		types.SearchQuery{Text: "attention", YearFrom: 2020}, testCfg())
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(records) != 1 || records[0].Year != 2023 {
		t.Errorf("records = %+v, want only the 2023 entry", records)
	}
}

func TestSemanticScholarSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-api-key"); got != "sekrit" {
			t.Errorf("x-api-key = %q", got)
		}
		if got := r.URL.Query().Get("year"); got != "2020-2023" {
			t.Errorf("year = %q", got)
		}
		fmt.Fprint(w, `{"total":1,"data":[{
			"paperId":"abc123",
			"title":"Graph Foundations",
			"abstract":"On graphs.",
			"year":2021,
			"venue":"NeurIPS",
			"citationCount":50,
			"authors":[{"authorId":"1","name":"Grace Hopper"}],
			"externalIds":{"DOI":"10.1000/x1"},
			"openAccessPdf":{"url":"https://example.org/x1.pdf"}
		}]}`)
	}))
	defer srv.Close()

	old := semanticAPIBase
	semanticAPIBase = srv.URL
	t.Cleanup(func() { semanticAPIBase = old })

	s := NewSemanticScholar(srv.Client(), "sekrit")
	records, err := s.Search(context.Background(),
		types.SearchQuery{Text: "graphs", YearFrom: 2020, YearTo: 2023}, testCfg())
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}

	r := records[0]
	if r.DOI != "10.1000/x1" {
		t.Errorf("DOI = %q", r.DOI)
	}
	if r.CitationCount != 50 {
		t.Errorf("CitationCount = %d, want 50", r.CitationCount)
	}
	if r.PDFURL != "https://example.org/x1.pdf" {
		t.Errorf("PDFURL = %q", r.PDFURL)
	}
	if r.Venue != "NeurIPS" {
		t.Errorf("Venue = %q", r.Venue)
	}
}

func TestOpenAlexSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("mailto"); got != "dev@example.org" {
			t.Errorf("mailto = %q", got)
		}
		fmt.Fprint(w, `{"results":[{
			"id":"https://openalex.org/W2741809807",
			"doi":"https://doi.org/10.1000/X1",
			"display_name":"Graph Foundations",
			"publication_year":2021,
			"cited_by_count":30,
			"authorships":[{"author":{"display_name":"Grace Hopper"}}],
			"primary_location":{"pdf_url":"https://example.org/w.pdf","source":{"display_name":"NeurIPS"}},
			"abstract_inverted_index":{"On":[0],"graphs.":[1]}
		}]}`)
	}))
	defer srv.Close()

	old := openAlexAPIBase
	openAlexAPIBase = srv.URL
	t.Cleanup(func() { openAlexAPIBase = old })

	o := NewOpenAlex(srv.Client(), "dev@example.org")
	records, err := o.Search(context.Background(), types.SearchQuery{Text: "graphs"}, testCfg())
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}

	r := records[0]
	if r.SourceID != "W2741809807" {
		t.Errorf("SourceID = %q", r.SourceID)
	}
	if r.Abstract != "On graphs." {
		t.Errorf("Abstract = %q, want inverted index reassembled", r.Abstract)
	}
	if r.Venue != "NeurIPS" {
		t.Errorf("Venue = %q", r.Venue)
	}
	if r.CitationCount != 30 {
		t.Errorf("CitationCount = %d", r.CitationCount)
	}
}

func TestPubMedSearchTwoStep(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/esearch.fcgi":
			fmt.Fprint(w, `{"esearchresult":{"idlist":["12345678"]}}`)
		case r.URL.Path == "/esummary.fcgi":
			fmt.Fprint(w, `{"result":{"uids":["12345678"],"12345678":{
				"uid":"12345678",
				"title":"CRISPR screening at scale.",
				"fulljournalname":"Nature Methods",
				"pubdate":"2022 Mar 4",
				"authors":[{"name":"Doudna J"}],
				"articleids":[{"idtype":"doi","value":"10.1038/s41592-022-1"}]
			}}}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	old := pubmedAPIBase
	pubmedAPIBase = srv.URL
	t.Cleanup(func() { pubmedAPIBase = old })

	p := NewPubMed(srv.Client(), "")
	records, err := p.Search(context.Background(), types.SearchQuery{Text: "crispr"}, testCfg())
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}

	r := records[0]
	if r.SourceID != "12345678" {
		t.Errorf("SourceID = %q", r.SourceID)
	}
	if r.Title != "CRISPR screening at scale" {
		t.Errorf("Title = %q, want trailing period stripped", r.Title)
	}
	if r.Year != 2022 {
		t.Errorf("Year = %d, want 2022", r.Year)
	}
	if r.DOI != "10.1038/s41592-022-1" {
		t.Errorf("DOI = %q", r.DOI)
	}
}

// --- caching decorator ---

type countingAdapter struct {
	calls   atomic.Int32
	records []types.RawRecord
	err     error
}

func (c *countingAdapter) Name() string { return "counting" }

func (c *countingAdapter) Search(context.Context, types.SearchQuery, types.SearchConfig) ([]types.RawRecord, error) {
	c.calls.Add(1)
	return c.records, c.err
}

func TestCachedAdapterServesSecondCallFromStore(t *testing.T) {
	store := cache.Open(types.CacheConfig{Dir: t.TempDir()})
	defer store.Close()

	inner := &countingAdapter{records: []types.RawRecord{
		{Source: "counting", SourceID: "1", Title: "Cached Paper"},
	}}
	c := &Cached{Adapter: inner, Store: store}

	query := types.SearchQuery{Text: "Cached   PAPER"}
	for i := 0; i < 2; i++ {
		records, err := c.Search(context.Background(), query, testCfg())
		if err != nil {
			t.Fatalf("Search() #%d error = %v", i+1, err)
		}
		if len(records) != 1 || records[0].Title != "Cached Paper" {
			t.Fatalf("Search() #%d records = %+v", i+1, records)
		}
	}

	if got := inner.calls.Load(); got != 1 {
		t.Errorf("live searches = %d, want 1 (second call cached)", got)
	}
}

func TestCachedAdapterDistinguishesQuerySignatures(t *testing.T) {
	store := cache.Open(types.CacheConfig{Dir: t.TempDir()})
	defer store.Close()

	inner := &countingAdapter{}
	c := &Cached{Adapter: inner, Store: store}

	c.Search(context.Background(), types.SearchQuery{Text: "graphs"}, testCfg())
	c.Search(context.Background(), types.SearchQuery{Text: "graphs", YearFrom: 2020}, testCfg())

	if got := inner.calls.Load(); got != 2 {
		t.Errorf("live searches = %d, want 2 (different signatures)", got)
	}
}

func TestCachedAdapterPropagatesSourceFailure(t *testing.T) {
	store := cache.Open(types.CacheConfig{Dir: t.TempDir()})
	defer store.Close()

	inner := &countingAdapter{err: fmt.Errorf("boom")}
	c := &Cached{Adapter: inner, Store: store}

	if _, err := c.Search(context.Background(), types.SearchQuery{Text: "q"}, testCfg()); err == nil {
		t.Fatal("Search() error = nil, want source failure surfaced")
	}
	// Failures are not cached.
	c.Search(context.Background(), types.SearchQuery{Text: "q"}, testCfg())
	if got := inner.calls.Load(); got != 2 {
		t.Errorf("live searches = %d, want 2", got)
	}
}

func TestNormalizeQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Large  Language Models", "large language models"},
		{"  crispr\t screening ", "crispr screening"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeQuery(tt.in); got != tt.want {
			t.Errorf("NormalizeQuery(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEnabled(t *testing.T) {
	cfg := testCfg()
	cfg.EnableArxiv = true
	cfg.EnableOpenAlex = true

	adapters := Enabled(http.DefaultClient, cfg)
	if len(adapters) != 2 {
		t.Fatalf("len(adapters) = %d, want 2", len(adapters))
	}
	if adapters[0].Name() != "arxiv" || adapters[1].Name() != "openalex" {
		t.Errorf("adapter order = %s, %s", adapters[0].Name(), adapters[1].Name())
	}
}
