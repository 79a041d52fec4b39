// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fulltext

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pdiddy/literature-engine/internal/cache"
	"github.com/pdiddy/literature-engine/pkg/types"
)

func newExtractor(t *testing.T) *Extractor {
	t.Helper()
	store := cache.Open(types.CacheConfig{Dir: t.TempDir()})
	if store.Degraded() {
		t.Fatalf("cache degraded: %v", store.Err())
	}
	return &Extractor{
		Client: &http.Client{},
		Store:  store,
		Cfg: types.FullTextConfig{
			DownloadTimeout: 5 * time.Second,
			MaxConcurrent:   2,
		},
	}
}

func TestExtractServesFromCacheWithoutNetwork(t *testing.T) {
	e := newExtractor(t)
	// No server behind this URL; a download attempt would fail loudly.
	url := "http://127.0.0.1:1/paper.pdf"
	e.Store.Put(cacheKey(url), []byte("cached full text"))

	text, err := e.Extract(context.Background(), url)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if text != "cached full text" {
		t.Errorf("text = %q", text)
	}
}

func TestExtractHTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	e := newExtractor(t)
	_, err := e.Extract(context.Background(), srv.URL+"/gone.pdf")

	var xerr *ExtractionError
	if !errors.As(err, &xerr) || xerr.Kind != KindDownloadHTTPError {
		t.Fatalf("Extract() error = %v, want kind %s", err, KindDownloadHTTPError)
	}
}

func TestExtractUnreadablePDF(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>this is not a pdf</html>"))
	}))
	defer srv.Close()

	e := newExtractor(t)
	_, err := e.Extract(context.Background(), srv.URL+"/fake.pdf")

	var xerr *ExtractionError
	if !errors.As(err, &xerr) || xerr.Kind != KindUnreadablePDF {
		t.Fatalf("Extract() error = %v, want kind %s", err, KindUnreadablePDF)
	}
}

func TestExtractDownloadTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	e := newExtractor(t)
	e.Cfg.DownloadTimeout = 50 * time.Millisecond

	_, err := e.Extract(context.Background(), srv.URL+"/slow.pdf")

	var xerr *ExtractionError
	if !errors.As(err, &xerr) || xerr.Kind != KindDownloadTimeout {
		t.Fatalf("Extract() error = %v, want kind %s", err, KindDownloadTimeout)
	}
}

func TestExtractFailureNotCached(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	e := newExtractor(t)
	url := srv.URL + "/flaky.pdf"
	if _, err := e.Extract(context.Background(), url); err == nil {
		t.Fatal("Extract() error = nil, want failure")
	}
	if _, err := e.Store.Get(cacheKey(url)); err == nil {
		t.Error("failed extraction was cached")
	}
}

func TestEnrichKeepsRecordsAndReportsWarnings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	e := newExtractor(t)
	goodURL := "http://example.invalid/good.pdf"
	e.Store.Put(cacheKey(goodURL), []byte("precomputed text"))

	records := []types.PaperRecord{
		{Title: "Has cached text", Authors: []string{"A"}, PDFURL: goodURL},
		{Title: "Download fails", Authors: []string{"B"}, PDFURL: srv.URL + "/missing.pdf"},
		{Title: "No PDF at all", Authors: []string{"C"}},
	}

	out, warnings := e.Enrich(context.Background(), records)

	if len(out) != 3 {
		t.Fatalf("len(out) = %d, want 3 (failures keep the record)", len(out))
	}
	if out[0].FullText != "precomputed text" {
		t.Errorf("FullText = %q", out[0].FullText)
	}
	if out[1].FullText != "" {
		t.Errorf("failed record has FullText = %q", out[1].FullText)
	}
	if len(warnings) != 1 || warnings[0].Source != "fulltext" {
		t.Errorf("warnings = %v, want one fulltext warning", warnings)
	}
}
