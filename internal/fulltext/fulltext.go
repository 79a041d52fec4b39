// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fulltext downloads paper PDFs and extracts their text. Extracted
// text is cached by PDF URL through the shared cache store, so repeated
// enrichment of the same paper costs one download. Failures are typed and
// per-record: the caller attaches them as warnings and keeps the record.
package fulltext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/pdiddy/literature-engine/internal/cache"
	"github.com/pdiddy/literature-engine/pkg/types"
)

// Failure kinds, attached to ExtractionError.
const (
	KindDownloadTimeout   = "download_timeout"
	KindDownloadHTTPError = "download_http_error"
	KindUnreadablePDF     = "unreadable_pdf"
)

// ExtractionError describes why full text could not be produced for one
// PDF URL. It is never fatal to a search: the record survives without text.
type ExtractionError struct {
	Kind string
	URL  string
	Err  error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.URL, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.URL)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Extractor downloads PDFs and extracts text, consulting the cache store
// before any network work.
type Extractor struct {
	Client *http.Client
	Store  *cache.Store
	Cfg    types.FullTextConfig
}

// cacheKey derives the store key for one PDF URL.
func cacheKey(pdfURL string) string {
	return cache.Key("fulltext", pdfURL)
}

// Extract returns the text of the PDF at pdfURL, from cache when possible.
// On a miss it downloads the file under the configured per-download
// timeout, extracts the text, and stores it.
func (e *Extractor) Extract(ctx context.Context, pdfURL string) (string, error) {
	key := cacheKey(pdfURL)
	if data, err := e.Store.Get(key); err == nil {
		return string(data), nil
	}

	data, err := e.download(ctx, pdfURL)
	if err != nil {
		return "", err
	}

	text, err := extractText(data, e.Cfg.MaxPages)
	if err != nil {
		return "", &ExtractionError{Kind: KindUnreadablePDF, URL: pdfURL, Err: err}
	}

	e.Store.Put(key, []byte(text))
	return text, nil
}

func (e *Extractor) download(ctx context.Context, pdfURL string) ([]byte, error) {
	timeout := e.Cfg.DownloadTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pdfURL, nil)
	if err != nil {
		return nil, &ExtractionError{Kind: KindDownloadHTTPError, URL: pdfURL, Err: err}
	}
	req.Header.Set("User-Agent", e.Cfg.UserAgent)
	req.Header.Set("Accept", "application/pdf")

	resp, err := e.Client.Do(req)
	if err != nil {
		kind := KindDownloadHTTPError
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			kind = KindDownloadTimeout
		}
		return nil, &ExtractionError{Kind: kind, URL: pdfURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ExtractionError{
			Kind: KindDownloadHTTPError,
			URL:  pdfURL,
			Err:  fmt.Errorf("HTTP %d", resp.StatusCode),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		kind := KindDownloadHTTPError
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			kind = KindDownloadTimeout
		}
		return nil, &ExtractionError{Kind: kind, URL: pdfURL, Err: err}
	}
	return data, nil
}

// extractText pulls plain text from up to maxPages pages (0 = all).
func extractText(data []byte, maxPages int) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	pages := reader.NumPage()
	if maxPages > 0 && pages > maxPages {
		pages = maxPages
	}

	var b strings.Builder
	extracted := 0
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
		extracted++
	}

	if extracted == 0 {
		return "", fmt.Errorf("no extractable text in %d page(s)", reader.NumPage())
	}
	return b.String(), nil
}

// Enrich attaches full text to every record carrying a PDF URL, running at
// most Cfg.MaxConcurrent downloads at once. Per-record failures become
// warnings naming the record; the record itself stays in the result set.
func (e *Extractor) Enrich(ctx context.Context, records []types.PaperRecord) ([]types.PaperRecord, []types.SourceWarning) {
	limit := e.Cfg.MaxConcurrent
	if limit <= 0 {
		limit = 4
	}
	sem := make(chan struct{}, limit)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var warnings []types.SourceWarning

	for i := range records {
		if records[i].PDFURL == "" || records[i].FullText != "" {
			continue
		}
		wg.Add(1)
		go func(rec *types.PaperRecord) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			text, err := e.Extract(ctx, rec.PDFURL)
			if err != nil {
				mu.Lock()
				warnings = append(warnings, types.SourceWarning{
					Source:  "fulltext",
					Record:  rec.PDFURL,
					Message: err.Error(),
				})
				mu.Unlock()
				return
			}
			rec.FullText = text
		}(&records[i])
	}
	wg.Wait()

	return records, warnings
}
