// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package source wraps external bibliographic data providers behind a common
// Adapter interface. Each adapter queries one API, applies the per-source
// result cap, and returns raw records; failures stay isolated to the adapter
// that hit them. The Cached decorator routes results through the shared
// cache store keyed by (source, normalized query signature).
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/pdiddy/literature-engine/internal/cache"
	"github.com/pdiddy/literature-engine/pkg/types"
)

// Adapter searches a single bibliographic source. Implementations follow
// the Strategy pattern: the orchestrator fans a query out to every enabled
// adapter and treats each result independently.
type Adapter interface {
	Name() string
	Search(ctx context.Context, query types.SearchQuery, cfg types.SearchConfig) ([]types.RawRecord, error)
}

// NormalizeQuery canonicalizes free text for cache keying: lowercase with
// collapsed whitespace, so trivially reworded requests share an entry.
func NormalizeQuery(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// maxPerSource resolves the per-adapter result cap: query override first,
// then config, then the default of 100.
func maxPerSource(query types.SearchQuery, cfg types.SearchConfig) int {
	if query.MaxPerSource > 0 {
		return query.MaxPerSource
	}
	if cfg.MaxPerSource > 0 {
		return cfg.MaxPerSource
	}
	return 100
}

// retries resolves the transient-failure attempt ceiling (default 3).
func retries(cfg types.SearchConfig) int {
	if cfg.MaxRetries > 0 {
		return cfg.MaxRetries
	}
	return 3
}

// Cached decorates an Adapter with read-through caching. The key covers the
// source name and the query signature (normalized text, year range, result
// cap), so each source caches independently and filter changes never reuse
// a stale entry.
type Cached struct {
	Adapter
	Store *cache.Store
}

// Search returns the cached result set when a fresh entry exists, otherwise
// performs a live search and stores the outcome. Cache failures are
// invisible here: a degraded store simply misses.
func (c *Cached) Search(ctx context.Context, query types.SearchQuery, cfg types.SearchConfig) ([]types.RawRecord, error) {
	key := c.cacheKey(query, cfg)

	if data, err := c.Store.Get(key); err == nil {
		var records []types.RawRecord
		if jsonErr := json.Unmarshal(data, &records); jsonErr == nil {
			return records, nil
		}
		// Undecodable entry: fall through to a live fetch that overwrites it.
	}

	records, err := c.Adapter.Search(ctx, query, cfg)
	if err != nil {
		return nil, err
	}

	if data, jsonErr := json.Marshal(records); jsonErr == nil {
		c.Store.Put(key, data)
	}
	return records, nil
}

func (c *Cached) cacheKey(query types.SearchQuery, cfg types.SearchConfig) string {
	return cache.Key(
		c.Adapter.Name(),
		NormalizeQuery(query.Text),
		strconv.Itoa(query.YearFrom),
		strconv.Itoa(query.YearTo),
		strconv.Itoa(maxPerSource(query, cfg)),
	)
}

// WithCache wraps each adapter with the caching decorator. A nil store
// returns the adapters unchanged.
func WithCache(store *cache.Store, adapters []Adapter) []Adapter {
	if store == nil {
		return adapters
	}
	wrapped := make([]Adapter, len(adapters))
	for i, a := range adapters {
		wrapped[i] = &Cached{Adapter: a, Store: store}
	}
	return wrapped
}

// Enabled constructs the adapters the configuration turns on, in a stable
// order. Credentials come from cfg (which the CLI fills from secrets).
func Enabled(client *http.Client, cfg types.SearchConfig) []Adapter {
	var adapters []Adapter
	if cfg.EnableArxiv {
		adapters = append(adapters, NewArxiv(client))
	}
	if cfg.EnableSemanticScholar {
		adapters = append(adapters, NewSemanticScholar(client, cfg.SemanticScholarAPIKey))
	}
	if cfg.EnableOpenAlex {
		adapters = append(adapters, NewOpenAlex(client, cfg.OpenAlexEmail))
	}
	if cfg.EnablePubMed {
		adapters = append(adapters, NewPubMed(client, cfg.PubMedAPIKey))
	}
	return adapters
}

// yearFilter formats a year range like "2020-2023", "2020-", or "-2023";
// empty when the query is unbounded. Shared by adapters whose APIs take a
// range parameter.
func yearFilter(query types.SearchQuery) string {
	switch {
	case query.YearFrom > 0 && query.YearTo > 0:
		return fmt.Sprintf("%d-%d", query.YearFrom, query.YearTo)
	case query.YearFrom > 0:
		return fmt.Sprintf("%d-", query.YearFrom)
	case query.YearTo > 0:
		return fmt.Sprintf("-%d", query.YearTo)
	default:
		return ""
	}
}
