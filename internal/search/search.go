// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search runs one query against every enabled source concurrently
// and turns the raw per-source records into a merged, ranked result set.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pdiddy/literature-engine/internal/fulltext"
	"github.com/pdiddy/literature-engine/internal/merge"
	"github.com/pdiddy/literature-engine/internal/source"
	"github.com/pdiddy/literature-engine/pkg/types"
)

// Orchestrator owns the fan-out to source adapters and the downstream
// merge, rank, and optional full-text enrichment stages.
type Orchestrator struct {
	Adapters  []source.Adapter
	Extractor *fulltext.Extractor
	Cfg       types.SearchConfig
}

// Output holds the ranked records and what happened on the way to them.
type Output struct {
	Records     []types.PaperRecord
	DupsRemoved int
	Warnings    []types.SourceWarning
}

// Run executes the query against all adapters concurrently. A failing
// source degrades to a warning; only the case where every source failed
// and nothing came back is an error. Progress notes go to w.
func (o *Orchestrator) Run(ctx context.Context, query types.SearchQuery, w io.Writer) (Output, error) {
	if query.IsEmpty() {
		return Output{}, fmt.Errorf("query is empty: provide search text")
	}
	adapters := o.selected(query)
	if len(adapters) == 0 {
		return Output{}, fmt.Errorf("no sources enabled for this query")
	}

	type sourceResult struct {
		name    string
		records []types.RawRecord
		err     error
	}

	timeout := o.Cfg.SourceTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	// Results are indexed by adapter position and concatenated in that
	// fixed order after the fan-in, so goroutine completion order never
	// reaches the merger and identical queries always merge identically.
	results := make([]sourceResult, len(adapters))
	var wg sync.WaitGroup
	for i, a := range adapters {
		wg.Add(1)
		go func(i int, a source.Adapter) {
			defer wg.Done()
			sctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			records, err := a.Search(sctx, query, o.Cfg)
			results[i] = sourceResult{name: a.Name(), records: records, err: err}
		}(i, a)
	}
	wg.Wait()

	var raws []types.RawRecord
	var warnings []types.SourceWarning
	failed := 0
	for _, sr := range results {
		if sr.err != nil {
			failed++
			warnings = append(warnings, types.SourceWarning{
				Source:  sr.name,
				Message: sr.err.Error(),
			})
			fmt.Fprintf(w, "warning: source %s failed: %v\n", sr.name, sr.err)
			continue
		}
		fmt.Fprintf(w, "%s: %d records\n", sr.name, len(sr.records))
		raws = append(raws, sr.records...)
	}

	if failed == len(adapters) && len(raws) == 0 {
		return Output{Warnings: warnings}, fmt.Errorf("all %d sources failed", failed)
	}

	records, mergeWarnings := merge.Merge(raws, o.Cfg.SourcePriority)
	warnings = append(warnings, mergeWarnings...)
	removed := len(raws) - len(mergeWarnings) - len(records)

	Rank(records)

	if query.RequireFullText && o.Extractor != nil {
		var ftWarnings []types.SourceWarning
		records, ftWarnings = o.Extractor.Enrich(ctx, records)
		warnings = append(warnings, ftWarnings...)
	}

	return Output{Records: records, DupsRemoved: removed, Warnings: warnings}, nil
}

// selected filters the configured adapters down to what the query asks for.
func (o *Orchestrator) selected(query types.SearchQuery) []source.Adapter {
	if len(query.Sources) == 0 {
		return o.Adapters
	}
	var out []source.Adapter
	for _, a := range o.Adapters {
		if query.WantsSource(a.Name()) {
			out = append(out, a)
		}
	}
	return out
}

// Rank orders records by reported citation count descending, then year
// descending, then title, then canonical key. The order is total, so the
// same result set always renders the same way.
func Rank(records []types.PaperRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := &records[i], &records[j]
		if a.CitationCount != b.CitationCount {
			return a.CitationCount > b.CitationCount
		}
		if a.Year != b.Year {
			return a.Year > b.Year
		}
		ta, tb := strings.ToLower(a.Title), strings.ToLower(b.Title)
		if ta != tb {
			return ta < tb
		}
		return merge.Key(a) < merge.Key(b)
	})
}

// FormatTable writes records as a human-readable table to w.
func FormatTable(out Output, w io.Writer) {
	if len(out.Records) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-60s  %-20s  %-4s  %-6s  %s\n",
		"Rank", "Title", "Authors", "Year", "Cites", "Sources")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for i, r := range out.Records {
		title := r.Title
		if len(title) > 60 {
			title = title[:57] + "..."
		}
		year := ""
		if r.Year > 0 {
			year = fmt.Sprintf("%d", r.Year)
		}
		fmt.Fprintf(w, "%-4d  %-60s  %-20s  %-4s  %-6d  %s\n",
			i+1, title, formatAuthors(r.Authors), year, r.CitationCount, sourceList(r))
	}

	fmt.Fprintf(w, "\n%d results", len(out.Records))
	if out.DupsRemoved > 0 {
		fmt.Fprintf(w, " (%d duplicates merged)", out.DupsRemoved)
	}
	fmt.Fprintln(w)

	for _, warn := range out.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
}

// FormatJSON writes records as indented JSON to w.
func FormatJSON(out Output, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out.Records)
}

// sourceList renders the contributing source names, sorted.
func sourceList(r types.PaperRecord) string {
	names := make([]string, 0, len(r.SourceIDs))
	for name := range r.SourceIDs {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

func formatAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return truncate(authors[0], 20)
	default:
		return truncate(authors[0], 14) + " et al."
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
