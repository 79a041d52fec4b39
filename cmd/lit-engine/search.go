// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/literature-engine/internal/bib"
	"github.com/pdiddy/literature-engine/internal/cache"
	"github.com/pdiddy/literature-engine/internal/fulltext"
	"github.com/pdiddy/literature-engine/internal/search"
	"github.com/pdiddy/literature-engine/internal/source"
	"github.com/pdiddy/literature-engine/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search scholarly sources for papers",
	Long: `Search queries the enabled sources (arXiv, Semantic Scholar, OpenAlex,
and optionally PubMed) in parallel, merges records describing the same
paper, and prints them ranked by citation count and recency.

Responses are cached on disk, so re-running a query within the cache
TTL answers locally. Results can be written as a table, JSON, BibTeX,
or RIS, and the whole search can be saved to a YAML file for later
reloading with --load.`,
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	loadPath, _ := cmd.Flags().GetString("load")
	format, _ := cmd.Flags().GetString("format")

	if loadPath != "" {
		qf, err := search.ReadQueryFile(loadPath)
		if err != nil {
			return err
		}
		out := search.Output{
			Records:     qf.Records,
			DupsRemoved: qf.Summary.DuplicatesMerged,
		}
		return writeOutput(out, format)
	}

	query, err := queryFromFlags(cmd, args)
	if err != nil {
		return err
	}

	cfg := engineConfig()
	store := cache.Open(cfg.Cache)
	if store.Degraded() {
		fmt.Fprintf(os.Stderr, "warning: cache disabled: %v\n", store.Err())
	}
	defer store.Close()

	client := httpClient(cfg.Search.HTTPConfig)
	adapters := source.WithCache(store, source.Enabled(client, cfg.Search))

	o := &search.Orchestrator{
		Adapters: adapters,
		Extractor: &fulltext.Extractor{
			Client: httpClient(cfg.FullText.HTTPConfig),
			Store:  store,
			Cfg:    cfg.FullText,
		},
		Cfg: cfg.Search,
	}

	out, err := o.Run(cmd.Context(), query, os.Stderr)
	if err != nil {
		return err
	}

	if savePath, _ := cmd.Flags().GetString("save"); savePath != "" {
		if err := search.WriteQueryFile(savePath, query, out); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved search to %s\n", savePath)
	}

	return writeOutput(out, format)
}

// queryFromFlags builds the search query from flags and positional args.
func queryFromFlags(cmd *cobra.Command, args []string) (types.SearchQuery, error) {
	text, _ := cmd.Flags().GetString("query")
	if text == "" && len(args) > 0 {
		text = strings.Join(args, " ")
	}
	yearFrom, _ := cmd.Flags().GetInt("year-from")
	yearTo, _ := cmd.Flags().GetInt("year-to")
	sources, _ := cmd.Flags().GetStringSlice("sources")
	maxPerSource, _ := cmd.Flags().GetInt("max-per-source")
	fullText, _ := cmd.Flags().GetBool("full-text")

	q := types.SearchQuery{
		Text:            text,
		YearFrom:        yearFrom,
		YearTo:          yearTo,
		Sources:         sources,
		MaxPerSource:    maxPerSource,
		RequireFullText: fullText,
	}
	if q.IsEmpty() {
		return q, fmt.Errorf("query is empty: pass search text as an argument or --query")
	}
	if yearFrom > 0 && yearTo > 0 && yearFrom > yearTo {
		return q, fmt.Errorf("invalid year range: %d-%d", yearFrom, yearTo)
	}
	return q, nil
}

// writeOutput renders the result set in the requested format to stdout.
func writeOutput(out search.Output, format string) error {
	switch format {
	case "table", "":
		search.FormatTable(out, os.Stdout)
		return nil
	case "json":
		return search.FormatJSON(out, os.Stdout)
	case "bibtex":
		fmt.Print(bib.ToBibTeXList(out.Records))
		return nil
	case "ris":
		fmt.Print(bib.ToRISList(out.Records))
		return nil
	default:
		return fmt.Errorf("unsupported format %q: use table, json, bibtex, or ris", format)
	}
}

func init() {
	searchCmd.Flags().String("query", "", "free-text search query")
	searchCmd.Flags().Int("year-from", 0, "earliest publication year")
	searchCmd.Flags().Int("year-to", 0, "latest publication year")
	searchCmd.Flags().StringSlice("sources", nil, "restrict to named sources (arxiv, semantic_scholar, openalex, pubmed)")
	searchCmd.Flags().Int("max-per-source", 0, "per-source result cap (0 = config default)")
	searchCmd.Flags().Bool("full-text", false, "download PDFs and attach extracted text")
	searchCmd.Flags().String("format", "table", "output format: table, json, bibtex, or ris")
	searchCmd.Flags().String("save", "", "save the query and results to a YAML file")
	searchCmd.Flags().String("load", "", "render a previously saved query file instead of searching")

	rootCmd.AddCommand(searchCmd)
}
