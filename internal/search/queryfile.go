// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/literature-engine/pkg/types"
)

// QueryFile is the on-disk representation of a search query and its
// results. A search can be saved to a file and reloaded later without
// re-querying the source APIs.
type QueryFile struct {
	Query   QueryParams         `yaml:"query"`
	Records []types.PaperRecord `yaml:"records"`
	Summary QuerySummary        `yaml:"summary"`
}

// QueryParams stores the query parameters in a serializable form.
type QueryParams struct {
	Text            string   `yaml:"text"`
	YearFrom        int      `yaml:"year_from,omitempty"`
	YearTo          int      `yaml:"year_to,omitempty"`
	Sources         []string `yaml:"sources,omitempty"`
	MaxPerSource    int      `yaml:"max_per_source,omitempty"`
	RequireFullText bool     `yaml:"require_full_text,omitempty"`
}

// QuerySummary stores result statistics and a timestamp.
type QuerySummary struct {
	Total            int       `yaml:"total"`
	DuplicatesMerged int       `yaml:"duplicates_merged"`
	Warnings         []string  `yaml:"warnings,omitempty"`
	Timestamp        time.Time `yaml:"timestamp"`
}

// WriteQueryFile saves query parameters and results to a YAML file.
func WriteQueryFile(path string, query types.SearchQuery, out Output) error {
	qf := QueryFile{
		Query: QueryParams{
			Text:            query.Text,
			YearFrom:        query.YearFrom,
			YearTo:          query.YearTo,
			Sources:         query.Sources,
			MaxPerSource:    query.MaxPerSource,
			RequireFullText: query.RequireFullText,
		},
		Records: out.Records,
		Summary: QuerySummary{
			Total:            len(out.Records),
			DuplicatesMerged: out.DupsRemoved,
			Timestamp:        time.Now(),
		},
	}
	for _, warn := range out.Warnings {
		qf.Summary.Warnings = append(qf.Summary.Warnings, warn.String())
	}

	data, err := yaml.Marshal(&qf)
	if err != nil {
		return fmt.Errorf("marshaling query file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadQueryFile loads a previously saved query file from disk.
func ReadQueryFile(path string) (*QueryFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading query file: %w", err)
	}
	var qf QueryFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return nil, fmt.Errorf("parsing query file: %w", err)
	}
	return &qf, nil
}

// ToQuery converts stored QueryParams back into a SearchQuery.
func (p QueryParams) ToQuery() types.SearchQuery {
	return types.SearchQuery{
		Text:            p.Text,
		YearFrom:        p.YearFrom,
		YearTo:          p.YearTo,
		Sources:         p.Sources,
		MaxPerSource:    p.MaxPerSource,
		RequireFullText: p.RequireFullText,
	}
}
