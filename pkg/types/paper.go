// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the literature engine:
// the unified paper record, raw per-source records, search queries, result
// warnings, and stage configuration.
package types

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrInvalidRecord is returned when a record carries no usable identity:
// no DOI, no title+author pair, and no per-source identifier. Such a record
// is dropped; the batch it arrived in is not affected.
var ErrInvalidRecord = errors.New("record has no DOI, title+author, or source identifier")

// RawRecord is one result from a single source, before normalization and
// merging. Fields mirror what bibliographic APIs commonly return; a source
// fills what it has and leaves the rest zero.
type RawRecord struct {
	// Source identifies the adapter that produced this record
	// (e.g. "arxiv", "semantic_scholar", "openalex", "pubmed").
	Source string `json:"source" yaml:"source"`

	// SourceID is the source's native identifier (arXiv ID, S2 paper ID,
	// OpenAlex work ID, PMID).
	SourceID string `json:"source_id" yaml:"source_id"`

	// Title is the paper title as returned by the source.
	Title string `json:"title" yaml:"title"`

	// Authors lists author names in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Abstract is the paper abstract, when the source provides one.
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// Year is the publication year; 0 when unknown.
	Year int `json:"year,omitempty" yaml:"year,omitempty"`

	// Venue is the journal or conference name.
	Venue string `json:"venue,omitempty" yaml:"venue,omitempty"`

	// DOI is the source-reported DOI, not yet normalized.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// CitationCount is the source-reported citation count; 0 means
	// unreported (ranking treats the two identically).
	CitationCount int `json:"citation_count,omitempty" yaml:"citation_count,omitempty"`

	// PDFURL points at an open-access PDF, when the source knows one.
	PDFURL string `json:"pdf_url,omitempty" yaml:"pdf_url,omitempty"`

	// Raw is the source's original payload, retained for provenance.
	Raw json.RawMessage `json:"raw,omitempty" yaml:"-"`
}

// PaperRecord is the canonical unified representation of one paper, produced
// by merging RawRecords across sources. A valid record carries at least one
// of: a DOI, a title plus first author, or one source identifier.
type PaperRecord struct {
	Title    string   `json:"title" yaml:"title"`
	Authors  []string `json:"authors,omitempty" yaml:"authors,omitempty"`
	Abstract string   `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	Year     int      `json:"year,omitempty" yaml:"year,omitempty"`
	Venue    string   `json:"venue,omitempty" yaml:"venue,omitempty"`

	// DOI is normalized: lowercase, no resolver prefix. Strongest merge key.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// SourceIDs maps source name to that source's native identifier.
	// A merged record carries one entry per contributing source.
	SourceIDs map[string]string `json:"source_ids,omitempty" yaml:"source_ids,omitempty"`

	// CitationCount is the source-reported citation count (0 = unreported).
	CitationCount int `json:"citation_count,omitempty" yaml:"citation_count,omitempty"`

	PDFURL string `json:"pdf_url,omitempty" yaml:"pdf_url,omitempty"`

	// FullText is populated lazily by the full-text extractor.
	FullText string `json:"full_text,omitempty" yaml:"full_text,omitempty"`

	// RawPayloads maps source name to the original record for provenance.
	RawPayloads map[string]json.RawMessage `json:"-" yaml:"-"`
}

// Validate reports ErrInvalidRecord when the record has no usable identity.
func (p *PaperRecord) Validate() error {
	if p.DOI != "" {
		return nil
	}
	if strings.TrimSpace(p.Title) != "" && len(p.Authors) > 0 {
		return nil
	}
	if len(p.SourceIDs) > 0 {
		return nil
	}
	return ErrInvalidRecord
}

// FirstAuthor returns the first author name, or "" for an anonymous record.
func (p *PaperRecord) FirstAuthor() string {
	if len(p.Authors) == 0 {
		return ""
	}
	return p.Authors[0]
}

// Richness counts populated metadata fields. The merger uses it to decide
// which contributing source's scalar values win when no explicit source
// priority is configured.
func (p *PaperRecord) Richness() int {
	n := 0
	if p.Title != "" {
		n++
	}
	if len(p.Authors) > 0 {
		n++
	}
	if p.Abstract != "" {
		n++
	}
	if p.Year != 0 {
		n++
	}
	if p.Venue != "" {
		n++
	}
	if p.DOI != "" {
		n++
	}
	if p.CitationCount > 0 {
		n++
	}
	if p.PDFURL != "" {
		n++
	}
	return n
}
