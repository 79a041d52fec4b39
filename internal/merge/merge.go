// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package merge

import (
	"encoding/json"
	"sort"

	"github.com/pdiddy/literature-engine/pkg/types"
)

// Key returns the canonical identity of a record: its normalized DOI when
// present, otherwise the title+first-author key. Empty only for records
// that would fail validation.
func Key(p *types.PaperRecord) string {
	if p.DOI != "" {
		return "doi:" + p.DOI
	}
	if k := TitleAuthorKey(p.Title, p.FirstAuthor()); k != "" {
		return "ta:" + k
	}
	return ""
}

// Normalize converts a RawRecord into PaperRecord shape. It returns
// types.ErrInvalidRecord for records with no usable identity.
func Normalize(raw types.RawRecord) (types.PaperRecord, error) {
	p := types.PaperRecord{
		Title:         raw.Title,
		Authors:       raw.Authors,
		Abstract:      raw.Abstract,
		Year:          raw.Year,
		Venue:         raw.Venue,
		DOI:           NormalizeDOI(raw.DOI),
		CitationCount: raw.CitationCount,
		PDFURL:        raw.PDFURL,
	}
	if raw.SourceID != "" {
		p.SourceIDs = map[string]string{raw.Source: raw.SourceID}
	}
	if len(raw.Raw) > 0 {
		p.RawPayloads = map[string]json.RawMessage{raw.Source: raw.Raw}
	}
	if err := p.Validate(); err != nil {
		return types.PaperRecord{}, err
	}
	return p, nil
}

// group accumulates the members that resolved to one paper, with the
// source name each arrived from.
type group struct {
	doi     string
	members []member
}

type member struct {
	source string
	rec    types.PaperRecord
}

// Merge collapses records representing the same paper across sources into
// one canonical record each. Invalid records are dropped with a warning;
// everything else survives. Grouping is order-independent: DOI-carrying
// records group by exact DOI first, then each title+author key binds to
// the group with the lexicographically smallest DOI, so a DOI-less record
// lands in the same group however its input is ordered. The operation is
// idempotent: merged records carry all contributing keys, so a second
// pass finds nothing to collapse.
func Merge(raws []types.RawRecord, priority []string) ([]types.PaperRecord, []types.SourceWarning) {
	var warnings []types.SourceWarning
	var items []member
	for _, raw := range raws {
		rec, err := Normalize(raw)
		if err != nil {
			warnings = append(warnings, types.SourceWarning{
				Source:  raw.Source,
				Record:  raw.SourceID,
				Message: err.Error(),
			})
			continue
		}
		items = append(items, member{source: raw.Source, rec: rec})
	}

	var groups []*group
	byDOI := make(map[string]int)
	for _, it := range items {
		if it.rec.DOI == "" {
			continue
		}
		idx, ok := byDOI[it.rec.DOI]
		if !ok {
			idx = len(groups)
			groups = append(groups, &group{doi: it.rec.DOI})
			byDOI[it.rec.DOI] = idx
		}
		groups[idx].members = append(groups[idx].members, it)
	}

	// Two papers with distinct DOIs may share a title; a title key is
	// bound to exactly one of the competing groups, chosen by smallest
	// DOI rather than encounter order.
	byTitle := make(map[string]int)
	for idx, g := range groups {
		for _, m := range g.members {
			tk := TitleAuthorKey(m.rec.Title, m.rec.FirstAuthor())
			if tk == "" {
				continue
			}
			if prev, ok := byTitle[tk]; !ok || g.doi < groups[prev].doi {
				byTitle[tk] = idx
			}
		}
	}

	for _, it := range items {
		if it.rec.DOI != "" {
			continue
		}
		idx := -1
		if tk := TitleAuthorKey(it.rec.Title, it.rec.FirstAuthor()); tk != "" {
			if i, ok := byTitle[tk]; ok {
				idx = i
			} else {
				idx = len(groups)
				groups = append(groups, &group{})
				byTitle[tk] = idx
			}
		}
		if idx < 0 {
			idx = len(groups)
			groups = append(groups, &group{})
		}
		groups[idx].members = append(groups[idx].members, it)
	}

	merged := make([]types.PaperRecord, 0, len(groups))
	for _, g := range groups {
		merged = append(merged, collapse(g, priority))
	}
	return merged, warnings
}

// collapse merges a group's members into one record. Members are ordered
// by explicit source priority, then metadata richness, then reported
// citation count, then source name; scalar fields take the first
// non-empty value in that order, while source IDs and raw payloads union
// across all members. The order is total over distinct sources, so the
// winner never depends on input order.
func collapse(g *group, priority []string) types.PaperRecord {
	rank := func(m member) int {
		for i, name := range priority {
			if m.source == name {
				return i
			}
		}
		return len(priority)
	}
	sort.SliceStable(g.members, func(i, j int) bool {
		mi, mj := g.members[i], g.members[j]
		if ri, rj := rank(mi), rank(mj); ri != rj {
			return ri < rj
		}
		if wi, wj := mi.rec.Richness(), mj.rec.Richness(); wi != wj {
			return wi > wj
		}
		if mi.rec.CitationCount != mj.rec.CitationCount {
			return mi.rec.CitationCount > mj.rec.CitationCount
		}
		return mi.source < mj.source
	})

	var out types.PaperRecord
	for _, m := range g.members {
		rec := m.rec
		if out.Title == "" {
			out.Title = rec.Title
		}
		if len(out.Authors) == 0 {
			out.Authors = rec.Authors
		}
		if out.Abstract == "" {
			out.Abstract = rec.Abstract
		}
		if out.Year == 0 {
			out.Year = rec.Year
		}
		if out.Venue == "" {
			out.Venue = rec.Venue
		}
		if out.DOI == "" {
			out.DOI = rec.DOI
		}
		if out.CitationCount == 0 {
			out.CitationCount = rec.CitationCount
		}
		if out.PDFURL == "" {
			out.PDFURL = rec.PDFURL
		}
		for src, id := range rec.SourceIDs {
			if out.SourceIDs == nil {
				out.SourceIDs = make(map[string]string)
			}
			out.SourceIDs[src] = id
		}
		for src, raw := range rec.RawPayloads {
			if out.RawPayloads == nil {
				out.RawPayloads = make(map[string]json.RawMessage)
			}
			out.RawPayloads[src] = raw
		}
	}
	return out
}
