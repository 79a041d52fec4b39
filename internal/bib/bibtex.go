// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package bib encodes and decodes paper records as BibTeX and RIS, the two
// interchange formats reference managers accept. Encoding is lossy by
// nature: only the bibliographic fields travel, not source IDs, payloads,
// or full text.
package bib

import (
	"fmt"
	"strings"

	"github.com/pdiddy/literature-engine/pkg/types"
)

// ToBibTeX renders one record as a BibTeX entry.
func ToBibTeX(p types.PaperRecord) string {
	entryType := determineEntryType(p)
	var b strings.Builder

	b.WriteString(fmt.Sprintf("@%s{%s,\n", entryType, CitationKey(p)))

	if len(p.Authors) > 0 {
		b.WriteString(fmt.Sprintf("  author = {%s},\n", formatAuthors(p.Authors)))
	}
	b.WriteString(fmt.Sprintf("  title = {%s},\n", escapeLatex(p.Title)))
	if p.Venue != "" {
		fieldName := "journal"
		if entryType == "inproceedings" {
			fieldName = "booktitle"
		}
		b.WriteString(fmt.Sprintf("  %s = {%s},\n", fieldName, escapeLatex(p.Venue)))
	}
	if p.Year > 0 {
		b.WriteString(fmt.Sprintf("  year = {%d},\n", p.Year))
	}
	if p.DOI != "" {
		b.WriteString(fmt.Sprintf("  doi = {%s},\n", p.DOI))
	}
	if p.PDFURL != "" {
		b.WriteString(fmt.Sprintf("  url = {%s},\n", p.PDFURL))
	}
	if p.Abstract != "" {
		b.WriteString(fmt.Sprintf("  abstract = {%s},\n", escapeLatex(p.Abstract)))
	}
	b.WriteString("}\n")

	return b.String()
}

// ToBibTeXList renders records as a BibTeX file body, one entry per record.
// Citation keys are disambiguated with letter suffixes when they collide.
func ToBibTeXList(records []types.PaperRecord) string {
	seen := make(map[string]int)
	var entries []string
	for _, p := range records {
		entry := ToBibTeX(p)
		key := CitationKey(p)
		if n := seen[key]; n > 0 {
			suffix := string(rune('a' + n - 1))
			entry = strings.Replace(entry, "{"+key+",", "{"+key+suffix+",", 1)
		}
		seen[key]++
		entries = append(entries, entry)
	}
	return strings.Join(entries, "\n")
}

// CitationKey derives a stable citation key: first author surname, year,
// and the first meaningful title word, all lowercased.
func CitationKey(p types.PaperRecord) string {
	var parts []string
	if len(p.Authors) > 0 {
		if last := surname(p.Authors[0]); last != "" {
			parts = append(parts, strings.ToLower(keyChars(last)))
		}
	}
	if p.Year > 0 {
		parts = append(parts, fmt.Sprintf("%d", p.Year))
	}
	if word := firstTitleWord(p.Title); word != "" {
		parts = append(parts, word)
	}
	if len(parts) == 0 {
		return "unknown"
	}
	return strings.Join(parts, "")
}

// titleStopwords are skipped when picking the title word for a key.
var titleStopwords = map[string]bool{
	"a": true, "an": true, "the": true, "on": true, "of": true,
	"in": true, "for": true, "to": true, "and": true, "is": true,
}

func firstTitleWord(title string) string {
	for _, word := range strings.Fields(strings.ToLower(title)) {
		word = keyChars(word)
		if word == "" || titleStopwords[word] {
			continue
		}
		return word
	}
	return ""
}

// keyChars keeps only characters safe in a citation key.
func keyChars(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// surname returns the family name of a natural-order author string. Names
// already written "Last, First" return the part before the comma.
func surname(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.Index(name, ","); i >= 0 {
		return strings.TrimSpace(name[:i])
	}
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// formatAuthors renders authors in BibTeX style: "Last, First and Last, First".
func formatAuthors(authors []string) string {
	var formatted []string
	for _, name := range authors {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if strings.Contains(name, ",") {
			formatted = append(formatted, name)
			continue
		}
		fields := strings.Fields(name)
		if len(fields) < 2 {
			formatted = append(formatted, name)
			continue
		}
		last := fields[len(fields)-1]
		first := strings.Join(fields[:len(fields)-1], " ")
		formatted = append(formatted, fmt.Sprintf("%s, %s", last, first))
	}
	return strings.Join(formatted, " and ")
}

// determineEntryType picks the BibTeX entry type from the venue.
func determineEntryType(p types.PaperRecord) string {
	venue := strings.ToLower(p.Venue)

	if strings.Contains(venue, "arxiv") ||
		strings.Contains(venue, "biorxiv") ||
		strings.Contains(venue, "medrxiv") {
		return "article"
	}
	if strings.Contains(venue, "proceedings") ||
		strings.Contains(venue, "conference") ||
		strings.Contains(venue, "workshop") ||
		strings.Contains(venue, "symposium") {
		return "inproceedings"
	}
	return "article"
}

// escapeLatex escapes special LaTeX characters.
func escapeLatex(s string) string {
	// Order matters: & must be first (before other escapes that might produce &)
	replacer := strings.NewReplacer(
		"&", `\&`,
		"%", `\%`,
		"$", `\$`,
		"#", `\#`,
		"_", `\_`,
		"{", `\{`,
		"}", `\}`,
		"~", `\textasciitilde{}`,
		"^", `\textasciicircum{}`,
	)
	return replacer.Replace(s)
}

// The unescape runs in two stages around brace stripping: the brace-bearing
// macros must be rewritten while their braces still exist, and the
// single-character escapes only after stripping, so that \{ survives as a
// literal brace.
var latexMacroReplacer = strings.NewReplacer(
	`\textasciitilde{}`, "~",
	`\textasciicircum{}`, "^",
)

var latexEscapeReplacer = strings.NewReplacer(
	`\&`, "&",
	`\%`, "%",
	`\$`, "$",
	`\#`, "#",
	`\_`, "_",
	`\{`, "{",
	`\}`, "}",
)
