// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package bib

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pdiddy/literature-engine/pkg/types"
)

// ParseBibTeX decodes a BibTeX file body into records. Parsing is best
// effort: an entry that cannot be decoded yields a warning and the rest of
// the file is still read. @comment, @preamble, and @string blocks are
// skipped.
func ParseBibTeX(data string) ([]types.PaperRecord, []types.SourceWarning) {
	var records []types.PaperRecord
	var warnings []types.SourceWarning

	pos := 0
	for {
		at := strings.IndexByte(data[pos:], '@')
		if at < 0 {
			break
		}
		pos += at

		rec, key, next, err := parseEntry(data, pos)
		if err != nil {
			warnings = append(warnings, types.SourceWarning{
				Source:  "bibtex",
				Record:  key,
				Message: err.Error(),
			})
			// Skip past the failed '@' and keep scanning.
			pos++
			continue
		}
		pos = next
		if rec == nil {
			continue // non-record block
		}
		records = append(records, *rec)
	}

	return records, warnings
}

// parseEntry decodes one @type{key, field = value, ...} block starting at
// the '@' at data[pos]. It returns nil without error for non-record blocks.
func parseEntry(data string, pos int) (*types.PaperRecord, string, int, error) {
	i := pos + 1
	start := i
	for i < len(data) && data[i] != '{' && data[i] != '(' {
		i++
	}
	if i >= len(data) {
		return nil, "", i, fmt.Errorf("unterminated entry at offset %d", pos)
	}
	entryType := strings.ToLower(strings.TrimSpace(data[start:i]))
	i++ // consume opening brace

	switch entryType {
	case "comment", "preamble", "string":
		end, err := skipBalanced(data, i)
		return nil, "", end, err
	}

	// Citation key up to the first comma.
	keyEnd := i
	for keyEnd < len(data) && data[keyEnd] != ',' && data[keyEnd] != '}' {
		keyEnd++
	}
	if keyEnd >= len(data) {
		return nil, "", keyEnd, fmt.Errorf("unterminated entry %q", entryType)
	}
	key := strings.TrimSpace(data[i:keyEnd])
	i = keyEnd
	if data[i] == ',' {
		i++
	}

	fields := make(map[string]string)
	for {
		i = skipSpace(data, i)
		if i >= len(data) {
			return nil, key, i, fmt.Errorf("entry %q: missing closing brace", key)
		}
		if data[i] == '}' {
			i++
			break
		}
		if data[i] == ',' {
			i++
			continue
		}

		nameStart := i
		for i < len(data) && data[i] != '=' && data[i] != '}' {
			i++
		}
		if i >= len(data) || data[i] == '}' {
			return nil, key, i, fmt.Errorf("entry %q: field without value", key)
		}
		name := strings.ToLower(strings.TrimSpace(data[nameStart:i]))
		i++ // consume '='

		value, next, err := parseValue(data, i)
		if err != nil {
			return nil, key, next, fmt.Errorf("entry %q: %v", key, err)
		}
		i = next
		if name != "" {
			fields[name] = value
		}
	}

	rec := recordFromFields(fields)
	if err := rec.Validate(); err != nil {
		return nil, key, i, fmt.Errorf("entry %q: %v", key, err)
	}
	return &rec, key, i, nil
}

// parseValue reads a field value: a balanced {...} group, a quoted string,
// or a bare token (numbers, macro names).
func parseValue(data string, i int) (string, int, error) {
	i = skipSpace(data, i)
	if i >= len(data) {
		return "", i, fmt.Errorf("missing value")
	}

	switch data[i] {
	case '{':
		depth := 0
		start := i + 1
		for ; i < len(data); i++ {
			switch data[i] {
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					return data[start:i], i + 1, nil
				}
			}
		}
		return "", i, fmt.Errorf("unbalanced braces in value")
	case '"':
		start := i + 1
		for j := start; j < len(data); j++ {
			if data[j] == '"' && data[j-1] != '\\' {
				return data[start:j], j + 1, nil
			}
		}
		return "", i, fmt.Errorf("unterminated quoted value")
	default:
		start := i
		for i < len(data) && data[i] != ',' && data[i] != '}' && data[i] != '\n' {
			i++
		}
		return strings.TrimSpace(data[start:i]), i, nil
	}
}

func skipBalanced(data string, i int) (int, error) {
	depth := 1
	for ; i < len(data); i++ {
		switch data[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1, nil
			}
		}
	}
	return i, fmt.Errorf("unbalanced block")
}

func skipSpace(data string, i int) int {
	for i < len(data) && (data[i] == ' ' || data[i] == '\t' || data[i] == '\n' || data[i] == '\r') {
		i++
	}
	return i
}

// recordFromFields maps decoded BibTeX fields onto a record.
func recordFromFields(fields map[string]string) types.PaperRecord {
	clean := func(s string) string {
		s = latexMacroReplacer.Replace(s)
		s = stripBraces(s)
		s = latexEscapeReplacer.Replace(s)
		return strings.Join(strings.Fields(s), " ")
	}

	rec := types.PaperRecord{
		Title:    clean(fields["title"]),
		Abstract: clean(fields["abstract"]),
		DOI:      strings.TrimSpace(fields["doi"]),
		PDFURL:   strings.TrimSpace(fields["url"]),
	}
	if v := fields["journal"]; v != "" {
		rec.Venue = clean(v)
	} else if v := fields["booktitle"]; v != "" {
		rec.Venue = clean(v)
	}
	if y, err := strconv.Atoi(strings.TrimSpace(stripBraces(fields["year"]))); err == nil {
		rec.Year = y
	}
	if authors := fields["author"]; authors != "" {
		rec.Authors = parseAuthors(clean(authors))
	}
	return rec
}

// stripBraces removes grouping braces that protect capitalization, keeping
// the text inside them.
func stripBraces(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if (s[i] == '{' || s[i] == '}') && (i == 0 || s[i-1] != '\\') {
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// parseAuthors splits a BibTeX author field and restores natural name order.
func parseAuthors(field string) []string {
	var authors []string
	for _, part := range strings.Split(field, " and ") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if i := strings.Index(part, ","); i >= 0 {
			last := strings.TrimSpace(part[:i])
			first := strings.TrimSpace(part[i+1:])
			if first != "" {
				part = first + " " + last
			} else {
				part = last
			}
		}
		authors = append(authors, part)
	}
	return authors
}
