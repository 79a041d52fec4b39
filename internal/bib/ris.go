// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package bib

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/pdiddy/literature-engine/pkg/types"
)

// ToRIS renders one record as an RIS entry.
func ToRIS(p types.PaperRecord) string {
	var b strings.Builder

	entryType := "JOUR"
	if determineEntryType(p) == "inproceedings" {
		entryType = "CONF"
	}
	writeTag := func(tag, value string) {
		if value != "" {
			b.WriteString(fmt.Sprintf("%s  - %s\n", tag, value))
		}
	}

	writeTag("TY", entryType)
	for _, author := range p.Authors {
		writeTag("AU", risAuthor(author))
	}
	writeTag("TI", p.Title)
	if p.Year > 0 {
		writeTag("PY", strconv.Itoa(p.Year))
	}
	writeTag("JO", p.Venue)
	writeTag("AB", p.Abstract)
	writeTag("DO", p.DOI)
	writeTag("UR", p.PDFURL)
	b.WriteString("ER  - \n")

	return b.String()
}

// ToRISList renders records as an RIS file body.
func ToRISList(records []types.PaperRecord) string {
	var entries []string
	for _, p := range records {
		entries = append(entries, ToRIS(p))
	}
	return strings.Join(entries, "\n")
}

// risAuthor renders an author as "Last, First" as RIS prefers.
func risAuthor(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || strings.Contains(name, ",") {
		return name
	}
	fields := strings.Fields(name)
	if len(fields) < 2 {
		return name
	}
	last := fields[len(fields)-1]
	first := strings.Join(fields[:len(fields)-1], " ")
	return last + ", " + first
}

// ParseRIS decodes an RIS file body into records. Unknown tags are ignored;
// an entry that ends up with no identity yields a warning.
func ParseRIS(data string) ([]types.PaperRecord, []types.SourceWarning) {
	var records []types.PaperRecord
	var warnings []types.SourceWarning

	var cur types.PaperRecord
	var open bool
	entryNum := 0

	flush := func() {
		if !open {
			return
		}
		entryNum++
		if err := cur.Validate(); err != nil {
			warnings = append(warnings, types.SourceWarning{
				Source:  "ris",
				Record:  fmt.Sprintf("entry %d", entryNum),
				Message: err.Error(),
			})
		} else {
			records = append(records, cur)
		}
		cur = types.PaperRecord{}
		open = false
	}

	scanner := bufio.NewScanner(strings.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) < 5 || line[2:5] != "  -" {
			continue
		}
		tag := line[:2]
		value := strings.TrimSpace(line[5:])

		if tag != "ER" && tag != "TY" && value == "" {
			continue
		}
		if tag == "TY" {
			// A TY with an entry still open means the previous one never
			// closed with ER; flush it rather than mixing fields.
			flush()
			open = true
			continue
		}
		open = true
		switch tag {
		case "AU", "A1", "A2":
			cur.Authors = append(cur.Authors, parseAuthors(value)...)
		case "TI", "T1":
			if cur.Title == "" {
				cur.Title = value
			}
		case "AB", "N2":
			if cur.Abstract == "" {
				cur.Abstract = value
			}
		case "PY", "Y1":
			yearPart := value
			if i := strings.IndexAny(yearPart, "/-"); i > 0 {
				yearPart = yearPart[:i]
			}
			if y, err := strconv.Atoi(strings.TrimSpace(yearPart)); err == nil {
				cur.Year = y
			}
		case "JO", "JF", "T2":
			if cur.Venue == "" {
				cur.Venue = value
			}
		case "DO":
			cur.DOI = value
		case "UR", "L1":
			if cur.PDFURL == "" {
				cur.PDFURL = value
			}
		case "ER":
			flush()
		}
	}
	flush()

	return records, warnings
}
