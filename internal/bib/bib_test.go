// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package bib

import (
	"reflect"
	"strings"
	"testing"

	"github.com/pdiddy/literature-engine/pkg/types"
)

func samplePaper() types.PaperRecord {
	return types.PaperRecord{
		Title:    "Graph Foundations & Applications",
		Authors:  []string{"Grace Hopper", "Alan Kay"},
		Abstract: "A study of graphs.",
		Year:     2021,
		Venue:    "Journal of Examples",
		DOI:      "10.1000/x1",
		PDFURL:   "https://example.org/x1.pdf",
	}
}

func TestToBibTeX(t *testing.T) {
	out := ToBibTeX(samplePaper())

	for _, want := range []string{
		"@article{hopper2021graph,",
		"author = {Hopper, Grace and Kay, Alan}",
		`title = {Graph Foundations \& Applications}`,
		"journal = {Journal of Examples}",
		"year = {2021}",
		"doi = {10.1000/x1}",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestToBibTeXConferenceVenue(t *testing.T) {
	p := samplePaper()
	p.Venue = "Proceedings of the 38th Conference on Examples"
	out := ToBibTeX(p)
	if !strings.Contains(out, "@inproceedings{") || !strings.Contains(out, "booktitle = {") {
		t.Errorf("conference venue not rendered as inproceedings:\n%s", out)
	}
}

func TestToBibTeXListDisambiguatesKeys(t *testing.T) {
	a := samplePaper()
	b := samplePaper()
	b.DOI = "10.1000/x2"
	out := ToBibTeXList([]types.PaperRecord{a, b})

	if !strings.Contains(out, "{hopper2021graph,") || !strings.Contains(out, "{hopper2021grapha,") {
		t.Errorf("colliding keys not disambiguated:\n%s", out)
	}
}

func TestBibTeXRoundTrip(t *testing.T) {
	want := samplePaper()
	records, warnings := ParseBibTeX(ToBibTeX(want))
	if len(warnings) != 0 {
		t.Fatalf("warnings = %v", warnings)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}

	got := records[0]
	if got.Title != want.Title || got.Year != want.Year ||
		got.Venue != want.Venue || got.DOI != want.DOI ||
		got.Abstract != want.Abstract || got.PDFURL != want.PDFURL {
		t.Errorf("round trip changed fields:\ngot  %+v\nwant %+v", got, want)
	}
	if !reflect.DeepEqual(got.Authors, want.Authors) {
		t.Errorf("Authors = %v, want %v", got.Authors, want.Authors)
	}
}

func TestBibTeXRoundTripSpecialCharacters(t *testing.T) {
	want := samplePaper()
	want.Title = "Approximate ~Optimal Control^ of {Braced} 100% & #1 $x_i$ Systems"

	records, warnings := ParseBibTeX(ToBibTeX(want))
	if len(warnings) != 0 {
		t.Fatalf("warnings = %v", warnings)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	if records[0].Title != want.Title {
		t.Errorf("Title = %q, want %q", records[0].Title, want.Title)
	}
}

func TestParseBibTeXNestedBracesAndComment(t *testing.T) {
	data := `
@comment{library export, ignore me}

@article{vaswani2017attention,
  author = {Vaswani, Ashish},
  title = {Attention {I}s {A}ll {Y}ou {N}eed},
  year = {2017},
}
`
	records, warnings := ParseBibTeX(data)
	if len(warnings) != 0 {
		t.Fatalf("warnings = %v", warnings)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	if records[0].Title != "Attention Is All You Need" {
		t.Errorf("Title = %q", records[0].Title)
	}
}

func TestParseBibTeXBadEntryDoesNotAbortFile(t *testing.T) {
	data := `
@article{broken,
  title = {never closed

@article{fine2020paper,
  author = {Kay, Alan},
  title = {A Fine Paper},
  year = {2020},
}
`
	records, warnings := ParseBibTeX(data)
	if len(records) != 1 || records[0].Title != "A Fine Paper" {
		t.Errorf("records = %+v, want the intact entry", records)
	}
	if len(warnings) == 0 {
		t.Error("broken entry produced no warning")
	}
}

func TestParseAuthorsRestoresNaturalOrder(t *testing.T) {
	got := parseAuthors("Hopper, Grace and Kay, Alan and Cher")
	want := []string{"Grace Hopper", "Alan Kay", "Cher"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseAuthors() = %v, want %v", got, want)
	}
}

func TestRISRoundTrip(t *testing.T) {
	want := samplePaper()
	records, warnings := ParseRIS(ToRIS(want))
	if len(warnings) != 0 {
		t.Fatalf("warnings = %v", warnings)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}

	got := records[0]
	if got.Title != want.Title || got.Year != want.Year ||
		got.Venue != want.Venue || got.DOI != want.DOI ||
		got.Abstract != want.Abstract || got.PDFURL != want.PDFURL {
		t.Errorf("round trip changed fields:\ngot  %+v\nwant %+v", got, want)
	}
	if !reflect.DeepEqual(got.Authors, want.Authors) {
		t.Errorf("Authors = %v, want %v", got.Authors, want.Authors)
	}
}

func TestParseRISMultipleEntriesAndDateForm(t *testing.T) {
	data := "TY  - JOUR\nAU  - Hopper, Grace\nTI  - First\nPY  - 2021/06/01\nER  - \n" +
		"TY  - CONF\nAU  - Kay, Alan\nTI  - Second\nPY  - 2019\nER  - \n"
	records, warnings := ParseRIS(data)
	if len(warnings) != 0 {
		t.Fatalf("warnings = %v", warnings)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
	if records[0].Year != 2021 || records[1].Year != 2019 {
		t.Errorf("years = %d, %d", records[0].Year, records[1].Year)
	}
}

func TestParseRISIdentityFreeEntryWarns(t *testing.T) {
	data := "TY  - JOUR\nAB  - only an abstract\nER  - \n"
	records, warnings := ParseRIS(data)
	if len(records) != 0 {
		t.Errorf("records = %+v, want none", records)
	}
	if len(warnings) != 1 || warnings[0].Source != "ris" {
		t.Errorf("warnings = %v", warnings)
	}
}

func TestCitationKeyFallbacks(t *testing.T) {
	tests := []struct {
		p    types.PaperRecord
		want string
	}{
		{samplePaper(), "hopper2021graph"},
		{types.PaperRecord{Title: "The Annotated Transformer", Year: 2018}, "2018annotated"},
		{types.PaperRecord{}, "unknown"},
	}
	for _, tt := range tests {
		if got := CitationKey(tt.p); got != tt.want {
			t.Errorf("CitationKey(%+v) = %q, want %q", tt.p, got, tt.want)
		}
	}
}
