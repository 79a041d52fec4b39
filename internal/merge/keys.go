// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package merge collapses raw per-source records into canonical paper
// records. Identity is resolved over normalized keys, never object
// identity: an exact DOI match is the strong key, a normalized
// title+first-author pair the weak one. The same key scheme names nodes
// in the citation graph, so a paper seen through different sources lands
// on one node.
package merge

import (
	"strings"
	"unicode"
)

// NormalizeDOI canonicalizes a DOI for comparison: resolver prefixes and
// the doi: scheme are stripped and the remainder lowercased (DOIs are
// case-insensitive).
func NormalizeDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	for _, prefix := range []string{
		"https://doi.org/",
		"http://doi.org/",
		"https://dx.doi.org/",
		"http://dx.doi.org/",
		"doi.org/",
		"doi:",
		"DOI:",
	} {
		doi = strings.TrimPrefix(doi, prefix)
	}
	return strings.ToLower(doi)
}

// normalizeText lowercases, strips punctuation, and collapses whitespace.
func normalizeText(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// TitleAuthorKey builds the weak merge key from a title and first author.
// Empty when the title normalizes to nothing.
func TitleAuthorKey(title, firstAuthor string) string {
	t := normalizeText(title)
	if t == "" {
		return ""
	}
	return t + "|" + normalizeText(firstAuthor)
}
