// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// SearchQuery holds the parameters of one unified search. It is treated as
// immutable once issued; the orchestrator and adapters only read it.
type SearchQuery struct {
	// Text is the free-text query sent to every enabled source.
	Text string `json:"text" yaml:"text"`

	// YearFrom and YearTo restrict results to a publication year range.
	// Zero means unbounded on that side.
	YearFrom int `json:"year_from,omitempty" yaml:"year_from,omitempty"`
	YearTo   int `json:"year_to,omitempty" yaml:"year_to,omitempty"`

	// Sources restricts the query to a subset of adapters by name.
	// Empty means all enabled adapters.
	Sources []string `json:"sources,omitempty" yaml:"sources,omitempty"`

	// MaxPerSource caps results per adapter; 0 uses the configured default.
	MaxPerSource int `json:"max_per_source,omitempty" yaml:"max_per_source,omitempty"`

	// RequireFullText asks the orchestrator to fetch and attach full text
	// for every result that carries a PDF URL.
	RequireFullText bool `json:"require_full_text,omitempty" yaml:"require_full_text,omitempty"`
}

// IsEmpty reports whether the query contains no searchable text.
func (q SearchQuery) IsEmpty() bool {
	return q.Text == ""
}

// WantsSource reports whether the query's source subset includes name.
func (q SearchQuery) WantsSource(name string) bool {
	if len(q.Sources) == 0 {
		return true
	}
	for _, s := range q.Sources {
		if s == name {
			return true
		}
	}
	return false
}

// SourceWarning records an isolated, non-fatal failure encountered while
// producing a result set: a source that errored or timed out, a record
// whose full text could not be extracted, a bibliography entry that did
// not parse. Warnings always name what they concern.
type SourceWarning struct {
	// Source is the adapter or subsystem the warning concerns
	// (e.g. "pubmed", "fulltext").
	Source string `json:"source" yaml:"source"`

	// Record identifies the affected record (canonical key or PDF URL);
	// empty for source-level warnings.
	Record string `json:"record,omitempty" yaml:"record,omitempty"`

	// Message describes the failure.
	Message string `json:"message" yaml:"message"`
}

// String renders the warning as "source: message" or "source (record): message".
func (w SourceWarning) String() string {
	if w.Record != "" {
		return w.Source + " (" + w.Record + "): " + w.Message
	}
	return w.Source + ": " + w.Message
}
