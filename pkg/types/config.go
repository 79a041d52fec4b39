package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "lit-engine/0.1 (mailto:contact@example.org)").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// CacheConfig holds settings for the on-disk cache store.
type CacheConfig struct {
	// Dir is the directory holding the cache database (default ".lit-cache").
	Dir string `json:"cache_dir" yaml:"cache_dir"`

	// TTLHours is the entry time-to-live in hours (default 48). Entries
	// older than this are treated as absent on read.
	TTLHours int `json:"ttl_hours" yaml:"ttl_hours"`

	// MaxSizeMB caps the total stored payload size in megabytes
	// (default 1024). Oldest entries are evicted first when exceeded.
	MaxSizeMB int `json:"max_size_mb" yaml:"max_size_mb"`
}

// TTL returns the configured time-to-live as a duration.
func (c CacheConfig) TTL() time.Duration {
	hours := c.TTLHours
	if hours <= 0 {
		hours = 48
	}
	return time.Duration(hours) * time.Hour
}

// MaxBytes returns the configured size cap in bytes.
func (c CacheConfig) MaxBytes() int64 {
	mb := c.MaxSizeMB
	if mb <= 0 {
		mb = 1024
	}
	return int64(mb) * 1024 * 1024
}

// SearchConfig holds settings for the unified search orchestrator and the
// source adapters it fans out to.
type SearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxPerSource is the per-adapter result cap (default 100).
	MaxPerSource int `json:"max_per_source" yaml:"max_per_source"`

	// SourceTimeout bounds each adapter call; a slower adapter contributes
	// zero records plus a warning (default 30s).
	SourceTimeout time.Duration `json:"source_timeout" yaml:"source_timeout"`

	// MaxRetries is the attempt ceiling for transient HTTP failures
	// (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// EnableArxiv, EnableSemanticScholar, EnableOpenAlex, EnablePubMed
	// control which adapters are constructed. PubMed defaults off.
	EnableArxiv           bool `json:"enable_arxiv" yaml:"enable_arxiv"`
	EnableSemanticScholar bool `json:"enable_semantic_scholar" yaml:"enable_semantic_scholar"`
	EnableOpenAlex        bool `json:"enable_openalex" yaml:"enable_openalex"`
	EnablePubMed          bool `json:"enable_pubmed" yaml:"enable_pubmed"`

	// SemanticScholarAPIKey raises S2 rate limits when set.
	SemanticScholarAPIKey string `json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key,omitempty"`

	// OpenAlexEmail is sent as the mailto parameter for polite pool access.
	OpenAlexEmail string `json:"openalex_email,omitempty" yaml:"openalex_email,omitempty"`

	// PubMedAPIKey raises the E-utilities request quota when set.
	PubMedAPIKey string `json:"pubmed_api_key,omitempty" yaml:"pubmed_api_key,omitempty"`

	// SourcePriority orders sources for field merging; sources listed
	// earlier win scalar conflicts. Unlisted sources rank by metadata
	// richness after the listed ones.
	SourcePriority []string `json:"source_priority,omitempty" yaml:"source_priority,omitempty"`
}

// FullTextConfig holds settings for the full-text extractor.
type FullTextConfig struct {
	HTTPConfig `yaml:",inline"`

	// DownloadTimeout bounds each PDF download (default 30s).
	DownloadTimeout time.Duration `json:"download_timeout" yaml:"download_timeout"`

	// MaxConcurrent bounds simultaneous PDF downloads during result
	// enrichment (default 4).
	MaxConcurrent int `json:"max_concurrent" yaml:"max_concurrent"`

	// MaxPages limits how many pages are extracted per PDF; 0 = all.
	MaxPages int `json:"max_pages,omitempty" yaml:"max_pages,omitempty"`
}

// EngineConfig groups all stage configurations.
type EngineConfig struct {
	Search   SearchConfig   `json:"search" yaml:"search"`
	Cache    CacheConfig    `json:"cache" yaml:"cache"`
	FullText FullTextConfig `json:"full_text" yaml:"full_text"`
}
