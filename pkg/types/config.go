package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "survey-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// CollectConfig holds settings for the title-collection stage.
type CollectConfig struct {
	HTTPConfig `yaml:",inline"`

	// Category is the arXiv category to list (e.g. "cs.RO").
	Category string `json:"category" yaml:"category"`

	// Year restricts collection to papers submitted in that year.
	Year int `json:"year" yaml:"year"`

	// MaxResults caps the number of titles collected per run.
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// ResolveConfig holds settings for the bibliographic resolution stage.
type ResolveConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxResultsPerProvider caps each provider's candidate list (default 10).
	MaxResultsPerProvider int `json:"max_results_per_provider" yaml:"max_results_per_provider"`

	// RateLimitCooldown is how long the driver pauses the whole run after a
	// provider rate-limit before retrying the record (default 30s).
	RateLimitCooldown time.Duration `json:"rate_limit_cooldown" yaml:"rate_limit_cooldown"`

	// RateLimitRetries is how many cooldown-then-retry cycles the driver
	// performs per record before giving up on the run (default 2).
	RateLimitRetries int `json:"rate_limit_retries" yaml:"rate_limit_retries"`

	// OpenAlexEmail joins the OpenAlex polite pool when set.
	OpenAlexEmail string `json:"openalex_email,omitempty" yaml:"openalex_email,omitempty"`
}

// FetchConfig holds settings for the document-retrieval stage.
type FetchConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxSizeBytes aborts a download whose cumulative body exceeds this
	// bound (default 50 MiB).
	MaxSizeBytes int64 `json:"max_size_bytes" yaml:"max_size_bytes"`

	// MaxDuration aborts a download whose wall-clock transfer time exceeds
	// this bound (default 20s).
	MaxDuration time.Duration `json:"max_duration" yaml:"max_duration"`

	// MaxTimeoutRetries is the number of additional attempts allowed after
	// a duration-bound abort. Other failure classes are terminal.
	MaxTimeoutRetries int `json:"max_timeout_retries" yaml:"max_timeout_retries"`

	// PDFDir is the directory for retrieved documents.
	PDFDir string `json:"pdf_dir" yaml:"pdf_dir"`
}

// ExtractConfig holds settings for the text-extraction stage.
type ExtractConfig struct {
	// TextDir is the directory for extracted plain text.
	TextDir string `json:"text_dir" yaml:"text_dir"`

	// ExtractTables and ExtractFormulas are accepted for forward
	// compatibility; structured extraction is not currently performed.
	ExtractTables   bool `json:"extract_tables" yaml:"extract_tables"`
	ExtractFormulas bool `json:"extract_formulas" yaml:"extract_formulas"`
}

// StoreConfig holds settings for the lifecycle store.
type StoreConfig struct {
	// DBPath is the SQLite database file (e.g. "data/papers.db").
	DBPath string `json:"db_path" yaml:"db_path"`
}

// AnalyzeConfig holds settings for the classification stage.
type AnalyzeConfig struct {
	// MaxChars truncates extracted text passed to the classifier (default 50000).
	MaxChars int `json:"max_chars" yaml:"max_chars"`

	// MinScore is the relevance threshold used by report queries (default 0.5).
	MinScore float64 `json:"min_score" yaml:"min_score"`

	// Keywords drive the built-in keyword classifier. Empty disables it.
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
}

// PipelineConfig groups all stage configurations plus the driver's pacing
// and cooldown policy.
type PipelineConfig struct {
	Collect CollectConfig `json:"collect" yaml:"collect"`
	Resolve ResolveConfig `json:"resolve" yaml:"resolve"`
	Fetch   FetchConfig   `json:"fetch" yaml:"fetch"`
	Extract ExtractConfig `json:"extract" yaml:"extract"`
	Store   StoreConfig   `json:"store" yaml:"store"`
	Analyze AnalyzeConfig `json:"analyze" yaml:"analyze"`

	// RecordDelay is the pause between consecutive records (default 1s).
	RecordDelay time.Duration `json:"record_delay" yaml:"record_delay"`

	// ConsecutiveTimeoutLimit is how many downloadFailed-via-timeout
	// outcomes in a row trigger a run-wide cooldown (default 3).
	ConsecutiveTimeoutLimit int `json:"consecutive_timeout_limit" yaml:"consecutive_timeout_limit"`

	// TimeoutCooldown is the run-wide pause after repeated retrieval
	// timeouts (default 5m).
	TimeoutCooldown time.Duration `json:"timeout_cooldown" yaml:"timeout_cooldown"`
}
