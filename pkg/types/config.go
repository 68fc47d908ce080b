// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that call
// external services.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "statute-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// ResearchConfig holds the thresholds and hard caps governing retrieval
// orchestration. It is constructed once per case run and passed down;
// components never read process-wide state. Hard caps (iterations,
// passages, time) always dominate the soft thresholds.
type ResearchConfig struct {
	// CoverageThreshold is the aggregate coverage score at which a
	// retrieval run may stop (default 0.8).
	CoverageThreshold float64 `json:"coverage_threshold" yaml:"coverage_threshold"`

	// MediumSimilarity is the average-similarity cutoff for the
	// confidence-proxy stop condition (default 0.65).
	MediumSimilarity float64 `json:"medium_similarity" yaml:"medium_similarity"`

	// HighSimilarity is the top-3 average cutoff for the confidence
	// proxy, and the single-match strength cutoff for topic coverage
	// (default 0.80).
	HighSimilarity float64 `json:"high_similarity" yaml:"high_similarity"`

	// MaxIterations caps retrieval iterations per issue (default 5).
	MaxIterations int `json:"max_iterations" yaml:"max_iterations"`

	// MaxPassages caps the accumulated passage set per issue (default 30).
	MaxPassages int `json:"max_passages" yaml:"max_passages"`

	// MaxElapsed caps wall-clock time per issue run (default 90s).
	MaxElapsed time.Duration `json:"max_elapsed" yaml:"max_elapsed"`

	// MaxFollowUpDepth caps follow-up issue generations (default 1).
	MaxFollowUpDepth int `json:"max_follow_up_depth" yaml:"max_follow_up_depth"`

	// MaxExpansions caps cross-reference lookups per expansion pass
	// (default 5).
	MaxExpansions int `json:"max_expansions" yaml:"max_expansions"`

	// MaxConcurrentIssues caps simultaneous per-issue orchestrators
	// (default 3), bounding total call concurrency against the external
	// services' rate limits.
	MaxConcurrentIssues int `json:"max_concurrent_issues" yaml:"max_concurrent_issues"`
}

// WithDefaults returns a copy with zero fields replaced by defaults.
func (c ResearchConfig) WithDefaults() ResearchConfig {
	if c.CoverageThreshold <= 0 {
		c.CoverageThreshold = 0.8
	}
	if c.MediumSimilarity <= 0 {
		c.MediumSimilarity = 0.65
	}
	if c.HighSimilarity <= 0 {
		c.HighSimilarity = 0.80
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = 5
	}
	if c.MaxPassages <= 0 {
		c.MaxPassages = 30
	}
	if c.MaxElapsed <= 0 {
		c.MaxElapsed = 90 * time.Second
	}
	if c.MaxFollowUpDepth < 0 {
		c.MaxFollowUpDepth = 0
	} else if c.MaxFollowUpDepth == 0 {
		c.MaxFollowUpDepth = 1
	}
	if c.MaxExpansions <= 0 {
		c.MaxExpansions = 5
	}
	if c.MaxConcurrentIssues <= 0 {
		c.MaxConcurrentIssues = 3
	}
	return c
}

// GenAIConfig holds settings for components that call a text generation
// or embedding API.
type GenAIConfig struct {
	// Provider selects the backend: "anthropic" or "openai".
	Provider string `json:"provider" yaml:"provider"`

	// Model is the generation model identifier.
	Model string `json:"model" yaml:"model"`

	// EmbeddingModel is the embedding model identifier (openai provider).
	EmbeddingModel string `json:"embedding_model" yaml:"embedding_model"`

	// APIKey is the authentication key for the API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for failed calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// CallTimeout is the per-call timeout, shorter than the run budget
	// so one slow call cannot consume an issue's whole time budget.
	CallTimeout time.Duration `json:"call_timeout" yaml:"call_timeout"`
}

// SearchConfig holds settings for the external vector search service.
type SearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// Endpoint is the vector search service URL.
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// SimilarityThreshold is the minimum similarity for returned passages.
	SimilarityThreshold float64 `json:"similarity_threshold" yaml:"similarity_threshold"`

	// Limit is the maximum passages returned per query (default 10).
	Limit int `json:"limit" yaml:"limit"`

	// ScoreScale is an optional per-language calibration factor applied
	// to similarity scores at the adapter boundary, so the two corpus
	// partitions report one comparable scale. Defaults to 1.0.
	ScoreScale map[Language]float64 `json:"score_scale,omitempty" yaml:"score_scale,omitempty"`
}

// CorpusConfig holds settings for the local statute corpus store.
type CorpusConfig struct {
	// CorpusDir is the base directory for the corpus (contains laws/, index/).
	CorpusDir string `json:"corpus_dir" yaml:"corpus_dir"`

	// MaxResults is the default maximum for keyword queries (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// EngineConfig groups all component configurations for one case run.
type EngineConfig struct {
	Research ResearchConfig `json:"research" yaml:"research"`
	GenAI    GenAIConfig    `json:"genai" yaml:"genai"`
	Search   SearchConfig   `json:"search" yaml:"search"`
	Corpus   CorpusConfig   `json:"corpus" yaml:"corpus"`

	// OutputDir is where opinion and trace documents are written.
	OutputDir string `json:"output_dir" yaml:"output_dir"`
}
