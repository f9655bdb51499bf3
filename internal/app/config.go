package app

import "time"

// Config holds runtime configuration for the link pipeline.
type Config struct {
	// LLM
	LLMBaseURL       string
	LLMModel         string
	LLMAPIKey        string
	SummaryPrompt    string
	SummaryMaxTokens int

	// Page fetching
	UserAgent    string
	FetchTimeout time.Duration
	MaxPageBytes int64

	// Image inlining
	ImageConcurrency int
	ImageMaxBytes    int64
	ImageTimeout     time.Duration

	// Summary cache; empty CacheDir disables it
	CacheDir    string
	CacheMaxAge time.Duration

	// Behavior
	MinLatency time.Duration
	Verbose    bool
}

const (
	defaultFetchTimeout     = 30 * time.Second
	defaultImageConcurrency = 4
)

// WithDefaults fills zero-valued limits. Summary fields stay empty so the
// summarizer applies its own defaults.
func (c Config) WithDefaults() Config {
	if c.FetchTimeout == 0 {
		c.FetchTimeout = defaultFetchTimeout
	}
	if c.ImageConcurrency == 0 {
		c.ImageConcurrency = defaultImageConcurrency
	}
	return c
}
