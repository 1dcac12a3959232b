// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings for components that call the provider.
type HTTPConfig struct {
	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with provider requests
	// (e.g. "litsearch/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// ProviderConfig holds settings for the bibliographic provider clients.
type ProviderConfig struct {
	HTTPConfig `yaml:",inline"`

	// Email is sent as the mailto parameter for polite pool access.
	Email string `json:"email,omitempty" yaml:"email,omitempty"`

	// APIKey is an optional key for higher rate limits on the search
	// provider.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MetricsAPIKey is an optional key for the citation-graph provider,
	// which issues its own keys separately from the search provider.
	MetricsAPIKey string `json:"metrics_api_key,omitempty" yaml:"metrics_api_key,omitempty"`

	// RequestsPerMinute caps the provider call rate (default 60).
	RequestsPerMinute int `json:"requests_per_minute" yaml:"requests_per_minute"`

	// PageSize is the number of identifiers requested per query (default 25).
	PageSize int `json:"page_size" yaml:"page_size"`
}

// DispatchConfig holds settings for the concurrent search dispatcher.
type DispatchConfig struct {
	// Workers bounds the number of concurrent provider calls (default 4).
	Workers int `json:"workers" yaml:"workers"`

	// MaxRetries is the number of retry attempts per query on transient
	// failures (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// RetryBaseDelay is the initial backoff delay (default 500ms). The
	// delay doubles on each attempt.
	RetryBaseDelay time.Duration `json:"retry_base_delay" yaml:"retry_base_delay"`

	// QueryTimeout bounds each individual provider call (default 30s).
	QueryTimeout time.Duration `json:"query_timeout" yaml:"query_timeout"`
}

// ExpansionConfig holds the convergence targets for the expansion loop.
type ExpansionConfig struct {
	// FloorCandidates is the minimum acceptable candidate count (default 20).
	FloorCandidates int `json:"floor_candidates" yaml:"floor_candidates"`

	// CeilingCandidates is the maximum acceptable candidate count (default 200).
	CeilingCandidates int `json:"ceiling_candidates" yaml:"ceiling_candidates"`

	// MaxIterations bounds the expansion loop (default 5).
	MaxIterations int `json:"max_iterations" yaml:"max_iterations"`

	// SeedTopK is how many top candidates seed the citation explorer (default 5).
	SeedTopK int `json:"seed_top_k" yaml:"seed_top_k"`
}

// GatewayConfig holds settings for the commit gateway store.
type GatewayConfig struct {
	// StoreDir is the directory holding the commit database (contains
	// references.db).
	StoreDir string `json:"store_dir" yaml:"store_dir"`
}

// EngineConfig groups all stage configurations.
type EngineConfig struct {
	Provider  ProviderConfig  `json:"provider" yaml:"provider"`
	Dispatch  DispatchConfig  `json:"dispatch" yaml:"dispatch"`
	Expansion ExpansionConfig `json:"expansion" yaml:"expansion"`
	Gateway   GatewayConfig   `json:"gateway" yaml:"gateway"`
}

// WithDefaults returns a copy of cfg with zero values replaced by defaults.
func (c EngineConfig) WithDefaults() EngineConfig {
	if c.Provider.Timeout <= 0 {
		c.Provider.Timeout = 30 * time.Second
	}
	if c.Provider.UserAgent == "" {
		c.Provider.UserAgent = "litsearch/0.1"
	}
	if c.Provider.RequestsPerMinute <= 0 {
		c.Provider.RequestsPerMinute = 60
	}
	if c.Provider.PageSize <= 0 {
		c.Provider.PageSize = 25
	}
	if c.Dispatch.Workers <= 0 {
		c.Dispatch.Workers = 4
	}
	if c.Dispatch.MaxRetries <= 0 {
		c.Dispatch.MaxRetries = 3
	}
	if c.Dispatch.RetryBaseDelay <= 0 {
		c.Dispatch.RetryBaseDelay = 500 * time.Millisecond
	}
	if c.Dispatch.QueryTimeout <= 0 {
		c.Dispatch.QueryTimeout = 30 * time.Second
	}
	if c.Expansion.FloorCandidates <= 0 {
		c.Expansion.FloorCandidates = 20
	}
	if c.Expansion.CeilingCandidates <= 0 {
		c.Expansion.CeilingCandidates = 200
	}
	if c.Expansion.MaxIterations <= 0 {
		c.Expansion.MaxIterations = 5
	}
	if c.Expansion.SeedTopK <= 0 {
		c.Expansion.SeedTopK = 5
	}
	if c.Gateway.StoreDir == "" {
		c.Gateway.StoreDir = "references"
	}
	return c
}
