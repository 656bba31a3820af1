package config

import "time"

// APIConfig holds remote game API client configuration
type APIConfig struct {
	// Base URL for the game API
	BaseURL string `mapstructure:"base_url" validate:"required,url"`

	// Rate limiting settings
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	// Request timeout
	Timeout time.Duration `mapstructure:"timeout" validate:"required"`

	// Retry configuration
	Retry RetryConfig `mapstructure:"retry"`

	// Circuit breaker configuration
	Breaker BreakerConfig `mapstructure:"breaker"`

	// Extra wait past a ship's arrival instant before retrying an
	// action rejected because the ship was in transit
	TransitSlack time.Duration `mapstructure:"transit_slack"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	// Maximum requests per second
	Requests int `mapstructure:"requests" validate:"min=1"`

	// Burst size for token bucket
	Burst int `mapstructure:"burst" validate:"min=1"`
}

// RetryConfig holds retry configuration for failed requests
type RetryConfig struct {
	// Maximum number of retry attempts
	MaxAttempts int `mapstructure:"max_attempts" validate:"min=0"`

	// Base duration for exponential backoff
	BackoffBase time.Duration `mapstructure:"backoff_base"`
}

// BreakerConfig holds circuit breaker configuration
type BreakerConfig struct {
	// Consecutive failures on one endpoint class before the circuit opens
	MaxFailures int `mapstructure:"max_failures" validate:"min=1"`

	// How long an open circuit rejects calls before allowing a probe
	OpenTimeout time.Duration `mapstructure:"open_timeout"`
}
