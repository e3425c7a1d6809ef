package engine

import (
	"net/http"
	"time"
)

// Config holds all engine configuration, injected from main.
type Config struct {
	DefaultLanguage      string        // language used when a request omits one
	FetchTimeout         time.Duration // per-request budget at the fetcher boundary
	MaxTranscriptChars   int           // 0 = unlimited
	SuccessTTL           time.Duration // cache retention for good transcripts
	ErrorTTL             time.Duration // cache retention for classified failures; must stay below SuccessTTL
	CacheMaxEntries      int
	CacheCleanupInterval time.Duration
	FetchRateLimit       float64 // Innertube requests per second, 0 = unlimited
	HTTPClient           *http.Client
}

var cfg Config

// Cfg exposes the engine configuration for sub-packages (sources).
// Always points to the current cfg value.
var Cfg = &cfg

// Init initializes the engine with the given configuration.
func Init(c Config) {
	if c.DefaultLanguage == "" {
		c.DefaultLanguage = "en"
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if c.SuccessTTL <= 0 {
		c.SuccessTTL = 24 * time.Hour
	}
	// Error outcomes must expire before success outcomes so transient
	// upstream failures self-heal on a later request.
	if c.ErrorTTL <= 0 || c.ErrorTTL >= c.SuccessTTL {
		c.ErrorTTL = c.SuccessTTL / 24
	}
	cfg = c
	Cfg = &cfg
}
