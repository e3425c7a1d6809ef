package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	TranscriptRequests atomic.Int64
	FetchErrors        atomic.Int64
	InvalidInputs      atomic.Int64

	// Per-category fetch failure counts.
	FailNotFound     atomic.Int64
	FailDisabled     atomic.Int64
	FailNoTranscript atomic.Int64
	FailBusy         atomic.Int64
	FailUnknown      atomic.Int64
}

// metricsCache is the cache whose hit/miss counters show up in the
// metrics dump. Set once at startup.
var metricsCache *ResultCache

// RegisterCacheMetrics points the metrics dump at the live result cache.
func RegisterCacheMetrics(c *ResultCache) { metricsCache = c }

// GetMetrics returns a snapshot of all metrics including cache stats.
func GetMetrics() map[string]int64 {
	hits, misses := metricsCache.Stats()
	return map[string]int64{
		"transcript_requests":    metrics.TranscriptRequests.Load(),
		"fetch_errors":           metrics.FetchErrors.Load(),
		"invalid_inputs":         metrics.InvalidInputs.Load(),
		"fail_not_found":         metrics.FailNotFound.Load(),
		"fail_disabled":          metrics.FailDisabled.Load(),
		"fail_no_transcript":     metrics.FailNoTranscript.Load(),
		"fail_busy":              metrics.FailBusy.Load(),
		"fail_unknown":           metrics.FailUnknown.Load(),
		"cache_hits":             hits,
		"cache_misses":           misses,
	}
}

// FormatMetrics returns metrics as a simple text format for HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	keys := []string{
		"transcript_requests", "fetch_errors", "invalid_inputs",
		"fail_not_found", "fail_disabled", "fail_no_transcript",
		"fail_busy", "fail_unknown",
		"cache_hits", "cache_misses",
	}
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

func IncrTranscriptRequests() { metrics.TranscriptRequests.Add(1) }
func IncrFetchErrors()        { metrics.FetchErrors.Add(1) }
func IncrInvalidInputs()      { metrics.InvalidInputs.Add(1) }

// IncrFailureCategory bumps the per-category failure counter.
func IncrFailureCategory(category string) {
	switch category {
	case CategoryNotFound:
		metrics.FailNotFound.Add(1)
	case CategoryDisabled:
		metrics.FailDisabled.Add(1)
	case CategoryNoTranscript:
		metrics.FailNoTranscript.Add(1)
	case CategoryBusy:
		metrics.FailBusy.Add(1)
	default:
		metrics.FailUnknown.Add(1)
	}
}

// TrackOperation logs a warning if an operation takes longer than threshold.
func TrackOperation(ctx context.Context, name string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if elapsed > 5*time.Second {
		slog.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}
