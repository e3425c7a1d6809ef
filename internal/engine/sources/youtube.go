// Package sources implements the upstream YouTube transcript capability.
// It is consumed by the engine pipeline through a single function value,
// so nothing outside this package depends on how transcripts are won.
//
// Split across files by responsibility:
//
//	youtube_innertube.go  — Innertube API types, constants, and low-level HTTP primitives
//	youtube_transcript.go — transcript fetching strategies and caption track selection
//	youtube.go            — public entry points, rate limiting, language listing
package sources

import (
	"context"

	"github.com/ergut/youtube-transcript-mcp/internal/engine"
	"golang.org/x/time/rate"
)

// upstreamLimiter throttles all Innertube/watch-page requests. nil = unlimited.
var upstreamLimiter *rate.Limiter

// InitRateLimit caps upstream YouTube requests at rps per second.
// Call once at startup, before serving.
func InitRateLimit(rps float64) {
	if rps <= 0 {
		upstreamLimiter = nil
		return
	}
	upstreamLimiter = rate.NewLimiter(rate.Limit(rps), 1)
}

// waitUpstream blocks until the limiter admits one upstream request.
func waitUpstream(ctx context.Context) error {
	if upstreamLimiter == nil {
		return nil
	}
	return upstreamLimiter.Wait(ctx)
}

// FetchYouTubeTranscript fetches the transcript for a YouTube video as one
// plain-text string, trying languages in the given preference order.
// The engine.Cfg.FetchTimeout budget covers the whole attempt; failures
// come back as the typed errors in the engine package.
func FetchYouTubeTranscript(ctx context.Context, videoID string, langs []string) (string, error) {
	if timeout := engine.Cfg.FetchTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return fetchTranscript(ctx, videoID, langs)
}

// CaptionLanguage describes one available caption track.
type CaptionLanguage struct {
	Code      string `json:"code"`
	Name      string `json:"name,omitempty"`
	Generated bool   `json:"generated"` // true for auto-generated (ASR) tracks
}

// ListCaptionLanguages returns the caption tracks YouTube advertises for a
// video, without fetching any transcript text.
func ListCaptionLanguages(ctx context.Context, videoID string) ([]CaptionLanguage, error) {
	if timeout := engine.Cfg.FetchTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tracks, err := fetchCaptionTracks(ctx, videoID)
	if err != nil {
		return nil, err
	}
	langs := make([]CaptionLanguage, 0, len(tracks))
	for _, t := range tracks {
		langs = append(langs, CaptionLanguage{
			Code:      t.LanguageCode,
			Name:      t.Name.SimpleText,
			Generated: t.Kind == "asr",
		})
	}
	return langs, nil
}
