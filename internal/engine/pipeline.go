package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// The request pipeline: validate URL → derive video ID → count usage
// (detached) → cache lookup → on miss, one upstream fetch → classify →
// best-effort cache write. Exactly one terminal outcome per call:
// transcript text or a short presentable error.

// ErrInvalidInput marks a malformed or unrecognized video URL. It is
// terminal: never retried, never cached.
var ErrInvalidInput = errors.New("invalid YouTube URL")

// TranscriptError is a classified upstream failure surfaced to the caller.
// Its message is the exact string persisted in the cache.
type TranscriptError struct {
	Message  string
	Category string
	Cached   bool // true when served from a previously cached failure
}

func (e *TranscriptError) Error() string { return e.Message }

// FetchFunc is the upstream transcript capability: one attempt per call,
// returning transcript text or a typed fetch error.
type FetchFunc func(ctx context.Context, videoID string, langs []string) (string, error)

// TranscriptResult is the successful pipeline outcome.
type TranscriptResult struct {
	VideoID    string `json:"video_id"`
	Language   string `json:"language"`
	Transcript string `json:"transcript"`
	Cached     bool   `json:"cached"`
}

// Pipeline composes the transcript request flow. Each collaborator is
// optional except Fetch: a nil Cache degrades to always-fetch, a nil
// Usage skips tracking. The pipeline itself holds no per-request state
// and is safe for concurrent use.
type Pipeline struct {
	Cache *ResultCache
	Usage *UsageTracker
	Fetch FetchFunc

	// TrackErrs, when set, receives failures from detached tracking
	// goroutines. Sends never block; a full sink drops the error after
	// it has been logged.
	TrackErrs chan<- error
}

// GetTranscript resolves rawURL to a transcript in the given language
// (empty = configured default). The returned error is either
// ErrInvalidInput or a *TranscriptError carrying the presentable message.
func (p *Pipeline) GetTranscript(ctx context.Context, rawURL, lang string) (*TranscriptResult, error) {
	IncrTranscriptRequests()

	if lang == "" {
		lang = cfg.DefaultLanguage
	}

	if !IsVideoURL(rawURL) {
		IncrInvalidInputs()
		return nil, fmt.Errorf("%w: %q", ErrInvalidInput, rawURL)
	}
	videoID := ExtractVideoID(NormalizeVideoURL(rawURL))
	if videoID == "" {
		// IsVideoURL accepted it, so this is our bug, not the caller's.
		slog.Error("pipeline: ID extraction failed for validated URL", slog.String("url", rawURL))
		return nil, fmt.Errorf("%w: could not derive video ID from %q", ErrInvalidInput, rawURL)
	}

	// Counted before the cache lookup so hits and misses both register.
	p.track("daily", func(ctx context.Context) error { return p.Usage.IncrementDaily(ctx) })
	p.track("video", func(ctx context.Context) error { return p.Usage.IncrementVideo(ctx, videoID) })

	if out, ok := p.Cache.Get(ctx, videoID, lang); ok {
		if out.IsError() {
			// Known bad outcome — do not re-fetch until the entry expires.
			category := out.Category
			if category == "" {
				category = CategoryUnknown
			}
			return nil, &TranscriptError{Message: out.Text, Category: category, Cached: true}
		}
		return &TranscriptResult{VideoID: videoID, Language: lang, Transcript: out.Text, Cached: true}, nil
	}

	var text string
	err := TrackOperation(ctx, "fetch:"+videoID, func(ctx context.Context) error {
		var ferr error
		text, ferr = p.Fetch(ctx, videoID, preferredLanguages(lang))
		return ferr
	})
	if err != nil {
		IncrFetchErrors()
		msg, category := Classify(err)
		IncrFailureCategory(category)
		slog.Warn("pipeline: fetch failed",
			slog.String("video_id", videoID),
			slog.String("category", category),
			slog.Any("error", err))
		p.track("failure_log", func(ctx context.Context) error {
			return p.Usage.RecordFailure(ctx, videoID, category, msg)
		})
		p.Cache.Set(ctx, videoID, lang, Outcome{Kind: OutcomeError, Text: msg, Category: category})
		return nil, &TranscriptError{Message: msg, Category: category}
	}

	if cfg.MaxTranscriptChars > 0 {
		text = TruncateRunes(text, cfg.MaxTranscriptChars, "...")
	}

	p.Cache.Set(ctx, videoID, lang, Outcome{Kind: OutcomeSuccess, Text: text})
	return &TranscriptResult{VideoID: videoID, Language: lang, Transcript: text}, nil
}

// track runs a counter update in a detached goroutine. Completion is
// never awaited and failure never reaches the critical path: it is
// logged and, when a sink is configured, reported there.
func (p *Pipeline) track(op string, fn func(context.Context) error) {
	if p.Usage == nil {
		slog.Debug("pipeline: usage tracking disabled, skipping", slog.String("op", op))
		return
	}
	go func() {
		// Detached from the request context on purpose: the caller may
		// be gone before the write lands.
		if err := fn(context.Background()); err != nil {
			logTrackingFailure(op, err)
			if p.TrackErrs != nil {
				select {
				case p.TrackErrs <- fmt.Errorf("%s: %w", op, err):
				default:
				}
			}
		}
	}()
}

// preferredLanguages expands the requested language into the fallback
// order handed to the fetcher.
func preferredLanguages(lang string) []string {
	if lang == "en" {
		return []string{"en"}
	}
	return []string{lang, "en"}
}
