package engine

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// ResultCache provides 2-tier caching of transcript outcomes:
// L1 in-memory + L2 Redis. L1 is fast but lost on restart, L2 survives.
// A nil *ResultCache is valid and behaves as "no cache" (always miss).

// OutcomeKind tags a cached value as transcript text or classified failure.
type OutcomeKind string

const (
	OutcomeSuccess OutcomeKind = "success"
	OutcomeError   OutcomeKind = "error"
)

// Outcome is the persisted cache value. The explicit kind tag means the
// reader never has to guess success vs failure from the text itself.
type Outcome struct {
	Kind     OutcomeKind `json:"kind"`
	Text     string      `json:"text"`
	Category string      `json:"category,omitempty"` // failure category label, error outcomes only
}

// IsError reports whether the outcome represents a classified failure.
func (o Outcome) IsError() bool { return o.Kind == OutcomeError }

// ResultCache maps (video ID, language) to an Outcome. Error outcomes get
// a strictly shorter TTL than success outcomes so known-bad results are
// naturally retried once they expire.
type ResultCache struct {
	l1              sync.Map      // key → *cacheEntry
	rdb             *redis.Client // nil if Redis unavailable
	okTTL           time.Duration
	errTTL          time.Duration
	maxEntries      int
	cleanupInterval time.Duration

	hits   atomic.Int64
	misses atomic.Int64
}

type cacheEntry struct {
	data      []byte
	expiresAt time.Time
}

// NewResultCache builds the 2-tier cache. redisURL can be empty to run
// L1-only. errTTL is clamped below okTTL.
func NewResultCache(redisURL string, okTTL, errTTL time.Duration, maxEntries int, cleanupInterval time.Duration) *ResultCache {
	if errTTL <= 0 || errTTL >= okTTL {
		errTTL = okTTL / 24
	}
	c := &ResultCache{
		okTTL:           okTTL,
		errTTL:          errTTL,
		maxEntries:      maxEntries,
		cleanupInterval: cleanupInterval,
	}

	if redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			slog.Warn("cache: invalid redis URL, L2 disabled", slog.Any("error", err))
		} else {
			rdb := redis.NewClient(opts)
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := rdb.Ping(ctx).Err(); err != nil {
				slog.Warn("cache: redis unreachable, L2 disabled", slog.Any("error", err))
			} else {
				c.rdb = rdb
				slog.Info("cache: L2 redis connected", slog.String("addr", opts.Addr))
			}
		}
	}

	slog.Info("cache: initialized",
		slog.Duration("success_ttl", okTTL),
		slog.Duration("error_ttl", c.errTTL),
		slog.Bool("redis", c.rdb != nil),
		slog.Int("max_entries", maxEntries))

	go c.cleanupLoop()
	return c
}

// CacheKey builds a deterministic cache key from parts.
func CacheKey(parts ...string) string {
	joined := strings.Join(parts, "|")
	hash := sha256.Sum256([]byte(joined))
	return fmt.Sprintf("yt:%x", hash[:12]) // 24-char hex prefix
}

// Get tries L1, then L2. On L2 hit, populates L1. Side-effect-free from
// the caller's view: any store fault is logged and reported as a miss.
func (c *ResultCache) Get(ctx context.Context, videoID, lang string) (Outcome, bool) {
	if c == nil {
		return Outcome{}, false
	}
	key := CacheKey("transcript", videoID, lang)

	// L1 check
	if val, ok := c.l1.Load(key); ok {
		entry := val.(*cacheEntry)
		if time.Now().Before(entry.expiresAt) {
			c.hits.Add(1)
			return decodeOutcome(entry.data), true
		}
		c.l1.Delete(key) // expired
	}

	// L2 check
	if c.rdb != nil {
		data, err := c.rdb.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			out := decodeOutcome(data)
			c.hits.Add(1)
			// Populate L1; expiry follows the outcome kind.
			c.l1.Store(key, &cacheEntry{data: data, expiresAt: time.Now().Add(c.ttlFor(out))})
			return out, true
		case err != redis.Nil:
			// Store fault — degrade to miss, never fail the request.
			slog.Warn("cache: L2 read failed, treating as miss",
				slog.String("video_id", videoID), slog.Any("error", err))
		}
	}

	c.misses.Add(1)
	return Outcome{}, false
}

// Set stores the outcome in both tiers, best-effort. The TTL depends on
// the outcome kind: failures expire well before successes.
func (c *ResultCache) Set(ctx context.Context, videoID, lang string, out Outcome) {
	if c == nil {
		return
	}
	data, err := json.Marshal(out)
	if err != nil {
		return
	}
	key := CacheKey("transcript", videoID, lang)
	ttl := c.ttlFor(out)

	c.evictIfNeeded()
	c.l1.Store(key, &cacheEntry{data: data, expiresAt: time.Now().Add(ttl)})

	if c.rdb != nil {
		if err := c.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
			slog.Warn("cache: L2 write failed",
				slog.String("video_id", videoID), slog.Any("error", err))
		}
	}
}

// Stats returns current hit/miss counters. Safe on nil.
func (c *ResultCache) Stats() (hits, misses int64) {
	if c == nil {
		return 0, 0
	}
	return c.hits.Load(), c.misses.Load()
}

func (c *ResultCache) ttlFor(out Outcome) time.Duration {
	if out.IsError() {
		return c.errTTL
	}
	return c.okTTL
}

// decodeOutcome parses a stored value. Values written before outcomes
// carried a kind tag are plain strings; those are classified by the shared
// error-signal registry so old entries keep their meaning.
func decodeOutcome(data []byte) Outcome {
	var out Outcome
	if err := json.Unmarshal(data, &out); err == nil && (out.Kind == OutcomeSuccess || out.Kind == OutcomeError) {
		return out
	}
	text := string(data)
	if IsErrorText(text) {
		return Outcome{Kind: OutcomeError, Text: text}
	}
	return Outcome{Kind: OutcomeSuccess, Text: text}
}

// evictIfNeeded removes entries when L1 exceeds maxEntries.
// Removes expired entries first, then oldest entries if still over limit.
func (c *ResultCache) evictIfNeeded() {
	if c.maxEntries <= 0 {
		return
	}

	count := 0
	c.l1.Range(func(_, _ any) bool {
		count++
		return true
	})
	if count < c.maxEntries {
		return
	}

	// Phase 1: remove expired
	now := time.Now()
	c.l1.Range(func(key, val any) bool {
		if entry, ok := val.(*cacheEntry); ok && now.After(entry.expiresAt) {
			c.l1.Delete(key)
			count--
		}
		return count >= c.maxEntries
	})
	if count < c.maxEntries {
		return
	}

	// Phase 2: remove entries closest to expiry until under limit
	var oldest struct {
		key any
		at  time.Time
	}
	for count >= c.maxEntries {
		oldest.key = nil
		oldest.at = now.Add(c.okTTL + time.Hour)
		c.l1.Range(func(key, val any) bool {
			if entry, ok := val.(*cacheEntry); ok && entry.expiresAt.Before(oldest.at) {
				oldest.key = key
				oldest.at = entry.expiresAt
			}
			return true
		})
		if oldest.key == nil {
			break
		}
		c.l1.Delete(oldest.key)
		count--
	}
}

// cleanupLoop periodically removes expired L1 entries.
func (c *ResultCache) cleanupLoop() {
	interval := c.cleanupInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		now := time.Now()
		c.l1.Range(func(key, val any) bool {
			if entry, ok := val.(*cacheEntry); ok && now.After(entry.expiresAt) {
				c.l1.Delete(key)
			}
			return true
		})
	}
}
