// youtube-transcript-mcp — YouTube transcript MCP server.
//
// Exposes three MCP tools: get_transcript, list_transcript_languages,
// usage_stats. Runs as HTTP MCP server or stdio transport.
//
// Transcripts are cached (in-memory, optionally Redis) with separate
// retention for successes and classified failures; request counters are
// tracked best-effort in a local SQLite database.
package main

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-mcpserver"
	"github.com/ergut/youtube-transcript-mcp/internal/engine"
	"github.com/ergut/youtube-transcript-mcp/internal/engine/sources"
	"github.com/ergut/youtube-transcript-mcp/internal/transcriptserver"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var (
	version = "dev"
	mcpPort = env.Str("MCP_PORT", "8892")
)

func main() {
	pipeline := initEngine()

	slog.Info("starting youtube-transcript-mcp",
		slog.String("port", mcpPort),
	)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "youtube-transcript",
		Version: version,
	}, nil)

	transcriptserver.RegisterTools(server, pipeline)
	slog.Info("tools registered", slog.Int("count", 3))

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         "youtube-transcript",
		Version:      version,
		Port:         mcpPort,
		WriteTimeout: 120 * time.Second,
		Metrics:      engine.FormatMetrics,
	}); err != nil {
		slog.Error("server failed", slog.Any("error", err))
	}
}

func initEngine() *engine.Pipeline {
	c := engine.Config{
		DefaultLanguage:      env.Str("DEFAULT_LANGUAGE", "en"),
		FetchTimeout:         env.Duration("FETCH_TIMEOUT", 30*time.Second),
		MaxTranscriptChars:   env.Int("MAX_TRANSCRIPT_CHARS", 0),
		SuccessTTL:           env.Duration("CACHE_SUCCESS_TTL", 24*time.Hour),
		ErrorTTL:             env.Duration("CACHE_ERROR_TTL", time.Hour),
		CacheMaxEntries:      env.Int("CACHE_MAX_ENTRIES", 1000),
		CacheCleanupInterval: env.Duration("CACHE_CLEANUP_INTERVAL", 300*time.Second),
		FetchRateLimit:       env.Float("FETCH_RATE_LIMIT", 1.0),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     60 * time.Second,
			},
		},
	}
	engine.Init(c)
	sources.InitRateLimit(c.FetchRateLimit)

	cache := engine.NewResultCache(
		env.Str("REDIS_URL", ""),
		c.SuccessTTL, c.ErrorTTL,
		c.CacheMaxEntries, c.CacheCleanupInterval,
	)
	engine.RegisterCacheMetrics(cache)

	// Usage tracking is best-effort: a broken DB degrades to no tracking.
	var usage *engine.UsageTracker
	dbPath := env.Str("USAGE_DB_PATH", filepath.Join(os.Getenv("HOME"), ".youtube-transcript-mcp", "usage.db"))
	if dbPath != "" {
		u, err := engine.NewUsageTracker(dbPath)
		if err != nil {
			slog.Warn("usage tracker init failed, tracking disabled", slog.Any("error", err))
		} else {
			usage = u
			slog.Info("usage tracker initialized", slog.String("path", dbPath))
		}
	}

	return &engine.Pipeline{
		Cache: cache,
		Usage: usage,
		Fetch: sources.FetchYouTubeTranscript,
	}
}
