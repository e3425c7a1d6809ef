package engine

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// UsageTracker persists best-effort request counters in SQLite:
// a global per-day request count, a cumulative per-video count, and a
// detail log of failed fetches. Counters are increment-only; resets and
// retention are external policy (a cron over the DB file, if anyone cares).
//
// A nil *UsageTracker is valid and skips all tracking.

type UsageTracker struct {
	db *sql.DB
}

// UsageStats is a read snapshot for the usage_stats tool.
type UsageStats struct {
	Day           string `json:"day"`
	RequestsToday int64  `json:"requests_today"`
	RequestsTotal int64  `json:"requests_total"`
	VideoID       string `json:"video_id,omitempty"`
	VideoRequests int64  `json:"video_requests,omitempty"`
}

// FetchFailure is one row of the failure detail log.
type FetchFailure struct {
	VideoID   string `json:"video_id"`
	Category  string `json:"category"`
	Message   string `json:"message"`
	CreatedAt string `json:"created_at"`
}

// NewUsageTracker opens (or creates) the SQLite usage database at path.
func NewUsageTracker(path string) (*UsageTracker, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("usage: mkdir %s: %w", filepath.Dir(path), err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("usage: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer
	if err := initUsageSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("usage: init schema: %w", err)
	}
	return &UsageTracker{db: db}, nil
}

func initUsageSchema(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS usage_daily (
		day      TEXT PRIMARY KEY,
		requests INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS usage_video (
		video_id TEXT PRIMARY KEY,
		requests INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS fetch_failures (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		video_id   TEXT NOT NULL,
		category   TEXT NOT NULL,
		message    TEXT,
		created_at TEXT NOT NULL
	)`)
	return err
}

// dayKey returns the UTC day string used as the daily counter key.
func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// IncrementDaily bumps today's global request counter by one.
func (u *UsageTracker) IncrementDaily(ctx context.Context) error {
	if u == nil {
		return nil
	}
	_, err := u.db.ExecContext(ctx,
		`INSERT INTO usage_daily (day, requests) VALUES (?, 1)
		 ON CONFLICT(day) DO UPDATE SET requests = requests + 1`,
		dayKey(time.Now()))
	return err
}

// IncrementVideo bumps the cumulative counter for one video by one.
func (u *UsageTracker) IncrementVideo(ctx context.Context, videoID string) error {
	if u == nil {
		return nil
	}
	_, err := u.db.ExecContext(ctx,
		`INSERT INTO usage_video (video_id, requests) VALUES (?, 1)
		 ON CONFLICT(video_id) DO UPDATE SET requests = requests + 1`,
		videoID)
	return err
}

// RecordFailure appends one failed-fetch row. Called only on fetch
// failures, never for cache hits.
func (u *UsageTracker) RecordFailure(ctx context.Context, videoID, category, message string) error {
	if u == nil {
		return nil
	}
	_, err := u.db.ExecContext(ctx,
		`INSERT INTO fetch_failures (video_id, category, message, created_at) VALUES (?, ?, ?, ?)`,
		videoID, category, message, time.Now().UTC().Format(time.RFC3339))
	return err
}

// Stats reads the current counters. videoID may be empty.
func (u *UsageTracker) Stats(ctx context.Context, videoID string) (*UsageStats, error) {
	if u == nil {
		return nil, fmt.Errorf("usage tracking is disabled")
	}
	stats := &UsageStats{Day: dayKey(time.Now())}

	err := u.db.QueryRowContext(ctx,
		`SELECT COALESCE(requests, 0) FROM usage_daily WHERE day = ?`, stats.Day).
		Scan(&stats.RequestsToday)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("usage: read daily: %w", err)
	}

	if err := u.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(requests), 0) FROM usage_daily`).
		Scan(&stats.RequestsTotal); err != nil {
		return nil, fmt.Errorf("usage: read total: %w", err)
	}

	if videoID != "" {
		stats.VideoID = videoID
		err := u.db.QueryRowContext(ctx,
			`SELECT requests FROM usage_video WHERE video_id = ?`, videoID).
			Scan(&stats.VideoRequests)
		if err != nil && err != sql.ErrNoRows {
			return nil, fmt.Errorf("usage: read video: %w", err)
		}
	}
	return stats, nil
}

// RecentFailures returns the newest failure rows, most recent first.
func (u *UsageTracker) RecentFailures(ctx context.Context, limit int) ([]FetchFailure, error) {
	if u == nil {
		return nil, fmt.Errorf("usage tracking is disabled")
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := u.db.QueryContext(ctx,
		`SELECT video_id, category, message, created_at
		 FROM fetch_failures ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("usage: read failures: %w", err)
	}
	defer rows.Close()

	var out []FetchFailure
	for rows.Next() {
		var f FetchFailure
		if err := rows.Scan(&f.VideoID, &f.Category, &f.Message, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Close releases the underlying database handle.
func (u *UsageTracker) Close() error {
	if u == nil {
		return nil
	}
	return u.db.Close()
}

// logTrackingFailure is the shared log path for detached counter updates.
func logTrackingFailure(op string, err error) {
	slog.Warn("usage: tracking failed", slog.String("op", op), slog.Any("error", err))
}
