package engine

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestTracker(t *testing.T) *UsageTracker {
	t.Helper()
	u, err := NewUsageTracker(filepath.Join(t.TempDir(), "usage.db"))
	if err != nil {
		t.Fatalf("NewUsageTracker: %v", err)
	}
	t.Cleanup(func() { u.Close() })
	return u
}

func TestUsageIncrementDaily(t *testing.T) {
	u := newTestTracker(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := u.IncrementDaily(ctx); err != nil {
			t.Fatalf("IncrementDaily: %v", err)
		}
	}

	stats, err := u.Stats(ctx, "")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.RequestsToday != 3 {
		t.Errorf("RequestsToday = %d, want 3", stats.RequestsToday)
	}
	if stats.RequestsTotal != 3 {
		t.Errorf("RequestsTotal = %d, want 3", stats.RequestsTotal)
	}
}

func TestUsageIncrementVideo(t *testing.T) {
	u := newTestTracker(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := u.IncrementVideo(ctx, "dQw4w9WgXcQ"); err != nil {
			t.Fatalf("IncrementVideo: %v", err)
		}
	}
	if err := u.IncrementVideo(ctx, "otherVideo_1"); err != nil {
		t.Fatalf("IncrementVideo: %v", err)
	}

	stats, err := u.Stats(ctx, "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.VideoRequests != 2 {
		t.Errorf("VideoRequests = %d, want 2", stats.VideoRequests)
	}
	if stats.VideoID != "dQw4w9WgXcQ" {
		t.Errorf("VideoID = %q", stats.VideoID)
	}
}

func TestUsageStatsUnknownVideo(t *testing.T) {
	u := newTestTracker(t)

	stats, err := u.Stats(context.Background(), "neverSeen__1")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.VideoRequests != 0 {
		t.Errorf("VideoRequests = %d, want 0", stats.VideoRequests)
	}
}

func TestUsageRecordFailure(t *testing.T) {
	u := newTestTracker(t)
	ctx := context.Background()

	if err := u.RecordFailure(ctx, "dQw4w9WgXcQ", CategoryDisabled, MsgTranscriptsDisabled); err != nil {
		t.Fatalf("RecordFailure: %v", err)
	}
	if err := u.RecordFailure(ctx, "otherVideo_1", CategoryBusy, MsgServiceBusy); err != nil {
		t.Fatalf("RecordFailure: %v", err)
	}

	failures, err := u.RecentFailures(ctx, 10)
	if err != nil {
		t.Fatalf("RecentFailures: %v", err)
	}
	if len(failures) != 2 {
		t.Fatalf("got %d failures, want 2", len(failures))
	}
	// Most recent first.
	if failures[0].VideoID != "otherVideo_1" || failures[0].Category != CategoryBusy {
		t.Errorf("unexpected newest failure: %+v", failures[0])
	}
	if failures[1].Message != MsgTranscriptsDisabled {
		t.Errorf("unexpected oldest failure message: %q", failures[1].Message)
	}
}

func TestNilUsageTracker(t *testing.T) {
	var u *UsageTracker
	ctx := context.Background()

	if err := u.IncrementDaily(ctx); err != nil {
		t.Errorf("nil IncrementDaily: %v", err)
	}
	if err := u.IncrementVideo(ctx, "dQw4w9WgXcQ"); err != nil {
		t.Errorf("nil IncrementVideo: %v", err)
	}
	if err := u.RecordFailure(ctx, "dQw4w9WgXcQ", CategoryUnknown, "x"); err != nil {
		t.Errorf("nil RecordFailure: %v", err)
	}
	if _, err := u.Stats(ctx, ""); err == nil {
		t.Error("nil Stats should report tracking disabled")
	}
	if err := u.Close(); err != nil {
		t.Errorf("nil Close: %v", err)
	}
}
