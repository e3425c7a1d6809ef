package engine

import (
	"net/url"
	"regexp"
	"strings"
)

// YouTube URL identification and normalization.
// All alternate surface forms (youtu.be short links, /embed/, /shorts/,
// /live/, mobile hosts, bare IDs) collapse into one canonical watch URL
// so the rest of the pipeline only ever sees a single shape.

const canonicalWatchPrefix = "https://www.youtube.com/watch?v="

// videoIDRe matches a standalone YouTube video ID token. IDs are 11
// characters today, but the length is not contractual, so accept a range.
var videoIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]{6,20}$`)

// IsVideoURL reports whether raw structurally identifies a single YouTube
// video. Purely syntactic — no network access.
func IsVideoURL(raw string) bool {
	return ExtractVideoID(NormalizeVideoURL(raw)) != ""
}

// NormalizeVideoURL rewrites any recognized YouTube video URL form into the
// canonical https://www.youtube.com/watch?v=<id> shape. Unrecognized input
// is returned unchanged. Idempotent: normalizing a canonical URL is a no-op.
func NormalizeVideoURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if videoIDRe.MatchString(raw) {
		return canonicalWatchPrefix + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimPrefix(host, "m.")

	var id string
	switch host {
	case "youtu.be":
		id = strings.Trim(u.Path, "/")
	case "youtube.com", "youtube-nocookie.com", "music.youtube.com":
		path := strings.Trim(u.Path, "/")
		switch {
		case path == "watch":
			id = u.Query().Get("v")
		case strings.HasPrefix(path, "embed/"),
			strings.HasPrefix(path, "shorts/"),
			strings.HasPrefix(path, "live/"),
			strings.HasPrefix(path, "v/"):
			parts := strings.SplitN(path, "/", 2)
			if len(parts) == 2 {
				id = parts[1]
			}
		}
	}

	// Segments can carry trailing path or query junk from share links.
	if i := strings.IndexAny(id, "/?&"); i >= 0 {
		id = id[:i]
	}
	if !videoIDRe.MatchString(id) {
		return raw
	}
	return canonicalWatchPrefix + id
}

// ExtractVideoID pulls the video identifier out of a canonical watch URL.
// Returns "" when the URL is not in canonical form or the token is malformed.
func ExtractVideoID(normalized string) string {
	id, ok := strings.CutPrefix(normalized, canonicalWatchPrefix)
	if !ok || !videoIDRe.MatchString(id) {
		return ""
	}
	return id
}
