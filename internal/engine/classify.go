package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Upstream fetch failures, classified into a small fixed set of
// user-presentable messages. The raw fault never leaves the engine —
// only the presentable string is cached and returned.

// ErrorMarker prefixes every generic (unclassified) failure message.
const ErrorMarker = "Error: "

// Presentable messages, one per failure category. These strings are part
// of the cache contract: once written they may come back verbatim on a
// later cache hit, so they must stay stable across releases.
const (
	MsgVideoNotFound       = "Video not found or is private."
	MsgTranscriptsDisabled = "Transcripts are disabled for this video."
	MsgNoTranscript        = "No transcript is available in the requested language."
	MsgServiceBusy         = "The transcript service is busy, try again later."
)

// Failure category labels, used for metrics and the failure log.
const (
	CategoryNotFound     = "not_found"
	CategoryDisabled     = "disabled"
	CategoryNoTranscript = "no_transcript"
	CategoryBusy         = "busy"
	CategoryUnknown      = "unknown"
)

// Typed fetch errors. The sources package returns these so the classifier
// can map faults without inspecting message text.

// ErrVideoUnavailable means the video does not exist or is not public.
type ErrVideoUnavailable struct {
	VideoID string
	Reason  string
}

func (e *ErrVideoUnavailable) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("video %s unavailable: %s", e.VideoID, e.Reason)
	}
	return fmt.Sprintf("video %s unavailable", e.VideoID)
}

// ErrTranscriptsDisabled means the uploader turned captions off.
type ErrTranscriptsDisabled struct {
	VideoID string
}

func (e *ErrTranscriptsDisabled) Error() string {
	return fmt.Sprintf("transcripts disabled for video %s", e.VideoID)
}

// ErrNoTranscript means the video has captions, but none usable for the
// requested language.
type ErrNoTranscript struct {
	VideoID  string
	Language string
}

func (e *ErrNoTranscript) Error() string {
	return fmt.Sprintf("no transcript for video %s in language %q", e.VideoID, e.Language)
}

// ErrServiceBusy means YouTube rate-limited or temporarily rejected us.
type ErrServiceBusy struct {
	StatusCode int
}

func (e *ErrServiceBusy) Error() string {
	return fmt.Sprintf("upstream busy (HTTP %d)", e.StatusCode)
}

// Classify maps a raw fetch failure to its presentable message and
// category label. Pure and deterministic: the same fault always yields
// the same message.
func Classify(err error) (msg, category string) {
	var (
		unavailable *ErrVideoUnavailable
		disabled    *ErrTranscriptsDisabled
		missing     *ErrNoTranscript
		busy        *ErrServiceBusy
	)
	switch {
	case errors.As(err, &unavailable):
		return MsgVideoNotFound, CategoryNotFound
	case errors.As(err, &disabled):
		return MsgTranscriptsDisabled, CategoryDisabled
	case errors.As(err, &missing):
		return MsgNoTranscript, CategoryNoTranscript
	case errors.As(err, &busy):
		return MsgServiceBusy, CategoryBusy
	}
	return ErrorMarker + "failed to fetch transcript: " + shortReason(err), CategoryUnknown
}

// errorSignals is the registry of phrases that mark a cached plain-string
// value as a previously classified failure. The cache reader consults it
// for entries written before outcomes carried an explicit kind tag. Every
// presentable message above must be recognizable here.
var errorSignals = []string{
	MsgVideoNotFound,
	MsgTranscriptsDisabled,
	MsgNoTranscript,
	MsgServiceBusy,
}

// IsErrorText reports whether a cached plain-string value represents a
// classified failure rather than a transcript.
func IsErrorText(s string) bool {
	if strings.HasPrefix(s, ErrorMarker) {
		return true
	}
	for _, sig := range errorSignals {
		if strings.Contains(s, sig) {
			return true
		}
	}
	return false
}

// shortReason compacts a raw error into a single short line safe to show
// to a user. Internal detail past the first wrap level is dropped.
func shortReason(err error) string {
	if err == nil {
		return "unknown error"
	}
	s := strings.TrimSpace(err.Error())
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return TruncateRunes(s, 200, "...")
}
