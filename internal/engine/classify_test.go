package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantMsg      string
		wantCategory string
	}{
		{"unavailable", &ErrVideoUnavailable{VideoID: "dQw4w9WgXcQ"}, MsgVideoNotFound, CategoryNotFound},
		{"unavailable with reason", &ErrVideoUnavailable{VideoID: "dQw4w9WgXcQ", Reason: "private"}, MsgVideoNotFound, CategoryNotFound},
		{"disabled", &ErrTranscriptsDisabled{VideoID: "dQw4w9WgXcQ"}, MsgTranscriptsDisabled, CategoryDisabled},
		{"no transcript", &ErrNoTranscript{VideoID: "dQw4w9WgXcQ", Language: "de"}, MsgNoTranscript, CategoryNoTranscript},
		{"busy", &ErrServiceBusy{StatusCode: 429}, MsgServiceBusy, CategoryBusy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, category := Classify(tt.err)
			assert.Equal(t, tt.wantMsg, msg)
			assert.Equal(t, tt.wantCategory, category)
		})
	}
}

func TestClassifyWrapped(t *testing.T) {
	// Classification must see through fmt.Errorf wrapping.
	err := fmt.Errorf("player: %w", &ErrTranscriptsDisabled{VideoID: "dQw4w9WgXcQ"})
	msg, category := Classify(err)
	assert.Equal(t, MsgTranscriptsDisabled, msg)
	assert.Equal(t, CategoryDisabled, category)
}

func TestClassifyGenericFallback(t *testing.T) {
	msg, category := Classify(errors.New("tcp reset by peer"))
	assert.Equal(t, CategoryUnknown, category)
	assert.True(t, len(msg) > len(ErrorMarker))
	assert.Equal(t, ErrorMarker, msg[:len(ErrorMarker)])
}

func TestClassifyDeterministic(t *testing.T) {
	err := errors.New("some weird failure")
	m1, c1 := Classify(err)
	m2, c2 := Classify(err)
	assert.Equal(t, m1, m2)
	assert.Equal(t, c1, c2)
}

// Every message the classifier can produce must be recognized by the
// registry the cache reader uses for untagged legacy values. If this test
// fails, a cached failure would be served as a transcript.
func TestClassifierRegistryRoundTrip(t *testing.T) {
	faults := []error{
		&ErrVideoUnavailable{VideoID: "x"},
		&ErrTranscriptsDisabled{VideoID: "x"},
		&ErrNoTranscript{VideoID: "x", Language: "fr"},
		&ErrServiceBusy{StatusCode: 503},
		errors.New("anything else"),
	}
	for _, fault := range faults {
		msg, _ := Classify(fault)
		require.True(t, IsErrorText(msg), "classified message %q not recognized as error text", msg)
	}
}

func TestIsErrorText(t *testing.T) {
	assert.False(t, IsErrorText("Hello world."))
	assert.False(t, IsErrorText(""))
	assert.False(t, IsErrorText("An error occurred in the video")) // no registry phrase
	assert.True(t, IsErrorText(ErrorMarker+"something broke"))
	assert.True(t, IsErrorText(MsgVideoNotFound))
}

func TestShortReason(t *testing.T) {
	assert.Equal(t, "unknown error", shortReason(nil))
	assert.Equal(t, "boom", shortReason(errors.New("boom\nstack trace line 1\nline 2")))
}
