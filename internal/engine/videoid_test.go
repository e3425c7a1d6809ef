package engine

import "testing"

func TestNormalizeVideoURL(t *testing.T) {
	const want = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
	tests := []struct {
		name string
		in   string
	}{
		{"canonical", "https://www.youtube.com/watch?v=dQw4w9WgXcQ"},
		{"short link", "https://youtu.be/dQw4w9WgXcQ"},
		{"short link with params", "https://youtu.be/dQw4w9WgXcQ?si=AbCdEf123&t=42"},
		{"embed", "https://www.youtube.com/embed/dQw4w9WgXcQ"},
		{"shorts", "https://www.youtube.com/shorts/dQw4w9WgXcQ"},
		{"live", "https://www.youtube.com/live/dQw4w9WgXcQ"},
		{"old flash path", "https://www.youtube.com/v/dQw4w9WgXcQ"},
		{"mobile host", "https://m.youtube.com/watch?v=dQw4w9WgXcQ"},
		{"nocookie host", "https://www.youtube-nocookie.com/embed/dQw4w9WgXcQ"},
		{"music host", "https://music.youtube.com/watch?v=dQw4w9WgXcQ"},
		{"extra query params", "https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PL123&index=2"},
		{"bare ID", "dQw4w9WgXcQ"},
		{"surrounding whitespace", "  https://youtu.be/dQw4w9WgXcQ  "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeVideoURL(tt.in); got != want {
				t.Errorf("NormalizeVideoURL(%q) = %q, want %q", tt.in, got, want)
			}
		})
	}
}

func TestNormalizeVideoURLIdempotent(t *testing.T) {
	inputs := []string{
		"https://youtu.be/dQw4w9WgXcQ",
		"https://www.youtube.com/shorts/dQw4w9WgXcQ",
		"dQw4w9WgXcQ",
		"not a url at all",
	}
	for _, in := range inputs {
		once := NormalizeVideoURL(in)
		twice := NormalizeVideoURL(once)
		if once != twice {
			t.Errorf("not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestExtractVideoID(t *testing.T) {
	t.Run("canonical URL", func(t *testing.T) {
		if got := ExtractVideoID("https://www.youtube.com/watch?v=dQw4w9WgXcQ"); got != "dQw4w9WgXcQ" {
			t.Errorf("got %q, want dQw4w9WgXcQ", got)
		}
	})
	t.Run("non-canonical returns empty", func(t *testing.T) {
		for _, in := range []string{
			"https://youtu.be/dQw4w9WgXcQ",
			"https://www.youtube.com/watch?v=bad!chars",
			"",
		} {
			if got := ExtractVideoID(in); got != "" {
				t.Errorf("ExtractVideoID(%q) = %q, want empty", in, got)
			}
		}
	})
}

func TestIsVideoURL(t *testing.T) {
	valid := []string{
		"https://youtu.be/abc123_-XYZ",
		"https://www.youtube.com/watch?v=abc123_-XYZ",
		"abc123_-XYZ",
	}
	for _, u := range valid {
		if !IsVideoURL(u) {
			t.Errorf("IsVideoURL(%q) = false, want true", u)
		}
	}

	invalid := []string{
		"",
		"not a url",
		"https://example.com/watch?v=abc123_-XYZ",
		"https://www.youtube.com/watch",
		"https://www.youtube.com/watch?v=bad!chars!!",
		"https://www.youtube.com/playlist?list=PL123",
		"https://youtu.be/",
	}
	for _, u := range invalid {
		if IsVideoURL(u) {
			t.Errorf("IsVideoURL(%q) = true, want false", u)
		}
	}
}

// Different surface forms of the same video must always derive the same
// identifier.
func TestVideoIDDeterminism(t *testing.T) {
	forms := []string{
		"https://youtu.be/abc123_-XYZ",
		"https://www.youtube.com/watch?v=abc123_-XYZ&t=10",
		"https://www.youtube.com/embed/abc123_-XYZ",
		"abc123_-XYZ",
	}
	want := ExtractVideoID(NormalizeVideoURL(forms[0]))
	if want == "" {
		t.Fatal("expected non-empty ID")
	}
	for _, f := range forms[1:] {
		if got := ExtractVideoID(NormalizeVideoURL(f)); got != want {
			t.Errorf("form %q derived %q, want %q", f, got, want)
		}
	}
}
