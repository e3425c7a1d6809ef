package engine

// MCP tool inputs.

// TranscriptInput is the input for get_transcript.
type TranscriptInput struct {
	URL      string `json:"url" jsonschema:"YouTube video URL (watch, youtu.be, embed, shorts, live) or bare 11-character video ID"`
	Language string `json:"language,omitempty" jsonschema:"Preferred transcript language code (default: en). Accepted verbatim, no validation against a known set"`
}

// LanguagesInput is the input for list_transcript_languages.
type LanguagesInput struct {
	URL string `json:"url" jsonschema:"YouTube video URL or bare 11-character video ID"`
}

// UsageStatsInput is the input for usage_stats.
type UsageStatsInput struct {
	URL      string `json:"url,omitempty" jsonschema:"Optional video URL to include that video's cumulative request count"`
	Failures int    `json:"failures,omitempty" jsonschema:"Include the N most recent failed fetches (0 = none)"`
}
