// Package transcriptserver registers the MCP tool surface over the
// transcript engine. Tools hold no state of their own — everything flows
// through the injected Pipeline.
package transcriptserver

import (
	"context"
	"fmt"

	"github.com/ergut/youtube-transcript-mcp/internal/engine"
	"github.com/ergut/youtube-transcript-mcp/internal/engine/sources"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// LanguagesOutput is the output of list_transcript_languages.
type LanguagesOutput struct {
	VideoID   string                    `json:"video_id"`
	Languages []sources.CaptionLanguage `json:"languages"`
}

// UsageStatsOutput is the output of usage_stats.
type UsageStatsOutput struct {
	Stats    *engine.UsageStats    `json:"stats"`
	Failures []engine.FetchFailure `json:"recent_failures,omitempty"`
}

// RegisterTools registers all transcript tools on the given MCP server:
// get_transcript, list_transcript_languages, usage_stats.
func RegisterTools(server *mcp.Server, p *engine.Pipeline) {
	registerGetTranscript(server, p)
	registerListLanguages(server)
	registerUsageStats(server, p)
}

func registerGetTranscript(server *mcp.Server, p *engine.Pipeline) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_transcript",
		Description: "Fetch the transcript of a YouTube video as plain text. Accepts any YouTube URL form (watch, youtu.be, embed, shorts, live) or a bare video ID. Results are cached; repeated requests for the same video and language are served from cache.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input engine.TranscriptInput) (*mcp.CallToolResult, *engine.TranscriptResult, error) {
		if input.URL == "" {
			return nil, nil, fmt.Errorf("url is required")
		}
		result, err := p.GetTranscript(ctx, input.URL, input.Language)
		if err != nil {
			// Only the presentable message crosses the tool boundary.
			return nil, nil, err
		}
		return nil, result, nil
	})
}

func registerListLanguages(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_transcript_languages",
		Description: "List the caption languages available for a YouTube video, including whether each track is auto-generated. Does not fetch any transcript text.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input engine.LanguagesInput) (*mcp.CallToolResult, *LanguagesOutput, error) {
		if input.URL == "" {
			return nil, nil, fmt.Errorf("url is required")
		}
		if !engine.IsVideoURL(input.URL) {
			return nil, nil, fmt.Errorf("%w: %q", engine.ErrInvalidInput, input.URL)
		}
		videoID := engine.ExtractVideoID(engine.NormalizeVideoURL(input.URL))

		langs, err := sources.ListCaptionLanguages(ctx, videoID)
		if err != nil {
			msg, _ := engine.Classify(err)
			return nil, nil, fmt.Errorf("%s", msg)
		}
		return nil, &LanguagesOutput{VideoID: videoID, Languages: langs}, nil
	})
}

func registerUsageStats(server *mcp.Server, p *engine.Pipeline) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "usage_stats",
		Description: "Report transcript request counters: today's request count, the all-time total, optionally one video's cumulative count and the most recent failed fetches.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input engine.UsageStatsInput) (*mcp.CallToolResult, *UsageStatsOutput, error) {
		videoID := ""
		if input.URL != "" {
			videoID = engine.ExtractVideoID(engine.NormalizeVideoURL(input.URL))
			if videoID == "" {
				return nil, nil, fmt.Errorf("%w: %q", engine.ErrInvalidInput, input.URL)
			}
		}

		stats, err := p.Usage.Stats(ctx, videoID)
		if err != nil {
			return nil, nil, err
		}
		out := &UsageStatsOutput{Stats: stats}
		if input.Failures > 0 {
			failures, err := p.Usage.RecentFailures(ctx, input.Failures)
			if err != nil {
				return nil, nil, err
			}
			out.Failures = failures
		}
		return nil, out, nil
	})
}
