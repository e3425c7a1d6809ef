package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/ergut/youtube-transcript-mcp/internal/engine"
)

// Transcript fetching strategies, tried in order:
//  1. watch page scrape of ytInitialPlayerResponse → caption timedtext XML (works from any IP)
//  2. /next → engagement panel → /get_transcript (works from datacenter IPs)
//  3. ANDROID Innertube /player → captionTracks (works from non-blocked IPs)
//
// Failures that identify a definitive condition (video gone, captions off,
// wrong language) surface as the typed errors in the engine package so the
// classifier never has to parse message text.

// getTranscriptRE extracts the continuation token from a raw /next JSON response.
var getTranscriptRE = regexp.MustCompile(`"getTranscriptEndpoint":\{"params":"([^"]+)"`)

func extractTranscriptToken(data []byte) (string, error) {
	if m := getTranscriptRE.FindSubmatch(data); len(m) >= 2 {
		// The params value in the /next JSON response is URL-encoded.
		// /get_transcript expects the decoded (raw base64) form.
		decoded, err := url.QueryUnescape(string(m[1]))
		if err != nil {
			return string(m[1]), nil
		}
		return decoded, nil
	}
	return "", errors.New("getTranscriptEndpoint not found in engagement panels")
}

// parseTranscriptSegments extracts plain text from a /get_transcript JSON response.
func parseTranscriptSegments(resp ytGetTranscriptResp) string {
	var sb strings.Builder
	for _, action := range resp.Actions {
		if action.UpdateEngagementPanelAction == nil {
			continue
		}
		segs := action.UpdateEngagementPanelAction.Content.
			TranscriptRenderer.Content.
			TranscriptSearchPanelRenderer.Body.
			TranscriptSegmentListRenderer.InitialSegments
		for _, seg := range segs {
			if seg.TranscriptSegmentRenderer == nil {
				continue
			}
			for _, run := range seg.TranscriptSegmentRenderer.Snippet.Runs {
				if run.Text != "" {
					if sb.Len() > 0 {
						sb.WriteByte(' ')
					}
					sb.WriteString(run.Text)
				}
			}
		}
	}
	return sb.String()
}

// fetchTranscriptViaEngagementPanel fetches a transcript via:
//  1. POST /next → get engagementPanels containing transcript continuation token
//  2. POST /get_transcript with the token → JSON segments
func fetchTranscriptViaEngagementPanel(ctx context.Context, videoID string) (string, error) {
	visitorData := generateVisitorData()

	nextData, err := postInnerTubeWEB(ctx, ytNextURL, map[string]any{
		"videoId": videoID,
		"context": ytWebContext(visitorData),
	}, visitorData)
	if err != nil {
		return "", fmt.Errorf("/next: %w", err)
	}

	token, err := extractTranscriptToken(nextData)
	if err != nil {
		return "", fmt.Errorf("token: %w", err)
	}

	transcriptData, err := postInnerTubeWEB(ctx, ytGetTranscriptURL, map[string]any{
		"params": token,
		"context": map[string]any{
			"client": ytWebClientCtx{
				ClientName:    "WEB",
				ClientVersion: ytWebVersion,
				VisitorData:   visitorData,
				Hl:            "en",
				Gl:            "US",
			},
		},
	}, visitorData)
	if err != nil {
		return "", fmt.Errorf("/get_transcript: %w", err)
	}

	var transcriptResp ytGetTranscriptResp
	if err := json.Unmarshal(transcriptData, &transcriptResp); err != nil {
		return "", fmt.Errorf("decode transcript: %w", err)
	}

	text := parseTranscriptSegments(transcriptResp)
	if text == "" {
		return "", errors.New("empty transcript segments")
	}
	return text, nil
}

// needsPoToken reports whether a caption track URL requires a PoToken (browser-only).
// Tracks with &exp=xpe cannot be fetched server-side.
func needsPoToken(baseURL string) bool {
	return strings.Contains(baseURL, "&exp=xpe")
}

// pickTrack selects the usable caption track for the given language
// preference order. Manual tracks beat auto-generated ones within each
// language. Returns an *engine.ErrNoTranscript when the video has tracks
// but none in any requested language, and an *engine.ErrTranscriptsDisabled
// when no usable track exists at all.
func pickTrack(videoID string, tracks []captionTrack, langs []string) (captionTrack, error) {
	usable := make([]captionTrack, 0, len(tracks))
	for _, t := range tracks {
		if !needsPoToken(t.BaseURL) {
			usable = append(usable, t)
		}
	}
	if len(usable) == 0 {
		return captionTrack{}, &engine.ErrTranscriptsDisabled{VideoID: videoID}
	}
	// 1. Manual track in preferred language
	for _, lang := range langs {
		for _, t := range usable {
			if matchLang(t.LanguageCode, lang) && t.Kind != "asr" {
				return t, nil
			}
		}
	}
	// 2. Auto-generated track in preferred language
	for _, lang := range langs {
		for _, t := range usable {
			if matchLang(t.LanguageCode, lang) {
				return t, nil
			}
		}
	}
	requested := ""
	if len(langs) > 0 {
		requested = langs[0]
	}
	return captionTrack{}, &engine.ErrNoTranscript{VideoID: videoID, Language: requested}
}

// matchLang treats regional variants as matching their base tag ("en-GB" ~ "en").
func matchLang(trackCode, want string) bool {
	return trackCode == want || strings.HasPrefix(trackCode, want+"-")
}

// fetchTimedText fetches and parses a YouTube timedtext XML caption URL.
func fetchTimedText(ctx context.Context, baseURL string) (string, error) {
	if err := waitUpstream(ctx); err != nil {
		return "", err
	}
	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.UserAgentBot)
		return engine.Cfg.HTTPClient.Do(req)
	})
	if err != nil {
		return "", fmt.Errorf("fetch timedtext: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return "", err
	}

	var tt ytTimedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return "", fmt.Errorf("parse timedtext XML: %w", err)
	}

	var sb strings.Builder
	for _, line := range tt.Lines {
		text := engine.CleanHTML(line.Text)
		if text != "" {
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(text)
		}
	}
	return sb.String(), nil
}

// fetchPlayerResponse calls the ANDROID Innertube /player endpoint.
// Works from non-blocked (residential/cloud) IP addresses.
func fetchPlayerResponse(ctx context.Context, videoID string) (*innertubePlayerResp, error) {
	reqBody, err := json.Marshal(innertubeReq{
		VideoID: videoID,
		Context: innertubeCtx{
			Client: innertubeClient{
				ClientName:        "ANDROID",
				ClientVersion:     ytAndroidVersion,
				AndroidSdkVersion: 30,
				Hl:                "en",
				Gl:                "US",
			},
		},
		RacyCheckOk:    true,
		ContentCheckOk: true,
	})
	if err != nil {
		return nil, err
	}

	if err := waitUpstream(ctx); err != nil {
		return nil, err
	}
	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, ytInnertubeURL+"?prettyPrint=false", bytes.NewReader(reqBody))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", ytAndroidUA)
		req.Header.Set("X-Youtube-Client-Name", "3")
		req.Header.Set("X-Youtube-Client-Version", ytAndroidVersion)
		return engine.Cfg.HTTPClient.Do(req)
	})
	if err != nil {
		if code := engine.BusyStatusCode(err); code != 0 {
			return nil, &engine.ErrServiceBusy{StatusCode: code}
		}
		return nil, fmt.Errorf("android innertube: %w", err)
	}
	defer resp.Body.Close()

	var playerResp innertubePlayerResp
	if err := json.NewDecoder(resp.Body).Decode(&playerResp); err != nil {
		return nil, fmt.Errorf("decode player: %w", err)
	}
	return &playerResp, nil
}

// tracksFromPlayerResponse maps a player response to caption tracks,
// converting definitive playability states into typed errors.
func tracksFromPlayerResponse(videoID string, playerResp *innertubePlayerResp) ([]captionTrack, error) {
	if ps := playerResp.PlayabilityStatus; ps != nil {
		switch ps.Status {
		case "ERROR", "UNPLAYABLE":
			return nil, &engine.ErrVideoUnavailable{VideoID: videoID, Reason: ps.Reason}
		case "LOGIN_REQUIRED":
			return nil, &engine.ErrVideoUnavailable{VideoID: videoID, Reason: "sign-in required"}
		}
	}
	if playerResp.Captions == nil {
		return nil, &engine.ErrTranscriptsDisabled{VideoID: videoID}
	}
	tracks := playerResp.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
	if len(tracks) == 0 {
		return nil, &engine.ErrTranscriptsDisabled{VideoID: videoID}
	}
	return tracks, nil
}

// fetchTranscriptViaPlayer resolves a transcript through the ANDROID /player endpoint.
func fetchTranscriptViaPlayer(ctx context.Context, videoID string, langs []string) (string, error) {
	playerResp, err := fetchPlayerResponse(ctx, videoID)
	if err != nil {
		return "", err
	}
	tracks, err := tracksFromPlayerResponse(videoID, playerResp)
	if err != nil {
		return "", err
	}
	track, err := pickTrack(videoID, tracks, langs)
	if err != nil {
		return "", err
	}
	return fetchTimedText(ctx, track.BaseURL)
}

// ytInitialPlayerResponseMarker marks the start of the player response JSON in watch page HTML.
const ytInitialPlayerResponseMarker = "ytInitialPlayerResponse = "

// playerResponseFromHTML extracts the embedded ytInitialPlayerResponse JSON
// from watch page HTML.
func playerResponseFromHTML(body []byte) (*innertubePlayerResp, error) {
	idx := bytes.Index(body, []byte(ytInitialPlayerResponseMarker))
	if idx < 0 {
		return nil, errors.New("ytInitialPlayerResponse not found in watch page")
	}
	jsonData := extractJSON(body[idx+len(ytInitialPlayerResponseMarker):])
	if jsonData == nil {
		return nil, errors.New("failed to extract ytInitialPlayerResponse JSON")
	}

	var playerResp innertubePlayerResp
	if err := json.Unmarshal(jsonData, &playerResp); err != nil {
		return nil, fmt.Errorf("decode ytInitialPlayerResponse: %w", err)
	}
	return &playerResp, nil
}

// fetchWatchPage loads the watch page HTML with the plain HTTP client.
func fetchWatchPage(ctx context.Context, watchURL string) ([]byte, error) {
	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, watchURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.RandomUserAgent())
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		return engine.Cfg.HTTPClient.Do(req)
	})
	if err != nil {
		if code := engine.BusyStatusCode(err); code != 0 {
			return nil, &engine.ErrServiceBusy{StatusCode: code}
		}
		return nil, fmt.Errorf("watch page: %w", err)
	}
	defer resp.Body.Close()
	return io.ReadAll(io.LimitReader(resp.Body, 6*1024*1024))
}

// scrapePlayerResponse loads the watch page HTML and extracts the embedded
// ytInitialPlayerResponse JSON. Works from any IP. When the plain client
// is served a blocked or stripped page, retries once through the Chrome
// TLS fingerprint client before giving up.
func scrapePlayerResponse(ctx context.Context, videoID string) (*innertubePlayerResp, error) {
	watchURL := "https://www.youtube.com/watch?v=" + videoID

	if err := waitUpstream(ctx); err != nil {
		return nil, err
	}
	body, err := fetchWatchPage(ctx, watchURL)
	if err == nil {
		playerResp, perr := playerResponseFromHTML(body)
		if perr == nil {
			return playerResp, nil
		}
		err = perr
	}
	var busy *engine.ErrServiceBusy
	if errors.As(err, &busy) || ctx.Err() != nil {
		return nil, err
	}

	bc, bcErr := engine.SharedBrowserClient()
	if bcErr != nil {
		return nil, err
	}
	slog.Debug("youtube: plain watch page fetch failed, retrying with browser fingerprint",
		slog.String("id", videoID), slog.Any("err", err))
	data, status, bcErr := bc.Do(http.MethodGet, watchURL, engine.ChromeHeaders(), nil)
	if bcErr != nil {
		return nil, fmt.Errorf("watch page (fingerprinted): %w", bcErr)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("watch page (fingerprinted): HTTP %d", status)
	}
	return playerResponseFromHTML(data)
}

// fetchTranscriptViaPageScrape resolves a transcript from the watch page HTML.
func fetchTranscriptViaPageScrape(ctx context.Context, videoID string, langs []string) (string, error) {
	playerResp, err := scrapePlayerResponse(ctx, videoID)
	if err != nil {
		return "", err
	}
	tracks, err := tracksFromPlayerResponse(videoID, playerResp)
	if err != nil {
		return "", err
	}
	track, err := pickTrack(videoID, tracks, langs)
	if err != nil {
		return "", err
	}
	return fetchTimedText(ctx, track.BaseURL)
}

// definitive reports whether an error identifies a final condition that no
// other strategy can improve on (video gone, captions off, wrong language).
func definitive(err error) bool {
	var (
		unavailable *engine.ErrVideoUnavailable
		disabled    *engine.ErrTranscriptsDisabled
		missing     *engine.ErrNoTranscript
	)
	return errors.As(err, &unavailable) || errors.As(err, &disabled) || errors.As(err, &missing)
}

// fetchTranscript runs the strategy chain. A definitive typed error stops
// the chain immediately; transport-level failures fall through to the next
// strategy.
func fetchTranscript(ctx context.Context, videoID string, langs []string) (string, error) {
	text, err := fetchTranscriptViaPageScrape(ctx, videoID, langs)
	if err == nil {
		return text, nil
	}
	if definitive(err) || ctx.Err() != nil {
		return "", err
	}
	slog.Warn("youtube: page scrape failed, trying engagement panel",
		slog.String("id", videoID), slog.Any("err", err))

	if text, err := fetchTranscriptViaEngagementPanel(ctx, videoID); err == nil {
		return text, nil
	} else if ctx.Err() != nil {
		return "", err
	} else {
		slog.Warn("youtube: engagement panel failed, trying player",
			slog.String("id", videoID), slog.Any("err", err))
	}

	return fetchTranscriptViaPlayer(ctx, videoID, langs)
}

// fetchCaptionTracks lists raw caption tracks, preferring the scrape path
// and falling back to the ANDROID player.
func fetchCaptionTracks(ctx context.Context, videoID string) ([]captionTrack, error) {
	playerResp, err := scrapePlayerResponse(ctx, videoID)
	if err != nil {
		slog.Warn("youtube: page scrape failed, trying player for track list",
			slog.String("id", videoID), slog.Any("err", err))
		playerResp, err = fetchPlayerResponse(ctx, videoID)
		if err != nil {
			return nil, err
		}
	}
	return tracksFromPlayerResponse(videoID, playerResp)
}
