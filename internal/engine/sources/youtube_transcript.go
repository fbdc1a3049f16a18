package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/anatolykoptev/go_vidsum/internal/engine"
)

// YouTube transcript fetching.
// Primary:  scrape watch page ytInitialPlayerResponse → caption XML (works from any IP)
// Fallback: ANDROID Innertube /player → captionTracks (works from non-blocked IPs)

// Classified transcript failures. The caption enricher falls back to yt-dlp on these.
var (
	ErrTranscriptsDisabled = errors.New("transcripts disabled")
	ErrNoTranscriptFound   = errors.New("no transcript found")
	ErrVideoUnavailable    = errors.New("video unavailable")
)

var errPoTokenOnly = errors.New("all caption tracks require PoToken")

// Endpoints; variables so tests can point them at httptest servers.
var (
	ytWatchEndpoint  = "https://www.youtube.com/watch"
	ytPlayerEndpoint = ytInnertubeURL
)

// TranscriptLine is one caption cue.
type TranscriptLine struct {
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
	Text     string  `json:"text"`
}

// FormatTimestamps renders lines as "m:ss - text", one per line.
// Minutes are unpadded, seconds are two digits.
func FormatTimestamps(lines []TranscriptLine) string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		start := int(l.Start)
		out = append(out, fmt.Sprintf("%d:%02d - %s", start/60, start%60, l.Text))
	}
	return strings.Join(out, "\n")
}

// isClassified reports whether err is one of the transcript sentinels.
func isClassified(err error) bool {
	return errors.Is(err, ErrTranscriptsDisabled) ||
		errors.Is(err, ErrNoTranscriptFound) ||
		errors.Is(err, ErrVideoUnavailable)
}

// needsPoToken reports whether a caption track URL requires a PoToken (browser-only).
// Tracks with &exp=xpe cannot be fetched server-side.
func needsPoToken(baseURL string) bool {
	return strings.Contains(baseURL, "&exp=xpe")
}

// pickTrack selects a caption track whose language is one of langs.
// Manual tracks win over auto-generated ones; earlier langs win over later ones.
func pickTrack(tracks []captionTrack, langs []string) (captionTrack, error) {
	matched := false
	for _, asr := range []bool{false, true} {
		for _, lang := range langs {
			for _, t := range tracks {
				if t.LanguageCode != lang || (t.Kind == "asr") != asr {
					continue
				}
				matched = true
				if !needsPoToken(t.BaseURL) {
					return t, nil
				}
			}
		}
	}
	if matched {
		return captionTrack{}, errPoTokenOnly
	}
	return captionTrack{}, fmt.Errorf("%w for languages %v", ErrNoTranscriptFound, langs)
}

// tracksFromPlayer classifies a player response and returns its caption tracks.
func tracksFromPlayer(pr innertubePlayerResp) ([]captionTrack, error) {
	if ps := pr.PlayabilityStatus; ps != nil && ps.Status != "" && ps.Status != "OK" {
		return nil, fmt.Errorf("%w: %s %s", ErrVideoUnavailable, ps.Status, ps.Reason)
	}
	if pr.Captions == nil {
		return nil, ErrTranscriptsDisabled
	}
	tracks := pr.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
	if len(tracks) == 0 {
		return nil, ErrTranscriptsDisabled
	}
	return tracks, nil
}

// parseTimedText parses a YouTube timedtext XML document.
func parseTimedText(body []byte) ([]TranscriptLine, error) {
	var tt ytTimedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return nil, fmt.Errorf("parse timedtext XML: %w", err)
	}

	lines := make([]TranscriptLine, 0, len(tt.Lines))
	for _, l := range tt.Lines {
		text := engine.CleanHTML(html.UnescapeString(l.Text))
		if text == "" {
			continue
		}
		start, _ := strconv.ParseFloat(l.Start, 64)
		dur, _ := strconv.ParseFloat(l.Dur, 64)
		lines = append(lines, TranscriptLine{Start: start, Duration: dur, Text: text})
	}
	return lines, nil
}

// fetchTimedText fetches and parses a YouTube timedtext XML caption URL.
func fetchTimedText(ctx context.Context, baseURL string) ([]TranscriptLine, error) {
	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.RandomUserAgent())
		return engine.Cfg.HTTPClient.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch timedtext: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch timedtext: %w", &engine.StatusError{Code: resp.StatusCode})
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 2*1024*1024))
	if err != nil {
		return nil, err
	}
	return parseTimedText(body)
}

// ytInitialPlayerResponseMarker marks the start of the player response JSON in watch page HTML.
const ytInitialPlayerResponseMarker = "ytInitialPlayerResponse = "

// playerFromWatchPage extracts ytInitialPlayerResponse from watch page HTML.
func playerFromWatchPage(body []byte) (innertubePlayerResp, error) {
	var pr innertubePlayerResp
	idx := bytes.Index(body, []byte(ytInitialPlayerResponseMarker))
	if idx < 0 {
		return pr, errors.New("ytInitialPlayerResponse not found in watch page")
	}
	jsonData := extractJSON(body[idx+len(ytInitialPlayerResponseMarker):])
	if jsonData == nil {
		return pr, errors.New("failed to extract ytInitialPlayerResponse JSON")
	}
	if err := json.Unmarshal(jsonData, &pr); err != nil {
		return pr, fmt.Errorf("decode ytInitialPlayerResponse: %w", err)
	}
	return pr, nil
}

// fetchTranscriptViaPageScrape scrapes the YouTube watch page HTML and extracts
// the caption track XML URL from ytInitialPlayerResponse.
func fetchTranscriptViaPageScrape(ctx context.Context, videoID string, langs []string) ([]TranscriptLine, error) {
	watchURL := ytWatchEndpoint + "?v=" + videoID

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
		return nil, fmt.Errorf("watch page: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 6*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read watch page: %w", err)
	}

	pr, err := playerFromWatchPage(body)
	if err != nil {
		return nil, err
	}
	tracks, err := tracksFromPlayer(pr)
	if err != nil {
		return nil, err
	}
	track, err := pickTrack(tracks, langs)
	if err != nil {
		return nil, err
	}
	return fetchTimedText(ctx, track.BaseURL)
}

// fetchTranscriptViaPlayer uses the ANDROID Innertube /player endpoint.
// Works from non-blocked (residential/cloud) IP addresses.
func fetchTranscriptViaPlayer(ctx context.Context, videoID string, langs []string) ([]TranscriptLine, error) {
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

	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, ytPlayerEndpoint+"?prettyPrint=false", bytes.NewReader(reqBody))
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
		return nil, fmt.Errorf("android innertube: %w", err)
	}
	defer resp.Body.Close()

	var pr innertubePlayerResp
	if err := json.NewDecoder(io.LimitReader(resp.Body, 3*1024*1024)).Decode(&pr); err != nil {
		return nil, fmt.Errorf("decode player: %w", err)
	}
	tracks, err := tracksFromPlayer(pr)
	if err != nil {
		return nil, err
	}
	track, err := pickTrack(tracks, langs)
	if err != nil {
		return nil, err
	}
	return fetchTimedText(ctx, track.BaseURL)
}

// FetchYouTubeTranscript fetches the caption cues of a YouTube video.
// A classified failure from the watch page is final; other failures retry via the player API.
func FetchYouTubeTranscript(ctx context.Context, videoID string, langs []string) ([]TranscriptLine, error) {
	engine.IncrTranscript()

	lines, err := fetchTranscriptViaPageScrape(ctx, videoID, langs)
	if err == nil || isClassified(err) {
		return lines, err
	}
	slog.Warn("youtube: page scrape failed, trying player",
		slog.String("id", videoID), slog.Any("err", err))

	return fetchTranscriptViaPlayer(ctx, videoID, langs)
}
