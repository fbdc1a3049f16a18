package sources

// YouTube implementation is split across files by responsibility:
//   youtube.go:            video ID extraction and oEmbed metadata
//   youtube_innertube.go:  Innertube API types, constants, and low-level HTTP primitives
//   youtube_transcript.go: primary transcript fetching (watch page scrape + ANDROID player)
//   ytdlp.go:              yt-dlp subtitle discovery, used as the caption fallback
//   youtube_search.go:     related-video search via the results page
//   captions.go:           caption enricher combining both sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/anatolykoptev/go_vidsum/internal/engine"
	"github.com/anatolykoptev/go_vidsum/internal/toolutil"
)

// User-visible messages shared by the web, agent and MCP surfaces.
const (
	MsgNoURL      = "No URL provided"
	MsgInvalidURL = "Invalid YouTube URL"
)

var (
	ErrNoURL      = errors.New("no URL provided")
	ErrInvalidURL = errors.New("invalid YouTube URL")
)

// oembedEndpoint is a variable so tests can point it at an httptest server.
var oembedEndpoint = "https://www.youtube.com/oembed"

// VideoData is the oEmbed metadata of a YouTube video.
type VideoData struct {
	VideoID      string `json:"video_id"`
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	AuthorURL    string `json:"author_url"`
	ThumbnailURL string `json:"thumbnail_url"`
	EmbedURL     string `json:"video_url"`
}

// ExtractVideoID returns the video ID of a youtube.com or youtu.be URL.
// The second result is false when the host is unrecognized or the ID is empty.
func ExtractVideoID(rawURL string) (string, bool) {
	var id string
	switch {
	case strings.Contains(rawURL, "youtube.com"):
		i := strings.LastIndex(rawURL, "v=")
		if i < 0 {
			return "", false
		}
		id, _, _ = strings.Cut(rawURL[i+len("v="):], "&")
	case strings.Contains(rawURL, "youtu.be"):
		id = rawURL[strings.LastIndex(rawURL, "/")+1:]
		id, _, _ = strings.Cut(id, "?")
	default:
		return "", false
	}
	return id, id != ""
}

// WatchURL returns the canonical watch page URL of a video.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// EmbedURL returns the embeddable player URL of a video.
func EmbedURL(videoID string) string {
	return "https://www.youtube.com/embed/" + videoID
}

// FetchVideoData resolves a YouTube URL to its oEmbed metadata.
// Returns ErrNoURL or ErrInvalidURL for unusable input.
func FetchVideoData(ctx context.Context, rawURL string) (*VideoData, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, ErrNoURL
	}
	id, ok := ExtractVideoID(rawURL)
	if !ok {
		return nil, ErrInvalidURL
	}

	cacheKey := engine.CacheKey("oembed", id)
	if vd, ok := toolutil.CacheLoadJSON[VideoData](ctx, cacheKey); ok {
		return &vd, nil
	}

	vd, err := fetchOEmbed(ctx, id)
	if err != nil {
		return nil, err
	}
	toolutil.CacheStoreJSON(ctx, cacheKey, *vd)
	return vd, nil
}

// VideoDataMessage renders a FetchVideoData error as the user-visible string.
func VideoDataMessage(err error) string {
	switch {
	case errors.Is(err, ErrNoURL):
		return MsgNoURL
	case errors.Is(err, ErrInvalidURL):
		return MsgInvalidURL
	default:
		return fmt.Sprintf("Error getting video data: %v", err)
	}
}

func fetchOEmbed(ctx context.Context, videoID string) (*VideoData, error) {
	engine.IncrOEmbed()

	params := url.Values{"format": {"json"}, "url": {WatchURL(videoID)}}
	endpoint := oembedEndpoint + "?" + params.Encode()

	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.RandomUserAgent())
		req.Header.Set("Accept", "application/json")
		return engine.Cfg.HTTPClient.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("oembed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oembed: %w", &engine.StatusError{Code: resp.StatusCode})
	}

	var raw struct {
		Title        string `json:"title"`
		AuthorName   string `json:"author_name"`
		AuthorURL    string `json:"author_url"`
		ThumbnailURL string `json:"thumbnail_url"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&raw); err != nil {
		return nil, fmt.Errorf("oembed decode: %w", err)
	}

	slog.Debug("youtube: oembed resolved", slog.String("id", videoID), slog.String("title", raw.Title))
	return &VideoData{
		VideoID:      videoID,
		Title:        raw.Title,
		AuthorName:   raw.AuthorName,
		AuthorURL:    raw.AuthorURL,
		ThumbnailURL: raw.ThumbnailURL,
		EmbedURL:     EmbedURL(videoID),
	}, nil
}
