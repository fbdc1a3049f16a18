package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anatolykoptev/go_vidsum/internal/engine"
	"github.com/anatolykoptev/go_vidsum/internal/toolutil"
)

// Caption outcome messages.
const (
	MsgCaptionsUnfetchable = "Could not fetch captions from YouTube."
	MsgNoCaptions          = "No captions found for this video."
)

// TranscriptSource returns timed caption lines for a video ID.
type TranscriptSource interface {
	Transcript(ctx context.Context, videoID string, langs []string) ([]TranscriptLine, error)
}

// SubtitleExtractor locates a subtitle file URL for a video via a general-purpose extractor.
type SubtitleExtractor interface {
	SubtitleURL(ctx context.Context, videoURL, lang string) (string, bool, error)
}

// TranscriptFunc adapts a function to TranscriptSource.
type TranscriptFunc func(ctx context.Context, videoID string, langs []string) ([]TranscriptLine, error)

func (f TranscriptFunc) Transcript(ctx context.Context, videoID string, langs []string) ([]TranscriptLine, error) {
	return f(ctx, videoID, langs)
}

// CaptionService produces caption text for a YouTube URL.
// It never fails: every outcome is a user-visible string.
type CaptionService struct {
	Primary  TranscriptSource
	Fallback SubtitleExtractor
	// Fetch downloads a subtitle file; non-200 responses must surface as *engine.StatusError.
	Fetch func(ctx context.Context, url string) (string, error)
	Langs []string
}

// NewCaptionService wires the watch page scraper, yt-dlp and the engine fetcher.
func NewCaptionService() *CaptionService {
	return &CaptionService{
		Primary:  TranscriptFunc(FetchYouTubeTranscript),
		Fallback: NewYtDlp(),
		Fetch: func(ctx context.Context, u string) (string, error) {
			return engine.FetchRawContent(ctx, u, 0)
		},
		Langs: engine.Cfg.CaptionLangs,
	}
}

type cachedCaptions struct {
	Text string `json:"text"`
}

// Captions returns "m:ss - text" lines from the primary source, raw subtitle text
// from the fallback, or a human-readable explanation of why neither worked.
func (s *CaptionService) Captions(ctx context.Context, rawURL string) string {
	text, _ := s.Lookup(ctx, rawURL)
	return text
}

// Lookup is Captions that also reports whether the text is real caption content.
func (s *CaptionService) Lookup(ctx context.Context, rawURL string) (string, bool) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return MsgNoURL, false
	}
	id, ok := ExtractVideoID(rawURL)
	if !ok {
		return MsgInvalidURL, false
	}

	langs := s.Langs
	if len(langs) == 0 {
		langs = []string{"en"}
	}

	cacheKey := engine.CacheKey("captions", id, strings.Join(langs, ","))
	if c, ok := toolutil.CacheLoadJSON[cachedCaptions](ctx, cacheKey); ok {
		return c.Text, true
	}

	text, ok := s.resolve(ctx, rawURL, id, langs)
	if ok {
		toolutil.CacheStoreJSON(ctx, cacheKey, cachedCaptions{Text: text})
	}
	return text, ok
}

// resolve runs the primary source and, on a classified failure, the fallback exactly once.
// The bool reports whether text is real caption content.
func (s *CaptionService) resolve(ctx context.Context, rawURL, id string, langs []string) (string, bool) {
	lines, err := s.Primary.Transcript(ctx, id, langs)
	if err == nil {
		if len(lines) == 0 {
			return MsgNoCaptions, false
		}
		return FormatTimestamps(lines), true
	}
	if !isClassified(err) {
		slog.Warn("captions: primary failed", slog.String("id", id), slog.Any("error", err))
		return MsgNoCaptions, false
	}

	slog.Info("captions: primary unavailable, using fallback", slog.String("id", id), slog.Any("reason", err))
	engine.IncrCaptionFallback()

	subURL, found, err := s.Fallback.SubtitleURL(ctx, rawURL, langs[0])
	if err != nil {
		return fmt.Sprintf("Error generating timestamps: %v", err), false
	}
	if !found {
		return MsgNoCaptions, false
	}

	body, err := s.Fetch(ctx, subURL)
	if err != nil {
		var se *engine.StatusError
		if errors.As(err, &se) {
			return MsgCaptionsUnfetchable, false
		}
		return fmt.Sprintf("Error generating timestamps: %v", err), false
	}
	return body, true
}
