package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/anatolykoptev/go_vidsum/internal/engine"
)

// ytdlpTimeout bounds a single metadata extraction.
const ytdlpTimeout = 60 * time.Second

// SubtitleFormat is one entry of a yt-dlp subtitle list.
type SubtitleFormat struct {
	Ext  string `json:"ext"`
	URL  string `json:"url"`
	Name string `json:"name,omitempty"`
}

// YtDlpInfo holds the parts of `yt-dlp -J` output used for captions.
type YtDlpInfo struct {
	ID                string                      `json:"id"`
	Title             string                      `json:"title"`
	AutomaticCaptions map[string][]SubtitleFormat `json:"automatic_captions"`
	Subtitles         map[string][]SubtitleFormat `json:"subtitles"`
}

// SubtitleURL picks the caption URL for lang: automatic captions first,
// then uploaded subtitles; within a list the last format wins.
func (i *YtDlpInfo) SubtitleURL(lang string) (string, bool) {
	list := i.AutomaticCaptions[lang]
	if len(list) == 0 {
		list = i.Subtitles[lang]
	}
	if len(list) == 0 {
		return "", false
	}
	u := list[len(list)-1].URL
	return u, u != ""
}

// YtDlp runs the yt-dlp binary for metadata extraction.
type YtDlp struct {
	Path string
}

// NewYtDlp returns an extractor using the configured binary path.
func NewYtDlp() *YtDlp {
	return &YtDlp{Path: engine.Cfg.YtDlpPath}
}

// ExtractInfo runs `yt-dlp -J` for videoURL without downloading media.
func (y *YtDlp) ExtractInfo(ctx context.Context, videoURL, lang string) (*YtDlpInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, ytdlpTimeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, y.Path,
		"-J", "--skip-download", "--no-warnings", "--no-playlist",
		"--write-auto-subs", "--sub-langs", lang,
		videoURL,
	)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("yt-dlp: %w", err)
		}
		return nil, fmt.Errorf("yt-dlp: %w: %s", err, engine.Truncate(msg, 300))
	}
	return parseYtDlpJSON(stdout.Bytes())
}

// SubtitleURL implements SubtitleExtractor.
func (y *YtDlp) SubtitleURL(ctx context.Context, videoURL, lang string) (string, bool, error) {
	info, err := y.ExtractInfo(ctx, videoURL, lang)
	if err != nil {
		return "", false, err
	}
	u, ok := info.SubtitleURL(lang)
	return u, ok, nil
}

// parseYtDlpJSON decodes yt-dlp output, skipping any banner before the first brace.
func parseYtDlpJSON(data []byte) (*YtDlpInfo, error) {
	idx := bytes.IndexByte(data, '{')
	if idx < 0 {
		return nil, errors.New("yt-dlp: no JSON in output")
	}
	var info YtDlpInfo
	if err := json.Unmarshal(data[idx:], &info); err != nil {
		return nil, fmt.Errorf("yt-dlp: decode: %w", err)
	}
	return &info, nil
}
