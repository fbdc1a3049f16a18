package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/anatolykoptev/go_vidsum/internal/engine"
	"github.com/anatolykoptev/go_vidsum/internal/toolutil"
)

const (
	ytInitialDataMarker = "var ytInitialData = "
	ytVideosOnlyFilter  = "EgIQAQ==" // sp= value restricting results to videos
)

var ytResultsEndpoint = "https://www.youtube.com/results"

var errNoInitialData = errors.New("youtube search: ytInitialData not found")

// RelatedVideo is one YouTube search hit.
type RelatedVideo struct {
	VideoID string `json:"video_id"`
	Title   string `json:"title"`
	Channel string `json:"channel,omitempty"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// SearchYouTube returns up to limit videos from the YouTube results page.
func SearchYouTube(ctx context.Context, query string, limit int) ([]RelatedVideo, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("youtube search: empty query")
	}
	if limit <= 0 || limit > 10 {
		limit = 5
	}

	cacheKey := engine.CacheKey("yt_search", query, fmt.Sprint(limit))
	if v, ok := toolutil.CacheLoadJSON[[]RelatedVideo](ctx, cacheKey); ok {
		return v, nil
	}

	engine.IncrYouTubeSearch()
	params := url.Values{"search_query": {query}, "sp": {ytVideosOnlyFilter}}
	target := ytResultsEndpoint + "?" + params.Encode()

	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.RandomUserAgent())
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		return engine.Cfg.HTTPClient.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("youtube search page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &engine.StatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read youtube search page: %w", err)
	}
	videos, err := parseSearchPage(body, limit)
	if err != nil {
		return nil, err
	}
	toolutil.CacheStoreJSON(ctx, cacheKey, videos)
	return videos, nil
}

func parseSearchPage(page []byte, limit int) ([]RelatedVideo, error) {
	idx := strings.Index(string(page), ytInitialDataMarker)
	if idx < 0 {
		return nil, errNoInitialData
	}
	raw := extractJSON(page[idx+len(ytInitialDataMarker):])
	if raw == nil {
		return nil, errNoInitialData
	}
	var root any
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("youtube search: decode ytInitialData: %w", err)
	}
	videos := make([]RelatedVideo, 0, limit)
	collectVideos(root, limit, &videos)
	return videos, nil
}

// collectVideos walks the decoded tree depth-first for videoRenderer objects.
func collectVideos(node any, limit int, out *[]RelatedVideo) {
	if len(*out) >= limit {
		return
	}
	switch n := node.(type) {
	case map[string]any:
		if vr, ok := n["videoRenderer"].(map[string]any); ok {
			if v, ok := rendererVideo(vr); ok {
				*out = append(*out, v)
			}
			return
		}
		for _, child := range n {
			collectVideos(child, limit, out)
		}
	case []any:
		for _, child := range n {
			collectVideos(child, limit, out)
		}
	}
}

func rendererVideo(vr map[string]any) (RelatedVideo, bool) {
	id, _ := vr["videoId"].(string)
	if id == "" {
		return RelatedVideo{}, false
	}
	return RelatedVideo{
		VideoID: id,
		Title:   runsText(vr["title"], false),
		Channel: runsText(vr["ownerText"], false),
		URL:     WatchURL(id),
		Snippet: engine.Truncate(runsText(vr["descriptionSnippet"], true), 200),
	}, true
}

// runsText reads {"runs":[{"text":..}]}; all joins every run, otherwise the first one.
func runsText(v any, all bool) string {
	obj, _ := v.(map[string]any)
	runs, _ := obj["runs"].([]any)
	var sb strings.Builder
	for _, r := range runs {
		if m, ok := r.(map[string]any); ok {
			s, _ := m["text"].(string)
			sb.WriteString(s)
			if !all {
				break
			}
		}
	}
	return sb.String()
}
