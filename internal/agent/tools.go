package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anatolykoptev/go_vidsum/internal/engine"
	"github.com/anatolykoptev/go_vidsum/internal/engine/sources"
	"github.com/anatolykoptev/go_vidsum/internal/toolutil"
	"github.com/google/generative-ai-go/genai"
)

// Tool is a function the model may call.
type Tool interface {
	Declaration() *genai.FunctionDeclaration
	Call(ctx context.Context, args map[string]any) (map[string]any, error)
}

func stringArg(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return strings.TrimSpace(s)
}

// intArg reads a numeric argument; JSON numbers arrive as float64.
func intArg(args map[string]any, name string, def int) int {
	switch v := args[name].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	}
	return def
}

// SearchTool is a DuckDuckGo web search.
type SearchTool struct {
	MaxResults int
	// FetchPages is how many top results get their page content extracted.
	FetchPages int
}

func (t *SearchTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        "duckduckgo_search",
		Description: "Search the web with DuckDuckGo. Returns titles, URLs and snippets of the top results.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"query":       {Type: genai.TypeString, Description: "Search query"},
				"max_results": {Type: genai.TypeInteger, Description: "Maximum number of results (default 5)"},
			},
			Required: []string{"query"},
		},
	}
}

func (t *SearchTool) Call(ctx context.Context, args map[string]any) (map[string]any, error) {
	query := stringArg(args, "query")
	if query == "" {
		return nil, errors.New("query is required")
	}
	limit := intArg(args, "max_results", t.MaxResults)
	if limit <= 0 || (t.MaxResults > 0 && limit > t.MaxResults) {
		limit = t.MaxResults
	}

	searchQuery := engine.RewriteQuery(ctx, query)
	results, err := engine.SearchDDG(ctx, searchQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	contents := map[string]string{}
	if t.FetchPages > 0 {
		contents = toolutil.FetchURLsParallel(ctx, results, t.FetchPages)
	}

	items := make([]any, 0, len(results))
	for _, r := range results {
		items = append(items, map[string]any{"title": r.Title, "url": r.URL, "snippet": r.Content})
	}
	return map[string]any{
		"query":   searchQuery,
		"results": items,
		"sources": engine.BuildSourcesText(results, contents, engine.Cfg.MaxContentChars),
	}, nil
}

// CaptionsTool returns timestamped captions of a YouTube video.
type CaptionsTool struct {
	Captions *sources.CaptionService
}

func (t *CaptionsTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        "get_youtube_video_captions",
		Description: "Get the captions of a YouTube video as timestamped lines (m:ss - text).",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"url": {Type: genai.TypeString, Description: "YouTube video URL"},
			},
			Required: []string{"url"},
		},
	}
}

func (t *CaptionsTool) Call(ctx context.Context, args map[string]any) (map[string]any, error) {
	return map[string]any{"captions": t.Captions.Captions(ctx, stringArg(args, "url"))}, nil
}

// VideoDataTool returns oEmbed metadata of a YouTube video.
type VideoDataTool struct{}

func (VideoDataTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        "get_youtube_video_data",
		Description: "Get metadata of a YouTube video: title, author, author URL, thumbnail and embed URL.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"url": {Type: genai.TypeString, Description: "YouTube video URL"},
			},
			Required: []string{"url"},
		},
	}
}

func (VideoDataTool) Call(ctx context.Context, args map[string]any) (map[string]any, error) {
	vd, err := sources.FetchVideoData(ctx, stringArg(args, "url"))
	if err != nil {
		return map[string]any{"error": sources.VideoDataMessage(err)}, nil
	}
	return map[string]any{
		"title":         vd.Title,
		"author_name":   vd.AuthorName,
		"author_url":    vd.AuthorURL,
		"thumbnail_url": vd.ThumbnailURL,
		"video_url":     vd.EmbedURL,
	}, nil
}

// YouTubeSearchTool finds YouTube videos related to a query.
type YouTubeSearchTool struct {
	MaxResults int
}

func (t *YouTubeSearchTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        "youtube_search",
		Description: "Search YouTube for videos. Returns video IDs, titles, channels and URLs.",
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"query":       {Type: genai.TypeString, Description: "Search query"},
				"max_results": {Type: genai.TypeInteger, Description: "Maximum number of videos (default 5)"},
			},
			Required: []string{"query"},
		},
	}
}

func (t *YouTubeSearchTool) Call(ctx context.Context, args map[string]any) (map[string]any, error) {
	query := stringArg(args, "query")
	if query == "" {
		return nil, errors.New("query is required")
	}
	videos, err := sources.SearchYouTube(ctx, query, intArg(args, "max_results", t.MaxResults))
	if err != nil {
		return nil, err
	}
	items := make([]any, 0, len(videos))
	for _, v := range videos {
		items = append(items, map[string]any{
			"video_id": v.VideoID,
			"title":    v.Title,
			"channel":  v.Channel,
			"url":      v.URL,
			"snippet":  v.Snippet,
		})
	}
	return map[string]any{"videos": items}, nil
}
