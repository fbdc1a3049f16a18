// Package vidserver exposes video analysis and YouTube lookups as MCP tools.
package vidserver

import (
	"context"
	"errors"
	"time"

	"github.com/anatolykoptev/go_vidsum/internal/analysis"
	"github.com/anatolykoptev/go_vidsum/internal/contact"
	"github.com/anatolykoptev/go_vidsum/internal/engine/sources"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// VideoQueryInput is the input for video_query.
type VideoQueryInput struct {
	URL   string `json:"url" jsonschema:"YouTube video URL (youtube.com/watch?v=... or youtu.be/...)"`
	Query string `json:"query" jsonschema:"What to ask about the video, e.g. summarize the key points"`
}

// VideoQueryOutput is the output for video_query.
type VideoQueryOutput struct {
	Answer string                  `json:"answer"`
	Video  analysis.VideoReference `json:"video"`
}

// VideoURLInput is the input for the YouTube lookup tools.
type VideoURLInput struct {
	URL string `json:"url" jsonschema:"YouTube video URL"`
}

// CaptionsOutput is the output for youtube_captions.
type CaptionsOutput struct {
	Captions string `json:"captions"`
}

// YouTubeSearchInput is the input for youtube_search.
type YouTubeSearchInput struct {
	Query string `json:"query" jsonschema:"Search query"`
	Limit int    `json:"limit,omitempty" jsonschema:"Max videos to return (default 5, max 10)"`
}

// YouTubeSearchOutput is the output for youtube_search.
type YouTubeSearchOutput struct {
	Videos []sources.RelatedVideo `json:"videos"`
}

// ContactListInput is the input for contact_messages.
type ContactListInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Max messages to return (default 20, max 100)"`
}

// ContactEntry is one listed contact message.
type ContactEntry struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Message   string `json:"message"`
	CreatedAt string `json:"created_at"`
}

// ContactListOutput is the output for contact_messages.
type ContactListOutput struct {
	Messages []ContactEntry `json:"messages"`
	Total    int            `json:"total"`
}

// Deps are the services behind the tools. Contact may be nil.
type Deps struct {
	Analysis *analysis.Service
	Captions *sources.CaptionService
	Contact  contact.Store
}

type handlers struct {
	deps     Deps
	metadata func(ctx context.Context, rawURL string) (*sources.VideoData, error)
}

// RegisterTools registers video_query, youtube_captions, youtube_video_data,
// youtube_search and, with a contact store, contact_messages. It returns the tool count.
func RegisterTools(server *mcp.Server, deps Deps) int {
	h := &handlers{deps: deps, metadata: sources.FetchVideoData}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "video_query",
		Description: "Analyze a YouTube video and answer a question about it. Uses the video's title, creator and captions, supplemented with web research. Returns the answer as markdown.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, h.videoQuery)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "youtube_captions",
		Description: "Get the captions of a YouTube video as timestamped lines (m:ss - text). Falls back to yt-dlp subtitles when YouTube captions are unavailable.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, h.captions)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "youtube_video_data",
		Description: "Get YouTube video metadata via oEmbed: title, author, author URL, thumbnail and embed URL.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, h.videoData)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "youtube_search",
		Description: "Search YouTube for videos matching a query. Returns video IDs, titles, channels and watch URLs.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, h.youtubeSearch)

	count := 4
	if deps.Contact != nil {
		mcp.AddTool(server, &mcp.Tool{
			Name:        "contact_messages",
			Description: "List the most recent contact form messages, newest first.",
			Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
		}, h.contactMessages)
		count++
	}
	return count
}

func (h *handlers) videoQuery(ctx context.Context, _ *mcp.CallToolRequest, input VideoQueryInput) (*mcp.CallToolResult, *VideoQueryOutput, error) {
	if input.URL == "" {
		return nil, nil, errors.New("url is required")
	}
	if h.deps.Analysis == nil {
		return nil, nil, analysis.ErrModelUnavailable
	}
	res, err := h.deps.Analysis.Analyze(ctx, analysis.Input{Query: input.Query, VideoURL: input.URL})
	if err != nil {
		return nil, nil, err
	}
	return nil, &VideoQueryOutput{Answer: res.Markdown, Video: res.Video}, nil
}

func (h *handlers) captions(ctx context.Context, _ *mcp.CallToolRequest, input VideoURLInput) (*mcp.CallToolResult, *CaptionsOutput, error) {
	return nil, &CaptionsOutput{Captions: h.deps.Captions.Captions(ctx, input.URL)}, nil
}

func (h *handlers) videoData(ctx context.Context, _ *mcp.CallToolRequest, input VideoURLInput) (*mcp.CallToolResult, *sources.VideoData, error) {
	vd, err := h.metadata(ctx, input.URL)
	if err != nil {
		return nil, nil, errors.New(sources.VideoDataMessage(err))
	}
	return nil, vd, nil
}

func (h *handlers) youtubeSearch(ctx context.Context, _ *mcp.CallToolRequest, input YouTubeSearchInput) (*mcp.CallToolResult, *YouTubeSearchOutput, error) {
	if input.Query == "" {
		return nil, nil, errors.New("query is required")
	}
	videos, err := sources.SearchYouTube(ctx, input.Query, input.Limit)
	if err != nil {
		return nil, nil, err
	}
	return nil, &YouTubeSearchOutput{Videos: videos}, nil
}

func (h *handlers) contactMessages(ctx context.Context, _ *mcp.CallToolRequest, input ContactListInput) (*mcp.CallToolResult, *ContactListOutput, error) {
	msgs, err := h.deps.Contact.Recent(ctx, input.Limit)
	if err != nil {
		return nil, nil, err
	}
	out := &ContactListOutput{Messages: make([]ContactEntry, 0, len(msgs))}
	for _, m := range msgs {
		out.Messages = append(out.Messages, ContactEntry{
			ID:        m.ID,
			Name:      m.Name,
			Email:     m.Email,
			Message:   m.Message,
			CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	out.Total = len(out.Messages)
	return nil, out, nil
}
