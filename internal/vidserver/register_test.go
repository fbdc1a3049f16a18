package vidserver

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/anatolykoptev/go_vidsum/internal/agent"
	"github.com/anatolykoptev/go_vidsum/internal/analysis"
	"github.com/anatolykoptev/go_vidsum/internal/contact"
	"github.com/anatolykoptev/go_vidsum/internal/engine/sources"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct{}

func (stubRunner) Run(_ context.Context, prompt string, _ ...agent.RunOption) (string, error) {
	return "answer", nil
}

func testVideo(context.Context, string) (*sources.VideoData, error) {
	return &sources.VideoData{VideoID: "abc", Title: "T", AuthorName: "A", EmbedURL: sources.EmbedURL("abc")}, nil
}

func TestRegisterTools(t *testing.T) {
	server := mcp.NewServer(&mcp.Implementation{Name: "test", Version: "dev"}, nil)
	assert.Equal(t, 4, RegisterTools(server, Deps{}))

	st, err := contact.OpenSQLite(filepath.Join(t.TempDir(), "c.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	server = mcp.NewServer(&mcp.Implementation{Name: "test", Version: "dev"}, nil)
	assert.Equal(t, 5, RegisterTools(server, Deps{Contact: st}))
}

func TestVideoQuery(t *testing.T) {
	svc := analysis.NewService(analysis.VariantURL, analysis.Deps{Runner: stubRunner{}, Metadata: testVideo})
	h := &handlers{deps: Deps{Analysis: svc}}

	_, out, err := h.videoQuery(context.Background(), nil, VideoQueryInput{URL: "https://youtu.be/abc", Query: "summarize"})
	require.NoError(t, err)
	assert.Equal(t, "answer", out.Answer)
	assert.Equal(t, "abc", out.Video.VideoID)

	_, _, err = h.videoQuery(context.Background(), nil, VideoQueryInput{URL: "https://youtu.be/abc"})
	var ae *analysis.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, analysis.MsgQueryRequired, ae.Message)

	_, _, err = h.videoQuery(context.Background(), nil, VideoQueryInput{Query: "q"})
	assert.EqualError(t, err, "url is required")
}

func TestVideoDataMessages(t *testing.T) {
	h := &handlers{metadata: func(context.Context, string) (*sources.VideoData, error) {
		return nil, sources.ErrInvalidURL
	}}
	_, _, err := h.videoData(context.Background(), nil, VideoURLInput{URL: "https://example.com"})
	assert.EqualError(t, err, sources.MsgInvalidURL)

	h.metadata = testVideo
	_, vd, err := h.videoData(context.Background(), nil, VideoURLInput{URL: "https://youtu.be/abc"})
	require.NoError(t, err)
	assert.Equal(t, "T", vd.Title)
}

type stubTranscripts struct{}

func (stubTranscripts) Transcript(context.Context, string, []string) ([]sources.TranscriptLine, error) {
	return []sources.TranscriptLine{{Start: 65, Text: "hello"}}, nil
}

type noExtractor struct{}

func (noExtractor) SubtitleURL(context.Context, string, string) (string, bool, error) {
	return "", false, errors.New("unused")
}

func TestCaptions(t *testing.T) {
	h := &handlers{deps: Deps{Captions: &sources.CaptionService{Primary: stubTranscripts{}, Fallback: noExtractor{}, Langs: []string{"en"}}}}
	_, out, err := h.captions(context.Background(), nil, VideoURLInput{URL: "https://youtu.be/vidserverA1"})
	require.NoError(t, err)
	assert.Equal(t, "1:05 - hello", out.Captions)

	_, out, err = h.captions(context.Background(), nil, VideoURLInput{URL: "https://vimeo.com/1"})
	require.NoError(t, err)
	assert.Equal(t, sources.MsgInvalidURL, out.Captions)
}

func TestContactMessages(t *testing.T) {
	st, err := contact.OpenSQLite(filepath.Join(t.TempDir(), "c.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	h := &handlers{deps: Deps{Contact: st}}

	_, out, err := h.contactMessages(context.Background(), nil, ContactListInput{})
	require.NoError(t, err)
	assert.Equal(t, 0, out.Total)
	assert.NotNil(t, out.Messages)

	_, err = st.Save(context.Background(), contact.Message{Name: "n", Email: "e", Message: "m"})
	require.NoError(t, err)
	_, out, err = h.contactMessages(context.Background(), nil, ContactListInput{Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Total)
}
