package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/generative-ai-go/genai"
)

type fakeChat struct {
	responses []*genai.GenerateContentResponse
	sent      [][]genai.Part
	err       error
}

func (f *fakeChat) SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	f.sent = append(f.sent, parts)
	if f.err != nil {
		return nil, f.err
	}
	i := len(f.sent) - 1
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	return f.responses[i], nil
}

func reply(parts ...genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: &genai.Content{Role: "model", Parts: parts}}}}
}

type echoTool struct {
	calls int
}

func (e *echoTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{Name: "echo", Parameters: &genai.Schema{Type: genai.TypeObject}}
}

func (e *echoTool) Call(ctx context.Context, args map[string]any) (map[string]any, error) {
	e.calls++
	return map[string]any{"echo": args["text"]}, nil
}

func TestLoopPlainText(t *testing.T) {
	a := newAgent(Config{}, nil)
	chat := &fakeChat{responses: []*genai.GenerateContentResponse{reply(genai.Text("## Summary\n"), genai.Text("It is about Go."))}}

	got, err := a.loop(context.Background(), chat, []genai.Part{genai.Text("prompt")})
	if err != nil {
		t.Fatalf("loop() error = %v", err)
	}
	if got != "## Summary\nIt is about Go." {
		t.Errorf("loop() = %q", got)
	}
	if len(chat.sent) != 1 {
		t.Errorf("SendMessage calls = %d, want 1", len(chat.sent))
	}
}

func TestLoopExecutesToolCalls(t *testing.T) {
	tool := &echoTool{}
	a := newAgent(Config{}, []Tool{tool})
	chat := &fakeChat{responses: []*genai.GenerateContentResponse{
		reply(genai.FunctionCall{Name: "echo", Args: map[string]any{"text": "hi"}}),
		reply(genai.Text("done")),
	}}

	got, err := a.loop(context.Background(), chat, []genai.Part{genai.Text("prompt")})
	if err != nil {
		t.Fatalf("loop() error = %v", err)
	}
	if got != "done" {
		t.Errorf("loop() = %q, want done", got)
	}
	if tool.calls != 1 {
		t.Errorf("tool calls = %d, want 1", tool.calls)
	}
	fr, ok := chat.sent[1][0].(genai.FunctionResponse)
	if !ok {
		t.Fatalf("second message part = %T, want FunctionResponse", chat.sent[1][0])
	}
	if fr.Name != "echo" || fr.Response["echo"] != "hi" {
		t.Errorf("function response = %+v", fr)
	}
}

func TestLoopUnknownToolReportedToModel(t *testing.T) {
	a := newAgent(Config{}, nil)
	chat := &fakeChat{responses: []*genai.GenerateContentResponse{
		reply(genai.FunctionCall{Name: "nope"}),
		reply(genai.Text("ok")),
	}}
	if _, err := a.loop(context.Background(), chat, nil); err != nil {
		t.Fatalf("loop() error = %v", err)
	}
	fr := chat.sent[1][0].(genai.FunctionResponse)
	if !strings.Contains(fr.Response["error"].(string), "unknown tool") {
		t.Errorf("error response = %v", fr.Response)
	}
}

func TestLoopRoundLimit(t *testing.T) {
	tool := &echoTool{}
	a := newAgent(Config{MaxToolRounds: 2}, []Tool{tool})
	chat := &fakeChat{responses: []*genai.GenerateContentResponse{reply(genai.FunctionCall{Name: "echo"})}}

	_, err := a.loop(context.Background(), chat, nil)
	if err == nil || !strings.Contains(err.Error(), "exceeded 2 tool rounds") {
		t.Fatalf("loop() error = %v, want round limit", err)
	}
	if tool.calls != 2 {
		t.Errorf("tool calls = %d, want 2", tool.calls)
	}
}

func TestLoopErrors(t *testing.T) {
	a := newAgent(Config{}, nil)

	chat := &fakeChat{err: errors.New("quota")}
	if _, err := a.loop(context.Background(), chat, nil); err == nil || !strings.Contains(err.Error(), "quota") {
		t.Errorf("loop() error = %v, want quota", err)
	}

	empty := &fakeChat{responses: []*genai.GenerateContentResponse{{}}}
	if _, err := a.loop(context.Background(), empty, nil); !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("loop() error = %v, want ErrEmptyResponse", err)
	}
}

func TestRunAttachesVideoAndContext(t *testing.T) {
	a := newAgent(Config{}, nil)
	chat := &fakeChat{responses: []*genai.GenerateContentResponse{reply(genai.Text("answer"))}}
	a.newChat = func() chatSession { return chat }

	h := &Handle{Name: "files/x", URI: "https://files/x", MIMEType: "video/mp4", State: StateActive}
	got, err := a.Run(context.Background(), "prompt", WithVideo(h), WithContext("0:00 - hello"), WithContext("  "))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got != "answer" {
		t.Errorf("Run() = %q", got)
	}
	parts := chat.sent[0]
	if len(parts) != 3 {
		t.Fatalf("parts = %d, want 3", len(parts))
	}
	if fd, ok := parts[0].(genai.FileData); !ok || fd.URI != "https://files/x" {
		t.Errorf("parts[0] = %#v, want FileData", parts[0])
	}
	if parts[1] != genai.Text("prompt") {
		t.Errorf("parts[1] = %#v", parts[1])
	}
	if parts[2] != genai.Text("0:00 - hello") {
		t.Errorf("parts[2] = %#v", parts[2])
	}
}

func TestToolDeclarations(t *testing.T) {
	tools := []Tool{&SearchTool{MaxResults: 5}, &CaptionsTool{}, VideoDataTool{}, &YouTubeSearchTool{}}
	want := []string{"duckduckgo_search", "get_youtube_video_captions", "get_youtube_video_data", "youtube_search"}
	for i, tool := range tools {
		d := tool.Declaration()
		if d.Name != want[i] {
			t.Errorf("tool %d name = %q, want %q", i, d.Name, want[i])
		}
		if d.Parameters == nil || len(d.Parameters.Required) == 0 {
			t.Errorf("tool %q has no required parameters", d.Name)
		}
	}
}

func TestIntArg(t *testing.T) {
	args := map[string]any{"f": float64(3), "i": 4, "s": "x"}
	if got := intArg(args, "f", 9); got != 3 {
		t.Errorf("intArg(f) = %d, want 3", got)
	}
	if got := intArg(args, "i", 9); got != 4 {
		t.Errorf("intArg(i) = %d, want 4", got)
	}
	if got := intArg(args, "s", 9); got != 9 {
		t.Errorf("intArg(s) = %d, want 9", got)
	}
	if got := intArg(args, "missing", 9); got != 9 {
		t.Errorf("intArg(missing) = %d, want 9", got)
	}
}

func TestSearchToolsRequireQuery(t *testing.T) {
	for _, tool := range []Tool{&SearchTool{}, &YouTubeSearchTool{}} {
		if _, err := tool.Call(context.Background(), map[string]any{"query": " "}); err == nil {
			t.Errorf("%s: expected error for missing query", tool.Declaration().Name)
		}
	}
}

func TestVideoDataToolInvalidURL(t *testing.T) {
	out, err := VideoDataTool{}.Call(context.Background(), map[string]any{"url": "https://vimeo.com/1"})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if out["error"] != "Invalid YouTube URL" {
		t.Errorf("Call() = %v", out)
	}
}
