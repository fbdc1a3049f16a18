// Package agent binds a Gemini model to a set of callable tools and runs
// prompts, optionally with uploaded video, through a function-calling loop.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anatolykoptev/go_vidsum/internal/engine"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultInstruction mirrors a markdown-formatting analyst persona.
const DefaultInstruction = `You are Video AI Summarizer, an assistant that analyzes videos and answers questions about them.
Use the available tools for web research or YouTube captions and metadata when they help answer the query.
Use markdown to format your answers.`

var ErrEmptyResponse = errors.New("model returned no text")

// Config selects the model and its loop limits.
type Config struct {
	Model             string
	SystemInstruction string
	MaxToolRounds     int
	Temperature       float32
}

// chatSession is the subset of *genai.ChatSession used by the loop.
type chatSession interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Agent is a model pre-bound to a tool set. Safe for concurrent use.
type Agent struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	files     *genaiFiles
	tools     map[string]Tool
	maxRounds int
	newChat   func() chatSession
}

// New creates the Gemini client and binds tools to the model.
func New(ctx context.Context, apiKey string, cfg Config, tools ...Tool) (*Agent, error) {
	if apiKey == "" {
		return nil, errors.New("agent: GOOGLE_API_KEY is not set")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("agent: new client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	instruction := cfg.SystemInstruction
	if instruction == "" {
		instruction = DefaultInstruction
	}
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(instruction)}}
	if cfg.Temperature > 0 {
		model.SetTemperature(cfg.Temperature)
	}

	a := newAgent(cfg, tools)
	if len(tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(tools))
		for _, t := range tools {
			decls = append(decls, t.Declaration())
		}
		model.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}
	a.client = client
	a.model = model
	a.files = &genaiFiles{client: client}
	a.newChat = func() chatSession { return model.StartChat() }

	slog.Info("agent: ready", slog.String("model", cfg.Model), slog.Int("tools", len(tools)))
	return a, nil
}

func newAgent(cfg Config, tools []Tool) *Agent {
	a := &Agent{tools: make(map[string]Tool, len(tools)), maxRounds: cfg.MaxToolRounds}
	if a.maxRounds <= 0 {
		a.maxRounds = 5
	}
	for _, t := range tools {
		a.tools[t.Declaration().Name] = t
	}
	return a
}

// Files exposes the remote file API for the processing bridge.
func (a *Agent) Files() FileService { return a.files }

// Close releases the underlying client.
func (a *Agent) Close() error {
	if a.client == nil {
		return nil
	}
	return a.client.Close()
}

type runOptions struct {
	videos  []*Handle
	context []string
}

// RunOption attaches extra parts to a single Run.
type RunOption func(*runOptions)

// WithVideo attaches a processed video to the prompt.
func WithVideo(h *Handle) RunOption {
	return func(o *runOptions) {
		if h != nil {
			o.videos = append(o.videos, h)
		}
	}
}

// WithContext attaches supplemental text (captions, notes) after the prompt.
func WithContext(text string) RunOption {
	return func(o *runOptions) {
		if strings.TrimSpace(text) != "" {
			o.context = append(o.context, text)
		}
	}
}

// Run sends prompt and attachments, executes requested tool calls and returns the final text.
func (a *Agent) Run(ctx context.Context, prompt string, opts ...RunOption) (string, error) {
	var ro runOptions
	for _, o := range opts {
		o(&ro)
	}

	parts := make([]genai.Part, 0, 1+len(ro.videos)+len(ro.context))
	for _, v := range ro.videos {
		parts = append(parts, genai.FileData{MIMEType: v.MIMEType, URI: v.URI})
	}
	parts = append(parts, genai.Text(prompt))
	for _, c := range ro.context {
		parts = append(parts, genai.Text(c))
	}

	start := time.Now()
	text, err := a.loop(ctx, a.newChat(), parts)
	if err != nil {
		engine.IncrModelErrors()
		return "", err
	}
	slog.Debug("agent: run done", slog.Duration("elapsed", time.Since(start)), slog.Int("chars", len(text)))
	return text, nil
}

func (a *Agent) loop(ctx context.Context, cs chatSession, parts []genai.Part) (string, error) {
	engine.IncrModelCalls()
	resp, err := cs.SendMessage(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}

	for round := 0; ; round++ {
		calls := functionCalls(resp)
		if len(calls) == 0 {
			return responseText(resp)
		}
		if round >= a.maxRounds {
			return "", fmt.Errorf("agent: exceeded %d tool rounds", a.maxRounds)
		}

		replies := make([]genai.Part, 0, len(calls))
		for _, fc := range calls {
			replies = append(replies, a.callTool(ctx, fc))
		}

		engine.IncrModelCalls()
		resp, err = cs.SendMessage(ctx, replies...)
		if err != nil {
			return "", fmt.Errorf("generate: %w", err)
		}
	}
}

// callTool runs one function call. Tool failures are reported to the model, not the caller.
func (a *Agent) callTool(ctx context.Context, fc genai.FunctionCall) genai.Part {
	engine.IncrToolCalls()
	tool, ok := a.tools[fc.Name]
	if !ok {
		slog.Warn("agent: unknown tool", slog.String("tool", fc.Name))
		return genai.FunctionResponse{Name: fc.Name, Response: map[string]any{"error": "unknown tool " + fc.Name}}
	}

	start := time.Now()
	out, err := tool.Call(ctx, fc.Args)
	if err != nil {
		slog.Warn("agent: tool failed", slog.String("tool", fc.Name), slog.Any("error", err))
		out = map[string]any{"error": err.Error()}
	}
	slog.Debug("agent: tool call", slog.String("tool", fc.Name), slog.Duration("elapsed", time.Since(start)))
	return genai.FunctionResponse{Name: fc.Name, Response: out}
}

func functionCalls(resp *genai.GenerateContentResponse) []genai.FunctionCall {
	var calls []genai.FunctionCall
	if resp == nil {
		return nil
	}
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, p := range cand.Content.Parts {
			if fc, ok := p.(genai.FunctionCall); ok {
				calls = append(calls, fc)
			}
		}
		break
	}
	return calls
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
