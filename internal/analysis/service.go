// Package analysis validates analysis requests, resolves the video they refer to,
// composes the prompt, invokes the agent and renders its answer.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"time"

	"github.com/anatolykoptev/go_vidsum/internal/agent"
	"github.com/anatolykoptev/go_vidsum/internal/engine"
	"github.com/anatolykoptev/go_vidsum/internal/engine/sources"
)

// ErrModelUnavailable is returned when no model client was configured at startup.
var ErrModelUnavailable = errors.New("model client is not configured (set GOOGLE_API_KEY)")

// VideoKind distinguishes the two VideoReference shapes.
type VideoKind string

const (
	VideoLocalFile VideoKind = "local_file"
	VideoRemoteURL VideoKind = "remote_url"
)

// VideoReference is the video an analysis was run against.
type VideoReference struct {
	Kind VideoKind `json:"kind"`

	// LocalFile
	Path      string `json:"-"`
	PublicURL string `json:"public_url,omitempty"`

	// RemoteURL
	VideoID      string `json:"video_id,omitempty"`
	Title        string `json:"title,omitempty"`
	AuthorName   string `json:"author_name,omitempty"`
	AuthorURL    string `json:"author_url,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	EmbedURL     string `json:"embed_url,omitempty"`
}

// Result is a successful analysis.
type Result struct {
	Markdown string         `json:"markdown"`
	HTML     template.HTML  `json:"html"`
	Video    VideoReference `json:"video"`
}

// Runner runs a prompt through the model.
type Runner interface {
	Run(ctx context.Context, prompt string, opts ...agent.RunOption) (string, error)
}

// Processor makes a staged file usable by the model and releases it afterwards.
type Processor interface {
	Process(ctx context.Context, path, mimeType string) (*agent.Handle, error)
	Release(ctx context.Context, h *agent.Handle)
}

// CaptionLookup returns caption text and whether it is real content.
type CaptionLookup interface {
	Lookup(ctx context.Context, rawURL string) (string, bool)
}

// Deps are the collaborators of a Service. Runner and Processor may be nil
// when no model is configured; requests then fail as remote errors.
type Deps struct {
	Runner    Runner
	Processor Processor
	Captions  CaptionLookup
	Metadata  func(ctx context.Context, rawURL string) (*sources.VideoData, error)
	Stager    *Stager
}

// Service runs analyses for one product variant.
type Service struct {
	variant Variant
	deps    Deps
}

// NewService returns a Service; a nil Metadata defaults to oEmbed lookup.
func NewService(v Variant, deps Deps) *Service {
	if deps.Metadata == nil {
		deps.Metadata = sources.FetchVideoData
	}
	return &Service{variant: v, deps: deps}
}

// Variant reports the configured variant.
func (s *Service) Variant() Variant { return s.variant }

// Analyze validates in, runs the matching pipeline and renders the answer.
// Every failure is an *Error.
func (s *Service) Analyze(ctx context.Context, in Input) (*Result, error) {
	engine.IncrAnalysisRequests()
	if verr := Validate(s.variant, in); verr != nil {
		return nil, verr
	}

	var (
		res *Result
		err error
	)
	if in.useURL(s.variant) {
		res, err = s.analyzeURL(ctx, in)
	} else {
		res, err = s.analyzeUpload(ctx, in)
	}
	if err != nil {
		engine.IncrAnalysisErrors()
		ae := AsError(err)
		slog.Warn("analysis failed", slog.String("kind", string(ae.Kind)), slog.Any("error", ae.Err))
		return nil, ae
	}
	return res, nil
}

func (s *Service) analyzeURL(ctx context.Context, in Input) (*Result, error) {
	vd, err := s.deps.Metadata(ctx, in.VideoURL)
	if err != nil {
		return nil, &Error{Kind: KindResolution, Message: sources.VideoDataMessage(err), Err: err}
	}

	var opts []agent.RunOption
	if s.deps.Captions != nil {
		_ = engine.TrackOperation(ctx, "captions", 10*time.Second, func(ctx context.Context) error {
			if text, ok := s.deps.Captions.Lookup(ctx, in.VideoURL); ok {
				opts = append(opts, agent.WithContext(captionsPreamble+text))
			}
			return nil
		})
	}

	md, err := s.run(ctx, URLPrompt(vd.Title, vd.AuthorName, in.Query), opts...)
	if err != nil {
		return nil, err
	}
	return s.result(md, VideoReference{
		Kind:         VideoRemoteURL,
		VideoID:      vd.VideoID,
		Title:        vd.Title,
		AuthorName:   vd.AuthorName,
		AuthorURL:    vd.AuthorURL,
		ThumbnailURL: vd.ThumbnailURL,
		EmbedURL:     vd.EmbedURL,
	})
}

func (s *Service) analyzeUpload(ctx context.Context, in Input) (*Result, error) {
	staged, err := s.deps.Stager.Stage(in.File)
	if err != nil {
		return nil, &Error{Kind: KindResolution, Message: fmt.Sprintf("Error processing video: %v", err), Err: err}
	}
	defer staged.Remove()

	if s.deps.Processor == nil {
		return nil, ErrModelUnavailable
	}
	h, err := s.deps.Processor.Process(ctx, staged.Path, staged.MIMEType)
	if err != nil {
		return nil, err
	}
	defer s.deps.Processor.Release(context.WithoutCancel(ctx), h)

	md, err := s.run(ctx, UploadPrompt(in.Query), agent.WithVideo(h))
	if err != nil {
		return nil, err
	}
	return s.result(md, VideoReference{Kind: VideoLocalFile, Path: staged.Path, PublicURL: staged.PublicURL})
}

func (s *Service) run(ctx context.Context, prompt string, opts ...agent.RunOption) (string, error) {
	if s.deps.Runner == nil {
		return "", ErrModelUnavailable
	}
	return s.deps.Runner.Run(ctx, prompt, opts...)
}

func (s *Service) result(md string, video VideoReference) (*Result, error) {
	html, err := Render(md)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return &Result{Markdown: md, HTML: html, Video: video}, nil
}
