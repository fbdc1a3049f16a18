package agent

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/generative-ai-go/genai"
)

// State is the processing state of an uploaded file.
type State int

const (
	StateUnknown State = iota
	StateProcessing
	StateActive
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateProcessing:
		return "PROCESSING"
	case StateActive:
		return "ACTIVE"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Handle references a file held by the remote model service.
type Handle struct {
	Name     string
	URI      string
	MIMEType string
	State    State
}

// FileService is the subset of the remote file API the bridge needs.
type FileService interface {
	Upload(ctx context.Context, path, mimeType string) (*Handle, error)
	Get(ctx context.Context, name string) (*Handle, error)
	Delete(ctx context.Context, name string) error
}

// genaiFiles implements FileService over the Gemini File API.
type genaiFiles struct {
	client *genai.Client
}

func (g *genaiFiles) Upload(ctx context.Context, path, mimeType string) (*Handle, error) {
	f, err := g.client.UploadFileFromPath(ctx, path, &genai.UploadFileOptions{
		MIMEType:    mimeType,
		DisplayName: filepath.Base(path),
	})
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", filepath.Base(path), err)
	}
	return toHandle(f), nil
}

func (g *genaiFiles) Get(ctx context.Context, name string) (*Handle, error) {
	f, err := g.client.GetFile(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("get file %s: %w", name, err)
	}
	return toHandle(f), nil
}

func (g *genaiFiles) Delete(ctx context.Context, name string) error {
	return g.client.DeleteFile(ctx, name)
}

func toHandle(f *genai.File) *Handle {
	h := &Handle{Name: f.Name, URI: f.URI, MIMEType: f.MIMEType}
	switch f.State {
	case genai.FileStateProcessing:
		h.State = StateProcessing
	case genai.FileStateActive:
		h.State = StateActive
	case genai.FileStateFailed:
		h.State = StateFailed
	}
	return h
}
