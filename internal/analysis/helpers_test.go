package analysis

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/anatolykoptev/go_vidsum/internal/agent"
	"github.com/anatolykoptev/go_vidsum/internal/engine/sources"
	"github.com/stretchr/testify/require"
)

// formRequest builds a multipart POST; filename "" omits the file part.
func formRequest(t *testing.T, fields map[string]string, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "-" {
		fw, err := w.CreateFormFile("video", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	r := httptest.NewRequest(http.MethodPost, "/", &body)
	r.Header.Set("Content-Type", w.FormDataContentType())
	return r
}

func readInput(t *testing.T, fields map[string]string, filename string, content []byte) Input {
	t.Helper()
	in, err := ReadInput(formRequest(t, fields, filename, content), 1<<20)
	require.NoError(t, err)
	return in
}

type fakeRunner struct {
	mu      sync.Mutex
	answer  string
	err     error
	prompts []string
	opts    int
}

func (f *fakeRunner) Run(ctx context.Context, prompt string, opts ...agent.RunOption) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	f.opts = len(opts)
	return f.answer, f.err
}

type fakeProcessor struct {
	err       error
	processed []string
	released  int
}

func (f *fakeProcessor) Process(ctx context.Context, path, mimeType string) (*agent.Handle, error) {
	f.processed = append(f.processed, path)
	if f.err != nil {
		return nil, f.err
	}
	return &agent.Handle{Name: "files/1", URI: "https://files/1", MIMEType: mimeType, State: agent.StateActive}, nil
}

func (f *fakeProcessor) Release(ctx context.Context, h *agent.Handle) { f.released++ }

type fakeCaptions struct {
	text  string
	ok    bool
	calls int
}

func (f *fakeCaptions) Lookup(ctx context.Context, rawURL string) (string, bool) {
	f.calls++
	return f.text, f.ok
}

func staticMetadata(vd *sources.VideoData, err error) func(context.Context, string) (*sources.VideoData, error) {
	return func(context.Context, string) (*sources.VideoData, error) { return vd, err }
}
