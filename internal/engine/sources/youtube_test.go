package sources

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anatolykoptev/go_vidsum/internal/engine"
)

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		want   string
		wantOK bool
	}{
		{"watch with list", "https://www.youtube.com/watch?v=ABC123&list=xyz", "ABC123", true},
		{"watch plain", "https://youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"short link with t", "https://youtu.be/ABC123?t=5", "ABC123", true},
		{"short link plain", "https://youtu.be/xyz789", "xyz789", true},
		{"unrecognized host", "https://vimeo.com/12345", "", false},
		{"youtube without v", "https://www.youtube.com/channel/UC123", "", false},
		{"empty id", "https://www.youtube.com/watch?v=", "", false},
		{"short link trailing slash", "https://youtu.be/", "", false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractVideoID(tt.url)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ExtractVideoID(%q) = (%q, %v), want (%q, %v)", tt.url, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestVideoDataMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrNoURL, "No URL provided"},
		{ErrInvalidURL, "Invalid YouTube URL"},
		{errors.New("boom"), "Error getting video data: boom"},
	}
	for _, tt := range tests {
		if got := VideoDataMessage(tt.err); got != tt.want {
			t.Errorf("VideoDataMessage(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestFetchVideoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("url"); got != "https://www.youtube.com/watch?v=ABC123" {
			t.Errorf("oembed url param = %q", got)
		}
		if r.URL.Query().Get("format") != "json" {
			t.Errorf("oembed format param = %q, want json", r.URL.Query().Get("format"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"title":"Go Concurrency Patterns","author_name":"Google for Developers","author_url":"https://www.youtube.com/@GoogleDevelopers","thumbnail_url":"https://i.ytimg.com/vi/ABC123/hqdefault.jpg"}`))
	}))
	defer srv.Close()

	orig := oembedEndpoint
	oembedEndpoint = srv.URL
	t.Cleanup(func() { oembedEndpoint = orig })
	engine.Init(engine.Config{})

	vd, err := FetchVideoData(context.Background(), "https://youtu.be/ABC123?t=5")
	if err != nil {
		t.Fatalf("FetchVideoData() error = %v", err)
	}
	if vd.Title != "Go Concurrency Patterns" {
		t.Errorf("Title = %q", vd.Title)
	}
	if vd.AuthorName != "Google for Developers" {
		t.Errorf("AuthorName = %q", vd.AuthorName)
	}
	if vd.EmbedURL != "https://www.youtube.com/embed/ABC123" {
		t.Errorf("EmbedURL = %q", vd.EmbedURL)
	}
}

func TestFetchVideoDataErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	orig := oembedEndpoint
	oembedEndpoint = srv.URL
	t.Cleanup(func() { oembedEndpoint = orig })
	engine.Init(engine.Config{})

	ctx := context.Background()
	if _, err := FetchVideoData(ctx, "  "); !errors.Is(err, ErrNoURL) {
		t.Errorf("empty URL error = %v, want ErrNoURL", err)
	}
	if _, err := FetchVideoData(ctx, "https://example.com/video"); !errors.Is(err, ErrInvalidURL) {
		t.Errorf("bad URL error = %v, want ErrInvalidURL", err)
	}

	_, err := FetchVideoData(ctx, "https://www.youtube.com/watch?v=missing1")
	if err == nil {
		t.Fatal("expected error for 404 oembed")
	}
	if msg := VideoDataMessage(err); !strings.HasPrefix(msg, "Error getting video data: ") {
		t.Errorf("VideoDataMessage() = %q", msg)
	}
}
