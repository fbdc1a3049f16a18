package engine

import (
	"context"
	"strings"
	"testing"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\nplain\n```", "plain"},
		{"  no fences  ", "no fences"},
	}
	for _, tt := range tests {
		if got := stripFences(tt.in); got != tt.want {
			t.Errorf("stripFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAcceptRewrite(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"clean", "golang context cancellation", "golang context cancellation"},
		{"quoted", `"rust async runtime"`, "rust async runtime"},
		{"empty falls back", "   ", "original"},
		{"multiline falls back", "line one\nline two", "original"},
		{"too long falls back", strings.Repeat("x", 201), "original"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := acceptRewrite("original", tt.raw); got != tt.want {
				t.Errorf("acceptRewrite() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRewriteQueryWithoutLLM(t *testing.T) {
	Init(Config{})
	if got := RewriteQuery(context.Background(), "what is this video about"); got != "what is this video about" {
		t.Errorf("RewriteQuery() = %q, want input unchanged", got)
	}
}

func TestBuildSourcesText(t *testing.T) {
	results := []SearchResult{
		{Title: "Go Docs", URL: "https://go.dev/doc", Content: "Go is a language"},
		{Title: "Rust Docs", URL: "https://rust-lang.org", Content: "Rust is a language"},
	}
	contents := map[string]string{"https://go.dev/doc": "Full Go documentation page"}

	got := BuildSourcesText(results, contents, 100)
	for _, want := range []string{
		"[1] Go Docs",
		"Content: Full Go documentation page",
		"[2] Rust Docs",
		"Snippet: Rust is a language",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("BuildSourcesText() missing %q in:\n%s", want, got)
		}
	}
	if strings.Contains(got, "Snippet: Go is a language") {
		t.Error("BuildSourcesText() should prefer fetched content over snippet")
	}
}
