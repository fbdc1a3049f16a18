package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/anatolykoptev/go-kit/llm"
)

// stripFences removes markdown code fences from LLM output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// RewriteQuery uses the LLM to convert a conversational query into a search-optimized form.
// Returns the query unchanged when no LLM is configured or the answer looks unusable.
func RewriteQuery(ctx context.Context, query string) string {
	if cfg.LLMClient == nil {
		return query
	}
	prompt := fmt.Sprintf(rewriteQueryPrompt, query)
	metrics.LLMCalls.Add(1)
	raw, err := cfg.LLMClient.Complete(ctx, "", prompt,
		llm.WithChatTemperature(0.3),
		llm.WithChatMaxTokens(100),
	)
	if err != nil {
		metrics.LLMErrors.Add(1)
		return query
	}
	return acceptRewrite(query, raw)
}

// acceptRewrite validates an LLM rewrite, falling back to the original query.
func acceptRewrite(query, raw string) string {
	rewritten := strings.Trim(stripFences(raw), "\"' ")
	if rewritten == "" || len(rewritten) > 200 || strings.Contains(rewritten, "\n") {
		return query
	}
	return rewritten
}

// BuildSourcesText formats search results and their fetched content for model context.
func BuildSourcesText(results []SearchResult, contents map[string]string, contentLimit int) string {
	var sb strings.Builder
	for i, r := range results {
		fmt.Fprintf(&sb, "\n[%d] %s\nURL: %s\n", i+1, r.Title, r.URL)
		if c, ok := contents[r.URL]; ok && c != "" {
			fmt.Fprintf(&sb, "Content: %s\n", TruncateRunes(c, contentLimit, "..."))
			continue
		}
		if r.Content != "" {
			fmt.Fprintf(&sb, "Snippet: %s\n", r.Content)
		}
	}
	return sb.String()
}
