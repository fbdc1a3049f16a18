// Package toolutil provides shared helpers for the agent tools, the MCP tools
// and the YouTube sources: typed cache access and parallel page fetching.
package toolutil

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/anatolykoptev/go_vidsum/internal/engine"
)

// CacheLoadJSON tries to load a cached value of type T from the engine cache.
// Returns the decoded value and true on hit; zero value and false on miss or decode error.
func CacheLoadJSON[T any](ctx context.Context, key string) (T, bool) {
	var out T
	data, ok := engine.CacheGet(ctx, key)
	if !ok {
		return out, false
	}
	if err := json.Unmarshal(data, &out); err != nil {
		var zero T
		return zero, false
	}
	return out, true
}

// CacheStoreJSON marshals v and stores it in the engine cache.
func CacheStoreJSON[T any](ctx context.Context, key string, v T) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	engine.CacheSet(ctx, key, data)
}

// FetchURLsParallel fetches page content for the first limit results.
// Returns a map of url → extracted text; failed fetches are omitted.
func FetchURLsParallel(ctx context.Context, results []engine.SearchResult, limit int) map[string]string {
	if limit > len(results) {
		limit = len(results)
	}
	contents := make(map[string]string, limit)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, r := range results[:limit] {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			_, text, err := engine.FetchURLContent(ctx, u)
			if err == nil && text != "" {
				mu.Lock()
				contents[u] = text
				mu.Unlock()
			}
		}(r.URL)
	}
	wg.Wait()
	return contents
}
