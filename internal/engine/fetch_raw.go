package engine

import (
	"context"
	"strings"
)

// FetchRawContent fetches a URL as plain text (no readability extraction).
// Used for subtitle files and similar plain-text endpoints.
// limit <= 0 returns the whole body.
func FetchRawContent(ctx context.Context, rawURL string, limit int) (text string, err error) {
	metrics.FetchRequests.Add(1)
	defer func() {
		if err != nil {
			metrics.FetchErrors.Add(1)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, cfg.FetchTimeout)
	defer cancel()

	resp, err := fetchWithRetry(ctx, rawURL, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := readResponseBody(resp)
	if err != nil {
		return "", err
	}

	text = string(body)
	if limit > 0 && len(text) > limit {
		text = TruncateRunes(text, limit, "...")
	}
	return strings.TrimSpace(text), nil
}
