package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"
)

// DuckDuckGo endpoints; variables so tests can point them at httptest servers.
var (
	ddgHTMLEndpoint = "https://html.duckduckgo.com/html/"
	ddgHomeEndpoint = "https://duckduckgo.com/"
	ddgDJSEndpoint  = "https://links.duckduckgo.com/d.js"
)

var vqdPatterns = []*regexp.Regexp{
	regexp.MustCompile(`vqd='([^']+)'`),
	regexp.MustCompile(`vqd="([^"]+)"`),
	regexp.MustCompile(`vqd=([a-zA-Z0-9_-]+)`),
}

// searchLimiter throttles outbound search requests. nil = unlimited.
var searchLimiter *rate.Limiter

func initSearchLimiter(perSec float64) {
	if perSec <= 0 {
		searchLimiter = nil
		return
	}
	searchLimiter = rate.NewLimiter(rate.Limit(perSec), 1)
}

// ddgResult represents a single DuckDuckGo search result from d.js.
type ddgResult struct {
	T string `json:"t"` // title
	A string `json:"a"` // abstract/content (HTML)
	U string `json:"u"` // URL
	C string `json:"c"` // content URL (alternative)
}

// SearchDDG queries DuckDuckGo and returns at most maxResults results.
// Uses the HTML lite endpoint as primary,
// falls back to the d.js JSON API if HTML parsing yields nothing.
func SearchDDG(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty search query")
	}
	if maxResults <= 0 {
		maxResults = cfg.SearchMaxResults
	}
	if searchLimiter != nil {
		if err := searchLimiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	metrics.SearchRequests.Add(1)
	region := cfg.SearchRegion

	results, err := ddgSearchHTML(ctx, query, region)
	if err != nil {
		slog.Debug("ddg html failed, trying d.js", slog.Any("error", err))
	}
	if len(results) == 0 {
		vqd, vqdErr := ddgGetVQD(ctx, query)
		if vqdErr != nil {
			if err != nil {
				return nil, fmt.Errorf("ddg: %w", err)
			}
			return nil, fmt.Errorf("ddg vqd: %w", vqdErr)
		}
		results, err = ddgSearchDJS(ctx, query, vqd, region)
		if err != nil {
			return nil, fmt.Errorf("ddg d.js: %w", err)
		}
	}

	results = DedupByDomain(results, 2)
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	slog.Debug("ddg results", slog.String("query", query), slog.Int("count", len(results)))
	return results, nil
}

// ddgDo performs a request through the shared retrying client and returns the body.
func ddgDo(ctx context.Context, method, target, referer string, body string) ([]byte, int, error) {
	resp, err := RetryHTTP(ctx, DefaultRetryConfig, func() (*http.Response, error) {
		var rd io.Reader
		if body != "" {
			rd = strings.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, rd)
		if err != nil {
			return nil, err
		}
		for k, v := range ChromeHeaders() {
			req.Header.Set(k, v)
		}
		req.Header.Set("User-Agent", RandomUserAgent())
		req.Header.Set("Referer", referer)
		if body != "" {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
		return cfg.HTTPClient.Do(req)
	})
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	data, err := readResponseBody(resp)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return data, resp.StatusCode, nil
}

// ddgSearchHTML queries DDG via the HTML lite endpoint and parses results.
func ddgSearchHTML(ctx context.Context, query, region string) ([]SearchResult, error) {
	form := url.Values{"q": {query}, "kl": {region}, "df": {""}}
	data, status, err := ddgDo(ctx, http.MethodPost, ddgHTMLEndpoint, "https://html.duckduckgo.com/", form.Encode())
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("ddg html status %d", status)
	}
	return parseDDGHTML(data)
}

// parseDDGHTML extracts search results from DDG HTML lite response.
func parseDDGHTML(data []byte) ([]SearchResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(data)))
	if err != nil {
		return nil, fmt.Errorf("goquery parse: %w", err)
	}

	var results []SearchResult
	doc.Find(".result, .web-result").Each(func(i int, s *goquery.Selection) {
		link := s.Find("a.result__a, .result__title a, a.result-link").First()
		title := strings.TrimSpace(link.Text())
		href, exists := link.Attr("href")
		if !exists || title == "" {
			return
		}

		// DDG wraps URLs in redirects
		href = ddgUnwrapURL(href)
		if href == "" {
			return
		}

		snippet := s.Find(".result__snippet, .result__body").First()
		results = append(results, SearchResult{
			Title:   title,
			Content: strings.TrimSpace(snippet.Text()),
			URL:     href,
		})
	})
	return results, nil
}

// ddgUnwrapURL extracts the actual URL from DDG redirect wrappers.
// DDG HTML wraps links as: //duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com&rut=...
func ddgUnwrapURL(href string) string {
	if strings.Contains(href, "duckduckgo.com/l/") || strings.Contains(href, "uddg=") {
		if u, err := url.Parse(href); err == nil {
			if uddg := u.Query().Get("uddg"); uddg != "" {
				return uddg
			}
		}
	}
	if strings.HasPrefix(href, "http") {
		return href
	}
	return ""
}

// ddgGetVQD fetches the VQD token required by the d.js endpoint.
func ddgGetVQD(ctx context.Context, query string) (string, error) {
	data, status, err := ddgDo(ctx, http.MethodGet, ddgHomeEndpoint+"?q="+url.QueryEscape(query), "https://duckduckgo.com/", "")
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("ddg homepage status %d", status)
	}
	if vqd := extractVQD(string(data)); vqd != "" {
		return vqd, nil
	}
	return "", fmt.Errorf("vqd token not found in response (%d bytes)", len(data))
}

// ddgSearchDJS queries DDG via the d.js JSON API (fallback).
func ddgSearchDJS(ctx context.Context, query, vqd, region string) ([]SearchResult, error) {
	params := url.Values{
		"q":   {query},
		"vqd": {vqd},
		"kl":  {region},
		"df":  {""},
		"l":   {"us-en"},
		"o":   {"json"},
	}
	data, status, err := ddgDo(ctx, http.MethodGet, ddgDJSEndpoint+"?"+params.Encode(), "https://duckduckgo.com/", "")
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK && status != http.StatusAccepted {
		return nil, fmt.Errorf("ddg d.js status %d", status)
	}
	return parseDDGResponse(data)
}

// parseDDGResponse extracts search results from DDG d.js response.
// The response may be JSONP or raw JSON array.
func parseDDGResponse(data []byte) ([]SearchResult, error) {
	body := strings.TrimSpace(string(data))

	// Strip JSONP wrapper if present: DDGjsonp_xxx({results:[...]})
	if idx := strings.Index(body, "["); idx >= 0 {
		end := strings.LastIndex(body, "]")
		if end > idx {
			body = body[idx : end+1]
		}
	}

	var raw []ddgResult
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, fmt.Errorf("ddg json parse: %w (first 200 bytes: %s)", err, Truncate(body, 200))
	}

	var results []SearchResult
	for _, r := range raw {
		resultURL := r.U
		if resultURL == "" {
			resultURL = r.C
		}
		if resultURL == "" || r.T == "" {
			continue
		}
		if strings.HasPrefix(resultURL, "https://duckduckgo.com/") {
			continue
		}
		results = append(results, SearchResult{
			Title:   CleanHTML(r.T),
			Content: CleanHTML(r.A),
			URL:     resultURL,
		})
	}
	return results, nil
}

// extractVQD extracts the VQD token from DDG response HTML.
func extractVQD(body string) string {
	for _, pat := range vqdPatterns {
		if m := pat.FindStringSubmatch(body); len(m) > 1 {
			return m[1]
		}
	}
	return ""
}

// DedupByDomain limits results to maxPerDomain per domain.
func DedupByDomain(results []SearchResult, maxPerDomain int) []SearchResult {
	counts := make(map[string]int)
	var out []SearchResult
	for _, r := range results {
		u, err := url.Parse(r.URL)
		if err != nil {
			continue
		}
		domain := u.Hostname()
		if counts[domain] < maxPerDomain {
			out = append(out, r)
			counts[domain]++
		}
	}
	return out
}
