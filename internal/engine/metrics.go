package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters across the service.
var metrics struct {
	AnalysisRequests   atomic.Int64
	AnalysisErrors     atomic.Int64
	Uploads            atomic.Int64
	ProcessingPolls    atomic.Int64
	ModelCalls         atomic.Int64
	ModelErrors        atomic.Int64
	ToolCalls          atomic.Int64
	SearchRequests     atomic.Int64
	LLMCalls           atomic.Int64
	LLMErrors          atomic.Int64
	FetchRequests      atomic.Int64
	FetchErrors        atomic.Int64
	OEmbedRequests     atomic.Int64
	TranscriptRequests atomic.Int64
	CaptionFallbacks   atomic.Int64
	YouTubeSearches    atomic.Int64
	ContactMessages    atomic.Int64
}

// metricKeys fixes the output order of FormatMetrics.
var metricKeys = []string{
	"analysis_requests", "analysis_errors",
	"uploads", "processing_polls",
	"model_calls", "model_errors", "tool_calls",
	"search_requests", "llm_calls", "llm_errors",
	"fetch_requests", "fetch_errors",
	"oembed_requests", "transcript_requests", "caption_fallbacks",
	"youtube_searches",
	"contact_messages",
	"cache_hits", "cache_misses",
}

// GetMetrics returns a snapshot of all metrics including cache stats.
func GetMetrics() map[string]int64 {
	hits, misses := CacheStats()
	return map[string]int64{
		"analysis_requests":   metrics.AnalysisRequests.Load(),
		"analysis_errors":     metrics.AnalysisErrors.Load(),
		"uploads":             metrics.Uploads.Load(),
		"processing_polls":    metrics.ProcessingPolls.Load(),
		"model_calls":         metrics.ModelCalls.Load(),
		"model_errors":        metrics.ModelErrors.Load(),
		"tool_calls":          metrics.ToolCalls.Load(),
		"search_requests":     metrics.SearchRequests.Load(),
		"llm_calls":           metrics.LLMCalls.Load(),
		"llm_errors":          metrics.LLMErrors.Load(),
		"fetch_requests":      metrics.FetchRequests.Load(),
		"fetch_errors":        metrics.FetchErrors.Load(),
		"oembed_requests":     metrics.OEmbedRequests.Load(),
		"transcript_requests": metrics.TranscriptRequests.Load(),
		"caption_fallbacks":   metrics.CaptionFallbacks.Load(),
		"youtube_searches":    metrics.YouTubeSearches.Load(),
		"contact_messages":    metrics.ContactMessages.Load(),
		"cache_hits":          hits,
		"cache_misses":        misses,
	}
}

// FormatMetrics returns metrics as a simple text format for HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	for _, k := range metricKeys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

// Incrementors for analysis/ and agent/.
func IncrAnalysisRequests() { metrics.AnalysisRequests.Add(1) }
func IncrAnalysisErrors()   { metrics.AnalysisErrors.Add(1) }
func IncrUploads()          { metrics.Uploads.Add(1) }
func IncrProcessingPolls()  { metrics.ProcessingPolls.Add(1) }
func IncrModelCalls()       { metrics.ModelCalls.Add(1) }
func IncrModelErrors()      { metrics.ModelErrors.Add(1) }
func IncrToolCalls()        { metrics.ToolCalls.Add(1) }

// Incrementors for sources/ sub-package.
func IncrOEmbed()          { metrics.OEmbedRequests.Add(1) }
func IncrTranscript()      { metrics.TranscriptRequests.Add(1) }
func IncrCaptionFallback() { metrics.CaptionFallbacks.Add(1) }
func IncrYouTubeSearch()   { metrics.YouTubeSearches.Add(1) }

// IncrContactMessages increments the contact form counter.
func IncrContactMessages() { metrics.ContactMessages.Add(1) }

// TrackOperation logs a warning if an operation takes longer than threshold.
func TrackOperation(ctx context.Context, name string, threshold time.Duration, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if elapsed > threshold {
		slog.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}
