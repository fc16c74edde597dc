package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	YouTubeAPICalls  atomic.Int64
	YouTubeAPIErrors atomic.Int64
	YouTubeQuotaHits atomic.Int64
	LLMCalls         atomic.Int64
	LLMErrors        atomic.Int64
	DiscoverRuns     atomic.Int64
	SimilarRuns      atomic.Int64
	ScriptsAccepted  atomic.Int64
	ScriptsRejected  atomic.Int64
	ScriptsTemplated atomic.Int64
	EpisodesPlanned  atomic.Int64
	MetricsUpdates   atomic.Int64
}

// metricKeys fixes the output order of FormatMetrics.
var metricKeys = []string{
	"youtube_api_calls", "youtube_api_errors", "youtube_quota_hits",
	"llm_calls", "llm_errors",
	"discover_runs", "similar_runs",
	"scripts_accepted", "scripts_rejected", "scripts_templated",
	"episodes_planned", "metrics_updates",
	"cache_hits", "cache_misses",
}

// GetMetrics returns a snapshot of all metrics including cache stats.
func GetMetrics() map[string]int64 {
	hits, misses := CacheStats()
	return map[string]int64{
		"youtube_api_calls":  metrics.YouTubeAPICalls.Load(),
		"youtube_api_errors": metrics.YouTubeAPIErrors.Load(),
		"youtube_quota_hits": metrics.YouTubeQuotaHits.Load(),
		"llm_calls":          metrics.LLMCalls.Load(),
		"llm_errors":         metrics.LLMErrors.Load(),
		"discover_runs":      metrics.DiscoverRuns.Load(),
		"similar_runs":       metrics.SimilarRuns.Load(),
		"scripts_accepted":   metrics.ScriptsAccepted.Load(),
		"scripts_rejected":   metrics.ScriptsRejected.Load(),
		"scripts_templated":  metrics.ScriptsTemplated.Load(),
		"episodes_planned":   metrics.EpisodesPlanned.Load(),
		"metrics_updates":    metrics.MetricsUpdates.Load(),
		"cache_hits":         hits,
		"cache_misses":       misses,
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

// Incrementors for sub-packages.
func IncrYouTubeAPICall()       { metrics.YouTubeAPICalls.Add(1) }
func IncrYouTubeAPIError()      { metrics.YouTubeAPIErrors.Add(1) }
func IncrYouTubeQuotaHit()      { metrics.YouTubeQuotaHits.Add(1) }
func IncrDiscoverRun()          { metrics.DiscoverRuns.Add(1) }
func IncrSimilarRun()           { metrics.SimilarRuns.Add(1) }
func IncrScriptAccepted()       { metrics.ScriptsAccepted.Add(1) }
func IncrScriptRejected()       { metrics.ScriptsRejected.Add(1) }
func IncrScriptTemplated()      { metrics.ScriptsTemplated.Add(1) }
func IncrEpisodesPlanned(n int) { metrics.EpisodesPlanned.Add(int64(n)) }
func IncrMetricsUpdate()        { metrics.MetricsUpdates.Add(1) }

// TrackOperation logs a warning if an operation takes longer than threshold.
func TrackOperation(ctx context.Context, name string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if elapsed > 5*time.Second {
		slog.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}
