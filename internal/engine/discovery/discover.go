package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/anatolykoptev/go_studio/internal/engine"
)

// Request defaults.
const (
	DefaultQuery          = "homestead"
	DefaultRegion         = "US"
	DefaultLanguage       = "en"
	DefaultDays           = 7
	DefaultMaxResults     = 50
	DefaultMinDurationSec = 240
)

// SearchParams is the video search window passed to a VideoSource.
type SearchParams struct {
	Query          string
	Region         string
	Language       string
	PublishedAfter time.Time
	MaxResults     int
}

// VideoSource is the YouTube collaborator used by Discover.
type VideoSource interface {
	SearchVideoIDs(ctx context.Context, p SearchParams) ([]string, error)
	VideoDetails(ctx context.Context, ids []string) ([]VideoRecord, error)
	ChannelStats(ctx context.Context, ids []string) (map[string]ChannelStats, error)
}

// Input describes one discovery run. Zero fields take the package defaults.
type Input struct {
	Query          string       `json:"query"`
	Region         string       `json:"region"`
	Language       string       `json:"language"`
	Days           int          `json:"days"`
	MaxResults     int          `json:"max_results"`
	MinDurationSec int          `json:"min_duration_sec"`
	Weights        WeightVector `json:"weights"`
	Bounds         Bounds       `json:"bounds"`
	// Enrich fetches channel statistics even when no bound needs them.
	Enrich bool `json:"enrich"`
}

// Normalize fills defaults and clamps MaxResults to the API page size.
func (in *Input) Normalize() {
	if in.Query == "" {
		in.Query = DefaultQuery
	}
	if in.Region == "" {
		in.Region = DefaultRegion
	}
	if in.Language == "" {
		in.Language = DefaultLanguage
	}
	if in.Days <= 0 {
		in.Days = DefaultDays
	}
	if in.MaxResults <= 0 || in.MaxResults > DefaultMaxResults {
		in.MaxResults = DefaultMaxResults
	}
	if in.MinDurationSec < 0 {
		in.MinDurationSec = 0
	} else if in.MinDurationSec == 0 {
		in.MinDurationSec = DefaultMinDurationSec
	}
	in.Weights = in.Weights.OrDefault()
}

// Result is the output of one discovery run.
type Result struct {
	Channels       []ChannelCandidate `json:"channels"`
	FetchedVideos  int                `json:"fetched_videos"`
	FilteredVideos int                `json:"filtered_videos"`
}

// Discover runs search, details, duration filter, aggregation, scoring,
// optional channel enrichment and FilterAndRank.
func Discover(ctx context.Context, src VideoSource, in Input, now time.Time) (*Result, error) {
	in.Normalize()

	ids, err := src.SearchVideoIDs(ctx, SearchParams{
		Query:          in.Query,
		Region:         in.Region,
		Language:       in.Language,
		PublishedAfter: now.Add(-time.Duration(in.Days) * 24 * time.Hour),
		MaxResults:     in.MaxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("search videos: %w", err)
	}
	ids = dedupe(ids)
	if len(ids) == 0 {
		return &Result{Channels: []ChannelCandidate{}}, nil
	}

	videos, err := src.VideoDetails(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("video details: %w", err)
	}
	kept := FilterByDuration(videos, in.MinDurationSec)

	candidates := BuildCandidates(Aggregate(kept), in.Weights)
	if in.Enrich || in.Bounds.NeedsChannelStats() {
		enrich(ctx, src, candidates, now)
	}

	ranked := FilterAndRank(candidates, in.Bounds)
	engine.IncrDiscoverRun()
	slog.Info("discover: run complete",
		slog.String("query", in.Query),
		slog.Int("fetched", len(videos)),
		slog.Int("filtered", len(kept)),
		slog.Int("channels", len(ranked)))

	return &Result{
		Channels:       ranked,
		FetchedVideos:  len(videos),
		FilteredVideos: len(kept),
	}, nil
}

// enrich fills subscriber, age and ratio fields in place. Failures leave them unknown.
func enrich(ctx context.Context, src VideoSource, candidates []ChannelCandidate, now time.Time) {
	if len(candidates) == 0 {
		return
	}
	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ChannelID
	}
	stats, err := src.ChannelStats(ctx, ids)
	if err != nil {
		slog.Warn("discover: channel stats failed", slog.Any("error", err))
		return
	}
	for i := range candidates {
		st, ok := stats[candidates[i].ChannelID]
		if !ok {
			continue
		}
		applyStats(&candidates[i], st, now)
	}
}

func applyStats(c *ChannelCandidate, st ChannelStats, now time.Time) {
	if !st.PublishedAt.IsZero() {
		age := int(now.Sub(st.PublishedAt).Hours() / 24)
		c.ChannelAgeDays = &age
	}
	if st.HiddenSubs {
		return
	}
	subs := st.SubscriberCount
	c.SubscriberCount = &subs
	if subs > 0 {
		ratio := math.Round(float64(c.ViewsSum7d)/float64(subs)*1000) / 1000
		c.ViewSubRatio = &ratio
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
