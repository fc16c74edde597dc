package similar

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/anatolykoptev/go_studio/internal/engine"
)

const (
	// MaxResults caps the ranked similar channels.
	MaxResults = 15
	// SearchResults is the channel-search page size used for candidate recall.
	SearchResults = 20
	// FallbackQuery is searched when the seed yields no terms.
	FallbackQuery = "homestead"

	fetchConcurrency = 4
)

// Channel is a candidate channel reference.
type Channel struct {
	ChannelID    string `json:"channel_id"`
	ChannelTitle string `json:"channel_title,omitempty"`
	ChannelURL   string `json:"channel_url,omitempty"`
}

// Match is one ranked similar channel.
type Match struct {
	ChannelID    string   `json:"channel_id"`
	ChannelTitle string   `json:"channel_title"`
	ChannelURL   string   `json:"channel_url"`
	Similarity   float64  `json:"similarity"`
	MatchedTerms []string `json:"matched_terms"`
}

// Result is the output of one similarity run.
type Result struct {
	SeedInput     string   `json:"seed_input"`
	SeedChannelID string   `json:"seed_channel_id"`
	Query         string   `json:"query"`
	SeedTerms     []string `json:"seed_terms"`
	Items         []Match  `json:"items"`
}

// ChannelSource is the YouTube collaborator used by FindSimilar.
type ChannelSource interface {
	ResolveChannelID(ctx context.Context, input string) (string, error)
	RecentTitles(ctx context.Context, channelID string) ([]string, error)
	SearchChannels(ctx context.Context, query string, maxResults int) ([]Channel, error)
}

// SeedQuery joins the first 4 seed terms, or returns FallbackQuery.
func SeedQuery(seedTerms []string) string {
	q := strings.Join(seedTerms[:min(len(seedTerms), queryTermCount)], " ")
	if q == "" {
		return FallbackQuery
	}
	return q
}

// MergeCandidates dedupes pool and searched channels by id, keeping first-seen
// position and the last-seen metadata, and drops the seed.
func MergeCandidates(seedID string, pool, searched []Channel) []Channel {
	index := make(map[string]int)
	var out []Channel
	for _, c := range append(append([]Channel{}, pool...), searched...) {
		if c.ChannelID == "" || c.ChannelID == seedID {
			continue
		}
		if i, ok := index[c.ChannelID]; ok {
			out[i] = c
			continue
		}
		index[c.ChannelID] = len(out)
		out = append(out, c)
	}
	return out
}

// Rank scores each candidate's terms against the seed terms, drops zero
// overlap, sorts by similarity descending and caps at MaxResults.
func Rank(seedTerms []string, candidates []Channel, terms map[string][]string) []Match {
	out := []Match{}
	for _, c := range candidates {
		ct := terms[c.ChannelID]
		sim := Overlap(seedTerms, ct)
		if sim <= 0 {
			continue
		}
		title := c.ChannelTitle
		if title == "" {
			title = "Unknown"
		}
		url := c.ChannelURL
		if url == "" {
			url = engine.ChannelURL(c.ChannelID)
		}
		out = append(out, Match{
			ChannelID:    c.ChannelID,
			ChannelTitle: title,
			ChannelURL:   url,
			Similarity:   sim,
			MatchedTerms: MatchedTerms(seedTerms, ct),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if len(out) > MaxResults {
		out = out[:MaxResults]
	}
	return out
}

// FindSimilar resolves the seed, extracts its top terms, widens the local pool
// with a channel search and ranks every candidate by term overlap.
// A failing candidate fetch is logged and the candidate skipped.
func FindSimilar(ctx context.Context, src ChannelSource, seedInput string, pool []Channel) (*Result, error) {
	seedInput = strings.TrimSpace(seedInput)
	if seedInput == "" {
		return nil, fmt.Errorf("channel input is required")
	}
	seedID, err := src.ResolveChannelID(ctx, seedInput)
	if err != nil {
		return nil, fmt.Errorf("resolve seed: %w", err)
	}
	seedTitles, err := src.RecentTitles(ctx, seedID)
	if err != nil {
		return nil, fmt.Errorf("seed titles: %w", err)
	}
	seedTerms := TopTerms(seedTitles)
	query := SeedQuery(seedTerms)

	searched, err := src.SearchChannels(ctx, query, SearchResults)
	if err != nil {
		slog.Warn("similar: channel search failed", slog.String("query", query), slog.Any("error", err))
	}
	candidates := MergeCandidates(seedID, pool, searched)

	terms := fetchTerms(ctx, src, candidates)
	items := Rank(seedTerms, candidates, terms)
	engine.IncrSimilarRun()

	slog.Info("similar: run complete",
		slog.String("seed", seedID),
		slog.Int("candidates", len(candidates)),
		slog.Int("matches", len(items)))

	if seedTerms == nil {
		seedTerms = []string{}
	}
	return &Result{
		SeedInput:     seedInput,
		SeedChannelID: seedID,
		Query:         query,
		SeedTerms:     seedTerms,
		Items:         items,
	}, nil
}

func fetchTerms(ctx context.Context, src ChannelSource, candidates []Channel) map[string][]string {
	results := make([][]string, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, c := range candidates {
		g.Go(func() error {
			titles, err := src.RecentTitles(gctx, c.ChannelID)
			if err != nil {
				slog.Debug("similar: candidate titles failed",
					slog.String("channel", c.ChannelID), slog.Any("error", err))
				return nil
			}
			results[i] = TopTerms(titles)
			return nil
		})
	}
	_ = g.Wait()

	terms := make(map[string][]string, len(candidates))
	for i, c := range candidates {
		terms[c.ChannelID] = results[i]
	}
	return terms
}
