// Package tracker scores planned episodes by their measured metrics and turns
// the scores into summaries, next actions and weekly reports.
package tracker

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/anatolykoptev/go_studio/internal/engine"
	"github.com/anatolykoptev/go_studio/internal/engine/store"
)

const (
	summaryEpisodeLimit = 100
	actionsEpisodeLimit = 120
	reportEpisodeLimit  = 200
	trendWindow         = 14 * 24 * time.Hour
	reportWindow        = 7 * 24 * time.Hour
	trendSampleLimit    = 500
	topTrends           = 10

	lowCTR       = 5.0
	lowRetention = 55.0

	unknownKeyword = "unknown"
)

// Store is the persistence the tracker reads from and writes metrics to.
type Store interface {
	ListEpisodes(ctx context.Context, f store.EpisodeFilter) ([]store.Episode, error)
	CandidateScoresSince(ctx context.Context, since time.Time, limit int) ([]store.CandidateScore, error)
	UpsertMetrics(ctx context.Context, m store.EpisodeMetrics) (*store.EpisodeMetrics, error)
}

// Tracker computes reports over the stored episodes.
type Tracker struct {
	Store Store
	Now   func() time.Time // nil = time.Now
}

func (t *Tracker) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

// UpdateMetrics upserts the metrics of one episode.
func (t *Tracker) UpdateMetrics(ctx context.Context, m store.EpisodeMetrics) (*store.EpisodeMetrics, error) {
	out, err := t.Store.UpsertMetrics(ctx, m)
	if err != nil {
		return nil, err
	}
	engine.IncrMetricsUpdate()
	return out, nil
}

// KeywordScore aggregates the episodes planned for one keyword.
type KeywordScore struct {
	Keyword      string  `json:"keyword"`
	Count        int     `json:"count"`
	AvgCTR       float64 `json:"avg_ctr"`
	AvgRetention float64 `json:"avg_retention"`
	AvgViews     float64 `json:"avg_views"`
	Score        float64 `json:"score"`
}

func avg(nums []float64) float64 {
	if len(nums) == 0 {
		return 0
	}
	sum := 0.0
	for _, n := range nums {
		sum += n
	}
	return sum / float64(len(nums))
}

func keywordOf(e store.Episode) string {
	k := strings.ToLower(strings.TrimSpace(e.TargetKeyword))
	if k == "" {
		return unknownKeyword
	}
	return k
}

// ScoreKeywords groups episodes by target keyword and scores each group as
// 0.45·avgCTR + 0.35·avgRetention + 0.2·ln(avgViews+1), highest first.
// Episodes without a keyword are dropped.
func ScoreKeywords(eps []store.Episode) []KeywordScore {
	type acc struct {
		ctr, retention, views []float64
		count                 int
	}
	var order []string
	groups := make(map[string]*acc)
	for _, e := range eps {
		k := keywordOf(e)
		g, ok := groups[k]
		if !ok {
			g = &acc{}
			groups[k] = g
			order = append(order, k)
		}
		g.count++
		if m := e.Metrics; m != nil {
			if m.CTR != nil {
				g.ctr = append(g.ctr, *m.CTR)
			}
			if m.Retention30s != nil {
				g.retention = append(g.retention, *m.Retention30s)
			}
			if m.Views7d != nil {
				g.views = append(g.views, float64(*m.Views7d))
			}
		}
	}

	out := []KeywordScore{}
	for _, k := range order {
		if k == unknownKeyword {
			continue
		}
		g := groups[k]
		ctr, ret, views := avg(g.ctr), avg(g.retention), avg(g.views)
		out = append(out, KeywordScore{
			Keyword:      k,
			Count:        g.count,
			AvgCTR:       engine.Round2(ctr),
			AvgRetention: engine.Round2(ret),
			AvgViews:     math.Round(views),
			Score:        engine.Round2(0.45*ctr + 0.35*ret + 0.2*math.Log(views+1)),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func keywords(ks []KeywordScore) []string {
	out := make([]string, len(ks))
	for i, k := range ks {
		out[i] = k.Keyword
	}
	return out
}

func top(ks []KeywordScore, n int) []KeywordScore { return ks[:min(n, len(ks))] }

func bottom(ks []KeywordScore, n int) []KeywordScore { return ks[max(0, len(ks)-n):] }

func joinOr(ws []string, empty string) string {
	if len(ws) == 0 {
		return empty
	}
	return strings.Join(ws, " / ")
}
