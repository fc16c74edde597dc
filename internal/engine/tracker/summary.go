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

// OwnEpisode is one planned episode with its headline metrics.
type OwnEpisode struct {
	ID            string     `json:"id"`
	Topic         string     `json:"topic"`
	TargetKeyword string     `json:"target_keyword"`
	PlannedDate   *time.Time `json:"planned_date,omitempty"`
	CTR           *float64   `json:"ctr"`
	Retention30s  *float64   `json:"retention_30s"`
	Views7d       *int64     `json:"views_7d"`
	WinOrFail     string     `json:"win_or_fail,omitempty"`
}

// OwnSummary averages the measured metrics of our own episodes.
type OwnSummary struct {
	AvgCTR          float64 `json:"avg_ctr"`
	AvgRetention30s float64 `json:"avg_retention_30s"`
	AvgViews7d      float64 `json:"avg_views_7d"`
	MeasuredCount   int     `json:"measured_count"`
}

// Trend is the average discover score of the candidates found for one query.
type Trend struct {
	Keyword     string  `json:"keyword"`
	AvgScore    float64 `json:"avg_score"`
	SampleCount int     `json:"sample_count"`
}

// Recommendation is the suggested focus for the coming week.
type Recommendation struct {
	OwnFocus     string `json:"own_focus"`
	MarketSignal string `json:"market_signal"`
}

// Summary combines our own performance with competitor keyword trends.
type Summary struct {
	Own              OwnSummary     `json:"own_summary"`
	OwnEpisodes      []OwnEpisode   `json:"own_episodes"`
	CompetitorTrends []Trend        `json:"competitor_trends"`
	Recommendation   Recommendation `json:"recommendation"`
}

// Summarize builds the summary from episodes and recent candidate scores.
func Summarize(eps []store.Episode, scores []store.CandidateScore) Summary {
	var ctrs, retention, views []float64
	own := make([]OwnEpisode, 0, len(eps))
	for _, e := range eps {
		o := OwnEpisode{ID: e.ID, Topic: e.Topic, TargetKeyword: e.TargetKeyword, PlannedDate: e.PlannedDate}
		if m := e.Metrics; m != nil {
			o.CTR, o.Retention30s, o.Views7d, o.WinOrFail = m.CTR, m.Retention30s, m.Views7d, m.WinOrFail
			if m.CTR != nil {
				ctrs = append(ctrs, *m.CTR)
			}
			if m.Retention30s != nil {
				retention = append(retention, *m.Retention30s)
			}
			if m.Views7d != nil {
				views = append(views, float64(*m.Views7d))
			}
		}
		own = append(own, o)
	}

	trends := Trends(scores)
	return Summary{
		Own: OwnSummary{
			AvgCTR:          engine.Round2(avg(ctrs)),
			AvgRetention30s: engine.Round2(avg(retention)),
			AvgViews7d:      math.Round(avg(views)),
			MeasuredCount:   len(ctrs),
		},
		OwnEpisodes:      own,
		CompetitorTrends: trends,
		Recommendation:   recommend(avg(ctrs), avg(retention), trends),
	}
}

// Trends averages candidate scores per lowercased run query, highest first, top 10.
func Trends(scores []store.CandidateScore) []Trend {
	type acc struct {
		sum   float64
		count int
	}
	var order []string
	groups := make(map[string]*acc)
	for _, s := range scores {
		k := strings.ToLower(strings.TrimSpace(s.Query))
		if k == "" {
			k = unknownKeyword
		}
		g, ok := groups[k]
		if !ok {
			g = &acc{}
			groups[k] = g
			order = append(order, k)
		}
		g.sum += s.Score
		g.count++
	}
	out := make([]Trend, 0, len(order))
	for _, k := range order {
		g := groups[k]
		out = append(out, Trend{Keyword: k, AvgScore: engine.Round2(g.sum / float64(g.count)), SampleCount: g.count})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].AvgScore > out[j].AvgScore })
	return out[:min(len(out), topTrends)]
}

func recommend(avgCTR, avgRetention float64, trends []Trend) Recommendation {
	var r Recommendation
	switch {
	case avgCTR < lowCTR:
		r.OwnFocus = "优先优化标题与封面（CTR偏低）"
	case avgRetention < lowRetention:
		r.OwnFocus = "优先优化前30秒结构（留存偏低）"
	default:
		r.OwnFocus = "维持当前结构，扩大高表现主题产能"
	}
	if len(trends) > 0 {
		r.MarketSignal = "近期外部热度最高关键词：" + trends[0].Keyword
	} else {
		r.MarketSignal = "暂无外部趋势数据"
	}
	return r
}

// Summary loads the latest episodes and the last 14 days of discover candidates.
func (t *Tracker) Summary(ctx context.Context) (*Summary, error) {
	eps, err := t.Store.ListEpisodes(ctx, store.EpisodeFilter{Limit: summaryEpisodeLimit})
	if err != nil {
		return nil, err
	}
	scores, err := t.Store.CandidateScoresSince(ctx, t.now().Add(-trendWindow), trendSampleLimit)
	if err != nil {
		return nil, err
	}
	s := Summarize(eps, scores)
	return &s, nil
}

// NextActionsResult is the keyword ranking with the actions derived from it.
type NextActionsResult struct {
	KeywordScores []KeywordScore `json:"keyword_scores"`
	NextActions   []string       `json:"next_actions"`
}

// NextActions keeps the top 3 keywords and pauses the bottom 3.
func NextActions(scores []KeywordScore) []string {
	keep := keywords(top(scores, 3))
	pause := keywords(bottom(scores, 3))
	return []string{
		"下周加码关键词：" + joinOr(keep, "暂无"),
		"下周降权关键词：" + joinOr(pause, "暂无"),
		"发布节奏建议：必做3条 + 备选4条 + 实验3条",
		"封面策略：高分关键词优先使用数字+结果式文案",
	}
}

// NextActions scores the latest 120 episodes by keyword.
func (t *Tracker) NextActions(ctx context.Context) (*NextActionsResult, error) {
	eps, err := t.Store.ListEpisodes(ctx, store.EpisodeFilter{Limit: actionsEpisodeLimit})
	if err != nil {
		return nil, err
	}
	scores := ScoreKeywords(eps)
	return &NextActionsResult{KeywordScores: scores, NextActions: NextActions(scores)}, nil
}
