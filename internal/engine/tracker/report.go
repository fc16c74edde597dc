package tracker

import (
	"context"
	"time"

	"github.com/anatolykoptev/go_studio/internal/engine"
	"github.com/anatolykoptev/go_studio/internal/engine/store"
)

// Period is the reporting window.
type Period struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// ReportSummary counts the episodes created and measured in the window.
type ReportSummary struct {
	CreatedEpisodes  int     `json:"created_episodes"`
	MeasuredEpisodes int     `json:"measured_episodes"`
	AvgCTR           float64 `json:"avg_ctr"`
	AvgRetention30s  float64 `json:"avg_retention_30s"`
}

// NextWeekPlan splits keywords into must-do, backup and experiment slots.
type NextWeekPlan struct {
	MustDo      []string `json:"must_do"`
	Backup      []string `json:"backup"`
	Experiments []string `json:"experiments"`
}

// WeeklyReport reviews the last seven days of episodes.
type WeeklyReport struct {
	Period          Period         `json:"period"`
	Summary         ReportSummary  `json:"summary"`
	Winners         []KeywordScore `json:"winners"`
	Losers          []KeywordScore `json:"losers"`
	NextWeekPlan    NextWeekPlan   `json:"next_week_plan"`
	Recommendations []string       `json:"recommendations"`
}

var defaultExperiments = []string{"new-angle", "new-thumbnail-style", "short-vs-long-title"}

// BuildWeeklyReport scores the measured episodes among eps (already limited to the window).
func BuildWeeklyReport(eps []store.Episode, from, to time.Time) WeeklyReport {
	var measured []store.Episode
	var ctrs, retention []float64
	for _, e := range eps {
		if !e.Metrics.Measured() {
			continue
		}
		measured = append(measured, e)
		if m := e.Metrics; m.CTR != nil && *m.CTR > 0 {
			ctrs = append(ctrs, *m.CTR)
		}
		if m := e.Metrics; m.Retention30s != nil && *m.Retention30s > 0 {
			retention = append(retention, *m.Retention30s)
		}
	}

	scores := ScoreKeywords(measured)
	winners, losers := top(scores, 3), bottom(scores, 3)
	backup := []KeywordScore{}
	if len(scores) > 3 {
		backup = scores[3:min(7, len(scores))]
	}

	recs := make([]string, 0, 3)
	if len(winners) > 0 {
		recs = append(recs, "加码关键词："+joinOr(keywords(winners), ""))
	} else {
		recs = append(recs, "本周有效样本不足，先补齐指标回填")
	}
	if len(losers) > 0 {
		recs = append(recs, "降权关键词："+joinOr(keywords(losers), ""))
	} else {
		recs = append(recs, "暂无明显降权关键词")
	}
	recs = append(recs, "下周执行结构：必做3条 + 备选4条 + 实验3条")

	return WeeklyReport{
		Period: Period{From: from, To: to},
		Summary: ReportSummary{
			CreatedEpisodes:  len(eps),
			MeasuredEpisodes: len(measured),
			AvgCTR:           engine.Round2(avg(ctrs)),
			AvgRetention30s:  engine.Round2(avg(retention)),
		},
		Winners: winners,
		Losers:  losers,
		NextWeekPlan: NextWeekPlan{
			MustDo:      keywords(winners),
			Backup:      keywords(backup),
			Experiments: append([]string(nil), defaultExperiments...),
		},
		Recommendations: recs,
	}
}

// WeeklyReport loads the episodes created in the last seven days and reports on them.
func (t *Tracker) WeeklyReport(ctx context.Context) (*WeeklyReport, error) {
	to := t.now().UTC()
	from := to.Add(-reportWindow)
	eps, err := t.Store.ListEpisodes(ctx, store.EpisodeFilter{Since: from, Limit: reportEpisodeLimit})
	if err != nil {
		return nil, err
	}
	r := BuildWeeklyReport(eps, from, to)
	return &r, nil
}
