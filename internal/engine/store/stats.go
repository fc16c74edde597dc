package store

import (
	"context"
	"fmt"
	"time"
)

// DayCount is the number of episodes created on one UTC day.
type DayCount struct {
	Date     string `json:"date"`
	Episodes int    `json:"episodes"`
}

// Stats summarises what the store holds.
type Stats struct {
	Episodes         int        `json:"episodes"`
	MeasuredEpisodes int        `json:"measured_episodes"`
	DiscoverRuns     int        `json:"discover_runs"`
	SimilarRuns      int        `json:"similar_runs"`
	MarkedChannels   int        `json:"marked_channels"`
	PriorityChannels int        `json:"priority_channels"`
	Trend            []DayCount `json:"trend"`
}

// Stats counts stored rows and builds a per-day episode trend over the last
// days days ending today. Days with no episodes are reported as zero.
func (s *Store) Stats(ctx context.Context, days int) (*Stats, error) {
	if days <= 0 || days > 90 {
		days = 7
	}
	var st Stats
	counts := []struct {
		dst   *int
		query string
	}{
		{&st.Episodes, `SELECT COUNT(*) FROM episodes`},
		{&st.MeasuredEpisodes, `SELECT COUNT(*) FROM episode_metrics
			WHERE ctr IS NOT NULL OR retention_30s IS NOT NULL OR views_7d IS NOT NULL`},
		{&st.DiscoverRuns, `SELECT COUNT(*) FROM discover_runs`},
		{&st.SimilarRuns, `SELECT COUNT(*) FROM similar_runs`},
		{&st.MarkedChannels, `SELECT COUNT(*) FROM channel_marks WHERE marked = 1`},
		{&st.PriorityChannels, `SELECT COUNT(*) FROM channel_marks WHERE marked = 1 AND priority = 1`},
	}
	for _, c := range counts {
		if err := s.queryRow(ctx, c.query).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("store: stats: %w", err)
		}
	}

	today := s.now().UTC().Truncate(24 * time.Hour)
	start := today.AddDate(0, 0, -(days - 1))
	rows, err := s.query(ctx,
		`SELECT substr(created_at, 1, 10) AS day, COUNT(*) FROM episodes
		 WHERE created_at >= ? GROUP BY substr(created_at, 1, 10)`, formatTime(start))
	if err != nil {
		return nil, fmt.Errorf("store: stats trend: %w", err)
	}
	defer rows.Close()
	byDay := make(map[string]int, days)
	for rows.Next() {
		var (
			day string
			n   int
		)
		if err := rows.Scan(&day, &n); err != nil {
			return nil, fmt.Errorf("store: scan stats trend: %w", err)
		}
		byDay[day] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	st.Trend = make([]DayCount, 0, days)
	for d := start; !d.After(today); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		st.Trend = append(st.Trend, DayCount{Date: key, Episodes: byDay[key]})
	}
	return &st, nil
}
