package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Episode is a planned video with its optional metrics.
type Episode struct {
	ID               string          `json:"id"`
	PlannedDate      *time.Time      `json:"planned_date,omitempty"`
	Topic            string          `json:"topic"`
	TargetKeyword    string          `json:"target_keyword"`
	Bucket           string          `json:"bucket,omitempty"`
	TitleOptions     []string        `json:"title_options"`
	ThumbnailCopy    string          `json:"thumbnail_copy"`
	ScriptOutline    string          `json:"script_outline"`
	ShotList         string          `json:"shot_list"`
	VoiceoverOutline string          `json:"voiceover_outline"`
	AssetsNeeded     string          `json:"assets_needed"`
	Source           string          `json:"source,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	Metrics          *EpisodeMetrics `json:"metrics,omitempty"`
}

// EpisodeMetrics is the measured performance of one episode. Nil numbers are unmeasured.
type EpisodeMetrics struct {
	EpisodeID        string    `json:"episode_id"`
	CTR              *float64  `json:"ctr,omitempty"`
	Retention30s     *float64  `json:"retention_30s,omitempty"`
	AvgWatchTimeSec  *float64  `json:"avg_watch_time_sec,omitempty"`
	Views7d          *int64    `json:"views_7d,omitempty"`
	CommentsSummary  string    `json:"comments_summary,omitempty"`
	WinOrFail        string    `json:"win_or_fail,omitempty"`
	OptimizationNote string    `json:"optimization_note,omitempty"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Measured reports whether any numeric metric is set.
func (m *EpisodeMetrics) Measured() bool {
	return m != nil && (m.CTR != nil || m.Retention30s != nil || m.Views7d != nil)
}

// CreateEpisodes inserts eps in one transaction, assigning ids and creation times.
func (s *Store) CreateEpisodes(ctx context.Context, eps []Episode) ([]Episode, error) {
	now := s.now().UTC()
	out := make([]Episode, len(eps))
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for i, ep := range eps {
			ep.ID = newID()
			ep.CreatedAt = now
			if ep.TitleOptions == nil {
				ep.TitleOptions = []string{}
			}
			titles, err := json.Marshal(ep.TitleOptions)
			if err != nil {
				return err
			}
			var planned sql.NullString
			if ep.PlannedDate != nil {
				planned = sql.NullString{String: formatTime(*ep.PlannedDate), Valid: true}
			}
			if err := s.exec(ctx, tx,
				`INSERT INTO episodes (id, planned_date, topic, target_keyword, bucket, title_options, thumbnail_copy,
				 script_outline, shot_list, voiceover_outline, assets_needed, source, created_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				ep.ID, planned, ep.Topic, ep.TargetKeyword, ep.Bucket, string(titles), ep.ThumbnailCopy,
				ep.ScriptOutline, ep.ShotList, ep.VoiceoverOutline, ep.AssetsNeeded, ep.Source, formatTime(now),
			); err != nil {
				return err
			}
			out[i] = ep
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: create episodes: %w", err)
	}
	return out, nil
}

// EpisodeFilter narrows ListEpisodes. Zero values mean no filter; Limit
// defaults to 50 and is capped at 500.
type EpisodeFilter struct {
	Since time.Time
	Limit int
}

// ListEpisodes returns episodes with their metrics, newest first.
func (s *Store) ListEpisodes(ctx context.Context, f EpisodeFilter) ([]Episode, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	limit = min(limit, 500)

	q := `SELECT e.id, e.planned_date, e.topic, e.target_keyword, e.bucket, e.title_options, e.thumbnail_copy,
		e.script_outline, e.shot_list, e.voiceover_outline, e.assets_needed, e.source, e.created_at,
		m.episode_id, m.ctr, m.retention_30s, m.avg_watch_time_sec, m.views_7d,
		m.comments_summary, m.win_or_fail, m.optimization_note, m.updated_at
		FROM episodes e LEFT JOIN episode_metrics m ON m.episode_id = e.id`
	var args []any
	if !f.Since.IsZero() {
		q += ` WHERE e.created_at >= ?`
		args = append(args, formatTime(f.Since))
	}
	q += ` ORDER BY e.created_at DESC, e.id ASC LIMIT ?`
	args = append(args, limit)

	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list episodes: %w", err)
	}
	defer rows.Close()

	eps := []Episode{}
	for rows.Next() {
		var (
			ep                      Episode
			planned, metricsID      sql.NullString
			titles, created         string
			ctr, retention, watch   sql.NullFloat64
			views                   sql.NullInt64
			comments, winFail, note sql.NullString
			updated                 sql.NullString
		)
		if err := rows.Scan(&ep.ID, &planned, &ep.Topic, &ep.TargetKeyword, &ep.Bucket, &titles, &ep.ThumbnailCopy,
			&ep.ScriptOutline, &ep.ShotList, &ep.VoiceoverOutline, &ep.AssetsNeeded, &ep.Source, &created,
			&metricsID, &ctr, &retention, &watch, &views, &comments, &winFail, &note, &updated); err != nil {
			return nil, fmt.Errorf("store: scan episode: %w", err)
		}
		if err := json.Unmarshal([]byte(titles), &ep.TitleOptions); err != nil {
			return nil, fmt.Errorf("store: decode title options: %w", err)
		}
		if planned.Valid {
			t := parseTime(planned.String)
			ep.PlannedDate = &t
		}
		ep.CreatedAt = parseTime(created)
		if metricsID.Valid {
			ep.Metrics = &EpisodeMetrics{
				EpisodeID:        metricsID.String,
				CTR:              nullFloat(ctr),
				Retention30s:     nullFloat(retention),
				AvgWatchTimeSec:  nullFloat(watch),
				Views7d:          nullInt(views),
				CommentsSummary:  comments.String,
				WinOrFail:        winFail.String,
				OptimizationNote: note.String,
				UpdatedAt:        parseTime(updated.String),
			}
		}
		eps = append(eps, ep)
	}
	return eps, rows.Err()
}

// UpsertMetrics creates or updates the metrics of an episode. Unset fields
// keep their stored values.
func (s *Store) UpsertMetrics(ctx context.Context, m EpisodeMetrics) (*EpisodeMetrics, error) {
	m.EpisodeID = strings.TrimSpace(m.EpisodeID)
	if m.EpisodeID == "" {
		return nil, errors.New("episode_id is required")
	}
	var exists int
	err := s.queryRow(ctx, `SELECT COUNT(*) FROM episodes WHERE id = ?`, m.EpisodeID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("store: lookup episode: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("episode %q: %w", m.EpisodeID, ErrNotFound)
	}

	m.UpdatedAt = s.now().UTC()
	err = s.exec(ctx, s.db,
		`INSERT INTO episode_metrics (episode_id, ctr, retention_30s, avg_watch_time_sec, views_7d,
		 comments_summary, win_or_fail, optimization_note, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (episode_id) DO UPDATE SET
		   ctr = COALESCE(excluded.ctr, episode_metrics.ctr),
		   retention_30s = COALESCE(excluded.retention_30s, episode_metrics.retention_30s),
		   avg_watch_time_sec = COALESCE(excluded.avg_watch_time_sec, episode_metrics.avg_watch_time_sec),
		   views_7d = COALESCE(excluded.views_7d, episode_metrics.views_7d),
		   comments_summary = COALESCE(excluded.comments_summary, episode_metrics.comments_summary),
		   win_or_fail = COALESCE(excluded.win_or_fail, episode_metrics.win_or_fail),
		   optimization_note = COALESCE(excluded.optimization_note, episode_metrics.optimization_note),
		   updated_at = excluded.updated_at`,
		m.EpisodeID, m.CTR, m.Retention30s, m.AvgWatchTimeSec, m.Views7d,
		emptyNull(m.CommentsSummary), emptyNull(m.WinOrFail), emptyNull(m.OptimizationNote), formatTime(m.UpdatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("store: upsert metrics: %w", err)
	}
	return s.metrics(ctx, m.EpisodeID)
}

func (s *Store) metrics(ctx context.Context, episodeID string) (*EpisodeMetrics, error) {
	var (
		m                       EpisodeMetrics
		ctr, retention, watch   sql.NullFloat64
		views                   sql.NullInt64
		comments, winFail, note sql.NullString
		updated                 string
	)
	err := s.queryRow(ctx,
		`SELECT episode_id, ctr, retention_30s, avg_watch_time_sec, views_7d, comments_summary, win_or_fail,
		 optimization_note, updated_at FROM episode_metrics WHERE episode_id = ?`, episodeID,
	).Scan(&m.EpisodeID, &ctr, &retention, &watch, &views, &comments, &winFail, &note, &updated)
	if err != nil {
		return nil, fmt.Errorf("store: load metrics: %w", err)
	}
	m.CTR = nullFloat(ctr)
	m.Retention30s = nullFloat(retention)
	m.AvgWatchTimeSec = nullFloat(watch)
	m.Views7d = nullInt(views)
	m.CommentsSummary = comments.String
	m.WinOrFail = winFail.String
	m.OptimizationNote = note.String
	m.UpdatedAt = parseTime(updated)
	return &m, nil
}

// DeleteEpisode removes an episode and its metrics.
func (s *Store) DeleteEpisode(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.exec(ctx, tx, `DELETE FROM episode_metrics WHERE episode_id = ?`, id); err != nil {
			return fmt.Errorf("store: delete metrics: %w", err)
		}
		res, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM episodes WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("store: delete episode: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("episode %q: %w", id, ErrNotFound)
		}
		return nil
	})
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func emptyNull(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
