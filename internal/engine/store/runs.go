package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/anatolykoptev/go_studio/internal/engine/discovery"
	"github.com/anatolykoptev/go_studio/internal/engine/similar"
)

// DiscoverRun is a persisted discovery run.
type DiscoverRun struct {
	ID             string                       `json:"id"`
	Query          string                       `json:"query"`
	Region         string                       `json:"region"`
	Language       string                       `json:"language"`
	Days           int                          `json:"days"`
	Niche          string                       `json:"niche,omitempty"`
	Weights        discovery.WeightVector       `json:"weights"`
	Bounds         discovery.Bounds             `json:"bounds"`
	FetchedVideos  int                          `json:"fetched_videos"`
	FilteredVideos int                          `json:"filtered_videos"`
	CandidateCount int                          `json:"candidate_count"`
	CreatedAt      time.Time                    `json:"created_at"`
	Candidates     []discovery.ChannelCandidate `json:"candidates,omitempty"`
}

// SimilarRun is a persisted similarity run.
type SimilarRun struct {
	ID        string    `json:"id"`
	ItemCount int       `json:"item_count"`
	CreatedAt time.Time `json:"created_at"`
	similar.Result
}

// CandidateScore is one discover candidate score with the query of its run.
type CandidateScore struct {
	Query     string    `json:"query"`
	Score     float64   `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// SaveDiscoverRun stores the normalized input and ranked channels of one discovery run.
func (s *Store) SaveDiscoverRun(ctx context.Context, in discovery.Input, niche string, res *discovery.Result) (*DiscoverRun, error) {
	weights, err := json.Marshal(in.Weights.OrDefault())
	if err != nil {
		return nil, fmt.Errorf("store: marshal weights: %w", err)
	}
	bounds, err := json.Marshal(in.Bounds)
	if err != nil {
		return nil, fmt.Errorf("store: marshal bounds: %w", err)
	}
	run := &DiscoverRun{
		ID:             newID(),
		Query:          in.Query,
		Region:         in.Region,
		Language:       in.Language,
		Days:           in.Days,
		Niche:          niche,
		Weights:        in.Weights.OrDefault(),
		Bounds:         in.Bounds,
		FetchedVideos:  res.FetchedVideos,
		FilteredVideos: res.FilteredVideos,
		CandidateCount: len(res.Channels),
		CreatedAt:      s.now().UTC(),
		Candidates:     res.Channels,
	}

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.exec(ctx, tx,
			`INSERT INTO discover_runs (id, query, region, language, days, niche, weights, bounds, fetched_videos, filtered_videos, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, run.Query, run.Region, run.Language, run.Days, run.Niche,
			string(weights), string(bounds), run.FetchedVideos, run.FilteredVideos, formatTime(run.CreatedAt),
		); err != nil {
			return err
		}
		for i, c := range res.Channels {
			payload, err := json.Marshal(c)
			if err != nil {
				return err
			}
			if err := s.exec(ctx, tx,
				`INSERT INTO discover_candidates (id, run_id, position, channel_id, score, payload) VALUES (?, ?, ?, ?, ?, ?)`,
				newID(), run.ID, i, c.ChannelID, c.Score, string(payload),
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: save discover run: %w", err)
	}
	return run, nil
}

const discoverRunCols = `r.id, r.query, r.region, r.language, r.days, r.niche, r.weights, r.bounds,
	r.fetched_videos, r.filtered_videos, r.created_at,
	(SELECT COUNT(*) FROM discover_candidates c WHERE c.run_id = r.id)`

func scanDiscoverRun(sc interface{ Scan(...any) error }) (*DiscoverRun, error) {
	var (
		run             DiscoverRun
		weights, bounds string
		created         string
	)
	if err := sc.Scan(&run.ID, &run.Query, &run.Region, &run.Language, &run.Days, &run.Niche,
		&weights, &bounds, &run.FetchedVideos, &run.FilteredVideos, &created, &run.CandidateCount); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(weights), &run.Weights); err != nil {
		return nil, fmt.Errorf("decode weights: %w", err)
	}
	if err := json.Unmarshal([]byte(bounds), &run.Bounds); err != nil {
		return nil, fmt.Errorf("decode bounds: %w", err)
	}
	run.CreatedAt = parseTime(created)
	return &run, nil
}

// ListDiscoverRuns returns one page of runs, newest first, without candidates.
func (s *Store) ListDiscoverRuns(ctx context.Context, page Page) ([]DiscoverRun, Page, error) {
	var total int
	if err := s.queryRow(ctx, `SELECT COUNT(*) FROM discover_runs`).Scan(&total); err != nil {
		return nil, page, fmt.Errorf("store: count discover runs: %w", err)
	}
	page.setTotal(total)

	rows, err := s.query(ctx,
		`SELECT `+discoverRunCols+` FROM discover_runs r ORDER BY r.created_at DESC LIMIT ? OFFSET ?`,
		page.PageSize, page.offset())
	if err != nil {
		return nil, page, fmt.Errorf("store: list discover runs: %w", err)
	}
	defer rows.Close()

	runs := []DiscoverRun{}
	for rows.Next() {
		run, err := scanDiscoverRun(rows)
		if err != nil {
			return nil, page, fmt.Errorf("store: scan discover run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, page, rows.Err()
}

// DiscoverRun loads a run with its candidates ordered by score. An empty id
// selects the newest run.
func (s *Store) DiscoverRun(ctx context.Context, id string) (*DiscoverRun, error) {
	var row *sql.Row
	if id == "" {
		row = s.queryRow(ctx, `SELECT `+discoverRunCols+` FROM discover_runs r ORDER BY r.created_at DESC LIMIT 1`)
	} else {
		row = s.queryRow(ctx, `SELECT `+discoverRunCols+` FROM discover_runs r WHERE r.id = ?`, id)
	}
	run, err := scanDiscoverRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("discover run %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: load discover run: %w", err)
	}

	rows, err := s.query(ctx,
		`SELECT payload FROM discover_candidates WHERE run_id = ? ORDER BY score DESC, position ASC LIMIT 50`, run.ID)
	if err != nil {
		return nil, fmt.Errorf("store: load candidates: %w", err)
	}
	defer rows.Close()
	run.Candidates = []discovery.ChannelCandidate{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("store: scan candidate: %w", err)
		}
		var c discovery.ChannelCandidate
		if err := json.Unmarshal([]byte(payload), &c); err != nil {
			return nil, fmt.Errorf("store: decode candidate: %w", err)
		}
		run.Candidates = append(run.Candidates, c)
	}
	return run, rows.Err()
}

// CandidateScoresSince returns candidate scores of runs created at or after since.
func (s *Store) CandidateScoresSince(ctx context.Context, since time.Time, limit int) ([]CandidateScore, error) {
	rows, err := s.query(ctx,
		`SELECT r.query, c.score, r.created_at FROM discover_candidates c
		 JOIN discover_runs r ON r.id = c.run_id
		 WHERE r.created_at >= ? ORDER BY r.created_at DESC, c.position ASC LIMIT ?`,
		formatTime(since), limit)
	if err != nil {
		return nil, fmt.Errorf("store: candidate scores: %w", err)
	}
	defer rows.Close()
	var out []CandidateScore
	for rows.Next() {
		var cs CandidateScore
		var created string
		if err := rows.Scan(&cs.Query, &cs.Score, &created); err != nil {
			return nil, fmt.Errorf("store: scan candidate score: %w", err)
		}
		cs.CreatedAt = parseTime(created)
		out = append(out, cs)
	}
	return out, rows.Err()
}

// SaveSimilarRun stores one similarity run with its ranked items.
func (s *Store) SaveSimilarRun(ctx context.Context, res *similar.Result) (*SimilarRun, error) {
	terms, err := json.Marshal(nonNilStrings(res.SeedTerms))
	if err != nil {
		return nil, fmt.Errorf("store: marshal seed terms: %w", err)
	}
	run := &SimilarRun{ID: newID(), ItemCount: len(res.Items), CreatedAt: s.now().UTC(), Result: *res}

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.exec(ctx, tx,
			`INSERT INTO similar_runs (id, seed_input, seed_channel_id, query, seed_terms, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			run.ID, res.SeedInput, res.SeedChannelID, res.Query, string(terms), formatTime(run.CreatedAt),
		); err != nil {
			return err
		}
		for i, m := range res.Items {
			payload, err := json.Marshal(m)
			if err != nil {
				return err
			}
			if err := s.exec(ctx, tx,
				`INSERT INTO similar_items (id, run_id, position, channel_id, similarity, payload) VALUES (?, ?, ?, ?, ?, ?)`,
				newID(), run.ID, i, m.ChannelID, m.Similarity, string(payload),
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: save similar run: %w", err)
	}
	return run, nil
}

const similarRunCols = `r.id, r.seed_input, r.seed_channel_id, r.query, r.seed_terms, r.created_at,
	(SELECT COUNT(*) FROM similar_items i WHERE i.run_id = r.id)`

func scanSimilarRun(sc interface{ Scan(...any) error }) (*SimilarRun, error) {
	var (
		run     SimilarRun
		terms   string
		created string
	)
	if err := sc.Scan(&run.ID, &run.SeedInput, &run.SeedChannelID, &run.Query, &terms, &created, &run.ItemCount); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(terms), &run.SeedTerms); err != nil {
		return nil, fmt.Errorf("decode seed terms: %w", err)
	}
	run.CreatedAt = parseTime(created)
	return &run, nil
}

// ListSimilarRuns returns one page of similarity runs, newest first, without items.
func (s *Store) ListSimilarRuns(ctx context.Context, page Page) ([]SimilarRun, Page, error) {
	var total int
	if err := s.queryRow(ctx, `SELECT COUNT(*) FROM similar_runs`).Scan(&total); err != nil {
		return nil, page, fmt.Errorf("store: count similar runs: %w", err)
	}
	page.setTotal(total)

	rows, err := s.query(ctx,
		`SELECT `+similarRunCols+` FROM similar_runs r ORDER BY r.created_at DESC LIMIT ? OFFSET ?`,
		page.PageSize, page.offset())
	if err != nil {
		return nil, page, fmt.Errorf("store: list similar runs: %w", err)
	}
	defer rows.Close()

	runs := []SimilarRun{}
	for rows.Next() {
		run, err := scanSimilarRun(rows)
		if err != nil {
			return nil, page, fmt.Errorf("store: scan similar run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, page, rows.Err()
}

// SimilarRun loads a run with up to 30 items ordered by similarity. An empty id
// selects the newest run.
func (s *Store) SimilarRun(ctx context.Context, id string) (*SimilarRun, error) {
	var row *sql.Row
	if id == "" {
		row = s.queryRow(ctx, `SELECT `+similarRunCols+` FROM similar_runs r ORDER BY r.created_at DESC LIMIT 1`)
	} else {
		row = s.queryRow(ctx, `SELECT `+similarRunCols+` FROM similar_runs r WHERE r.id = ?`, id)
	}
	run, err := scanSimilarRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("similar run %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: load similar run: %w", err)
	}

	rows, err := s.query(ctx,
		`SELECT payload FROM similar_items WHERE run_id = ? ORDER BY similarity DESC, position ASC LIMIT 30`, run.ID)
	if err != nil {
		return nil, fmt.Errorf("store: load similar items: %w", err)
	}
	defer rows.Close()
	run.Items = []similar.Match{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("store: scan similar item: %w", err)
		}
		var m similar.Match
		if err := json.Unmarshal([]byte(payload), &m); err != nil {
			return nil, fmt.Errorf("store: decode similar item: %w", err)
		}
		run.Items = append(run.Items, m)
	}
	return run, rows.Err()
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
