package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anatolykoptev/go_studio/internal/engine/discovery"
	"github.com/anatolykoptev/go_studio/internal/engine/niche"
)

const nicheCols = `slug, name, primary_query, keyword_set, min_duration_sec, window_days, max_results,
	view_sum_weight, median_view_weight, upload_weight, risk_words`

func scanPreset(sc interface{ Scan(...any) error }) (*niche.Preset, error) {
	var (
		p               niche.Preset
		keywords, risks string
	)
	if err := sc.Scan(&p.Slug, &p.Name, &p.PrimaryQuery, &keywords, &p.MinDurationSec, &p.WindowDays, &p.MaxResults,
		&p.Weights.ViewSum, &p.Weights.MedianView, &p.Weights.Upload, &risks); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(keywords), &p.KeywordSet); err != nil {
		p.KeywordSet = []string{}
	}
	if err := json.Unmarshal([]byte(risks), &p.RiskWords); err != nil {
		p.RiskWords = []string{}
	}
	return &p, nil
}

// ActiveNichePresets returns the active stored presets in creation order.
func (s *Store) ActiveNichePresets(ctx context.Context) ([]niche.Preset, error) {
	rows, err := s.query(ctx, `SELECT `+nicheCols+` FROM niche_presets WHERE active = 1 ORDER BY created_at ASC, slug ASC`)
	if err != nil {
		return nil, fmt.Errorf("store: list niche presets: %w", err)
	}
	defer rows.Close()
	var out []niche.Preset
	for rows.Next() {
		p, err := scanPreset(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan niche preset: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// NichePreset returns the stored preset for slug, active or not, or nil when absent.
func (s *Store) NichePreset(ctx context.Context, slug string) (*niche.Preset, error) {
	p, err := scanPreset(s.queryRow(ctx, `SELECT `+nicheCols+` FROM niche_presets WHERE slug = ?`, slug))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: load niche preset: %w", err)
	}
	return p, nil
}

// SaveNichePreset creates or replaces a preset.
func (s *Store) SaveNichePreset(ctx context.Context, p niche.Preset, active bool) error {
	if p.Slug == "" {
		return errors.New("slug is required")
	}
	w := p.Weights
	if w.IsZero() {
		w = discovery.DefaultWeights
	}
	keywords, _ := json.Marshal(nonNilStrings(p.KeywordSet))
	risks, _ := json.Marshal(nonNilStrings(p.RiskWords))
	err := s.exec(ctx, s.db,
		`INSERT INTO niche_presets (`+nicheCols+`, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (slug) DO UPDATE SET
		   name = excluded.name, primary_query = excluded.primary_query, keyword_set = excluded.keyword_set,
		   min_duration_sec = excluded.min_duration_sec, window_days = excluded.window_days,
		   max_results = excluded.max_results, view_sum_weight = excluded.view_sum_weight,
		   median_view_weight = excluded.median_view_weight, upload_weight = excluded.upload_weight,
		   risk_words = excluded.risk_words, active = excluded.active`,
		p.Slug, p.Name, p.PrimaryQuery, string(keywords), p.MinDurationSec, p.WindowDays, p.MaxResults,
		w.ViewSum, w.MedianView, w.Upload, string(risks), boolInt(active), formatTime(s.now()),
	)
	if err != nil {
		return fmt.Errorf("store: save niche preset: %w", err)
	}
	return nil
}
