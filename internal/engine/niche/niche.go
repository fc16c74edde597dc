// Package niche holds the discovery presets for the supported content niches.
package niche

import (
	"context"
	"log/slog"
	"strings"

	"github.com/anatolykoptev/go_studio/internal/engine/discovery"
)

// Preset is a named bundle of discovery defaults for one niche.
type Preset struct {
	Slug           string                 `json:"slug"`
	Name           string                 `json:"name"`
	PrimaryQuery   string                 `json:"primary_query"`
	KeywordSet     []string               `json:"keyword_set"`
	MinDurationSec int                    `json:"min_duration_sec"`
	WindowDays     int                    `json:"window_days"`
	MaxResults     int                    `json:"max_results"`
	Weights        discovery.WeightVector `json:"weights"`
	RiskWords      []string               `json:"risk_words"`
}

var defaults = []Preset{
	{
		Slug:           "homestead",
		Name:           "Homestead / Off-grid",
		PrimaryQuery:   "homestead",
		KeywordSet:     []string{"homestead", "off grid", "self sufficient", "backyard farming"},
		MinDurationSec: 240,
		WindowDays:     7,
		MaxResults:     50,
		Weights:        discovery.WeightVector{ViewSum: 0.45, MedianView: 0.30, Upload: 0.25},
		RiskWords:      []string{"instantly", "miracle cure", "FDA banned"},
	},
	{
		Slug:           "ai-tools",
		Name:           "AI Tools",
		PrimaryQuery:   "ai tools",
		KeywordSet:     []string{"ai tools", "chatgpt tutorial", "automation", "no code ai"},
		MinDurationSec: 120,
		WindowDays:     7,
		MaxResults:     50,
		Weights:        discovery.WeightVector{ViewSum: 0.50, MedianView: 0.25, Upload: 0.25},
		RiskWords:      []string{"make money fast", "guaranteed income"},
	},
	{
		Slug:           "fitness",
		Name:           "Fitness",
		PrimaryQuery:   "fitness",
		KeywordSet:     []string{"fitness", "workout", "fat loss", "muscle gain"},
		MinDurationSec: 60,
		WindowDays:     14,
		MaxResults:     50,
		Weights:        discovery.WeightVector{ViewSum: 0.40, MedianView: 0.35, Upload: 0.25},
		RiskWords:      []string{"lose 10kg in 3 days", "instant body transformation"},
	},
}

// Defaults returns a copy of the built-in presets.
func Defaults() []Preset {
	out := make([]Preset, len(defaults))
	for i, p := range defaults {
		p.KeywordSet = append([]string(nil), p.KeywordSet...)
		p.RiskWords = append([]string(nil), p.RiskWords...)
		out[i] = p
	}
	return out
}

// Default returns the built-in preset for slug.
func Default(slug string) (Preset, bool) {
	for _, p := range Defaults() {
		if p.Slug == slug {
			return p, true
		}
	}
	return Preset{}, false
}

// Store is the persistence side of the registry.
type Store interface {
	ActiveNichePresets(ctx context.Context) ([]Preset, error)
	NichePreset(ctx context.Context, slug string) (*Preset, error) // nil, nil = not stored
}

// Registry resolves presets from the store first, then the built-ins.
// A nil Store serves the built-ins only.
type Registry struct {
	Store Store
}

// List returns the active stored presets, or the built-ins when none are stored.
func (r *Registry) List(ctx context.Context) ([]Preset, error) {
	if r == nil || r.Store == nil {
		return Defaults(), nil
	}
	stored, err := r.Store.ActiveNichePresets(ctx)
	if err != nil {
		return nil, err
	}
	if len(stored) == 0 {
		return Defaults(), nil
	}
	return stored, nil
}

// Get returns the preset for slug. An empty slug or unknown niche yields false.
func (r *Registry) Get(ctx context.Context, slug string) (Preset, bool) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return Preset{}, false
	}
	if r != nil && r.Store != nil {
		p, err := r.Store.NichePreset(ctx, slug)
		if err != nil {
			slog.Warn("niche: store lookup failed, using built-ins", slog.String("slug", slug), slog.Any("error", err))
		} else if p != nil {
			return *p, true
		}
	}
	return Default(slug)
}

// ApplyDiscover fills the discovery fields the caller left unset from p.
func ApplyDiscover(in *discovery.Input, p Preset) {
	if strings.TrimSpace(in.Query) == "" {
		in.Query = p.PrimaryQuery
	}
	if in.Days <= 0 {
		in.Days = p.WindowDays
	}
	if in.MinDurationSec == 0 {
		in.MinDurationSec = p.MinDurationSec
	}
	if in.MaxResults <= 0 {
		in.MaxResults = p.MaxResults
	}
	if in.Weights.IsZero() {
		in.Weights = p.Weights
	}
}
