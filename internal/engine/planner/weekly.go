package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anatolykoptev/go_studio/internal/engine"
	"github.com/anatolykoptev/go_studio/internal/engine/script"
	"github.com/anatolykoptev/go_studio/internal/engine/store"
)

const (
	defaultEpisodeCount = 10
	defaultBriefCount   = 3
	maxPivotKeywords    = 15
	maxSimilarWords     = 12
	weeklyKeywordPool   = 20
	aiTitleSample       = 60
)

// Provider values of a weekly plan.
const (
	ProviderRules = "rules"
	ProviderAI    = "ai"
)

var planStop = toSet("this", "that", "with", "from", "your", "have", "will", "what", "when",
	"where", "about", "into", "over", "under", "after", "before")

var weeklyTitleTemplates = []string{
	"{n} practical ways to improve {k}",
	"Beginner guide: {k} step-by-step",
	"{k} mistakes that kill your results ({n} fixes)",
	"I tested {k} for {n} days: what worked",
	"Low-budget {k} setup that still performs",
}

var weeklyNumbers = []int{5, 7, 10, 14, 20}

// Store is the persistence the planner reads runs from and writes episodes to.
type Store interface {
	DiscoverRun(ctx context.Context, id string) (*store.DiscoverRun, error)
	SimilarRun(ctx context.Context, id string) (*store.SimilarRun, error)
	CreateEpisodes(ctx context.Context, eps []store.Episode) ([]store.Episode, error)
}

// KeywordFunc asks an LLM for a refined keyword list.
type KeywordFunc func(ctx context.Context, instruction string, payload any, n int) ([]string, error)

// Planner builds weekly and seed-driven episode plans.
type Planner struct {
	Store    Store
	Titles   script.TitleSource
	Keywords KeywordFunc      // nil = engine.ExtractKeywords
	Now      func() time.Time // nil = time.Now
}

// WeeklyRequest selects the discover run to plan from. Zero counts use the defaults.
type WeeklyRequest struct {
	RunID  string `json:"run_id,omitempty"`
	Count  int    `json:"count,omitempty"`
	Briefs int    `json:"briefs,omitempty"`
	AI     bool   `json:"ai,omitempty"`
}

// Brief is a short production brief for one planned episode.
type Brief struct {
	EpisodeID    string   `json:"episode_id"`
	Topic        string   `json:"topic"`
	TitleOptions []string `json:"title_options"`
	Hook         string   `json:"hook"`
	Body         []string `json:"body"`
	CTA          string   `json:"cta"`
}

// WeeklyResult is a generated weekly plan.
type WeeklyResult struct {
	RunID    string          `json:"run_id"`
	Query    string          `json:"query"`
	Provider string          `json:"provider"`
	Keywords []string        `json:"keywords"`
	Episodes []store.Episode `json:"episodes"`
	Briefs   []Brief         `json:"briefs"`
}

func clamp(v, def, lo, hi int) int {
	if v == 0 {
		v = def
	}
	return max(lo, min(v, hi))
}

func (p *Planner) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Planner) keywords() KeywordFunc {
	if p.Keywords != nil {
		return p.Keywords
	}
	return engine.ExtractKeywords
}

// TopKeywords returns the most frequent title tokens of at least 4 letters.
func TopKeywords(titles []string, limit int) []string {
	c := newCounter()
	for _, t := range titles {
		for _, w := range words(t, 4, planStop) {
			c.add(w)
		}
	}
	return c.top(limit)
}

// WeeklyPlan derives a keyword pivot from a discover run (and the latest
// similarity run), optionally refines it with the LLM and stores count episodes.
func (p *Planner) WeeklyPlan(ctx context.Context, req WeeklyRequest) (*WeeklyResult, error) {
	count := clamp(req.Count, defaultEpisodeCount, 3, 20)
	briefs := clamp(req.Briefs, defaultBriefCount, 1, 10)

	run, err := p.Store.DiscoverRun(ctx, req.RunID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errors.New("no discover run found, run youtube_discover first")
	}
	if err != nil {
		return nil, err
	}

	var titles []string
	for _, c := range run.Candidates {
		titles = append(titles, c.SampleTitles...)
	}
	var similarWords []string
	if sim, err := p.Store.SimilarRun(ctx, ""); err == nil {
		for _, it := range sim.Items {
			similarWords = append(similarWords, it.MatchedTerms...)
		}
		similarWords = similarWords[:min(len(similarWords), maxSimilarWords)]
	} else if !errors.Is(err, store.ErrNotFound) {
		slog.Warn("planner: similar run unavailable", slog.Any("error", err))
	}

	pivot := uniqueCapped(append(TopKeywords(titles, weeklyKeywordPool), similarWords...), maxPivotKeywords)
	if len(pivot) == 0 {
		pivot = []string{run.Query, "beginner", "guide", "mistakes", "budget"}
	}

	provider := ProviderRules
	if req.AI {
		payload := map[string]any{
			"query":        run.Query,
			"titles":       titles[:min(len(titles), aiTitleSample)],
			"similarWords": similarWords,
		}
		kws, err := p.keywords()(ctx, "You are a YouTube planner. Return JSON only. Extract 12 practical keywords for next-week content tests.", payload, maxPivotKeywords)
		switch {
		case err != nil:
			slog.Warn("planner: keyword refinement failed, using rule keywords", slog.Any("error", err))
		case len(kws) > 0:
			pivot = uniqueCapped(kws, maxPivotKeywords)
			provider = ProviderAI
		}
	}

	start := p.now()
	eps := make([]store.Episode, count)
	for i := range eps {
		k := pivot[i%len(pivot)]
		n := weeklyNumbers[i%len(weeklyNumbers)]
		planned := start.AddDate(0, 0, i)
		eps[i] = store.Episode{
			PlannedDate:      &planned,
			Topic:            fmt.Sprintf("%s weekly plan #%d", k, i+1),
			TargetKeyword:    k,
			TitleOptions:     fillTemplates(weeklyTitleTemplates, k, n),
			ThumbnailCopy:    fmt.Sprintf("%d %s fixes", n, k),
			ScriptOutline:    "Hook -> context -> 3 practical actions -> mini-proof -> CTA",
			ShotList:         "Intro face-cam, 3 proof shots, before/after compare, recap",
			VoiceoverOutline: "energetic, clear, no fluff",
			AssetsNeeded:     "thumbnail variants, b-roll set A/B, subtitles",
			Source:           "weekly",
		}
	}
	created, err := p.Store.CreateEpisodes(ctx, eps)
	if err != nil {
		return nil, err
	}
	engine.IncrEpisodesPlanned(len(created))

	return &WeeklyResult{
		RunID:    run.ID,
		Query:    run.Query,
		Provider: provider,
		Keywords: pivot,
		Episodes: created,
		Briefs:   buildBriefs(created, briefs),
	}, nil
}

func buildBriefs(eps []store.Episode, n int) []Brief {
	out := make([]Brief, 0, min(n, len(eps)))
	for _, e := range eps[:min(n, len(eps))] {
		out = append(out, Brief{
			EpisodeID:    e.ID,
			Topic:        e.Topic,
			TitleOptions: e.TitleOptions[:min(3, len(e.TitleOptions))],
			Hook:         fmt.Sprintf("In 30 seconds: why %s matters now", e.Topic),
			Body:         []string{"Step 1: setup", "Step 2: execution", "Step 3: avoid common pitfall"},
			CTA:          "Comment your biggest blocker for next episode",
		})
	}
	return out
}

func fillTemplates(templates []string, keyword string, n int) []string {
	r := strings.NewReplacer("{k}", keyword, "{n}", fmt.Sprint(n))
	out := make([]string, len(templates))
	for i, t := range templates {
		out[i] = r.Replace(t)
	}
	return out
}

// uniqueCapped lowercases, trims and dedupes ws, keeping at most limit.
func uniqueCapped(ws []string, limit int) []string {
	seen := make(map[string]bool, len(ws))
	out := []string{}
	for _, w := range ws {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
		if len(out) == limit {
			break
		}
	}
	return out
}
