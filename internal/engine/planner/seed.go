package planner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/anatolykoptev/go_studio/internal/engine"
	"github.com/anatolykoptev/go_studio/internal/engine/script"
	"github.com/anatolykoptev/go_studio/internal/engine/store"
)

const (
	seedKeywordPool  = 18
	seedTitleSample  = 80
	seedFetchWorkers = 4
	sceneGeneral     = "general"
)

var seedStop = toSet("this", "that", "with", "from", "your", "have", "will", "what", "when", "where")

var seedNumbers = []int{5, 7, 10, 12, 15}

// seedBuckets assigns the first ten episodes to must-do, backup and experiment slots.
var seedBuckets = []string{"必做", "必做", "必做", "备选", "备选", "备选", "备选", "实验", "实验", "实验"}

const fallbackBucket = "备选"

type sceneRule struct {
	scene string
	keys  []string
}

var sceneRules = []sceneRule{
	{"balcony", []string{"balcony", "apartment", "small space", "pots", "container"}},
	{"backyard", []string{"backyard", "yard", "garden bed", "raised bed"}},
	{"indoor", []string{"indoor", "houseplant", "inside", "kitchen"}},
	{"off-grid", []string{"off grid", "cabin", "homestead", "wilderness"}},
	{"farm", []string{"farm", "livestock", "barn", "acre", "pasture"}},
}

// InferScene scores each filming scene by how many of its cue words appear in
// titles. The best scene wins ("general" when nothing matches); up to two other
// matching scenes are returned as alternatives.
func InferScene(titles []string) (string, []string) {
	joined := strings.ToLower(strings.Join(titles, " "))
	type scored struct {
		scene string
		score int
	}
	scores := make([]scored, len(sceneRules))
	for i, r := range sceneRules {
		scores[i].scene = r.scene
		for _, k := range r.keys {
			if strings.Contains(joined, k) {
				scores[i].score++
			}
		}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	top := sceneGeneral
	if scores[0].score > 0 {
		top = scores[0].scene
	}
	alts := []string{}
	for _, s := range scores {
		if s.score > 0 && s.scene != top && len(alts) < 2 {
			alts = append(alts, s.scene)
		}
	}
	return top, alts
}

// seedKeywords counts tokens of at least 3 letters.
func seedKeywords(titles []string, limit int) []string {
	c := newCounter()
	for _, t := range titles {
		for _, w := range words(t, 3, seedStop) {
			c.add(w)
		}
	}
	return c.top(limit)
}

// SeedRequest plans from seed channels instead of a discover run.
type SeedRequest struct {
	SeedText  string `json:"seed_text"`
	Count     int    `json:"count,omitempty"`
	Language  string `json:"language,omitempty"`
	Scene     string `json:"scene,omitempty"`
	AutoScene *bool  `json:"auto_scene,omitempty"` // nil = true
	AI        bool   `json:"ai,omitempty"`
}

// SeedResult is a generated seed-driven plan.
type SeedResult struct {
	Seeds             []string        `json:"seeds"`
	ChannelIDs        []string        `json:"channel_ids"`
	KeywordPool       []string        `json:"keyword_pool"`
	InferredScene     string          `json:"inferred_scene"`
	SceneAlternatives []string        `json:"scene_alternatives"`
	FinalScene        string          `json:"final_scene"`
	Episodes          []store.Episode `json:"episodes"`
}

// SeedPlan samples the seed channels' recent titles, infers the filming scene
// and stores count episodes split into 必做/备选/实验 buckets.
func (p *Planner) SeedPlan(ctx context.Context, req SeedRequest) (*SeedResult, error) {
	if p.Titles == nil {
		return nil, errors.New("planner has no title source")
	}
	seeds := script.ParseSeeds(req.SeedText)
	if len(seeds) == 0 {
		return nil, errors.New("at least one seed channel is required")
	}

	ids, err := p.resolveSeeds(ctx, seeds)
	if err != nil {
		return nil, err
	}
	titles, err := p.fetchTitles(ctx, ids)
	if err != nil {
		return nil, err
	}

	keywords := seedKeywords(titles, seedKeywordPool)
	scene, alts := InferScene(titles)
	final := scene
	if req.AutoScene != nil && !*req.AutoScene && strings.TrimSpace(req.Scene) != "" {
		final = strings.TrimSpace(req.Scene)
	}

	if req.AI {
		payload := map[string]any{"seeds": seeds, "titles": titles[:min(len(titles), seedTitleSample)]}
		kws, err := p.keywords()(ctx, "Extract practical content keywords for a YouTube weekly plan. Return JSON only.", payload, seedKeywordPool)
		if err == nil && len(kws) > 0 {
			keywords = uniqueCapped(kws, seedKeywordPool)
		}
	}
	if len(keywords) == 0 {
		keywords = []string{"beginner", "guide", "setup", "mistakes", "results"}
	}

	lang := req.Language
	if lang == "" {
		lang = "zh"
	}
	count := clamp(req.Count, defaultEpisodeCount, 3, 20)
	start := p.now()
	eps := make([]store.Episode, count)
	for i := range eps {
		k := keywords[i%len(keywords)]
		bucket := fallbackBucket
		if i < len(seedBuckets) {
			bucket = seedBuckets[i]
		}
		n := seedNumbers[i%len(seedNumbers)]
		planned := start.AddDate(0, 0, i)
		eps[i] = store.Episode{
			PlannedDate:   &planned,
			Topic:         fmt.Sprintf("%s - %s #%d", k, bucket, i+1),
			TargetKeyword: k,
			Bucket:        bucket,
			TitleOptions: []string{
				fmt.Sprintf("%d practical %s ideas you can apply this week", n, k),
				fmt.Sprintf("%s mistakes beginners make (and how to fix fast)", k),
				fmt.Sprintf("I tested %s for 7 days: what actually worked", k),
			},
			ThumbnailCopy:    fmt.Sprintf("%d %s tips", n, k),
			ScriptOutline:    fmt.Sprintf("Scene=%s; Language=%s; Hook->3 points->CTA", final, lang),
			ShotList:         "A-roll intro / process b-roll / before-after / close",
			VoiceoverOutline: "clear, practical, no hype",
			AssetsNeeded:     "thumbnail, subtitles, b-roll",
			Source:           "seed",
		}
	}
	created, err := p.Store.CreateEpisodes(ctx, eps)
	if err != nil {
		return nil, err
	}
	engine.IncrEpisodesPlanned(len(created))

	return &SeedResult{
		Seeds:             seeds,
		ChannelIDs:        ids,
		KeywordPool:       keywords,
		InferredScene:     scene,
		SceneAlternatives: alts,
		FinalScene:        final,
		Episodes:          created,
	}, nil
}

// resolveSeeds resolves every seed concurrently and dedupes the channel ids in seed order.
func (p *Planner) resolveSeeds(ctx context.Context, seeds []string) ([]string, error) {
	resolved := make([]string, len(seeds))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(seedFetchWorkers)
	for i, s := range seeds {
		g.Go(func() error {
			id, err := p.Titles.ResolveChannelID(gctx, s)
			if err != nil {
				return fmt.Errorf("resolve seed %q: %w", s, err)
			}
			resolved[i] = id
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(resolved))
	ids := make([]string, 0, len(resolved))
	for _, id := range resolved {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// fetchTitles reads every channel's recent titles concurrently, flattened in channel order.
func (p *Planner) fetchTitles(ctx context.Context, ids []string) ([]string, error) {
	groups := make([][]string, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(seedFetchWorkers)
	for i, id := range ids {
		g.Go(func() error {
			titles, err := p.Titles.RecentTitles(gctx, id)
			if err != nil {
				return fmt.Errorf("titles for %s: %w", id, err)
			}
			groups[i] = titles
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var titles []string
	for _, grp := range groups {
		titles = append(titles, grp...)
	}
	return titles, nil
}
