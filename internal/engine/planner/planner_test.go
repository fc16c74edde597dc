package planner

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_studio/internal/engine/discovery"
	"github.com/anatolykoptev/go_studio/internal/engine/similar"
	"github.com/anatolykoptev/go_studio/internal/engine/store"
)

var fixedNow = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "planner.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

type fakeTitles map[string][]string

func (f fakeTitles) ResolveChannelID(_ context.Context, input string) (string, error) {
	if strings.HasPrefix(input, "@") {
		return "UC" + strings.TrimPrefix(input, "@"), nil
	}
	if strings.HasPrefix(input, "UC") {
		return input, nil
	}
	return "", errors.New("unresolvable seed")
}

func (f fakeTitles) RecentTitles(_ context.Context, id string) ([]string, error) {
	return f[id], nil
}

func TestNormalizePattern(t *testing.T) {
	assert.Equal(t, "{n} ways to grow more food", NormalizePattern("10 Ways to Grow “More” Food!"))
	assert.Equal(t, "{n} ways to grow more food", NormalizePattern("10 Ways to Grow \"More\" Food!"))
	assert.Equal(t, "day {n} of {n}", NormalizePattern("Day 3 of 30"))
}

func TestAnalyzeTitles(t *testing.T) {
	titles := []string{
		"5 Garden Hacks That Work",
		"7 Garden Hacks That Work",
		"Shocking compost secret",
		"Building raised garden beds",
	}
	a := AnalyzeTitles(titles, "Raised Garden")
	assert.Equal(t, 4, a.TotalTitles)
	require.NotEmpty(t, a.TopPatterns)
	assert.Equal(t, PatternCount{Pattern: "{n} garden hacks that work", Count: 2}, a.TopPatterns[0])
	require.NotEmpty(t, a.TopKeywords)
	assert.Equal(t, KeywordCount{Keyword: "garden", Count: 3}, a.TopKeywords[0])
	for _, k := range a.TopKeywords {
		assert.NotEqual(t, "that", k.Keyword)
		assert.GreaterOrEqual(t, len(k.Keyword), 4)
	}
	hits := map[string]int{}
	for _, h := range a.RiskHits {
		hits[h.Word] = h.Count
	}
	assert.Equal(t, map[string]int{"shocking": 1, "secret": 1, "raised garden": 1}, hits)
}

func TestAnalyzeTitlesEmpty(t *testing.T) {
	a := AnalyzeTitles(nil)
	assert.Equal(t, 0, a.TotalTitles)
	assert.Empty(t, a.TopPatterns)
	assert.NotNil(t, a.RiskHits)
}

func TestInferScene(t *testing.T) {
	scene, alts := InferScene([]string{"Balcony pots for apartment life", "Container herbs in the kitchen"})
	assert.Equal(t, "balcony", scene)
	assert.Equal(t, []string{"indoor"}, alts)

	scene, alts = InferScene([]string{"Coding tutorial"})
	assert.Equal(t, "general", scene)
	assert.Empty(t, alts)
}

func TestTopKeywords(t *testing.T) {
	got := TopKeywords([]string{"Compost tips for your garden", "Compost mistakes", "garden compost"}, 2)
	assert.Equal(t, []string{"compost", "garden"}, got)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 10, clamp(0, 10, 3, 20))
	assert.Equal(t, 3, clamp(1, 10, 3, 20))
	assert.Equal(t, 20, clamp(99, 10, 3, 20))
}

func TestWeeklyPlanNoRun(t *testing.T) {
	p := &Planner{Store: openStore(t)}
	_, err := p.WeeklyPlan(context.Background(), WeeklyRequest{})
	assert.Error(t, err)
}

func TestWeeklyPlanFromRuns(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	_, err := s.SaveDiscoverRun(ctx, discovery.Input{Query: "homestead"}, "homestead", &discovery.Result{
		Channels: []discovery.ChannelCandidate{
			{ChannelID: "UC1", Score: 50, SampleTitles: []string{"Chicken coop build", "Chicken feed hacks"}},
			{ChannelID: "UC2", Score: 40, SampleTitles: []string{"Winter chicken care"}},
		},
	})
	require.NoError(t, err)
	_, err = s.SaveSimilarRun(ctx, &similar.Result{SeedInput: "@x", SeedChannelID: "UCx", Query: "q",
		Items: []similar.Match{{ChannelID: "UC9", Similarity: 10, MatchedTerms: []string{"goats", "chicken"}}}})
	require.NoError(t, err)

	var llmCalled bool
	p := &Planner{
		Store: s,
		Now:   func() time.Time { return fixedNow },
		Keywords: func(context.Context, string, any, int) ([]string, error) {
			llmCalled = true
			return nil, errors.New("llm down")
		},
	}
	res, err := p.WeeklyPlan(ctx, WeeklyRequest{Count: 4, Briefs: 2, AI: true})
	require.NoError(t, err)
	assert.True(t, llmCalled)
	assert.Equal(t, ProviderRules, res.Provider)
	assert.Equal(t, "homestead", res.Query)
	assert.Equal(t, "chicken", res.Keywords[0])
	assert.Contains(t, res.Keywords, "goats")

	require.Len(t, res.Episodes, 4)
	ep := res.Episodes[1]
	assert.Equal(t, res.Keywords[1], ep.TargetKeyword)
	assert.Equal(t, "7 practical ways to improve "+ep.TargetKeyword, ep.TitleOptions[0])
	require.NotNil(t, ep.PlannedDate)
	assert.True(t, fixedNow.AddDate(0, 0, 1).Equal(*ep.PlannedDate))

	require.Len(t, res.Briefs, 2)
	assert.Len(t, res.Briefs[0].TitleOptions, 3)
	assert.Equal(t, res.Episodes[0].ID, res.Briefs[0].EpisodeID)

	stored, err := s.ListEpisodes(ctx, store.EpisodeFilter{})
	require.NoError(t, err)
	assert.Len(t, stored, 4)
}

func TestWeeklyPlanAIKeywords(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	_, err := s.SaveDiscoverRun(ctx, discovery.Input{Query: "fitness"}, "", &discovery.Result{})
	require.NoError(t, err)

	p := &Planner{Store: s, Keywords: func(context.Context, string, any, int) ([]string, error) {
		return []string{" Kettlebell ", "kettlebell", "mobility"}, nil
	}}
	res, err := p.WeeklyPlan(ctx, WeeklyRequest{Count: 3, AI: true})
	require.NoError(t, err)
	assert.Equal(t, ProviderAI, res.Provider)
	assert.Equal(t, []string{"kettlebell", "mobility"}, res.Keywords)
	assert.Equal(t, "kettlebell", res.Episodes[2].TargetKeyword)
}

func TestWeeklyPlanFallbackPivot(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	_, err := s.SaveDiscoverRun(ctx, discovery.Input{Query: "fitness"}, "", &discovery.Result{})
	require.NoError(t, err)

	p := &Planner{Store: s}
	res, err := p.WeeklyPlan(ctx, WeeklyRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"fitness", "beginner", "guide", "mistakes", "budget"}, res.Keywords)
	assert.Len(t, res.Episodes, 10)
	assert.Len(t, res.Briefs, 3)
}

func TestSeedPlan(t *testing.T) {
	s := openStore(t)
	titles := fakeTitles{
		"UCa": {"Balcony garden in pots", "Tomato pots on a balcony"},
		"UCb": {"Raised bed tomato harvest"},
	}
	p := &Planner{Store: s, Titles: titles, Now: func() time.Time { return fixedNow }}

	res, err := p.SeedPlan(context.Background(), SeedRequest{SeedText: "@a\n@b, UCa", Count: 12})
	require.NoError(t, err)
	assert.Equal(t, []string{"@a", "@b", "UCa"}, res.Seeds)
	assert.Equal(t, []string{"UCa", "UCb"}, res.ChannelIDs)
	assert.Equal(t, "balcony", res.InferredScene)
	assert.Equal(t, []string{"backyard"}, res.SceneAlternatives)
	assert.Equal(t, "balcony", res.FinalScene)
	assert.Equal(t, "balcony", res.KeywordPool[0])

	require.Len(t, res.Episodes, 12)
	assert.Equal(t, "必做", res.Episodes[0].Bucket)
	assert.Equal(t, "备选", res.Episodes[3].Bucket)
	assert.Equal(t, "实验", res.Episodes[9].Bucket)
	assert.Equal(t, "备选", res.Episodes[11].Bucket)
	assert.Contains(t, res.Episodes[0].ScriptOutline, "Scene=balcony; Language=zh")
}

func TestSeedPlanManualScene(t *testing.T) {
	off := false
	p := &Planner{Store: openStore(t), Titles: fakeTitles{}}
	res, err := p.SeedPlan(context.Background(), SeedRequest{SeedText: "@a", Scene: "farm", AutoScene: &off, Count: 3})
	require.NoError(t, err)
	assert.Equal(t, "general", res.InferredScene)
	assert.Equal(t, "farm", res.FinalScene)
	assert.Equal(t, []string{"beginner", "guide", "setup", "mistakes", "results"}, res.KeywordPool)
}

func TestSeedPlanErrors(t *testing.T) {
	p := &Planner{Store: openStore(t), Titles: fakeTitles{}}
	_, err := p.SeedPlan(context.Background(), SeedRequest{SeedText: ""})
	assert.Error(t, err)
	_, err = p.SeedPlan(context.Background(), SeedRequest{SeedText: "not-a-channel"})
	assert.Error(t, err)
}
