package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_studio/internal/engine/discovery"
	"github.com/anatolykoptev/go_studio/internal/engine/niche"
	"github.com/anatolykoptev/go_studio/internal/engine/similar"
)

// newTestStore opens a fresh SQLite store whose clock advances one minute per call.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "studio.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return s
}

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }

func TestRebind(t *testing.T) {
	s := &Store{dialect: dialectPostgres}
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", s.rebind("SELECT * FROM t WHERE a = ? AND b = ?"))
	s.dialect = dialectSQLite
	assert.Equal(t, "a = ?", s.rebind("a = ?"))
}

func TestNewPage(t *testing.T) {
	p := NewPage(0, 0)
	assert.Equal(t, Page{Page: 1, PageSize: 10}, p)
	p = NewPage(3, 500)
	assert.Equal(t, 50, p.PageSize)
	assert.Equal(t, 100, p.offset())
	p.setTotal(101)
	assert.Equal(t, 3, p.TotalPages)
}

func TestMigrateIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.migrate(context.Background()))
}

func TestDiscoverRunRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	in := discovery.Input{Query: "homestead", Region: "US", Language: "en", Days: 7,
		Bounds: discovery.Bounds{MinSubscribers: i64(1000)}}
	res := &discovery.Result{
		FetchedVideos:  40,
		FilteredVideos: 31,
		Channels: []discovery.ChannelCandidate{
			{ChannelID: "UC1", ChannelTitle: "One", Score: 64.39, SampleTitles: []string{"a"}, SubscriberCount: i64(5000)},
			{ChannelID: "UC2", ChannelTitle: "Two", Score: 80.1, SampleTitles: []string{"b"}},
		},
	}
	saved, err := s.SaveDiscoverRun(ctx, in, "homestead", res)
	require.NoError(t, err)
	assert.Equal(t, discovery.DefaultWeights, saved.Weights)

	got, err := s.DiscoverRun(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "homestead", got.Niche)
	assert.Equal(t, 31, got.FilteredVideos)
	assert.Equal(t, 2, got.CandidateCount)
	require.NotNil(t, got.Bounds.MinSubscribers)
	assert.Equal(t, int64(1000), *got.Bounds.MinSubscribers)
	require.Len(t, got.Candidates, 2)
	assert.Equal(t, "UC2", got.Candidates[0].ChannelID, "ordered by score")
	assert.Equal(t, int64(5000), *got.Candidates[1].SubscriberCount)

	_, err = s.DiscoverRun(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestDiscoverRunHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var last string
	for _, q := range []string{"a", "b", "c"} {
		run, err := s.SaveDiscoverRun(ctx, discovery.Input{Query: q}, "", &discovery.Result{})
		require.NoError(t, err)
		last = run.ID
	}

	runs, page, err := s.ListDiscoverRuns(ctx, NewPage(1, 2))
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].Query)

	runs, _, err = s.ListDiscoverRuns(ctx, NewPage(2, 2))
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "a", runs[0].Query)

	latest, err := s.DiscoverRun(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, last, latest.ID)
	assert.Empty(t, latest.Candidates)
}

func TestCandidateScoresSince(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.SaveDiscoverRun(ctx, discovery.Input{Query: "Garden"}, "", &discovery.Result{
		Channels: []discovery.ChannelCandidate{{ChannelID: "UC1", Score: 10}, {ChannelID: "UC2", Score: 20}},
	})
	require.NoError(t, err)

	scores, err := s.CandidateScoresSince(ctx, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 500)
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.Equal(t, "Garden", scores[0].Query)

	scores, err = s.CandidateScoresSince(ctx, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), 500)
	require.NoError(t, err)
	assert.Empty(t, scores)
}

func TestSimilarRunRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	res := &similar.Result{
		SeedInput:     "@seed",
		SeedChannelID: "UCseed",
		Query:         "garden soil",
		SeedTerms:     []string{"garden", "soil"},
		Items: []similar.Match{
			{ChannelID: "UC1", Similarity: 20, MatchedTerms: []string{"garden"}},
			{ChannelID: "UC2", Similarity: 50, MatchedTerms: []string{"garden", "soil"}},
		},
	}
	saved, err := s.SaveSimilarRun(ctx, res)
	require.NoError(t, err)
	assert.Equal(t, 2, saved.ItemCount)

	got, err := s.SimilarRun(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, saved.ID, got.ID)
	assert.Equal(t, []string{"garden", "soil"}, got.SeedTerms)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "UC2", got.Items[0].ChannelID)

	runs, page, err := s.ListSimilarRuns(ctx, NewPage(1, 10))
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	require.Len(t, runs, 1)
	assert.Equal(t, "@seed", runs[0].SeedInput)

	_, err = s.SimilarRun(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEpisodesAndMetrics(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	planned := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	eps, err := s.CreateEpisodes(ctx, []Episode{
		{Topic: "soil #1", TargetKeyword: "soil", TitleOptions: []string{"t1", "t2"}, PlannedDate: &planned},
		{Topic: "compost #2", TargetKeyword: "compost"},
	})
	require.NoError(t, err)
	require.Len(t, eps, 2)
	assert.NotEmpty(t, eps[0].ID)

	m, err := s.UpsertMetrics(ctx, EpisodeMetrics{EpisodeID: eps[0].ID, CTR: f64(6.5), Views7d: i64(1200), WinOrFail: "win"})
	require.NoError(t, err)
	assert.Equal(t, 6.5, *m.CTR)
	assert.Nil(t, m.Retention30s)

	m, err = s.UpsertMetrics(ctx, EpisodeMetrics{EpisodeID: eps[0].ID, Retention30s: f64(58)})
	require.NoError(t, err)
	assert.Equal(t, 6.5, *m.CTR, "unset fields keep stored values")
	assert.Equal(t, 58.0, *m.Retention30s)
	assert.Equal(t, "win", m.WinOrFail)

	_, err = s.UpsertMetrics(ctx, EpisodeMetrics{EpisodeID: "missing"})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.UpsertMetrics(ctx, EpisodeMetrics{})
	assert.Error(t, err)

	list, err := s.ListEpisodes(ctx, EpisodeFilter{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	var soil Episode
	for _, e := range list {
		if e.TargetKeyword == "soil" {
			soil = e
		}
	}
	require.NotNil(t, soil.Metrics)
	assert.True(t, soil.Metrics.Measured())
	assert.Equal(t, []string{"t1", "t2"}, soil.TitleOptions)
	require.NotNil(t, soil.PlannedDate)
	assert.True(t, planned.Equal(*soil.PlannedDate))

	future, err := s.ListEpisodes(ctx, EpisodeFilter{Since: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	assert.Empty(t, future)

	require.NoError(t, s.DeleteEpisode(ctx, eps[0].ID))
	assert.ErrorIs(t, s.DeleteEpisode(ctx, eps[0].ID), ErrNotFound)
	list, err = s.ListEpisodes(ctx, EpisodeFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestNichePresets(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	got, err := s.NichePreset(ctx, "garden")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, s.SaveNichePreset(ctx, niche.Preset{
		Slug: "garden", Name: "Garden", PrimaryQuery: "vegetable garden",
		KeywordSet: []string{"garden"}, MinDurationSec: 180, WindowDays: 7, MaxResults: 30,
	}, true))
	require.NoError(t, s.SaveNichePreset(ctx, niche.Preset{Slug: "old", Name: "Old", PrimaryQuery: "old"}, false))

	got, err = s.NichePreset(ctx, "garden")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, discovery.DefaultWeights, got.Weights)
	assert.Equal(t, []string{}, got.RiskWords)

	active, err := s.ActiveNichePresets(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "garden", active[0].Slug)

	reg := &niche.Registry{Store: s}
	p, ok := reg.Get(ctx, "garden")
	require.True(t, ok)
	assert.Equal(t, 180, p.MinDurationSec)
	p, ok = reg.Get(ctx, "fitness")
	require.True(t, ok)
	assert.Equal(t, "fitness", p.PrimaryQuery)
}

func strp(v string) *string { return &v }
func boolp(v bool) *bool    { return &v }

func TestChannelMarksMerge(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m, err := s.SaveChannelMark(ctx, MarkUpdate{ChannelID: " UCa ", ChannelTitle: strp("Alpha")})
	require.NoError(t, err)
	assert.Equal(t, "UCa", m.ChannelID)
	assert.True(t, m.Marked)
	assert.False(t, m.Priority)

	m, err = s.SaveChannelMark(ctx, MarkUpdate{ChannelID: "UCa", Priority: boolp(true), Note: strp("collab")})
	require.NoError(t, err)
	assert.Equal(t, "Alpha", m.ChannelTitle, "title kept when omitted")
	assert.True(t, m.Priority)
	assert.Equal(t, "collab", m.Note)
	assert.True(t, m.UpdatedAt.After(m.CreatedAt))

	_, err = s.SaveChannelMark(ctx, MarkUpdate{ChannelID: "UCb", Marked: boolp(false)})
	require.NoError(t, err)

	all, err := s.ChannelMarks(ctx, false, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "UCa", all[0].ChannelID, "priority first")

	marked, err := s.ChannelMarks(ctx, true, 0)
	require.NoError(t, err)
	require.Len(t, marked, 1)

	_, err = s.SaveChannelMark(ctx, MarkUpdate{ChannelID: "  "})
	assert.Error(t, err)

	require.NoError(t, s.DeleteChannelMark(ctx, "UCa"))
	assert.True(t, errors.Is(s.DeleteChannelMark(ctx, "UCa"), ErrNotFound))
	_, err = s.ChannelMark(ctx, "UCa")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	eps, err := s.CreateEpisodes(ctx, []Episode{{Topic: "a", TargetKeyword: "a"}, {Topic: "b", TargetKeyword: "b"}})
	require.NoError(t, err)
	_, err = s.UpsertMetrics(ctx, EpisodeMetrics{EpisodeID: eps[0].ID, CTR: f64(4.2)})
	require.NoError(t, err)
	_, err = s.SaveChannelMark(ctx, MarkUpdate{ChannelID: "UCa", Priority: boolp(true)})
	require.NoError(t, err)

	st, err := s.Stats(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Episodes)
	assert.Equal(t, 1, st.MeasuredEpisodes)
	assert.Equal(t, 0, st.DiscoverRuns)
	assert.Equal(t, 1, st.MarkedChannels)
	assert.Equal(t, 1, st.PriorityChannels)
	require.Len(t, st.Trend, 7)
	assert.Equal(t, "2026-03-01", st.Trend[6].Date)
	assert.Equal(t, 2, st.Trend[6].Episodes)
	assert.Equal(t, 0, st.Trend[0].Episodes)
}
