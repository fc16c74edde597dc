package discovery

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseISODurationSeconds(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"PT1H2M3S", 3723},
		{"PT4M", 240},
		{"PT59S", 59},
		{"PT2H", 7200},
		{"PT1H30S", 3630},
		{"", 0},
		{"garbage", 0},
		{"P1D", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseISODurationSeconds(tt.in))
		})
	}
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 0.0, Median(nil))
	assert.Equal(t, 5.0, Median([]float64{5}))
	assert.Equal(t, 3.0, Median([]float64{9, 1, 3}))
	assert.Equal(t, 2.5, Median([]float64{4, 1, 3, 2}))

	in := []float64{3, 1, 2}
	Median(in)
	assert.Equal(t, []float64{3, 1, 2}, in, "input must not be reordered")
}

func TestMedianOddReturnsMember(t *testing.T) {
	lists := [][]float64{{7, 7, 1}, {100, 2, 50, 8, 9}, {-1, 0, 1}}
	for _, l := range lists {
		assert.Contains(t, l, Median(l))
	}
}

func TestScoreConcrete(t *testing.T) {
	got := Score(100000, 8000, 5, DefaultWeights)
	want := math.Round(10*(0.45*math.Log(100001)+0.30*math.Log(8001)+0.25*5)*100) / 100
	assert.Equal(t, want, got)
	assert.InDelta(t, 91.27, got, 0.01)
}

func TestScoreUploadCap(t *testing.T) {
	assert.Equal(t, Score(1000, 100, 7, DefaultWeights), Score(1000, 100, 30, DefaultWeights))
}

func TestScoreMonotonicInViewsSum(t *testing.T) {
	prev := -1.0
	for _, sum := range []float64{0, 10, 1000, 1e5, 1e7} {
		s := Score(sum, 100, 3, DefaultWeights)
		assert.GreaterOrEqual(t, s, prev)
		prev = s
	}
}

func TestAggregate(t *testing.T) {
	videos := []VideoRecord{
		{ChannelID: "A", ChannelTitle: "Alpha", Title: "a1", ViewCount: 10},
		{ChannelID: "B", ChannelTitle: "Beta", Title: "b1", ViewCount: 5},
		{ChannelID: "", Title: "orphan", ViewCount: 999},
		{ChannelID: "A", Title: "a2", ViewCount: 30},
		{ChannelID: "A", Title: "a3", ViewCount: 20},
		{ChannelID: "A", Title: "a4", ViewCount: 40},
	}
	aggs := Aggregate(videos)
	require.Len(t, aggs, 2)
	assert.Equal(t, "A", aggs[0].ChannelID)
	assert.Equal(t, "B", aggs[1].ChannelID)
	assert.Equal(t, 4, aggs[0].Count)
	assert.Equal(t, []string{"a1", "a2", "a3"}, aggs[0].SampleTitles)
	assert.Equal(t, int64(100), aggs[0].ViewsSum())
	assert.Equal(t, 25.0, aggs[0].ViewsMedian())
}

func TestScoreOrderInvariant(t *testing.T) {
	a := Aggregate([]VideoRecord{
		{ChannelID: "C", ViewCount: 1}, {ChannelID: "C", ViewCount: 500}, {ChannelID: "C", ViewCount: 30},
	})
	b := Aggregate([]VideoRecord{
		{ChannelID: "C", ViewCount: 30}, {ChannelID: "C", ViewCount: 1}, {ChannelID: "C", ViewCount: 500},
	})
	ca := BuildCandidates(a, WeightVector{})
	cb := BuildCandidates(b, WeightVector{})
	assert.Equal(t, ca[0].Score, cb[0].Score)
	assert.Equal(t, "https://www.youtube.com/channel/C", ca[0].ChannelURL)
}

func i64(v int64) *int64     { return &v }
func intp(v int) *int        { return &v }
func f64(v float64) *float64 { return &v }

func TestFilterAndRankBounds(t *testing.T) {
	cands := []ChannelCandidate{
		{ChannelID: "small", Score: 50, SubscriberCount: i64(500), ChannelAgeDays: intp(30), ViewSubRatio: f64(4)},
		{ChannelID: "big", Score: 80, SubscriberCount: i64(2_000_000), ChannelAgeDays: intp(3000), ViewSubRatio: f64(0.1)},
		{ChannelID: "unknown", Score: 90},
	}

	t.Run("no bounds passes unknown", func(t *testing.T) {
		got := FilterAndRank(cands, Bounds{})
		require.Len(t, got, 3)
		assert.Equal(t, "unknown", got[0].ChannelID)
		assert.Equal(t, "big", got[1].ChannelID)
	})

	t.Run("max subscribers excludes unknown", func(t *testing.T) {
		got := FilterAndRank(cands, Bounds{MaxSubscribers: i64(100_000)})
		require.Len(t, got, 1)
		assert.Equal(t, "small", got[0].ChannelID)
	})

	t.Run("min subscribers", func(t *testing.T) {
		got := FilterAndRank(cands, Bounds{MinSubscribers: i64(1000)})
		require.Len(t, got, 1)
		assert.Equal(t, "big", got[0].ChannelID)
	})

	t.Run("age and ratio", func(t *testing.T) {
		got := FilterAndRank(cands, Bounds{MaxChannelAgeDays: intp(365), MinViewSubRatio: f64(1), MaxViewSubRatio: f64(10)})
		require.Len(t, got, 1)
		assert.Equal(t, "small", got[0].ChannelID)
	})
}

func TestFilterAndRankTruncatesAndIsIdempotent(t *testing.T) {
	var cands []ChannelCandidate
	for i := range 30 {
		cands = append(cands, ChannelCandidate{
			ChannelID:       string(rune('a' + i)),
			Score:           float64(i % 7),
			SubscriberCount: i64(int64(i * 100)),
		})
	}
	b := Bounds{MinSubscribers: i64(300)}
	once := FilterAndRank(cands, b)
	twice := FilterAndRank(once, b)
	assert.Len(t, once, MaxRanked)
	assert.Equal(t, once, twice)
	for i := 1; i < len(once); i++ {
		assert.GreaterOrEqual(t, once[i-1].Score, once[i].Score)
	}
}

type fakeSource struct {
	ids      []string
	videos   []VideoRecord
	stats    map[string]ChannelStats
	statsErr error
	params   SearchParams
}

func (f *fakeSource) SearchVideoIDs(_ context.Context, p SearchParams) ([]string, error) {
	f.params = p
	return f.ids, nil
}

func (f *fakeSource) VideoDetails(context.Context, []string) ([]VideoRecord, error) {
	return f.videos, nil
}

func (f *fakeSource) ChannelStats(context.Context, []string) (map[string]ChannelStats, error) {
	return f.stats, f.statsErr
}

func TestDiscover(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	src := &fakeSource{
		ids: []string{"v1", "v2", "v2", "v3", "v4"},
		videos: []VideoRecord{
			{VideoID: "v1", ChannelID: "A", Title: "long a", ViewCount: 1000, DurationSec: 600},
			{VideoID: "v2", ChannelID: "A", Title: "short a", ViewCount: 99999, DurationSec: 30},
			{VideoID: "v3", ChannelID: "B", Title: "long b", ViewCount: 50000, DurationSec: 900},
			{VideoID: "v4", ChannelID: "C", Title: "long c", ViewCount: 10, DurationSec: 300},
		},
		stats: map[string]ChannelStats{
			"A": {SubscriberCount: 100, PublishedAt: now.AddDate(0, 0, -100)},
			"B": {SubscriberCount: 1_000_000, PublishedAt: now.AddDate(-5, 0, 0)},
			"C": {HiddenSubs: true, PublishedAt: now.AddDate(0, 0, -10)},
		},
	}

	res, err := Discover(context.Background(), src, Input{Bounds: Bounds{MaxSubscribers: i64(10_000)}}, now)
	require.NoError(t, err)
	assert.Equal(t, "homestead", src.params.Query)
	assert.Equal(t, 50, src.params.MaxResults)
	assert.True(t, now.AddDate(0, 0, -7).Equal(src.params.PublishedAfter))
	assert.Equal(t, 4, res.FetchedVideos)
	assert.Equal(t, 3, res.FilteredVideos)
	require.Len(t, res.Channels, 1)
	a := res.Channels[0]
	assert.Equal(t, "A", a.ChannelID)
	assert.Equal(t, 100, *a.ChannelAgeDays)
	assert.Equal(t, 10.0, *a.ViewSubRatio)
}

func TestDiscoverStatsFailureKeepsUnknown(t *testing.T) {
	src := &fakeSource{
		ids:      []string{"v1"},
		videos:   []VideoRecord{{VideoID: "v1", ChannelID: "A", ViewCount: 10, DurationSec: 400}},
		statsErr: errors.New("boom"),
	}
	res, err := Discover(context.Background(), src, Input{Enrich: true}, time.Now())
	require.NoError(t, err)
	require.Len(t, res.Channels, 1)
	assert.Nil(t, res.Channels[0].SubscriberCount)
}

func TestDiscoverEmptySearch(t *testing.T) {
	res, err := Discover(context.Background(), &fakeSource{}, Input{Query: "x"}, time.Now())
	require.NoError(t, err)
	assert.Empty(t, res.Channels)
	assert.Equal(t, 0, res.FetchedVideos)
}

func TestNormalizeMinDuration(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultMinDurationSec},
		{-1, 0},
		{60, 60},
	}
	for _, tt := range tests {
		in := Input{MinDurationSec: tt.in}
		in.Normalize()
		assert.Equal(t, tt.want, in.MinDurationSec, "min_duration_sec=%d", tt.in)
	}
}
