package similar

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	got := Tokenize("Building a DIY Chicken-Coop for $50 in 2024!")
	assert.Equal(t, []string{"building", "chicken", "coop", "2024"}, got)

	long := ""
	for range 50 {
		long += "word "
	}
	assert.Len(t, Tokenize(long), 40)
	assert.Empty(t, Tokenize("a b c"))
}

func TestTopTerms(t *testing.T) {
	titles := []string{
		"Winter garden prep with chickens",
		"Garden harvest: what to plant this winter",
		"Chickens in winter",
		"Backyard garden tour",
	}
	got := TopTerms(titles)
	require.LessOrEqual(t, len(got), 6)
	assert.Equal(t, []string{"winter", "garden", "chickens", "prep", "harvest", "plant"}, got)
	assert.NotContains(t, got, "with")
	assert.NotContains(t, got, "this")
}

func TestOverlapConcrete(t *testing.T) {
	seed := []string{"homestead", "garden", "chicken", "winter", "backyard", "harvest"}
	cand := []string{"homestead", "garden", "chicken", "budget", "tools", "diy"}
	assert.Equal(t, 33.33, Overlap(seed, cand))
	assert.Equal(t, []string{"homestead", "garden", "chicken"}, MatchedTerms(seed, cand))
}

func TestOverlapProperties(t *testing.T) {
	sets := [][]string{
		nil,
		{"alpha"},
		{"alpha", "beta", "gamma"},
		{"beta", "delta"},
		{"epsilon", "zeta", "theta", "iota"},
	}
	for _, a := range sets {
		for _, b := range sets {
			s := Overlap(a, b)
			assert.GreaterOrEqual(t, s, 0.0)
			assert.LessOrEqual(t, s, 100.0)
			assert.Equal(t, s, Overlap(b, a))
		}
		if len(a) > 0 {
			assert.Equal(t, 100.0, Overlap(a, a))
		}
	}
	assert.Equal(t, 0.0, Overlap(nil, nil))
}

func TestSeedQuery(t *testing.T) {
	assert.Equal(t, "homestead", SeedQuery(nil))
	assert.Equal(t, "a1 b2 c3 d4", SeedQuery([]string{"a1", "b2", "c3", "d4", "e5", "f6"}))
	assert.Equal(t, "solo", SeedQuery([]string{"solo"}))
}

func TestMergeCandidates(t *testing.T) {
	pool := []Channel{{ChannelID: "A", ChannelTitle: "pool A"}, {ChannelID: "SEED"}, {ChannelID: "B"}}
	searched := []Channel{{ChannelID: "C"}, {ChannelID: "A", ChannelTitle: "search A"}, {ChannelID: ""}}
	got := MergeCandidates("SEED", pool, searched)
	require.Len(t, got, 3)
	assert.Equal(t, "A", got[0].ChannelID)
	assert.Equal(t, "search A", got[0].ChannelTitle)
	assert.Equal(t, "B", got[1].ChannelID)
	assert.Equal(t, "C", got[2].ChannelID)
}

func TestRankDropsZeroAndCaps(t *testing.T) {
	seed := []string{"garden", "chicken"}
	var cands []Channel
	terms := map[string][]string{}
	for i := range 20 {
		id := string(rune('a' + i))
		cands = append(cands, Channel{ChannelID: id})
		if i%2 == 0 {
			terms[id] = []string{"garden"}
		} else {
			terms[id] = []string{"garden", "chicken"}
		}
	}
	cands = append(cands, Channel{ChannelID: "zero"})
	terms["zero"] = []string{"unrelated"}

	got := Rank(seed, cands, terms)
	assert.Len(t, got, MaxResults)
	assert.Equal(t, 100.0, got[0].Similarity)
	assert.Equal(t, "b", got[0].ChannelID)
	for _, m := range got {
		assert.NotEqual(t, "zero", m.ChannelID)
		assert.Greater(t, m.Similarity, 0.0)
	}
}

type fakeChannels struct {
	mu       sync.Mutex
	titles   map[string][]string
	searched []Channel
	query    string
}

func (f *fakeChannels) ResolveChannelID(_ context.Context, input string) (string, error) {
	if input == "@missing" {
		return "", errors.New("not found")
	}
	return "UCseed", nil
}

func (f *fakeChannels) RecentTitles(_ context.Context, id string) ([]string, error) {
	if id == "UCbroken" {
		return nil, errors.New("boom")
	}
	return f.titles[id], nil
}

func (f *fakeChannels) SearchChannels(_ context.Context, q string, _ int) ([]Channel, error) {
	f.mu.Lock()
	f.query = q
	f.mu.Unlock()
	return f.searched, nil
}

func TestFindSimilar(t *testing.T) {
	src := &fakeChannels{
		titles: map[string][]string{
			"UCseed":   {"homestead garden tour", "homestead chicken coop", "garden harvest"},
			"UClocal":  {"garden makeover", "chicken breeds"},
			"UCsearch": {"homestead life"},
			"UCnone":   {"gaming stream"},
		},
		searched: []Channel{{ChannelID: "UCsearch", ChannelTitle: "Search"}, {ChannelID: "UCseed"}, {ChannelID: "UCnone"}},
	}
	res, err := FindSimilar(context.Background(), src, "@seed",
		[]Channel{{ChannelID: "UClocal", ChannelTitle: "Local"}, {ChannelID: "UCbroken"}})
	require.NoError(t, err)

	assert.Equal(t, "UCseed", res.SeedChannelID)
	assert.Equal(t, []string{"homestead", "garden", "tour", "chicken", "coop", "harvest"}, res.SeedTerms)
	assert.Equal(t, "homestead garden tour chicken", src.query)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "UClocal", res.Items[0].ChannelID)
	assert.Equal(t, []string{"garden", "chicken"}, res.Items[0].MatchedTerms)
	assert.Equal(t, "UCsearch", res.Items[1].ChannelID)
	assert.Equal(t, "https://www.youtube.com/channel/UCsearch", res.Items[1].ChannelURL)
}

func TestFindSimilarErrors(t *testing.T) {
	_, err := FindSimilar(context.Background(), &fakeChannels{}, "  ", nil)
	require.Error(t, err)
	_, err = FindSimilar(context.Background(), &fakeChannels{}, "@missing", nil)
	require.Error(t, err)
}
