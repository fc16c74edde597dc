package niche

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_studio/internal/engine/discovery"
)

type fakeStore struct {
	active []Preset
	bySlug map[string]Preset
	err    error
}

func (f fakeStore) ActiveNichePresets(context.Context) ([]Preset, error) { return f.active, f.err }

func (f fakeStore) NichePreset(_ context.Context, slug string) (*Preset, error) {
	if f.err != nil {
		return nil, f.err
	}
	if p, ok := f.bySlug[slug]; ok {
		return &p, nil
	}
	return nil, nil
}

func TestDefaults(t *testing.T) {
	ps := Defaults()
	require.Len(t, ps, 3)
	assert.Equal(t, []string{"homestead", "ai-tools", "fitness"}, []string{ps[0].Slug, ps[1].Slug, ps[2].Slug})

	ps[0].KeywordSet[0] = "mutated"
	p, ok := Default("homestead")
	require.True(t, ok)
	assert.Equal(t, "homestead", p.KeywordSet[0])
	assert.Equal(t, discovery.DefaultWeights, p.Weights)

	f, _ := Default("fitness")
	assert.Equal(t, 14, f.WindowDays)
	assert.Equal(t, 60, f.MinDurationSec)
}

func TestRegistryPrefersStore(t *testing.T) {
	custom := Preset{Slug: "fitness", PrimaryQuery: "home workout", WindowDays: 3}
	r := &Registry{Store: fakeStore{bySlug: map[string]Preset{"fitness": custom}}}

	p, ok := r.Get(context.Background(), " Fitness ")
	require.True(t, ok)
	assert.Equal(t, "home workout", p.PrimaryQuery)

	p, ok = r.Get(context.Background(), "ai-tools")
	require.True(t, ok)
	assert.Equal(t, "ai tools", p.PrimaryQuery)

	_, ok = r.Get(context.Background(), "cooking")
	assert.False(t, ok)
	_, ok = r.Get(context.Background(), "")
	assert.False(t, ok)
}

func TestRegistryStoreErrorFallsBack(t *testing.T) {
	r := &Registry{Store: fakeStore{err: errors.New("db down")}}
	p, ok := r.Get(context.Background(), "homestead")
	require.True(t, ok)
	assert.Equal(t, "homestead", p.PrimaryQuery)

	_, err := r.List(context.Background())
	assert.Error(t, err)
}

func TestRegistryList(t *testing.T) {
	var nilReg *Registry
	ps, err := nilReg.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, ps, 3)

	r := &Registry{Store: fakeStore{active: []Preset{{Slug: "garden"}}}}
	ps, err = r.List(context.Background())
	require.NoError(t, err)
	require.Len(t, ps, 1)
	assert.Equal(t, "garden", ps[0].Slug)

	r = &Registry{Store: fakeStore{}}
	ps, err = r.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, ps, 3)
}

func TestApplyDiscover(t *testing.T) {
	p, _ := Default("ai-tools")

	var in discovery.Input
	ApplyDiscover(&in, p)
	assert.Equal(t, "ai tools", in.Query)
	assert.Equal(t, 7, in.Days)
	assert.Equal(t, 120, in.MinDurationSec)
	assert.Equal(t, 50, in.MaxResults)
	assert.Equal(t, p.Weights, in.Weights)

	in = discovery.Input{Query: "cursor ide", Days: 3, MinDurationSec: -1, MaxResults: 10, Weights: discovery.WeightVector{Upload: 1}}
	ApplyDiscover(&in, p)
	assert.Equal(t, "cursor ide", in.Query)
	assert.Equal(t, 3, in.Days)
	assert.Equal(t, -1, in.MinDurationSec)
	assert.Equal(t, 10, in.MaxResults)
	assert.Equal(t, 1.0, in.Weights.Upload)
}
