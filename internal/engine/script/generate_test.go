package script

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_studio/internal/engine"
)

type fakeTitles struct {
	titles map[string][]string
}

func (f fakeTitles) ResolveChannelID(_ context.Context, input string) (string, error) {
	if input == "@bad" {
		return "", errors.New("unresolvable")
	}
	return "UC" + strings.TrimPrefix(input, "@"), nil
}

func (f fakeTitles) RecentTitles(_ context.Context, id string) ([]string, error) {
	return f.titles[id], nil
}

// scriptedLLM returns its answers in order and records the prompts it saw.
type scriptedLLM struct {
	answers []string
	errs    []error
	prompts []string
}

func (s *scriptedLLM) complete(_ context.Context, _, prompt string) (string, error) {
	i := len(s.prompts)
	s.prompts = append(s.prompts, prompt)
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.answers) {
		return s.answers[i], nil
	}
	return "{}", nil
}

func TestParseSeeds(t *testing.T) {
	got := ParseSeeds("@a, @b\n\n@c,@d,@e,@f")
	assert.Equal(t, []string{"@a", "@b", "@c", "@d", "@e"}, got)
	assert.Empty(t, ParseSeeds(" ,\n "))
}

func TestDecodeScript(t *testing.T) {
	raw := "```json\n" + `{"topic":"保存","title":"标题","opening15s":"一句话","timeline":[{"time":"00:00","segment":"要点1","voiceover":42,"visuals":"特写"}],"contentItems":[1,"二"],"tags":null}` + "\n```"
	s, err := DecodeScript(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"一句话"}, s.Opening15s)
	assert.Equal(t, "42", s.Timeline[0].Voiceover)
	assert.Equal(t, []string{"1", "二"}, s.ContentItems)
	assert.Equal(t, []string{}, s.Tags)
	assert.Equal(t, ProviderAI, s.Provider)

	_, err = DecodeScript(`{"title":"只有标题"}`)
	assert.ErrorIs(t, err, ErrMalformedPayload)
	assert.Contains(t, err.Error(), "timeline")

	_, err = DecodeScript("not json")
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestGenerateAcceptsAfterRetry(t *testing.T) {
	bad := validScript(10)
	bad.ContentItems = bad.ContentItems[:9]
	llm := &scriptedLLM{answers: []string{wireJSON(bad), wireJSON(validScript(10))}}
	g := &Generator{
		Titles:      fakeTitles{titles: map[string][]string{"UCa": {"Seed video one", "Seed video two"}}},
		Complete:    llm.complete,
		MaxAttempts: 3,
	}

	res, err := g.Generate(context.Background(), Request{SeedText: "@a", Direction: "食物保存的10种方法"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, ProviderAI, res.Script.Provider)
	assert.Empty(t, res.LastError)
	assert.Equal(t, []string{"@a"}, res.Script.References.Seeds)
	assert.Len(t, res.Script.References.SampledTitles, 2)
	assert.Equal(t, res.Quality, Evaluate(res.Script))

	require.Len(t, llm.prompts, 2)
	assert.Contains(t, llm.prompts[0], `"requiredCount":10`)
	assert.NotContains(t, llm.prompts[0], "previousViolations")
	assert.Contains(t, llm.prompts[1], "previousViolations")
}

func TestGenerateFallsBackToTemplate(t *testing.T) {
	llm := &scriptedLLM{answers: []string{`{"title":"x"}`, wireJSON(validScript(3))}}
	g := &Generator{
		Titles:      fakeTitles{titles: map[string][]string{"UCa": {"Winter garden"}}},
		Complete:    llm.complete,
		MaxAttempts: 2,
	}

	res, err := g.Generate(context.Background(), Request{SeedText: "@a", Direction: "5个技巧", TopicLock: "阳台种菜"})
	require.NoError(t, err)
	assert.Equal(t, ProviderTemplate, res.Script.Provider)
	assert.Equal(t, 2, res.Attempts)
	assert.Contains(t, res.LastError, "contract")
	assert.Len(t, res.Script.ContentItems, 5)
	assert.NoError(t, Enforce(res.Script, res.Constraints))
}

func TestGenerateStopsWhenLLMDisabled(t *testing.T) {
	llm := &scriptedLLM{errs: []error{engine.ErrLLMDisabled}}
	g := &Generator{Titles: fakeTitles{}, Complete: llm.complete, MaxAttempts: 5}

	res, err := g.Generate(context.Background(), Request{SeedText: "@a"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, ProviderTemplate, res.Script.Provider)
	assert.Len(t, res.Script.ContentItems, defaultTemplateItems)
	assert.Equal(t, "参考频道同类主题", res.Script.Topic)
}

func TestGenerateInputErrors(t *testing.T) {
	g := &Generator{Titles: fakeTitles{}}
	_, err := g.Generate(context.Background(), Request{SeedText: "  "})
	assert.Error(t, err)

	_, err = g.Generate(context.Background(), Request{SeedText: "@bad"})
	assert.Error(t, err)
}

func TestSampleTitlesCapped(t *testing.T) {
	many := make([]string, 20)
	for i := range many {
		many[i] = "title"
	}
	g := &Generator{Titles: fakeTitles{titles: map[string][]string{"UCa": many, "UCb": many}}}
	got, err := g.sampleTitles(context.Background(), []string{"@a", "@b"})
	require.NoError(t, err)
	assert.Len(t, got, maxSampledTitles)
}
