package script

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequiredCount(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"食物保存的10种方法", 10},
		{"给我 5 个技巧", 5},
		{"3条建议", 3},
		{"Top 7 items for winter", 7},
		{"1 item only", 1},
		{"51种", 0},
		{"0个", 0},
		{"同类型视频", 0},
		{"", 0},
		{"1234种", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseRequiredCount(tt.in))
		})
	}
}

func TestEnforceAcceptsTenItemContract(t *testing.T) {
	c := NewConstraints("食物保存的10种方法", "", nil)
	require.Equal(t, 10, c.RequiredCount)
	assert.NoError(t, Enforce(validScript(10), c))
}

func TestEnforceCoverageGapOnEachIndex(t *testing.T) {
	c := NewConstraints("10种", "", nil)
	for drop := 0; drop < 10; drop++ {
		s := validScript(10)
		s.Timeline[drop].Segment = "补充说明"
		err := Enforce(s, c)
		require.Error(t, err, "dropping 要点%d", drop+1)
		assert.True(t, errors.Is(err, ErrCoverageGap))
		assert.False(t, errors.Is(err, ErrCountMismatch))
	}
}

func TestEnforceCoverageRanges(t *testing.T) {
	s := validScript(6)
	s.Timeline[0].Segment = "要点1-3 合并讲解"
	s.Timeline[1].Segment = "要点 4到5"
	s.Timeline[2].Segment = "要点6~6"
	for i := 3; i < len(s.Timeline); i++ {
		s.Timeline[i].Segment = "演示"
	}
	assert.NoError(t, Enforce(s, Constraints{RequiredCount: 6}))

	covered := CoveredItems(s.Timeline)
	for i := 1; i <= 6; i++ {
		assert.True(t, covered[i], "item %d", i)
	}
}

func TestEnforceInsufficientSegments(t *testing.T) {
	s := validScript(8)
	s.Timeline = s.Timeline[:4]
	err := Enforce(s, Constraints{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientSegments)

	var ce *ContractError
	require.ErrorAs(t, err, &ce)
	assert.Len(t, ce.Violations, 1)
}

func TestEnforceCountMismatchAndVague(t *testing.T) {
	s := validScript(10)
	s.ContentItems = append(s.ContentItems[:8], "短")
	err := Enforce(s, NewConstraints("10种", "", nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCountMismatch)
	assert.ErrorIs(t, err, ErrTooVague)
}

func TestEnforceSegmentRules(t *testing.T) {
	s := validScript(8)
	s.Timeline[2].Voiceover = "太短了"
	s.Timeline[5].Visuals = "一个没有任何拍摄动作描述的画面，只是文字堆砌，没有说明怎么拍，也没有说明拍什么内容和场景"
	err := Enforce(s, Constraints{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSegmentTooShort)
	assert.ErrorIs(t, err, ErrMissingShotAction)
	assert.False(t, errors.Is(err, ErrInsufficientSegments))
}

func TestEnforceTopicLockAndBannedWords(t *testing.T) {
	s := validScript(8)

	err := Enforce(s, NewConstraints("", "露营", nil))
	assert.ErrorIs(t, err, ErrOffTopic)
	assert.NoError(t, Enforce(s, NewConstraints("", "食物保存", nil)))

	s.Title = "Best FREEZER hacks"
	err = Enforce(s, NewConstraints("", "", []string{" freezer ", "", "微波炉"}))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBannedWord)
	assert.Contains(t, err.Error(), "freezer")
	assert.NotContains(t, err.Error(), "微波炉")
}

func TestContractErrorAggregates(t *testing.T) {
	err := Enforce(DetailedScript{ContentItems: []string{"ab"}}, NewConstraints("3条", "topic", []string{"x"}))
	var ce *ContractError
	require.ErrorAs(t, err, &ce)
	kinds := map[error]bool{}
	for _, v := range ce.Violations {
		kinds[v.Kind] = true
	}
	assert.True(t, kinds[ErrCountMismatch])
	assert.True(t, kinds[ErrTooVague])
	assert.True(t, kinds[ErrInsufficientSegments])
	assert.True(t, kinds[ErrCoverageGap])
	assert.True(t, kinds[ErrOffTopic])
	assert.False(t, kinds[ErrBannedWord])
}
