package service

import (
	"testing"
	"values_edu_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBadgeCondition(t *testing.T) {
	cond, err := ParseBadgeCondition(" 5 ")
	require.NoError(t, err)
	require.NotNil(t, cond.Bare)
	assert.Equal(t, 5.0, *cond.Bare)

	cond, err = ParseBadgeCondition(`{"score":90,"count":5}`)
	require.NoError(t, err)
	assert.Nil(t, cond.Bare)
	assert.Equal(t, 90.0, *cond.Score)
	assert.Equal(t, 5.0, *cond.Count)

	cond, err = ParseBadgeCondition(`{"count":2,"exact":true}`)
	require.NoError(t, err)
	assert.True(t, cond.Exact)

	for _, raw := range []string{"", "   ", `{"count":`, `"seven"`, `[1,2]`} {
		_, err := ParseBadgeCondition(raw)
		assert.ErrorIs(t, err, util.ErrInvalidCondition, "raw=%q", raw)
	}
}

func TestBadgeConditionBareValueWins(t *testing.T) {
	cond, err := ParseBadgeCondition("3")
	require.NoError(t, err)

	v, ok := cond.first(cond.Days, cond.Value)
	assert.True(t, ok)
	assert.Equal(t, 3.0, v)

	cond, err = ParseBadgeCondition(`{"value":4}`)
	require.NoError(t, err)
	v, ok = cond.first(cond.Days, cond.Value)
	assert.True(t, ok)
	assert.Equal(t, 4.0, v)

	cond, err = ParseBadgeCondition(`{}`)
	require.NoError(t, err)
	_, ok = cond.first(cond.Count)
	assert.False(t, ok)
}

func TestEvaluatorThresholds(t *testing.T) {
	parse := func(raw string) *BadgeCondition {
		cond, err := ParseBadgeCondition(raw)
		require.NoError(t, err)
		return cond
	}

	v, ok := quizScoreEvaluator{}.Threshold(parse(`{"score":100}`))
	assert.True(t, ok)
	assert.Equal(t, 100.0, v)

	_, ok = quizScoreEvaluator{}.Threshold(parse(`{"score":90,"count":5}`))
	assert.False(t, ok)

	v, ok = quizScoreEvaluator{}.Threshold(parse(`{"score":90,"count":1}`))
	assert.True(t, ok)
	assert.Equal(t, 90.0, v)

	v, ok = lessonCompletionEvaluator{}.Threshold(parse(`{"count":20}`))
	assert.True(t, ok)
	assert.Equal(t, 20.0, v)

	v, ok = loginStreakEvaluator{}.Threshold(parse(`{"days":7}`))
	assert.True(t, ok)
	assert.Equal(t, 7.0, v)

	_, ok = quizAverageEvaluator{}.Threshold(parse(`{"average":80}`))
	assert.False(t, ok)
}
