package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"values_edu_backend/internal/model"
	"values_edu_backend/internal/repository"
	"values_edu_backend/internal/util"
)

// BadgeCondition 徽章条件参数；condition_value 可为裸数字或对象
type BadgeCondition struct {
	Bare           *float64 `json:"-"`
	Count          *float64 `json:"count,omitempty"`
	Score          *float64 `json:"score,omitempty"`
	Days           *float64 `json:"days,omitempty"`
	Value          *float64 `json:"value,omitempty"`
	Exact          bool     `json:"exact,omitempty"`
	Average        *float64 `json:"average,omitempty"`
	MinimumQuizzes *float64 `json:"minimum_quizzes,omitempty"`
	BadgesEarned   *float64 `json:"badges_earned,omitempty"`
}

func ParseBadgeCondition(raw string) (*BadgeCondition, error) {
	data := bytes.TrimSpace([]byte(raw))
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty condition", util.ErrInvalidCondition)
	}

	if data[0] == '{' {
		var cond BadgeCondition
		if err := json.Unmarshal(data, &cond); err != nil {
			return nil, fmt.Errorf("%w: %v", util.ErrInvalidCondition, err)
		}
		return &cond, nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrInvalidCondition, err)
	}
	return &BadgeCondition{Bare: &n}, nil
}

// first 返回第一个非空字段，裸数字优先
func (c *BadgeCondition) first(fields ...*float64) (float64, bool) {
	if c.Bare != nil {
		return *c.Bare, true
	}
	for _, f := range fields {
		if f != nil {
			return *f, true
		}
	}
	return 0, false
}

func atLeast(actual float64, threshold *float64) bool {
	return threshold != nil && actual >= *threshold
}

// badgeFacts 评估时按需加载的用户统计
type badgeFacts struct {
	userID   uint
	progress *repository.ProgressRepository
	xp       *repository.XPRepository
	badges   *repository.BadgeRepository
	clock    Clock

	completed *int64
	stats     *repository.ScoreStats
}

func (f *badgeFacts) completedCount(ctx context.Context) (int64, error) {
	if f.completed == nil {
		n, err := f.progress.CountCompleted(ctx, f.userID)
		if err != nil {
			return 0, err
		}
		f.completed = &n
	}
	return *f.completed, nil
}

func (f *badgeFacts) scoreStats(ctx context.Context) (*repository.ScoreStats, error) {
	if f.stats == nil {
		s, err := f.progress.ScoreStats(ctx, f.userID)
		if err != nil {
			return nil, err
		}
		f.stats = s
	}
	return f.stats, nil
}

func (f *badgeFacts) loginStreak(ctx context.Context) (int, error) {
	rec, err := f.xp.FindByUserID(ctx, f.userID)
	if err != nil {
		if isNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	return rec.LoginStreak, nil
}

// ConditionEvaluator 同一条件类型的两种判定方式
type ConditionEvaluator interface {
	// Threshold 阈值型判定使用的门槛；不支持时 ok=false
	Threshold(cond *BadgeCondition) (float64, bool)
	// Satisfied 依据用户当前数据判定
	Satisfied(ctx context.Context, facts *badgeFacts, cond *BadgeCondition) (bool, error)
}

type lessonCompletionEvaluator struct{}

func (lessonCompletionEvaluator) Threshold(cond *BadgeCondition) (float64, bool) {
	return cond.first(cond.Count)
}

func (lessonCompletionEvaluator) Satisfied(ctx context.Context, facts *badgeFacts, cond *BadgeCondition) (bool, error) {
	n, err := facts.completedCount(ctx)
	if err != nil {
		return false, err
	}
	threshold, ok := cond.first(cond.Count)
	return ok && float64(n) >= threshold, nil
}

type quizScoreEvaluator struct{}

// Threshold 需要多次高分的条件不适用阈值判定
func (quizScoreEvaluator) Threshold(cond *BadgeCondition) (float64, bool) {
	if cond.Count != nil && *cond.Count > 1 {
		return 0, false
	}
	return cond.first(cond.Score)
}

func (quizScoreEvaluator) Satisfied(ctx context.Context, facts *badgeFacts, cond *BadgeCondition) (bool, error) {
	score, ok := cond.first(cond.Score)
	if !ok {
		return false, nil
	}
	n, err := facts.progress.CountWithScoreAtLeast(ctx, facts.userID, score)
	if err != nil {
		return false, err
	}
	if cond.Count != nil && *cond.Count > 1 {
		return float64(n) >= *cond.Count, nil
	}
	return n >= 1, nil
}

// loginStreakEvaluator 同时服务 login_streak 与 streak
type loginStreakEvaluator struct{}

func (loginStreakEvaluator) Threshold(cond *BadgeCondition) (float64, bool) {
	return cond.first(cond.Days, cond.Value)
}

func (loginStreakEvaluator) Satisfied(ctx context.Context, facts *badgeFacts, cond *BadgeCondition) (bool, error) {
	threshold, ok := cond.first(cond.Days, cond.Value)
	if !ok {
		return false, nil
	}
	streak, err := facts.loginStreak(ctx)
	if err != nil {
		return false, err
	}
	return float64(streak) >= threshold, nil
}

type dailyLessonsEvaluator struct{}

func (dailyLessonsEvaluator) Threshold(*BadgeCondition) (float64, bool) { return 0, false }

func (dailyLessonsEvaluator) Satisfied(ctx context.Context, facts *badgeFacts, cond *BadgeCondition) (bool, error) {
	target, ok := cond.first(cond.Count)
	if !ok {
		return false, nil
	}
	start, end := util.DayRange(facts.clock())
	n, err := facts.progress.CountCompletedBetween(ctx, facts.userID, start, end)
	if err != nil {
		return false, err
	}
	if cond.Exact {
		return float64(n) == target, nil
	}
	return float64(n) >= target, nil
}

type quizAverageEvaluator struct{}

func (quizAverageEvaluator) Threshold(*BadgeCondition) (float64, bool) { return 0, false }

func (quizAverageEvaluator) Satisfied(ctx context.Context, facts *badgeFacts, cond *BadgeCondition) (bool, error) {
	if cond.Average == nil {
		return false, nil
	}
	stats, err := facts.scoreStats(ctx)
	if err != nil {
		return false, err
	}
	minimum := 1.0
	if cond.MinimumQuizzes != nil {
		minimum = *cond.MinimumQuizzes
	}
	return stats.Average >= *cond.Average && float64(stats.Count) >= minimum, nil
}

// quizStreakEvaluator 尚未定义连续测验规则，始终不满足
type quizStreakEvaluator struct{}

func (quizStreakEvaluator) Threshold(*BadgeCondition) (float64, bool) { return 0, false }

func (quizStreakEvaluator) Satisfied(context.Context, *badgeFacts, *BadgeCondition) (bool, error) {
	return false, nil
}

type badgeCollectionEvaluator struct{}

func (badgeCollectionEvaluator) Threshold(*BadgeCondition) (float64, bool) { return 0, false }

// Satisfied 每次实时计数，同一批次内先发放的徽章也会计入
func (badgeCollectionEvaluator) Satisfied(ctx context.Context, facts *badgeFacts, cond *BadgeCondition) (bool, error) {
	n, err := facts.badges.CountByUser(ctx, facts.userID)
	if err != nil {
		return false, err
	}
	return atLeast(float64(n), cond.BadgesEarned), nil
}

func defaultEvaluators() map[string]ConditionEvaluator {
	streak := loginStreakEvaluator{}
	return map[string]ConditionEvaluator{
		model.ConditionLessonCompletion: lessonCompletionEvaluator{},
		model.ConditionQuizScore:        quizScoreEvaluator{},
		model.ConditionLoginStreak:      streak,
		model.ConditionStreak:           streak,
		model.ConditionDailyLessons:     dailyLessonsEvaluator{},
		model.ConditionQuizAverage:      quizAverageEvaluator{},
		model.ConditionQuizStreak:       quizStreakEvaluator{},
		model.ConditionBadgeCollection:  badgeCollectionEvaluator{},
	}
}

// thresholdConditionTypes 支持阈值型判定的条件类型
var thresholdConditionTypes = map[string]bool{
	model.ConditionLessonCompletion: true,
	model.ConditionQuizScore:        true,
	model.ConditionStreak:           true,
}
