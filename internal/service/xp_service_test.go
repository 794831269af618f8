package service

import (
	"context"
	"sync"
	"testing"
	"time"
	"values_edu_backend/internal/model"
	"values_edu_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAwardQuizXP_BonusAtEightyPercent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.student(t, "ayu", nil)

	result, err := f.xp.AwardQuizXP(ctx, u.ID, 8, 10)
	require.NoError(t, err)

	assert.Equal(t, 8*QuizXPPerCorrect+QuizBonusXP, result.XPEarned)
	assert.Equal(t, QuizBonusXP, result.BonusXP)
	assert.Equal(t, 130, result.TotalXP)
	assert.Equal(t, 1, result.PreviousLevel)
	assert.Equal(t, 2, result.NewLevel)
	assert.True(t, result.LeveledUp)
	assert.Equal(t, 160, result.XPToNextLevel)
	assert.Equal(t, 30, result.CurrentLevelXP)
	require.NotNil(t, result.ScorePercentage)
	assert.Equal(t, 80.0, *result.ScorePercentage)

	rec, err := f.xpRepo.FindByUserID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 130, rec.TotalXP)
	assert.Equal(t, 2, rec.CurrentLevel)
	assert.Equal(t, 160, rec.XPToNextLevel)
}

func TestAwardQuizXP_NoBonusBelowThreshold(t *testing.T) {
	f := newFixture(t)
	u := f.student(t, "budi", nil)

	result, err := f.xp.AwardQuizXP(context.Background(), u.ID, 7, 10)
	require.NoError(t, err)

	assert.Equal(t, 70, result.XPEarned)
	assert.Equal(t, 0, result.BonusXP)
	assert.Equal(t, 70, result.TotalXP)
	assert.False(t, result.LeveledUp)
	assert.Equal(t, 1, result.NewLevel)
}

func TestAwardQuizXP_InvalidInput(t *testing.T) {
	f := newFixture(t)
	u := f.student(t, "citra", nil)

	_, err := f.xp.AwardQuizXP(context.Background(), u.ID, 1, 0)
	assert.ErrorIs(t, err, util.ErrInvalidQuiz)

	_, err = f.xp.AwardQuizXP(context.Background(), u.ID, 11, 10)
	assert.ErrorIs(t, err, util.ErrInvalidQuiz)

	_, err = f.xp.AwardQuizXP(context.Background(), u.ID, -1, 10)
	assert.ErrorIs(t, err, util.ErrInvalidQuiz)
}

func TestAwardQuizXP_PerfectScoreBadge(t *testing.T) {
	f := newFixture(t)
	u := f.student(t, "dewi", nil)

	result, err := f.xp.AwardQuizXP(context.Background(), u.ID, 10, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"Perfect Score"}, badgeNames(result.BadgesEarned))
}

func TestAwardLessonXP(t *testing.T) {
	f := newFixture(t)
	u := f.student(t, "eka", nil)

	result, err := f.xp.AwardLessonXP(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, LessonXP, result.XPEarned)
	assert.Equal(t, LessonXP, result.TotalXP)
	assert.Equal(t, ActionLessonCompleted, result.Action)
}

func TestAwardDailyLoginXP_SameDayIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.student(t, "fajar", nil)

	first, err := f.xp.AwardDailyLoginXP(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, first.AlreadyLoggedIn)
	assert.Equal(t, DailyLoginXP, first.XPEarned)
	assert.Equal(t, 0, first.BonusXP)
	assert.Equal(t, 1, first.LoginStreak)

	f.clock.Advance(5 * time.Hour)
	second, err := f.xp.AwardDailyLoginXP(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, second.AlreadyLoggedIn)
	assert.Equal(t, 0, second.XPEarned)
	assert.Equal(t, 1, second.LoginStreak)
	assert.Equal(t, DailyLoginXP, second.TotalXP)

	rec, err := f.xpRepo.FindByUserID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, DailyLoginXP, rec.TotalXP)
	assert.Equal(t, 1, rec.LoginStreak)
	assert.Equal(t, "2026-03-04", rec.LastLoginDate)
}

func TestAwardDailyLoginXP_ConcurrentRequests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.student(t, "gita", nil)

	const workers = 8
	var wg sync.WaitGroup
	results := make([]*XPAwardResult, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.xp.AwardDailyLoginXP(ctx, u.ID)
		}(i)
	}
	wg.Wait()

	awarded := 0
	for i := range results {
		require.NoError(t, errs[i])
		if !results[i].AlreadyLoggedIn {
			awarded++
		}
	}
	assert.Equal(t, 1, awarded)

	rec, err := f.xpRepo.FindByUserID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, DailyLoginXP, rec.TotalXP)
}

func TestAwardDailyLoginXP_StreakContinuesAndResets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.student(t, "hana", nil)

	_, err := f.xp.AwardDailyLoginXP(ctx, u.ID)
	require.NoError(t, err)

	f.clock.AddDays(1)
	r, err := f.xp.AwardDailyLoginXP(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, r.LoginStreak)

	// 跳过一天
	f.clock.AddDays(2)
	r, err = f.xp.AwardDailyLoginXP(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, r.LoginStreak)

	rec, err := f.xpRepo.FindByUserID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.LoginStreak)
}

func TestAwardDailyLoginXP_StreakBonusEveryDayFromSeven(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.student(t, "indra", nil)

	var day3, day7, day8 *XPAwardResult
	for day := 1; day <= 8; day++ {
		r, err := f.xp.AwardDailyLoginXP(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, day, r.LoginStreak)
		switch day {
		case 3:
			day3 = r
		case 7:
			day7 = r
		case 8:
			day8 = r
		}
		if day < StreakBonusDays {
			assert.Equal(t, 0, r.BonusXP, "day %d", day)
		}
		f.clock.AddDays(1)
	}

	assert.Contains(t, badgeNames(day3.BadgesEarned), "Three Day Streak")

	assert.Equal(t, DailyLoginXP+StreakBonusXP, day7.XPEarned)
	assert.Equal(t, StreakBonusXP, day7.BonusXP)
	assert.Equal(t, 6*DailyLoginXP+DailyLoginXP+StreakBonusXP, day7.TotalXP)

	assert.Equal(t, DailyLoginXP+StreakBonusXP, day8.XPEarned)
	assert.Equal(t, StreakBonusXP, day8.BonusXP)
	assert.Equal(t, day7.TotalXP+DailyLoginXP+StreakBonusXP, day8.TotalXP)

	list, err := f.notifications.List(ctx, u.ID, false, 100)
	require.NoError(t, err)
	streakNotes := 0
	for _, n := range list.Items {
		if n.Type == model.NotifyStreak {
			streakNotes++
		}
	}
	assert.Equal(t, 1, streakNotes)
}

func TestVirtuePoints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.student(t, "joko", nil)

	r, err := f.xp.AwardFlashcardVirtuePoints(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, FlashcardVirtuePoint, r.VirtuePointsEarned)

	r, err = f.xp.AwardWatchLessonVirtuePoints(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, WatchVirtuePoints, r.VirtuePointsEarned)

	r, err = f.xp.AwardLessonVirtuePoints(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, r.VirtuePoints)
	assert.Equal(t, 20, r.WeeklyVirtuePoints)

	rec, err := f.xpRepo.FindByUserID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, rec.TotalXP)
}

func TestResetWeeklyVirtuePoints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.student(t, "kiki", nil)

	_, err := f.xp.AwardWatchLessonVirtuePoints(ctx, u.ID)
	require.NoError(t, err)
	_, err = f.xp.AwardQuizXP(ctx, u.ID, 5, 10)
	require.NoError(t, err)

	res, err := f.xp.ResetWeeklyVirtuePoints(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-02", res.WeekStart)
	assert.Equal(t, int64(1), res.UsersReset)

	rec, err := f.xpRepo.FindByUserID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, rec.WeeklyVirtuePoints)
	assert.Equal(t, WatchVirtuePoints, rec.VirtuePoints)
	assert.Equal(t, 50, rec.TotalXP)
	assert.Equal(t, "2026-03-02", rec.WeekStartDate)
}

func TestRunScheduledWeeklyReset_OnlyOnMonday(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.student(t, "lina", nil)

	_, err := f.xp.AwardFlashcardVirtuePoints(ctx, u.ID)
	require.NoError(t, err)

	res, err := f.xp.RunScheduledWeeklyReset(ctx)
	require.NoError(t, err)
	assert.Nil(t, res)

	f.clock.Set(time.Date(2026, 3, 9, 0, 0, 5, 0, time.UTC))
	res, err = f.xp.RunScheduledWeeklyReset(ctx)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "2026-03-09", res.WeekStart)

	rec, err := f.xpRepo.FindByUserID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, rec.WeeklyVirtuePoints)
	assert.Equal(t, FlashcardVirtuePoint, rec.VirtuePoints)
}

func TestCatchUpWeeklyReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.student(t, "maya", nil)

	_, err := f.xp.AwardFlashcardVirtuePoints(ctx, u.ID)
	require.NoError(t, err)

	res, err := f.xp.CatchUpWeeklyReset(ctx)
	require.NoError(t, err)
	assert.Nil(t, res, "record already belongs to the current week")

	// 服务在周一停机，周三重启
	f.clock.AddDays(7)
	res, err = f.xp.CatchUpWeeklyReset(ctx)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "2026-03-09", res.WeekStart)

	rec, err := f.xpRepo.FindByUserID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, rec.WeeklyVirtuePoints)

	res, err = f.xp.CatchUpWeeklyReset(ctx)
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestGetXPSummary_Defaults(t *testing.T) {
	f := newFixture(t)
	u := f.student(t, "nina", nil)

	summary, err := f.xp.GetXPSummary(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Record.TotalXP)
	assert.Equal(t, 1, summary.Level.Level)
	assert.Equal(t, 100, summary.Level.XPToNextLevel)
	assert.Empty(t, summary.RecentEvents)
}

func TestGetXPSummary_RecentEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.student(t, "oki", nil)

	_, err := f.xp.AwardLessonXP(ctx, u.ID)
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	_, err = f.xp.AwardQuizXP(ctx, u.ID, 3, 10)
	require.NoError(t, err)

	summary, err := f.xp.GetXPSummary(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, summary.Record.TotalXP)
	require.Len(t, summary.RecentEvents, 2)
	assert.Equal(t, model.XPEventQuiz, summary.RecentEvents[0].EventType)
	assert.Equal(t, model.XPEventLesson, summary.RecentEvents[1].EventType)
}
