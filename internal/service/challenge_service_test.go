package service

import (
	"context"
	"testing"
	"time"
	"values_edu_backend/internal/model"
	"values_edu_backend/internal/testutil"
	"values_edu_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type classFixture struct {
	*fixture
	classID uint
	teacher *util.CurrentUser
	alice   *model.User
	bob     *model.User
	outside *model.User
}

func newClassFixture(t *testing.T) *classFixture {
	f := newFixture(t)
	classID := uint(7)
	teacher := testutil.CreateUser(t, f.db, "teacher", model.Teacher, testutil.UintPtr(classID))
	return &classFixture{
		fixture: f,
		classID: classID,
		teacher: &util.CurrentUser{UserID: teacher.ID, Role: model.Teacher, ClassID: teacher.ClassID},
		alice:   f.student(t, "alice", testutil.UintPtr(classID)),
		bob:     f.student(t, "bob", testutil.UintPtr(classID)),
		outside: f.student(t, "carol", testutil.UintPtr(8)),
	}
}

func (c *classFixture) validRequest() CreateChallengeRequest {
	return CreateChallengeRequest{
		Title:       "Two lessons this week",
		TargetType:  string(model.TargetLessonsCompleted),
		TargetValue: 2,
		StartDate:   wednesday,
		EndDate:     wednesday.AddDate(0, 0, 7),
	}
}

func TestAuthorizeClass(t *testing.T) {
	classID := uint(3)
	assert.NoError(t, AuthorizeClass(&util.CurrentUser{Role: model.Admin}, 99))
	assert.NoError(t, AuthorizeClass(&util.CurrentUser{Role: model.Teacher, ClassID: &classID}, 3))
	assert.ErrorIs(t, AuthorizeClass(&util.CurrentUser{Role: model.Teacher, ClassID: &classID}, 4), util.ErrPermissionDenied)
	assert.ErrorIs(t, AuthorizeClass(&util.CurrentUser{Role: model.Student}, 3), util.ErrPermissionDenied)
	assert.ErrorIs(t, AuthorizeClass(nil, 3), util.ErrPermissionDenied)
}

func TestCreateChallenge(t *testing.T) {
	c := newClassFixture(t)
	ctx := context.Background()

	challenge, err := c.challenges.CreateChallenge(ctx, c.teacher, c.classID, c.validRequest())
	require.NoError(t, err)
	assert.NotZero(t, challenge.ID)
	assert.Equal(t, c.classID, challenge.ClassID)
	assert.Equal(t, c.teacher.UserID, challenge.CreatedBy)

	for _, u := range []*model.User{c.alice, c.bob} {
		list, err := c.notifications.List(ctx, u.ID, true, 10)
		require.NoError(t, err)
		require.Len(t, list.Items, 1)
		assert.Equal(t, model.NotifyChallenge, list.Items[0].Type)
	}
	list, err := c.notifications.List(ctx, c.outside.ID, true, 10)
	require.NoError(t, err)
	assert.Empty(t, list.Items)

	challenges, err := c.challenges.ListClassChallenges(ctx, c.classID)
	require.NoError(t, err)
	assert.Len(t, challenges, 1)

	other, err := c.challenges.ListClassChallenges(ctx, 8)
	require.NoError(t, err)
	assert.NotNil(t, other)
	assert.Empty(t, other)
}

func TestCreateChallenge_Rejections(t *testing.T) {
	c := newClassFixture(t)
	ctx := context.Background()

	student := &util.CurrentUser{UserID: c.alice.ID, Role: model.Student, ClassID: c.alice.ClassID}
	_, err := c.challenges.CreateChallenge(ctx, student, c.classID, c.validRequest())
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	_, err = c.challenges.CreateChallenge(ctx, c.teacher, 8, c.validRequest())
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	req := c.validRequest()
	req.EndDate = req.StartDate.Add(-time.Hour)
	_, err = c.challenges.CreateChallenge(ctx, c.teacher, c.classID, req)
	assert.ErrorIs(t, err, util.ErrInvalidChallenge)

	req = c.validRequest()
	req.TargetType = "virtue_points"
	_, err = c.challenges.CreateChallenge(ctx, c.teacher, c.classID, req)
	assert.ErrorIs(t, err, util.ErrInvalidChallenge)

	req = c.validRequest()
	req.TargetValue = 0
	_, err = c.challenges.CreateChallenge(ctx, c.teacher, c.classID, req)
	assert.ErrorIs(t, err, util.ErrInvalidChallenge)

	req = c.validRequest()
	req.RewardBadgeID = testutil.UintPtr(9999)
	_, err = c.challenges.CreateChallenge(ctx, c.teacher, c.classID, req)
	assert.ErrorIs(t, err, util.ErrBadgeNotFound)

	admin := &util.CurrentUser{UserID: c.teacher.UserID, Role: model.Admin}
	_, err = c.challenges.CreateChallenge(ctx, admin, 8, c.validRequest())
	assert.NoError(t, err)
}

func TestGetChallengeProgress(t *testing.T) {
	c := newClassFixture(t)
	ctx := context.Background()

	challenge, err := c.challenges.CreateChallenge(ctx, c.teacher, c.classID, c.validRequest())
	require.NoError(t, err)

	for _, lesson := range []string{"l1", "l2"} {
		_, err := c.progress.CompleteLesson(ctx, c.alice.ID, lesson, LessonCompletionOptions{})
		require.NoError(t, err)
	}
	_, err = c.progress.CompleteLesson(ctx, c.bob.ID, "l1", LessonCompletionOptions{})
	require.NoError(t, err)

	progress, err := c.challenges.GetChallengeProgress(ctx, challenge.ID)
	require.NoError(t, err)
	require.Len(t, progress.Students, 2)
	assert.Equal(t, 1, progress.CompletedCount)

	byUser := map[uint]model.StudentChallengeProgress{}
	for _, s := range progress.Students {
		byUser[s.UserID] = s
	}
	assert.True(t, byUser[c.alice.ID].Completed)
	assert.Equal(t, 2.0, byUser[c.alice.ID].CurrentValue)
	assert.False(t, byUser[c.bob.ID].Completed)
	assert.Equal(t, 1.0, byUser[c.bob.ID].CurrentValue)

	_, err = c.challenges.GetChallengeProgress(ctx, 9999)
	assert.ErrorIs(t, err, util.ErrChallengeNotFound)
}

func TestGetClassLeaderboard(t *testing.T) {
	c := newClassFixture(t)
	ctx := context.Background()

	_, err := c.progress.CompleteLesson(ctx, c.alice.ID, "l1", LessonCompletionOptions{})
	require.NoError(t, err)
	_, err = c.progress.CompleteQuiz(ctx, c.bob.ID, "q1", 9, 10)
	require.NoError(t, err)
	_, err = c.progress.CompleteQuiz(ctx, c.outside.ID, "q1", 10, 10)
	require.NoError(t, err)

	board, err := c.challenges.GetClassLeaderboard(ctx, c.classID)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, c.bob.ID, board[0].UserID)
	assert.Equal(t, 1, board[0].Rank)
	assert.Equal(t, 140, board[0].TotalXP)
	assert.Equal(t, c.alice.ID, board[1].UserID)
	assert.Equal(t, 2, board[1].Rank)
	assert.Equal(t, int64(1), board[1].LessonsCompleted)
	assert.Equal(t, int64(1), board[1].BadgeCount)

	// 经验变化使缓存失效
	for _, q := range []string{"q2", "q3"} {
		_, err = c.progress.CompleteQuiz(ctx, c.alice.ID, q, 10, 10)
		require.NoError(t, err)
	}
	board, err = c.challenges.GetClassLeaderboard(ctx, c.classID)
	require.NoError(t, err)
	assert.Equal(t, c.alice.ID, board[0].UserID)
}

func TestGetClassAnalytics(t *testing.T) {
	c := newClassFixture(t)
	ctx := context.Background()

	_, err := c.progress.CompleteLesson(ctx, c.alice.ID, "l1", LessonCompletionOptions{})
	require.NoError(t, err)
	_, err = c.progress.CompleteLesson(ctx, c.alice.ID, "l2", LessonCompletionOptions{})
	require.NoError(t, err)

	analytics, err := c.challenges.GetClassAnalytics(ctx, c.classID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), analytics.StudentCount)
	assert.Equal(t, 20.0, analytics.AverageXP)
	assert.Equal(t, 1.0, analytics.AverageLevel)
	assert.Equal(t, 50.0, analytics.LessonCompletion)
	require.Len(t, analytics.TopPerformers, 2)
	assert.Equal(t, c.alice.ID, analytics.TopPerformers[0].UserID)
	assert.Len(t, analytics.RecentActivity, 2)
	assert.Equal(t, int64(1), analytics.ActiveStudentsWeek)

	empty, err := c.challenges.GetClassAnalytics(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(0), empty.StudentCount)
	assert.Equal(t, 0.0, empty.LessonCompletion)
	assert.NotNil(t, empty.TopPerformers)
	assert.NotNil(t, empty.RecentActivity)
}
