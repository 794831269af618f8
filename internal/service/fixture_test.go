package service

import (
	"context"
	"testing"
	"time"
	"values_edu_backend/internal/config"
	"values_edu_backend/internal/model"
	"values_edu_backend/internal/repository"
	"values_edu_backend/internal/testutil"

	"gorm.io/gorm"
)

// 2026-03-04 为周三
var wednesday = time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

type fixture struct {
	db    *gorm.DB
	clock *testutil.Clock

	userRepo     *repository.UserRepository
	xpRepo       *repository.XPRepository
	badgeRepo    *repository.BadgeRepository
	progressRepo *repository.ProgressRepository

	notifications *NotificationService
	achievements  *AchievementService
	xp            *XPService
	progress      *ProgressService
	challenges    *ChallengeService
	badges        *BadgeService
	users         *UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	clock := testutil.NewClock(wednesday)
	now := Clock(clock.Now)

	f := &fixture{
		db:           db,
		clock:        clock,
		userRepo:     repository.NewUserRepository(db),
		xpRepo:       repository.NewXPRepository(db),
		badgeRepo:    repository.NewBadgeRepository(db),
		progressRepo: repository.NewProgressRepository(db),
	}

	f.notifications = NewNotificationService(repository.NewNotificationRepository(db), 0, now)
	f.achievements = NewAchievementService(f.badgeRepo, f.progressRepo, f.xpRepo, f.userRepo, f.notifications, now)
	f.challenges = NewChallengeService(
		repository.NewChallengeRepository(db),
		repository.NewAnalyticsRepository(db),
		f.userRepo,
		f.badgeRepo,
		NewMemoryLeaderboardCache(time.Minute),
		f.notifications,
		now,
	)
	f.xp = NewXPService(f.xpRepo, repository.NewCheckinRepository(db), f.progressRepo, f.achievements, f.notifications, now)
	f.xp.Leaderboard = f.challenges
	f.progress = NewProgressService(f.progressRepo, f.xpRepo, f.xp, f.achievements, NewMemoryLocker(), now)
	f.badges = NewBadgeService(f.badgeRepo, NewStorageService(&config.StorageConfig{Type: "local", LocalPath: t.TempDir()}), now)
	f.users = NewUserService(f.userRepo)
	return f
}

func (f *fixture) student(t *testing.T, name string, classID *uint) *model.User {
	return testutil.CreateUser(t, f.db, name, model.Student, classID)
}

func badgeNames(badges []model.BadgeDefinition) []string {
	names := make([]string, 0, len(badges))
	for _, b := range badges {
		names = append(names, b.Name)
	}
	return names
}

// addScoredRecords 直接写入带分数的完成记录
func (f *fixture) addScoredRecords(t *testing.T, userID uint, score float64, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		s := score
		rec := &model.ProgressRecord{
			UserID:       userID,
			LessonID:     "quiz-seed",
			Completed:    true,
			Score:        &s,
			ActivityType: model.ActivityQuiz,
			CompletedAt:  f.clock.Now(),
		}
		if err := f.progressRepo.Create(context.Background(), rec); err != nil {
			t.Fatal(err)
		}
	}
}
