package service

import (
	"context"
	"fmt"
	"sort"
	"time"
	"values_edu_backend/internal/model"
	"values_edu_backend/internal/repository"
	"values_edu_backend/internal/util"
	"values_edu_backend/pkg/logger"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const (
	leaderboardLimit   = 10
	topPerformersLimit = 5
	recentActivityDays = 7
	recentActivityRows = 20
)

type ChallengeService struct {
	ChallengeRepo *repository.ChallengeRepository
	AnalyticsRepo *repository.AnalyticsRepository
	UserRepo      *repository.UserRepository
	BadgeRepo     *repository.BadgeRepository
	Cache         LeaderboardCache
	Notifier      Notifier

	validate *validator.Validate
	now      Clock
}

func NewChallengeService(
	challengeRepo *repository.ChallengeRepository,
	analyticsRepo *repository.AnalyticsRepository,
	userRepo *repository.UserRepository,
	badgeRepo *repository.BadgeRepository,
	cache LeaderboardCache,
	notifier Notifier,
	clock Clock,
) *ChallengeService {
	return &ChallengeService{
		ChallengeRepo: challengeRepo,
		AnalyticsRepo: analyticsRepo,
		UserRepo:      userRepo,
		BadgeRepo:     badgeRepo,
		Cache:         cache,
		Notifier:      notifier,
		validate:      validator.New(),
		now:           clock,
	}
}

type CreateChallengeRequest struct {
	Title         string    `json:"title" validate:"required,max=150"`
	Description   string    `json:"description" validate:"max=2000"`
	TargetType    string    `json:"target_type" validate:"required,oneof=lessons_completed xp_earned quiz_score"`
	TargetValue   float64   `json:"target_value" validate:"gt=0"`
	StartDate     time.Time `json:"start_date" validate:"required"`
	EndDate       time.Time `json:"end_date" validate:"required,gtfield=StartDate"`
	RewardBadgeID *uint     `json:"reward_badge_id"`
}

// AuthorizeClass 管理员可访问任意班级，其余用户仅限本班
func AuthorizeClass(user *util.CurrentUser, classID uint) error {
	if user == nil {
		return util.ErrPermissionDenied
	}
	if user.Role == model.Admin {
		return nil
	}
	if user.ClassID == nil || *user.ClassID != classID {
		return util.ErrPermissionDenied
	}
	return nil
}

func (s *ChallengeService) CreateChallenge(ctx context.Context, creator *util.CurrentUser, classID uint, req CreateChallengeRequest) (*model.ClassChallenge, error) {
	if creator == nil || (creator.Role != model.Teacher && creator.Role != model.Admin) {
		return nil, util.ErrPermissionDenied
	}
	if err := AuthorizeClass(creator, classID); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrInvalidChallenge, err)
	}
	if req.RewardBadgeID != nil {
		if _, err := s.BadgeRepo.FindByID(ctx, *req.RewardBadgeID); err != nil {
			return nil, translateNotFound(err, util.ErrBadgeNotFound)
		}
	}

	challenge := &model.ClassChallenge{
		ClassID:       classID,
		Title:         req.Title,
		Description:   req.Description,
		TargetType:    model.ChallengeTargetType(req.TargetType),
		TargetValue:   req.TargetValue,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		RewardBadgeID: req.RewardBadgeID,
		CreatedBy:     creator.UserID,
	}
	if err := s.ChallengeRepo.Create(ctx, challenge); err != nil {
		return nil, err
	}

	s.notifyClass(ctx, challenge)
	return challenge, nil
}

func (s *ChallengeService) notifyClass(ctx context.Context, challenge *model.ClassChallenge) {
	if s.Notifier == nil {
		return
	}
	students, err := s.UserRepo.FindStudentsByClass(ctx, challenge.ClassID)
	if err != nil {
		logger.Log.Warn("load class students for challenge notification failed",
			zap.Uint("classID", challenge.ClassID), zap.Error(err))
		return
	}
	for _, st := range students {
		_, err := s.Notifier.Notify(ctx, st.ID, model.NotifyChallenge,
			"New class challenge",
			challenge.Title,
			map[string]interface{}{
				"challenge_id": challenge.ID,
				"target_type":  challenge.TargetType,
				"target_value": challenge.TargetValue,
				"end_date":     challenge.EndDate,
			},
		)
		if err != nil {
			logger.Log.Warn("challenge notification failed", zap.Uint("userID", st.ID), zap.Error(err))
		}
	}
}

func (s *ChallengeService) ListClassChallenges(ctx context.Context, classID uint) ([]model.ClassChallenge, error) {
	challenges, err := s.ChallengeRepo.FindByClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	if challenges == nil {
		challenges = []model.ClassChallenge{}
	}
	return challenges, nil
}

func (s *ChallengeService) GetChallenge(ctx context.Context, challengeID uint) (*model.ClassChallenge, error) {
	challenge, err := s.ChallengeRepo.FindByID(ctx, challengeID)
	if err != nil {
		return nil, translateNotFound(err, util.ErrChallengeNotFound)
	}
	return challenge, nil
}

// challengeValue 按目标类型取学生当前值
func challengeValue(targetType model.ChallengeTargetType, m model.StudentMetric) float64 {
	switch targetType {
	case model.TargetLessonsCompleted:
		return float64(m.LessonsCompleted)
	case model.TargetXPEarned:
		return float64(m.TotalXP)
	case model.TargetQuizScore:
		if m.AverageScore != nil {
			return *m.AverageScore
		}
	}
	return 0
}

// GetChallengeProgress 读时计算班级每个学生的挑战进度
func (s *ChallengeService) GetChallengeProgress(ctx context.Context, challengeID uint) (*model.ChallengeProgress, error) {
	challenge, err := s.GetChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	metrics, err := s.AnalyticsRepo.ClassStudentMetrics(ctx, challenge.ClassID)
	if err != nil {
		return nil, err
	}

	progress := &model.ChallengeProgress{
		Challenge: *challenge,
		Students:  make([]model.StudentChallengeProgress, 0, len(metrics)),
	}
	for _, m := range metrics {
		current := challengeValue(challenge.TargetType, m)
		done := current >= challenge.TargetValue
		if done {
			progress.CompletedCount++
		}
		progress.Students = append(progress.Students, model.StudentChallengeProgress{
			UserID:       m.UserID,
			DisplayName:  m.DisplayName,
			CurrentValue: current,
			TargetValue:  challenge.TargetValue,
			Completed:    done,
		})
	}
	return progress, nil
}

func (s *ChallengeService) GetClassLeaderboard(ctx context.Context, classID uint) ([]model.LeaderboardEntry, error) {
	if s.Cache != nil {
		if entries, ok := s.Cache.Get(ctx, classID); ok {
			return entries, nil
		}
	}

	entries, err := s.AnalyticsRepo.ClassLeaderboard(ctx, classID, leaderboardLimit)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []model.LeaderboardEntry{}
	}
	if s.Cache != nil {
		s.Cache.Set(ctx, classID, entries)
	}
	return entries, nil
}

// InvalidateUser 用户所在班级的排行榜缓存失效
func (s *ChallengeService) InvalidateUser(ctx context.Context, userID uint) {
	if s.Cache == nil {
		return
	}
	user, err := s.UserRepo.FindByID(ctx, userID)
	if err != nil || user.ClassID == nil {
		return
	}
	s.Cache.Invalidate(ctx, *user.ClassID)
}

// GetClassAnalytics 班级聚合统计，完成率为至少完成一次课程的学生占比
func (s *ChallengeService) GetClassAnalytics(ctx context.Context, classID uint) (*model.ClassAnalytics, error) {
	metrics, err := s.AnalyticsRepo.ClassStudentMetrics(ctx, classID)
	if err != nil {
		return nil, err
	}

	analytics := &model.ClassAnalytics{
		ClassID:        classID,
		StudentCount:   int64(len(metrics)),
		TopPerformers:  []model.TopPerformer{},
		RecentActivity: []model.ActivityFeedItem{},
	}

	if len(metrics) > 0 {
		var totalXP, totalLevel float64
		var active int
		for _, m := range metrics {
			totalXP += float64(m.TotalXP)
			totalLevel += float64(m.CurrentLevel)
			if m.LessonsCompleted > 0 {
				active++
			}
		}
		n := float64(len(metrics))
		analytics.AverageXP = util.Round2(totalXP / n)
		analytics.AverageLevel = util.Round2(totalLevel / n)
		analytics.LessonCompletion = util.Percentage(float64(active), n)

		ranked := make([]model.StudentMetric, len(metrics))
		copy(ranked, metrics)
		sort.SliceStable(ranked, func(i, j int) bool {
			if ranked[i].TotalXP != ranked[j].TotalXP {
				return ranked[i].TotalXP > ranked[j].TotalXP
			}
			return ranked[i].CurrentLevel > ranked[j].CurrentLevel
		})
		for i := 0; i < len(ranked) && i < topPerformersLimit; i++ {
			analytics.TopPerformers = append(analytics.TopPerformers, model.TopPerformer{
				UserID:       ranked[i].UserID,
				DisplayName:  ranked[i].DisplayName,
				TotalXP:      ranked[i].TotalXP,
				CurrentLevel: ranked[i].CurrentLevel,
			})
		}
	}

	since := s.now().AddDate(0, 0, -recentActivityDays)
	recent, err := s.AnalyticsRepo.RecentClassActivity(ctx, classID, since, recentActivityRows)
	if err != nil {
		return nil, err
	}
	if recent != nil {
		analytics.RecentActivity = recent
	}

	analytics.ActiveStudentsWeek, err = s.AnalyticsRepo.ActiveStudentsSince(ctx, classID, since)
	if err != nil {
		return nil, err
	}
	return analytics, nil
}
