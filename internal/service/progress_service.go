package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"values_edu_backend/internal/model"
	"values_edu_backend/internal/repository"
	"values_edu_backend/internal/util"
	"values_edu_backend/pkg/logger"
	"values_edu_backend/pkg/monitoring"
	"values_edu_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ProgressService struct {
	ProgressRepo *repository.ProgressRepository
	XPRepo       *repository.XPRepository
	XP           *XPService
	Achievements *AchievementService
	Locker       Locker

	now Clock
}

func NewProgressService(
	progressRepo *repository.ProgressRepository,
	xpRepo *repository.XPRepository,
	xp *XPService,
	achievements *AchievementService,
	locker Locker,
	clock Clock,
) *ProgressService {
	if locker == nil {
		locker = NewMemoryLocker()
	}
	return &ProgressService{
		ProgressRepo: progressRepo,
		XPRepo:       xpRepo,
		XP:           xp,
		Achievements: achievements,
		Locker:       locker,
		now:          clock,
	}
}

// LessonCompletionOptions 课程内活动定位，均可为空
type LessonCompletionOptions struct {
	DayIndex      *int   `json:"day_index"`
	ActivityIndex *int   `json:"activity_index"`
	ActivityType  string `json:"activity_type"`
}

// CompletionResult 课程/测验完成的返回结构
type CompletionResult struct {
	XPEarned           int                     `json:"xp_earned"`
	BonusXP            int                     `json:"bonus_xp"`
	TotalXP            int                     `json:"total_xp"`
	NewLevel           int                     `json:"new_level"`
	LeveledUp          bool                    `json:"leveled_up"`
	XPToNextLevel      int                     `json:"xp_to_next_level"`
	CurrentLevelXP     int                     `json:"current_level_xp"`
	BadgesEarned       []model.BadgeDefinition `json:"badges_earned"`
	NewAchievements    []model.BadgeDefinition `json:"new_achievements"`
	ScorePercentage    *float64                `json:"score_percentage,omitempty"`
	VirtuePointsEarned int                     `json:"virtue_points_earned"`
	AlreadyCompleted   bool                    `json:"already_completed"`
	Action             string                  `json:"action"`
}

func newCompletionResult(xp *XPAwardResult) *CompletionResult {
	return &CompletionResult{
		XPEarned:        xp.XPEarned,
		BonusXP:         xp.BonusXP,
		TotalXP:         xp.TotalXP,
		NewLevel:        xp.NewLevel,
		LeveledUp:       xp.LeveledUp,
		XPToNextLevel:   xp.XPToNextLevel,
		CurrentLevelXP:  xp.CurrentLevelXP,
		BadgesEarned:    xp.BadgesEarned,
		NewAchievements: []model.BadgeDefinition{},
		ScorePercentage: xp.ScorePercentage,
		Action:          xp.Action,
	}
}

type ActivityResult struct {
	*VirtuePointsResult
	Action string `json:"action"`
}

func lessonLockKey(userID uint, lessonID string) string {
	return fmt.Sprintf("lesson:%d:%s", userID, lessonID)
}

// CompleteLesson 同一 (用户, 课程) 只奖励一次；加锁并在事务内检查与插入完成记录
func (s *ProgressService) CompleteLesson(ctx context.Context, userID uint, lessonID string, opts LessonCompletionOptions) (result *CompletionResult, err error) {
	lessonID = strings.TrimSpace(lessonID)
	if lessonID == "" {
		return nil, util.ErrInvalidLessonID
	}

	ctx, span := tracing.StartSpan(ctx, "progress.CompleteLesson",
		attribute.Int64("user.id", int64(userID)),
		attribute.String("lesson.id", lessonID),
	)
	defer func() { tracing.EndSpan(span, err) }()

	unlock, err := s.Locker.Lock(ctx, lessonLockKey(userID, lessonID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	record, alreadyCompleted, err := s.insertLessonCompletion(ctx, userID, lessonID, opts)
	if err != nil {
		return nil, err
	}
	if alreadyCompleted {
		span.SetAttributes(attribute.Bool("lesson.already_completed", true))
		return s.alreadyCompleted(ctx, userID, lessonID)
	}

	xpResult, err := s.XP.AwardLessonXP(ctx, userID)
	if err != nil {
		// 回滚完成记录，允许客户端重试
		if delErr := s.ProgressRepo.Delete(ctx, record.ID); delErr != nil {
			logger.Log.Error("rollback lesson completion failed",
				zap.Uint("userID", userID), zap.String("lessonID", lessonID), zap.Error(delErr))
		}
		return nil, err
	}
	result = newCompletionResult(xpResult)

	vp, err := s.XP.AwardLessonVirtuePoints(ctx, userID)
	if err != nil {
		return nil, err
	}
	result.VirtuePointsEarned = vp.VirtuePointsEarned

	activityData := map[string]interface{}{"lesson_id": lessonID}
	achievements, err := s.Achievements.CheckActivities(ctx, userID, activityData,
		model.ConditionLessonCompletion,
		model.ConditionDailyLessons,
		model.ConditionBadgeCollection,
	)
	if err != nil {
		return nil, err
	}
	result.NewAchievements = achievements

	logger.Log.Info("lesson completed",
		zap.Uint("userID", userID),
		zap.String("lessonID", lessonID),
		zap.Int("xp", result.XPEarned),
		zap.Int("level", result.NewLevel),
	)
	return result, nil
}

func (s *ProgressService) insertLessonCompletion(ctx context.Context, userID uint, lessonID string, opts LessonCompletionOptions) (*model.ProgressRecord, bool, error) {
	var record *model.ProgressRecord
	alreadyCompleted := false

	err := s.ProgressRepo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.ProgressRepo.WithTx(tx)
		_, err := repo.FindCompleted(ctx, userID, lessonID)
		if err == nil {
			alreadyCompleted = true
			return nil
		}
		if !isNotFound(err) {
			return err
		}

		activityType := opts.ActivityType
		if activityType == "" {
			activityType = model.ActivityLesson
		}
		key := model.LessonCompletionKey(userID, lessonID)
		record = &model.ProgressRecord{
			UserID:        userID,
			LessonID:      lessonID,
			Completed:     true,
			DayIndex:      opts.DayIndex,
			ActivityIndex: opts.ActivityIndex,
			ActivityType:  activityType,
			CompletedAt:   s.now(),
			CompletionKey: &key,
		}
		return repo.Create(ctx, record)
	})
	if err != nil {
		// 锁失效或多实例无共享锁时，由唯一索引兜底
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, true, nil
		}
		return nil, false, err
	}
	return record, alreadyCompleted, nil
}

// alreadyCompleted 重复完成不产生任何副作用，只返回当前等级
func (s *ProgressService) alreadyCompleted(ctx context.Context, userID uint, lessonID string) (*CompletionResult, error) {
	monitoring.DuplicateCompletions.Inc()
	logger.Log.Debug("lesson already completed", zap.Uint("userID", userID), zap.String("lessonID", lessonID))

	info := CalculateLevel(0)
	rec, err := s.XPRepo.FindByUserID(ctx, userID)
	if err == nil {
		info = CalculateLevel(rec.TotalXP)
	} else if !isNotFound(err) {
		return nil, err
	}

	result := &CompletionResult{
		NewLevel:         info.Level,
		XPToNextLevel:    info.XPToNextLevel,
		CurrentLevelXP:   info.CurrentLevelXP,
		BadgesEarned:     []model.BadgeDefinition{},
		NewAchievements:  []model.BadgeDefinition{},
		AlreadyCompleted: true,
		Action:           ActionAlreadyCompleted,
	}
	if rec != nil {
		result.TotalXP = rec.TotalXP
	}
	return result, nil
}

// CompleteQuiz 测验不做重复提交校验，每次提交都记录并发放经验
func (s *ProgressService) CompleteQuiz(ctx context.Context, userID uint, quizID string, score, totalQuestions int) (result *CompletionResult, err error) {
	quizID = strings.TrimSpace(quizID)
	if quizID == "" {
		return nil, util.ErrInvalidLessonID
	}
	if totalQuestions <= 0 || score < 0 || score > totalQuestions {
		return nil, util.ErrInvalidQuiz
	}

	ctx, span := tracing.StartSpan(ctx, "progress.CompleteQuiz",
		attribute.Int64("user.id", int64(userID)),
		attribute.String("quiz.id", quizID),
	)
	defer func() { tracing.EndSpan(span, err) }()

	pct := QuizScorePercentage(score, totalQuestions)
	record := &model.ProgressRecord{
		UserID:       userID,
		LessonID:     quizID,
		Completed:    true,
		Score:        &pct,
		ActivityType: model.ActivityQuiz,
		CompletedAt:  s.now(),
	}
	if err := s.ProgressRepo.Create(ctx, record); err != nil {
		return nil, err
	}

	xpResult, err := s.XP.AwardQuizXP(ctx, userID, score, totalQuestions)
	if err != nil {
		return nil, err
	}
	result = newCompletionResult(xpResult)

	activityData := map[string]interface{}{
		"quiz_id":          quizID,
		"score":            score,
		"total_questions":  totalQuestions,
		"score_percentage": pct,
	}
	achievements, err := s.Achievements.CheckActivities(ctx, userID, activityData,
		model.ActivityQuiz,
		model.ConditionBadgeCollection,
	)
	if err != nil {
		return nil, err
	}
	result.NewAchievements = achievements
	return result, nil
}

type DailyLoginResult struct {
	*XPAwardResult
	NewAchievements []model.BadgeDefinition `json:"new_achievements"`
}

// DailyLogin 每日登录奖励及连续登录成就
func (s *ProgressService) DailyLogin(ctx context.Context, userID uint) (*DailyLoginResult, error) {
	xpResult, err := s.XP.AwardDailyLoginXP(ctx, userID)
	if err != nil {
		return nil, err
	}
	result := &DailyLoginResult{XPAwardResult: xpResult, NewAchievements: []model.BadgeDefinition{}}
	if xpResult.AlreadyLoggedIn {
		return result, nil
	}

	achievements, err := s.Achievements.CheckActivities(ctx, userID,
		map[string]interface{}{"streak": xpResult.LoginStreak},
		model.ConditionLoginStreak,
		model.ConditionBadgeCollection,
	)
	if err != nil {
		return nil, err
	}
	result.NewAchievements = achievements
	return result, nil
}

func (s *ProgressService) CompleteFlashcards(ctx context.Context, userID uint) (*ActivityResult, error) {
	vp, err := s.XP.AwardFlashcardVirtuePoints(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &ActivityResult{VirtuePointsResult: vp, Action: model.XPEventFlashcardVP}, nil
}

func (s *ProgressService) WatchLesson(ctx context.Context, userID uint, lessonID string) (*ActivityResult, error) {
	if strings.TrimSpace(lessonID) == "" {
		return nil, util.ErrInvalidLessonID
	}
	vp, err := s.XP.AwardWatchLessonVirtuePoints(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &ActivityResult{VirtuePointsResult: vp, Action: model.XPEventWatchVP}, nil
}
