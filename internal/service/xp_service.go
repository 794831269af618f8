package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"values_edu_backend/internal/model"
	"values_edu_backend/internal/repository"
	"values_edu_backend/internal/util"
	"values_edu_backend/pkg/logger"
	"values_edu_backend/pkg/monitoring"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// 经验与美德积分规则
const (
	LessonXP             = 20
	QuizXPPerCorrect     = 10
	QuizBonusXP          = 50
	QuizBonusThreshold   = 0.80
	DailyLoginXP         = 5
	StreakBonusXP        = 50
	StreakBonusDays      = 7
	LessonVirtuePoints   = 5
	FlashcardVirtuePoint = 5
	WatchVirtuePoints    = 10
)

const (
	ActionLessonCompleted  = "lesson_completed"
	ActionQuizCompleted    = "quiz_completed"
	ActionDailyLogin       = "daily_login"
	ActionAlreadyCompleted = "already_completed"
)

// LeaderboardInvalidator 经验变化后失效排行榜缓存
type LeaderboardInvalidator interface {
	InvalidateUser(ctx context.Context, userID uint)
}

type XPService struct {
	XPRepo       *repository.XPRepository
	CheckinRepo  *repository.CheckinRepository
	ProgressRepo *repository.ProgressRepository
	Achievements *AchievementService
	Notifier     Notifier
	Leaderboard  LeaderboardInvalidator

	now Clock
}

func NewXPService(
	xpRepo *repository.XPRepository,
	checkinRepo *repository.CheckinRepository,
	progressRepo *repository.ProgressRepository,
	achievements *AchievementService,
	notifier Notifier,
	clock Clock,
) *XPService {
	return &XPService{
		XPRepo:       xpRepo,
		CheckinRepo:  checkinRepo,
		ProgressRepo: progressRepo,
		Achievements: achievements,
		Notifier:     notifier,
		now:          clock,
	}
}

// XPAwardResult XPEarned 为本次发放总额（含奖励），BonusXP 是其中的奖励部分
type XPAwardResult struct {
	XPEarned        int                     `json:"xp_earned"`
	BonusXP         int                     `json:"bonus_xp"`
	TotalXP         int                     `json:"total_xp"`
	PreviousLevel   int                     `json:"previous_level"`
	NewLevel        int                     `json:"new_level"`
	LeveledUp       bool                    `json:"leveled_up"`
	XPToNextLevel   int                     `json:"xp_to_next_level"`
	CurrentLevelXP  int                     `json:"current_level_xp"`
	BadgesEarned    []model.BadgeDefinition `json:"badges_earned"`
	ScorePercentage *float64                `json:"score_percentage,omitempty"`
	LoginStreak     int                     `json:"login_streak,omitempty"`
	AlreadyLoggedIn bool                    `json:"already_logged_in,omitempty"`
	Action          string                  `json:"action"`
}

type VirtuePointsResult struct {
	VirtuePointsEarned int `json:"virtue_points_earned"`
	VirtuePoints       int `json:"virtue_points"`
	WeeklyVirtuePoints int `json:"weekly_virtue_points"`
}

type WeeklyResetResult struct {
	WeekStart  string `json:"week_start"`
	UsersReset int64  `json:"users_reset"`
}

type XPSummary struct {
	Record       *model.XPRecord `json:"record"`
	Level        LevelInfo       `json:"level"`
	RecentEvents []model.XPEvent `json:"recent_events"`
}

func (s *XPService) weekStart() string {
	return util.FormatDate(util.WeekStart(s.now()))
}

// applyXP 在同一事务内：懒创建记录、累加经验、重算等级、写流水
func (s *XPService) applyXP(ctx context.Context, userID uint, delta int, event *model.XPEvent, before func(tx *gorm.DB) error) (*XPAwardResult, error) {
	result := &XPAwardResult{XPEarned: delta, BadgesEarned: []model.BadgeDefinition{}}

	err := s.XPRepo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if before != nil {
			if err := before(tx); err != nil {
				return err
			}
		}

		xpRepo := s.XPRepo.WithTx(tx)
		rec, err := xpRepo.GetOrCreate(ctx, userID, s.weekStart())
		if err != nil {
			return err
		}
		result.PreviousLevel = CalculateLevel(rec.TotalXP).Level

		if err := xpRepo.IncrementXP(ctx, userID, delta); err != nil {
			return err
		}
		updated, err := xpRepo.FindByUserID(ctx, userID)
		if err != nil {
			return err
		}

		info := CalculateLevel(updated.TotalXP)
		if err := xpRepo.UpdateLevel(ctx, userID, info.Level, info.XPToNextLevel); err != nil {
			return err
		}

		result.TotalXP = updated.TotalXP
		result.NewLevel = info.Level
		result.XPToNextLevel = info.XPToNextLevel
		result.CurrentLevelXP = info.CurrentLevelXP
		result.LeveledUp = info.Level > result.PreviousLevel

		event.UserID = userID
		event.XPAmount = delta
		event.CreatedAt = s.now()
		return xpRepo.CreateEvent(ctx, event)
	})
	if err != nil {
		return nil, err
	}

	monitoring.XPAwarded.WithLabelValues(event.EventType).Add(float64(delta))
	if s.Leaderboard != nil {
		s.Leaderboard.InvalidateUser(ctx, userID)
	}
	if result.LeveledUp {
		s.onLevelUp(ctx, userID, result)
	}
	return result, nil
}

func (s *XPService) onLevelUp(ctx context.Context, userID uint, result *XPAwardResult) {
	monitoring.LevelUps.Inc()
	logger.Log.Info("user leveled up",
		zap.Uint("userID", userID),
		zap.Int("from", result.PreviousLevel),
		zap.Int("to", result.NewLevel),
	)
	if s.Notifier == nil {
		return
	}
	_, err := s.Notifier.Notify(ctx, userID, model.NotifyLevelUp,
		"Level up!",
		fmt.Sprintf("You reached level %d.", result.NewLevel),
		map[string]interface{}{
			"level":            result.NewLevel,
			"previous_level":   result.PreviousLevel,
			"xp_to_next_level": result.XPToNextLevel,
		},
	)
	if err != nil {
		logger.Log.Warn("level-up notification failed", zap.Uint("userID", userID), zap.Error(err))
	}
}

func (s *XPService) thresholdBadges(ctx context.Context, userID uint, conditionType string, value float64) ([]model.BadgeDefinition, error) {
	if s.Achievements == nil {
		return []model.BadgeDefinition{}, nil
	}
	return s.Achievements.CheckAndAwardBadges(ctx, userID, conditionType, value)
}

// AwardLessonXP 完成课程 +20 XP
func (s *XPService) AwardLessonXP(ctx context.Context, userID uint) (*XPAwardResult, error) {
	result, err := s.applyXP(ctx, userID, LessonXP, &model.XPEvent{EventType: model.XPEventLesson}, nil)
	if err != nil {
		return nil, fmt.Errorf("award lesson xp: %w", err)
	}
	result.Action = ActionLessonCompleted

	completed, err := s.ProgressRepo.CountCompleted(ctx, userID)
	if err != nil {
		return nil, err
	}
	badges, err := s.thresholdBadges(ctx, userID, model.ConditionLessonCompletion, float64(completed))
	if err != nil {
		return nil, err
	}
	result.BadgesEarned = badges
	return result, nil
}

func QuizScorePercentage(score, totalQuestions int) float64 {
	return util.Percentage(float64(score), float64(totalQuestions))
}

// AwardQuizXP 每答对一题 10 XP，正确率 >= 80% 额外 +50
func (s *XPService) AwardQuizXP(ctx context.Context, userID uint, score, totalQuestions int) (*XPAwardResult, error) {
	if totalQuestions <= 0 || score < 0 || score > totalQuestions {
		return nil, util.ErrInvalidQuiz
	}

	base := score * QuizXPPerCorrect
	bonus := 0
	if float64(score)/float64(totalQuestions) >= QuizBonusThreshold {
		bonus = QuizBonusXP
	}
	pct := QuizScorePercentage(score, totalQuestions)

	metadata, _ := json.Marshal(map[string]interface{}{
		"score":           score,
		"total_questions": totalQuestions,
		"bonus_xp":        bonus,
	})
	event := &model.XPEvent{EventType: model.XPEventQuiz, Metadata: datatypes.JSON(metadata)}

	result, err := s.applyXP(ctx, userID, base+bonus, event, nil)
	if err != nil {
		return nil, fmt.Errorf("award quiz xp: %w", err)
	}
	result.BonusXP = bonus
	result.ScorePercentage = &pct
	result.Action = ActionQuizCompleted

	badges, err := s.thresholdBadges(ctx, userID, model.ConditionQuizScore, pct)
	if err != nil {
		return nil, err
	}
	result.BadgesEarned = badges
	return result, nil
}

// AwardDailyLoginXP 每日首次登录 +5 XP；连续 >= 7 天每天额外 +50
func (s *XPService) AwardDailyLoginXP(ctx context.Context, userID uint) (*XPAwardResult, error) {
	now := s.now()
	today := util.FormatDate(now)
	yesterday := util.FormatDate(now.AddDate(0, 0, -1))

	existing, err := s.CheckinRepo.FindByUserAndDate(ctx, userID, today)
	if err == nil {
		return s.alreadyLoggedIn(ctx, userID, existing.StreakCount)
	}
	if !isNotFound(err) {
		return nil, err
	}

	streak := 1
	prev, err := s.CheckinRepo.FindByUserAndDate(ctx, userID, yesterday)
	if err == nil {
		streak = prev.StreakCount + 1
	} else if !isNotFound(err) {
		return nil, err
	}

	bonus := 0
	if streak >= StreakBonusDays {
		bonus = StreakBonusXP
	}
	award := DailyLoginXP + bonus

	metadata, _ := json.Marshal(map[string]interface{}{"streak": streak, "bonus_xp": bonus})
	event := &model.XPEvent{EventType: model.XPEventDailyLogin, Metadata: datatypes.JSON(metadata)}

	result, err := s.applyXP(ctx, userID, award, event, func(tx *gorm.DB) error {
		signIn := &model.DailySignIn{
			UserID:      userID,
			LoginDate:   today,
			StreakCount: streak,
			XPAwarded:   award,
			CreatedAt:   now,
		}
		if err := s.CheckinRepo.WithTx(tx).Create(ctx, signIn); err != nil {
			return err
		}
		xpRepo := s.XPRepo.WithTx(tx)
		if _, err := xpRepo.GetOrCreate(ctx, userID, s.weekStart()); err != nil {
			return err
		}
		return xpRepo.UpdateLogin(ctx, userID, streak, today)
	})
	if err != nil {
		// 并发请求已写入当日签到
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return s.alreadyLoggedIn(ctx, userID, streak)
		}
		return nil, fmt.Errorf("award daily login xp: %w", err)
	}
	result.BonusXP = bonus
	result.LoginStreak = streak
	result.Action = ActionDailyLogin

	if streak >= StreakBonusDays && streak%StreakBonusDays == 0 {
		s.notifyStreak(ctx, userID, streak)
	}

	badges, err := s.thresholdBadges(ctx, userID, model.ConditionStreak, float64(streak))
	if err != nil {
		return nil, err
	}
	result.BadgesEarned = badges
	return result, nil
}

func (s *XPService) alreadyLoggedIn(ctx context.Context, userID uint, streak int) (*XPAwardResult, error) {
	rec, err := s.XPRepo.GetOrCreate(ctx, userID, s.weekStart())
	if err != nil {
		return nil, err
	}
	info := CalculateLevel(rec.TotalXP)
	return &XPAwardResult{
		TotalXP:         rec.TotalXP,
		PreviousLevel:   info.Level,
		NewLevel:        info.Level,
		XPToNextLevel:   info.XPToNextLevel,
		CurrentLevelXP:  info.CurrentLevelXP,
		BadgesEarned:    []model.BadgeDefinition{},
		LoginStreak:     streak,
		AlreadyLoggedIn: true,
		Action:          ActionDailyLogin,
	}, nil
}

func (s *XPService) notifyStreak(ctx context.Context, userID uint, streak int) {
	if s.Notifier == nil {
		return
	}
	_, err := s.Notifier.Notify(ctx, userID, model.NotifyStreak,
		"Streak milestone!",
		fmt.Sprintf("You have logged in %d days in a row.", streak),
		map[string]interface{}{"streak": streak},
	)
	if err != nil {
		logger.Log.Warn("streak notification failed", zap.Uint("userID", userID), zap.Error(err))
	}
}

func (s *XPService) awardVirtuePoints(ctx context.Context, userID uint, points int, eventType string) (*VirtuePointsResult, error) {
	var rec *model.XPRecord
	err := s.XPRepo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		xpRepo := s.XPRepo.WithTx(tx)
		if _, err := xpRepo.GetOrCreate(ctx, userID, s.weekStart()); err != nil {
			return err
		}
		if err := xpRepo.IncrementVirtuePoints(ctx, userID, points); err != nil {
			return err
		}
		if err := xpRepo.CreateEvent(ctx, &model.XPEvent{
			UserID:       userID,
			EventType:    eventType,
			VirtuePoints: points,
			CreatedAt:    s.now(),
		}); err != nil {
			return err
		}
		var err error
		rec, err = xpRepo.FindByUserID(ctx, userID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("award virtue points: %w", err)
	}

	monitoring.VirtuePointsAwarded.WithLabelValues(eventType).Add(float64(points))
	return &VirtuePointsResult{
		VirtuePointsEarned: points,
		VirtuePoints:       rec.VirtuePoints,
		WeeklyVirtuePoints: rec.WeeklyVirtuePoints,
	}, nil
}

func (s *XPService) AwardLessonVirtuePoints(ctx context.Context, userID uint) (*VirtuePointsResult, error) {
	return s.awardVirtuePoints(ctx, userID, LessonVirtuePoints, model.XPEventLessonVP)
}

func (s *XPService) AwardFlashcardVirtuePoints(ctx context.Context, userID uint) (*VirtuePointsResult, error) {
	return s.awardVirtuePoints(ctx, userID, FlashcardVirtuePoint, model.XPEventFlashcardVP)
}

func (s *XPService) AwardWatchLessonVirtuePoints(ctx context.Context, userID uint) (*VirtuePointsResult, error) {
	return s.awardVirtuePoints(ctx, userID, WatchVirtuePoints, model.XPEventWatchVP)
}

// ResetWeeklyVirtuePoints 全部用户周积分清零，week_start_date 设为本周一
func (s *XPService) ResetWeeklyVirtuePoints(ctx context.Context) (*WeeklyResetResult, error) {
	weekStart := s.weekStart()
	rows, err := s.XPRepo.ResetWeeklyVirtuePoints(ctx, weekStart)
	if err != nil {
		return nil, fmt.Errorf("reset weekly virtue points: %w", err)
	}
	monitoring.WeeklyResets.Inc()
	logger.Log.Info("weekly virtue points reset", zap.String("weekStart", weekStart), zap.Int64("users", rows))
	return &WeeklyResetResult{WeekStart: weekStart, UsersReset: rows}, nil
}

// RunScheduledWeeklyReset 每日定时调用，仅周一执行
func (s *XPService) RunScheduledWeeklyReset(ctx context.Context) (*WeeklyResetResult, error) {
	if s.now().Weekday() != time.Monday {
		return nil, nil
	}
	return s.ResetWeeklyVirtuePoints(ctx)
}

// CatchUpWeeklyReset 启动时补偿：存在早于本周一的记录则执行重置
func (s *XPService) CatchUpWeeklyReset(ctx context.Context) (*WeeklyResetResult, error) {
	stale, err := s.XPRepo.CountStaleWeeks(ctx, s.weekStart())
	if err != nil {
		return nil, err
	}
	if stale == 0 {
		return nil, nil
	}
	logger.Log.Info("stale weekly virtue points found on startup", zap.Int64("records", stale))
	return s.ResetWeeklyVirtuePoints(ctx)
}

// GetXPSummary 只读，不存在记录时返回默认值
func (s *XPService) GetXPSummary(ctx context.Context, userID uint) (*XPSummary, error) {
	rec, err := s.XPRepo.FindByUserID(ctx, userID)
	if err != nil {
		if !isNotFound(err) {
			return nil, err
		}
		rec = &model.XPRecord{
			UserID:        userID,
			CurrentLevel:  1,
			XPToNextLevel: 100,
			WeekStartDate: s.weekStart(),
		}
	}
	events, err := s.XPRepo.FindEventsByUser(ctx, userID, 20)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []model.XPEvent{}
	}
	return &XPSummary{Record: rec, Level: CalculateLevel(rec.TotalXP), RecentEvents: events}, nil
}
