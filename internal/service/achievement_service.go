package service

import (
	"context"
	"fmt"
	"values_edu_backend/internal/model"
	"values_edu_backend/internal/repository"
	"values_edu_backend/pkg/logger"
	"values_edu_backend/pkg/monitoring"

	"go.uber.org/zap"
)

const (
	awardPathThreshold = "threshold"
	awardPathActivity  = "activity"
	awardPathManual    = "manual"
)

type AchievementService struct {
	BadgeRepo    *repository.BadgeRepository
	ProgressRepo *repository.ProgressRepository
	XPRepo       *repository.XPRepository
	UserRepo     *repository.UserRepository
	Notifier     Notifier

	evaluators map[string]ConditionEvaluator
	now        Clock
}

func NewAchievementService(
	badgeRepo *repository.BadgeRepository,
	progressRepo *repository.ProgressRepository,
	xpRepo *repository.XPRepository,
	userRepo *repository.UserRepository,
	notifier Notifier,
	clock Clock,
) *AchievementService {
	return &AchievementService{
		BadgeRepo:    badgeRepo,
		ProgressRepo: progressRepo,
		XPRepo:       xpRepo,
		UserRepo:     userRepo,
		Notifier:     notifier,
		evaluators:   defaultEvaluators(),
		now:          clock,
	}
}

// AwardBadgeResult 手动颁发结果，失败时 Success=false 并给出原因
type AwardBadgeResult struct {
	Success   bool                   `json:"success"`
	Message   string                 `json:"message"`
	Badge     *model.BadgeDefinition `json:"badge,omitempty"`
	UserBadge *model.UserBadge       `json:"user_badge,omitempty"`
}

func (s *AchievementService) facts(userID uint) *badgeFacts {
	return &badgeFacts{
		userID:   userID,
		progress: s.ProgressRepo,
		xp:       s.XPRepo,
		badges:   s.BadgeRepo,
		clock:    s.now,
	}
}

// CheckAndAwardBadges 阈值型检查：条件类型精确匹配，门槛 <= value 即发放
func (s *AchievementService) CheckAndAwardBadges(ctx context.Context, userID uint, conditionType string, value float64) ([]model.BadgeDefinition, error) {
	earned := []model.BadgeDefinition{}
	if !thresholdConditionTypes[conditionType] {
		return earned, nil
	}
	evaluator := s.evaluators[conditionType]

	candidates, err := s.BadgeRepo.FindByConditionType(ctx, conditionType)
	if err != nil {
		return nil, fmt.Errorf("load badges for %s: %w", conditionType, err)
	}
	held, err := s.BadgeRepo.HeldBadgeIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	for i := range candidates {
		badge := candidates[i]
		if held[badge.ID] {
			continue
		}
		cond, err := ParseBadgeCondition(badge.ConditionValue)
		if err != nil {
			logger.Log.Warn("skip badge with malformed condition",
				zap.Uint("badgeID", badge.ID),
				zap.String("condition", badge.ConditionValue),
				zap.Error(err),
			)
			continue
		}
		threshold, ok := evaluator.Threshold(cond)
		if !ok || threshold > value {
			continue
		}

		awarded, err := s.grant(ctx, userID, &badge, nil, awardPathThreshold)
		if err != nil {
			return nil, err
		}
		if awarded {
			earned = append(earned, badge)
		}
	}
	return earned, nil
}

// CheckAndAwardAchievements 活动型检查：条件类型等于或包含 activityType，按类型判定
func (s *AchievementService) CheckAndAwardAchievements(ctx context.Context, userID uint, activityType string, activityData map[string]interface{}) ([]model.BadgeDefinition, error) {
	earned := []model.BadgeDefinition{}
	if activityType == "" {
		return earned, nil
	}

	candidates, err := s.BadgeRepo.FindForActivity(ctx, activityType)
	if err != nil {
		return nil, fmt.Errorf("load badges for activity %s: %w", activityType, err)
	}
	held, err := s.BadgeRepo.HeldBadgeIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	facts := s.facts(userID)
	for i := range candidates {
		badge := candidates[i]
		if held[badge.ID] {
			continue
		}

		evaluator, ok := s.evaluators[badge.ConditionType]
		if !ok {
			logger.Log.Debug("no evaluator for condition type",
				zap.Uint("badgeID", badge.ID),
				zap.String("conditionType", badge.ConditionType),
			)
			continue
		}
		cond, err := ParseBadgeCondition(badge.ConditionValue)
		if err != nil {
			logger.Log.Warn("skip badge with malformed condition",
				zap.Uint("badgeID", badge.ID),
				zap.String("condition", badge.ConditionValue),
				zap.Error(err),
			)
			continue
		}

		satisfied, err := evaluator.Satisfied(ctx, facts, cond)
		if err != nil {
			return nil, fmt.Errorf("evaluate badge %d: %w", badge.ID, err)
		}
		if !satisfied {
			continue
		}

		awarded, err := s.grant(ctx, userID, &badge, nil, awardPathActivity)
		if err != nil {
			return nil, err
		}
		if awarded {
			earned = append(earned, badge)
		}
	}

	if len(earned) > 0 {
		logger.Log.Info("achievements unlocked",
			zap.Uint("userID", userID),
			zap.String("activity", activityType),
			zap.Int("count", len(earned)),
			zap.Any("activityData", activityData),
		)
	}
	return earned, nil
}

// CheckActivities 依次检查多个活动类型并合并结果
func (s *AchievementService) CheckActivities(ctx context.Context, userID uint, activityData map[string]interface{}, activityTypes ...string) ([]model.BadgeDefinition, error) {
	all := []model.BadgeDefinition{}
	for _, activity := range activityTypes {
		earned, err := s.CheckAndAwardAchievements(ctx, userID, activity, activityData)
		if err != nil {
			return nil, err
		}
		all = append(all, earned...)
	}
	return all, nil
}

// AwardBadge 教师手动颁发，跳过条件判定
func (s *AchievementService) AwardBadge(ctx context.Context, awardedBy, userID, badgeID uint) (*AwardBadgeResult, error) {
	badge, err := s.BadgeRepo.FindByID(ctx, badgeID)
	if err != nil {
		if isNotFound(err) {
			return &AwardBadgeResult{Success: false, Message: "Badge not found"}, nil
		}
		return nil, err
	}
	if _, err := s.UserRepo.FindByID(ctx, userID); err != nil {
		if isNotFound(err) {
			return &AwardBadgeResult{Success: false, Message: "User not found"}, nil
		}
		return nil, err
	}

	ub := &model.UserBadge{
		UserID:    userID,
		BadgeID:   badge.ID,
		EarnedAt:  s.now(),
		AwardedBy: &awardedBy,
	}
	inserted, err := s.BadgeRepo.Award(ctx, ub)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return &AwardBadgeResult{Success: false, Message: "User already has this badge", Badge: badge}, nil
	}

	s.afterAward(ctx, userID, badge, awardPathManual)
	return &AwardBadgeResult{
		Success:   true,
		Message:   "Badge awarded successfully",
		Badge:     badge,
		UserBadge: ub,
	}, nil
}

// grant 插入 UserBadge，仅在实际插入时返回 true
func (s *AchievementService) grant(ctx context.Context, userID uint, badge *model.BadgeDefinition, awardedBy *uint, path string) (bool, error) {
	inserted, err := s.BadgeRepo.Award(ctx, &model.UserBadge{
		UserID:    userID,
		BadgeID:   badge.ID,
		EarnedAt:  s.now(),
		AwardedBy: awardedBy,
	})
	if err != nil {
		return false, fmt.Errorf("award badge %d: %w", badge.ID, err)
	}
	if inserted {
		s.afterAward(ctx, userID, badge, path)
	}
	return inserted, nil
}

func (s *AchievementService) afterAward(ctx context.Context, userID uint, badge *model.BadgeDefinition, path string) {
	monitoring.BadgesAwarded.WithLabelValues(path).Inc()
	logger.Log.Info("badge awarded",
		zap.Uint("userID", userID),
		zap.Uint("badgeID", badge.ID),
		zap.String("badge", badge.Name),
		zap.String("path", path),
	)

	if s.Notifier == nil {
		return
	}
	_, err := s.Notifier.Notify(ctx, userID, model.NotifyAchievement,
		"Badge earned!",
		fmt.Sprintf("You earned the %s badge.", badge.Name),
		map[string]interface{}{
			"badge_id": badge.ID,
			"name":     badge.Name,
			"icon":     badge.Icon,
			"rarity":   badge.Rarity,
		},
	)
	if err != nil {
		logger.Log.Warn("badge notification failed", zap.Uint("userID", userID), zap.Error(err))
	}
}
