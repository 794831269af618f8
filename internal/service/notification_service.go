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

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultNotificationTTL = 30 * 24 * time.Hour

// Notifier 由经验、徽章、挑战等流程调用
type Notifier interface {
	Notify(ctx context.Context, userID uint, category model.NotificationCategory, title, message string, data map[string]interface{}) (*model.Notification, error)
}

type NotificationService struct {
	Repo *repository.NotificationRepository
	TTL  time.Duration
	now  Clock
}

func NewNotificationService(repo *repository.NotificationRepository, ttl time.Duration, clock Clock) *NotificationService {
	if ttl <= 0 {
		ttl = defaultNotificationTTL
	}
	return &NotificationService{Repo: repo, TTL: ttl, now: clock}
}

type NotificationList struct {
	Items       []model.Notification `json:"items"`
	UnreadCount int64                `json:"unread_count"`
}

// UpdateSettingsRequest 仅更新提供的字段
type UpdateSettingsRequest struct {
	Achievements *bool `json:"achievements"`
	LevelUp      *bool `json:"level_up"`
	Streaks      *bool `json:"streaks"`
	Challenges   *bool `json:"challenges"`
	Reminders    *bool `json:"reminders"`
}

// GetSettings 不存在时写入全开启的默认设置
func (s *NotificationService) GetSettings(ctx context.Context, userID uint) (*model.NotificationSettings, error) {
	settings, err := s.Repo.FindSettings(ctx, userID)
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	settings = model.DefaultNotificationSettings(userID)
	settings.UpdatedAt = s.now()
	if err := s.Repo.SaveSettings(ctx, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

func (s *NotificationService) UpdateSettings(ctx context.Context, userID uint, req UpdateSettingsRequest) (*model.NotificationSettings, error) {
	settings, err := s.GetSettings(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Achievements != nil {
		settings.Achievements = *req.Achievements
	}
	if req.LevelUp != nil {
		settings.LevelUp = *req.LevelUp
	}
	if req.Streaks != nil {
		settings.Streaks = *req.Streaks
	}
	if req.Challenges != nil {
		settings.Challenges = *req.Challenges
	}
	if req.Reminders != nil {
		settings.Reminders = *req.Reminders
	}
	settings.UpdatedAt = s.now()

	if err := s.Repo.SaveSettings(ctx, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// Notify 创建时按用户设置过滤，被关闭的类别返回 nil, nil
func (s *NotificationService) Notify(ctx context.Context, userID uint, category model.NotificationCategory, title, message string, data map[string]interface{}) (*model.Notification, error) {
	settings, err := s.GetSettings(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !settings.Allows(category) {
		logger.Log.Debug("notification suppressed by settings",
			zap.Uint("userID", userID),
			zap.String("category", string(category)),
		)
		return nil, nil
	}

	now := s.now()
	n := &model.Notification{
		UserID:    userID,
		Type:      category,
		Title:     title,
		Message:   message,
		ExpiresAt: now.Add(s.TTL),
	}
	n.CreatedAt = now

	if len(data) > 0 {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("marshal notification data: %w", err)
		}
		n.Data = datatypes.JSON(raw)
	}

	if err := s.Repo.Create(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *NotificationService) List(ctx context.Context, userID uint, unreadOnly bool, limit int) (*NotificationList, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	now := s.now()

	items, err := s.Repo.FindByUser(ctx, userID, unreadOnly, now, limit)
	if err != nil {
		return nil, err
	}
	unread, err := s.Repo.CountUnread(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.Notification{}
	}
	return &NotificationList{Items: items, UnreadCount: unread}, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID uint, id string) error {
	affected, err := s.Repo.MarkRead(ctx, id, userID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return util.ErrNotificationNotFound
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	return s.Repo.MarkAllRead(ctx, userID)
}

// CleanupExpired 定时清理过期通知
func (s *NotificationService) CleanupExpired(ctx context.Context) (int64, error) {
	removed, err := s.Repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	logger.Log.Info("expired notifications purged", zap.Int64("removed", removed))
	return removed, nil
}
