package repository

import (
	"context"
	"time"
	"values_edu_backend/internal/model"

	"gorm.io/gorm"
)

type NotificationRepository struct {
	DB *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{DB: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	return r.DB.WithContext(ctx).Create(n).Error
}

func (r *NotificationRepository) FindByUser(ctx context.Context, userID uint, unreadOnly bool, now time.Time, limit int) ([]model.Notification, error) {
	var list []model.Notification
	query := r.DB.WithContext(ctx).Where("user_id = ? AND expires_at > ?", userID, now)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}
	err := query.Order("created_at DESC").Limit(limit).Find(&list).Error
	return list, err
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID uint, now time.Time) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ? AND expires_at > ?", userID, false, now).
		Count(&count).Error
	return count, err
}

// MarkRead 返回受影响行数，0 表示不存在或不属于该用户
func (r *NotificationRepository) MarkRead(ctx context.Context, id string, userID uint) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

func (r *NotificationRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.DB.WithContext(ctx).Where("expires_at <= ?", now).Delete(&model.Notification{})
	return res.RowsAffected, res.Error
}

func (r *NotificationRepository) FindSettings(ctx context.Context, userID uint) (*model.NotificationSettings, error) {
	var settings model.NotificationSettings
	if err := r.DB.WithContext(ctx).Where("user_id = ?", userID).First(&settings).Error; err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *NotificationRepository) SaveSettings(ctx context.Context, settings *model.NotificationSettings) error {
	return r.DB.WithContext(ctx).Save(settings).Error
}
