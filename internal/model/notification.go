package model

import (
	"time"

	"gorm.io/datatypes"
)

type NotificationCategory string

const (
	NotifyAchievement NotificationCategory = "achievement"
	NotifyLevelUp     NotificationCategory = "level_up"
	NotifyStreak      NotificationCategory = "streak"
	NotifyChallenge   NotificationCategory = "challenge"
	NotifyReminder    NotificationCategory = "reminder"
)

// swagger:model Notification
type Notification struct {
	UUIDBase
	UserID    uint                 `gorm:"not null;index" json:"user_id"`
	Type      NotificationCategory `gorm:"size:32;not null;index" json:"type"`
	Title     string               `gorm:"size:150;not null" json:"title"`
	Message   string               `gorm:"type:text" json:"message"`
	Data      datatypes.JSON       `json:"data,omitempty"`
	IsRead    bool                 `gorm:"not null" json:"is_read"`
	ExpiresAt time.Time            `gorm:"index" json:"expires_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

// NotificationSettings 按类别的开关；不使用 default 标签，避免 false 被数据库默认值覆盖
// swagger:model NotificationSettings
type NotificationSettings struct {
	UserID       uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	Achievements bool      `gorm:"not null" json:"achievements"`
	LevelUp      bool      `gorm:"not null" json:"level_up"`
	Streaks      bool      `gorm:"not null" json:"streaks"`
	Challenges   bool      `gorm:"not null" json:"challenges"`
	Reminders    bool      `gorm:"not null" json:"reminders"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (NotificationSettings) TableName() string {
	return "notification_settings"
}

func DefaultNotificationSettings(userID uint) *NotificationSettings {
	return &NotificationSettings{
		UserID:       userID,
		Achievements: true,
		LevelUp:      true,
		Streaks:      true,
		Challenges:   true,
		Reminders:    true,
	}
}

// Allows 判断该类别在创建时是否允许
func (s *NotificationSettings) Allows(category NotificationCategory) bool {
	switch category {
	case NotifyAchievement:
		return s.Achievements
	case NotifyLevelUp:
		return s.LevelUp
	case NotifyStreak:
		return s.Streaks
	case NotifyChallenge:
		return s.Challenges
	case NotifyReminder:
		return s.Reminders
	}
	return false
}
