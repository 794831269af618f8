package model

import "time"

// DailySignIn 每个用户每个自然日至多一行
// swagger:model DailySignIn
type DailySignIn struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      uint      `gorm:"not null;uniqueIndex:idx_user_login_date" json:"user_id"`
	LoginDate   string    `gorm:"size:10;not null;uniqueIndex:idx_user_login_date" json:"login_date"`
	StreakCount int       `gorm:"not null;default:1" json:"streak_count"` // 连续签到天数
	XPAwarded   int       `gorm:"not null;default:0" json:"xp_awarded"`
	CreatedAt   time.Time `json:"created_at"`
}

func (DailySignIn) TableName() string {
	return "daily_signins"
}
