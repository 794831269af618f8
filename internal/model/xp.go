package model

import "time"

// XPRecord 与 User 一对一；CurrentLevel / XPToNextLevel 为缓存的派生值
// swagger:model XPRecord
type XPRecord struct {
	ID                 uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID             uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	TotalXP            int       `gorm:"not null;default:0" json:"total_xp"`
	CurrentLevel       int       `gorm:"not null;default:1" json:"current_level"`
	XPToNextLevel      int       `gorm:"not null;default:100" json:"xp_to_next_level"`
	LoginStreak        int       `gorm:"not null;default:0" json:"login_streak"`
	LastLoginDate      string    `gorm:"size:10" json:"last_login_date"`
	VirtuePoints       int       `gorm:"not null;default:0" json:"virtue_points"`
	WeeklyVirtuePoints int       `gorm:"not null;default:0" json:"weekly_virtue_points"`
	WeekStartDate      string    `gorm:"size:10;index" json:"week_start_date"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (XPRecord) TableName() string {
	return "xp"
}
