package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	XPEventLesson      = "lesson_completed"
	XPEventQuiz        = "quiz_completed"
	XPEventDailyLogin  = "daily_login"
	XPEventLessonVP    = "lesson_virtue_points"
	XPEventFlashcardVP = "flashcard_virtue_points"
	XPEventWatchVP     = "watch_lesson_virtue_points"
)

// XPEvent 每次经验/美德积分发放的流水
type XPEvent struct {
	ID           uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       uint           `gorm:"index;not null" json:"user_id"`
	EventType    string         `gorm:"size:40;index;not null" json:"event_type"`
	XPAmount     int            `gorm:"not null;default:0" json:"xp_amount"`
	VirtuePoints int            `gorm:"not null;default:0" json:"virtue_points"`
	Metadata     datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`
}

func (XPEvent) TableName() string {
	return "xp_events"
}
