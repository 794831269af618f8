package model

import (
	"fmt"
	"time"
)

const (
	ActivityLesson    = "lesson"
	ActivityQuiz      = "quiz"
	ActivityFlashcard = "flashcard"
	ActivityVideo     = "video"
)

// ProgressRecord 每次课程/测验/活动完成一行；Score 为百分比，课程完成时为空
// swagger:model ProgressRecord
type ProgressRecord struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        uint      `gorm:"not null;index:idx_progress_user_lesson" json:"user_id"`
	LessonID      string    `gorm:"size:64;not null;index:idx_progress_user_lesson" json:"lesson_id"`
	Completed     bool      `gorm:"not null;index" json:"completed"`
	Score         *float64  `json:"score"`
	DayIndex      *int      `json:"day_index,omitempty"`
	ActivityIndex *int      `json:"activity_index,omitempty"`
	ActivityType  string    `gorm:"size:32" json:"activity_type"`
	CompletedAt   time.Time `gorm:"index" json:"completed_at"`
	// CompletionKey 仅课程完成记录填写，唯一索引保证每个 (用户, 课程) 至多一行；测验等为 NULL
	CompletionKey *string `gorm:"size:100;uniqueIndex" json:"-"`
}

func LessonCompletionKey(userID uint, lessonID string) string {
	return fmt.Sprintf("%d:%s", userID, lessonID)
}

func (ProgressRecord) TableName() string {
	return "progress"
}
