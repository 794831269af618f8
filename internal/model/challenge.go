package model

import "time"

type ChallengeTargetType string

const (
	TargetLessonsCompleted ChallengeTargetType = "lessons_completed"
	TargetXPEarned         ChallengeTargetType = "xp_earned"
	TargetQuizScore        ChallengeTargetType = "quiz_score"
)

func (t ChallengeTargetType) Valid() bool {
	switch t {
	case TargetLessonsCompleted, TargetXPEarned, TargetQuizScore:
		return true
	}
	return false
}

// swagger:model ClassChallenge
type ClassChallenge struct {
	ID            uint                `gorm:"primaryKey;autoIncrement" json:"id"`
	ClassID       uint                `gorm:"not null;index" json:"class_id"`
	Title         string              `gorm:"size:150;not null" json:"title"`
	Description   string              `gorm:"type:text" json:"description"`
	TargetType    ChallengeTargetType `gorm:"size:32;not null" json:"target_type"`
	TargetValue   float64             `gorm:"not null" json:"target_value"`
	StartDate     time.Time           `json:"start_date"`
	EndDate       time.Time           `json:"end_date"`
	RewardBadgeID *uint               `json:"reward_badge_id"`
	CreatedBy     uint                `gorm:"not null" json:"created_by"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

func (ClassChallenge) TableName() string {
	return "class_challenges"
}
