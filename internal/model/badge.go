package model

import "time"

type BadgeRarity string

const (
	RarityCommon    BadgeRarity = "common"
	RarityUncommon  BadgeRarity = "uncommon"
	RarityRare      BadgeRarity = "rare"
	RarityEpic      BadgeRarity = "epic"
	RarityLegendary BadgeRarity = "legendary"
)

// 徽章条件类型
const (
	ConditionLessonCompletion = "lesson_completion"
	ConditionQuizScore        = "quiz_score"
	ConditionLoginStreak      = "login_streak"
	ConditionDailyLessons     = "daily_lessons"
	ConditionQuizAverage      = "quiz_average"
	ConditionQuizStreak       = "quiz_streak"
	ConditionBadgeCollection  = "badge_collection"
	ConditionStreak           = "streak"
)

// BadgeDefinition 徽章目录；ConditionValue 统一为 JSON 文本（数字或对象）
// swagger:model BadgeDefinition
type BadgeDefinition struct {
	ID             uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	Name           string      `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Description    string      `gorm:"size:255" json:"description"`
	Icon           string      `gorm:"size:255" json:"icon"`
	Rarity         BadgeRarity `gorm:"size:20;not null;default:'common'" json:"rarity"`
	BadgeType      string      `gorm:"size:50;index" json:"badge_type"`
	ConditionType  string      `gorm:"size:50;index;not null" json:"condition_type"`
	ConditionValue string      `gorm:"type:text;not null" json:"condition_value"`
	CreatedAt      time.Time   `json:"created_at"`
}

func (BadgeDefinition) TableName() string {
	return "badges"
}

// UserBadge (user_id, badge_id) 唯一
type UserBadge struct {
	ID        uint             `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint             `gorm:"not null;uniqueIndex:idx_user_badge" json:"user_id"`
	BadgeID   uint             `gorm:"not null;uniqueIndex:idx_user_badge" json:"badge_id"`
	EarnedAt  time.Time        `gorm:"not null" json:"earned_at"`
	AwardedBy *uint            `json:"awarded_by"`
	Badge     *BadgeDefinition `gorm:"foreignKey:BadgeID" json:"badge,omitempty"`
}

func (UserBadge) TableName() string {
	return "user_badges"
}
