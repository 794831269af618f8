package model

import "time"

// LeaderboardEntry 班级排行榜一行
type LeaderboardEntry struct {
	Rank             int      `json:"rank" gorm:"-"`
	UserID           uint     `json:"user_id"`
	DisplayName      string   `json:"display_name"`
	ProfilePicture   string   `json:"profile_picture"`
	TotalXP          int      `json:"total_xp"`
	CurrentLevel     int      `json:"current_level"`
	LessonsCompleted int64    `json:"lessons_completed"`
	AverageScore     *float64 `json:"average_score"`
	BestStreak       int      `json:"best_streak"`
	BadgeCount       int64    `json:"badge_count"`
}

// StudentChallengeProgress 读时计算，不落库
type StudentChallengeProgress struct {
	UserID       uint    `json:"user_id"`
	DisplayName  string  `json:"display_name"`
	CurrentValue float64 `json:"current_value"`
	TargetValue  float64 `json:"target_value"`
	Completed    bool    `json:"completed"`
}

type ChallengeProgress struct {
	Challenge      ClassChallenge             `json:"challenge"`
	Students       []StudentChallengeProgress `json:"students"`
	CompletedCount int                        `json:"completed_count"`
}

type TopPerformer struct {
	UserID       uint   `json:"user_id"`
	DisplayName  string `json:"display_name"`
	TotalXP      int    `json:"total_xp"`
	CurrentLevel int    `json:"current_level"`
}

type ActivityFeedItem struct {
	UserID       uint      `json:"user_id"`
	DisplayName  string    `json:"display_name"`
	LessonID     string    `json:"lesson_id"`
	ActivityType string    `json:"activity_type"`
	Score        *float64  `json:"score"`
	CompletedAt  time.Time `json:"completed_at"`
}

type ClassAnalytics struct {
	ClassID            uint               `json:"class_id"`
	StudentCount       int64              `json:"student_count"`
	AverageXP          float64            `json:"average_xp"`
	AverageLevel       float64            `json:"average_level"`
	LessonCompletion   float64            `json:"lesson_completion_rate"`
	TopPerformers      []TopPerformer     `json:"top_performers"`
	RecentActivity     []ActivityFeedItem `json:"recent_activity"`
	ActiveStudentsWeek int64              `json:"active_students_week"`
}

// StudentMetric 班级内单个学生的聚合指标
type StudentMetric struct {
	UserID           uint     `json:"user_id"`
	DisplayName      string   `json:"display_name"`
	TotalXP          int      `json:"total_xp"`
	CurrentLevel     int      `json:"current_level"`
	LessonsCompleted int64    `json:"lessons_completed"`
	AverageScore     *float64 `json:"average_score"`
}
