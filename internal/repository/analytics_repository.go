package repository

import (
	"context"
	"time"
	"values_edu_backend/internal/model"

	"gorm.io/gorm"
)

// AnalyticsRepository 班级维度的只读聚合查询
type AnalyticsRepository struct {
	DB *gorm.DB
}

func NewAnalyticsRepository(db *gorm.DB) *AnalyticsRepository {
	return &AnalyticsRepository{DB: db}
}

const classLeaderboardSQL = `
SELECT u.id AS user_id, u.display_name, u.profile_picture,
	COALESCE(x.total_xp, 0) AS total_xp,
	COALESCE(x.current_level, 1) AS current_level,
	(SELECT COUNT(*) FROM progress p WHERE p.user_id = u.id AND p.completed = ?) AS lessons_completed,
	(SELECT AVG(p.score) FROM progress p WHERE p.user_id = u.id AND p.score IS NOT NULL) AS average_score,
	(SELECT COALESCE(MAX(d.streak_count), 0) FROM daily_signins d WHERE d.user_id = u.id) AS best_streak,
	(SELECT COUNT(*) FROM user_badges ub WHERE ub.user_id = u.id) AS badge_count
FROM users u
LEFT JOIN xp x ON x.user_id = u.id
WHERE u.role = ? AND u.class_id = ? AND u.deleted_at IS NULL
ORDER BY total_xp DESC, current_level DESC, lessons_completed DESC, u.id ASC
LIMIT ?`

func (r *AnalyticsRepository) ClassLeaderboard(ctx context.Context, classID uint, limit int) ([]model.LeaderboardEntry, error) {
	var entries []model.LeaderboardEntry
	err := r.DB.WithContext(ctx).
		Raw(classLeaderboardSQL, true, model.Student, classID, limit).
		Scan(&entries).Error
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

const classStudentMetricsSQL = `
SELECT u.id AS user_id, u.display_name,
	COALESCE(x.total_xp, 0) AS total_xp,
	COALESCE(x.current_level, 1) AS current_level,
	(SELECT COUNT(*) FROM progress p WHERE p.user_id = u.id AND p.completed = ?) AS lessons_completed,
	(SELECT AVG(p.score) FROM progress p WHERE p.user_id = u.id AND p.score IS NOT NULL) AS average_score
FROM users u
LEFT JOIN xp x ON x.user_id = u.id
WHERE u.role = ? AND u.class_id = ? AND u.deleted_at IS NULL
ORDER BY u.id`

func (r *AnalyticsRepository) ClassStudentMetrics(ctx context.Context, classID uint) ([]model.StudentMetric, error) {
	var metrics []model.StudentMetric
	err := r.DB.WithContext(ctx).
		Raw(classStudentMetricsSQL, true, model.Student, classID).
		Scan(&metrics).Error
	return metrics, err
}

const recentClassActivitySQL = `
SELECT p.user_id, u.display_name, p.lesson_id, p.activity_type, p.score, p.completed_at
FROM progress p
JOIN users u ON u.id = p.user_id
WHERE u.role = ? AND u.class_id = ? AND u.deleted_at IS NULL
	AND p.completed = ? AND p.completed_at >= ?
ORDER BY p.completed_at DESC, p.id DESC
LIMIT ?`

func (r *AnalyticsRepository) RecentClassActivity(ctx context.Context, classID uint, since time.Time, limit int) ([]model.ActivityFeedItem, error) {
	var items []model.ActivityFeedItem
	err := r.DB.WithContext(ctx).
		Raw(recentClassActivitySQL, model.Student, classID, true, since, limit).
		Scan(&items).Error
	return items, err
}

func (r *AnalyticsRepository) ActiveStudentsSince(ctx context.Context, classID uint, since time.Time) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).
		Raw(`SELECT COUNT(DISTINCT p.user_id) FROM progress p
			JOIN users u ON u.id = p.user_id
			WHERE u.role = ? AND u.class_id = ? AND u.deleted_at IS NULL AND p.completed_at >= ?`,
			model.Student, classID, since).
		Scan(&count).Error
	return count, err
}
