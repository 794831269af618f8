package repository

import (
	"context"
	"time"
	"values_edu_backend/internal/model"

	"gorm.io/gorm"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

func (r *ProgressRepository) WithTx(tx *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: tx}
}

// FindCompleted 查询 (user, lesson) 最早的已完成记录
func (r *ProgressRepository) FindCompleted(ctx context.Context, userID uint, lessonID string) (*model.ProgressRecord, error) {
	var rec model.ProgressRecord
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND lesson_id = ? AND completed = ?", userID, lessonID, true).
		Order("id").
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *ProgressRepository) Create(ctx context.Context, rec *model.ProgressRecord) error {
	return r.DB.WithContext(ctx).Create(rec).Error
}

func (r *ProgressRepository) CountByUserAndLesson(ctx context.Context, userID uint, lessonID string) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.ProgressRecord{}).
		Where("user_id = ? AND lesson_id = ?", userID, lessonID).
		Count(&count).Error
	return count, err
}

func (r *ProgressRepository) CountCompleted(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.ProgressRecord{}).
		Where("user_id = ? AND completed = ?", userID, true).
		Count(&count).Error
	return count, err
}

func (r *ProgressRepository) CountWithScoreAtLeast(ctx context.Context, userID uint, score float64) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.ProgressRecord{}).
		Where("user_id = ? AND score IS NOT NULL AND score >= ?", userID, score).
		Count(&count).Error
	return count, err
}

// CountCompletedBetween [start, end) 内完成的记录数
func (r *ProgressRepository) CountCompletedBetween(ctx context.Context, userID uint, start, end time.Time) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.ProgressRecord{}).
		Where("user_id = ? AND completed = ? AND completed_at >= ? AND completed_at < ?", userID, true, start, end).
		Count(&count).Error
	return count, err
}

type ScoreStats struct {
	Average float64
	Count   int64
}

// ScoreStats 所有带分数记录的平均分与次数
func (r *ProgressRepository) ScoreStats(ctx context.Context, userID uint) (*ScoreStats, error) {
	var row struct {
		Average *float64
		Count   int64
	}
	err := r.DB.WithContext(ctx).Model(&model.ProgressRecord{}).
		Select("AVG(score) AS average, COUNT(*) AS count").
		Where("user_id = ? AND score IS NOT NULL", userID).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	stats := &ScoreStats{Count: row.Count}
	if row.Average != nil {
		stats.Average = *row.Average
	}
	return stats, nil
}

func (r *ProgressRepository) Delete(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Delete(&model.ProgressRecord{}, id).Error
}
