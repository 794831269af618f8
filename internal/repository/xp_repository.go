package repository

import (
	"context"
	"values_edu_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type XPRepository struct {
	DB *gorm.DB
}

func NewXPRepository(db *gorm.DB) *XPRepository {
	return &XPRepository{DB: db}
}

func (r *XPRepository) WithTx(tx *gorm.DB) *XPRepository {
	return &XPRepository{DB: tx}
}

func (r *XPRepository) FindByUserID(ctx context.Context, userID uint) (*model.XPRecord, error) {
	var rec model.XPRecord
	if err := r.DB.WithContext(ctx).Where("user_id = ?", userID).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetOrCreate 懒创建经验记录，默认 0 XP / 1 级
func (r *XPRepository) GetOrCreate(ctx context.Context, userID uint, weekStart string) (*model.XPRecord, error) {
	rec := &model.XPRecord{
		UserID:        userID,
		TotalXP:       0,
		CurrentLevel:  1,
		XPToNextLevel: 100,
		WeekStartDate: weekStart,
	}
	err := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(rec).Error
	if err != nil {
		return nil, err
	}
	return r.FindByUserID(ctx, userID)
}

func (r *XPRepository) IncrementXP(ctx context.Context, userID uint, delta int) error {
	return r.DB.WithContext(ctx).Model(&model.XPRecord{}).
		Where("user_id = ?", userID).
		UpdateColumn("total_xp", gorm.Expr("total_xp + ?", delta)).
		Error
}

func (r *XPRepository) UpdateLevel(ctx context.Context, userID uint, level, xpToNext int) error {
	return r.DB.WithContext(ctx).Model(&model.XPRecord{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"current_level":    level,
			"xp_to_next_level": xpToNext,
		}).Error
}

func (r *XPRepository) IncrementVirtuePoints(ctx context.Context, userID uint, delta int) error {
	return r.DB.WithContext(ctx).Model(&model.XPRecord{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"virtue_points":        gorm.Expr("virtue_points + ?", delta),
			"weekly_virtue_points": gorm.Expr("weekly_virtue_points + ?", delta),
		}).Error
}

func (r *XPRepository) UpdateLogin(ctx context.Context, userID uint, streak int, loginDate string) error {
	return r.DB.WithContext(ctx).Model(&model.XPRecord{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"login_streak":    streak,
			"last_login_date": loginDate,
		}).Error
}

// ResetWeeklyVirtuePoints 全量清零周积分，不触碰 total_xp 与 virtue_points
func (r *XPRepository) ResetWeeklyVirtuePoints(ctx context.Context, weekStart string) (int64, error) {
	res := r.DB.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).
		Model(&model.XPRecord{}).
		Updates(map[string]interface{}{
			"weekly_virtue_points": 0,
			"week_start_date":      weekStart,
		})
	return res.RowsAffected, res.Error
}

// CountStaleWeeks 统计周起始日早于 weekStart 的记录数
func (r *XPRepository) CountStaleWeeks(ctx context.Context, weekStart string) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.XPRecord{}).
		Where("week_start_date IS NULL OR week_start_date = '' OR week_start_date < ?", weekStart).
		Count(&count).Error
	return count, err
}

func (r *XPRepository) CreateEvent(ctx context.Context, event *model.XPEvent) error {
	return r.DB.WithContext(ctx).Create(event).Error
}

func (r *XPRepository) FindEventsByUser(ctx context.Context, userID uint, limit int) ([]model.XPEvent, error) {
	var events []model.XPEvent
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&events).Error
	return events, err
}
