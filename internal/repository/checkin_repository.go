package repository

import (
	"context"
	"values_edu_backend/internal/model"

	"gorm.io/gorm"
)

type CheckinRepository struct {
	DB *gorm.DB
}

// NewCheckinRepository 创建新的签到仓库实例
func NewCheckinRepository(db *gorm.DB) *CheckinRepository {
	return &CheckinRepository{DB: db}
}

func (r *CheckinRepository) WithTx(tx *gorm.DB) *CheckinRepository {
	return &CheckinRepository{DB: tx}
}

// Create 创建新的签到记录
func (r *CheckinRepository) Create(ctx context.Context, signIn *model.DailySignIn) error {
	return r.DB.WithContext(ctx).Create(signIn).Error
}

// FindByUserAndDate 检查用户在指定日期（YYYY-MM-DD）是否已签到
func (r *CheckinRepository) FindByUserAndDate(ctx context.Context, userID uint, date string) (*model.DailySignIn, error) {
	var signIn model.DailySignIn
	err := r.DB.WithContext(ctx).Where("user_id = ? AND login_date = ?", userID, date).First(&signIn).Error
	if err != nil {
		return nil, err
	}
	return &signIn, nil
}

// FindLatestByUser 获取用户最近的签到记录
func (r *CheckinRepository) FindLatestByUser(ctx context.Context, userID uint) (*model.DailySignIn, error) {
	var signIn model.DailySignIn
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).Order("login_date DESC").First(&signIn).Error
	if err != nil {
		return nil, err
	}
	return &signIn, nil
}

// CountByUser 获取用户的总签到次数
func (r *CheckinRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.DailySignIn{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
