package repository

import (
	"context"
	"values_edu_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByExternalAuthID(ctx context.Context, externalID string) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).Where("external_auth_id = ?", externalID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateIfAbsent 并发首次请求时依赖 external_auth_id 唯一索引去重
func (r *UserRepository) CreateIfAbsent(ctx context.Context, user *model.User) (*model.User, error) {
	err := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "external_auth_id"}}, DoNothing: true}).
		Create(user).Error
	if err != nil {
		return nil, err
	}
	return r.FindByExternalAuthID(ctx, user.ExternalAuthID)
}

func (r *UserRepository) Update(ctx context.Context, user *model.User) error {
	return r.DB.WithContext(ctx).Save(user).Error
}

func (r *UserRepository) FindStudentsByClass(ctx context.Context, classID uint) ([]model.User, error) {
	var users []model.User
	err := r.DB.WithContext(ctx).
		Where("role = ? AND class_id = ?", model.Student, classID).
		Order("id").
		Find(&users).Error
	return users, err
}
