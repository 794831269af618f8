package repository

import (
	"context"
	"values_edu_backend/internal/model"

	"gorm.io/gorm"
)

type ChallengeRepository struct {
	DB *gorm.DB
}

func NewChallengeRepository(db *gorm.DB) *ChallengeRepository {
	return &ChallengeRepository{DB: db}
}

func (r *ChallengeRepository) Create(ctx context.Context, challenge *model.ClassChallenge) error {
	return r.DB.WithContext(ctx).Create(challenge).Error
}

func (r *ChallengeRepository) FindByID(ctx context.Context, id uint) (*model.ClassChallenge, error) {
	var challenge model.ClassChallenge
	if err := r.DB.WithContext(ctx).First(&challenge, id).Error; err != nil {
		return nil, err
	}
	return &challenge, nil
}

func (r *ChallengeRepository) FindByClass(ctx context.Context, classID uint) ([]model.ClassChallenge, error) {
	var challenges []model.ClassChallenge
	err := r.DB.WithContext(ctx).
		Where("class_id = ?", classID).
		Order("start_date DESC, id DESC").
		Find(&challenges).Error
	return challenges, err
}
