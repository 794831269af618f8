package repository

import (
	"context"
	"strings"
	"values_edu_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BadgeRepository struct {
	DB *gorm.DB
}

func NewBadgeRepository(db *gorm.DB) *BadgeRepository {
	return &BadgeRepository{DB: db}
}

func (r *BadgeRepository) FindAll(ctx context.Context) ([]model.BadgeDefinition, error) {
	var badges []model.BadgeDefinition
	err := r.DB.WithContext(ctx).Order("id").Find(&badges).Error
	return badges, err
}

func (r *BadgeRepository) FindByID(ctx context.Context, id uint) (*model.BadgeDefinition, error) {
	var badge model.BadgeDefinition
	if err := r.DB.WithContext(ctx).First(&badge, id).Error; err != nil {
		return nil, err
	}
	return &badge, nil
}

func (r *BadgeRepository) FindByName(ctx context.Context, name string) (*model.BadgeDefinition, error) {
	var badge model.BadgeDefinition
	if err := r.DB.WithContext(ctx).Where("name = ?", name).First(&badge).Error; err != nil {
		return nil, err
	}
	return &badge, nil
}

// FindByConditionType 精确匹配条件类型
func (r *BadgeRepository) FindByConditionType(ctx context.Context, conditionType string) ([]model.BadgeDefinition, error) {
	var badges []model.BadgeDefinition
	err := r.DB.WithContext(ctx).
		Where("condition_type = ?", conditionType).
		Order("id").
		Find(&badges).Error
	return badges, err
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// FindForActivity 条件类型等于或包含活动类型（支持多类型徽章），通配符按字面匹配
func (r *BadgeRepository) FindForActivity(ctx context.Context, activityType string) ([]model.BadgeDefinition, error) {
	var badges []model.BadgeDefinition
	if activityType == "" {
		return badges, nil
	}
	err := r.DB.WithContext(ctx).
		Where("condition_type = ? OR condition_type LIKE ? ESCAPE '!'", activityType, "%"+likeEscaper.Replace(activityType)+"%").
		Order("id").
		Find(&badges).Error
	return badges, err
}

func (r *BadgeRepository) Create(ctx context.Context, badge *model.BadgeDefinition) error {
	return r.DB.WithContext(ctx).Create(badge).Error
}

func (r *BadgeRepository) HeldBadgeIDs(ctx context.Context, userID uint) (map[uint]bool, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&model.UserBadge{}).
		Where("user_id = ?", userID).
		Pluck("badge_id", &ids).Error
	if err != nil {
		return nil, err
	}
	held := make(map[uint]bool, len(ids))
	for _, id := range ids {
		held[id] = true
	}
	return held, nil
}

// Award 插入 UserBadge；已持有时不插入并返回 false
func (r *BadgeRepository) Award(ctx context.Context, ub *model.UserBadge) (bool, error) {
	res := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "badge_id"}},
			DoNothing: true,
		}).
		Create(ub)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *BadgeRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.UserBadge{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *BadgeRepository) FindUserBadges(ctx context.Context, userID uint) ([]model.UserBadge, error) {
	var badges []model.UserBadge
	err := r.DB.WithContext(ctx).
		Preload("Badge").
		Where("user_id = ?", userID).
		Order("earned_at DESC, id DESC").
		Find(&badges).Error
	return badges, err
}
