package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
	"values_edu_backend/internal/model"
	"values_edu_backend/internal/repository"
	"values_edu_backend/internal/util"
	"values_edu_backend/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BadgeService 徽章目录管理
type BadgeService struct {
	BadgeRepo *repository.BadgeRepository
	Storage   *StorageService

	validate *validator.Validate
	now      Clock
}

func NewBadgeService(badgeRepo *repository.BadgeRepository, storage *StorageService, clock Clock) *BadgeService {
	return &BadgeService{
		BadgeRepo: badgeRepo,
		Storage:   storage,
		validate:  validator.New(),
		now:       clock,
	}
}

type CreateBadgeRequest struct {
	Name           string `form:"name" json:"name" validate:"required,max=100"`
	Description    string `form:"description" json:"description" validate:"max=255"`
	Icon           string `form:"icon" json:"icon" validate:"max=255"`
	Rarity         string `form:"rarity" json:"rarity" validate:"omitempty,oneof=common uncommon rare epic legendary"`
	BadgeType      string `form:"badge_type" json:"badge_type" validate:"max=50"`
	ConditionType  string `form:"condition_type" json:"condition_type" validate:"required,max=50"`
	ConditionValue string `form:"condition_value" json:"condition_value" validate:"required"`
}

func (s *BadgeService) ListBadges(ctx context.Context) ([]model.BadgeDefinition, error) {
	badges, err := s.BadgeRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	if badges == nil {
		badges = []model.BadgeDefinition{}
	}
	return badges, nil
}

func (s *BadgeService) GetUserBadges(ctx context.Context, userID uint) ([]model.UserBadge, error) {
	badges, err := s.BadgeRepo.FindUserBadges(ctx, userID)
	if err != nil {
		return nil, err
	}
	if badges == nil {
		badges = []model.UserBadge{}
	}
	return badges, nil
}

// CreateBadge 条件值必须是合法 JSON；icon 文件可选
func (s *BadgeService) CreateBadge(ctx context.Context, req CreateBadgeRequest, icon *multipart.FileHeader) (*model.BadgeDefinition, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrInvalidCondition, err)
	}
	if _, ok := defaultEvaluators()[req.ConditionType]; !ok {
		return nil, fmt.Errorf("%w: unknown condition type %q", util.ErrInvalidCondition, req.ConditionType)
	}
	if _, err := ParseBadgeCondition(req.ConditionValue); err != nil {
		return nil, err
	}

	if _, err := s.BadgeRepo.FindByName(ctx, req.Name); err == nil {
		return nil, util.ErrBadgeAlreadyExists
	} else if !isNotFound(err) {
		return nil, err
	}

	rarity := model.BadgeRarity(req.Rarity)
	if rarity == "" {
		rarity = model.RarityCommon
	}
	badge := &model.BadgeDefinition{
		Name:           strings.TrimSpace(req.Name),
		Description:    req.Description,
		Icon:           req.Icon,
		Rarity:         rarity,
		BadgeType:      req.BadgeType,
		ConditionType:  req.ConditionType,
		ConditionValue: strings.TrimSpace(req.ConditionValue),
		CreatedAt:      s.now(),
	}

	if icon != nil {
		url, err := s.uploadIcon(ctx, icon)
		if err != nil {
			return nil, err
		}
		badge.Icon = url
	}

	if err := s.BadgeRepo.Create(ctx, badge); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, util.ErrBadgeAlreadyExists
		}
		return nil, err
	}
	logger.Log.Info("badge created", zap.Uint("badgeID", badge.ID), zap.String("name", badge.Name))
	return badge, nil
}

func (s *BadgeService) uploadIcon(ctx context.Context, icon *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(icon.Filename))
	allowed := false
	for _, e := range util.AllowedIconExtensions {
		if e == ext {
			allowed = true
			break
		}
	}
	if !allowed {
		return "", fmt.Errorf("%w: %q", util.ErrInvalidIcon, ext)
	}

	contentType := icon.Header.Get("Content-Type")
	if ext == ".svg" {
		contentType = util.MimeSVG
	} else if !strings.HasPrefix(contentType, util.MimeImage) {
		contentType = util.MimeImage + strings.TrimPrefix(ext, ".")
	}

	src, err := icon.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	filename := filepath.ToSlash(filepath.Join("badges", uuid.New().String()+ext))
	return s.Storage.Upload(ctx, filename, src, icon.Size, contentType)
}
