package service

import (
	"context"
	"values_edu_backend/internal/model"
	"values_edu_backend/internal/repository"
	"values_edu_backend/internal/util"
	"values_edu_backend/pkg/logger"

	"go.uber.org/zap"
)

// UserService 将外部身份映射为内部用户
type UserService struct {
	UserRepo *repository.UserRepository
}

func NewUserService(userRepo *repository.UserRepository) *UserService {
	return &UserService{UserRepo: userRepo}
}

// EnsureUser 首次请求时懒创建用户，之后同步令牌中的资料变化
func (s *UserService) EnsureUser(ctx context.Context, claims *util.Claims) (*model.User, error) {
	role := claims.Role
	if role == "" {
		role = model.Student
	}

	user, err := s.UserRepo.FindByExternalAuthID(ctx, claims.Subject)
	if err != nil {
		if !isNotFound(err) {
			return nil, err
		}
		user, err = s.UserRepo.CreateIfAbsent(ctx, &model.User{
			ExternalAuthID: claims.Subject,
			DisplayName:    claims.Name,
			Email:          claims.Email,
			Role:           role,
			ClassID:        claims.ClassID,
			ProfilePicture: claims.Picture,
		})
		if err != nil {
			return nil, err
		}
		logger.Log.Info("user provisioned", zap.Uint("userID", user.ID), zap.String("role", string(user.Role)))
		return user, nil
	}

	if syncProfile(user, claims, role) {
		if err := s.UserRepo.Update(ctx, user); err != nil {
			return nil, err
		}
	}
	return user, nil
}

func syncProfile(user *model.User, claims *util.Claims, role model.UserRole) bool {
	changed := false
	if claims.Name != "" && user.DisplayName != claims.Name {
		user.DisplayName = claims.Name
		changed = true
	}
	if claims.Email != "" && user.Email != claims.Email {
		user.Email = claims.Email
		changed = true
	}
	if claims.Picture != "" && user.ProfilePicture != claims.Picture {
		user.ProfilePicture = claims.Picture
		changed = true
	}
	if user.Role != role {
		user.Role = role
		changed = true
	}
	if claims.ClassID != nil && (user.ClassID == nil || *user.ClassID != *claims.ClassID) {
		id := *claims.ClassID
		user.ClassID = &id
		changed = true
	}
	return changed
}

func (s *UserService) GetUser(ctx context.Context, userID uint) (*model.User, error) {
	user, err := s.UserRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, translateNotFound(err, util.ErrUserNotFound)
	}
	return user, nil
}
