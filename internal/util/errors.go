package util

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrBadgeNotFound        = errors.New("badge not found")
	ErrBadgeAlreadyExists   = errors.New("badge name already exists")
	ErrChallengeNotFound    = errors.New("challenge not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrInvalidQuiz          = errors.New("total questions must be positive and score within range")
	ErrInvalidLessonID      = errors.New("lesson id is required")
	ErrInvalidCondition     = errors.New("invalid badge condition")
	ErrInvalidChallenge     = errors.New("invalid challenge")
	ErrLockNotAcquired      = errors.New("completion already in progress")
	ErrInvalidIcon          = errors.New("unsupported badge icon type")
)
