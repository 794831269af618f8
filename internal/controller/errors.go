package controller

import (
	"errors"
	"values_edu_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// respondError 业务错误映射为 HTTP 状态码，其余按 500 处理并记录日志
func respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrInvalidQuiz),
		errors.Is(err, util.ErrInvalidLessonID),
		errors.Is(err, util.ErrInvalidCondition),
		errors.Is(err, util.ErrInvalidChallenge),
		errors.Is(err, util.ErrInvalidIcon):
		util.BadRequest(ctx, err.Error())
	case errors.Is(err, util.ErrPermissionDenied):
		util.Forbidden(ctx)
	case errors.Is(err, util.ErrUserNotFound),
		errors.Is(err, util.ErrBadgeNotFound),
		errors.Is(err, util.ErrChallengeNotFound),
		errors.Is(err, util.ErrNotificationNotFound):
		util.NotFound(ctx, err.Error())
	case errors.Is(err, util.ErrBadgeAlreadyExists),
		errors.Is(err, util.ErrLockNotAcquired):
		util.Conflict(ctx, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}

// parseIDParam 路径参数必须为正整数
func parseIDParam(ctx *gin.Context, name string) (uint, bool) {
	id := util.MustParseUint(ctx.Param(name))
	if id == 0 {
		util.BadRequest(ctx, "invalid "+name)
		return 0, false
	}
	return id, true
}
