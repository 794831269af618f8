package controller

import (
	"values_edu_backend/internal/service"
	"values_edu_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type XPController struct {
	XPService       *service.XPService
	ProgressService *service.ProgressService
}

func NewXPController(xpService *service.XPService, progressService *service.ProgressService) *XPController {
	return &XPController{XPService: xpService, ProgressService: progressService}
}

// @Summary 每日登录奖励
// @Description 每天首次调用发放经验并更新连续登录天数，当天重复调用不再发放
// @Tags 经验
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.DailyLoginResult}
// @Router /api/xp/daily-login [post]
func (c *XPController) DailyLogin(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	result, err := c.ProgressService.DailyLogin(ctx.Request.Context(), user.UserID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary 获取我的经验
// @Tags 经验
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.XPSummary}
// @Router /api/xp/me [get]
func (c *XPController) GetMyXP(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	summary, err := c.XPService.GetXPSummary(ctx.Request.Context(), user.UserID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, summary)
}

// @Summary 手动重置周美德积分
// @Tags 管理
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.WeeklyResetResult}
// @Router /api/admin/virtue-points/reset [post]
func (c *XPController) ResetWeeklyVirtuePoints(ctx *gin.Context) {
	result, err := c.XPService.ResetWeeklyVirtuePoints(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}
