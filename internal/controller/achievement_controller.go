package controller

import (
	"net/http"
	"values_edu_backend/internal/service"
	"values_edu_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AchievementController struct {
	AchievementService *service.AchievementService
	BadgeService       *service.BadgeService
}

func NewAchievementController(achievementService *service.AchievementService, badgeService *service.BadgeService) *AchievementController {
	return &AchievementController{AchievementService: achievementService, BadgeService: badgeService}
}

type CheckAchievementsRequest struct {
	ActivityType string                 `json:"activity_type" binding:"required"`
	ActivityData map[string]interface{} `json:"activity_data"`
}

type AwardBadgeRequest struct {
	UserID  uint `json:"user_id" binding:"required"`
	BadgeID uint `json:"badge_id" binding:"required"`
}

// @Summary 徽章目录
// @Tags 成就系统
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.BadgeDefinition}
// @Router /api/badges [get]
func (c *AchievementController) ListBadges(ctx *gin.Context) {
	badges, err := c.BadgeService.ListBadges(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, badges)
}

// @Summary 我的徽章
// @Tags 成就系统
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.UserBadge}
// @Router /api/badges/me [get]
func (c *AchievementController) GetMyBadges(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	badges, err := c.BadgeService.GetUserBadges(ctx.Request.Context(), user.UserID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, badges)
}

// @Summary 检查成就
// @Description 按活动类型评估所有相关徽章，返回新获得的徽章
// @Tags 成就系统
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CheckAchievementsRequest true "活动类型"
// @Success 200 {object} util.Response
// @Router /api/achievements/check [post]
func (c *AchievementController) CheckAchievements(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req CheckAchievementsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	earned, err := c.AchievementService.CheckAndAwardAchievements(ctx.Request.Context(), user.UserID, req.ActivityType, req.ActivityData)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"new_achievements": earned})
}

// @Summary 教师颁发徽章
// @Description 跳过条件判定直接颁发；已持有时返回失败结果
// @Tags 成就系统
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body AwardBadgeRequest true "颁发对象"
// @Success 200 {object} util.Response{data=service.AwardBadgeResult}
// @Router /api/badges/award [post]
func (c *AchievementController) AwardBadge(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req AwardBadgeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.AchievementService.AwardBadge(ctx.Request.Context(), user.UserID, req.UserID, req.BadgeID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if !result.Success {
		ctx.JSON(http.StatusBadRequest, util.Response{Code: http.StatusBadRequest, Message: result.Message, Data: result})
		return
	}
	util.Success(ctx, result)
}

// @Summary 创建徽章
// @Tags 管理
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param name formData string true "名称"
// @Param condition_type formData string true "条件类型"
// @Param condition_value formData string true "条件参数（JSON）"
// @Param icon_file formData file false "图标"
// @Success 201 {object} util.Response{data=model.BadgeDefinition}
// @Router /api/badges [post]
func (c *AchievementController) CreateBadge(ctx *gin.Context) {
	var req service.CreateBadgeRequest
	if err := ctx.ShouldBind(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	icon, _ := ctx.FormFile("icon_file")
	badge, err := c.BadgeService.CreateBadge(ctx.Request.Context(), req, icon)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, badge)
}
