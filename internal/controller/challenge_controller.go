package controller

import (
	"values_edu_backend/internal/service"
	"values_edu_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ChallengeController struct {
	ChallengeService *service.ChallengeService
}

func NewChallengeController(challengeService *service.ChallengeService) *ChallengeController {
	return &ChallengeController{ChallengeService: challengeService}
}

// classParam 解析班级ID并校验访问权限
func classParam(ctx *gin.Context) (uint, bool) {
	classID, ok := parseIDParam(ctx, "classId")
	if !ok {
		return 0, false
	}
	if err := service.AuthorizeClass(util.GetUserFromContext(ctx), classID); err != nil {
		respondError(ctx, err)
		return 0, false
	}
	return classID, true
}

// @Summary 创建班级挑战
// @Tags 班级
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param classId path int true "班级ID"
// @Param body body service.CreateChallengeRequest true "挑战信息"
// @Success 201 {object} util.Response{data=model.ClassChallenge}
// @Router /api/classes/{classId}/challenges [post]
func (c *ChallengeController) CreateChallenge(ctx *gin.Context) {
	classID, ok := parseIDParam(ctx, "classId")
	if !ok {
		return
	}

	var req service.CreateChallengeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	challenge, err := c.ChallengeService.CreateChallenge(ctx.Request.Context(), util.GetUserFromContext(ctx), classID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, challenge)
}

// @Summary 班级挑战列表
// @Tags 班级
// @Produce json
// @Security BearerAuth
// @Param classId path int true "班级ID"
// @Success 200 {object} util.Response{data=[]model.ClassChallenge}
// @Router /api/classes/{classId}/challenges [get]
func (c *ChallengeController) ListClassChallenges(ctx *gin.Context) {
	classID, ok := classParam(ctx)
	if !ok {
		return
	}

	challenges, err := c.ChallengeService.ListClassChallenges(ctx.Request.Context(), classID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, challenges)
}

// @Summary 挑战进度
// @Tags 班级
// @Produce json
// @Security BearerAuth
// @Param id path int true "挑战ID"
// @Success 200 {object} util.Response{data=model.ChallengeProgress}
// @Router /api/challenges/{id}/progress [get]
func (c *ChallengeController) GetChallengeProgress(ctx *gin.Context) {
	challengeID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	challenge, err := c.ChallengeService.GetChallenge(ctx.Request.Context(), challengeID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if err := service.AuthorizeClass(util.GetUserFromContext(ctx), challenge.ClassID); err != nil {
		respondError(ctx, err)
		return
	}

	progress, err := c.ChallengeService.GetChallengeProgress(ctx.Request.Context(), challengeID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, progress)
}

// @Summary 班级排行榜
// @Description 按总经验、等级、完成课程数排序，返回前 10 名
// @Tags 班级
// @Produce json
// @Security BearerAuth
// @Param classId path int true "班级ID"
// @Success 200 {object} util.Response{data=[]model.LeaderboardEntry}
// @Router /api/classes/{classId}/leaderboard [get]
func (c *ChallengeController) GetClassLeaderboard(ctx *gin.Context) {
	classID, ok := classParam(ctx)
	if !ok {
		return
	}

	entries, err := c.ChallengeService.GetClassLeaderboard(ctx.Request.Context(), classID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, entries)
}

// @Summary 班级统计
// @Tags 班级
// @Produce json
// @Security BearerAuth
// @Param classId path int true "班级ID"
// @Success 200 {object} util.Response{data=model.ClassAnalytics}
// @Router /api/classes/{classId}/analytics [get]
func (c *ChallengeController) GetClassAnalytics(ctx *gin.Context) {
	classID, ok := classParam(ctx)
	if !ok {
		return
	}

	analytics, err := c.ChallengeService.GetClassAnalytics(ctx.Request.Context(), classID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, analytics)
}
