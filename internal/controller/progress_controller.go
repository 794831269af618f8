package controller

import (
	"errors"
	"io"
	"values_edu_backend/internal/service"
	"values_edu_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	ProgressService *service.ProgressService
}

func NewProgressController(progressService *service.ProgressService) *ProgressController {
	return &ProgressController{ProgressService: progressService}
}

type QuizCompletionRequest struct {
	Score          int `json:"score" binding:"min=0"`
	TotalQuestions int `json:"total_questions" binding:"required,gt=0"`
}

// @Summary 完成课程
// @Description 同一课程只奖励一次，重复提交返回 already_completed
// @Tags 学习进度
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param lessonId path string true "课程ID"
// @Param body body service.LessonCompletionOptions false "课程内活动位置"
// @Success 200 {object} util.Response{data=service.CompletionResult}
// @Router /api/progress/lessons/{lessonId}/complete [post]
func (c *ProgressController) CompleteLesson(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var opts service.LessonCompletionOptions
	if err := ctx.ShouldBindJSON(&opts); err != nil && !errors.Is(err, io.EOF) {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.ProgressService.CompleteLesson(ctx.Request.Context(), user.UserID, ctx.Param("lessonId"), opts)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary 完成测验
// @Description 每答对一题 10 XP，正确率不低于 80% 额外奖励 50 XP
// @Tags 学习进度
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param quizId path string true "测验ID"
// @Param body body QuizCompletionRequest true "得分"
// @Success 200 {object} util.Response{data=service.CompletionResult}
// @Router /api/progress/quizzes/{quizId}/complete [post]
func (c *ProgressController) CompleteQuiz(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req QuizCompletionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.ProgressService.CompleteQuiz(ctx.Request.Context(), user.UserID, ctx.Param("quizId"), req.Score, req.TotalQuestions)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary 完成闪卡练习
// @Tags 学习进度
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.ActivityResult}
// @Router /api/progress/flashcards/complete [post]
func (c *ProgressController) CompleteFlashcards(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	result, err := c.ProgressService.CompleteFlashcards(ctx.Request.Context(), user.UserID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary 观看课程视频
// @Tags 学习进度
// @Produce json
// @Security BearerAuth
// @Param lessonId path string true "课程ID"
// @Success 200 {object} util.Response{data=service.ActivityResult}
// @Router /api/progress/lessons/{lessonId}/watched [post]
func (c *ProgressController) WatchLesson(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	result, err := c.ProgressService.WatchLesson(ctx.Request.Context(), user.UserID, ctx.Param("lessonId"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}
