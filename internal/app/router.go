package app

import (
	"values_edu_backend/internal/config"
	"values_edu_backend/internal/middleware"
	"values_edu_backend/internal/model"
	"values_edu_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	router.GET("/api/health", c.health.HealthCheck)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(
		middleware.AuthMiddleware(cfg.JWT.Secret),
		middleware.IdentityMiddleware(a.services.user),
	)
	{
		a.registerStudentRoutes(authGroup, c)
		a.registerTeacherRoutes(authGroup, c)
		a.registerAdminRoutes(authGroup, c)
	}
}

func (a *App) registerStudentRoutes(r *gin.RouterGroup, c *controllers) {
	progress := r.Group("/progress")
	{
		progress.POST("/lessons/:lessonId/complete", c.progress.CompleteLesson)
		progress.POST("/lessons/:lessonId/watched", c.progress.WatchLesson)
		progress.POST("/quizzes/:quizId/complete", c.progress.CompleteQuiz)
		progress.POST("/flashcards/complete", c.progress.CompleteFlashcards)
	}

	xp := r.Group("/xp")
	{
		xp.POST("/daily-login", c.xp.DailyLogin)
		xp.GET("/me", c.xp.GetMyXP)
	}

	r.GET("/badges", c.achievement.ListBadges)
	r.GET("/badges/me", c.achievement.GetMyBadges)
	r.POST("/achievements/check", c.achievement.CheckAchievements)

	// 学生可查看本班排行榜与挑战
	r.GET("/classes/:classId/leaderboard", c.challenge.GetClassLeaderboard)
	r.GET("/classes/:classId/challenges", c.challenge.ListClassChallenges)

	notifications := r.Group("/notifications")
	{
		notifications.GET("", c.notification.List)
		notifications.PATCH("/:id/read", c.notification.MarkRead)
		notifications.POST("/read-all", c.notification.MarkAllRead)
		notifications.GET("/settings", c.notification.GetSettings)
		notifications.PUT("/settings", c.notification.UpdateSettings)
	}
}

func (a *App) registerTeacherRoutes(r *gin.RouterGroup, c *controllers) {
	teacher := r.Group("")
	teacher.Use(middleware.RoleMiddleware(model.Teacher))
	{
		teacher.POST("/badges/award", c.achievement.AwardBadge)
		teacher.POST("/classes/:classId/challenges", c.challenge.CreateChallenge)
		teacher.GET("/challenges/:id/progress", c.challenge.GetChallengeProgress)
		teacher.GET("/classes/:classId/analytics", c.challenge.GetClassAnalytics)
	}
}

func (a *App) registerAdminRoutes(r *gin.RouterGroup, c *controllers) {
	admin := r.Group("")
	admin.Use(middleware.RoleMiddleware(model.Admin))
	{
		admin.POST("/badges", c.achievement.CreateBadge)
		admin.POST("/admin/virtue-points/reset", c.xp.ResetWeeklyVirtuePoints)
	}
}
