package app

import (
	"context"
	"values_edu_backend/pkg/logger"
	"values_edu_backend/pkg/security"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// startBackgroundTasks 周积分重置（每日检查，仅周一执行）、过期通知清理及启动补偿
func (a *App) startBackgroundTasks(ctx context.Context) {
	s := a.services
	g := a.Config.Gamification

	if _, err := s.xp.CatchUpWeeklyReset(ctx); err != nil {
		logger.Log.Error("weekly virtue point catch-up failed", zap.Error(err))
	}

	c := cron.New(cron.WithLocation(g.Location()))

	_, err := c.AddFunc(g.WeeklyResetCron, func() {
		if _, err := s.xp.RunScheduledWeeklyReset(ctx); err != nil {
			logger.Log.Error("weekly virtue point reset failed", zap.Error(err))
		}
	})
	if err != nil {
		logger.Log.Error("invalid weekly_reset_cron", zap.String("expr", g.WeeklyResetCron), zap.Error(err))
	}

	_, err = c.AddFunc(g.NotificationCleanupCron, func() {
		if _, err := s.notification.CleanupExpired(ctx); err != nil {
			logger.Log.Error("notification cleanup failed", zap.Error(err))
		}
	})
	if err != nil {
		logger.Log.Error("invalid notification_cleanup_cron", zap.String("expr", g.NotificationCleanupCron), zap.Error(err))
	}

	c.Start()
	a.scheduler = c

	if store, ok := a.rateStore.(*security.MemoryStore); ok {
		store.StartSweeper(ctx)
	}
}

func (a *App) stopBackgroundTasks() {
	if a.scheduler == nil {
		return
	}
	<-a.scheduler.Stop().Done()
}
