package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	"values_edu_backend/internal/config"
	"values_edu_backend/internal/controller"
	"values_edu_backend/internal/repository"
	"values_edu_backend/internal/service"
	"values_edu_backend/pkg/configwatcher"
	"values_edu_backend/pkg/database"
	"values_edu_backend/pkg/logger"
	"values_edu_backend/pkg/monitoring"
	"values_edu_backend/pkg/security"
	"values_edu_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config    *config.Config
	ConfigDir string
	Router    *gin.Engine
	DB        *gorm.DB
	Redis     *redis.Client

	services        *services
	rateStore       security.VisitorStore
	scheduler       *cron.Cron
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user         *repository.UserRepository
	xp           *repository.XPRepository
	badge        *repository.BadgeRepository
	progress     *repository.ProgressRepository
	checkin      *repository.CheckinRepository
	challenge    *repository.ChallengeRepository
	analytics    *repository.AnalyticsRepository
	notification *repository.NotificationRepository
}

type services struct {
	user         *service.UserService
	notification *service.NotificationService
	achievement  *service.AchievementService
	badge        *service.BadgeService
	storage      *service.StorageService
	xp           *service.XPService
	progress     *service.ProgressService
	challenge    *service.ChallengeService
}

type controllers struct {
	progress     *controller.ProgressController
	xp           *controller.XPController
	achievement  *controller.AchievementController
	challenge    *controller.ChallengeController
	notification *controller.NotificationController
	health       *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:         repository.NewUserRepository(db),
		xp:           repository.NewXPRepository(db),
		badge:        repository.NewBadgeRepository(db),
		progress:     repository.NewProgressRepository(db),
		checkin:      repository.NewCheckinRepository(db),
		challenge:    repository.NewChallengeRepository(db),
		analytics:    repository.NewAnalyticsRepository(db),
		notification: repository.NewNotificationRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client, clock service.Clock) *services {
	s := &services{}
	g := cfg.Gamification

	s.user = service.NewUserService(repos.user)
	s.notification = service.NewNotificationService(repos.notification, g.NotificationTTL(), clock)
	s.storage = service.NewStorageService(&cfg.Storage)
	s.badge = service.NewBadgeService(repos.badge, s.storage, clock)
	s.achievement = service.NewAchievementService(repos.badge, repos.progress, repos.xp, repos.user, s.notification, clock)

	s.challenge = service.NewChallengeService(
		repos.challenge,
		repos.analytics,
		repos.user,
		repos.badge,
		service.NewLeaderboardCache(rdb, g.LeaderboardCacheTTL()),
		s.notification,
		clock,
	)

	s.xp = service.NewXPService(repos.xp, repos.checkin, repos.progress, s.achievement, s.notification, clock)
	s.xp.Leaderboard = s.challenge

	s.progress = service.NewProgressService(
		repos.progress,
		repos.xp,
		s.xp,
		s.achievement,
		service.NewLocker(rdb, g.CompletionLockTTL()),
		clock,
	)
	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		progress:     controller.NewProgressController(s.progress),
		xp:           controller.NewXPController(s.xp, s.progress),
		achievement:  controller.NewAchievementController(s.achievement, s.badge),
		challenge:    controller.NewChallengeController(s.challenge),
		notification: controller.NewNotificationController(s.notification),
		health:       controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(a.rateStore))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func newRateStore(cfg *config.RateLimitConfig, rdb *redis.Client) security.VisitorStore {
	maxRequests := cfg.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 600
	}
	window := time.Duration(cfg.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	if rdb != nil {
		return security.NewRedisStore(rdb, maxRequests, window)
	}
	return security.NewMemoryStore(maxRequests, window)
}

// Build 在已打开的存储之上装配服务与路由
func Build(cfg *config.Config, db *gorm.DB, rdb *redis.Client, clock service.Clock) *App {
	if clock == nil {
		clock = service.SystemClock(cfg.Gamification.Location())
	}

	app := &App{
		Config:    cfg,
		ConfigDir: "configs",
		DB:        db,
		Redis:     rdb,
		rateStore: newRateStore(&cfg.RateLimit, rdb),
	}

	repos := app.initRepositories(db)
	app.services = app.initServices(repos, cfg, rdb, clock)
	ctrls := app.initControllers(app.services, db, rdb)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, ctrls, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.RegisterConfigCallback(func(newCfg *config.Config) {
		logger.SetLevel(newCfg.Server.Mode)
	})
	return app
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	if cfg.ForceMigrate || cfg.Server.Mode != "release" {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}
	if cfg.MigrateOnly {
		return &App{Config: cfg, DB: db}
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		log.Fatalf("Failed to initialize redis: %v", err)
	}

	monitoring.Init()

	app := Build(cfg, db, rdb, nil)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("values-edu-backend", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	return app
}

func (a *App) Run() {
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	a.startBackgroundTasks(ctx)

	err := configwatcher.WatchConfig(ctx, a.ConfigDir, func(newCfg *config.Config) {
		for _, cb := range a.configCallbacks {
			cb(newCfg)
		}
	})
	if err != nil {
		logger.Log.Warn("Config watcher disabled", zap.Error(err))
	}

	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	stop()
	a.stopBackgroundTasks()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}

	logger.Log.Info("Server exiting")
	logger.Sync()
}
