package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	XPAwarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamification_xp_awarded_total",
			Help: "Total XP granted, by trigger",
		},
		[]string{"trigger"},
	)

	VirtuePointsAwarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamification_virtue_points_awarded_total",
			Help: "Total virtue points granted, by activity",
		},
		[]string{"activity"},
	)

	BadgesAwarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamification_badges_awarded_total",
			Help: "Badges newly awarded, by evaluation path",
		},
		[]string{"path"},
	)

	LevelUps = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gamification_level_ups_total",
			Help: "Number of level-up events",
		},
	)

	DuplicateCompletions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gamification_duplicate_lesson_completions_total",
			Help: "Lesson completions rejected by the anti-farming guard",
		},
	)

	WeeklyResets = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gamification_weekly_resets_total",
			Help: "Weekly virtue point resets executed",
		},
	)
)

func Init() {
	prometheus.MustRegister(
		RequestCounter,
		RequestDuration,
		XPAwarded,
		VirtuePointsAwarded,
		BadgesAwarded,
		LevelUps,
		DuplicateCompletions,
		WeeklyResets,
	)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		// 未匹配路由统一归为一个标签，避免扫描请求撑大基数
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		RequestCounter.WithLabelValues(c.Request.Method, endpoint, strconv.Itoa(c.Writer.Status())).Inc()
		RequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
