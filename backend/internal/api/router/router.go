package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sutra/backend/config"
	"sutra/backend/internal/api/handler"
	"sutra/backend/internal/api/middleware"
	"sutra/backend/pkg/metrics"
)

// Setup 初始化并返回 Gin 路由引擎
// limiter 为 nil 时不限流
func Setup(cfg *config.Config, h *handler.Handler, limiter middleware.RateLimiter, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))

	// ── 健康检查与指标 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", metrics.Handler())

	if !cfg.RateLimit.Enabled {
		limiter = nil
	}
	uploadLimit := middleware.RateLimit(limiter, cfg.RateLimit.UploadPerMinute, time.Minute, logger)
	generateLimit := middleware.RateLimit(limiter, cfg.RateLimit.GeneratePerMinute, time.Minute, logger)

	// ── 上传文件 ──
	r.POST("/upload",
		uploadLimit,
		middleware.BodyLimit(cfg.Storage.MaxUploadBytes()),
		h.File.Upload,
	)
	r.GET("/files", h.File.List)
	r.GET("/parse/:filename", h.File.Parse)
	r.DELETE("/files/:filename", h.File.Delete)

	// ── 课表 ──
	r.POST("/generate", generateLimit, h.Timetable.Generate)

	api := r.Group("/api")
	{
		api.GET("/branches-divisions", h.Timetable.BranchesDivisions)
		api.GET("/timetables", h.Timetable.ListStored)
		api.GET("/timetables/:filename/export", h.Export.Export)
	}

	return r
}
