package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"sutra/backend/config"
	"sutra/backend/internal/api/handler"
	"sutra/backend/internal/api/middleware"
	"sutra/backend/internal/api/router"
	"sutra/backend/internal/repository"
	"sutra/backend/internal/service"
	applogger "sutra/backend/pkg/logger"
	"sutra/backend/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径，留空时在 ./config 与当前目录查找 config.yaml")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 初始化文件存储
	var files repository.FileRepository
	switch cfg.Storage.Driver {
	case "memory":
		files = repository.NewMemoryFileRepo()
		logger.Warn("使用内存存储，重启后上传文件与课表快照将丢失")
	default:
		files, err = repository.NewLocalFileRepo(cfg.Storage.UploadDir)
		if err != nil {
			logger.Fatal("初始化上传目录失败", zap.String("dir", cfg.Storage.UploadDir), zap.Error(err))
		}
		logger.Info("上传目录就绪", zap.String("dir", cfg.Storage.UploadDir))
	}

	// 4. 连接 Redis（可选：连接失败时不限流，不中断启动）
	var rdb *redis.Client
	var limiter middleware.RateLimiter
	if cfg.Redis.Enabled {
		rdb, err = redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis 连接失败，限流功能将不可用", zap.Error(err))
			rdb = nil
		} else {
			limiter = rdb
		}
	}

	loc, err := cfg.Export.Location()
	if err != nil {
		logger.Fatal("加载导出时区失败", zap.Error(err))
	}

	// 5. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(files, logger)
	svc := service.NewService(cfg, repo, loc, logger)
	h := handler.NewHandler(svc, cfg.Storage.MaxUploadBytes())

	// 6. 初始化路由
	engine := router.Setup(cfg, h, limiter, logger)

	// 7. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 8. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
