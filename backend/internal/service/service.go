package service

import (
	"time"

	"go.uber.org/zap"

	"sutra/backend/config"
	"sutra/backend/internal/repository"
)

// Service 所有 Service 的聚合入口
type Service struct {
	File      FileService
	Timetable TimetableService
	Export    ExportService
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	loc *time.Location,
	logger *zap.Logger,
) *Service {
	return &Service{
		File:      NewFileService(repo, cfg.Storage.MaxUploadBytes(), logger),
		Timetable: NewTimetableService(repo, cfg.Generator.Seed, logger),
		Export:    NewExportService(repo, loc, logger),
	}
}
