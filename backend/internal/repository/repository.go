package repository

import "go.uber.org/zap"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	File      FileRepository
	Timetable TimetableRepository
}

// NewRepository 创建 Repository 聚合，上传文件与课表快照共用同一目录
func NewRepository(files FileRepository, logger *zap.Logger) *Repository {
	return &Repository{
		File:      files,
		Timetable: NewTimetableRepo(files, logger),
	}
}
