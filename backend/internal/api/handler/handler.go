package handler

import (
	"github.com/gin-gonic/gin"

	"sutra/backend/internal/service"
	apperrors "sutra/backend/pkg/errors"
	"sutra/backend/pkg/response"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	File      *FileHandler
	Timetable *TimetableHandler
	Export    *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service, maxUploadBytes int64) *Handler {
	return &Handler{
		File:      NewFileHandler(svc.File, maxUploadBytes),
		Timetable: NewTimetableHandler(svc.Timetable),
		Export:    NewExportHandler(svc.Export),
	}
}

// handleError 按错误类别写出 {success:false, error}
func handleError(c *gin.Context, err error) {
	status, msg := apperrors.StatusOf(err)
	if status >= 500 {
		_ = c.Error(err)
	}
	response.Fail(c, status, msg)
}
