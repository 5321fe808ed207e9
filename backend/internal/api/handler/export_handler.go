package handler

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"sutra/backend/internal/dto"
	"sutra/backend/internal/service"
	"sutra/backend/pkg/response"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// Export 导出课表快照
// GET /api/timetables/:filename/export?format=xlsx|ics
func (h *ExportHandler) Export(c *gin.Context) {
	var q dto.ExportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "format must be one of: xlsx, ics")
		return
	}

	file, err := h.exportSvc.Export(c.Request.Context(), c.Param("filename"), q.Format)
	if err != nil {
		handleError(c, err)
		return
	}

	// 设置下载响应头
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Content.Bytes())
}
