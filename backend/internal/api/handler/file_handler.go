package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"sutra/backend/internal/dto"
	"sutra/backend/internal/service"
	"sutra/backend/pkg/response"
)

// UploadField 上传表单字段名
const UploadField = "excelFile"

// FileHandler 上传文件模块 Handler
type FileHandler struct {
	svc            service.FileService
	maxUploadBytes int64
}

// NewFileHandler 创建 FileHandler 实例
func NewFileHandler(svc service.FileService, maxUploadBytes int64) *FileHandler {
	return &FileHandler{svc: svc, maxUploadBytes: maxUploadBytes}
}

// Upload 上传数据文件
// POST /upload  multipart/form-data, field="excelFile"
func (h *FileHandler) Upload(c *gin.Context) {
	fh, err := c.FormFile(UploadField)
	if err != nil {
		if isBodyTooLarge(err) {
			response.BadRequest(c, service.FileTooLargeMessage(h.maxUploadBytes))
			return
		}
		response.BadRequest(c, service.MsgNoFileSelected)
		return
	}

	f, err := fh.Open()
	if err != nil {
		response.InternalError(c, service.MsgUploadFailedPrefix+err.Error())
		return
	}
	defer f.Close()

	resp, err := h.svc.Upload(c.Request.Context(), fh.Filename, fh.Size, f)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, resp)
}

// isBodyTooLarge multipart 解析可能包装 MaxBytesReader 的错误
func isBodyTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large")
}

// List 列出已上传的数据文件
// GET /files
func (h *FileHandler) List(c *gin.Context) {
	resp, err := h.svc.List(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, resp)
}

// Parse 解析单个文件
// GET /parse/:filename
func (h *FileHandler) Parse(c *gin.Context) {
	name := c.Param("filename")
	data, err := h.svc.Parse(c.Request.Context(), name)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OK(c, &dto.ParseResponse{Success: true, Data: data, Filename: name})
}

// Delete 删除单个文件
// DELETE /files/:filename
func (h *FileHandler) Delete(c *gin.Context) {
	name := c.Param("filename")
	if err := h.svc.Delete(c.Request.Context(), name); err != nil {
		handleError(c, err)
		return
	}
	response.OKMessage(c, fmt.Sprintf("File '%s' deleted successfully.", name))
}
