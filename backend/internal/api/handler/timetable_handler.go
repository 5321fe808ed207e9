package handler

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"sutra/backend/internal/dto"
	"sutra/backend/internal/service"
	"sutra/backend/pkg/response"
)

const (
	MsgBranchDivisionRequired = "Branch and division are required."
	MsgInvalidGenerateBody    = "Invalid request body."
)

// TimetableHandler 课表模块 Handler
type TimetableHandler struct {
	svc service.TimetableService
}

// NewTimetableHandler 创建 TimetableHandler 实例
func NewTimetableHandler(svc service.TimetableService) *TimetableHandler {
	return &TimetableHandler{svc: svc}
}

// BranchesDivisions 列出可选专业与班级
// GET /api/branches-divisions
func (h *TimetableHandler) BranchesDivisions(c *gin.Context) {
	data, err := h.svc.DiscoverBranchesDivisions(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.OKData(c, data)
}

// Generate 生成课表
// POST /generate
func (h *TimetableHandler) Generate(c *gin.Context) {
	var req dto.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if !isMalformedJSON(err) && (req.Branch == "" || req.Division == "") {
			response.BadRequest(c, MsgBranchDivisionRequired)
			return
		}
		response.BadRequest(c, MsgInvalidGenerateBody)
		return
	}

	result, err := h.svc.Generate(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OKData(c, result)
}

// isMalformedJSON 请求体本身无法解析，区别于字段校验失败
func isMalformedJSON(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.ErrUnexpectedEOF)
}

// ListStored 查询已生成的课表
// GET /api/timetables?branch=&division=
func (h *TimetableHandler) ListStored(c *gin.Context) {
	var q dto.TimetableQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	list, err := h.svc.ListStored(c.Request.Context(), &q)
	if err != nil {
		handleError(c, err)
		return
	}
	response.OKData(c, list)
}
