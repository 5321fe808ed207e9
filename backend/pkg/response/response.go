package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response 统一失败响应结构；成功响应由各 DTO 自带 success 字段
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ── 成功响应 ──

// OK 200 成功响应，payload 原样序列化
func OK(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusOK, payload)
}

// OKData 200 成功响应，包装为 {success:true, data}
func OKData(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

// OKMessage 200 成功响应，包装为 {success:true, message}
func OKMessage(c *gin.Context, message string) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Message: message,
	})
}

// ── 错误响应 ──

// Fail 通用错误响应 {success:false, error}
func Fail(c *gin.Context, httpStatus int, message string) {
	c.JSON(httpStatus, Response{
		Success: false,
		Error:   message,
	})
}

// BadRequest 400
func BadRequest(c *gin.Context, message string) {
	Fail(c, http.StatusBadRequest, message)
}

// NotFound 404
func NotFound(c *gin.Context, message string) {
	Fail(c, http.StatusNotFound, message)
}

// InternalError 500，消息原样透传
func InternalError(c *gin.Context, message string) {
	Fail(c, http.StatusInternalServerError, message)
}
