package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// multipartOverhead multipart 边界与表单头的余量
const multipartOverhead = 1 << 20

// BodyLimit 请求体大小限制中间件
// maxBytes 为单文件上限，实际放行 maxBytes + multipartOverhead，
// 使刚好超出上限的文件仍能被读取并返回明确的大小错误
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	limit := maxBytes + multipartOverhead
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}
