package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	corsAllowMethods  = "GET, POST, DELETE, OPTIONS"
	corsAllowHeaders  = "Content-Type, " + HeaderRequestID
	corsExposeHeaders = "Content-Disposition, " + HeaderRequestID
)

// CORS 跨域中间件
// allowOrigins 含 "*" 时放行任意来源（不携带凭证），否则按白名单回写 Origin
func CORS(allowOrigins []string) gin.HandlerFunc {
	allowAll := false
	originsMap := make(map[string]bool, len(allowOrigins))
	for _, o := range allowOrigins {
		if o == "*" {
			allowAll = true
			continue
		}
		originsMap[strings.TrimRight(o, "/")] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		switch {
		case origin == "":
		case originsMap[origin]:
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Vary", "Origin")
			setCORSHeaders(c)
		case allowAll:
			c.Header("Access-Control-Allow-Origin", "*")
			setCORSHeaders(c)
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func setCORSHeaders(c *gin.Context) {
	c.Header("Access-Control-Allow-Headers", corsAllowHeaders)
	c.Header("Access-Control-Allow-Methods", corsAllowMethods)
	c.Header("Access-Control-Expose-Headers", corsExposeHeaders)
	c.Header("Access-Control-Max-Age", "86400")
}
