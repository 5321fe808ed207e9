// Package metrics 暴露 Prometheus 指标
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// UploadsTotal 上传结果计数，result=accepted|rejected|failed
	UploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sutra",
		Name:      "uploads_total",
		Help:      "Spreadsheet uploads by outcome.",
	}, []string{"result"})

	// GenerationsTotal 课表生成计数，result=ok|no_data|failed
	GenerationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sutra",
		Name:      "timetable_generations_total",
		Help:      "Timetable generation requests by outcome.",
	}, []string{"result"})

	// GeneratedEntries 单次生成的课表行数
	GeneratedEntries = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "sutra",
		Name:      "timetable_entries",
		Help:      "Rows per generated timetable.",
		Buckets:   prometheus.LinearBuckets(5, 5, 8),
	})

	// HTTPRequests 按路由与状态码统计请求
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sutra",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route and status.",
	}, []string{"method", "route", "status"})
)

// Handler /metrics 路由
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
