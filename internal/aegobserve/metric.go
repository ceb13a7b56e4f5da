// Package aegobserve 暴露 Prometheus 指标
package aegobserve

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 指标定义
var (
	// DataSourceDuration 记录数据源每个操作 (data/count/aggregates/suggest) 的耗时
	DataSourceDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gridaegis_datasource_operation_duration_seconds",
		Help:    "数据源操作耗时",
		Buckets: prometheus.DefBuckets,
	}, []string{"op", "status"})

	// UnavailableResults 派生查询没有恰好返回一行的次数
	UnavailableResults = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gridaegis_datasource_unavailable_total",
		Help: "COUNT/聚合派生查询结果不可用的次数",
	}, []string{"op"})

	// SuggestCacheHits 建议值缓存命中次数
	SuggestCacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gridaegis_suggest_cache_hits_total",
		Help: "建议值缓存命中次数",
	})

	httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gridaegis_http_request_duration_seconds",
		Help:    "HTTP 请求耗时",
		Buckets: prometheus.DefBuckets,
	}, []string{"path", "method", "code"})
)

// Register 必须在 main 调用一次
func Register() {
	prometheus.MustRegister(DataSourceDuration, UnavailableResults, SuggestCacheHits, httpRequestDuration)
}

// Handler 返回 HTTP 处理器
func Handler() http.Handler { return promhttp.Handler() }

// ObserveOp 记录一次数据源操作
func ObserveOp(op string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	DataSourceDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
}

// PrometheusMiddleware 记录每个请求的耗时。path 取路由模板，未匹配路由的请求记为 unmatched。
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequestDuration.
			WithLabelValues(path, c.Request.Method, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
