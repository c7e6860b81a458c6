package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RunCounter 流水线运行次数，status 为 ok / error
	RunCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "materialbridge_runs_total",
			Help: "Total number of shortage analysis runs",
		},
		[]string{"status"},
	)

	// StageDuration 各阶段耗时（秒）
	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "materialbridge_stage_duration_seconds",
			Help:    "Duration of pipeline stages in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	// ShortageCounter 检出的缺料记录数
	ShortageCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "materialbridge_shortages_total",
			Help: "Total number of shortage records detected",
		},
	)

	// LedgerCellCounter 台账被调大的单元格数
	LedgerCellCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "materialbridge_ledger_cells_updated_total",
			Help: "Total number of requirement ledger cells raised by reconciliation",
		},
	)

	// RequestCounter HTTP 请求数
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// RequestDuration HTTP 请求耗时（秒）
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

var registerOnce sync.Once

// Register 向默认注册表注册全部指标，可重复调用
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RunCounter,
			StageDuration,
			ShortageCounter,
			LedgerCellCounter,
			RequestCounter,
			RequestDuration,
		)
	})
}

// ObserveStage 记录阶段耗时
func ObserveStage(stage string, d time.Duration) {
	StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveRun 记录一次运行结果
func ObserveRun(err error, shortages, ledgerCells int) {
	if err != nil {
		RunCounter.WithLabelValues("error").Inc()
		return
	}
	RunCounter.WithLabelValues("ok").Inc()
	ShortageCounter.Add(float64(shortages))
	LedgerCellCounter.Add(float64(ledgerCells))
}

// GinMiddleware 记录 HTTP 请求数与耗时；path 使用路由模板
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		RequestCounter.WithLabelValues(c.Request.Method, path, status).Inc()
		RequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}

// Handler Prometheus 抓取入口
func Handler() http.Handler {
	return promhttp.Handler()
}
