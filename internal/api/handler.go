package api

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"materialbridge/internal/config"
	"materialbridge/internal/pipeline"
)

// 下载链接有效期
const downloadTTL = 10 * time.Minute

// Handler API 处理器
type Handler struct {
	cfg       *config.AppConfig
	workDir   string
	coord     *pipeline.Coordinator
	downloads *downloadStore
	stopPurge func()
	startedAt time.Time

	mu        sync.Mutex
	runs      int
	failures  int
	lastRunAt time.Time
}

// NewHandler 创建 API 处理器；workDir 下的 uploads/exports 存放临时工作簿
func NewHandler(cfg *config.AppConfig, workDir string, coord *pipeline.Coordinator) *Handler {
	if coord == nil {
		coord = pipeline.NewCoordinator(nil)
	}
	downloads := newDownloadStore()
	return &Handler{
		cfg:       cfg,
		workDir:   workDir,
		coord:     coord,
		downloads: downloads,
		stopPurge: downloads.janitor(time.Minute),
		startedAt: time.Now(),
	}
}

// Close 停止过期下载清理
func (h *Handler) Close() {
	h.stopPurge()
}

// RegisterRoutes 注册 API 路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	// 系统状态
	router.GET("/status", h.GetStatus)
	// 当前配置（只读）
	router.GET("/config", h.GetConfig)

	// 上传并分析
	router.POST("/analyze", h.Analyze)
	router.POST("/analyze/stream", h.AnalyzeStream)
	router.GET("/download/:token", h.Download)
}

func (h *Handler) recordRun(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.runs++
	if err != nil {
		h.failures++
	}
	h.lastRunAt = time.Now()
}
