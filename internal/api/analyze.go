package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"materialbridge/internal/logger"
	"materialbridge/internal/model"
	"materialbridge/internal/pipeline"
)

var allowedExts = map[string]bool{".xlsx": true, ".xlsm": true}

// AnalyzeResponse 同步分析响应
type AnalyzeResponse struct {
	RunID       string              `json:"runId"`
	Shortages   []model.ShortageRow `json:"shortages"`
	Report      *pipeline.Report    `json:"report"`
	DownloadURL string              `json:"downloadUrl"`
}

// ErrorResponse 分析失败响应
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	Stage string `json:"stage,omitempty"`
	Sheet string `json:"sheet,omitempty"`
}

// upload 一次分析的上传文件与输出位置
type upload struct {
	filename   string
	inputPath  string
	outputPath string
}

// Analyze 上传工作簿并同步分析
// POST /api/analyze
func (h *Handler) Analyze(c *gin.Context) {
	up, opts, ok := h.prepare(c)
	if !ok {
		return
	}
	defer os.Remove(up.inputPath)

	result, err := h.coord.Run(c.Request.Context(), opts)
	h.recordRun(err)
	if err != nil {
		_ = os.Remove(up.outputPath)
		c.JSON(statusOf(err), errorResponse(err))
		return
	}

	c.JSON(http.StatusOK, AnalyzeResponse{
		RunID:       result.RunID,
		Shortages:   result.ShortageRows,
		Report:      result.Report,
		DownloadURL: h.publish(c, up),
	})
}

// AnalyzeStream 上传工作簿并以 SSE 推送进度，完成后提供下载地址
// POST /api/analyze/stream
func (h *Handler) AnalyzeStream(c *gin.Context) {
	up, opts, ok := h.prepare(c)
	if !ok {
		return
	}
	defer os.Remove(up.inputPath)

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		_ = os.Remove(up.outputPath)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming not supported"})
		return
	}

	// 设置 SSE 响应头
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	send := func(event pipeline.ProgressEvent) {
		b, err := json.Marshal(event)
		if err != nil {
			return
		}
		// SSE 格式: data: {json}\n\n
		fmt.Fprintf(c.Writer, "data: %s\n\n", b)
		flusher.Flush()
	}

	for event := range h.coord.Start(c.Request.Context(), opts) {
		switch event.Type {
		case "done":
			h.recordRun(nil)
			result, _ := event.Data.(*pipeline.Result)
			event.Data = AnalyzeResponse{
				RunID:       result.RunID,
				Shortages:   result.ShortageRows,
				Report:      result.Report,
				DownloadURL: h.publish(c, up),
			}
		case "error":
			h.recordRun(errors.New(event.Message))
			_ = os.Remove(up.outputPath)
		}
		send(event)
	}
}

// prepare 保存上传文件并生成运行选项；失败时已写出错误响应
func (h *Handler) prepare(c *gin.Context) (upload, pipeline.Options, bool) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing upload field \"file\""})
		return upload{}, pipeline.Options{}, false
	}
	name := filepath.Base(fh.Filename)
	if !allowedExts[strings.ToLower(filepath.Ext(name))] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type, expected .xlsx or .xlsm"})
		return upload{}, pipeline.Options{}, false
	}

	id := uuid.NewString()
	up := upload{
		filename:   name,
		inputPath:  filepath.Join(h.workDir, "uploads", id+"_"+name),
		outputPath: filepath.Join(h.workDir, "exports", id+filepath.Ext(name)),
	}
	if err := os.MkdirAll(filepath.Dir(up.inputPath), 0755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to prepare upload directory"})
		return upload{}, pipeline.Options{}, false
	}
	if err := c.SaveUploadedFile(fh, up.inputPath); err != nil {
		logger.FromGin(c).Error("save upload failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save upload"})
		return upload{}, pipeline.Options{}, false
	}

	opts := pipeline.OptionsFromConfig(h.cfg)
	opts.InputPath = up.inputPath
	opts.OutputPath = up.outputPath
	opts.Sheets = opts.Sheets.Merge(pipeline.Sheets{
		BOM:         c.PostForm("bomSheet"),
		Plan:        c.PostForm("planSheet"),
		Requirement: c.PostForm("requirementSheet"),
		Coverage:    c.PostForm("coverageSheet"),
	})
	switch src := pipeline.NeedSource(c.PostForm("needSource")); src {
	case pipeline.NeedFromExplosion, pipeline.NeedFromLedger:
		opts.NeedSource = src
	case "":
	default:
		_ = os.Remove(up.inputPath)
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid needSource %q", src)})
		return upload{}, pipeline.Options{}, false
	}
	return up, opts, true
}

// publish 为输出文件签发一次性下载地址
func (h *Handler) publish(c *gin.Context, up upload) string {
	token := h.downloads.put(up.outputPath, pipeline.ProcessedName(up.filename), downloadTTL)
	prefix := strings.TrimSuffix(c.FullPath(), "/analyze")
	prefix = strings.TrimSuffix(prefix, "/analyze/stream")
	return fmt.Sprintf("%s/download/%s", prefix, token)
}

// Download 下载分析后的工作簿（一次性）
// GET /api/download/:token
func (h *Handler) Download(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing token"})
		return
	}

	item, ok := h.downloads.take(token)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "download link expired"})
		return
	}
	defer os.Remove(item.filePath)

	if _, err := os.Stat(item.filePath); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "processed workbook not found"})
		return
	}

	c.Header("Content-Disposition", contentDisposition(item.filename))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.File(item.filePath)
}

// contentDisposition ASCII 文件名 + RFC 5987 UTF-8 文件名
func contentDisposition(filename string) string {
	ascii := strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e || r == '"' || r == '\\' {
			return '_'
		}
		return r
	}, filename)
	return fmt.Sprintf("attachment; filename=\"%s\"; filename*=UTF-8''%s", ascii, url.PathEscape(filename))
}

func statusOf(err error) int {
	if model.KindOf(err) != "" {
		return http.StatusUnprocessableEntity
	}
	var se *model.StageError
	if errors.As(err, &se) && se.Stage == model.StageOpen {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func errorResponse(err error) ErrorResponse {
	resp := ErrorResponse{Error: err.Error(), Kind: model.KindOf(err)}
	var se *model.StageError
	if errors.As(err, &se) {
		resp.Stage = string(se.Stage)
		resp.Sheet = se.Sheet
	}
	return resp
}

// GetStatus 系统状态
// GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	h.mu.Lock()
	resp := gin.H{
		"status":           "ok",
		"uptime":           time.Since(h.startedAt).Round(time.Second).String(),
		"runs":             h.runs,
		"failures":         h.failures,
		"pendingDownloads": h.downloads.count(),
	}
	if !h.lastRunAt.IsZero() {
		resp["lastRunAt"] = h.lastRunAt.Format(time.RFC3339)
	}
	h.mu.Unlock()
	c.JSON(http.StatusOK, resp)
}

// GetConfig 当前生效的配置
// GET /api/config
func (h *Handler) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.cfg)
}
