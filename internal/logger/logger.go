package logger

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RequestIDHeader 请求 ID 头
const RequestIDHeader = "X-Request-ID"

// LogConfig 日志配置
type LogConfig struct {
	Level       string
	Environment string
	ServiceName string
}

var log = zap.NewNop()

// Init 按配置初始化全局日志
// production 输出 JSON，其余环境输出带颜色的控制台格式
func Init(config LogConfig) error {
	var level zapcore.Level
	switch config.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var (
		l   *zap.Logger
		err error
	)
	fields := zap.Fields(
		zap.String("service", config.ServiceName),
		zap.String("environment", config.Environment),
	)
	if config.Environment == "production" {
		prodConfig := zap.NewProductionConfig()
		prodConfig.Level = zap.NewAtomicLevelAt(level)
		prodConfig.EncoderConfig.TimeKey = "timestamp"
		prodConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		l, err = prodConfig.Build(fields)
	} else {
		devConfig := zap.NewDevelopmentConfig()
		devConfig.Level = zap.NewAtomicLevelAt(level)
		devConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		l, err = devConfig.Build(fields)
	}
	if err != nil {
		return err
	}

	log = l
	zap.ReplaceGlobals(l)
	return nil
}

// Get 返回全局日志；未初始化时为 no-op
func Get() *zap.Logger {
	return log
}

// Sync 刷新缓冲
func Sync() {
	_ = log.Sync()
}

// GinMiddleware 为每个请求分配请求 ID，并记录方法、路径、状态码与耗时
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)

		ctxLogger := log.With(zap.String("request_id", requestID))
		c.Set(ginKey, ctxLogger)
		c.Request = c.Request.WithContext(WithContext(c.Request.Context(), ctxLogger))

		c.Next()

		ctxLogger.Info("HTTP Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}
