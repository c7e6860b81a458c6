package logger

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type contextKey string

const loggerKey contextKey = "logger"

const ginKey = "logger"

// FromContext 取出请求级日志，缺失时返回全局日志
func FromContext(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return Get()
	}
	l, ok := ctx.Value(loggerKey).(*zap.Logger)
	if !ok {
		return Get()
	}
	return l
}

// WithContext 将日志放入 context
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromGin 取出 gin 请求上的日志
func FromGin(c *gin.Context) *zap.Logger {
	if l, ok := c.Get(ginKey); ok {
		if zl, ok := l.(*zap.Logger); ok {
			return zl
		}
	}
	return Get()
}
