package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/weisyn/executive/pkg/interfaces/infrastructure/log"
)

// Logger 请求日志中间件（复用系统统一日志接口）
func Logger(logger log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		if logger == nil {
			return
		}
		latency := time.Since(start)
		status := c.Writer.Status()

		zl := logger.GetZapLogger()
		if zl != nil {
			fields := []zap.Field{
				zap.String("request_id", GetRequestID(c)),
				zap.String("method", c.Request.Method),
				zap.String("path", path),
				zap.Int("status", status),
				zap.Duration("latency", latency),
				zap.String("client_ip", c.ClientIP()),
			}
			if len(c.Errors) > 0 {
				fields = append(fields, zap.String("errors", c.Errors.String()))
			}
			switch {
			case status >= 500:
				zl.Error("HTTP request", fields...)
			case status >= 400:
				zl.Warn("HTTP request", fields...)
			default:
				zl.Debug("HTTP request", fields...)
			}
			return
		}

		msg := fmt.Sprintf("HTTP request | method=%s path=%s status=%d latency=%s",
			c.Request.Method, path, status, latency)
		switch {
		case status >= 500:
			logger.Error(msg)
		case status >= 400:
			logger.Warn(msg)
		default:
			logger.Debug(msg)
		}
	}
}
