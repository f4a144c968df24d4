package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/houzhh15/zoomrelay/pkg/logger"
)

const (
	// RequestIDKey gin context key holding the request id
	RequestIDKey = "request_id"
	// RequestIDHeader 请求 / 响应头
	RequestIDHeader = "X-Request-ID"
)

// RequestLogger 写入结构化请求日志并注入 request_id
// 调用方已携带 X-Request-ID 时沿用，否则生成 uuid
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := c.GetHeader(RequestIDHeader)
		if reqID == "" || len(reqID) > 128 {
			reqID = uuid.NewString()
		}
		c.Set(RequestIDKey, reqID)
		c.Writer.Header().Set(RequestIDHeader, reqID)

		c.Next()

		duration := time.Since(start)
		level := slog.LevelInfo
		if c.Writer.Status() >= 500 {
			level = slog.LevelWarn
		}

		logger.L().Log(c.Request.Context(), level, "http_request",
			"rid", reqID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", duration.Milliseconds(),
			"client_ip", c.ClientIP(),
		)
	}
}

// RequestID 返回当前请求的 request_id，不存在时返回空字符串
func RequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}
