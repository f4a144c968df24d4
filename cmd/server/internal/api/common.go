package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/houzhh15/zoomrelay/cmd/server/internal/middleware"
	"github.com/houzhh15/zoomrelay/cmd/server/internal/zoom"
)

const (
	statusSuccess = "SUCCESS"
	statusError   = "ERROR"

	codeInternalError = "INTERNAL_ERROR"
	codeNotFound      = "NOT_FOUND"
)

// MeetingService 是 handler 依赖的 Zoom 能力，*zoom.Client 为生产实现
type MeetingService interface {
	CreateMeeting(ctx context.Context, topic string) (*zoom.Meeting, error)
	GenerateSignature(req zoom.SignatureRequest) (string, error)
	Ready() bool
}

// Envelope 所有响应的外层结构
type Envelope struct {
	Code    int         `json:"code"`
	Message interface{} `json:"message"`
}

// ErrorMessage 错误响应的 message 部分
type ErrorMessage struct {
	Status    string `json:"status"`
	Reason    string `json:"reason"`
	ErrorCode string `json:"errorCode"`
}

// respond 写入 {code, message}，code 与 HTTP 状态一致
func respond(c *gin.Context, status int, message interface{}) {
	c.JSON(status, Envelope{Code: status, Message: message})
}

// statusForCode 错误码到 HTTP 状态的映射
func statusForCode(code zoom.ErrorCode) int {
	switch code {
	case zoom.CodeInvalidRequest, zoom.CodeSignatureInputInvalid:
		return http.StatusBadRequest
	case zoom.CodeAuthenticationFailed, zoom.CodeUpstreamRejected, zoom.CodeUpstreamResponseInvalid:
		return http.StatusBadGateway
	case zoom.CodeUpstreamUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorResponse 按错误码写入错误信封，并在此处记录一次日志
// 非 *zoom.Error 的错误不向调用方暴露细节
func errorResponse(c *gin.Context, log *slog.Logger, err error) {
	var zerr *zoom.Error
	if !errors.As(err, &zerr) {
		log.Error("unhandled error", "rid", middleware.RequestID(c), "path", c.Request.URL.Path, "error", err)
		respond(c, http.StatusInternalServerError, ErrorMessage{
			Status:    statusError,
			Reason:    "internal server error",
			ErrorCode: codeInternalError,
		})
		return
	}

	status := statusForCode(zerr.Code)
	attrs := []interface{}{
		"rid", middleware.RequestID(c),
		"path", c.Request.URL.Path,
		"code", string(zerr.Code),
		"status", status,
		"error", err,
	}
	if status >= http.StatusInternalServerError {
		log.Error("request failed", attrs...)
	} else {
		log.Warn("request rejected", attrs...)
	}

	respond(c, status, ErrorMessage{
		Status:    statusError,
		Reason:    zerr.Message,
		ErrorCode: string(zerr.Code),
	})
}

// notFoundResponse 未知路由返回 404 信封
func notFoundResponse(c *gin.Context) {
	respond(c, http.StatusNotFound, ErrorMessage{
		Status:    statusError,
		Reason:    "endpoint not found: " + c.Request.Method + " " + c.Request.URL.Path,
		ErrorCode: codeNotFound,
	})
}
