package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/houzhh15/zoomrelay/cmd/server/internal/audit"
	"github.com/houzhh15/zoomrelay/cmd/server/internal/middleware"
	"github.com/houzhh15/zoomrelay/cmd/server/internal/zoom"
)

// SignatureRequest POST /meet/signature 请求体
// 各字段既可以是数字也可以是数字字符串
type SignatureRequest struct {
	MeetingNumber     json.RawMessage `json:"meetingNumber"`
	Role              json.RawMessage `json:"role"`
	ExpirationSeconds json.RawMessage `json:"expirationSeconds"`
}

// SignatureMessage POST /meet/signature 成功响应的 message 部分
type SignatureMessage struct {
	Signature string `json:"signature"`
}

// HandleMeetingSignature 生成 Meeting SDK 入会签名
// POST /meet/signature
func HandleMeetingSignature(svc MeetingService, auditLog audit.AuditLogger, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body SignatureRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			errorResponse(c, log, zoom.NewInvalidRequestError("request body must be a JSON object"))
			return
		}

		req, err := body.toSignatureRequest()
		entry := audit.AuditEntry{
			RequestID: middleware.RequestID(c),
			Action:    audit.ActionIssueSignature,
			SourceIP:  c.ClientIP(),
		}
		if err == nil {
			entry.ResourceID = strconv.FormatInt(req.MeetingNumber, 10)
			entry.Details = "role=" + strconv.Itoa(req.Role)
			var signature string
			signature, err = svc.GenerateSignature(req)
			if err == nil {
				logAudit(log, auditLog, entry)
				respond(c, http.StatusOK, SignatureMessage{Signature: signature})
				return
			}
		}

		entry.Result = audit.ResultFailed
		entry.ErrorCode = string(zoom.CodeOf(err))
		logAudit(log, auditLog, entry)
		errorResponse(c, log, err)
	}
}

func (b SignatureRequest) toSignatureRequest() (zoom.SignatureRequest, error) {
	meetingNumber, err := parseFlexibleInt("meetingNumber", b.MeetingNumber, true)
	if err != nil {
		return zoom.SignatureRequest{}, err
	}
	role, err := parseFlexibleInt("role", b.Role, true)
	if err != nil {
		return zoom.SignatureRequest{}, err
	}
	expiration, err := parseFlexibleInt("expirationSeconds", b.ExpirationSeconds, false)
	if err != nil {
		return zoom.SignatureRequest{}, err
	}
	if role < math.MinInt32 || role > math.MaxInt32 || expiration > math.MaxInt32 || expiration < math.MinInt32 {
		return zoom.SignatureRequest{}, zoom.NewSignatureInputError("role or expirationSeconds out of range")
	}

	return zoom.SignatureRequest{
		MeetingNumber:     meetingNumber,
		Role:              int(role),
		ExpirationSeconds: int(expiration),
	}, nil
}

// parseFlexibleInt 解析 JSON 数字或数字字符串；缺失或 null 时按 required 决定是否报错
func parseFlexibleInt(name string, raw json.RawMessage, required bool) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		if required {
			return 0, zoom.NewSignatureInputError(name + " is required")
		}
		return 0, nil
	}

	text := string(raw)
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, zoom.NewSignatureInputError(name + " must be a number")
		}
		text = strings.TrimSpace(s)
		if text == "" {
			if required {
				return 0, zoom.NewSignatureInputError(name + " is required")
			}
			return 0, nil
		}
	}

	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, zoom.NewSignatureInputError(fmt.Sprintf("%s must be an integer, got %s", name, raw))
	}
	return n, nil
}
