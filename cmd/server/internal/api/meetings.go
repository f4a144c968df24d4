package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/houzhh15/zoomrelay/cmd/server/internal/audit"
	"github.com/houzhh15/zoomrelay/cmd/server/internal/middleware"
	"github.com/houzhh15/zoomrelay/cmd/server/internal/zoom"
)

// CreateMeetingRequest POST /meet 请求体
type CreateMeetingRequest struct {
	Topic string `json:"topic"`
}

// CreateMeetingMessage POST /meet 成功响应的 message 部分
type CreateMeetingMessage struct {
	Status       string        `json:"status"`
	ZoomResponse *zoom.Meeting `json:"zoomResponse"`
}

// HandleCreateMeeting 创建会议
// POST /meet
func HandleCreateMeeting(svc MeetingService, auditLog audit.AuditLogger, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateMeetingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			errorResponse(c, log, zoom.NewInvalidRequestError("request body must be a JSON object with a topic"))
			return
		}

		meeting, err := svc.CreateMeeting(c.Request.Context(), req.Topic)
		entry := audit.AuditEntry{
			RequestID: middleware.RequestID(c),
			Action:    audit.ActionCreateMeeting,
			SourceIP:  c.ClientIP(),
		}
		if err != nil {
			entry.Result = audit.ResultFailed
			entry.ErrorCode = string(zoom.CodeOf(err))
			logAudit(log, auditLog, entry)
			errorResponse(c, log, err)
			return
		}

		entry.ResourceID = meeting.ID
		logAudit(log, auditLog, entry)

		respond(c, http.StatusCreated, CreateMeetingMessage{
			Status:       statusSuccess,
			ZoomResponse: meeting,
		})
	}
}

// logAudit 审计写入失败只记日志，不影响请求结果
func logAudit(log *slog.Logger, auditLog audit.AuditLogger, entry audit.AuditEntry) {
	if err := auditLog.Log(entry); err != nil {
		log.Warn("audit log write failed", "action", string(entry.Action), "error", err)
	}
}
