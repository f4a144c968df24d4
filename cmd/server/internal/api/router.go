package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/houzhh15/zoomrelay/cmd/server/internal/audit"
	"github.com/houzhh15/zoomrelay/cmd/server/internal/middleware"
	"github.com/houzhh15/zoomrelay/pkg/metrics"
)

// RouterDeps NewRouter 的依赖
type RouterDeps struct {
	Service     MeetingService
	Audit       audit.AuditLogger
	Logger      *slog.Logger
	CORSOrigins []string
	StartTime   time.Time
}

// NewRouter 组装中间件与全部路由
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Audit == nil {
		deps.Audit = audit.NopAuditLogger{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.StartTime.IsZero() {
		deps.StartTime = time.Now()
	}
	log := deps.Logger.With("component", "api")

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(deps.CORSOrigins))

	// 探针与监控
	r.GET("/", HandleHealth())
	r.GET("/readiness", HandleReadiness(deps.Service, deps.StartTime))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// 会议
	r.POST("/meet", HandleCreateMeeting(deps.Service, deps.Audit, log))
	r.POST("/meet/signature", HandleMeetingSignature(deps.Service, deps.Audit, log))

	r.NoRoute(notFoundResponse)

	return r
}
