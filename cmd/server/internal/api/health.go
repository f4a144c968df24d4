package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthMessage GET / 的 message 部分
type HealthMessage struct {
	Status string `json:"status"`
	Health string `json:"health"`
}

// ReadinessMessage GET /readiness 的 message 部分
type ReadinessMessage struct {
	Status    string           `json:"status"`
	Ready     bool             `json:"ready"`
	Uptime    string           `json:"uptime"`
	Checks    []ReadinessCheck `json:"checks"`
	Timestamp time.Time        `json:"timestamp"`
}

// ReadinessCheck represents a single readiness check
type ReadinessCheck struct {
	Name   string `json:"name"`
	Status string `json:"status"` // "ok" or "pending"
	Detail string `json:"detail,omitempty"`
}

// HandleHealth 存活探针
// GET /
func HandleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		respond(c, http.StatusOK, HealthMessage{Status: statusSuccess, Health: "GOOD"})
	}
}

// HandleReadiness 就绪探针，只查看本地 token 缓存，不会触发 token 获取
// token 按需获取，未缓存时仍视为就绪
// GET /readiness
func HandleReadiness(svc MeetingService, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenCheck := ReadinessCheck{Name: "zoom_token", Status: "ok"}
		if !svc.Ready() {
			tokenCheck.Status = "pending"
			tokenCheck.Detail = "no access token cached yet; fetched on first API call"
		}

		respond(c, http.StatusOK, ReadinessMessage{
			Status:    statusSuccess,
			Ready:     true,
			Uptime:    time.Since(startTime).Round(time.Second).String(),
			Checks:    []ReadinessCheck{tokenCheck},
			Timestamp: time.Now(),
		})
	}
}
