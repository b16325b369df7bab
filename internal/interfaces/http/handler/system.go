package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/comedor/backend/internal/application/dashboard"
	"github.com/comedor/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// SnapshotSource exposes the latest dashboard computation
type SnapshotSource interface {
	Snapshot() *dashboard.Snapshot
}

// SchedulerStatus exposes the day-close scheduler state
type SchedulerStatus interface {
	GetStatus() map[string]any
}

// SystemHandler serves health, info and scheduler status
type SystemHandler struct {
	BaseHandler
	name      string
	version   string
	startTime time.Time
	snapshots SnapshotSource
	scheduler SchedulerStatus
}

// NewSystemHandler creates a SystemHandler. scheduler may be nil when the scheduler is disabled.
func NewSystemHandler(name, version string, snapshots SnapshotSource, scheduler SchedulerStatus) *SystemHandler {
	return &SystemHandler{
		name:      name,
		version:   version,
		startTime: time.Now(),
		snapshots: snapshots,
		scheduler: scheduler,
	}
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
}

// GetSystemInfo returns the service name, version and uptime
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	h.Success(c, SystemInfoResponse{
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	})
}

// PingResponse represents the ping response
type PingResponse struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Ping answers as long as the process serves HTTP
func (h *SystemHandler) Ping(c *gin.Context) {
	h.Success(c, PingResponse{
		Message:   "pong",
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// Health reports readiness: 200 once every source delivered its first set, 503 before
func (h *SystemHandler) Health(c *gin.Context) {
	health := dto.HealthResponse{Status: "starting", Sources: []dto.SourceHealth{}}
	if snap := h.snapshots.Snapshot(); snap != nil {
		health.Ready = snap.Ready
		health.Today = snap.Today
		for _, s := range snap.Sources {
			health.Sources = append(health.Sources, dto.SourceHealth{
				Source:    string(s.Source),
				Loaded:    s.Loaded,
				Records:   s.Records,
				LastError: s.LastError,
			})
		}
	}

	if !health.Ready {
		resp := dto.NewErrorResponseWithRequestID(dto.ErrCodeUnavailable, "Sources are still loading", getRequestID(c))
		resp.Data = health
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	health.Status = "ok"
	h.Success(c, health)
}

// GetSchedulerStatus returns the day-close scheduler state
func (h *SystemHandler) GetSchedulerStatus(c *gin.Context) {
	status := map[string]any{"enabled": false}
	if h.scheduler != nil {
		status = h.scheduler.GetStatus()
	}
	h.Success(c, dto.SchedulerStatusResponse{Status: status})
}
