package handler

import (
	"context"

	"github.com/comedor/backend/internal/application/dashboard"
	reportapp "github.com/comedor/backend/internal/application/report"
	"github.com/comedor/backend/internal/domain/report"
	"github.com/comedor/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// DashboardService is the read and write surface of the live dashboard
type DashboardService interface {
	Snapshot() *dashboard.Snapshot
	Period(p report.Period) (report.PeriodView, error)
	Day(ctx context.Context, day string) (dashboard.DayView, error)
	RebuildDay(ctx context.Context, day string) (reportapp.DayWriteResult, error)
	DeleteDaySnapshot(ctx context.Context, day string) error
	SaveOrderCounts(ctx context.Context, day string) (*report.OrderCountSnapshot, error)
	DeleteOrderCounts(ctx context.Context, day string) error
}

// DayCloser runs a day close outside the schedule
type DayCloser interface {
	RunNow(ctx context.Context) (reportapp.CloseResult, error)
}

// DashboardHandler serves the dashboard views and the day operations
type DashboardHandler struct {
	BaseHandler
	service DashboardService
	closer  DayCloser
}

// NewDashboardHandler creates a DashboardHandler
func NewDashboardHandler(service DashboardService, closer DayCloser) *DashboardHandler {
	return &DashboardHandler{service: service, closer: closer}
}

// DayWriteResponse is the outcome of a snapshot write
type DayWriteResponse struct {
	Date      string                `json:"date"`
	Snapshot  *report.DailySnapshot `json:"snapshot"`
	Persisted bool                  `json:"persisted"`
	Error     string                `json:"error,omitempty"`
}

// CloseResponse is the outcome of a day close
type CloseResponse struct {
	Closed      DayWriteResponse `json:"closed"`
	SeededToday bool             `json:"seeded_today"`
}

func toDayWriteResponse(r reportapp.DayWriteResult) DayWriteResponse {
	resp := DayWriteResponse{Date: r.Date, Snapshot: r.Snapshot, Persisted: r.Persisted}
	if r.Err != nil {
		resp.Error = r.Err.Error()
	}
	return resp
}

// GetDashboard returns the latest complete dashboard snapshot
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	snap := h.service.Snapshot()
	if snap == nil {
		h.Unavailable(c, "Dashboard data is not ready yet")
		return
	}
	h.Success(c, snap)
}

// GetPeriod returns one composed period view
func (h *DashboardHandler) GetPeriod(c *gin.Context) {
	var uri dto.PeriodURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.HandleError(c, err)
		return
	}
	view, err := h.service.Period(report.Period(uri.Period))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// GetDay returns the reconciled figures and payment view of one day
func (h *DashboardHandler) GetDay(c *gin.Context) {
	day, ok := h.bindDay(c)
	if !ok {
		return
	}
	view, err := h.service.Day(c.Request.Context(), day)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// CloseDay closes yesterday and seeds today
func (h *DashboardHandler) CloseDay(c *gin.Context) {
	result, err := h.closer.RunNow(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, CloseResponse{
		Closed:      toDayWriteResponse(result.Closed),
		SeededToday: result.SeededToday,
	})
}

// RebuildDay recomputes one day from live data and overwrites its snapshot
func (h *DashboardHandler) RebuildDay(c *gin.Context) {
	day, ok := h.bindDay(c)
	if !ok {
		return
	}
	result, err := h.service.RebuildDay(c.Request.Context(), day)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toDayWriteResponse(result))
}

// DeleteDaySnapshot removes the persisted snapshot of one day
func (h *DashboardHandler) DeleteDaySnapshot(c *gin.Context) {
	day, ok := h.bindDay(c)
	if !ok {
		return
	}
	if err := h.service.DeleteDaySnapshot(c.Request.Context(), day); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// SaveOrderCounts persists the live order counts of one day
func (h *DashboardHandler) SaveOrderCounts(c *gin.Context) {
	day, ok := h.bindDay(c)
	if !ok {
		return
	}
	counts, err := h.service.SaveOrderCounts(c.Request.Context(), day)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, counts)
}

// DeleteOrderCounts removes the persisted order counts of one day
func (h *DashboardHandler) DeleteOrderCounts(c *gin.Context) {
	day, ok := h.bindDay(c)
	if !ok {
		return
	}
	if err := h.service.DeleteOrderCounts(c.Request.Context(), day); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

func (h *DashboardHandler) bindDay(c *gin.Context) (string, bool) {
	var uri dto.DayURI
	if err := c.ShouldBindUri(&uri); err != nil {
		h.HandleError(c, err)
		return "", false
	}
	return uri.Date, true
}
