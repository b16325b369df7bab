package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/comedor/backend/internal/application/dashboard"
	reportapp "github.com/comedor/backend/internal/application/report"
	"github.com/comedor/backend/internal/domain/report"
	"github.com/comedor/backend/internal/domain/shared"
	"github.com/comedor/backend/internal/infrastructure/scheduler"
	"github.com/comedor/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDashboard struct {
	snapshot   *dashboard.Snapshot
	deleteErr  error
	countsErr  error
	rebuilt    []string
	deleted    []string
	countsSeen []string
}

func (f *fakeDashboard) Snapshot() *dashboard.Snapshot { return f.snapshot }

func (f *fakeDashboard) Period(p report.Period) (report.PeriodView, error) {
	view, ok := f.snapshot.Period(p)
	if !ok {
		return report.PeriodView{}, shared.ErrUnavailable
	}
	return view, nil
}

func (f *fakeDashboard) Day(_ context.Context, day string) (dashboard.DayView, error) {
	return dashboard.DayView{Day: report.ResolvedDay{Date: day, State: report.DayClosed}}, nil
}

func (f *fakeDashboard) RebuildDay(_ context.Context, day string) (reportapp.DayWriteResult, error) {
	f.rebuilt = append(f.rebuilt, day)
	cats := report.ZeroCategories()
	cats.DineInLunch = decimal.NewFromInt(28000)
	return reportapp.DayWriteResult{
		Date:      day,
		Snapshot:  report.NewDailySnapshot(day, cats, time.Now()),
		Persisted: false,
		Err:       errors.New("connection reset"),
	}, nil
}

func (f *fakeDashboard) DeleteDaySnapshot(_ context.Context, day string) error {
	f.deleted = append(f.deleted, day)
	return f.deleteErr
}

func (f *fakeDashboard) SaveOrderCounts(_ context.Context, day string) (*report.OrderCountSnapshot, error) {
	f.countsSeen = append(f.countsSeen, day)
	return &report.OrderCountSnapshot{Date: day, DeliveryCount: 4, SalonCount: 9}, nil
}

func (f *fakeDashboard) DeleteOrderCounts(_ context.Context, _ string) error {
	return f.countsErr
}

type fakeCloser struct {
	result reportapp.CloseResult
	err    error
}

func (f *fakeCloser) RunNow(context.Context) (reportapp.CloseResult, error) {
	return f.result, f.err
}

func dashboardRouter(h *DashboardHandler) *gin.Engine {
	r := gin.New()
	r.GET("/dashboard", h.GetDashboard)
	r.GET("/dashboard/periods/:period", h.GetPeriod)
	r.GET("/dashboard/days/:date", h.GetDay)
	r.POST("/days/close", h.CloseDay)
	r.POST("/days/:date/rebuild", h.RebuildDay)
	r.DELETE("/days/:date/snapshot", h.DeleteDaySnapshot)
	r.POST("/days/:date/order-counts", h.SaveOrderCounts)
	r.DELETE("/days/:date/order-counts", h.DeleteOrderCounts)
	return r
}

func serve(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func readySnapshot() *dashboard.Snapshot {
	return &dashboard.Snapshot{
		Today: "2024-05-04",
		Ready: true,
		Periods: []report.PeriodView{
			{Period: report.PeriodToday, From: "2024-05-04", To: "2024-05-04", TotalIncome: decimal.NewFromInt(15000)},
		},
	}
}

func TestDashboardHandler_GetDashboard(t *testing.T) {
	t.Run("503 before the first computation", func(t *testing.T) {
		r := dashboardRouter(NewDashboardHandler(&fakeDashboard{}, &fakeCloser{}))

		w := serve(r, http.MethodGet, "/dashboard")

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, dto.ErrCodeUnavailable, decode(t, w).Error.Code)
	})

	t.Run("returns the snapshot", func(t *testing.T) {
		r := dashboardRouter(NewDashboardHandler(&fakeDashboard{snapshot: readySnapshot()}, &fakeCloser{}))

		w := serve(r, http.MethodGet, "/dashboard")

		assert.Equal(t, http.StatusOK, w.Code)
		data := decode(t, w).Data.(map[string]any)
		assert.Equal(t, "2024-05-04", data["today"])
		assert.Equal(t, true, data["ready"])
	})
}

func TestDashboardHandler_GetPeriod(t *testing.T) {
	r := dashboardRouter(NewDashboardHandler(&fakeDashboard{snapshot: readySnapshot()}, &fakeCloser{}))

	w := serve(r, http.MethodGet, "/dashboard/periods/today")
	assert.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w).Data.(map[string]any)
	assert.Equal(t, "today", data["period"])
	assert.Equal(t, "15000", data["total_income"])

	w = serve(r, http.MethodGet, "/dashboard/periods/last_7_days")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = serve(r, http.MethodGet, "/dashboard/periods/yesterday")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeValidation, decode(t, w).Error.Code)
}

func TestDashboardHandler_DayRoutesValidateDate(t *testing.T) {
	svc := &fakeDashboard{}
	r := dashboardRouter(NewDashboardHandler(svc, &fakeCloser{}))

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/dashboard/days/04-05-2024"},
		{http.MethodPost, "/days/2024-5-4/rebuild"},
		{http.MethodDelete, "/days/2024-02-30/snapshot"},
		{http.MethodPost, "/days/today/order-counts"},
		{http.MethodDelete, "/days/x/order-counts"},
	} {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			w := serve(r, tc.method, tc.path)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
	assert.Empty(t, svc.rebuilt)
	assert.Empty(t, svc.deleted)
	assert.Empty(t, svc.countsSeen)
}

func TestDashboardHandler_GetDay(t *testing.T) {
	r := dashboardRouter(NewDashboardHandler(&fakeDashboard{}, &fakeCloser{}))

	w := serve(r, http.MethodGet, "/dashboard/days/2024-05-03")

	assert.Equal(t, http.StatusOK, w.Code)
	day := decode(t, w).Data.(map[string]any)["day"].(map[string]any)
	assert.Equal(t, "2024-05-03", day["date"])
	assert.Equal(t, "closed", day["state"])
}

func TestDashboardHandler_CloseDay(t *testing.T) {
	t.Run("reports the closed day", func(t *testing.T) {
		closer := &fakeCloser{result: reportapp.CloseResult{
			Closed:      reportapp.DayWriteResult{Date: "2024-05-03", Persisted: true},
			SeededToday: true,
		}}
		r := dashboardRouter(NewDashboardHandler(&fakeDashboard{}, closer))

		w := serve(r, http.MethodPost, "/days/close")

		assert.Equal(t, http.StatusOK, w.Code)
		data := decode(t, w).Data.(map[string]any)
		assert.Equal(t, true, data["seeded_today"])
		closed := data["closed"].(map[string]any)
		assert.Equal(t, "2024-05-03", closed["date"])
		assert.Equal(t, true, closed["persisted"])
	})

	t.Run("409 while another instance closes", func(t *testing.T) {
		r := dashboardRouter(NewDashboardHandler(&fakeDashboard{}, &fakeCloser{err: scheduler.ErrRunInProgress}))

		w := serve(r, http.MethodPost, "/days/close")

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, dto.ErrCodeRunInProgress, decode(t, w).Error.Code)
	})
}

func TestDashboardHandler_RebuildDay_ReportsWriteFailure(t *testing.T) {
	svc := &fakeDashboard{}
	r := dashboardRouter(NewDashboardHandler(svc, &fakeCloser{}))

	w := serve(r, http.MethodPost, "/days/2024-05-01/rebuild")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"2024-05-01"}, svc.rebuilt)
	data := decode(t, w).Data.(map[string]any)
	assert.Equal(t, false, data["persisted"])
	assert.Equal(t, "connection reset", data["error"])
	snap := data["snapshot"].(map[string]any)
	assert.Equal(t, "28000", snap["total_income"])
}

func TestDashboardHandler_DeleteAndCounts(t *testing.T) {
	svc := &fakeDashboard{}
	r := dashboardRouter(NewDashboardHandler(svc, &fakeCloser{}))

	w := serve(r, http.MethodDelete, "/days/2024-05-01/snapshot")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"2024-05-01"}, svc.deleted)

	w = serve(r, http.MethodPost, "/days/2024-05-01/order-counts")
	assert.Equal(t, http.StatusCreated, w.Code)
	data := decode(t, w).Data.(map[string]any)
	assert.Equal(t, float64(4), data["delivery_count"])
	assert.Equal(t, float64(9), data["salon_count"])

	w = serve(r, http.MethodDelete, "/days/2024-05-01/order-counts")
	assert.Equal(t, http.StatusNoContent, w.Code)

	svc.countsErr = shared.ErrNotFound
	w = serve(r, http.MethodDelete, "/days/2024-05-01/order-counts")
	assert.Equal(t, http.StatusNotFound, w.Code)

	svc.deleteErr = errors.New("database is closed")
	w = serve(r, http.MethodDelete, "/days/2024-05-01/snapshot")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
