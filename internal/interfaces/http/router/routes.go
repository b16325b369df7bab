package router

import "github.com/comedor/backend/internal/interfaces/http/handler"

// DashboardRoutes are the read views of the live dashboard
func DashboardRoutes(h *handler.DashboardHandler) *DomainGroup {
	return NewDomainGroup("dashboard", "/dashboard").
		GET("", h.GetDashboard).
		GET("/periods/:period", h.GetPeriod).
		GET("/days/:date", h.GetDay)
}

// DayRoutes are the imperative day operations
func DayRoutes(h *handler.DashboardHandler) *DomainGroup {
	return NewDomainGroup("days", "/days").
		POST("/close", h.CloseDay).
		POST("/:date/rebuild", h.RebuildDay).
		DELETE("/:date/snapshot", h.DeleteDaySnapshot).
		POST("/:date/order-counts", h.SaveOrderCounts).
		DELETE("/:date/order-counts", h.DeleteOrderCounts)
}

// SystemRoutes are health, info and scheduler status
func SystemRoutes(h *handler.SystemHandler) *DomainGroup {
	return NewDomainGroup("system", "").
		GET("/health", h.Health).
		GET("/system/ping", h.Ping).
		GET("/system/info", h.GetSystemInfo).
		GET("/system/scheduler", h.GetSchedulerStatus)
}
