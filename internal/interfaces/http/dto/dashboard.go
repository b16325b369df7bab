package dto

// DayURI binds the :date path parameter
type DayURI struct {
	Date string `uri:"date" binding:"required,datetime=2006-01-02"`
}

// PeriodURI binds the :period path parameter
type PeriodURI struct {
	Period string `uri:"period" binding:"required,oneof=today last_7_days this_month this_year"`
}

// SourceHealth is the readiness of one source
type SourceHealth struct {
	Source    string `json:"source"`
	Loaded    bool   `json:"loaded"`
	Records   int    `json:"records"`
	LastError string `json:"last_error,omitempty"`
}

// HealthResponse reports whether every source has delivered its first set
type HealthResponse struct {
	Status  string         `json:"status"`
	Ready   bool           `json:"ready"`
	Today   string         `json:"today,omitempty"`
	Sources []SourceHealth `json:"sources"`
}

// SchedulerStatusResponse reports the day-close scheduler state
type SchedulerStatusResponse struct {
	Status map[string]any `json:"status"`
}
