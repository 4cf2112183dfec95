package stats

import "time"

// SystemLatest is a system's most recent inspection outcome. Status is nil
// when the system has never been inspected.
type SystemLatest struct {
	SystemID        string `json:"system_id"`
	Name            string `json:"name"`
	Status          *bool  `json:"latest_status"`
	SuccessCount    int    `json:"success_count"`
	ErrorCount      int    `json:"error_count"`
	LastInspectedAt string `json:"latest_datetime,omitempty"`
}

type TodayStats struct {
	Count          int `json:"today_inspection_count"`
	SuccessSystems int `json:"today_success_system_count"`
	ErrorSystems   int `json:"today_error_system_count"`
}

type MonthStats struct {
	Count int `json:"month_inspection_count"`
}

// WeeklyStats is indexed by weekday, Sunday first.
type WeeklyStats struct {
	Labels      []string `json:"labels"`
	SuccessData []int    `json:"success_data"`
	ErrorData   []int    `json:"error_data"`
	TotalData   []int    `json:"total_data"`
}

// YearlyStats is indexed by month, January first.
type YearlyStats struct {
	Year   int      `json:"year"`
	Labels []string `json:"labels"`
	Data   []int    `json:"data"`
}

// SystemStats holds parallel arrays in registry order, one slot per system.
type SystemStats struct {
	Labels         []string `json:"labels"`
	SuccessData    []int    `json:"success_data"`
	ErrorData      []int    `json:"error_data"`
	LatestDatetime []string `json:"latest_datetime"`
}

type SystemStatistics struct {
	TotalInspections int     `json:"total_inspections"`
	SuccessCount     int     `json:"success_count"`
	ErrorCount       int     `json:"error_count"`
	SuccessRate      float64 `json:"success_rate"`
}

type Dashboard struct {
	TodayInspectionCount    int         `json:"today_inspection_count"`
	TodaySuccessSystemCount int         `json:"today_success_system_count"`
	TodayErrorSystemCount   int         `json:"today_error_system_count"`
	MonthInspectionCount    int         `json:"month_inspection_count"`
	SystemStats             SystemStats `json:"system_stats"`
	WeeklyInspectionStats   WeeklyStats `json:"weekly_inspection_stats"`
	YearlyInspectionStats   YearlyStats `json:"yearly_inspection_stats"`
}

type LatestResult struct {
	InspectionDate time.Time `json:"inspection_date"`
	HasError       bool      `json:"has_error"`
}

type SystemSummary struct {
	SystemID     string           `json:"system_id"`
	SystemName   string           `json:"system_name"`
	LatestResult *LatestResult    `json:"latest_result"`
	Statistics   SystemStatistics `json:"statistics"`
}

type Summary struct {
	Systems []SystemSummary `json:"systems"`
}

var (
	weekdayLabels = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
	monthLabels   = []string{"1월", "2월", "3월", "4월", "5월", "6월", "7월", "8월", "9월", "10월", "11월", "12월"}
)
