package domain

// Report types produced by the statistics engine. Revenue figures come from
// paid payment records only; session counts come from the occupancy log.
// The two deliberately diverge for unpaid sessions (activity vs. collected
// revenue).

type SummaryReport struct {
	TotalSessions    int     `json:"total_sessions"`
	TotalRevenue     int64   `json:"total_revenue"`
	AvgDurationHours float64 `json:"avg_duration_hours"`
}

// HourlyBucket aggregates one hour-of-day across every day of the query
// range ("how busy is 2pm over the period"), not a single day's trace.
type HourlyBucket struct {
	Hour       int   `json:"hour"`
	EntryCount int   `json:"entry_count"`
	ExitCount  int   `json:"exit_count"`
	Revenue    int64 `json:"revenue"`
}

type DailyBucket struct {
	Date             string  `json:"date"`
	SessionCount     int     `json:"session_count"`
	Revenue          int64   `json:"revenue"`
	AvgDurationHours float64 `json:"avg_duration_hours"`
}

// UtilizationBucket reports, for one hour-of-day, the occupied-space count
// averaged over the days of the range and the resulting utilization rate.
type UtilizationBucket struct {
	Hour          int     `json:"hour"`
	OccupiedCount float64 `json:"occupied_count"`
	TotalSpaces   int     `json:"total_spaces"`
	Rate          float64 `json:"rate"`
}

type StatsFilterDTO struct {
	LotID *int   `form:"lotId"`
	Start string `form:"start" binding:"required"`
	End   string `form:"end" binding:"required"`
}

type OccupancyFilterDTO struct {
	LotID *int `form:"lotId"`
}
