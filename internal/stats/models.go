package stats

import "time"

// Metrics are the walk numbers fed into the aggregator on submission.
type Metrics struct {
	DistanceKm  float64 `json:"distance_km"`
	DurationMin int     `json:"duration_min"`
	Steps       int     `json:"steps"`
	Calories    int     `json:"calories"`
}

// UserStatistics is the single cumulative row kept per user. The version
// column backs the optimistic-concurrency update in ApplyWalk.
type UserStatistics struct {
	UserID            string     `json:"user_id"`
	TotalWalks        int        `json:"total_walks"`
	TotalDistanceKm   float64    `json:"total_distance_km"`
	TotalDurationMin  int        `json:"total_duration_min"`
	TotalSteps        int        `json:"total_steps"`
	TotalCalories     int        `json:"total_calories"`
	CurrentStreakDays int        `json:"current_streak_days"`
	LongestStreakDays int        `json:"longest_streak_days"`
	LastWalkDate      *time.Time `json:"last_walk_date,omitempty"`
}

// DayStat is one bucket of the daily breakdown, keyed by the calendar date
// a session started on.
type DayStat struct {
	Walks       int     `json:"walks"`
	DistanceKm  float64 `json:"distance_km"`
	DurationMin int     `json:"duration_min"`
	Steps       int     `json:"steps"`
}

// Report is the answer to a windowed stats query. Daily is empty (never
// nil) when no sessions fall inside the window.
type Report struct {
	Period           string             `json:"period"`
	StartDate        time.Time          `json:"start_date"`
	EndDate          time.Time          `json:"end_date"`
	TotalWalks       int                `json:"total_walks"`
	TotalDistanceKm  float64            `json:"total_distance_km"`
	TotalDurationMin int                `json:"total_duration_min"`
	TotalSteps       int                `json:"total_steps"`
	TotalCalories    int                `json:"total_calories"`
	AvgDistanceKm    float64            `json:"avg_distance_km"`
	AvgDurationMin   float64            `json:"avg_duration_min"`
	AvgSpeedKmh      float64            `json:"avg_speed_kmh"`
	Daily            map[string]DayStat `json:"daily"`
}
