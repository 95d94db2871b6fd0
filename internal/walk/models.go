package walk

import "time"

// Point is a single GPS sample on a walk route. Points are ordered by
// non-decreasing RecordedAt and belong to exactly one session.
type Point struct {
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Session is one continuous walk from start to stop, possibly containing
// pauses. It is built client-side and becomes immutable once submitted.
type Session struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	DogID       string    `json:"dog_id,omitempty"`
	ScheduleID  string    `json:"schedule_id,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	EndedAt     time.Time `json:"ended_at,omitempty"`
	DurationMin int       `json:"duration_min"`
	DistanceKm  float64   `json:"distance_km"`
	Steps       int       `json:"steps"`
	Calories    int       `json:"calories"`
	RoutePoints []Point   `json:"route_points,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// StartPoint returns the first recorded route point, if any.
func (s Session) StartPoint() *Point {
	if len(s.RoutePoints) == 0 {
		return nil
	}
	return &s.RoutePoints[0]
}

// EndPoint returns the last recorded route point, if any.
func (s Session) EndPoint() *Point {
	if len(s.RoutePoints) == 0 {
		return nil
	}
	return &s.RoutePoints[len(s.RoutePoints)-1]
}
