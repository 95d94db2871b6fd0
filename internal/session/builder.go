package session

import (
	"errors"
	"math"
	"time"

	"backend-pawmates/internal/shared/geo"
	"backend-pawmates/internal/walk"
)

// Segment acceptance window: below 2m is GPS jitter, above 50m is an
// implausible jump between consecutive samples.
const (
	minSegmentM = 2.0
	maxSegmentM = 50.0

	strideM   = 0.75 // assumed stride length
	kcalPerKm = 50.0

	minSpeedKmh = 1.0
	maxSpeedKmh = 8.0
	// speedWarmup delays the average-speed estimate until the GPS has
	// settled and elapsed time is meaningful.
	speedWarmup = 30 * time.Second
)

// Sampler cadence the builder expects from the device layer. The location
// stream only surfaces a sample every interval and after the device moved
// at least the minimum distance.
const (
	SampleInterval = 2 * time.Second
	MinMovementM   = 3.0
)

const (
	StateIdle   = "idle"
	StateActive = "active"
	StatePaused = "paused"
)

var (
	ErrPermissionDenied = errors.New("location permission denied")
	ErrInvalidState     = errors.New("invalid session state")
)

// Snapshot is the live view of the accumulators while a walk is running.
type Snapshot struct {
	State       string  `json:"state"`
	DistanceKm  float64 `json:"distance_km"`
	Steps       int     `json:"steps"`
	Calories    int     `json:"calories"`
	AvgSpeedKmh float64 `json:"avg_speed_kmh"`
	ElapsedSec  int64   `json:"elapsed_sec"`
}

// Builder accumulates one walk from GPS samples. It is driven serially by
// the location stream; accumulators are never touched concurrently. Pause
// time is excluded from elapsed duration by re-basing on resume.
type Builder struct {
	state       string
	spent       bool
	userID      string
	dogID       string
	scheduleID  string
	startedAt   time.Time
	pausedAt    time.Time
	pausedTotal time.Duration
	last        walk.Point
	distanceKm  float64
	steps       int
	calories    int
	avgSpeedKmh float64
	points      []walk.Point
	notes       string

	now func() time.Time
}

func NewBuilder(userID, dogID, scheduleID string) *Builder {
	return &Builder{
		state:      StateIdle,
		userID:     userID,
		dogID:      dogID,
		scheduleID: scheduleID,
		now:        time.Now,
	}
}

// Start begins recording from a known position. A nil origin means the
// device has no fix or location access was denied; the attempt fails
// without touching any accumulators.
func (b *Builder) Start(origin *walk.Point) error {
	if b.state != StateIdle || b.spent {
		return ErrInvalidState
	}
	if origin == nil {
		return ErrPermissionDenied
	}

	b.startedAt = b.now()
	b.pausedTotal = 0
	b.distanceKm = 0
	b.steps = 0
	b.calories = 0
	b.avgSpeedKmh = 0
	b.last = *origin
	b.points = []walk.Point{*origin}
	b.state = StateActive
	return nil
}

func (b *Builder) Pause() error {
	if b.state != StateActive {
		return ErrInvalidState
	}
	b.pausedAt = b.now()
	b.state = StatePaused
	return nil
}

func (b *Builder) Resume() error {
	if b.state != StatePaused {
		return ErrInvalidState
	}
	b.pausedTotal += b.now().Sub(b.pausedAt)
	b.state = StateActive
	return nil
}

// Record processes one GPS sample. Only segments within the acceptance
// window change the accumulators; the returned bool reports whether the
// sample was accepted.
func (b *Builder) Record(p walk.Point) (bool, error) {
	if b.state != StateActive {
		return false, ErrInvalidState
	}

	segM := geo.HaversineM(b.last.Lat, b.last.Lng, p.Lat, p.Lng)
	if segM < minSegmentM || segM > maxSegmentM {
		return false, nil
	}

	b.distanceKm += segM / 1000
	b.last = p
	b.points = append(b.points, p)
	b.steps = int(math.Floor(b.distanceKm * 1000 / strideM))
	b.calories = int(math.Floor(b.distanceKm * kcalPerKm))

	if elapsed := b.Elapsed(); elapsed > speedWarmup {
		speed := b.distanceKm / elapsed.Hours()
		if speed < minSpeedKmh {
			speed = minSpeedKmh
		}
		if speed > maxSpeedKmh {
			speed = maxSpeedKmh
		}
		b.avgSpeedKmh = speed
	}
	return true, nil
}

// Elapsed is the walking time so far, excluding pauses.
func (b *Builder) Elapsed() time.Duration {
	if b.startedAt.IsZero() {
		return 0
	}
	base := b.now()
	if b.state == StatePaused {
		base = b.pausedAt
	}
	return base.Sub(b.startedAt) - b.pausedTotal
}

// Stop freezes the accumulators and yields the completed session. The
// builder cannot be restarted afterwards.
func (b *Builder) Stop() (walk.Session, error) {
	if b.state != StateActive && b.state != StatePaused {
		return walk.Session{}, ErrInvalidState
	}
	if b.state == StatePaused {
		b.pausedTotal += b.now().Sub(b.pausedAt)
		b.state = StateActive
	}

	elapsed := b.Elapsed()
	ended := b.now()
	b.state = StateIdle
	b.spent = true

	return walk.Session{
		UserID:      b.userID,
		DogID:       b.dogID,
		ScheduleID:  b.scheduleID,
		StartedAt:   b.startedAt,
		EndedAt:     ended,
		DurationMin: int(elapsed.Minutes()),
		DistanceKm:  b.distanceKm,
		Steps:       b.steps,
		Calories:    b.calories,
		RoutePoints: b.points,
		Notes:       b.notes,
		Completed:   true,
	}, nil
}

func (b *Builder) State() string { return b.state }

func (b *Builder) SetNotes(notes string) { b.notes = notes }

func (b *Builder) Snapshot() Snapshot {
	return Snapshot{
		State:       b.state,
		DistanceKm:  b.distanceKm,
		Steps:       b.steps,
		Calories:    b.calories,
		AvgSpeedKmh: b.avgSpeedKmh,
		ElapsedSec:  int64(b.Elapsed().Seconds()),
	}
}
