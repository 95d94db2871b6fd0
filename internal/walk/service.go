package walk

import (
	"context"
	"errors"
	"log"
	"time"

	"backend-pawmates/internal/db"
	"backend-pawmates/internal/stats"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrInvalidSession = errors.New("invalid walk session")
	ErrNotFound       = errors.New("walk session not found")
)

// Aggregator receives the metrics of every persisted walk. Statistics are
// best-effort: a failing aggregator never rolls back the session write.
type Aggregator interface {
	ApplyWalk(ctx context.Context, userID string, m stats.Metrics, at time.Time) error
}

type Service struct {
	db  db.Querier
	agg Aggregator
}

func NewService(db db.Querier, agg Aggregator) *Service {
	return &Service{db: db, agg: agg}
}

// SubmitWalk persists a completed session with its route points and feeds
// the metrics into the statistics aggregator.
func (s *Service) SubmitWalk(ctx context.Context, input Session) (Session, error) {
	if input.UserID == "" || input.DistanceKm < 0 || input.DurationMin < 0 {
		return Session{}, ErrInvalidSession
	}
	if input.ID == "" {
		input.ID = uuid.NewString()
	}
	if input.StartedAt.IsZero() {
		input.StartedAt = time.Now()
	}
	if input.EndedAt.IsZero() {
		input.EndedAt = input.StartedAt.Add(time.Duration(input.DurationMin) * time.Minute)
	}
	input.Completed = true

	row := s.db.QueryRow(ctx, `
		INSERT INTO walk_sessions (id, user_id, dog_id, schedule_id, started_at, ended_at, duration_min, distance_km, steps, calories, notes, completed)
		VALUES ($1,$2,NULLIF($3,''),NULLIF($4,''),$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING created_at
	`, input.ID, input.UserID, input.DogID, input.ScheduleID, input.StartedAt, input.EndedAt,
		input.DurationMin, input.DistanceKm, input.Steps, input.Calories, input.Notes, input.Completed)
	if err := row.Scan(&input.CreatedAt); err != nil {
		return Session{}, err
	}

	for _, p := range input.RoutePoints {
		if _, err := s.db.Exec(ctx, `
			INSERT INTO walk_route_points (session_id, lat, lng, recorded_at)
			VALUES ($1,$2,$3,$4)
		`, input.ID, p.Lat, p.Lng, p.RecordedAt); err != nil {
			return Session{}, err
		}
	}

	if s.agg != nil {
		err := s.agg.ApplyWalk(ctx, input.UserID, stats.Metrics{
			DistanceKm:  input.DistanceKm,
			DurationMin: input.DurationMin,
			Steps:       input.Steps,
			Calories:    input.Calories,
		}, input.StartedAt)
		if err != nil {
			// The session row is authoritative; totals can be repaired later.
			log.Printf("stats update failed for user %s: %v", input.UserID, err)
		}
	}

	return input, nil
}

func (s *Service) GetWalk(ctx context.Context, id string) (Session, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, user_id, COALESCE(dog_id,''), COALESCE(schedule_id,''), started_at, ended_at, duration_min, distance_km, steps, calories, COALESCE(notes,''), completed, created_at
		FROM walk_sessions WHERE id=$1
	`, id)

	var sess Session
	if err := row.Scan(&sess.ID, &sess.UserID, &sess.DogID, &sess.ScheduleID, &sess.StartedAt, &sess.EndedAt,
		&sess.DurationMin, &sess.DistanceKm, &sess.Steps, &sess.Calories, &sess.Notes, &sess.Completed, &sess.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}

	points, err := s.routePoints(ctx, id)
	if err != nil {
		return Session{}, err
	}
	sess.RoutePoints = points
	return sess, nil
}

// ListWalks returns a user's sessions newest first, without route points.
func (s *Service) ListWalks(ctx context.Context, userID string, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, COALESCE(dog_id,''), COALESCE(schedule_id,''), started_at, ended_at, duration_min, distance_km, steps, calories, COALESCE(notes,''), completed, created_at
		FROM walk_sessions WHERE user_id=$1
		ORDER BY started_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.UserID, &sess.DogID, &sess.ScheduleID, &sess.StartedAt, &sess.EndedAt,
			&sess.DurationMin, &sess.DistanceKm, &sess.Steps, &sess.Calories, &sess.Notes, &sess.Completed, &sess.CreatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, nil
}

func (s *Service) routePoints(ctx context.Context, sessionID string) ([]Point, error) {
	rows, err := s.db.Query(ctx, `
		SELECT lat, lng, recorded_at
		FROM walk_route_points WHERE session_id=$1
		ORDER BY recorded_at
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []Point
	for rows.Next() {
		var p Point
		if err := rows.Scan(&p.Lat, &p.Lng, &p.RecordedAt); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, nil
}
