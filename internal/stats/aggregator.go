package stats

import (
	"context"
	"errors"
	"time"

	"backend-pawmates/internal/db"

	"github.com/jackc/pgx/v5"
)

// applyAttempts bounds the optimistic-concurrency retry loop. Two devices
// finishing walks for the same user at once must both land their
// increments, so a stale version check retries instead of overwriting.
const applyAttempts = 3

var ErrConflict = errors.New("statistics update conflict")

type Service struct {
	db  db.Querier
	now func() time.Time
}

func NewService(db db.Querier) *Service {
	return &Service{db: db, now: time.Now}
}

// ApplyWalk folds a walk's metrics into the user's cumulative row and
// recomputes the day streak. The row is created lazily on first submission.
func (s *Service) ApplyWalk(ctx context.Context, userID string, m Metrics, at time.Time) error {
	if at.IsZero() {
		at = s.now()
	}
	day := startOfDay(at)

	for attempt := 0; attempt < applyAttempts; attempt++ {
		var cur UserStatistics
		var version int
		row := s.db.QueryRow(ctx, `
			SELECT total_walks, total_distance_km, total_duration_min, total_steps, total_calories,
			       current_streak_days, longest_streak_days, last_walk_date, version
			FROM user_statistics WHERE user_id=$1
		`, userID)
		err := row.Scan(&cur.TotalWalks, &cur.TotalDistanceKm, &cur.TotalDurationMin, &cur.TotalSteps, &cur.TotalCalories,
			&cur.CurrentStreakDays, &cur.LongestStreakDays, &cur.LastWalkDate, &version)
		if errors.Is(err, pgx.ErrNoRows) {
			tag, err := s.db.Exec(ctx, `
				INSERT INTO user_statistics (user_id, total_walks, total_distance_km, total_duration_min, total_steps, total_calories,
				                             current_streak_days, longest_streak_days, last_walk_date, version)
				VALUES ($1,1,$2,$3,$4,$5,1,1,$6,1)
				ON CONFLICT (user_id) DO NOTHING
			`, userID, m.DistanceKm, m.DurationMin, m.Steps, m.Calories, day)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 1 {
				return nil
			}
			// lost the insert race, re-read and update instead
			continue
		}
		if err != nil {
			return err
		}

		streak := NextStreak(cur.LastWalkDate, day, cur.CurrentStreakDays)
		longest := cur.LongestStreakDays
		if streak > longest {
			longest = streak
		}

		tag, err := s.db.Exec(ctx, `
			UPDATE user_statistics
			SET total_walks=$2, total_distance_km=$3, total_duration_min=$4, total_steps=$5, total_calories=$6,
			    current_streak_days=$7, longest_streak_days=$8, last_walk_date=$9, version=version+1
			WHERE user_id=$1 AND version=$10
		`, userID,
			cur.TotalWalks+1, cur.TotalDistanceKm+m.DistanceKm, cur.TotalDurationMin+m.DurationMin,
			cur.TotalSteps+m.Steps, cur.TotalCalories+m.Calories,
			streak, longest, day, version)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 1 {
			return nil
		}
	}
	return ErrConflict
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
