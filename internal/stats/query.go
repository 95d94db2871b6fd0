package stats

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
)

const (
	PeriodDay   = "day"
	PeriodWeek  = "week"
	PeriodMonth = "month"
	PeriodYear  = "year"
)

var ErrInvalidPeriod = errors.New("invalid stats period")

// GetUserStats returns the cumulative row for a user, lazily inserting a
// zeroed default on first access. First-time users never get a not-found.
func (s *Service) GetUserStats(ctx context.Context, userID string) (UserStatistics, error) {
	row := s.db.QueryRow(ctx, `
		SELECT total_walks, total_distance_km, total_duration_min, total_steps, total_calories,
		       current_streak_days, longest_streak_days, last_walk_date
		FROM user_statistics WHERE user_id=$1
	`, userID)

	st := UserStatistics{UserID: userID}
	err := row.Scan(&st.TotalWalks, &st.TotalDistanceKm, &st.TotalDurationMin, &st.TotalSteps, &st.TotalCalories,
		&st.CurrentStreakDays, &st.LongestStreakDays, &st.LastWalkDate)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, err := s.db.Exec(ctx, `
			INSERT INTO user_statistics (user_id) VALUES ($1)
			ON CONFLICT (user_id) DO NOTHING
		`, userID); err != nil {
			return UserStatistics{}, err
		}
		return UserStatistics{UserID: userID}, nil
	}
	if err != nil {
		return UserStatistics{}, err
	}
	return st, nil
}

// GetWalkStats aggregates completed sessions over a period-derived or
// caller-supplied window, including a per-calendar-day breakdown.
func (s *Service) GetWalkStats(ctx context.Context, userID, period string, start, end *time.Time) (Report, error) {
	from, to, err := s.resolveWindow(period, start, end)
	if err != nil {
		return Report{}, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT started_at, distance_km, duration_min, steps, calories
		FROM walk_sessions
		WHERE user_id=$1 AND completed AND started_at >= $2 AND started_at <= $3
		ORDER BY started_at
	`, userID, from, to)
	if err != nil {
		return Report{}, err
	}
	defer rows.Close()

	report := Report{
		Period:    period,
		StartDate: from,
		EndDate:   to,
		Daily:     map[string]DayStat{},
	}
	for rows.Next() {
		var startedAt time.Time
		var distance float64
		var duration, steps, calories int
		if err := rows.Scan(&startedAt, &distance, &duration, &steps, &calories); err != nil {
			return Report{}, err
		}

		report.TotalWalks++
		report.TotalDistanceKm += distance
		report.TotalDurationMin += duration
		report.TotalSteps += steps
		report.TotalCalories += calories

		key := startedAt.Format("2006-01-02")
		day := report.Daily[key]
		day.Walks++
		day.DistanceKm = round2(day.DistanceKm + distance)
		day.DurationMin += duration
		day.Steps += steps
		report.Daily[key] = day
	}

	report.TotalDistanceKm = round2(report.TotalDistanceKm)
	if report.TotalWalks > 0 {
		report.AvgDistanceKm = round2(report.TotalDistanceKm / float64(report.TotalWalks))
		report.AvgDurationMin = round2(float64(report.TotalDurationMin) / float64(report.TotalWalks))
	}
	if report.TotalDurationMin > 0 {
		report.AvgSpeedKmh = round2(report.TotalDistanceKm / (float64(report.TotalDurationMin) / 60))
	}
	return report, nil
}

// resolveWindow derives [from, to] from the period, unless explicit dates
// override it. Lower bounds are calendar-aligned to start of day.
func (s *Service) resolveWindow(period string, start, end *time.Time) (time.Time, time.Time, error) {
	if start != nil && end != nil {
		return *start, *end, nil
	}

	now := s.now()
	today := startOfDay(now)
	switch period {
	case PeriodDay:
		return today, now, nil
	case PeriodWeek:
		return today.AddDate(0, 0, -6), now, nil
	case PeriodMonth:
		return today.AddDate(0, -1, 0), now, nil
	case PeriodYear:
		return today.AddDate(-1, 0, 0), now, nil
	default:
		return time.Time{}, time.Time{}, ErrInvalidPeriod
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
