package schedule

import (
	"context"
	"log"
	"time"
)

// DueReminders returns scheduled walks starting within the window that
// have not been flagged yet.
func (s *Service) DueReminders(ctx context.Context, within time.Duration) ([]Schedule, error) {
	now := s.now()
	until := now.Add(within)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	untilDay := time.Date(until.Year(), until.Month(), until.Day(), 0, 0, 0, 0, until.Location())

	rows, err := s.db.Query(ctx, selectSchedule+`
		WHERE status='scheduled' AND reminder_sent=false AND scheduled_date >= $1 AND scheduled_date <= $2
		ORDER BY scheduled_date, start_time
	`, today, untilDay)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var due []Schedule
	for rows.Next() {
		sch, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		if startsBetween(sch, now, until) {
			due = append(due, sch)
		}
	}
	return due, nil
}

// MarkReminderSent flips the flag exactly once and announces the change
// to interested viewers. A schedule already flagged is a no-op.
func (s *Service) MarkReminderSent(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE walk_schedules SET reminder_sent=true WHERE id=$1 AND reminder_sent=false
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return nil
	}

	sch, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	s.publish(EventUpdated, sch.OrganizerID, sch)
	return nil
}

// SweepReminders is the periodic pass run from the server loop.
func (s *Service) SweepReminders(ctx context.Context, within time.Duration) {
	due, err := s.DueReminders(ctx, within)
	if err != nil {
		log.Printf("reminder sweep failed: %v", err)
		return
	}
	for _, sch := range due {
		if err := s.MarkReminderSent(ctx, sch.ID); err != nil {
			log.Printf("mark reminder %s failed: %v", sch.ID, err)
		}
	}
}

// startsBetween combines the schedule's date and wall-clock start time and
// checks it against the [from, to] window.
func startsBetween(sch Schedule, from, to time.Time) bool {
	t, err := time.Parse("15:04", sch.StartTime)
	if err != nil {
		return true // malformed time still gets a reminder rather than none
	}
	starts := time.Date(sch.ScheduledDate.Year(), sch.ScheduledDate.Month(), sch.ScheduledDate.Day(),
		t.Hour(), t.Minute(), 0, 0, from.Location())
	return !starts.Before(from) && !starts.After(to)
}
