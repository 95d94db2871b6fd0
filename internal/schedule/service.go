package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"backend-pawmates/internal/db"
	"backend-pawmates/internal/stream"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrInvalidSchedule = errors.New("invalid schedule")
	ErrNotFound        = errors.New("schedule not found")
	ErrForbidden       = errors.New("not allowed to modify this schedule")
	ErrInvalidState    = errors.New("schedule is not open")
	ErrFull            = errors.New("walk is full")
	ErrNotParticipant  = errors.New("not a participant of this walk")
)

const (
	minGroupWalkMin = 15
	maxGroupWalkMin = 300
)

type Service struct {
	db  db.Querier
	hub *stream.Hub
	now func() time.Time
}

func NewService(db db.Querier, hub *stream.Hub) *Service {
	return &Service{db: db, hub: hub, now: time.Now}
}

// Create stores a new scheduled walk. Past dates are not rejected here;
// the client form enforces that. Group walks carry a bounded duration.
func (s *Service) Create(ctx context.Context, organizerID string, input Schedule) (Schedule, error) {
	if organizerID == "" || input.Title == "" || input.LocationName == "" {
		return Schedule{}, ErrInvalidSchedule
	}
	if input.IsGroupWalk && input.DurationMin != 0 &&
		(input.DurationMin < minGroupWalkMin || input.DurationMin > maxGroupWalkMin) {
		return Schedule{}, ErrInvalidSchedule
	}

	input.ID = uuid.NewString()
	input.OrganizerID = organizerID
	input.Status = StatusScheduled
	input.ReminderSent = false
	if input.MaxParticipants <= 0 {
		input.MaxParticipants = 2
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO walk_schedules (id, organizer_id, partner_id, title, scheduled_date, start_time, duration_min, location_name, max_participants, is_group_walk, status)
		VALUES ($1,$2,NULLIF($3,''),$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING created_at
	`, input.ID, input.OrganizerID, input.PartnerID, input.Title, input.ScheduledDate, input.StartTime,
		input.DurationMin, input.LocationName, input.MaxParticipants, input.IsGroupWalk, input.Status)
	if err := row.Scan(&input.CreatedAt); err != nil {
		return Schedule{}, err
	}

	s.publish(EventCreated, organizerID, input)
	return input, nil
}

// Update patches a schedule. Only the organizer or the assigned partner
// may mutate; completed and cancelled schedules reject any further change.
func (s *Service) Update(ctx context.Context, scheduleID, actorID string, patch Schedule) (Schedule, error) {
	sch, err := s.Get(ctx, scheduleID)
	if err != nil {
		return Schedule{}, err
	}
	if actorID != sch.OrganizerID && (sch.PartnerID == "" || actorID != sch.PartnerID) {
		return Schedule{}, ErrForbidden
	}
	if sch.Status != StatusScheduled {
		return Schedule{}, ErrInvalidState
	}

	if patch.Title != "" {
		sch.Title = patch.Title
	}
	if patch.PartnerID != "" {
		sch.PartnerID = patch.PartnerID
	}
	if !patch.ScheduledDate.IsZero() {
		sch.ScheduledDate = patch.ScheduledDate
	}
	if patch.StartTime != "" {
		sch.StartTime = patch.StartTime
	}
	if patch.DurationMin != 0 {
		sch.DurationMin = patch.DurationMin
	}
	if patch.LocationName != "" {
		sch.LocationName = patch.LocationName
	}
	if patch.MaxParticipants != 0 {
		sch.MaxParticipants = patch.MaxParticipants
	}
	if patch.IsGroupWalk {
		sch.IsGroupWalk = true
	}
	if patch.Status != "" {
		if patch.Status != StatusScheduled && patch.Status != StatusCompleted && patch.Status != StatusCancelled {
			return Schedule{}, ErrInvalidSchedule
		}
		sch.Status = patch.Status
	}

	_, err = s.db.Exec(ctx, `
		UPDATE walk_schedules
		SET partner_id=NULLIF($2,''), title=$3, scheduled_date=$4, start_time=$5, duration_min=$6, location_name=$7, max_participants=$8, is_group_walk=$9, status=$10
		WHERE id=$1
	`, sch.ID, sch.PartnerID, sch.Title, sch.ScheduledDate, sch.StartTime, sch.DurationMin,
		sch.LocationName, sch.MaxParticipants, sch.IsGroupWalk, sch.Status)
	if err != nil {
		return Schedule{}, err
	}

	switch sch.Status {
	case StatusCompleted:
		s.publish(EventCompleted, actorID, sch)
	case StatusCancelled:
		s.publish(EventCancelled, actorID, sch)
	default:
		s.publish(EventUpdated, actorID, sch)
	}
	return sch, nil
}

func (s *Service) Get(ctx context.Context, id string) (Schedule, error) {
	return scanSchedule(s.db.QueryRow(ctx, selectSchedule+` WHERE id=$1`, id))
}

// Join adds a user to a scheduled walk. The schedule row is locked for the
// duration of the transaction so two near-capacity joins cannot both pass
// the count check.
func (s *Service) Join(ctx context.Context, walkID, userID, dogID string) (Participant, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return Participant{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var status string
	var maxParticipants int
	err = tx.QueryRow(ctx, `
		SELECT status, max_participants FROM walk_schedules WHERE id=$1 FOR UPDATE
	`, walkID).Scan(&status, &maxParticipants)
	if errors.Is(err, pgx.ErrNoRows) {
		return Participant{}, ErrNotFound
	}
	if err != nil {
		return Participant{}, err
	}
	if status != StatusScheduled {
		return Participant{}, ErrInvalidState
	}

	var joined int
	if err := tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM walk_participants WHERE walk_id=$1 AND status='joined'
	`, walkID).Scan(&joined); err != nil {
		return Participant{}, err
	}

	p := Participant{WalkID: walkID, UserID: userID, DogID: dogID, Status: ParticipantJoined}
	var existingStatus, storedDogID string
	err = tx.QueryRow(ctx, `
		SELECT status, COALESCE(dog_id,''), joined_at FROM walk_participants WHERE walk_id=$1 AND user_id=$2
	`, walkID, userID).Scan(&existingStatus, &storedDogID, &p.JoinedAt)
	switch {
	case err == nil && existingStatus == ParticipantJoined:
		// idempotent re-join reports the stored row, not the request
		p.DogID = storedDogID
		return p, tx.Commit(ctx)
	case err == nil:
		// previously left: re-activate the same row instead of inserting
		if joined >= maxParticipants {
			return Participant{}, ErrFull
		}
		if err := tx.QueryRow(ctx, `
			UPDATE walk_participants
			SET status='joined', dog_id=COALESCE(NULLIF($3,''), dog_id), joined_at=now(), left_at=NULL
			WHERE walk_id=$1 AND user_id=$2
			RETURNING COALESCE(dog_id,''), joined_at
		`, walkID, userID, dogID).Scan(&p.DogID, &p.JoinedAt); err != nil {
			return Participant{}, err
		}
	case errors.Is(err, pgx.ErrNoRows):
		if joined >= maxParticipants {
			return Participant{}, ErrFull
		}
		if err := tx.QueryRow(ctx, `
			INSERT INTO walk_participants (walk_id, user_id, dog_id, status)
			VALUES ($1,$2,NULLIF($3,''),'joined')
			RETURNING joined_at
		`, walkID, userID, dogID).Scan(&p.JoinedAt); err != nil {
			return Participant{}, err
		}
	default:
		return Participant{}, err
	}

	return p, tx.Commit(ctx)
}

// Leave marks the user's participant row as left. The row is kept so a
// later re-join reuses it.
func (s *Service) Leave(ctx context.Context, walkID, userID string) (Participant, error) {
	p := Participant{WalkID: walkID, UserID: userID, Status: ParticipantLeft}
	err := s.db.QueryRow(ctx, `
		UPDATE walk_participants
		SET status='left', left_at=now()
		WHERE walk_id=$1 AND user_id=$2
		RETURNING COALESCE(dog_id,''), joined_at, left_at
	`, walkID, userID).Scan(&p.DogID, &p.JoinedAt, &p.LeftAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Participant{}, ErrNotParticipant
	}
	if err != nil {
		return Participant{}, err
	}
	return p, nil
}

func (s *Service) Participants(ctx context.Context, walkID string) ([]Participant, error) {
	rows, err := s.db.Query(ctx, `
		SELECT walk_id, user_id, COALESCE(dog_id,''), status, joined_at, left_at
		FROM walk_participants WHERE walk_id=$1
		ORDER BY joined_at
	`, walkID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []Participant
	for rows.Next() {
		var p Participant
		if err := rows.Scan(&p.WalkID, &p.UserID, &p.DogID, &p.Status, &p.JoinedAt, &p.LeftAt); err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	return participants, nil
}

// ListForUser returns schedules where the user is organizer or partner,
// optionally narrowed by status and to upcoming walks only.
func (s *Service) ListForUser(ctx context.Context, userID string, f Filters) ([]Schedule, error) {
	query := selectSchedule + ` WHERE (organizer_id=$1 OR partner_id=$1)`
	args := []any{userID}

	if f.Status != "" {
		args = append(args, f.Status)
		query += ` AND status=$2`
	}
	if f.UpcomingOnly {
		now := s.now()
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		args = append(args, today, now.Format("15:04"))
		n := len(args)
		query += ` AND (scheduled_date > $` + strconv.Itoa(n-1) + ` OR (scheduled_date = $` + strconv.Itoa(n-1) + ` AND start_time >= $` + strconv.Itoa(n) + `))`
	}
	query += ` ORDER BY scheduled_date, start_time`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedules []Schedule
	for rows.Next() {
		sch, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, sch)
	}
	return schedules, nil
}

const selectSchedule = `
	SELECT id, organizer_id, COALESCE(partner_id,''), title, scheduled_date, start_time, COALESCE(duration_min,0), location_name, max_participants, is_group_walk, status, reminder_sent, created_at
	FROM walk_schedules`

func scanSchedule(row pgx.Row) (Schedule, error) {
	var sch Schedule
	err := row.Scan(&sch.ID, &sch.OrganizerID, &sch.PartnerID, &sch.Title, &sch.ScheduledDate, &sch.StartTime,
		&sch.DurationMin, &sch.LocationName, &sch.MaxParticipants, &sch.IsGroupWalk, &sch.Status, &sch.ReminderSent, &sch.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Schedule{}, ErrNotFound
	}
	if err != nil {
		return Schedule{}, err
	}
	return sch, nil
}

// publish fans the mutation out to everyone with a stake in the schedule:
// organizer, partner, and the acting user.
func (s *Service) publish(eventType, actorID string, sch Schedule) {
	if s.hub == nil {
		return
	}

	payload, err := json.Marshal(Event{Type: eventType, ActorID: actorID, Schedule: sch})
	if err != nil {
		return
	}

	seen := map[string]struct{}{}
	var recipients []string
	for _, id := range []string{sch.OrganizerID, sch.PartnerID, actorID} {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		recipients = append(recipients, id)
	}
	s.hub.Publish(recipients, payload)
}
