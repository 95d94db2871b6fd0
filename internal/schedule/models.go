package schedule

import "time"

const (
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

const (
	ParticipantJoined = "joined"
	ParticipantLeft   = "left"
)

// Event types published on every successful schedule mutation.
const (
	EventCreated   = "schedule_created"
	EventUpdated   = "schedule_updated"
	EventCancelled = "schedule_cancelled"
	EventCompleted = "schedule_completed"
)

// Schedule is a planned future walk, distinct from a recorded session.
// completed and cancelled are terminal states.
type Schedule struct {
	ID              string    `json:"id"`
	OrganizerID     string    `json:"organizer_id"`
	PartnerID       string    `json:"partner_id,omitempty"`
	Title           string    `json:"title"`
	ScheduledDate   time.Time `json:"scheduled_date"`
	StartTime       string    `json:"start_time"` // "15:04"
	DurationMin     int       `json:"duration_min,omitempty"`
	LocationName    string    `json:"location_name"`
	MaxParticipants int       `json:"max_participants"`
	IsGroupWalk     bool      `json:"is_group_walk"`
	Status          string    `json:"status"`
	ReminderSent    bool      `json:"reminder_sent"`
	CreatedAt       time.Time `json:"created_at"`
}

// Participant is one row per (walk, user). Leaving flips status rather
// than deleting, so a re-join reuses the row.
type Participant struct {
	WalkID   string     `json:"walk_id"`
	UserID   string     `json:"user_id"`
	DogID    string     `json:"dog_id,omitempty"`
	Status   string     `json:"status"`
	JoinedAt time.Time  `json:"joined_at"`
	LeftAt   *time.Time `json:"left_at,omitempty"`
}

// Event is the payload fanned out to subscribed clients on every mutation.
type Event struct {
	Type     string   `json:"type"`
	ActorID  string   `json:"actor_id"`
	Schedule Schedule `json:"schedule"`
}

// Filters narrows ListForUser results.
type Filters struct {
	Status       string
	UpcomingOnly bool
}
