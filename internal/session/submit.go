package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"backend-pawmates/internal/walk"

	"github.com/redis/go-redis/v9"
)

// ErrSavedLocally signals that the backend rejected or timed out on the
// submission and the walk was queued locally instead. Callers surface this
// as "saved, sync pending" rather than a hard failure.
var ErrSavedLocally = errors.New("walk saved locally, sync pending")

const defaultSubmitTimeout = 30 * time.Second

// Backend persists completed sessions. In-process this is walk.Service.
type Backend interface {
	SubmitWalk(ctx context.Context, s walk.Session) (walk.Session, error)
}

type Result struct {
	ID     string `json:"id"`
	Synced bool   `json:"synced"`
}

// Submitter pushes completed sessions to the backend, falling back to a
// Redis-backed pending queue plus local-only totals when that fails. There
// is no automatic background retry; Pending exposes the queue for an
// explicit later sync. No dedup key exists, so callers make a single
// authoritative attempt per session.
type Submitter struct {
	backend Backend
	redis   *redis.Client
	timeout time.Duration
}

func NewSubmitter(backend Backend, redisClient *redis.Client, timeout time.Duration) *Submitter {
	if timeout <= 0 {
		timeout = defaultSubmitTimeout
	}
	return &Submitter{backend: backend, redis: redisClient, timeout: timeout}
}

func (s *Submitter) Submit(ctx context.Context, sess walk.Session) (Result, error) {
	// Defensive clamps against degenerate zero-value records.
	if sess.DurationMin < 1 {
		sess.DurationMin = 1
	}
	if sess.DistanceKm < 0.01 {
		sess.DistanceKm = 0.01
	}

	submitCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	stored, err := s.backend.SubmitWalk(submitCtx, sess)
	if err == nil {
		return Result{ID: stored.ID, Synced: true}, nil
	}

	if s.redis == nil {
		return Result{}, err
	}
	if qErr := s.queueLocally(sess); qErr != nil {
		return Result{}, qErr
	}
	return Result{ID: sess.ID, Synced: false}, ErrSavedLocally
}

// queueLocally records the walk in the pending queue and counts it toward
// local-only aggregates. Uses a fresh context: the submit context may
// already be expired.
func (s *Submitter) queueLocally(sess walk.Session) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	payload, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	if err := s.redis.RPush(ctx, pendingKey(sess.UserID), payload).Err(); err != nil {
		return err
	}

	totals := localKey(sess.UserID)
	pipe := s.redis.Pipeline()
	pipe.HIncrBy(ctx, totals, "walks", 1)
	pipe.HIncrByFloat(ctx, totals, "distance_km", sess.DistanceKm)
	pipe.HIncrBy(ctx, totals, "duration_min", int64(sess.DurationMin))
	pipe.HIncrBy(ctx, totals, "steps", int64(sess.Steps))
	_, err = pipe.Exec(ctx)
	return err
}

// Pending returns the locally queued sessions for a user, oldest first.
func (s *Submitter) Pending(ctx context.Context, userID string) ([]walk.Session, error) {
	if s.redis == nil {
		return nil, nil
	}
	raw, err := s.redis.LRange(ctx, pendingKey(userID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	var sessions []walk.Session
	for _, item := range raw {
		var sess walk.Session
		if err := json.Unmarshal([]byte(item), &sess); err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, nil
}

// LocalTotals returns the local-only aggregates kept while walks wait to
// sync.
func (s *Submitter) LocalTotals(ctx context.Context, userID string) (map[string]string, error) {
	if s.redis == nil {
		return nil, nil
	}
	return s.redis.HGetAll(ctx, localKey(userID)).Result()
}

func pendingKey(userID string) string {
	return "pending:walks:" + userID
}

func localKey(userID string) string {
	return "local:stats:" + userID
}
