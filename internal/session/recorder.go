package session

import (
	"errors"
	"sync"

	"backend-pawmates/internal/walk"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("session not found")

// Recorder tracks the active builders by session id. The mutex only guards
// the registry; samples for a single session arrive serially from its
// location stream.
type Recorder struct {
	mu     sync.Mutex
	active map[string]*Builder
}

func NewRecorder() *Recorder {
	return &Recorder{active: map[string]*Builder{}}
}

func (r *Recorder) Start(userID, dogID, scheduleID string, origin *walk.Point) (string, error) {
	b := NewBuilder(userID, dogID, scheduleID)
	if err := b.Start(origin); err != nil {
		return "", err
	}

	id := uuid.NewString()
	r.mu.Lock()
	r.active[id] = b
	r.mu.Unlock()
	return id, nil
}

func (r *Recorder) Record(id string, p walk.Point) (bool, error) {
	b, err := r.get(id)
	if err != nil {
		return false, err
	}
	return b.Record(p)
}

func (r *Recorder) Pause(id string) error {
	b, err := r.get(id)
	if err != nil {
		return err
	}
	return b.Pause()
}

func (r *Recorder) Resume(id string) error {
	b, err := r.get(id)
	if err != nil {
		return err
	}
	return b.Resume()
}

func (r *Recorder) Snapshot(id string) (Snapshot, error) {
	b, err := r.get(id)
	if err != nil {
		return Snapshot{}, err
	}
	return b.Snapshot(), nil
}

// Stop removes the session from the registry and returns the completed
// walk; further samples for the id are rejected immediately.
func (r *Recorder) Stop(id string) (walk.Session, error) {
	r.mu.Lock()
	b, ok := r.active[id]
	if ok {
		delete(r.active, id)
	}
	r.mu.Unlock()

	if !ok {
		return walk.Session{}, ErrSessionNotFound
	}
	sess, err := b.Stop()
	if err != nil {
		return walk.Session{}, err
	}
	sess.ID = id
	return sess, nil
}

func (r *Recorder) get(id string) (*Builder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.active[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return b, nil
}
