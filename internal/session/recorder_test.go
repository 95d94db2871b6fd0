package session

import (
	"errors"
	"testing"
	"time"

	"backend-pawmates/internal/walk"
)

func TestRecorderLifecycle(t *testing.T) {
	rec := NewRecorder()
	origin := walk.Point{Lat: 0, Lng: 0, RecordedAt: time.Now()}

	id, err := rec.Start("user-1", "dog-1", "", &origin)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if id == "" {
		t.Fatalf("expected session id")
	}

	if _, err := rec.Record(id, walk.Point{Lat: 0.0001, RecordedAt: time.Now()}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := rec.Pause(id); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := rec.Resume(id); err != nil {
		t.Fatalf("resume: %v", err)
	}
	snap, err := rec.Snapshot(id)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.State != StateActive {
		t.Fatalf("expected active snapshot, got %q", snap.State)
	}

	sess, err := rec.Stop(id)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if sess.ID != id {
		t.Fatalf("expected session id %q, got %q", id, sess.ID)
	}

	// once stopped the id is gone from the registry
	if _, err := rec.Snapshot(id); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected not found after stop, got %v", err)
	}
	if _, err := rec.Stop(id); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected not found on double stop, got %v", err)
	}
}

func TestRecorderUnknownSession(t *testing.T) {
	rec := NewRecorder()

	if _, err := rec.Record("nope", walk.Point{}); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := rec.Pause("nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := rec.Resume("nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRecorderStartWithoutFix(t *testing.T) {
	rec := NewRecorder()
	if _, err := rec.Start("user-1", "", "", nil); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
}

func TestRecorderIndependentSessions(t *testing.T) {
	rec := NewRecorder()
	origin := walk.Point{Lat: 0, Lng: 0, RecordedAt: time.Now()}

	a, _ := rec.Start("user-1", "", "", &origin)
	b, _ := rec.Start("user-2", "", "", &origin)

	if err := rec.Pause(a); err != nil {
		t.Fatalf("pause: %v", err)
	}
	snapB, err := rec.Snapshot(b)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snapB.State != StateActive {
		t.Fatalf("pausing one session must not touch another")
	}
}
