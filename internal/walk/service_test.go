package walk

import (
	"context"
	"errors"
	"testing"
	"time"

	"backend-pawmates/internal/stats"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v2"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

type stubAggregator struct {
	err     error
	calls   int
	userID  string
	metrics stats.Metrics
}

func (a *stubAggregator) ApplyWalk(_ context.Context, userID string, m stats.Metrics, _ time.Time) error {
	a.calls++
	a.userID = userID
	a.metrics = m
	return a.err
}

var sessionColumns = []string{
	"id", "user_id", "dog_id", "schedule_id", "started_at", "ended_at",
	"duration_min", "distance_km", "steps", "calories", "notes", "completed", "created_at",
}

func TestSubmitWalkPersistsAndAggregates(t *testing.T) {
	mock := newMock(t)
	agg := &stubAggregator{}
	svc := NewService(mock, agg)

	started := time.Date(2026, 8, 15, 9, 0, 0, 0, time.UTC)
	created := started.Add(35 * time.Minute)

	mock.ExpectQuery("INSERT INTO walk_sessions").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(created))
	mock.ExpectExec("INSERT INTO walk_route_points").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO walk_route_points").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	sess, err := svc.SubmitWalk(context.Background(), Session{
		UserID:      "user-1",
		DogID:       "dog-1",
		StartedAt:   started,
		DurationMin: 32,
		DistanceKm:  2.1,
		Steps:       2800,
		Calories:    105,
		RoutePoints: []Point{
			{Lat: 51.5, Lng: -0.1, RecordedAt: started},
			{Lat: 51.501, Lng: -0.1, RecordedAt: started.Add(time.Minute)},
		},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if sess.ID == "" {
		t.Fatalf("expected generated id")
	}
	if !sess.Completed {
		t.Fatalf("stored session must be completed")
	}
	if !sess.CreatedAt.Equal(created) {
		t.Fatalf("expected created_at from db, got %v", sess.CreatedAt)
	}

	if agg.calls != 1 || agg.userID != "user-1" {
		t.Fatalf("expected one aggregator call for user-1")
	}
	if agg.metrics.DistanceKm != 2.1 || agg.metrics.Steps != 2800 {
		t.Fatalf("unexpected metrics: %+v", agg.metrics)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSubmitWalkSucceedsWhenAggregatorFails(t *testing.T) {
	mock := newMock(t)
	agg := &stubAggregator{err: errors.New("stats down")}
	svc := NewService(mock, agg)

	mock.ExpectQuery("INSERT INTO walk_sessions").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	_, err := svc.SubmitWalk(context.Background(), Session{UserID: "user-1", DurationMin: 20, DistanceKm: 1.5})
	if err != nil {
		t.Fatalf("session write is authoritative, got %v", err)
	}
	if agg.calls != 1 {
		t.Fatalf("aggregator must still be attempted")
	}
}

func TestSubmitWalkValidation(t *testing.T) {
	svc := NewService(newMock(t), nil)

	cases := []Session{
		{},
		{UserID: "user-1", DistanceKm: -1},
		{UserID: "user-1", DurationMin: -5},
	}
	for i, input := range cases {
		if _, err := svc.SubmitWalk(context.Background(), input); !errors.Is(err, ErrInvalidSession) {
			t.Fatalf("case %d: expected invalid session, got %v", i, err)
		}
	}
}

func TestGetWalkNotFound(t *testing.T) {
	mock := newMock(t)
	svc := NewService(mock, nil)

	mock.ExpectQuery("SELECT id, user_id").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	if _, err := svc.GetWalk(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGetWalkIncludesRoute(t *testing.T) {
	mock := newMock(t)
	svc := NewService(mock, nil)
	started := time.Date(2026, 8, 15, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT id, user_id").
		WithArgs("sess-1").
		WillReturnRows(pgxmock.NewRows(sessionColumns).
			AddRow("sess-1", "user-1", "dog-1", "", started, started.Add(30*time.Minute),
				30, 2.0, 2600, 100, "", true, started.Add(30*time.Minute)))
	mock.ExpectQuery("SELECT lat, lng, recorded_at").
		WithArgs("sess-1").
		WillReturnRows(pgxmock.NewRows([]string{"lat", "lng", "recorded_at"}).
			AddRow(51.5, -0.1, started).
			AddRow(51.501, -0.1, started.Add(time.Minute)))

	sess, err := svc.GetWalk(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(sess.RoutePoints) != 2 {
		t.Fatalf("expected 2 route points, got %d", len(sess.RoutePoints))
	}
	if sp := sess.StartPoint(); sp == nil || sp.Lat != 51.5 {
		t.Fatalf("unexpected start point: %+v", sp)
	}
}

func TestListWalksDefaultLimit(t *testing.T) {
	mock := newMock(t)
	svc := NewService(mock, nil)
	started := time.Date(2026, 8, 15, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT id, user_id").
		WithArgs("user-1", 50).
		WillReturnRows(pgxmock.NewRows(sessionColumns).
			AddRow("sess-2", "user-1", "", "", started, started.Add(time.Hour),
				60, 4.0, 5300, 200, "", true, started).
			AddRow("sess-1", "user-1", "", "", started.Add(-24*time.Hour), started.Add(-23*time.Hour),
				60, 3.0, 4000, 150, "", true, started))

	sessions, err := svc.ListWalks(context.Background(), "user-1", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 2 || sessions[0].ID != "sess-2" {
		t.Fatalf("unexpected sessions: %+v", sessions)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
