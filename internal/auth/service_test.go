package auth

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v2"
	"golang.org/x/crypto/bcrypt"
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

var userColumns = []string{
	"id", "email", "username", "password_hash", "display_name", "avatar_url", "created_at", "updated_at",
}

func TestRegister(t *testing.T) {
	mock := newMock(t)
	svc := NewService("test-secret", mock)
	now := time.Now()

	mock.ExpectQuery("INSERT INTO users").
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectExec("INSERT INTO refresh_tokens").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	user, tokens, err := svc.Register(context.Background(), RegisterRequest{
		Email:       "ada@example.com",
		Username:    "ada",
		Password:    "hunter2000",
		DisplayName: "Ada",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.ID == "" || user.Email != "ada@example.com" {
		t.Fatalf("unexpected user: %+v", user)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" || tokens.TokenType != "Bearer" {
		t.Fatalf("unexpected tokens: %+v", tokens)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := NewService("test-secret", newMock(t))

	cases := []RegisterRequest{
		{},
		{Email: "ada@example.com", Username: "ada"},
		{Email: "ada@example.com", Password: "hunter2000"},
		{Username: "ada", Password: "hunter2000"},
	}
	for i, req := range cases {
		if _, _, err := svc.Register(context.Background(), req); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}

func TestLogin(t *testing.T) {
	mock := newMock(t)
	svc := NewService("test-secret", mock)
	now := time.Now()

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2000"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	mock.ExpectQuery("SELECT id, email, username").
		WithArgs("ada@example.com").
		WillReturnRows(pgxmock.NewRows(userColumns).
			AddRow("user-1", "ada@example.com", "ada", string(hash), "Ada", "", now, now))
	mock.ExpectExec("INSERT INTO refresh_tokens").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	user, tokens, err := svc.Login(context.Background(), LoginRequest{Email: "ada@example.com", Password: "hunter2000"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.ID != "user-1" || tokens.AccessToken == "" {
		t.Fatalf("unexpected login result")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	mock := newMock(t)
	svc := NewService("test-secret", mock)
	now := time.Now()

	hash, _ := bcrypt.GenerateFromPassword([]byte("hunter2000"), bcrypt.MinCost)
	mock.ExpectQuery("SELECT id, email, username").
		WillReturnRows(pgxmock.NewRows(userColumns).
			AddRow("user-1", "ada@example.com", "ada", string(hash), "", "", now, now))

	if _, _, err := svc.Login(context.Background(), LoginRequest{Email: "ada@example.com", Password: "wrong"}); err == nil {
		t.Fatalf("expected invalid credentials")
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	mock := newMock(t)
	svc := NewService("test-secret", mock)

	mock.ExpectExec("INSERT INTO refresh_tokens").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tokens, err := svc.GenerateTokens(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	userID, err := svc.ValidateAccessToken(tokens.AccessToken)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if userID != "user-1" {
		t.Fatalf("expected user-1, got %q", userID)
	}
}

func TestValidateAccessTokenWrongSecret(t *testing.T) {
	mock := newMock(t)
	svc := NewService("test-secret", mock)

	mock.ExpectExec("INSERT INTO refresh_tokens").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tokens, err := svc.GenerateTokens(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	other := NewService("other-secret", mock)
	if _, err := other.ValidateAccessToken(tokens.AccessToken); err == nil {
		t.Fatalf("expected signature failure")
	}
}

func TestValidateRefreshToken(t *testing.T) {
	mock := newMock(t)
	svc := NewService("test-secret", mock)

	mock.ExpectExec("INSERT INTO refresh_tokens").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tokens, err := svc.GenerateTokens(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	mock.ExpectQuery("SELECT user_id, expires_at").
		WithArgs(tokens.RefreshToken).
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "expires_at"}).
			AddRow("user-1", time.Now().Add(time.Hour)))

	userID, err := svc.ValidateRefreshToken(context.Background(), tokens.RefreshToken)
	if err != nil {
		t.Fatalf("validate refresh: %v", err)
	}
	if userID != "user-1" {
		t.Fatalf("expected user-1, got %q", userID)
	}
}

func TestValidateRefreshTokenExpiredRow(t *testing.T) {
	mock := newMock(t)
	svc := NewService("test-secret", mock)

	mock.ExpectExec("INSERT INTO refresh_tokens").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tokens, err := svc.GenerateTokens(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	mock.ExpectQuery("SELECT user_id, expires_at").
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "expires_at"}).
			AddRow("user-1", time.Now().Add(-time.Hour)))

	if _, err := svc.ValidateRefreshToken(context.Background(), tokens.RefreshToken); err == nil {
		t.Fatalf("expected expired refresh token to fail")
	}
}
