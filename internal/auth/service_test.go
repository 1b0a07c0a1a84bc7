package auth

import (
	"context"
	"testing"
	"time"

	"resume-tailor/internal/adapter/repository"
	"resume-tailor/internal/domain"

	"github.com/google/uuid"
)

func newTestService(t *testing.T) (*Service, *repository.MemoryStore, uuid.UUID) {
	t.Helper()
	store := repository.NewMemoryStore()
	uid := uuid.New()
	err := store.SaveUser(context.Background(), &domain.User{
		ID:             uid,
		Email:          "dev@example.com",
		PasswordDigest: HashToken("hunter2"),
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return NewService(store, store, 15*time.Minute, 7*24*time.Hour), store, uid
}

func TestLoginIssuesWorkingTokens(t *testing.T) {
	svc, _, uid := newTestService(t)

	tokens, err := svc.Login(context.Background(), "Dev@Example.com ", "hunter2")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatal("expected both tokens to be issued")
	}
	if tokens.ExpiresIn != int((15 * time.Minute).Seconds()) {
		t.Errorf("ExpiresIn = %d, want 900", tokens.ExpiresIn)
	}

	got, err := svc.Authenticate(tokens.AccessToken)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got != uid {
		t.Errorf("authenticated user = %s, want %s", got, uid)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _, _ := newTestService(t)

	if _, err := svc.Login(context.Background(), "dev@example.com", "wrong"); err != ErrInvalidCredentials {
		t.Errorf("err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Login(context.Background(), "nobody@example.com", "hunter2"); err != ErrInvalidCredentials {
		t.Errorf("unknown email err = %v, want ErrInvalidCredentials", err)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, _, uid := newTestService(t)

	first, err := svc.Login(context.Background(), "dev@example.com", "hunter2")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	second, err := svc.Refresh(context.Background(), first.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Error("refresh token was not rotated")
	}
	if got, err := svc.Authenticate(second.AccessToken); err != nil || got != uid {
		t.Errorf("new access token invalid: %v", err)
	}

	// the presented token is single-use
	if _, err := svc.Refresh(context.Background(), first.RefreshToken); err != ErrInvalidRefreshToken {
		t.Errorf("reused token err = %v, want ErrInvalidRefreshToken", err)
	}
}

func TestRefreshUnknownToken(t *testing.T) {
	svc, _, _ := newTestService(t)

	if _, err := svc.Refresh(context.Background(), "never-issued"); err != ErrInvalidRefreshToken {
		t.Errorf("err = %v, want ErrInvalidRefreshToken", err)
	}
	if _, err := svc.Refresh(context.Background(), ""); err != ErrInvalidRefreshToken {
		t.Errorf("empty token err = %v, want ErrInvalidRefreshToken", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	svc, _, _ := newTestService(t)

	tokens, err := svc.Login(context.Background(), "dev@example.com", "hunter2")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	svc.Logout(context.Background(), tokens.RefreshToken, tokens.AccessToken)

	if _, err := svc.Authenticate(tokens.AccessToken); err != ErrInvalidAccessToken {
		t.Errorf("access token after logout: err = %v, want ErrInvalidAccessToken", err)
	}
	if _, err := svc.Refresh(context.Background(), tokens.RefreshToken); err != ErrInvalidRefreshToken {
		t.Errorf("refresh token after logout: err = %v, want ErrInvalidRefreshToken", err)
	}
}

func TestAccessTokenExpires(t *testing.T) {
	svc, _, _ := newTestService(t)

	now := time.Now()
	svc.now = func() time.Time { return now }

	tokens, err := svc.Login(context.Background(), "dev@example.com", "hunter2")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := svc.Authenticate(tokens.AccessToken); err != nil {
		t.Fatalf("fresh token rejected: %v", err)
	}

	now = now.Add(16 * time.Minute)
	if _, err := svc.Authenticate(tokens.AccessToken); err != ErrInvalidAccessToken {
		t.Errorf("expired token err = %v, want ErrInvalidAccessToken", err)
	}
}

func TestRefreshTokenExpires(t *testing.T) {
	svc, _, _ := newTestService(t)

	now := time.Now()
	svc.now = func() time.Time { return now }

	tokens, err := svc.Login(context.Background(), "dev@example.com", "hunter2")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	now = now.Add(8 * 24 * time.Hour)
	if _, err := svc.Refresh(context.Background(), tokens.RefreshToken); err != ErrInvalidRefreshToken {
		t.Errorf("expired refresh err = %v, want ErrInvalidRefreshToken", err)
	}
}
