// Package auth issues and verifies session credentials.
//
// Access tokens are opaque server-side handles with a short TTL. The
// refresh credential is a separate opaque token delivered as an HTTP-only
// cookie, stored at rest only as a SHA-256 hash, and rotated on every
// use: presenting a refresh token revokes it and issues a replacement.
package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"time"

	"resume-tailor/internal/domain"

	"github.com/google/uuid"
)

var (
	// ErrInvalidCredentials covers unknown emails and wrong passwords; the
	// two are deliberately indistinguishable to callers.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidRefreshToken covers missing, unknown, revoked, and expired
	// refresh tokens.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// ErrInvalidAccessToken is returned for unknown or expired bearer tokens.
	ErrInvalidAccessToken = errors.New("invalid access token")
)

// UserStore is the persistence the auth service needs for accounts.
type UserStore interface {
	UserByEmail(ctx context.Context, email string) (*domain.User, error)
	UserByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// RefreshStore persists refresh tokens by hash.
type RefreshStore interface {
	SaveRefreshToken(ctx context.Context, t *domain.RefreshToken) error
	RefreshTokenByHash(ctx context.Context, hash string) (*domain.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, hash string) error
}

// Service issues access and refresh tokens. Access tokens live in memory
// only; restarting the server invalidates them, which the refresh flow
// recovers from transparently.
type Service struct {
	users      UserStore
	refresh    RefreshStore
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time

	mu       sync.Mutex
	sessions map[string]session
}

type session struct {
	userID    uuid.UUID
	expiresAt time.Time
}

// NewService creates an auth service. Zero TTLs default to 15 minutes for
// access tokens and 7 days for refresh tokens, matching the original
// deployment.
func NewService(users UserStore, refresh RefreshStore, accessTTL, refreshTTL time.Duration) *Service {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &Service{
		users:      users,
		refresh:    refresh,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
		sessions:   make(map[string]session),
	}
}

// HashToken is the at-rest form of any opaque credential.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Tokens is the pair produced by login and refresh. RefreshToken is the
// raw value destined for the HTTP-only cookie; it is never stored as-is.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
}

// Login verifies credentials and opens a session.
func (s *Service) Login(ctx context.Context, email, password string) (*Tokens, error) {
	user, err := s.users.UserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil || user == nil {
		return nil, ErrInvalidCredentials
	}
	digest := HashToken(password)
	if subtle.ConstantTimeCompare([]byte(digest), []byte(user.PasswordDigest)) != 1 {
		return nil, ErrInvalidCredentials
	}
	return s.openSession(ctx, user.ID)
}

// Refresh rotates the refresh token and issues a new access token. The
// presented token is revoked whether or not it was still valid.
func (s *Service) Refresh(ctx context.Context, rawRefresh string) (*Tokens, error) {
	if rawRefresh == "" {
		return nil, ErrInvalidRefreshToken
	}
	hash := HashToken(rawRefresh)
	rec, err := s.refresh.RefreshTokenByHash(ctx, hash)
	if err != nil || rec == nil {
		return nil, ErrInvalidRefreshToken
	}
	if rec.Revoked || s.now().After(rec.ExpiresAt) {
		return nil, ErrInvalidRefreshToken
	}
	if err := s.refresh.RevokeRefreshToken(ctx, hash); err != nil {
		return nil, err
	}
	return s.openSession(ctx, rec.UserID)
}

// Logout revokes the refresh token and the access token, closing the
// session. Unknown tokens are ignored; logout never fails loudly.
func (s *Service) Logout(ctx context.Context, rawRefresh, accessToken string) {
	if rawRefresh != "" {
		_ = s.refresh.RevokeRefreshToken(ctx, HashToken(rawRefresh))
	}
	if accessToken != "" {
		s.mu.Lock()
		delete(s.sessions, HashToken(accessToken))
		s.mu.Unlock()
	}
}

// Authenticate resolves a bearer token to its user.
func (s *Service) Authenticate(accessToken string) (uuid.UUID, error) {
	if accessToken == "" {
		return uuid.Nil, ErrInvalidAccessToken
	}
	key := HashToken(accessToken)

	s.mu.Lock()
	sess, ok := s.sessions[key]
	if ok && s.now().After(sess.expiresAt) {
		delete(s.sessions, key)
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		return uuid.Nil, ErrInvalidAccessToken
	}
	return sess.userID, nil
}

func (s *Service) openSession(ctx context.Context, userID uuid.UUID) (*Tokens, error) {
	access := uuid.NewString() + uuid.NewString()
	rawRefresh := uuid.NewString() + uuid.NewString()

	rec := &domain.RefreshToken{
		ID:        uuid.New(),
		UserID:    userID,
		TokenHash: HashToken(rawRefresh),
		ExpiresAt: s.now().Add(s.refreshTTL),
		CreatedAt: s.now(),
	}
	if err := s.refresh.SaveRefreshToken(ctx, rec); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.sessions[HashToken(access)] = session{userID: userID, expiresAt: s.now().Add(s.accessTTL)}
	s.mu.Unlock()

	return &Tokens{
		AccessToken:  access,
		RefreshToken: rawRefresh,
		ExpiresIn:    int(s.accessTTL / time.Second),
	}, nil
}
