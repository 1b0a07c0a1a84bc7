package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"resume-tailor/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// UsersRepo persists accounts, profiles and refresh tokens in Postgres.
// It satisfies auth.UserStore and auth.RefreshStore.
type UsersRepo struct {
	pool *pgxpool.Pool
}

func NewUsersRepo(pool *pgxpool.Pool) *UsersRepo {
	return &UsersRepo{pool: pool}
}

func (r *UsersRepo) SaveUser(ctx context.Context, u *domain.User) error {
	profB, _ := json.Marshal(u.Profile)
	u.UpdatedAt = time.Now()
	_, err := r.pool.Exec(ctx, `INSERT INTO users (id, email, password_digest, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, password_digest = EXCLUDED.password_digest, updated_at = EXCLUDED.updated_at`,
		u.ID, u.Email, u.PasswordDigest, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	_, err = r.pool.Exec(ctx, `INSERT INTO profiles (user_id, document, updated_at)
		VALUES ($1,$2,$3)
		ON CONFLICT (user_id) DO UPDATE SET document = EXCLUDED.document, updated_at = EXCLUDED.updated_at`,
		u.ID, profB, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

func (r *UsersRepo) UserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.loadUser(ctx, `WHERE u.email = $1`, email)
}

func (r *UsersRepo) UserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.loadUser(ctx, `WHERE u.id = $1`, id)
}

func (r *UsersRepo) loadUser(ctx context.Context, where string, arg interface{}) (*domain.User, error) {
	u := &domain.User{}
	var profB []byte
	err := r.pool.QueryRow(ctx, `SELECT u.id, u.email, u.password_digest, u.created_at, u.updated_at, coalesce(p.document, '{}')
		FROM users u LEFT JOIN profiles p ON p.user_id = u.id `+where, arg).
		Scan(&u.ID, &u.Email, &u.PasswordDigest, &u.CreatedAt, &u.UpdatedAt, &profB)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	_ = json.Unmarshal(profB, &u.Profile)
	return u, nil
}

// UpdateProfile replaces the user's profile document.
func (r *UsersRepo) UpdateProfile(ctx context.Context, userID uuid.UUID, profile map[string]interface{}) error {
	profB, _ := json.Marshal(profile)
	_, err := r.pool.Exec(ctx, `INSERT INTO profiles (user_id, document, updated_at)
		VALUES ($1,$2,$3)
		ON CONFLICT (user_id) DO UPDATE SET document = EXCLUDED.document, updated_at = EXCLUDED.updated_at`,
		userID, profB, time.Now())
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

func (r *UsersRepo) SaveRefreshToken(ctx context.Context, t *domain.RefreshToken) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, revoked, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		t.ID, t.UserID, t.TokenHash, t.ExpiresAt, t.Revoked, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}
	return nil
}

func (r *UsersRepo) RefreshTokenByHash(ctx context.Context, hash string) (*domain.RefreshToken, error) {
	t := &domain.RefreshToken{}
	err := r.pool.QueryRow(ctx, `SELECT id, user_id, token_hash, expires_at, revoked, created_at
		FROM refresh_tokens WHERE token_hash = $1`, hash).
		Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.Revoked, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load refresh token: %w", err)
	}
	return t, nil
}

func (r *UsersRepo) RevokeRefreshToken(ctx context.Context, hash string) error {
	_, err := r.pool.Exec(ctx, `UPDATE refresh_tokens SET revoked = true WHERE token_hash = $1`, hash)
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}
