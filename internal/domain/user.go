package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is an account holder with a professional profile.
type User struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`

	// PasswordDigest is the stored derived value the login credential is
	// compared against. Credential derivation is out of scope here; the
	// digest is opaque to everything but the auth service.
	PasswordDigest string `json:"-"`

	// Profile is the free-form professional profile document.
	Profile map[string]interface{} `json:"profile,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RefreshToken is one rotating refresh credential. Only a SHA-256 hash of
// the raw token is stored; presenting a token revokes it and issues a
// replacement.
type RefreshToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}
