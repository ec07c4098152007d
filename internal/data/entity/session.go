package entity

import (
	"time"

	"github.com/google/uuid"
)

// Session is a bearer session issued by the auth service. The booking core
// only reads it.
type Session struct {
	BaseSimple
	UserID    uuid.UUID  `db:"user_id"`
	Token     uuid.UUID  `db:"token"`
	UserAgent *string    `db:"user_agent"`
	IPAddress *string    `db:"ip_address"`
	ExpiresAt time.Time  `db:"expires_at"`
	RevokedAt *time.Time `db:"revoked_at"`
}

// ActiveAt reports whether the session can authenticate a request at t.
func (s *Session) ActiveAt(t time.Time) bool {
	return s.RevokedAt == nil && s.ExpiresAt.After(t)
}
