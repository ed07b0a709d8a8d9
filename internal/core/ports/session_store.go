package ports

import (
	"context"

	"github.com/telcexam/exam-platform/internal/core/domain"
)

// SessionStore holds server-side sessions keyed by opaque token.
//
// Implementations must be safe for concurrent use; concurrent Touch calls on
// the same token serialize their read-modify-write.
type SessionStore interface {
	Create(ctx context.Context, owner domain.SessionOwner, meta domain.SessionMeta) (*domain.Session, error)
	// Get returns the session without renewing it. An expired session is
	// removed and reported as domain.ErrSessionExpired.
	Get(ctx context.Context, token string) (*domain.Session, error)
	// Touch renews a valid session (sliding expiration). An expired session
	// is removed and reported as domain.ErrSessionExpired; an unknown token
	// yields domain.ErrSessionNotFound.
	Touch(ctx context.Context, token string) (*domain.Session, error)
	// Destroy is idempotent.
	Destroy(ctx context.Context, token string) error
	// DestroyUser removes every session of userID except keepToken and
	// returns how many were removed.
	DestroyUser(ctx context.Context, userID, keepToken string) (int, error)
}

// SessionPolicyProvider supplies the current session timing. Values may
// change at runtime when an administrator edits the settings.
type SessionPolicyProvider interface {
	SessionPolicy() domain.SessionPolicy
}
