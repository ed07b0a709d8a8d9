package ports

import (
	"context"

	"github.com/telcexam/exam-platform/internal/core/domain"
)

// LoginInput is the DTO passed from the transport layer to AuthService.Login.
type LoginInput struct {
	Username  string
	Password  string
	IPAddress string
	UserAgent string
}

// Authenticator resolves a token to a live session, renewing it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.Session, error)
}

// AuthService drives the session state machine:
// Anonymous -> Authenticated -> (Expired | LoggedOut).
type AuthService interface {
	Authenticator
	Login(ctx context.Context, in LoginInput) (*domain.LoginResult, error)
	CheckSession(ctx context.Context, token string) (*domain.SessionStatus, error)
	Logout(ctx context.Context, token string) error
	ChangePassword(ctx context.Context, token, current, next string) error
	SessionPolicy() domain.SessionPolicy
}
