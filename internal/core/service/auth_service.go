package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/telcexam/exam-platform/internal/core/domain"
	"github.com/telcexam/exam-platform/internal/core/ports"
)

// AuthService implements login, logout, session checks and password change
// on top of a CredentialStore and a SessionStore.
type AuthService struct {
	creds    ports.CredentialStore
	sessions ports.SessionStore
	policy   ports.SessionPolicyProvider
	log      zerolog.Logger

	revokeOnPasswordChange bool
}

// AuthOption customises an AuthService.
type AuthOption func(*AuthService)

// WithRevokeOnPasswordChange controls whether a password change ends the
// user's other sessions. Enabled by default.
func WithRevokeOnPasswordChange(revoke bool) AuthOption {
	return func(s *AuthService) { s.revokeOnPasswordChange = revoke }
}

func NewAuthService(
	creds ports.CredentialStore,
	sessions ports.SessionStore,
	policy ports.SessionPolicyProvider,
	log zerolog.Logger,
	opts ...AuthOption,
) *AuthService {
	s := &AuthService{
		creds:                  creds,
		sessions:               sessions,
		policy:                 policy,
		log:                    log,
		revokeOnPasswordChange: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login verifies the credentials and opens a new session.
func (s *AuthService) Login(ctx context.Context, in ports.LoginInput) (*domain.LoginResult, error) {
	if strings.TrimSpace(in.Username) == "" {
		return nil, domain.NewValidationError("username", "is required")
	}
	if in.Password == "" {
		return nil, domain.NewValidationError("password", "is required")
	}

	user, err := s.creds.Verify(ctx, in.Username, in.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			s.log.Info().Str("username", in.Username).Str("ip", in.IPAddress).Msg("login rejected")
		}
		return nil, err
	}

	sess, err := s.sessions.Create(ctx,
		domain.SessionOwner{UserID: user.ID, Username: user.Username, Role: user.Role},
		domain.SessionMeta{IPAddress: in.IPAddress, UserAgent: in.UserAgent},
	)
	if err != nil {
		return nil, fmt.Errorf("login: create session: %w", err)
	}

	s.log.Info().
		Str("user_id", user.ID).
		Str("role", string(user.Role)).
		Str("ip", in.IPAddress).
		Msg("user logged in")

	return &domain.LoginResult{
		Token:     sess.Token,
		User:      user.Public(),
		ExpiresAt: sess.ExpiresAt,
	}, nil
}

// Authenticate renews the session behind token and returns it. Missing,
// unknown and expired tokens all yield domain.ErrUnauthenticated; expiry
// additionally matches domain.ErrSessionExpired.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.Session, error) {
	if token == "" {
		return nil, domain.ErrUnauthenticated
	}
	sess, err := s.sessions.Touch(ctx, token)
	if err != nil {
		return nil, sessionError("authenticate", err)
	}
	return sess, nil
}

// CheckSession reports who is signed in on token. A missing or expired
// session is a normal negative answer, not an error.
func (s *AuthService) CheckSession(ctx context.Context, token string) (*domain.SessionStatus, error) {
	sess, err := s.Authenticate(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthenticated) {
			return &domain.SessionStatus{}, nil
		}
		return nil, err
	}

	user, err := s.creds.FindByID(ctx, sess.UserID)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		s.endSession(ctx, token, "user no longer exists")
		return &domain.SessionStatus{}, nil
	case err != nil:
		return nil, fmt.Errorf("check session: %w", err)
	case !user.IsActive:
		s.endSession(ctx, token, "user deactivated")
		return &domain.SessionStatus{}, nil
	}

	pub := user.Public()
	return &domain.SessionStatus{
		Authenticated:       true,
		User:                &pub,
		ExpiresAt:           sess.ExpiresAt,
		WarningBeforeLogout: s.policy.SessionPolicy().WarningBeforeLogout,
	}, nil
}

// Logout destroys the session. Logging out twice, or without a token, is
// not an error.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.Destroy(ctx, token); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// ChangePassword changes the password of the user signed in on token. The
// session is resolved without renewal; callers behind the access middleware
// have already renewed it for this request.
func (s *AuthService) ChangePassword(ctx context.Context, token, current, next string) error {
	if token == "" {
		return domain.ErrUnauthenticated
	}
	sess, err := s.sessions.Get(ctx, token)
	if err != nil {
		return sessionError("change password", err)
	}

	if err := s.creds.ChangePassword(ctx, sess.UserID, current, next); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrUnauthenticated
		}
		return err
	}

	s.log.Info().Str("user_id", sess.UserID).Msg("password changed")

	if s.revokeOnPasswordChange {
		n, err := s.sessions.DestroyUser(ctx, sess.UserID, token)
		if err != nil {
			s.log.Warn().Err(err).Str("user_id", sess.UserID).Msg("failed to revoke other sessions")
		} else if n > 0 {
			s.log.Info().Str("user_id", sess.UserID).Int("revoked", n).Msg("other sessions revoked after password change")
		}
	}
	return nil
}

// SessionPolicy exposes the timing currently applied to sessions.
func (s *AuthService) SessionPolicy() domain.SessionPolicy {
	return s.policy.SessionPolicy()
}

func (s *AuthService) endSession(ctx context.Context, token, reason string) {
	if err := s.sessions.Destroy(ctx, token); err != nil {
		s.log.Warn().Err(err).Str("reason", reason).Msg("failed to destroy session")
	}
}

// sessionError folds store lookups into the unauthenticated signal.
func sessionError(op string, err error) error {
	switch {
	case errors.Is(err, domain.ErrSessionExpired):
		return fmt.Errorf("%w: %w", domain.ErrUnauthenticated, domain.ErrSessionExpired)
	case errors.Is(err, domain.ErrSessionNotFound):
		return domain.ErrUnauthenticated
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
