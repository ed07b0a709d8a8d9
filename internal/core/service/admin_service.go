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

// AdminService backs the admin panel's user and settings endpoints.
type AdminService struct {
	users    ports.UserRepository
	creds    ports.CredentialStore
	sessions ports.SessionStore
	settings *SettingsService
	log      zerolog.Logger
}

func NewAdminService(users ports.UserRepository, creds ports.CredentialStore, sessions ports.SessionStore, settings *SettingsService, log zerolog.Logger) *AdminService {
	return &AdminService{users: users, creds: creds, sessions: sessions, settings: settings, log: log}
}

func (s *AdminService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *AdminService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.users.FindByID(ctx, id)
}

func (s *AdminService) CreateUser(ctx context.Context, in domain.NewUser) (*domain.User, error) {
	user, err := s.creds.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", user.ID).Str("username", user.Username).Str("role", string(user.Role)).Msg("user created")
	return user, nil
}

// UpdateUser edits an account. Deactivating a user or changing their role
// ends their sessions, which carry a copy of the role.
func (s *AdminService) UpdateUser(ctx context.Context, id string, up domain.UserUpdate) (*domain.User, error) {
	if up.Role != nil && !up.Role.Valid() {
		return nil, domain.NewValidationError("role", "must be one of: admin student")
	}
	if up.Email != nil {
		email := strings.TrimSpace(*up.Email)
		up.Email = &email
	}

	before, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user, err := s.users.Update(ctx, id, up)
	if err != nil {
		if errors.Is(err, domain.ErrUserExists) || errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update user: %w", err)
	}

	n := 0
	if up.RevokesSessions(before) {
		if n, err = s.sessions.DestroyUser(ctx, id, ""); err != nil {
			return nil, fmt.Errorf("revoke sessions: %w", err)
		}
	}
	s.log.Info().
		Str("user_id", id).
		Str("role", string(user.Role)).
		Bool("is_active", user.IsActive).
		Int("revoked", n).
		Msg("user updated")
	return user, nil
}

// DeleteUser removes an account and its sessions.
func (s *AdminService) DeleteUser(ctx context.Context, actorID, id string) error {
	if actorID == id {
		return domain.ErrDeleteSelf
	}
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return err
		}
		return fmt.Errorf("delete user: %w", err)
	}
	n, err := s.sessions.DestroyUser(ctx, id, "")
	if err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	s.log.Info().Str("user_id", id).Str("deleted_by", actorID).Int("revoked", n).Msg("user deleted")
	return nil
}

// ResetPassword sets a new password and signs the user out everywhere.
func (s *AdminService) ResetPassword(ctx context.Context, userID, next string) error {
	if err := s.creds.ResetPassword(ctx, userID, next); err != nil {
		return err
	}
	n, err := s.sessions.DestroyUser(ctx, userID, "")
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("failed to revoke sessions after password reset")
	}
	s.log.Info().Str("user_id", userID).Int("revoked", n).Msg("password reset")
	return nil
}

// RevokeUserSessions signs a user out of every device.
func (s *AdminService) RevokeUserSessions(ctx context.Context, userID string) (int, error) {
	if _, err := s.creds.FindByID(ctx, userID); err != nil {
		return 0, err
	}
	n, err := s.sessions.DestroyUser(ctx, userID, "")
	if err != nil {
		return 0, fmt.Errorf("revoke sessions: %w", err)
	}
	s.log.Info().Str("user_id", userID).Int("revoked", n).Msg("sessions revoked")
	return n, nil
}

func (s *AdminService) ListSettings(ctx context.Context) ([]domain.Setting, error) {
	return s.settings.List(ctx)
}

func (s *AdminService) GetSetting(ctx context.Context, key string) (*domain.Setting, error) {
	return s.settings.Get(ctx, key)
}

func (s *AdminService) UpdateSetting(ctx context.Context, key, value string) (*domain.Setting, error) {
	return s.settings.Update(ctx, key, value)
}
