package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/telcexam/exam-platform/internal/core/domain"
	"github.com/telcexam/exam-platform/internal/core/ports"
)

// bcrypt ignores input past 72 bytes; longer passwords are rejected instead.
const maxPasswordBytes = 72

// CredentialService verifies and hashes passwords on top of a UserRepository.
type CredentialService struct {
	repo      ports.UserRepository
	cost      int
	dummyHash []byte
	now       func() time.Time
	log       zerolog.Logger
}

// NewCredentialService returns a CredentialService hashing with the given
// bcrypt cost. Costs outside bcrypt's range fall back to bcrypt.DefaultCost.
func NewCredentialService(repo ports.UserRepository, cost int, log zerolog.Logger) *CredentialService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	// Compared against when the username is unknown so both failure paths
	// spend the same bcrypt time.
	dummy, err := bcrypt.GenerateFromPassword([]byte("unknown-user-placeholder"), cost)
	if err != nil {
		log.Warn().Err(err).Msg("failed to build placeholder hash")
	}
	return &CredentialService{
		repo:      repo,
		cost:      cost,
		dummyHash: dummy,
		now:       time.Now,
		log:       log,
	}
}

// Verify returns the active user matching username and password. Unknown
// users, inactive users and wrong passwords all yield domain.ErrInvalidCredentials.
// A successful match stamps the user's last login time.
func (s *CredentialService) Verify(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := s.repo.FindActiveByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("verify credentials: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}

	now := s.now().UTC()
	if err := s.repo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("failed to update last login")
	} else {
		user.LastLogin = &now
	}
	return user, nil
}

// Create hashes the password and stores a new user. Role defaults to student.
func (s *CredentialService) Create(ctx context.Context, in domain.NewUser) (*domain.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, domain.NewValidationError("username", "is required")
	}
	if err := validatePassword("password", in.Password); err != nil {
		return nil, err
	}

	role := in.Role
	if role == "" {
		role = domain.RoleStudent
	}
	if !role.Valid() {
		return nil, domain.NewValidationError("role", "must be one of: admin student")
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: hash,
		Role:         role,
		FullName:     in.FullName,
		IsActive:     true,
		CreatedAt:    s.now().UTC(),
	}

	created, err := s.repo.Insert(ctx, user)
	if err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

// ChangePassword replaces the password of userID after re-checking current.
func (s *CredentialService) ChangePassword(ctx context.Context, userID, current, next string) error {
	if current == "" {
		return domain.NewValidationError("currentPassword", "is required")
	}
	if err := validatePassword("newPassword", next); err != nil {
		return err
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)) != nil {
		return domain.ErrIncorrectPassword
	}

	return s.setPassword(ctx, user.ID, next)
}

// ResetPassword replaces the password of userID without the current one.
func (s *CredentialService) ResetPassword(ctx context.Context, userID, next string) error {
	if err := validatePassword("newPassword", next); err != nil {
		return err
	}
	if _, err := s.repo.FindByID(ctx, userID); err != nil {
		return err
	}
	return s.setPassword(ctx, userID, next)
}

// FindByID returns the user with the given id, active or not.
func (s *CredentialService) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *CredentialService) setPassword(ctx context.Context, userID, password string) error {
	hash, err := s.hash(password)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (s *CredentialService) hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

func validatePassword(field, password string) error {
	switch {
	case password == "":
		return domain.NewValidationError(field, "is required")
	case utf8.RuneCountInString(password) < domain.MinPasswordLength:
		return domain.NewValidationError(field, fmt.Sprintf("must be at least %d characters", domain.MinPasswordLength))
	case len(password) > maxPasswordBytes:
		return domain.NewValidationError(field, fmt.Sprintf("must be at most %d bytes", maxPasswordBytes))
	}
	return nil
}
