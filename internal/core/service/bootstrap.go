package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/telcexam/exam-platform/internal/core/domain"
	"github.com/telcexam/exam-platform/internal/core/ports"
)

// AdminSeed describes the administrator created on an empty user store.
type AdminSeed struct {
	Username string
	Password string
	Email    string
	FullName string
}

// Bootstrapper prepares a fresh installation: one administrator and the
// default settings.
type Bootstrapper struct {
	users    ports.UserRepository
	creds    ports.CredentialStore
	settings ports.SettingsRepository
	log      zerolog.Logger
}

func NewBootstrapper(users ports.UserRepository, creds ports.CredentialStore, settings ports.SettingsRepository, log zerolog.Logger) *Bootstrapper {
	return &Bootstrapper{users: users, creds: creds, settings: settings, log: log}
}

// Run is safe to call on every start; existing data is left alone.
func (b *Bootstrapper) Run(ctx context.Context, seed AdminSeed) error {
	hasAdmin, err := b.users.ExistsWithRole(ctx, domain.RoleAdmin)
	if err != nil {
		return fmt.Errorf("bootstrap: check admin: %w", err)
	}
	if !hasAdmin {
		admin, err := b.creds.Create(ctx, domain.NewUser{
			Username: seed.Username,
			Password: seed.Password,
			Email:    seed.Email,
			Role:     domain.RoleAdmin,
			FullName: seed.FullName,
		})
		switch {
		case errors.Is(err, domain.ErrUserExists):
			b.log.Warn().
				Str("username", seed.Username).
				Msg("no admin exists and the seed username is taken by another account, skipping admin seed")
		case err != nil:
			return fmt.Errorf("bootstrap: create admin: %w", err)
		default:
			b.log.Warn().
				Str("username", admin.Username).
				Msg("default admin user created, change the password after first login")
		}
	}

	n, err := b.settings.InsertMissing(ctx, domain.DefaultSettings())
	if err != nil {
		return fmt.Errorf("bootstrap: default settings: %w", err)
	}
	if n > 0 {
		b.log.Info().Int("inserted", n).Msg("default settings stored")
	}
	return nil
}
