package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/telcexam/exam-platform/internal/core/domain"
)

var testSeed = AdminSeed{
	Username: "admin",
	Password: "admin123",
	Email:    "admin@telc-exam.com",
	FullName: "Administrator",
}

func TestBootstrapper_FreshStore(t *testing.T) {
	users := newStubUserRepo()
	settings := newStubSettingsRepo()
	creds := NewCredentialService(users, bcrypt.MinCost, zerolog.Nop())

	if err := NewBootstrapper(users, creds, settings, zerolog.Nop()).Run(context.Background(), testSeed); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	admin, err := creds.Verify(context.Background(), "admin", "admin123")
	if err != nil {
		t.Fatalf("seeded admin cannot log in: %v", err)
	}
	if admin.Role != domain.RoleAdmin || admin.FullName != "Administrator" {
		t.Fatalf("unexpected admin: %+v", admin)
	}
	if admin.PasswordHash == "admin123" {
		t.Fatalf("password stored in plain text")
	}

	st, err := settings.Get(context.Background(), domain.SettingSessionTimeout)
	if err != nil || st.Value != "900000" {
		t.Fatalf("expected session_timeout 900000, got %+v %v", st, err)
	}
	if len(settings.byKey) != len(domain.DefaultSettings()) {
		t.Fatalf("expected %d settings, got %d", len(domain.DefaultSettings()), len(settings.byKey))
	}
}

func TestBootstrapper_Idempotent(t *testing.T) {
	users := newStubUserRepo()
	settings := newStubSettingsRepo(domain.Setting{Key: domain.SettingSessionTimeout, Value: "60000"})
	creds := NewCredentialService(users, bcrypt.MinCost, zerolog.Nop())
	b := NewBootstrapper(users, creds, settings, zerolog.Nop())

	for i := 0; i < 2; i++ {
		if err := b.Run(context.Background(), testSeed); err != nil {
			t.Fatalf("bootstrap #%d: %v", i+1, err)
		}
	}

	if len(users.byID) != 1 {
		t.Fatalf("expected a single admin, got %d users", len(users.byID))
	}
	if settings.byKey[domain.SettingSessionTimeout].Value != "60000" {
		t.Fatalf("existing settings must not be overwritten")
	}
}

func TestBootstrapper_RepoError(t *testing.T) {
	users := newStubUserRepo()
	users.findErr = errors.New("db down")
	creds := NewCredentialService(users, bcrypt.MinCost, zerolog.Nop())

	err := NewBootstrapper(users, creds, newStubSettingsRepo(), zerolog.Nop()).Run(context.Background(), testSeed)
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestBootstrapper_SeedUsernameTakenByStudent(t *testing.T) {
	users := newStubUserRepo()
	settings := newStubSettingsRepo()
	creds := NewCredentialService(users, bcrypt.MinCost, zerolog.Nop())
	mustCreate(t, creds, domain.NewUser{Username: "admin", Password: "student1"})

	if err := NewBootstrapper(users, creds, settings, zerolog.Nop()).Run(context.Background(), testSeed); err != nil {
		t.Fatalf("bootstrap should continue, got %v", err)
	}

	if len(users.byID) != 1 {
		t.Fatalf("expected the existing account only, got %d users", len(users.byID))
	}
	if _, err := creds.Verify(context.Background(), "admin", "student1"); err != nil {
		t.Fatalf("existing account must be left alone: %v", err)
	}
	if len(settings.byKey) != len(domain.DefaultSettings()) {
		t.Fatalf("default settings should still be stored, got %d", len(settings.byKey))
	}
}
