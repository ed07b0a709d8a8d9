package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/telcexam/exam-platform/internal/core/domain"
	"github.com/telcexam/exam-platform/internal/core/ports"
	"github.com/telcexam/exam-platform/internal/infrastructure/db/memory"
)

// ---------------------------------------------------------------------------
// Helper: an AuthService over a real in-memory session store, a fake clock
// and a seeded admin/admin123 plus student sam/secret1.
// ---------------------------------------------------------------------------

type authFixture struct {
	svc       *AuthService
	creds     *CredentialService
	users     *stubUserRepo
	sessions  *memory.SessionStore
	clock     *fakeClock
	adminID   string
	studentID string
}

func newAuthFixture(t *testing.T, policy ports.SessionPolicyProvider, opts ...AuthOption) *authFixture {
	t.Helper()
	users := newStubUserRepo()
	creds := NewCredentialService(users, bcrypt.MinCost, zerolog.Nop())
	clock := newFakeClock()
	sessions := memory.NewSessionStore(policy, zerolog.Nop(), memory.WithClock(clock.Now))

	admin := mustCreate(t, creds, domain.NewUser{Username: "admin", Password: "admin123", Role: domain.RoleAdmin, FullName: "Administrator"})
	student := mustCreate(t, creds, domain.NewUser{Username: "sam", Password: "secret1"})

	return &authFixture{
		svc:       NewAuthService(creds, sessions, policy, zerolog.Nop(), opts...),
		creds:     creds,
		users:     users,
		sessions:  sessions,
		clock:     clock,
		adminID:   admin.ID,
		studentID: student.ID,
	}
}

func (f *authFixture) login(t *testing.T, username, password string) *domain.LoginResult {
	t.Helper()
	res, err := f.svc.Login(context.Background(), ports.LoginInput{Username: username, Password: password, IPAddress: "10.0.0.1"})
	if err != nil {
		t.Fatalf("login %s: %v", username, err)
	}
	return res
}

func TestAuthService_Login_SeedAdmin(t *testing.T) {
	f := newAuthFixture(t, domain.DefaultSessionPolicy())

	res := f.login(t, "admin", "admin123")

	if res.Token == "" {
		t.Fatalf("expected a session token")
	}
	if res.User.Role != domain.RoleAdmin || res.User.Username != "admin" {
		t.Fatalf("unexpected user: %+v", res.User)
	}
	if want := f.clock.Now().Add(domain.DefaultSessionTimeout); !res.ExpiresAt.Equal(want) {
		t.Fatalf("expected expiry %v, got %v", want, res.ExpiresAt)
	}

	sess, err := f.sessions.Get(context.Background(), res.Token)
	if err != nil {
		t.Fatalf("session not stored: %v", err)
	}
	if sess.UserID != f.adminID || sess.IPAddress != "10.0.0.1" {
		t.Fatalf("unexpected session: %+v", sess)
	}
}

func TestAuthService_Login_Rejections(t *testing.T) {
	f := newAuthFixture(t, domain.DefaultSessionPolicy())
	ctx := context.Background()

	if _, err := f.svc.Login(ctx, ports.LoginInput{Password: "x"}); validationField(t, err) != "username" {
		t.Fatalf("expected username validation error")
	}
	if _, err := f.svc.Login(ctx, ports.LoginInput{Username: "admin"}); validationField(t, err) != "password" {
		t.Fatalf("expected password validation error")
	}
	if _, err := f.svc.Login(ctx, ports.LoginInput{Username: "admin", Password: "admin124"}); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if f.sessions.Len() != 0 {
		t.Fatalf("failed logins must not create sessions, have %d", f.sessions.Len())
	}
}

func TestAuthService_Login_StoreFailure(t *testing.T) {
	users := newStubUserRepo()
	creds := NewCredentialService(users, bcrypt.MinCost, zerolog.Nop())
	mustCreate(t, creds, domain.NewUser{Username: "sam", Password: "secret1"})
	svc := NewAuthService(creds, failingSessionStore{err: errors.New("store down")}, domain.DefaultSessionPolicy(), zerolog.Nop())

	_, err := svc.Login(context.Background(), ports.LoginInput{Username: "sam", Password: "secret1"})
	if err == nil || errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestAuthService_SlidingExpiry(t *testing.T) {
	f := newAuthFixture(t, domain.SessionPolicy{Timeout: 900000 * time.Millisecond, WarningBeforeLogout: 30 * time.Second})
	ctx := context.Background()

	touched := f.login(t, "sam", "secret1")
	idle := f.login(t, "admin", "admin123")

	f.clock.Advance(800000 * time.Millisecond)
	sess, err := f.svc.Authenticate(ctx, touched.Token)
	if err != nil {
		t.Fatalf("session touched at 800000ms should be valid: %v", err)
	}
	if want := f.clock.Now().Add(900000 * time.Millisecond); !sess.ExpiresAt.Equal(want) {
		t.Fatalf("expected expiry slid to %v, got %v", want, sess.ExpiresAt)
	}

	f.clock.Advance(100001 * time.Millisecond) // 900001ms after login
	_, err = f.svc.Authenticate(ctx, idle.Token)
	if !errors.Is(err, domain.ErrUnauthenticated) || !errors.Is(err, domain.ErrSessionExpired) {
		t.Fatalf("untouched session should be expired, got %v", err)
	}
	if _, err := f.sessions.Get(ctx, idle.Token); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expired session should be removed, got %v", err)
	}

	if _, err := f.svc.Authenticate(ctx, touched.Token); err != nil {
		t.Fatalf("renewed session should still be valid: %v", err)
	}
}

func TestAuthService_ExpiryBoundary(t *testing.T) {
	f := newAuthFixture(t, domain.SessionPolicy{Timeout: time.Minute})
	res := f.login(t, "sam", "secret1")

	f.clock.Advance(time.Minute)
	if _, err := f.svc.Authenticate(context.Background(), res.Token); !errors.Is(err, domain.ErrSessionExpired) {
		t.Fatalf("session must be expired exactly at its expiry, got %v", err)
	}
}

func TestAuthService_Authenticate_UnknownToken(t *testing.T) {
	f := newAuthFixture(t, domain.DefaultSessionPolicy())

	for _, token := range []string{"", "not-a-token"} {
		_, err := f.svc.Authenticate(context.Background(), token)
		if !errors.Is(err, domain.ErrUnauthenticated) {
			t.Fatalf("token %q: expected ErrUnauthenticated, got %v", token, err)
		}
		if errors.Is(err, domain.ErrSessionExpired) {
			t.Fatalf("token %q: unknown tokens are not expired", token)
		}
	}
}

func TestAuthService_Authenticate_StoreFailure(t *testing.T) {
	storeErr := errors.New("store down")
	svc := NewAuthService(nil, failingSessionStore{err: storeErr}, domain.DefaultSessionPolicy(), zerolog.Nop())

	_, err := svc.Authenticate(context.Background(), "tok")
	if !errors.Is(err, storeErr) || errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}

func TestAuthService_CheckSession(t *testing.T) {
	f := newAuthFixture(t, domain.DefaultSessionPolicy())
	ctx := context.Background()

	status, err := f.svc.CheckSession(ctx, "")
	if err != nil || status.Authenticated {
		t.Fatalf("anonymous check: %+v %v", status, err)
	}

	res := f.login(t, "sam", "secret1")
	f.clock.Advance(time.Minute)

	status, err = f.svc.CheckSession(ctx, res.Token)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !status.Authenticated || status.User == nil || status.User.Username != "sam" {
		t.Fatalf("unexpected status: %+v", status)
	}
	if status.WarningBeforeLogout != domain.DefaultWarningBeforeLogout {
		t.Fatalf("expected warning %v, got %v", domain.DefaultWarningBeforeLogout, status.WarningBeforeLogout)
	}
	if want := f.clock.Now().Add(domain.DefaultSessionTimeout); !status.ExpiresAt.Equal(want) {
		t.Fatalf("check should renew the session: want %v, got %v", want, status.ExpiresAt)
	}
}

func TestAuthService_CheckSession_DeactivatedUser(t *testing.T) {
	f := newAuthFixture(t, domain.DefaultSessionPolicy())
	res := f.login(t, "sam", "secret1")
	f.users.byID[f.studentID].IsActive = false

	status, err := f.svc.CheckSession(context.Background(), res.Token)
	if err != nil || status.Authenticated {
		t.Fatalf("deactivated user should not be authenticated: %+v %v", status, err)
	}
	if f.sessions.Len() != 0 {
		t.Fatalf("session of deactivated user should be destroyed")
	}
}

func TestAuthService_Logout_Idempotent(t *testing.T) {
	f := newAuthFixture(t, domain.DefaultSessionPolicy())
	ctx := context.Background()
	res := f.login(t, "sam", "secret1")

	for i := 0; i < 2; i++ {
		if err := f.svc.Logout(ctx, res.Token); err != nil {
			t.Fatalf("logout #%d: %v", i+1, err)
		}
	}
	if err := f.svc.Logout(ctx, ""); err != nil {
		t.Fatalf("logout without token: %v", err)
	}
	if _, err := f.svc.Authenticate(ctx, res.Token); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("logged-out token should be rejected, got %v", err)
	}
}

func TestAuthService_ChangePassword_RevokesOtherSessions(t *testing.T) {
	f := newAuthFixture(t, domain.DefaultSessionPolicy())
	ctx := context.Background()
	current := f.login(t, "sam", "secret1")
	other := f.login(t, "sam", "secret1")
	admin := f.login(t, "admin", "admin123")

	if err := f.svc.ChangePassword(ctx, current.Token, "secret1", "newpass1"); err != nil {
		t.Fatalf("change password: %v", err)
	}

	if _, err := f.svc.Authenticate(ctx, current.Token); err != nil {
		t.Fatalf("current session should survive: %v", err)
	}
	if _, err := f.svc.Authenticate(ctx, other.Token); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("other session should be revoked, got %v", err)
	}
	if _, err := f.svc.Authenticate(ctx, admin.Token); err != nil {
		t.Fatalf("other users keep their sessions: %v", err)
	}
	f.login(t, "sam", "newpass1")
}

func TestAuthService_ChangePassword_KeepsSessionsWhenDisabled(t *testing.T) {
	f := newAuthFixture(t, domain.DefaultSessionPolicy(), WithRevokeOnPasswordChange(false))
	ctx := context.Background()
	current := f.login(t, "sam", "secret1")
	other := f.login(t, "sam", "secret1")

	if err := f.svc.ChangePassword(ctx, current.Token, "secret1", "newpass1"); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, err := f.svc.Authenticate(ctx, other.Token); err != nil {
		t.Fatalf("other session should survive: %v", err)
	}
}

func TestAuthService_ChangePassword_Errors(t *testing.T) {
	f := newAuthFixture(t, domain.DefaultSessionPolicy())
	ctx := context.Background()
	res := f.login(t, "sam", "secret1")

	if err := f.svc.ChangePassword(ctx, "", "secret1", "newpass1"); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated without token, got %v", err)
	}
	if err := f.svc.ChangePassword(ctx, res.Token, "wrong-pass", "newpass1"); !errors.Is(err, domain.ErrIncorrectPassword) {
		t.Fatalf("expected ErrIncorrectPassword, got %v", err)
	}
	if err := f.svc.ChangePassword(ctx, res.Token, "secret1", "12345"); validationField(t, err) != "newPassword" {
		t.Fatalf("expected newPassword validation error")
	}

	delete(f.users.byID, f.studentID)
	if err := f.svc.ChangePassword(ctx, res.Token, "secret1", "newpass1"); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("deleted user should be unauthenticated, got %v", err)
	}
}

func TestAuthService_ChangePassword_DoesNotRenew(t *testing.T) {
	f := newAuthFixture(t, domain.DefaultSessionPolicy())
	ctx := context.Background()
	res := f.login(t, "sam", "secret1")

	f.clock.Advance(time.Minute)
	if err := f.svc.ChangePassword(ctx, res.Token, "secret1", "newpass1"); err != nil {
		t.Fatalf("change password: %v", err)
	}
	sess, err := f.sessions.Get(ctx, res.Token)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !sess.ExpiresAt.Equal(res.ExpiresAt) {
		t.Fatalf("change password must not renew the session: %v != %v", sess.ExpiresAt, res.ExpiresAt)
	}
}

func TestAuthService_UsesLiveSettings(t *testing.T) {
	settings := NewSettingsService(newStubSettingsRepo(domain.DefaultSettings()...), zerolog.Nop())
	f := newAuthFixture(t, settings)
	ctx := context.Background()
	res := f.login(t, "sam", "secret1")

	if _, err := settings.Update(ctx, domain.SettingSessionTimeout, "60000"); err != nil {
		t.Fatalf("update: %v", err)
	}

	sess, err := f.svc.Authenticate(ctx, res.Token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if want := f.clock.Now().Add(time.Minute); !sess.ExpiresAt.Equal(want) {
		t.Fatalf("new timeout should apply on next touch: want %v, got %v", want, sess.ExpiresAt)
	}
	if f.svc.SessionPolicy().Timeout != time.Minute {
		t.Fatalf("expected policy timeout 1m, got %v", f.svc.SessionPolicy().Timeout)
	}
}
