package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/telcexam/exam-platform/internal/core/domain"
)

type stubAuthenticator struct {
	sessions map[string]*domain.Session
	err      error
	calls    int
}

func (s *stubAuthenticator) Authenticate(_ context.Context, token string) (*domain.Session, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	sess, ok := s.sessions[token]
	if !ok {
		return nil, domain.ErrUnauthenticated
	}
	return sess, nil
}

func newStubAuthenticator() *stubAuthenticator {
	return &stubAuthenticator{sessions: map[string]*domain.Session{
		"student-token": {Token: "student-token", UserID: "u1", Username: "sam", Role: domain.RoleStudent},
		"admin-token":   {Token: "admin-token", UserID: "u2", Username: "admin", Role: domain.RoleAdmin},
	}}
}

func newGuardContext(token string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "exam_session", Value: token})
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func httpStatus(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got %v", err)
	}
	return he.Code
}

func okHandler(called *bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		*called = true
		return c.NoContent(http.StatusOK)
	}
}

func TestRequireAuthenticated_ValidSession(t *testing.T) {
	authn := newStubAuthenticator()
	g := NewGuard(authn, CookieOrBearer("exam_session"), "/login.html")
	c, rec := newGuardContext("student-token")

	called := false
	h := g.RequireAuthenticated(ModeAPI)(func(c echo.Context) error {
		called = true
		sess, ok := SessionFrom(c)
		if !ok || sess.UserID != "u1" {
			t.Fatalf("session not attached: %+v", sess)
		}
		return c.NoContent(http.StatusOK)
	})

	if err := h(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called || rec.Code != http.StatusOK {
		t.Fatalf("expected next to run with 200, got called=%v code=%d", called, rec.Code)
	}
}

func TestRequireAuthenticated_APIModeDenies(t *testing.T) {
	g := NewGuard(newStubAuthenticator(), CookieOrBearer("exam_session"), "/login.html")
	c, _ := newGuardContext("")

	called := false
	err := g.RequireAuthenticated(ModeAPI)(okHandler(&called))(c)
	if called {
		t.Fatalf("should not reach next")
	}
	if code := httpStatus(t, err); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
}

func TestRequireAuthenticated_PageModeRedirects(t *testing.T) {
	g := NewGuard(newStubAuthenticator(), CookieOrBearer("exam_session"), "/login.html")
	c, rec := newGuardContext("unknown-token")

	called := false
	if err := g.RequireAuthenticated(ModePage)(okHandler(&called))(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if called {
		t.Fatalf("should not reach next")
	}
	if rec.Code != http.StatusFound || rec.Header().Get(echo.HeaderLocation) != "/login.html" {
		t.Fatalf("expected redirect to /login.html, got %d %q", rec.Code, rec.Header().Get(echo.HeaderLocation))
	}
}

func TestRequireRole_AdminAllowed(t *testing.T) {
	g := NewGuard(newStubAuthenticator(), CookieOrBearer("exam_session"), "/login.html")
	c, rec := newGuardContext("admin-token")

	called := false
	if err := g.RequireRole(domain.RoleAdmin)(okHandler(&called))(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called || rec.Code != http.StatusOK {
		t.Fatalf("expected admin to pass")
	}
}

func TestRequireRole_StudentForbidden(t *testing.T) {
	g := NewGuard(newStubAuthenticator(), CookieOrBearer("exam_session"), "/login.html")
	c, _ := newGuardContext("student-token")

	called := false
	err := g.RequireRole(domain.RoleAdmin)(okHandler(&called))(c)
	if called {
		t.Fatalf("should not reach next")
	}
	if code := httpStatus(t, err); code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", code)
	}
}

func TestRequireRole_UnauthenticatedIsForbidden(t *testing.T) {
	g := NewGuard(newStubAuthenticator(), CookieOrBearer("exam_session"), "/login.html")
	c, _ := newGuardContext("")

	called := false
	err := g.RequireRole(domain.RoleAdmin)(okHandler(&called))(c)
	if code := httpStatus(t, err); code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", code)
	}
}

func TestGuard_RenewsOncePerRequest(t *testing.T) {
	authn := newStubAuthenticator()
	g := NewGuard(authn, CookieOrBearer("exam_session"), "/login.html")
	c, _ := newGuardContext("admin-token")

	called := false
	h := g.Optional()(g.RequireAuthenticated(ModeAPI)(g.RequireRole(domain.RoleAdmin)(okHandler(&called))))
	if err := h(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("expected next to run")
	}
	if authn.calls != 1 {
		t.Fatalf("expected exactly one Authenticate call, got %d", authn.calls)
	}
}

func TestGuard_StoreFailurePropagates(t *testing.T) {
	authn := newStubAuthenticator()
	authn.err = fmt.Errorf("authenticate: %w", errors.New("redis down"))
	g := NewGuard(authn, CookieOrBearer("exam_session"), "/login.html")
	c, _ := newGuardContext("admin-token")

	called := false
	err := g.RequireAuthenticated(ModeAPI)(okHandler(&called))(c)
	if err == nil || called {
		t.Fatalf("expected store error to propagate")
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		t.Fatalf("store failure must not be turned into a client error: %v", err)
	}
}

func TestOptional_NeverDenies(t *testing.T) {
	g := NewGuard(newStubAuthenticator(), CookieOrBearer("exam_session"), "/login.html")
	c, _ := newGuardContext("")

	called := false
	if err := g.Optional()(okHandler(&called))(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("expected next to run")
	}
	if _, ok := SessionFrom(c); ok {
		t.Fatalf("no session expected")
	}
}
