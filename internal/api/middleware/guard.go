package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/telcexam/exam-platform/internal/api/metrics"
	"github.com/telcexam/exam-platform/internal/core/domain"
	"github.com/telcexam/exam-platform/internal/core/ports"
)

const sessionContextKey = "session"

// Mode selects how an unauthenticated request is turned away.
type Mode int

const (
	// ModeAPI answers 401 with a JSON error.
	ModeAPI Mode = iota
	// ModePage redirects to the login page.
	ModePage
)

// Guard gates routes on the caller's session. Every guarded request renews
// its session exactly once, however many guards it passes through.
type Guard struct {
	authn     ports.Authenticator
	token     TokenExtractor
	loginPath string
}

func NewGuard(authn ports.Authenticator, token TokenExtractor, loginPath string) *Guard {
	return &Guard{authn: authn, token: token, loginPath: loginPath}
}

// Optional resolves the session when one is presented but never denies.
func (g *Guard) Optional() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, err := g.resolve(c); err != nil && !errors.Is(err, domain.ErrUnauthenticated) {
				return err
			}
			return next(c)
		}
	}
}

// RequireAuthenticated lets through any request with a valid session.
func (g *Guard) RequireAuthenticated(mode Mode) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, err := g.resolve(c); err != nil {
				if !errors.Is(err, domain.ErrUnauthenticated) {
					return err
				}
				metrics.AccessDeniedTotal.WithLabelValues("authenticated", "unauthenticated").Inc()
				if mode == ModePage {
					return c.Redirect(http.StatusFound, g.loginPath)
				}
				return echo.NewHTTPError(http.StatusUnauthorized, domain.ErrUnauthenticated.Error())
			}
			return next(c)
		}
	}
}

// RequireRole lets through requests whose session carries role. Missing
// sessions and wrong roles are both answered with 403.
func (g *Guard) RequireRole(role domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess, err := g.resolve(c)
			switch {
			case err != nil && !errors.Is(err, domain.ErrUnauthenticated):
				return err
			case err != nil:
				metrics.AccessDeniedTotal.WithLabelValues("role", "unauthenticated").Inc()
				return echo.NewHTTPError(http.StatusForbidden, domain.ErrForbidden.Error())
			case sess.Role != role:
				metrics.AccessDeniedTotal.WithLabelValues("role", "forbidden").Inc()
				return echo.NewHTTPError(http.StatusForbidden, domain.ErrForbidden.Error())
			}
			return next(c)
		}
	}
}

// resolve returns the request's session, renewing it on first use and
// reusing the result for later guards on the same request.
func (g *Guard) resolve(c echo.Context) (*domain.Session, error) {
	if sess, ok := SessionFrom(c); ok {
		return sess, nil
	}

	sess, err := g.authn.Authenticate(c.Request().Context(), g.token(c))
	if err != nil {
		if errors.Is(err, domain.ErrSessionExpired) {
			metrics.SessionsExpiredTotal.Inc()
		}
		return nil, err
	}
	SetSession(c, sess)
	return sess, nil
}

// SetSession attaches sess to the request.
func SetSession(c echo.Context, sess *domain.Session) {
	c.Set(sessionContextKey, sess)
}

// SessionFrom returns the session a guard attached to the request.
func SessionFrom(c echo.Context) (*domain.Session, bool) {
	sess, ok := c.Get(sessionContextKey).(*domain.Session)
	return sess, ok && sess != nil
}
