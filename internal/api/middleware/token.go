package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// TokenExtractor pulls the session token out of a request, returning "" when
// there is none.
type TokenExtractor func(c echo.Context) string

// CookieOrBearer reads the named cookie and falls back to an
// "Authorization: Bearer <token>" header.
func CookieOrBearer(cookieName string) TokenExtractor {
	return func(c echo.Context) string {
		if cookie, err := c.Cookie(cookieName); err == nil && cookie.Value != "" {
			return cookie.Value
		}

		authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
}
