package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/telcexam/exam-platform/internal/api/middleware"
	"github.com/telcexam/exam-platform/internal/core/domain"
)

// currentSession returns the session attached by the access middleware. A
// missing session means the route was registered without a guard; reject
// with 401 rather than act anonymously.
func currentSession(c echo.Context) (*domain.Session, error) {
	sess, ok := middleware.SessionFrom(c)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, domain.ErrUnauthenticated.Error())
	}
	return sess, nil
}
