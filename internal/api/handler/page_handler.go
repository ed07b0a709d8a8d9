package handler

import (
	"net/http"
	"path/filepath"

	"github.com/labstack/echo/v4"

	"github.com/telcexam/exam-platform/internal/api/middleware"
	"github.com/telcexam/exam-platform/internal/core/domain"
)

// PageHandler serves the protected HTML pages from PagesDir.
type PageHandler struct {
	pagesDir  string
	loginPath string
}

func NewPageHandler(pagesDir, loginPath string) *PageHandler {
	return &PageHandler{pagesDir: pagesDir, loginPath: loginPath}
}

// Root sends each visitor to the page matching their role.
func (h *PageHandler) Root(c echo.Context) error {
	sess, ok := middleware.SessionFrom(c)
	switch {
	case !ok:
		return c.Redirect(http.StatusFound, h.loginPath)
	case sess.Role == domain.RoleAdmin:
		return c.Redirect(http.StatusFound, "/admin")
	default:
		return c.Redirect(http.StatusFound, "/home")
	}
}

// Home serves the student landing page.
func (h *PageHandler) Home(c echo.Context) error {
	return c.File(filepath.Join(h.pagesDir, "index.html"))
}

// Admin serves the admin dashboard.
func (h *PageHandler) Admin(c echo.Context) error {
	return c.File(filepath.Join(h.pagesDir, "admin", "dashboard.html"))
}
