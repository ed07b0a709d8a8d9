package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/telcexam/exam-platform/internal/api/metrics"
	"github.com/telcexam/exam-platform/internal/api/middleware"
	"github.com/telcexam/exam-platform/internal/core/domain"
	"github.com/telcexam/exam-platform/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
	token       middleware.TokenExtractor
	cookie      CookieConfig
	loginPath   string
}

func NewAuthHandler(authService ports.AuthService, token middleware.TokenExtractor, cookie CookieConfig, loginPath string) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		token:       token,
		cookie:      cookie,
		loginPath:   loginPath,
	}
}

// Login verifies credentials and opens a session carried by an httpOnly cookie.
// A session presented with the request is ended once the new one exists.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("invalid_input").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	res, err := h.authService.Login(c.Request().Context(), ports.LoginInput{
		Username:  req.Username,
		Password:  req.Password,
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	})
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues(loginResult(err)).Inc()
		return err
	}
	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()

	// A session the client still carries is replaced, not left to idle out.
	if prev := h.token(c); prev != "" && prev != res.Token {
		if err := h.authService.Logout(c.Request().Context(), prev); err != nil {
			return err
		}
	}

	h.cookie.set(c, res.Token)
	return c.JSON(http.StatusOK, loginResponse{
		Success:   true,
		User:      res.User,
		ExpiresAt: res.ExpiresAt,
	})
}

func loginResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid_credentials"
	case domain.IsValidation(err):
		return "invalid_input"
	default:
		return "error"
	}
}

// Logout ends the caller's session. Calling it without a session still succeeds.
//
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Success      200  {object}  successResponse
// @Failure      500  {object}  errorResponse
// @Router       /api/auth/logout [post]
// @Router       /logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.logout(c); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, successResponse{Success: true})
}

// LogoutRedirect is the browser form of Logout; it lands on the login page.
//
// @Summary      Logout and redirect to the login page
// @Tags         auth
// @Success      302
// @Router       /logout [get]
func (h *AuthHandler) LogoutRedirect(c echo.Context) error {
	if err := h.logout(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, h.loginPath)
}

func (h *AuthHandler) logout(c echo.Context) error {
	if err := h.authService.Logout(c.Request().Context(), h.token(c)); err != nil {
		return err
	}
	metrics.LogoutsTotal.Inc()
	h.cookie.clear(c)
	return nil
}

// Check reports whether the caller holds a live session. Checking renews it.
//
// @Summary      Check session
// @Tags         auth
// @Produce      json
// @Success      200  {object}  checkResponse
// @Failure      500  {object}  errorResponse
// @Router       /api/auth/check [get]
func (h *AuthHandler) Check(c echo.Context) error {
	status, err := h.authService.CheckSession(c.Request().Context(), h.token(c))
	if err != nil {
		return err
	}
	if !status.Authenticated {
		return c.JSON(http.StatusOK, checkResponse{Authenticated: false})
	}

	expires := status.ExpiresAt
	return c.JSON(http.StatusOK, checkResponse{
		Authenticated:         true,
		User:                  status.User,
		ExpiresAt:             &expires,
		WarningBeforeLogoutMs: status.WarningBeforeLogout.Milliseconds(),
	})
}

// Ping is a keep-alive for open exam pages. The guard in front of it has
// already renewed the session.
//
// @Summary      Keep the session alive
// @Tags         auth
// @Produce      json
// @Success      200  {object}  pingResponse
// @Failure      401  {object}  errorResponse
// @Router       /ping [get]
func (h *AuthHandler) Ping(c echo.Context) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pingResponse{
		Status:                "ok",
		ExpiresAt:             sess.ExpiresAt,
		WarningBeforeLogoutMs: h.authService.SessionPolicy().WarningBeforeLogout.Milliseconds(),
	})
}

// ChangePassword replaces the caller's password after checking the current one.
//
// @Summary      Change password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      changePasswordRequest  true  "Current and new password"
// @Success      200   {object}  successResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /api/auth/change-password [post]
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}

	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	err = h.authService.ChangePassword(c.Request().Context(), sess.Token, req.CurrentPassword, req.NewPassword)
	switch {
	case err == nil:
		metrics.PasswordChangesTotal.WithLabelValues("success").Inc()
	case domain.IsValidation(err), errors.Is(err, domain.ErrIncorrectPassword):
		metrics.PasswordChangesTotal.WithLabelValues("rejected").Inc()
		return err
	default:
		metrics.PasswordChangesTotal.WithLabelValues("error").Inc()
		return err
	}

	return c.JSON(http.StatusOK, successResponse{
		Success: true,
		Message: "Password changed successfully",
	})
}
