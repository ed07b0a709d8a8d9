package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/telcexam/exam-platform/internal/api/metrics"
	"github.com/telcexam/exam-platform/internal/core/domain"
	"github.com/telcexam/exam-platform/internal/core/ports"
)

// AdminHandler serves the admin panel endpoints that change who can sign in
// and for how long.
type AdminHandler struct {
	adminService ports.AdminService
}

func NewAdminHandler(adminService ports.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

// ListUsers returns every account, newest first.
//
// @Summary      List users
// @Tags         admin
// @Produce      json
// @Success      200  {object}  usersResponse
// @Failure      403  {object}  errorResponse
// @Router       /api/admin/users [get]
func (h *AdminHandler) ListUsers(c echo.Context) error {
	users, err := h.adminService.ListUsers(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, usersResponse{Users: users})
}

// GetUser returns one account.
//
// @Summary      Get user
// @Tags         admin
// @Produce      json
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  domain.User
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/admin/users/{id} [get]
func (h *AdminHandler) GetUser(c echo.Context) error {
	user, err := h.adminService.GetUser(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// CreateUser registers a new account.
//
// @Summary      Create user
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        body  body      createUserRequest  true  "New account"
// @Success      201   {object}  createUserResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /api/admin/users [post]
func (h *AdminHandler) CreateUser(c echo.Context) error {
	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, err := h.adminService.CreateUser(c.Request().Context(), domain.NewUser{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
		Role:     domain.Role(req.Role),
		FullName: req.FullName,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, createUserResponse{Success: true, User: user})
}

// UpdateUser edits email, name, role or active flag. Deactivation and role
// changes sign the user out.
//
// @Summary      Update user
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        id    path      string             true  "User ID"
// @Param        body  body      updateUserRequest  true  "Fields to change"
// @Success      200   {object}  domain.User
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /api/admin/users/{id} [put]
func (h *AdminHandler) UpdateUser(c echo.Context) error {
	var req updateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, err := h.adminService.UpdateUser(c.Request().Context(), c.Param("id"), req.toDomain())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// DeleteUser removes an account. Admins cannot delete themselves.
//
// @Summary      Delete user
// @Tags         admin
// @Produce      json
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  successResponse
// @Failure      400  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/admin/users/{id} [delete]
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	sess, err := currentSession(c)
	if err != nil {
		return err
	}
	if err := h.adminService.DeleteUser(c.Request().Context(), sess.UserID, c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, successResponse{Success: true})
}

// ResetPassword sets a user's password and ends all of their sessions.
//
// @Summary      Reset a user's password
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        id    path      string                true  "User ID"
// @Param        body  body      resetPasswordRequest  true  "New password"
// @Success      200   {object}  successResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /api/admin/users/{id}/reset-password [post]
func (h *AdminHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.adminService.ResetPassword(c.Request().Context(), c.Param("id"), req.NewPassword); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, successResponse{Success: true, Message: "Password reset"})
}

// RevokeSessions signs a user out everywhere.
//
// @Summary      Revoke a user's sessions
// @Tags         admin
// @Produce      json
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  revokeSessionsResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/admin/users/{id}/sessions [delete]
func (h *AdminHandler) RevokeSessions(c echo.Context) error {
	n, err := h.adminService.RevokeUserSessions(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	metrics.SessionsRevokedTotal.Add(float64(n))
	return c.JSON(http.StatusOK, revokeSessionsResponse{Success: true, Revoked: n})
}

// ListSettings returns every stored setting.
//
// @Summary      List settings
// @Tags         admin
// @Produce      json
// @Success      200  {object}  settingsResponse
// @Failure      403  {object}  errorResponse
// @Router       /api/admin/settings [get]
func (h *AdminHandler) ListSettings(c echo.Context) error {
	settings, err := h.adminService.ListSettings(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, settingsResponse{Settings: settings})
}

// GetSetting returns one setting.
//
// @Summary      Get a setting
// @Tags         admin
// @Produce      json
// @Param        key  path      string  true  "Setting key"
// @Success      200  {object}  domain.Setting
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/admin/settings/{key} [get]
func (h *AdminHandler) GetSetting(c echo.Context) error {
	setting, err := h.adminService.GetSetting(c.Request().Context(), c.Param("key"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, setting)
}

// UpdateSetting changes one setting. Timing settings take effect for the
// next session touch.
//
// @Summary      Update a setting
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        key   path      string                true  "Setting key"
// @Param        body  body      updateSettingRequest  true  "New value"
// @Success      200   {object}  domain.Setting
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /api/admin/settings/{key} [put]
func (h *AdminHandler) UpdateSetting(c echo.Context) error {
	var req updateSettingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	setting, err := h.adminService.UpdateSetting(c.Request().Context(), c.Param("key"), req.Value)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, setting)
}
