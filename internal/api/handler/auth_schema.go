package handler

import (
	"time"

	"github.com/telcexam/exam-platform/internal/core/domain"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type loginResponse struct {
	Success   bool              `json:"success"`
	User      domain.PublicUser `json:"user"`
	ExpiresAt time.Time         `json:"expires_at"`
}

type successResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type checkResponse struct {
	Authenticated         bool               `json:"authenticated"`
	User                  *domain.PublicUser `json:"user,omitempty"`
	ExpiresAt             *time.Time         `json:"expires_at,omitempty"`
	WarningBeforeLogoutMs int64              `json:"warning_before_logout_ms,omitempty"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type pingResponse struct {
	Status                string    `json:"status"`
	ExpiresAt             time.Time `json:"expires_at"`
	WarningBeforeLogoutMs int64     `json:"warning_before_logout_ms"`
}
