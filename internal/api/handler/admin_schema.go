package handler

import "github.com/telcexam/exam-platform/internal/core/domain"

type createUserRequest struct {
	Username string `json:"username"  validate:"required"`
	Password string `json:"password"  validate:"required,min=6"`
	Email    string `json:"email"     validate:"omitempty,email"`
	Role     string `json:"role"      validate:"omitempty,oneof=admin student"`
	FullName string `json:"full_name"`
}

type createUserResponse struct {
	Success bool         `json:"success"`
	User    *domain.User `json:"user"`
}

// updateUserRequest edits an account; omitted fields are left unchanged.
type updateUserRequest struct {
	Email    *string `json:"email"     validate:"omitempty,email"`
	Role     *string `json:"role"      validate:"omitempty,oneof=admin student"`
	FullName *string `json:"full_name"`
	IsActive *bool   `json:"is_active"`
}

func (r updateUserRequest) toDomain() domain.UserUpdate {
	up := domain.UserUpdate{
		Email:    r.Email,
		FullName: r.FullName,
		IsActive: r.IsActive,
	}
	if r.Role != nil {
		role := domain.Role(*r.Role)
		up.Role = &role
	}
	return up
}

type usersResponse struct {
	Users []*domain.User `json:"users"`
}

type resetPasswordRequest struct {
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

type revokeSessionsResponse struct {
	Success bool `json:"success"`
	Revoked int  `json:"revoked"`
}

type updateSettingRequest struct {
	Value string `json:"value" validate:"required"`
}

type settingsResponse struct {
	Settings []domain.Setting `json:"settings"`
}
