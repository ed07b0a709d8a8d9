package domain

import "time"

// Role is the authorization level carried by a user and their sessions.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleStudent
}

// User models an account that can sign in to the exam platform.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email,omitempty"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	FullName     string     `json:"full_name,omitempty"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

// PublicUser is the subset of User fields that is safe to hand to clients.
type PublicUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	FullName string `json:"full_name"`
}

// Public strips everything but the client-facing identity fields.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:       u.ID,
		Username: u.Username,
		Role:     u.Role,
		FullName: u.FullName,
	}
}

// NewUser carries the input for account creation.
type NewUser struct {
	Username string
	Password string
	Email    string
	Role     Role
	FullName string
}

// UserUpdate is a partial change to an account. Nil fields are left alone;
// an empty Email clears it.
type UserUpdate struct {
	Email    *string
	FullName *string
	Role     *Role
	IsActive *bool
}

// Apply copies the set fields onto u.
func (up UserUpdate) Apply(u *User) {
	if up.Email != nil {
		u.Email = *up.Email
	}
	if up.FullName != nil {
		u.FullName = *up.FullName
	}
	if up.Role != nil {
		u.Role = *up.Role
	}
	if up.IsActive != nil {
		u.IsActive = *up.IsActive
	}
}

// RevokesSessions reports whether applying up to before invalidates the
// identity copied into the user's sessions.
func (up UserUpdate) RevokesSessions(before *User) bool {
	if up.IsActive != nil && !*up.IsActive && before.IsActive {
		return true
	}
	return up.Role != nil && *up.Role != before.Role
}

// MinPasswordLength is the shortest password accepted on create or change.
const MinPasswordLength = 6
