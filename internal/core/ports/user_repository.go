package ports

import (
	"context"
	"time"

	"github.com/telcexam/exam-platform/internal/core/domain"
)

// UserRepository defines persistence operations for user accounts.
// Lookups that find nothing return domain.ErrUserNotFound.
type UserRepository interface {
	// FindActiveByUsername never returns inactive users.
	FindActiveByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// Insert returns domain.ErrUserExists on a duplicate username or email.
	Insert(ctx context.Context, user *domain.User) (*domain.User, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	ExistsWithRole(ctx context.Context, role domain.Role) (bool, error)
	// List returns every user, newest first.
	List(ctx context.Context) ([]*domain.User, error)
	// Update returns domain.ErrUserExists when the new email is taken.
	Update(ctx context.Context, id string, up domain.UserUpdate) (*domain.User, error)
	Delete(ctx context.Context, id string) error
}
