package ports

import (
	"context"

	"github.com/telcexam/exam-platform/internal/core/domain"
)

// AdminService covers the account and settings operations of the admin panel
// that touch authentication state.
type AdminService interface {
	ListUsers(ctx context.Context) ([]*domain.User, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
	CreateUser(ctx context.Context, in domain.NewUser) (*domain.User, error)
	UpdateUser(ctx context.Context, id string, up domain.UserUpdate) (*domain.User, error)
	// DeleteUser refuses to remove actorID's own account.
	DeleteUser(ctx context.Context, actorID, id string) error
	ResetPassword(ctx context.Context, userID, next string) error
	RevokeUserSessions(ctx context.Context, userID string) (int, error)
	ListSettings(ctx context.Context) ([]domain.Setting, error)
	GetSetting(ctx context.Context, key string) (*domain.Setting, error)
	UpdateSetting(ctx context.Context, key, value string) (*domain.Setting, error)
}
