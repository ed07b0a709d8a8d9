package ports

import (
	"context"

	"github.com/telcexam/exam-platform/internal/core/domain"
)

// CredentialStore owns password verification and hashing.
type CredentialStore interface {
	Verify(ctx context.Context, username, password string) (*domain.User, error)
	Create(ctx context.Context, in domain.NewUser) (*domain.User, error)
	ChangePassword(ctx context.Context, userID, current, next string) error
	ResetPassword(ctx context.Context, userID, next string) error
	FindByID(ctx context.Context, id string) (*domain.User, error)
}
