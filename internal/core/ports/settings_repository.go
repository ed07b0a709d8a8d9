package ports

import (
	"context"

	"github.com/telcexam/exam-platform/internal/core/domain"
)

// SettingsRepository persists global key/value settings.
type SettingsRepository interface {
	List(ctx context.Context) ([]domain.Setting, error)
	// Get returns domain.ErrSettingNotFound for an unknown key.
	Get(ctx context.Context, key string) (*domain.Setting, error)
	// Update returns domain.ErrSettingNotFound for an unknown key.
	Update(ctx context.Context, key, value string) (*domain.Setting, error)
	// InsertMissing adds each setting whose key is not stored yet and
	// reports how many were inserted.
	InsertMissing(ctx context.Context, settings []domain.Setting) (int, error)
}
