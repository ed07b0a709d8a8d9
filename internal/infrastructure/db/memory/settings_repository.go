package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/telcexam/exam-platform/internal/core/domain"
)

// SettingsRepository is an in-process ports.SettingsRepository.
type SettingsRepository struct {
	mu       sync.RWMutex
	settings map[string]domain.Setting
}

func NewSettingsRepository() *SettingsRepository {
	return &SettingsRepository{settings: make(map[string]domain.Setting)}
}

// List returns all settings ordered by key.
func (r *SettingsRepository) List(_ context.Context) ([]domain.Setting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Setting, 0, len(r.settings))
	for _, st := range r.settings {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (r *SettingsRepository) Get(_ context.Context, key string) (*domain.Setting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st, ok := r.settings[key]
	if !ok {
		return nil, domain.ErrSettingNotFound
	}
	return &st, nil
}

func (r *SettingsRepository) Update(_ context.Context, key, value string) (*domain.Setting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.settings[key]
	if !ok {
		return nil, domain.ErrSettingNotFound
	}
	st.Value = value
	st.UpdatedAt = time.Now().UTC()
	r.settings[key] = st
	return &st, nil
}

func (r *SettingsRepository) InsertMissing(_ context.Context, settings []domain.Setting) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	inserted := 0
	for _, st := range settings {
		if _, ok := r.settings[st.Key]; ok {
			continue
		}
		st.UpdatedAt = now
		r.settings[st.Key] = st
		inserted++
	}
	return inserted, nil
}
