package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/telcexam/exam-platform/internal/core/domain"
	"github.com/telcexam/exam-platform/internal/core/ports"
)

// SettingsService reads and edits global settings and keeps the session
// policy derived from them. It implements ports.SessionPolicyProvider.
type SettingsService struct {
	repo ports.SettingsRepository
	log  zerolog.Logger

	mu     sync.RWMutex
	policy domain.SessionPolicy
}

// NewSettingsService starts from the default session policy; call Load to
// pick up stored values.
func NewSettingsService(repo ports.SettingsRepository, log zerolog.Logger) *SettingsService {
	return &SettingsService{
		repo:   repo,
		log:    log,
		policy: domain.DefaultSessionPolicy(),
	}
}

// Load refreshes the cached session policy from the repository.
func (s *SettingsService) Load(ctx context.Context) error {
	settings, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	for _, st := range settings {
		s.apply(st.Key, st.Value)
	}
	return nil
}

// SessionPolicy returns the policy currently in force.
func (s *SettingsService) SessionPolicy() domain.SessionPolicy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.policy
}

// List returns all stored settings.
func (s *SettingsService) List(ctx context.Context) ([]domain.Setting, error) {
	settings, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	return settings, nil
}

// Get returns one stored setting.
func (s *SettingsService) Get(ctx context.Context, key string) (*domain.Setting, error) {
	return s.repo.Get(ctx, key)
}

// Update stores value under key. Timing keys must be positive millisecond
// counts; the new policy applies from the next session create or touch.
func (s *SettingsService) Update(ctx context.Context, key, value string) (*domain.Setting, error) {
	if isDurationSetting(key) {
		if _, err := parseMillis(value); err != nil {
			return nil, domain.NewValidationError("value", "must be a positive number of milliseconds")
		}
	}

	st, err := s.repo.Update(ctx, key, value)
	if err != nil {
		return nil, err
	}
	s.apply(st.Key, st.Value)
	s.log.Info().Str("key", key).Str("value", value).Msg("setting updated")
	return st, nil
}

func (s *SettingsService) apply(key, value string) {
	if !isDurationSetting(key) {
		return
	}
	d, err := parseMillis(value)
	if err != nil {
		s.log.Warn().Str("key", key).Str("value", value).Msg("ignoring invalid duration setting")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch key {
	case domain.SettingSessionTimeout:
		s.policy.Timeout = d
	case domain.SettingWarningBeforeLogout:
		s.policy.WarningBeforeLogout = d
	}
}

func isDurationSetting(key string) bool {
	return key == domain.SettingSessionTimeout || key == domain.SettingWarningBeforeLogout
}

func parseMillis(value string) (time.Duration, error) {
	ms, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, err
	}
	if ms <= 0 {
		return 0, fmt.Errorf("non-positive duration %d", ms)
	}
	return time.Duration(ms) * time.Millisecond, nil
}
