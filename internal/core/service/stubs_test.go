package service

import (
	"context"
	"fmt"
	"time"

	"github.com/telcexam/exam-platform/internal/core/domain"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	byID       map[string]*domain.User
	nextID     int
	findErr    error
	lastLogins []string // user ids stamped by UpdateLastLogin
	loginErr   error
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{byID: make(map[string]*domain.User)}
}

func (r *stubUserRepo) FindActiveByUsername(_ context.Context, username string) (*domain.User, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, u := range r.byID {
		if u.Username == username && u.IsActive {
			c := *u
			return &c, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (r *stubUserRepo) Insert(_ context.Context, user *domain.User) (*domain.User, error) {
	for _, u := range r.byID {
		if u.Username == user.Username {
			return nil, domain.ErrUserExists
		}
	}
	r.nextID++
	c := *user
	c.ID = fmt.Sprintf("u%d", r.nextID)
	r.byID[c.ID] = &c
	out := c
	return &out, nil
}

func (r *stubUserRepo) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	if r.loginErr != nil {
		return r.loginErr
	}
	u, ok := r.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.LastLogin = &at
	r.lastLogins = append(r.lastLogins, id)
	return nil
}

func (r *stubUserRepo) UpdatePassword(_ context.Context, id, hash string) error {
	u, ok := r.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (r *stubUserRepo) ExistsWithRole(_ context.Context, role domain.Role) (bool, error) {
	if r.findErr != nil {
		return false, r.findErr
	}
	for _, u := range r.byID {
		if u.Role == role {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubUserRepo) List(context.Context) ([]*domain.User, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	out := make([]*domain.User, 0, len(r.byID))
	for _, u := range r.byID {
		c := *u
		out = append(out, &c)
	}
	return out, nil
}

func (r *stubUserRepo) Update(_ context.Context, id string, up domain.UserUpdate) (*domain.User, error) {
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if up.Email != nil && *up.Email != "" {
		for otherID, other := range r.byID {
			if otherID != id && other.Email == *up.Email {
				return nil, domain.ErrUserExists
			}
		}
	}
	up.Apply(u)
	c := *u
	return &c, nil
}

func (r *stubUserRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.byID[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.byID, id)
	return nil
}

type stubSettingsRepo struct {
	byKey     map[string]domain.Setting
	listErr   error
	updateErr error
}

func newStubSettingsRepo(settings ...domain.Setting) *stubSettingsRepo {
	r := &stubSettingsRepo{byKey: make(map[string]domain.Setting)}
	for _, st := range settings {
		r.byKey[st.Key] = st
	}
	return r
}

func (r *stubSettingsRepo) List(context.Context) ([]domain.Setting, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]domain.Setting, 0, len(r.byKey))
	for _, st := range r.byKey {
		out = append(out, st)
	}
	return out, nil
}

func (r *stubSettingsRepo) Get(_ context.Context, key string) (*domain.Setting, error) {
	st, ok := r.byKey[key]
	if !ok {
		return nil, domain.ErrSettingNotFound
	}
	return &st, nil
}

func (r *stubSettingsRepo) Update(_ context.Context, key, value string) (*domain.Setting, error) {
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	st, ok := r.byKey[key]
	if !ok {
		return nil, domain.ErrSettingNotFound
	}
	st.Value = value
	r.byKey[key] = st
	return &st, nil
}

func (r *stubSettingsRepo) InsertMissing(_ context.Context, settings []domain.Setting) (int, error) {
	n := 0
	for _, st := range settings {
		if _, ok := r.byKey[st.Key]; ok {
			continue
		}
		r.byKey[st.Key] = st
		n++
	}
	return n, nil
}

// failingSessionStore fails every call with err.
type failingSessionStore struct {
	err error
}

func (s failingSessionStore) Create(context.Context, domain.SessionOwner, domain.SessionMeta) (*domain.Session, error) {
	return nil, s.err
}

func (s failingSessionStore) Get(context.Context, string) (*domain.Session, error) {
	return nil, s.err
}

func (s failingSessionStore) Touch(context.Context, string) (*domain.Session, error) {
	return nil, s.err
}

func (s failingSessionStore) Destroy(context.Context, string) error {
	return s.err
}

func (s failingSessionStore) DestroyUser(context.Context, string, string) (int, error) {
	return 0, s.err
}

// fakeClock is a settable time source shared by the store and the test.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }
