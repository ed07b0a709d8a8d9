package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/telcexam/exam-platform/internal/core/domain"
)

// UserRepository is an in-process ports.UserRepository. Usernames and
// emails are unique, matching the Mongo indexes.
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]*domain.User)}
}

func (r *UserRepository) FindActiveByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Username == username && u.IsActive {
			return copyUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *UserRepository) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return copyUser(u), nil
}

func (r *UserRepository) Insert(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Username == user.Username {
			return nil, domain.ErrUserExists
		}
		if user.Email != "" && strings.EqualFold(u.Email, user.Email) {
			return nil, domain.ErrUserExists
		}
	}

	stored := copyUser(user)
	stored.ID = uuid.NewString()
	r.users[stored.ID] = stored
	return copyUser(stored), nil
}

func (r *UserRepository) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	return r.update(id, func(u *domain.User) { u.LastLogin = &at })
}

func (r *UserRepository) UpdatePassword(_ context.Context, id, passwordHash string) error {
	return r.update(id, func(u *domain.User) { u.PasswordHash = passwordHash })
}

func (r *UserRepository) List(_ context.Context) ([]*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]*domain.User, 0, len(r.users))
	for _, u := range r.users {
		users = append(users, copyUser(u))
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].Username < users[j].Username
		}
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
	return users, nil
}

func (r *UserRepository) Update(_ context.Context, id string, up domain.UserUpdate) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if up.Email != nil && *up.Email != "" {
		for otherID, other := range r.users {
			if otherID != id && strings.EqualFold(other.Email, *up.Email) {
				return nil, domain.ErrUserExists
			}
		}
	}
	up.Apply(u)
	return copyUser(u), nil
}

func (r *UserRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *UserRepository) ExistsWithRole(_ context.Context, role domain.Role) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Role == role {
			return true, nil
		}
	}
	return false, nil
}

func (r *UserRepository) update(id string, fn func(*domain.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	fn(u)
	return nil
}

func copyUser(u *domain.User) *domain.User {
	c := *u
	if u.LastLogin != nil {
		t := *u.LastLogin
		c.LastLogin = &t
	}
	return &c
}
