// Package memory provides in-process stores for single-node deployments
// and tests: sessions, users and settings.
package memory

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/telcexam/exam-platform/internal/core/domain"
	"github.com/telcexam/exam-platform/internal/core/ports"
)

const (
	defaultShards        = 32
	defaultSweepInterval = time.Minute
)

type shard struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

// SessionStore keeps sessions in a map split into shards by token hash.
// Each shard has its own RWMutex, so touches of one token serialize while
// lookups of unrelated tokens proceed in parallel.
type SessionStore struct {
	shards []*shard
	policy ports.SessionPolicyProvider
	now    func() time.Time
	log    zerolog.Logger

	sweepInterval time.Duration
	onSweep       func(removed, remaining int)
}

// Option customises a SessionStore.
type Option func(*SessionStore)

// WithShards sets the number of lock shards. Values <= 0 are ignored.
func WithShards(n int) Option {
	return func(s *SessionStore) {
		if n > 0 {
			s.shards = newShards(n)
		}
	}
}

// WithClock replaces time.Now; used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *SessionStore) { s.now = now }
}

// WithSweepInterval sets how often Start purges expired sessions.
func WithSweepInterval(d time.Duration) Option {
	return func(s *SessionStore) {
		if d > 0 {
			s.sweepInterval = d
		}
	}
}

// WithSweepHook is called after every sweep with the number of sessions
// removed and the number left.
func WithSweepHook(fn func(removed, remaining int)) Option {
	return func(s *SessionStore) { s.onSweep = fn }
}

func NewSessionStore(policy ports.SessionPolicyProvider, log zerolog.Logger, opts ...Option) *SessionStore {
	s := &SessionStore{
		shards:        newShards(defaultShards),
		policy:        policy,
		now:           time.Now,
		log:           log,
		sweepInterval: defaultSweepInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newShards(n int) []*shard {
	shards := make([]*shard, n)
	for i := range shards {
		shards[i] = &shard{sessions: make(map[string]*domain.Session)}
	}
	return shards
}

// Create issues a new session for owner.
func (s *SessionStore) Create(_ context.Context, owner domain.SessionOwner, meta domain.SessionMeta) (*domain.Session, error) {
	token, err := domain.NewSessionToken()
	if err != nil {
		return nil, err
	}

	now := s.now()
	sess := &domain.Session{
		Token:     token,
		UserID:    owner.UserID,
		Username:  owner.Username,
		Role:      owner.Role,
		CreatedAt: now,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	}
	sess.Renew(now, s.policy.SessionPolicy().Timeout)

	sh := s.shardFor(token)
	sh.mu.Lock()
	sh.sessions[token] = sess
	sh.mu.Unlock()

	return clone(sess), nil
}

// Get returns the session without renewing it.
func (s *SessionStore) Get(_ context.Context, token string) (*domain.Session, error) {
	sh := s.shardFor(token)
	now := s.now()

	sh.mu.RLock()
	sess, ok := sh.sessions[token]
	var out *domain.Session
	if ok && sess.ValidAt(now) {
		out = clone(sess)
	}
	sh.mu.RUnlock()

	switch {
	case !ok:
		return nil, domain.ErrSessionNotFound
	case out != nil:
		return out, nil
	}

	sh.mu.Lock()
	// Re-check under the write lock; a concurrent touch may have renewed it.
	if cur, ok := sh.sessions[token]; ok && !cur.ValidAt(now) {
		delete(sh.sessions, token)
	}
	sh.mu.Unlock()
	return nil, domain.ErrSessionExpired
}

// Touch renews a valid session or removes an expired one.
func (s *SessionStore) Touch(_ context.Context, token string) (*domain.Session, error) {
	sh := s.shardFor(token)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	sess, ok := sh.sessions[token]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	now := s.now()
	if !sess.ValidAt(now) {
		delete(sh.sessions, token)
		return nil, domain.ErrSessionExpired
	}
	sess.Renew(now, s.policy.SessionPolicy().Timeout)
	return clone(sess), nil
}

// Destroy removes the session; unknown tokens are ignored.
func (s *SessionStore) Destroy(_ context.Context, token string) error {
	sh := s.shardFor(token)
	sh.mu.Lock()
	delete(sh.sessions, token)
	sh.mu.Unlock()
	return nil
}

// DestroyUser removes every session of userID except keepToken.
func (s *SessionStore) DestroyUser(_ context.Context, userID, keepToken string) (int, error) {
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for token, sess := range sh.sessions {
			if sess.UserID == userID && token != keepToken {
				delete(sh.sessions, token)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed, nil
}

// Len returns the number of stored sessions, expired ones included.
func (s *SessionStore) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.sessions)
		sh.mu.RUnlock()
	}
	return n
}

// Sweep removes every expired session and reports how many were dropped.
func (s *SessionStore) Sweep() int {
	now := s.now()
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for token, sess := range sh.sessions {
			if !sess.ValidAt(now) {
				delete(sh.sessions, token)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

// Start launches the background sweeper. It stops when ctx is cancelled.
func (s *SessionStore) Start(ctx context.Context) {
	go s.runSweeper(ctx)
}

func (s *SessionStore) runSweeper(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := s.Sweep()
			remaining := s.Len()
			if removed > 0 {
				s.log.Debug().Int("removed", removed).Int("remaining", remaining).Msg("expired sessions swept")
			}
			if s.onSweep != nil {
				s.onSweep(removed, remaining)
			}
		}
	}
}

// shardFor maps a token deterministically to its shard.
func (s *SessionStore) shardFor(token string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(token))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

func clone(sess *domain.Session) *domain.Session {
	c := *sess
	return &c
}
