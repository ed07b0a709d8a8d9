package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/telcexam/exam-platform/internal/core/domain"
	"github.com/telcexam/exam-platform/internal/core/ports"
)

const defaultKeyPrefix = "exam:"

// Key layout:
//
//	<prefix>session:<token>     hash with the session fields (times in unix ms)
//	<prefix>user_sessions:<id>  set of the user's tokens
//
// Session keys carry a Redis TTL equal to the idle timeout so abandoned
// sessions disappear without a sweeper. The user set's TTL is only ever
// raised, to the longest timeout handed out to one of its sessions, so it
// outlives every member and vanishes with the last of them.

const (
	touchStatusMissing int64 = 0
	touchStatusExpired int64 = 1
	touchStatusRenewed int64 = 2
)

// KEYS[1] session key
// ARGV[1] now (ms), ARGV[2] new expires_at (ms), ARGV[3] ttl (ms),
// ARGV[4] user set key prefix, ARGV[5] token
var touchLua = redis.NewScript(`
local expires = redis.call("HGET", KEYS[1], "expires_at")
if not expires then
  return 0
end
if tonumber(ARGV[1]) >= tonumber(expires) then
  local uid = redis.call("HGET", KEYS[1], "user_id")
  redis.call("DEL", KEYS[1])
  if uid then
    redis.call("SREM", ARGV[4] .. uid, ARGV[5])
  end
  return 1
end
redis.call("HSET", KEYS[1], "last_activity", ARGV[1], "expires_at", ARGV[2])
redis.call("PEXPIRE", KEYS[1], ARGV[3])
local uid = redis.call("HGET", KEYS[1], "user_id")
if uid then
  local ukey = ARGV[4] .. uid
  if redis.call("PTTL", ukey) < tonumber(ARGV[3]) then
    redis.call("PEXPIRE", ukey, ARGV[3])
  end
end
return 2
`)

// KEYS[1] user set key
// ARGV[1] token, ARGV[2] ttl (ms), ARGV[3] session key prefix
// Adds the token, drops members whose session key Redis already expired and
// extends the set's TTL. Returns the number of live members.
var indexLua = redis.NewScript(`
redis.call("SADD", KEYS[1], ARGV[1])
for _, t in ipairs(redis.call("SMEMBERS", KEYS[1])) do
  if redis.call("EXISTS", ARGV[3] .. t) == 0 then
    redis.call("SREM", KEYS[1], t)
  end
end
if redis.call("PTTL", KEYS[1]) < tonumber(ARGV[2]) then
  redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return redis.call("SCARD", KEYS[1])
`)

// KEYS[1] session key
// ARGV[1] user set key prefix, ARGV[2] token
var destroyLua = redis.NewScript(`
local uid = redis.call("HGET", KEYS[1], "user_id")
local existed = redis.call("DEL", KEYS[1])
if uid then
  redis.call("SREM", ARGV[1] .. uid, ARGV[2])
end
return existed
`)

// SessionStore keeps sessions in Redis. Touch and Destroy run as Lua
// scripts, so concurrent requests on one token never interleave their
// read-modify-write.
type SessionStore struct {
	client redis.UniversalClient
	policy ports.SessionPolicyProvider
	prefix string
	now    func() time.Time
}

// StoreOption customises a SessionStore.
type StoreOption func(*SessionStore)

// WithKeyPrefix namespaces every key the store writes.
func WithKeyPrefix(prefix string) StoreOption {
	return func(s *SessionStore) { s.prefix = prefix }
}

// WithClock replaces time.Now; used by tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *SessionStore) { s.now = now }
}

func NewSessionStore(client redis.UniversalClient, policy ports.SessionPolicyProvider, opts ...StoreOption) *SessionStore {
	s := &SessionStore{
		client: client,
		policy: policy,
		prefix: defaultKeyPrefix,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type redisSession struct {
	UserID       string `redis:"user_id"`
	Username     string `redis:"username"`
	Role         string `redis:"role"`
	CreatedAt    int64  `redis:"created_at"`
	ExpiresAt    int64  `redis:"expires_at"`
	LastActivity int64  `redis:"last_activity"`
	IPAddress    string `redis:"ip"`
	UserAgent    string `redis:"ua"`
}

func (rs redisSession) toDomain(token string) *domain.Session {
	return &domain.Session{
		Token:        token,
		UserID:       rs.UserID,
		Username:     rs.Username,
		Role:         domain.Role(rs.Role),
		CreatedAt:    time.UnixMilli(rs.CreatedAt),
		ExpiresAt:    time.UnixMilli(rs.ExpiresAt),
		LastActivity: time.UnixMilli(rs.LastActivity),
		IPAddress:    rs.IPAddress,
		UserAgent:    rs.UserAgent,
	}
}

// Create issues a new session for owner.
func (s *SessionStore) Create(ctx context.Context, owner domain.SessionOwner, meta domain.SessionMeta) (*domain.Session, error) {
	token, err := domain.NewSessionToken()
	if err != nil {
		return nil, err
	}

	timeout := s.policy.SessionPolicy().Timeout
	now := s.now().Truncate(time.Millisecond)
	sess := &domain.Session{
		Token:     token,
		UserID:    owner.UserID,
		Username:  owner.Username,
		Role:      owner.Role,
		CreatedAt: now,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	}
	sess.Renew(now, timeout)

	key := s.sessionKey(token)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"user_id", sess.UserID,
			"username", sess.Username,
			"role", string(sess.Role),
			"created_at", sess.CreatedAt.UnixMilli(),
			"expires_at", sess.ExpiresAt.UnixMilli(),
			"last_activity", sess.LastActivity.UnixMilli(),
			"ip", sess.IPAddress,
			"ua", sess.UserAgent,
		)
		pipe.PExpire(ctx, key, timeout)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	err = indexLua.Run(ctx, s.client,
		[]string{s.userKey(sess.UserID)},
		token,
		timeout.Milliseconds(),
		s.sessionKeyPrefix(),
	).Err()
	if err != nil {
		_ = s.client.Del(ctx, key).Err()
		return nil, fmt.Errorf("index session: %w", err)
	}
	return sess, nil
}

// Get returns the session without renewing it.
func (s *SessionStore) Get(ctx context.Context, token string) (*domain.Session, error) {
	sess, err := s.load(ctx, token)
	if err != nil {
		return nil, err
	}
	if !sess.ValidAt(s.now()) {
		if err := s.Destroy(ctx, token); err != nil {
			return nil, err
		}
		return nil, domain.ErrSessionExpired
	}
	return sess, nil
}

// Touch renews a valid session or removes an expired one.
func (s *SessionStore) Touch(ctx context.Context, token string) (*domain.Session, error) {
	timeout := s.policy.SessionPolicy().Timeout
	now := s.now()

	status, err := touchLua.Run(ctx, s.client,
		[]string{s.sessionKey(token)},
		now.UnixMilli(),
		now.Add(timeout).UnixMilli(),
		timeout.Milliseconds(),
		s.userKeyPrefix(),
		token,
	).Int64()
	if err != nil {
		return nil, fmt.Errorf("touch session: %w", err)
	}

	switch status {
	case touchStatusMissing:
		return nil, domain.ErrSessionNotFound
	case touchStatusExpired:
		return nil, domain.ErrSessionExpired
	}
	// Renewed; a concurrent Destroy may still win the race to this read.
	return s.load(ctx, token)
}

// Destroy removes the session; unknown tokens are ignored.
func (s *SessionStore) Destroy(ctx context.Context, token string) error {
	err := destroyLua.Run(ctx, s.client, []string{s.sessionKey(token)}, s.userKeyPrefix(), token).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

// DestroyUser removes every session of userID except keepToken.
func (s *SessionStore) DestroyUser(ctx context.Context, userID, keepToken string) (int, error) {
	userKey := s.userKey(userID)
	tokens, err := s.client.SMembers(ctx, userKey).Result()
	if err != nil {
		return 0, fmt.Errorf("list user sessions: %w", err)
	}

	var dels []*redis.IntCmd
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, token := range tokens {
			if token == keepToken {
				continue
			}
			dels = append(dels, pipe.Del(ctx, s.sessionKey(token)))
			pipe.SRem(ctx, userKey, token)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("destroy user sessions: %w", err)
	}

	removed := 0
	for _, cmd := range dels {
		// Members whose key already expired in Redis are pruned but not counted.
		removed += int(cmd.Val())
	}
	return removed, nil
}

func (s *SessionStore) load(ctx context.Context, token string) (*domain.Session, error) {
	cmd := s.client.HGetAll(ctx, s.sessionKey(token))
	fields, err := cmd.Result()
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrSessionNotFound
	}

	var rs redisSession
	if err := cmd.Scan(&rs); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return rs.toDomain(token), nil
}

func (s *SessionStore) sessionKeyPrefix() string {
	return s.prefix + "session:"
}

func (s *SessionStore) sessionKey(token string) string {
	return s.sessionKeyPrefix() + token
}

func (s *SessionStore) userKeyPrefix() string {
	return s.prefix + "user_sessions:"
}

func (s *SessionStore) userKey(userID string) string {
	return s.userKeyPrefix() + userID
}
