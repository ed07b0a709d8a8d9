package domain

import "time"

// Session binds an opaque token to a user identity. It expires once
// ExpiresAt is reached; every valid access slides ExpiresAt forward.
type Session struct {
	Token        string    `json:"-"`
	UserID       string    `json:"user_id"`
	Username     string    `json:"username"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	LastActivity time.Time `json:"last_activity"`
	IPAddress    string    `json:"ip_address,omitempty"`
	UserAgent    string    `json:"user_agent,omitempty"`
}

// ValidAt reports whether the session is still usable at now.
func (s *Session) ValidAt(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}

// Renew records activity at now and pushes the expiry out by timeout.
func (s *Session) Renew(now time.Time, timeout time.Duration) {
	s.LastActivity = now
	s.ExpiresAt = now.Add(timeout)
}

// SessionOwner identifies the user a new session is issued to.
type SessionOwner struct {
	UserID   string
	Username string
	Role     Role
}

// SessionMeta is advisory client information recorded on a session.
type SessionMeta struct {
	IPAddress string
	UserAgent string
}

// SessionPolicy parametrizes session timing.
type SessionPolicy struct {
	// Timeout is the sliding idle timeout.
	Timeout time.Duration
	// WarningBeforeLogout is advisory, for client countdowns only.
	WarningBeforeLogout time.Duration
}

const (
	DefaultSessionTimeout      = 15 * time.Minute
	DefaultWarningBeforeLogout = 30 * time.Second
)

// DefaultSessionPolicy returns the 15 minute / 30 second defaults.
func DefaultSessionPolicy() SessionPolicy {
	return SessionPolicy{
		Timeout:             DefaultSessionTimeout,
		WarningBeforeLogout: DefaultWarningBeforeLogout,
	}
}

// SessionPolicy lets a fixed policy stand in wherever a provider of the
// current policy is expected.
func (p SessionPolicy) SessionPolicy() SessionPolicy { return p }

// LoginResult is returned after a successful login.
type LoginResult struct {
	Token     string
	User      PublicUser
	ExpiresAt time.Time
}

// SessionStatus answers "who is signed in on this token, if anyone".
type SessionStatus struct {
	Authenticated       bool
	User                *PublicUser
	ExpiresAt           time.Time
	WarningBeforeLogout time.Duration
}
