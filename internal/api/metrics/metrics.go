// Package metrics defines and registers the custom Prometheus metrics of the
// exam platform's authentication layer. It is the single source of truth for
// metric names, labels, and help strings.
//
// All metrics register with the default Prometheus registry on package init.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "exam"

// ── Login metrics ─────────────────────────────────────────────────────────────

// LoginAttemptsTotal counts login attempts.
// Label:
//   - result: "success", "invalid_credentials", "invalid_input" or "error"
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// LogoutsTotal counts explicit logouts.
var LogoutsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logouts_total",
		Help:      "Total number of logout requests.",
	},
)

// PasswordChangesTotal counts password change attempts.
// Label:
//   - result: "success", "rejected" or "error"
var PasswordChangesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "password_changes_total",
		Help:      "Total number of password change attempts, by result.",
	},
	[]string{"result"},
)

// ── Session metrics ───────────────────────────────────────────────────────────

// SessionsExpiredTotal counts requests that arrived on an expired session.
var SessionsExpiredTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_expired_total",
		Help:      "Total number of requests rejected because their session had expired.",
	},
)

// SessionsSweptTotal counts sessions removed by the background sweeper.
var SessionsSweptTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_swept_total",
		Help:      "Total number of expired sessions removed by the in-memory sweeper.",
	},
)

// SessionsStored tracks how many sessions the in-memory store holds after
// the last sweep.
var SessionsStored = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_stored",
		Help:      "Number of sessions held by the in-memory store after the last sweep.",
	},
)

// SessionsRevokedTotal counts sessions ended by an administrator.
var SessionsRevokedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_revoked_total",
		Help:      "Total number of sessions revoked from the admin panel.",
	},
)

// ── Access control metrics ────────────────────────────────────────────────────

// AccessDeniedTotal counts requests rejected by the access middleware.
// Labels:
//   - policy: "authenticated" or "role"
//   - reason: "unauthenticated" or "forbidden"
var AccessDeniedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "access_denied_total",
		Help:      "Total number of requests denied by access control, by policy and reason.",
	},
	[]string{"policy", "reason"},
)

// ObserveSweep records the outcome of one sweeper pass.
func ObserveSweep(removed, remaining int) {
	SessionsSweptTotal.Add(float64(removed))
	SessionsStored.Set(float64(remaining))
}
