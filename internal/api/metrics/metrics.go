// Package metrics defines and registers all custom Prometheus metrics for
// the diet-api auth core. It is the single source of truth for metric
// names, labels, and help strings.
//
// Metrics register with the default registry at import time via promauto;
// the router exposes them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "gutwise"

// ── Authentication metrics ───────────────────────────────────────────────────

// LoginsTotal counts login attempts by outcome.
// Label:
//   - outcome: "success", "invalid_credentials", "locked", "banned", "inactive"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, labelled by outcome.",
	},
	[]string{"outcome"},
)

// RegistrationsTotal counts successfully created accounts.
var RegistrationsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of accounts created.",
	},
)

// LockoutsTotal counts brute-force lockouts as they engage.
var LockoutsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lockouts_total",
		Help:      "Total number of login lockouts triggered.",
	},
)

// ── Session metrics ──────────────────────────────────────────────────────────

// TokenRotationsTotal counts successful refresh-token rotations.
var TokenRotationsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_rotations_total",
		Help:      "Total number of successful refresh token rotations.",
	},
)

// TokenReuseDetectedTotal counts presentations of already-revoked refresh
// tokens, each of which triggers a full-session revocation for the owner.
var TokenReuseDetectedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_reuse_detected_total",
		Help:      "Total number of revoked refresh tokens presented again (theft signal).",
	},
)

// SessionsRevokedTotal counts session revocations by reason.
// Label:
//   - reason: the domain revocation reason (e.g. "rotated", "logout")
var SessionsRevokedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_revoked_total",
		Help:      "Total number of refresh sessions revoked, by reason.",
	},
	[]string{"reason"},
)

// ── Rate limiting metrics ────────────────────────────────────────────────────

// RateLimitRejectionsTotal counts requests rejected by the rate limiter.
// Label:
//   - tier: "general", "auth", or "sensitive"
var RateLimitRejectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ratelimit_rejections_total",
		Help:      "Total number of requests rejected by the rate limiter, by tier.",
	},
	[]string{"tier"},
)

// AuditDroppedTotal counts audit events dropped because the dispatcher
// buffer was full.
var AuditDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_dropped_total",
		Help:      "Total number of audit events dropped under backpressure.",
	},
)
