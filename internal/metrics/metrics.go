// Package metrics holds the Prometheus collectors of the admin control plane.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GateDecisions counts request gate outcomes.
	// Labels:
	//   - outcome: "granted", "unauthenticated", "legacy_session",
	//     "session_revoked", "session_expired", "error"
	GateDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_gate_decisions_total",
			Help: "Total number of admin request gate decisions",
		},
		[]string{"outcome"},
	)

	// LoginAttempts counts TOTP login attempts.
	// Labels:
	//   - outcome: "success", "invalid_code", "not_enrolled", "not_found", "error"
	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_login_attempts_total",
			Help: "Total number of admin TOTP login attempts",
		},
		[]string{"outcome"},
	)

	// SessionRevocations counts step-up revocation attempts.
	SessionRevocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_session_revocations_total",
			Help: "Total number of admin session revocation attempts",
		},
		[]string{"outcome"},
	)

	// AuditEntries counts audit entries written per action.
	AuditEntries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_audit_entries_total",
			Help: "Total number of audit log entries written",
		},
		[]string{"action"},
	)

	// EventPublishFailures counts events the fanout could not deliver.
	EventPublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_event_publish_failures_total",
			Help: "Total number of real-time events that failed to publish",
		},
		[]string{"type"},
	)

	// RateLimited counts requests rejected by the auth rate limiter.
	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "admin_auth_rate_limited_total",
			Help: "Total number of auth requests rejected by rate limiting",
		},
	)

	// ConnectedClients tracks open SSE and WebSocket subscribers.
	ConnectedClients = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "admin_event_clients",
			Help: "Number of connected real-time event clients",
		},
		[]string{"transport"},
	)
)
