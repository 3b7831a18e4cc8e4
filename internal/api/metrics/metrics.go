// Package metrics defines the custom Prometheus metrics of the accounts API.
// HTTP request metrics come from the echoprometheus middleware; this file
// only holds the domain metrics.
//
// All metrics register with the default registry on package init.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/supplytrack/accounts/internal/core/domain"
)

const namespace = "accounts"

// AccountsCreatedTotal counts accounts persisted.
// Labels:
//   - role: role name (e.g. "courier")
//   - kind: "regular" or "superuser"
var AccountsCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "created_total",
		Help:      "Total number of accounts created, by role and kind.",
	},
	[]string{"role", "kind"},
)

// AccountErrorsTotal counts failed account operations.
// Labels:
//   - operation: "create", "create_superuser", "set_password", "login"
//   - reason: "validation", "conflict", "not_found", "promotion", "lock_busy", "internal"
var AccountErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "errors_total",
		Help:      "Total number of failed account operations, by operation and reason.",
	},
	[]string{"operation", "reason"},
)

// LoginsTotal counts login attempts.
// Label:
//   - result: "success" or "failure"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// PasswordHashSeconds observes the latency of password hashing and
// verification.
// Label:
//   - op: "hash" or "verify"
var PasswordHashSeconds = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "password_hash_seconds",
		Help:      "Latency of password hash and verify calls.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1},
	},
	[]string{"op"},
)

// timedHasher records PasswordHashSeconds around another hasher.
type timedHasher struct {
	next domain.PasswordHasher
}

// InstrumentHasher wraps h so every call is observed in PasswordHashSeconds.
func InstrumentHasher(h domain.PasswordHasher) domain.PasswordHasher {
	return timedHasher{next: h}
}

func (t timedHasher) Hash(plaintext string) (string, error) {
	defer observe("hash", time.Now())
	return t.next.Hash(plaintext)
}

func (t timedHasher) Verify(plaintext, hash string) (bool, error) {
	defer observe("verify", time.Now())
	return t.next.Verify(plaintext, hash)
}

func observe(op string, start time.Time) {
	PasswordHashSeconds.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
