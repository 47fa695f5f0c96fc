package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "neubio", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "neubio", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	SyncOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "neubio", Name: "sync_operations_total", Help: "Sync controller operations by kind and outcome."},
		[]string{"op", "result"},
	)
	SyncDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: "neubio", Name: "sync_duration_seconds", Help: "Latency of remote sync operations.", Buckets: prometheus.DefBuckets},
		[]string{"op"},
	)
	LoginAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "neubio", Name: "admin_login_attempts_total", Help: "Admin login attempts by outcome."},
		[]string{"result"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(SyncOperations)
	reg.MustRegister(SyncDuration)
	reg.MustRegister(LoginAttempts)
}

// ObserveSync records one sync operation. result is "ok" or an error kind.
func ObserveSync(op, result string, started time.Time) {
	SyncOperations.WithLabelValues(op, result).Inc()
	SyncDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}
