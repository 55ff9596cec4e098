// Package metrics exposes the ledger's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application collectors.
	Registry = prometheus.NewRegistry()

	ordersCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "starledger",
			Subsystem: "orders",
			Name:      "created_total",
			Help:      "Total number of orders created.",
		},
	)

	decisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "starledger",
			Subsystem: "orders",
			Name:      "decisions_total",
			Help:      "Admin decisions by decision and outcome code.",
		},
		[]string{"decision", "result"},
	)

	referralCredits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "starledger",
			Subsystem: "referral",
			Name:      "credits_total",
			Help:      "Referral bonuses credited, by policy.",
		},
		[]string{"policy"},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "starledger",
			Subsystem: "notify",
			Name:      "messages_total",
			Help:      "Outbound notifications by target and outcome.",
		},
		[]string{"target", "result"},
	)

	reminders = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "starledger",
			Subsystem: "worker",
			Name:      "reminders_total",
			Help:      "Reminders sent about orders waiting for a decision.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "starledger",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Admin API requests.",
		},
		[]string{"method", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "starledger",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of admin API requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method"},
	)
)

func init() {
	Registry.MustRegister(
		ordersCreated,
		decisions,
		referralCredits,
		notifications,
		reminders,
		httpRequests,
		httpDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func OrderCreated() {
	ordersCreated.Inc()
}

// Decision records one call to the approval coordinator. result is the
// error code, or "ok".
func Decision(decision, result string) {
	decisions.WithLabelValues(decision, result).Inc()
}

func ReferralCredited(policy string) {
	referralCredits.WithLabelValues(policy).Inc()
}

func Notification(target string, err error) {
	result := "ok"
	if err != nil {
		result = "failed"
	}
	notifications.WithLabelValues(target, result).Inc()
}

func ReminderSent() {
	reminders.Inc()
}

// Instrument wraps next with request count and latency collection.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		httpDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
		httpRequests.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
