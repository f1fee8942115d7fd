package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tixhub_http_requests_total",
			Help: "Total HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tixhub_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	billingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tixhub_billing_request_duration_seconds",
			Help:    "Billing provider call latency",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 8),
		},
		[]string{"operation", "outcome"},
	)

	ticketsGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tixhub_tickets_generated_total",
			Help: "Total tickets materialized by the generator",
		},
	)

	generationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tixhub_generation_failures_total",
			Help: "Ticket generation runs aborted, by reason",
		},
		[]string{"reason"},
	)

	billingInconsistencies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tixhub_billing_inconsistencies_total",
			Help: "Billing resources left behind after a failed compensation",
		},
		[]string{"resource"},
	)

	holdsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tixhub_holds_expired_total",
			Help: "Sweeper runs that released at least one expired hold",
		},
	)

	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tixhub_cache_lookups_total",
			Help: "Read-through cache lookups by outcome",
		},
		[]string{"outcome"},
	)

	rateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tixhub_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"scope"},
	)
)

func TrackHTTPRequest(method, route string, status int, d time.Duration) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// TrackBillingCall records one billing provider call. outcome is "ok" or "error".
func TrackBillingCall(operation string, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	billingDuration.WithLabelValues(operation, outcome).Observe(d.Seconds())
}

func TrackTicketsGenerated(n int) {
	ticketsGenerated.Add(float64(n))
}

func TrackGenerationFailure(reason string) {
	generationFailures.WithLabelValues(reason).Inc()
}

// TrackBillingInconsistency counts a billing resource ("event" or "price")
// that could not be cleaned up.
func TrackBillingInconsistency(resource string) {
	billingInconsistencies.WithLabelValues(resource).Inc()
}

func TrackHoldsExpired() {
	holdsExpired.Inc()
}

func TrackRateLimited(scope string) {
	rateLimited.WithLabelValues(scope).Inc()
}

func TrackCacheLookup(outcome string) {
	cacheLookups.WithLabelValues(outcome).Inc()
}
