package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clinicbook",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint and status.",
		},
		[]string{"endpoint", "status"},
	)

	bookingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clinicbook",
			Name:      "bookings_created_total",
			Help:      "Successfully persisted bookings.",
		},
	)

	bookingRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clinicbook",
			Name:      "booking_rejections_total",
			Help:      "Rejected booking submissions by reason.",
		},
		[]string{"reason"},
	)

	notifyFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clinicbook",
			Name:      "notify_failures_total",
			Help:      "Staff notification failures by channel.",
		},
		[]string{"channel"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, bookingsCreated, bookingRejections, notifyFailures)
	})
}

// IncHTTP increments the request counter for an endpoint/status pair.
func IncHTTP(endpoint, status string) {
	httpRequests.WithLabelValues(endpoint, status).Inc()
}

// IncBookingCreated counts one persisted booking.
func IncBookingCreated() {
	bookingsCreated.Inc()
}

// IncBookingRejected counts one rejected submission by reason.
func IncBookingRejected(reason string) {
	bookingRejections.WithLabelValues(reason).Inc()
}

// IncNotifyFailure counts one failed staff notification attempt.
func IncNotifyFailure(channel string) {
	notifyFailures.WithLabelValues(channel).Inc()
}
