package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	studentRequestsTotal  *prometheus.CounterVec
	studentLatencySeconds *prometheus.HistogramVec
	studentErrorsTotal    *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors for the student API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		studentRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "student_requests_total",
			Help: "Total number of student API requests served.",
		}, []string{"method", "route", "status"})

		studentLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "student_latency_seconds",
			Help:    "Latency distribution for student API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		studentErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "student_errors_total",
			Help: "Total number of error responses returned by student endpoints.",
		}, []string{"method", "route", "status"})

		prometheus.MustRegister(studentRequestsTotal, studentLatencySeconds, studentErrorsTotal)
	})
}

// StudentRequests exposes the counter for student API requests.
func StudentRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return studentRequestsTotal
}

// StudentLatency exposes the latency histogram for student API requests.
func StudentLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return studentLatencySeconds
}

// StudentErrors exposes the counter for student API error responses.
func StudentErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return studentErrorsTotal
}
