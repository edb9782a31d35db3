package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "civic"

type promCollectors struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errors          *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	ticketsIssued   *prometheus.CounterVec
	ticketsServed   *prometheus.CounterVec
	emptyDispatches prometheus.Counter
}

func newPromCollectors(reg prometheus.Registerer) *promCollectors {
	c := &promCollectors{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route and method.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"route", "method"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "errors_total",
			Help:      "Failed HTTP requests by route, method and error code.",
		}, []string{"route", "method", "code"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "reports",
			Name:      "transitions_total",
			Help:      "Committed report status changes.",
		}, []string{"from", "to"}),
		ticketsIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "queue",
			Name:      "tickets_issued_total",
			Help:      "Queue tickets handed out per service.",
		}, []string{"service_id"}),
		ticketsServed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "queue",
			Name:      "tickets_served_total",
			Help:      "Queue tickets served per service.",
		}, []string{"service_id"}),
		emptyDispatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "queue",
			Name:      "empty_dispatches_total",
			Help:      "Serve-next calls that found every queue empty.",
		}),
	}
	reg.MustRegister(
		c.requests,
		c.requestDuration,
		c.errors,
		c.transitions,
		c.ticketsIssued,
		c.ticketsServed,
		c.emptyDispatches,
	)
	return c
}

func serviceLabel(serviceID int64) string {
	return strconv.FormatInt(serviceID, 10)
}
