package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics keeps in-memory counters for the JSON snapshot and mirrors them into
// a private prometheus registry.
type Metrics struct {
	registry *prometheus.Registry
	prom     *promCollectors

	mu              sync.Mutex
	requestCount    map[string]int64
	errorCount      map[string]int64
	transitionCount map[string]int64
	ticketsIssued   map[int64]int64
	ticketsServed   map[int64]int64
	emptyDispatches int64
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Requests        map[string]int64 `json:"requests"`
	Errors          map[string]int64 `json:"errors"`
	Transitions     map[string]int64 `json:"transitions"`
	TicketsIssued   map[string]int64 `json:"tickets_issued"`
	TicketsServed   map[string]int64 `json:"tickets_served"`
	EmptyDispatches int64            `json:"empty_dispatches"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	return &Metrics{
		registry:        registry,
		prom:            newPromCollectors(registry),
		requestCount:    make(map[string]int64),
		errorCount:      make(map[string]int64),
		transitionCount: make(map[string]int64),
		ticketsIssued:   make(map[int64]int64),
		ticketsServed:   make(map[int64]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.prom.requests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.prom.requestDuration.WithLabelValues(path, method).Observe(duration.Seconds())
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.prom.errors.WithLabelValues(path, method, code).Inc()
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordTransition counts a committed report status change.
func (m *Metrics) RecordTransition(from, to string) {
	if m == nil {
		return
	}
	m.prom.transitions.WithLabelValues(from, to).Inc()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitionCount[from+"->"+to]++
}

// RecordTicketIssued counts a ticket handed out for a service.
func (m *Metrics) RecordTicketIssued(serviceID int64) {
	if m == nil {
		return
	}
	m.prom.ticketsIssued.WithLabelValues(serviceLabel(serviceID)).Inc()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ticketsIssued[serviceID]++
}

// RecordDispatch counts a serve-next call; serviceID is nil when every queue was empty.
func (m *Metrics) RecordDispatch(serviceID *int64) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if serviceID == nil {
		m.prom.emptyDispatches.Inc()
		m.emptyDispatches++
		return
	}
	m.prom.ticketsServed.WithLabelValues(serviceLabel(*serviceID)).Inc()
	m.ticketsServed[*serviceID]++
}

// Registry exposes the prometheus registry backing the counters.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

// Snapshot copies the current counters.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		Requests:        copyCounts(m.requestCount),
		Errors:          copyCounts(m.errorCount),
		Transitions:     copyCounts(m.transitionCount),
		TicketsIssued:   copyServiceCounts(m.ticketsIssued),
		TicketsServed:   copyServiceCounts(m.ticketsServed),
		EmptyDispatches: m.emptyDispatches,
	}
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}

func copyCounts(src map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func copyServiceCounts(src map[int64]int64) map[string]int64 {
	out := make(map[string]int64, len(src))
	for k, v := range src {
		out[strconv.FormatInt(k, 10)] = v
	}
	return out
}
