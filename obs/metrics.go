package obs

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects Prometheus series for blueprint runs, namespaced
// "blueprint_": step_latency_ms and retries_total track a tool node's
// execution and the colleagues retry decision; suspensions_total and
// step_limit_exceeded_total track the HIL gate and the step ceiling.
// There is no inflight_nodes, queue_depth, or merge_conflicts_total
// series, since this engine runs one node at a time per thread_id and
// never merges concurrent deltas.
type Metrics struct {
	stepLatency       *prometheus.HistogramVec
	retries           *prometheus.CounterVec
	suspensions       *prometheus.CounterVec
	stepLimitExceeded *prometheus.CounterVec

	mu      sync.RWMutex
	enabled bool
}

// NewMetrics registers every series with registry (use
// prometheus.DefaultRegisterer for the global registry, or a fresh
// prometheus.NewRegistry() for test isolation).
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		enabled: true,
		stepLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "blueprint",
			Name:      "step_latency_ms",
			Help:      "Node execution duration in milliseconds",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000, 60000},
		}, []string{"node", "status"}),
		retries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blueprint",
			Name:      "retries_total",
			Help:      "Count of retry_same routing decisions, by node",
		}, []string{"node"}),
		suspensions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blueprint",
			Name:      "suspensions_total",
			Help:      "Count of runs suspended awaiting a human decision, by tool",
		}, []string{"tool"}),
		stepLimitExceeded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blueprint",
			Name:      "step_limit_exceeded_total",
			Help:      "Count of runs terminated for exceeding the step ceiling",
		}, []string{}),
	}
}

// RecordStepLatency records a single node execution's duration and outcome.
func (m *Metrics) RecordStepLatency(node string, latency time.Duration, status string) {
	if !m.isEnabled() {
		return
	}
	m.stepLatency.WithLabelValues(node, status).Observe(float64(latency.Milliseconds()))
}

// IncrementRetries records a retry_same routing decision for node.
func (m *Metrics) IncrementRetries(node string) {
	if !m.isEnabled() {
		return
	}
	m.retries.WithLabelValues(node).Inc()
}

// IncrementSuspensions records a suspension awaiting human approval for tool.
func (m *Metrics) IncrementSuspensions(tool string) {
	if !m.isEnabled() {
		return
	}
	m.suspensions.WithLabelValues(tool).Inc()
}

// IncrementStepLimitExceeded records a run terminated by the step ceiling.
func (m *Metrics) IncrementStepLimitExceeded() {
	if !m.isEnabled() {
		return
	}
	m.stepLimitExceeded.WithLabelValues().Inc()
}

func (m *Metrics) isEnabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enabled
}

// Disable turns off recording (tests).
func (m *Metrics) Disable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = false
}

// Enable turns recording back on.
func (m *Metrics) Enable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = true
}
