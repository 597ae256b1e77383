package stats

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics wiring follows the teacher's pattern (internal/api's RBAC
// metrics): package-level prometheus objects, built once behind a
// sync.Once and registered to the default registry, updated from the
// call sites that mutate the state they describe.
var (
	metricsOnce sync.Once

	runningInstances    prometheus.Gauge
	admissionDeniedTotal prometheus.Counter
	nodePoolSize        prometheus.Gauge
)

func initMetrics() {
	runningInstances = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "cvedix",
		Subsystem: "core",
		Name:      "running_instances",
		Help:      "Number of pipeline instances currently running.",
	})
	admissionDeniedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "cvedix",
		Subsystem: "core",
		Name:      "admission_denied_total",
		Help:      "Total number of instance creations rejected by the admission cap.",
	})
	nodePoolSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "cvedix",
		Subsystem: "core",
		Name:      "node_pool_size",
		Help:      "Number of pre-configured nodes currently held by the node pool.",
	})
	prometheus.MustRegister(runningInstances, admissionDeniedTotal, nodePoolSize)
}

func ensureMetrics() {
	metricsOnce.Do(initMetrics)
}

// InitMetrics eagerly registers the gauges/counters so /metrics reports
// zero values immediately at startup instead of only after the first
// mutation.
func InitMetrics() {
	ensureMetrics()
}

// RecordRunningInstances sets the running-instances gauge.
func RecordRunningInstances(n int) {
	ensureMetrics()
	runningInstances.Set(float64(n))
}

// RecordAdmissionDenied increments the admission-denied counter.
func RecordAdmissionDenied() {
	ensureMetrics()
	admissionDeniedTotal.Inc()
}

// RecordNodePoolSize sets the node-pool-size gauge.
func RecordNodePoolSize(n int) {
	ensureMetrics()
	nodePoolSize.Set(float64(n))
}
