// Package stats registers the coordinator's Prometheus metrics. Nothing
// here is aware of mjit's internals beyond the mjit.MetricsSink interface it
// implements.
package stats

import "github.com/prometheus/client_golang/prometheus"

// Metrics is the coordinator's Prometheus metric set. The zero value is not
// usable; construct with NewMetrics.
type Metrics struct {
	queueLength     prometheus.Gauge
	activeUnits     prometheus.Gauge
	compactUnits    prometheus.Gauge
	evictions       prometheus.Counter
	compileTimeouts prometheus.Counter
	classSerials    prometheus.Gauge
	workerState     prometheus.Gauge
}

// NewMetrics constructs the metric set under the given namespace (typically
// "mjit").
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		queueLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "queue_length",
			Help: "Number of units waiting to be compiled.",
		}),
		activeUnits: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "active_units",
			Help: "Number of units with loaded compiled code.",
		}),
		compactUnits: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "compact_units",
			Help: "Number of units retained for compaction/debug output.",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "evictions_total",
			Help: "Total number of units evicted from the active list.",
		}),
		compileTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "compile_timeouts_total",
			Help: "Total number of synchronous waiters that timed out.",
		}),
		classSerials: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "class_serials",
			Help: "Number of valid class serials currently tracked.",
		}),
		workerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "worker_state",
			Help: "Worker state: 0=stopped, 1=running.",
		}),
	}
}

// Register adds every metric to reg. Call once at Init.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.queueLength, m.activeUnits, m.compactUnits,
		m.evictions, m.compileTimeouts, m.classSerials, m.workerState,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Unregister removes every metric from reg. Call once at Finish.
func (m *Metrics) Unregister(reg prometheus.Registerer) {
	reg.Unregister(m.queueLength)
	reg.Unregister(m.activeUnits)
	reg.Unregister(m.compactUnits)
	reg.Unregister(m.evictions)
	reg.Unregister(m.compileTimeouts)
	reg.Unregister(m.classSerials)
	reg.Unregister(m.workerState)
}

// The methods below satisfy mjit.MetricsSink without this package importing
// mjit (mjit imports stats' consumers would create a cycle; mjit instead
// declares the narrow interface and stats merely happens to implement it).

func (m *Metrics) SetQueueLength(v int64)      { m.queueLength.Set(float64(v)) }
func (m *Metrics) SetActiveUnits(v int64)      { m.activeUnits.Set(float64(v)) }
func (m *Metrics) SetCompactUnits(v int64)     { m.compactUnits.Set(float64(v)) }
func (m *Metrics) AddEvictions(v int64)        { m.evictions.Add(float64(v)) }
func (m *Metrics) AddCompileTimeouts(v int64)  { m.compileTimeouts.Add(float64(v)) }
func (m *Metrics) SetClassSerials(v int64)     { m.classSerials.Set(float64(v)) }
func (m *Metrics) SetWorkerState(v int32)      { m.workerState.Set(float64(v)) }
