// Package metrics exports scenario results and pool statistics as Prometheus metrics.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/banknovo/poolbench/bench"
)

const namespace = "poolbench"

// Recorder is a bench.Reporter that keeps the last result of each scenario in
// Prometheus collectors.
type Recorder struct {
	elapsed  *prometheus.GaugeVec
	inserts  *prometheus.CounterVec
	stored   *prometheus.GaugeVec
	created  *prometheus.GaugeVec
	maxOpen  *prometheus.GaugeVec
	waits    *prometheus.GaugeVec
	waitTime *prometheus.GaugeVec
}

// NewRecorder creates the collectors and registers them with reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	scenario := []string{"scenario"}
	r := &Recorder{
		elapsed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scenario_elapsed_seconds",
			Help:      "Wall-clock time of the last insert loop per scenario.",
		}, scenario),
		inserts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inserts_total",
			Help:      "Inserts attempted, by scenario and result.",
		}, []string{"scenario", "result"}),
		stored: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scenario_rows_stored",
			Help:      "Rows found in the scratch table after the last loop, when verified.",
		}, scenario),
		created: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "connections_created",
			Help:      "Physical connections the pool opened during the last loop.",
		}, scenario),
		maxOpen: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "max_open_connections",
			Help:      "Configured maximum pool size.",
		}, scenario),
		waits: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "wait_count",
			Help:      "Connections waited for during the last loop.",
		}, scenario),
		waitTime: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "wait_seconds",
			Help:      "Time blocked waiting for a connection during the last loop.",
		}, scenario),
	}

	for _, c := range []prometheus.Collector{r.elapsed, r.inserts, r.stored, r.created, r.maxOpen, r.waits, r.waitTime} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return r, nil
}

// Report implements bench.Reporter.
func (r *Recorder) Report(s bench.Summary) {
	r.elapsed.WithLabelValues(s.Scenario).Set(s.Elapsed.Seconds())
	r.inserts.WithLabelValues(s.Scenario, "success").Add(float64(s.Succeeded))
	r.inserts.WithLabelValues(s.Scenario, "failure").Add(float64(s.Failed))
	if s.Stored >= 0 {
		r.stored.WithLabelValues(s.Scenario).Set(float64(s.Stored))
	}
	if s.Pool != nil {
		r.created.WithLabelValues(s.Scenario).Set(float64(s.Pool.Created))
		r.maxOpen.WithLabelValues(s.Scenario).Set(float64(s.Pool.MaxOpenConnections))
		r.waits.WithLabelValues(s.Scenario).Set(float64(s.Pool.WaitCount))
		r.waitTime.WithLabelValues(s.Scenario).Set(s.Pool.WaitDuration.Seconds())
	}
}

// WriteFile writes everything g gathers to path in the text exposition format.
func WriteFile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
