package itree

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus collectors describing the activity of an interpolation tree.
type Metrics struct {
	SubsumptionChecks prometheus.Counter
	SubsumptionHits   prometheus.Counter
	SolverFailures    prometheus.Counter
	EntriesStored     prometheus.Counter
	EntriesEvicted    prometheus.Counter
	NodesRemoved      prometheus.Counter
	TableSize         prometheus.Gauge
}

// Create the collectors and register them with reg. A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SubsumptionChecks: f.NewCounter(prometheus.CounterOpts{
			Namespace: "itree",
			Name:      "subsumption_checks_total",
			Help:      "Number of subsumption checks of the current state against the table.",
		}),
		SubsumptionHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: "itree",
			Name:      "subsumption_hits_total",
			Help:      "Number of states found subsumed by a table entry.",
		}),
		SolverFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: "itree",
			Name:      "solver_failures_total",
			Help:      "Number of interpolant queries the solver could not decide.",
		}),
		EntriesStored: f.NewCounter(prometheus.CounterOpts{
			Namespace: "itree",
			Name:      "table_entries_stored_total",
			Help:      "Number of entries added to the subsumption table.",
		}),
		EntriesEvicted: f.NewCounter(prometheus.CounterOpts{
			Namespace: "itree",
			Name:      "table_entries_evicted_total",
			Help:      "Number of entries evicted from a bounded subsumption table.",
		}),
		NodesRemoved: f.NewCounter(prometheus.CounterOpts{
			Namespace: "itree",
			Name:      "nodes_removed_total",
			Help:      "Number of tree nodes removed.",
		}),
		TableSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "itree",
			Name:      "table_entries",
			Help:      "Current number of entries in the subsumption table.",
		}),
	}
}
