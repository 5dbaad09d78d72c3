// Package metrics exports simulation runs as Prometheus metrics.
package metrics

import (
	"net/http"
	"sync"

	"github.com/iwvelando/fairmarket/internal/market"
	"github.com/iwvelando/fairmarket/pkg/constants"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is a market.Observer that feeds a private Prometheus registry.
// It is safe for concurrent use by independent runs. Scenario names and
// supplier IDs come from user configs, so each label keeps at most a fixed
// number of distinct values and folds the rest into "other".
type Recorder struct {
	registry *prometheus.Registry

	scenarios *labelSet
	suppliers *labelSet

	steps     *prometheus.CounterVec
	allocated *prometheus.CounterVec
	unmet     *prometheus.CounterVec
	co2       *prometheus.CounterVec
	jain      *prometheus.GaugeVec
	boost     *prometheus.GaugeVec

	runs           *prometheus.CounterVec
	cumulativeJain *prometheus.GaugeVec
	shareGini      *prometheus.GaugeVec
	participation  *prometheus.GaugeVec
}

// NewRecorder creates a recorder with its own registry and the default
// label caps.
func NewRecorder() *Recorder {
	return NewRecorderWithLimits(constants.MaxMetricScenarios, constants.MaxMetricSuppliers)
}

// NewRecorderWithLimits creates a recorder that keeps at most maxScenarios
// scenario and maxSuppliers supplier label values.
func NewRecorderWithLimits(maxScenarios, maxSuppliers int) *Recorder {
	r := &Recorder{
		registry:  prometheus.NewRegistry(),
		scenarios: newLabelSet(maxScenarios),
		suppliers: newLabelSet(maxSuppliers),
		steps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fairmarket_steps_total",
				Help: "Total number of simulated market steps.",
			},
			[]string{"scenario"},
		),
		allocated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fairmarket_allocated_units_total",
				Help: "Units allocated to each supplier.",
			},
			[]string{"scenario", "supplier"},
		),
		unmet: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fairmarket_unmet_units_total",
				Help: "Demand units that no supplier could serve.",
			},
			[]string{"scenario"},
		),
		co2: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fairmarket_co2_total",
				Help: "Emissions of allocated units by source.",
			},
			[]string{"scenario", "source"},
		),
		jain: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fairmarket_jain_index",
				Help: "Jain fairness index of the most recent step.",
			},
			[]string{"scenario"},
		),
		boost: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fairmarket_fairness_boost",
				Help: "Unified fairness boost of each supplier after the most recent step.",
			},
			[]string{"scenario", "supplier"},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fairmarket_runs_completed_total",
				Help: "Completed simulation runs.",
			},
			[]string{"scenario"},
		),
		cumulativeJain: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fairmarket_cumulative_jain_index",
				Help: "Jain index over cumulative allocations of the last completed run.",
			},
			[]string{"scenario"},
		),
		shareGini: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fairmarket_share_gini",
				Help: "Gini coefficient of supplier market shares of the last completed run.",
			},
			[]string{"scenario"},
		),
		participation: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fairmarket_participation_rate",
				Help: "Fraction of suppliers that received any allocation in the last completed run.",
			},
			[]string{"scenario"},
		),
	}

	r.registry.MustRegister(
		r.steps, r.allocated, r.unmet, r.co2, r.jain, r.boost,
		r.runs, r.cumulativeJain, r.shareGini, r.participation,
	)
	return r
}

// ObserveStep implements market.Observer.
func (r *Recorder) ObserveStep(info market.Info, snap market.Snapshot) {
	scenario := r.scenarios.value(info.Name)
	r.steps.WithLabelValues(scenario).Inc()
	r.unmet.WithLabelValues(scenario).Add(snap.Unmet)
	r.co2.WithLabelValues(scenario, "production").Add(snap.CO2Production)
	r.co2.WithLabelValues(scenario, "transport").Add(snap.CO2Transport)
	r.jain.WithLabelValues(scenario).Set(snap.Jain)
	for _, sup := range snap.Suppliers {
		supplier := r.suppliers.value(sup.ID)
		r.allocated.WithLabelValues(scenario, supplier).Add(sup.Allocated)
		if supplier != constants.OverflowLabel {
			r.boost.WithLabelValues(scenario, supplier).Set(sup.Boost)
		}
	}
}

// ObserveSummary implements market.Observer.
func (r *Recorder) ObserveSummary(summary market.Summary) {
	scenario := r.scenarios.value(summary.Name)
	r.runs.WithLabelValues(scenario).Inc()
	r.cumulativeJain.WithLabelValues(scenario).Set(summary.CumulativeJain)
	r.shareGini.WithLabelValues(scenario).Set(summary.ShareGini)
	r.participation.WithLabelValues(scenario).Set(summary.ParticipationRate)
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the recorder's metrics in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// labelSet admits label values until it holds max of them.
type labelSet struct {
	mu   sync.Mutex
	max  int
	seen map[string]struct{}
}

func newLabelSet(max int) *labelSet {
	return &labelSet{max: max, seen: make(map[string]struct{})}
}

func (l *labelSet) value(v string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.seen[v]; ok {
		return v
	}
	if len(l.seen) >= l.max {
		return constants.OverflowLabel
	}
	l.seen[v] = struct{}{}
	return v
}
