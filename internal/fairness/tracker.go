package fairness

import (
	"fmt"

	"github.com/iwvelando/fairmarket/internal/policy"
	"github.com/iwvelando/fairmarket/pkg/mathutil"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
)

// Signals is the fairness state of one supplier after the latest update.
type Signals struct {
	// Wait is the number of steps since the supplier last received units.
	Wait int
	// Cumulative is the total quantity allocated over the whole run.
	Cumulative float64
	// Share is the supplier's share of the windowed allocation history.
	Share float64
	// Expected is the share the supplier would hold under equality.
	Expected float64

	Rotation  float64
	Disparity float64
	// Boost mixes rotation and disparity by delta and feeds scoring.
	Boost float64
}

// Config parameterises a Tracker.
type Config struct {
	Window        int
	Delta         float64
	DisparityCap  float64
	ExpectedShare policy.ExpectedShare
	// Capacities is only used with capacity-weighted expected shares.
	Capacities []float64
}

// ConfigFromPolicy extracts the tracker settings from a policy.
func ConfigFromPolicy(p policy.Policy, capacities []float64) Config {
	return Config{
		Window:        p.Window,
		Delta:         p.Delta,
		DisparityCap:  p.DisparityCap,
		ExpectedShare: p.ExpectedShare,
		Capacities:    capacities,
	}
}

// Tracker keeps per-supplier allocation history. Supplier order is fixed at
// construction and every slice exchanged with the tracker follows it.
type Tracker struct {
	logger *zap.Logger
	ids    []string
	cfg    Config

	expected   []float64
	history    [][]float64 // ring buffer of per-step allocations, used when windowed
	windowSum  []float64
	cumulative []float64
	signals    []Signals

	steps    int
	lastJain float64
}

// NewTracker creates a tracker for the given suppliers.
func NewTracker(logger *zap.Logger, ids []string, cfg Config) (*Tracker, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("fairness tracker requires at least one supplier")
	}
	if cfg.Window < 0 {
		return nil, fmt.Errorf("fairness window must not be negative, got %d", cfg.Window)
	}
	if cfg.Delta < 0 || cfg.Delta > 1 {
		return nil, fmt.Errorf("fairness delta must be within [0, 1], got %g", cfg.Delta)
	}
	if cfg.DisparityCap < 1 {
		return nil, fmt.Errorf("disparity cap must be at least 1, got %g", cfg.DisparityCap)
	}

	n := len(ids)
	t := &Tracker{
		logger:     logger,
		ids:        append([]string(nil), ids...),
		cfg:        cfg,
		expected:   expectedShares(n, cfg),
		windowSum:  make([]float64, n),
		cumulative: make([]float64, n),
		signals:    make([]Signals, n),
		lastJain:   1,
	}
	if cfg.Window > 0 {
		t.history = make([][]float64, 0, cfg.Window)
	}
	for i := range t.signals {
		t.signals[i].Expected = t.expected[i]
	}
	return t, nil
}

func expectedShares(n int, cfg Config) []float64 {
	out := make([]float64, n)
	if cfg.ExpectedShare == policy.ExpectedCapacity && len(cfg.Capacities) == n {
		total := floats.Sum(cfg.Capacities)
		if mathutil.IsPositive(total) {
			for i, c := range cfg.Capacities {
				out[i] = c / total
			}
			return out
		}
	}
	for i := range out {
		out[i] = 1 / float64(n)
	}
	return out
}

// Record folds one finalized step of allocations into the history,
// recomputes every supplier's signals and returns the step's Jain index.
// quantities must be aligned with the supplier order given at construction.
func (t *Tracker) Record(quantities []float64) (float64, error) {
	if len(quantities) != len(t.ids) {
		return 0, fmt.Errorf("expected %d allocation quantities, got %d", len(t.ids), len(quantities))
	}
	for i, q := range quantities {
		if q < 0 {
			return 0, fmt.Errorf("supplier %s has negative allocation %g", t.ids[i], q)
		}
	}

	step := append([]float64(nil), quantities...)
	floats.Add(t.cumulative, step)
	if t.cfg.Window > 0 {
		if len(t.history) == t.cfg.Window {
			floats.Sub(t.windowSum, t.history[0])
			t.history = t.history[1:]
		}
		t.history = append(t.history, step)
	}
	floats.Add(t.windowSum, step)
	t.steps++

	total := floats.Sum(t.windowSum)
	for i, q := range step {
		sig := &t.signals[i]
		if mathutil.IsPositive(q) {
			sig.Wait = 0
		} else {
			sig.Wait++
		}
		sig.Cumulative = t.cumulative[i]
		sig.Rotation = RotationBoost(sig.Wait)

		if mathutil.IsPositive(total) {
			sig.Share = t.windowSum[i] / total
			sig.Disparity = DisparityBoost(sig.Share, t.expected[i], t.cfg.DisparityCap)
		} else {
			sig.Share = 0
			sig.Disparity = 0
		}
		sig.Boost = t.cfg.Delta*sig.Rotation + (1-t.cfg.Delta)*sig.Disparity
	}

	t.lastJain = JainIndex(step)
	t.logger.Debug("fairness updated",
		zap.String("op", "fairness.Record"),
		zap.Int("step", t.steps),
		zap.Float64("jain", t.lastJain),
		zap.Float64("windowTotal", total),
	)
	return t.lastJain, nil
}

// RotationBoost grows from 0 (just served) towards 1 with every step a
// supplier waits.
func RotationBoost(wait int) float64 {
	if wait <= 0 {
		return 0
	}
	return 1 - 1/(1+float64(wait))
}

// DisparityBoost is 1 - clamp(share/expected, 0, limit): positive for
// under-served suppliers, negative for over-served ones.
func DisparityBoost(share, expected, limit float64) float64 {
	if !mathutil.IsPositive(expected) {
		return 0
	}
	return 1 - mathutil.Clamp(share/expected, 0, limit)
}

// Signals returns the current signals of the supplier at index i.
func (t *Tracker) Signals(i int) Signals {
	return t.signals[i]
}

// Boosts returns the current boost of every supplier in tracker order.
func (t *Tracker) Boosts() []float64 {
	out := make([]float64, len(t.signals))
	for i, s := range t.signals {
		out[i] = s.Boost
	}
	return out
}

// Cumulative returns the run-to-date allocation per supplier.
func (t *Tracker) Cumulative() []float64 {
	return append([]float64(nil), t.cumulative...)
}

// Expected returns the expected share per supplier.
func (t *Tracker) Expected() []float64 {
	return append([]float64(nil), t.expected...)
}

// LastJain returns the Jain index of the most recent step, or 1 before the
// first step.
func (t *Tracker) LastJain() float64 {
	return t.lastJain
}

// CumulativeJain returns the Jain index over run-to-date totals.
func (t *Tracker) CumulativeJain() float64 {
	return JainIndex(t.cumulative)
}

// Steps returns the number of recorded steps.
func (t *Tracker) Steps() int {
	return t.steps
}
