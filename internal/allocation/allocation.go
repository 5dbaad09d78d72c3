// Package allocation matches one buyer request against the suppliers that
// still have capacity in the current step.
package allocation

import (
	"fmt"
	"math"

	"github.com/iwvelando/fairmarket/internal/policy"
	"github.com/iwvelando/fairmarket/internal/scoring"
	"github.com/iwvelando/fairmarket/pkg/mathutil"
	"go.uber.org/zap"
)

// Offer is a scored candidate together with the capacity it has left this
// step. Allocate decrements Remaining in place.
type Offer struct {
	scoring.Candidate
	Remaining float64
}

// Line is one (supplier, quantity) pair of an allocation decision.
type Line struct {
	Supplier string  `json:"supplier"`
	Quantity float64 `json:"quantity"`
}

// Decision is the outcome of a single buyer request.
type Decision struct {
	Buyer     string  `json:"buyer"`
	Demand    float64 `json:"demand"`
	Lines     []Line  `json:"lines"`
	Allocated float64 `json:"allocated"`
	Unmet     float64 `json:"unmet"`
}

// Quantity returns the quantity allocated to a supplier in this decision.
func (d Decision) Quantity(supplier string) float64 {
	total := 0.0
	for _, l := range d.Lines {
		if l.Supplier == supplier {
			total += l.Quantity
		}
	}
	return total
}

// Engine allocates demand in either sequential or proportional mode.
type Engine struct {
	logger      *zap.Logger
	mode        policy.AllocationMode
	transform   policy.WeightTransform
	temperature float64
	scorer      scoring.Scorer
}

// NewEngine constructs an allocation engine from the policy and scorer.
func NewEngine(logger *zap.Logger, p policy.Policy, scorer scoring.Scorer) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if scorer == nil {
		return nil, fmt.Errorf("allocation engine requires a scorer")
	}
	switch p.Allocation {
	case policy.AllocationSequential, policy.AllocationProportional:
	default:
		return nil, fmt.Errorf("allocation mode %q is not supported", p.Allocation)
	}
	switch p.Transform {
	case policy.WeightInverse, policy.WeightSoftmax:
	default:
		return nil, fmt.Errorf("weight transform %q is not supported", p.Transform)
	}
	if p.Temperature <= 0 {
		return nil, fmt.Errorf("softmax temperature must be positive, got %g", p.Temperature)
	}
	return &Engine{
		logger:      logger,
		mode:        p.Allocation,
		transform:   p.Transform,
		temperature: p.Temperature,
		scorer:      scorer,
	}, nil
}

// Mode returns the engine's allocation mode.
func (e *Engine) Mode() policy.AllocationMode {
	return e.mode
}

// Allocate serves one buyer request from the offers. Offers without
// remaining capacity are ignored; whatever cannot be served is reported as
// unmet demand.
func (e *Engine) Allocate(buyer string, demand float64, offers []Offer) Decision {
	d := Decision{Buyer: buyer, Demand: demand}
	if demand <= 0 {
		return d
	}

	eligible := make([]int, 0, len(offers))
	for i := range offers {
		if mathutil.IsPositive(offers[i].Remaining) {
			eligible = append(eligible, i)
		}
	}
	if len(eligible) == 0 {
		d.Unmet = demand
		e.logger.Debug("no eligible suppliers",
			zap.String("op", "allocation.Allocate"),
			zap.String("buyer", buyer),
			zap.Float64("demand", demand),
		)
		return d
	}

	candidates := make([]scoring.Candidate, len(eligible))
	for k, i := range eligible {
		candidates[k] = offers[i].Candidate
	}
	scores := e.scorer.Score(candidates)

	var quantities []float64
	switch e.mode {
	case policy.AllocationProportional:
		quantities = e.proportional(demand, offers, eligible, scores)
	default:
		quantities = e.sequential(demand, offers, eligible, candidates, scores)
	}

	for k, i := range eligible {
		q := quantities[k]
		if !mathutil.IsPositive(q) {
			continue
		}
		offers[i].Remaining = math.Max(0, offers[i].Remaining-q)
		d.Lines = append(d.Lines, Line{Supplier: offers[i].ID, Quantity: q})
		d.Allocated += q
	}
	d.Unmet = math.Max(0, demand-d.Allocated)
	if mathutil.IsZero(d.Unmet) {
		d.Unmet = 0
	}
	return d
}

// sequential fills the request from the best-ranked supplier downwards.
func (e *Engine) sequential(demand float64, offers []Offer, eligible []int, candidates []scoring.Candidate, scores []float64) []float64 {
	quantities := make([]float64, len(eligible))
	rest := demand
	for _, r := range scoring.Rank(candidates, scores) {
		if !mathutil.IsPositive(rest) {
			break
		}
		q := math.Min(rest, offers[eligible[r.Index]].Remaining)
		quantities[r.Index] = q
		rest -= q
	}
	return quantities
}

// proportional splits the request by weight, capping at remaining capacity
// and redistributing capped remainders over suppliers with spare capacity
// until the request is served or no spare capacity is left. Weights are
// recomputed over the active suppliers on every pass.
func (e *Engine) proportional(demand float64, offers []Offer, eligible []int, scores []float64) []float64 {
	quantities := make([]float64, len(eligible))
	spare := make([]float64, len(eligible))
	active := make([]int, 0, len(eligible))
	for k, i := range eligible {
		spare[k] = offers[i].Remaining
		active = append(active, k)
	}

	rest := demand
	for pass := 0; mathutil.IsPositive(rest) && len(active) > 0; pass++ {
		weights := e.passWeights(scores, active)
		total := 0.0
		for _, w := range weights {
			total += w
		}

		budget := rest
		next := make([]int, 0, len(active))
		for j, k := range active {
			q := math.Min(budget*weights[j]/total, spare[k])
			quantities[k] += q
			spare[k] -= q
			rest -= q
			if mathutil.IsPositive(spare[k]) {
				next = append(next, k)
			}
		}
		if pass > 0 {
			e.logger.Debug("redistributed capped remainder",
				zap.String("op", "allocation.proportional"),
				zap.Int("pass", pass),
				zap.Float64("rest", rest),
				zap.Int("active", len(next)),
			)
		}
		if len(next) == len(active) {
			break
		}
		active = next
	}
	return quantities
}

// passWeights returns the weights of the active suppliers, indexed like
// active. Softmax is taken relative to the best active score so capped
// suppliers cannot push the rest below float range; inverse weights keep the
// shift of the full request. When the weights do not sum to a positive
// finite value every active supplier gets the same weight.
func (e *Engine) passWeights(scores []float64, active []int) []float64 {
	weights := make([]float64, len(active))
	if e.transform == policy.WeightSoftmax {
		sub := make([]float64, len(active))
		for j, k := range active {
			sub[j] = scores[k]
		}
		weights = Weights(e.transform, sub, e.temperature)
	} else {
		all := Weights(e.transform, scores, e.temperature)
		for j, k := range active {
			weights[j] = all[k]
		}
	}

	total := 0.0
	for _, w := range weights {
		total += w
	}
	if mathutil.IsPositive(total) && !math.IsInf(total, 0) && !math.IsNaN(total) {
		return weights
	}
	e.logger.Debug("degenerate weights, splitting evenly",
		zap.String("op", "allocation.passWeights"),
		zap.Int("active", len(active)),
	)
	for j := range weights {
		weights[j] = 1
	}
	return weights
}

// Weights converts scores to non-negative allocation weights. The inverse
// transform uses 1/score, shifting scores so the smallest equals 1 when any
// score is not positive. The softmax transform uses exp(-(s-min)/temperature).
func Weights(transform policy.WeightTransform, scores []float64, temperature float64) []float64 {
	out := make([]float64, len(scores))
	if len(scores) == 0 {
		return out
	}
	lo := scores[0]
	for _, s := range scores[1:] {
		lo = math.Min(lo, s)
	}

	switch transform {
	case policy.WeightSoftmax:
		for i, s := range scores {
			out[i] = math.Exp(-(s - lo) / temperature)
		}
	default:
		shift := 0.0
		if lo <= 0 {
			shift = 1 - lo
		}
		for i, s := range scores {
			out[i] = 1 / (s + shift)
		}
	}
	return out
}
