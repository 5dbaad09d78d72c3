// Package scoring ranks suppliers for a buyer request. Lower scores are
// better: cheaper, cleaner and historically under-served suppliers rank first.
package scoring

import (
	"fmt"
	"sort"

	"github.com/iwvelando/fairmarket/internal/policy"
	"github.com/iwvelando/fairmarket/pkg/mathutil"
)

// Candidate is everything the scorer needs to know about one supplier.
type Candidate struct {
	ID        string
	Cost      float64
	Emissions float64
	// Boost is the fairness priority; larger means more deserving.
	Boost float64
}

// Scorer maps candidates to scores, aligned with the input order.
type Scorer interface {
	Score(candidates []Candidate) []float64
}

// CarbonAdjustedCost returns c + tau*e.
func CarbonAdjustedCost(cost, emissions, tax float64) float64 {
	return cost + tax*emissions
}

// Linear scores cost*w_c + tax*emissions*w_c + emissions*w_e - boost*w_f.
// With w_c = 1 and w_e = 0 this is cost + tau*emissions - fairnessWeight*boost.
type Linear struct {
	Tax            float64
	CostWeight     float64
	EmissionWeight float64
	FairnessWeight float64
}

// Score implements Scorer.
func (l Linear) Score(candidates []Candidate) []float64 {
	out := make([]float64, len(candidates))
	for i, c := range candidates {
		out[i] = l.CostWeight*CarbonAdjustedCost(c.Cost, c.Emissions, l.Tax) +
			l.EmissionWeight*c.Emissions -
			l.FairnessWeight*c.Boost
	}
	return out
}

// Normalized min-max normalises carbon-adjusted cost, emissions and the
// negated boost over the candidate set before weighting them, so scores lie
// in [0, w_c+w_e+w_f] regardless of units.
type Normalized struct {
	Tax            float64
	CostWeight     float64
	EmissionWeight float64
	FairnessWeight float64
}

// Score implements Scorer.
func (n Normalized) Score(candidates []Candidate) []float64 {
	costs := make([]float64, len(candidates))
	emissions := make([]float64, len(candidates))
	penalties := make([]float64, len(candidates))
	for i, c := range candidates {
		costs[i] = CarbonAdjustedCost(c.Cost, c.Emissions, n.Tax)
		emissions[i] = c.Emissions
		penalties[i] = -c.Boost
	}

	cN := mathutil.MinMaxNormalize(costs)
	eN := mathutil.MinMaxNormalize(emissions)
	fN := make([]float64, len(candidates))
	if n.FairnessWeight > 0 {
		fN = mathutil.MinMaxNormalize(penalties)
	}

	out := make([]float64, len(candidates))
	for i := range candidates {
		out[i] = n.CostWeight*cN[i] + n.EmissionWeight*eN[i] + n.FairnessWeight*fN[i]
	}
	return out
}

// New returns the scorer selected by the policy.
func New(p policy.Policy) (Scorer, error) {
	switch p.Scoring {
	case policy.ScoringLinear:
		return Linear{Tax: p.CarbonTax, CostWeight: p.CostWeight, EmissionWeight: p.EmissionWeight, FairnessWeight: p.FairnessWeight}, nil
	case policy.ScoringNormalized:
		return Normalized{Tax: p.CarbonTax, CostWeight: p.CostWeight, EmissionWeight: p.EmissionWeight, FairnessWeight: p.FairnessWeight}, nil
	default:
		return nil, fmt.Errorf("scoring model %q is not supported", p.Scoring)
	}
}

// Ranked is a candidate together with its score.
type Ranked struct {
	Candidate
	Score float64
	// Index is the candidate's position in the slice passed to Rank.
	Index int
}

// Rank orders candidates ascending by score; equal scores fall back to
// supplier ID order.
func Rank(candidates []Candidate, scores []float64) []Ranked {
	ranked := make([]Ranked, len(candidates))
	for i, c := range candidates {
		ranked[i] = Ranked{Candidate: c, Score: scores[i], Index: i}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score < ranked[j].Score
		}
		return ranked[i].ID < ranked[j].ID
	})
	return ranked
}
