package policy

import (
	"fmt"
	"strings"

	"github.com/iwvelando/fairmarket/pkg/constants"
)

// ScenarioID identifies one of the reference experiment scenarios.
type ScenarioID string

const (
	// S1 is the cost-driven baseline on static LCA data.
	S1 ScenarioID = "S1"
	// S2A adds carbon pricing on static LCA data.
	S2A ScenarioID = "S2A"
	// S2B adds carbon pricing on individualized LCA data.
	S2B ScenarioID = "S2B"
	// S3 is fairness-oriented proportional allocation without carbon pricing.
	S3 ScenarioID = "S3"
	// S4A combines carbon pricing with balanced rotation/disparity fairness.
	S4A ScenarioID = "S4A"
	// S4B combines carbon pricing with disparity-only fairness.
	S4B ScenarioID = "S4B"
	// S4C combines carbon pricing with rotation-only fairness.
	S4C ScenarioID = "S4C"
)

// Scenarios lists every known scenario in presentation order.
func Scenarios() []ScenarioID {
	return []ScenarioID{S1, S2A, S2B, S3, S4A, S4B, S4C}
}

// ParseScenarioID resolves a scenario identifier case-insensitively. The
// key "S4" is accepted as an alias of S4A.
func ParseScenarioID(value string) (ScenarioID, error) {
	key := strings.ToUpper(strings.TrimSpace(value))
	if key == "S4" {
		return S4A, nil
	}
	for _, id := range Scenarios() {
		if string(id) == key {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: unknown scenario %q", ErrInvalidPolicy, value)
}

// Preset returns the policy of a reference scenario. Presets use the
// normalized scoring model of the reference experiments.
func (id ScenarioID) Preset() (Policy, error) {
	p := Default()
	p.Scoring = ScoringNormalized

	switch id {
	case S1:
		p.Name = "S1_Baseline"
	case S2A:
		p.Name = "S2A_CarbonPricing_StaticLCA"
		p.CarbonTax = constants.DefaultCarbonTax
	case S2B:
		p.Name = "S2B_CarbonPricing_IndividualizedLCA"
		p.CarbonTax = constants.DefaultCarbonTax
		p.Environmental = EnvironmentalIndividualized
	case S3:
		p.Name = "S3_FairnessOriented_IndividualizedLCA"
		p.CostWeight, p.EmissionWeight, p.FairnessWeight = 1.0/3.0, 1.0/3.0, 1.0/3.0
		p.Environmental = EnvironmentalIndividualized
		p.Allocation = AllocationProportional
	case S4A, S4B, S4C:
		p.CarbonTax = constants.DefaultCarbonTax
		p.CostWeight, p.EmissionWeight, p.FairnessWeight = 0.3, 0.4, 0.3
		p.Environmental = EnvironmentalIndividualized
		p.Allocation = AllocationProportional
		switch id {
		case S4A:
			p.Name = "S4_Combined_Balance"
		case S4B:
			p.Name = "S4_Combined_Disparity"
			p.Delta = 0
		case S4C:
			p.Name = "S4_Combined_Rotation"
			p.Delta = 1
		}
	default:
		return Policy{}, fmt.Errorf("%w: unknown scenario %q", ErrInvalidPolicy, string(id))
	}
	return p, nil
}

// Describe returns a one-line human description of the scenario.
func (id ScenarioID) Describe() string {
	switch id {
	case S1:
		return "cost-driven baseline, static LCA, sequential"
	case S2A:
		return "carbon pricing, static LCA, sequential"
	case S2B:
		return "carbon pricing, individualized LCA, sequential"
	case S3:
		return "fairness-oriented, individualized LCA, proportional"
	case S4A:
		return "carbon pricing + balanced fairness, individualized LCA, proportional"
	case S4B:
		return "carbon pricing + disparity fairness, individualized LCA, proportional"
	case S4C:
		return "carbon pricing + rotation fairness, individualized LCA, proportional"
	default:
		return "unknown scenario"
	}
}
