// Package policy defines the immutable, scenario-level configuration of a
// simulation run and the closed set of named reference scenarios.
package policy

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/iwvelando/fairmarket/pkg/constants"
)

// ErrInvalidPolicy is returned when a policy cannot be used for a run.
var ErrInvalidPolicy = errors.New("invalid policy")

// AllocationMode selects how buyer demand is split across suppliers.
type AllocationMode string

const (
	AllocationSequential   AllocationMode = "sequential"
	AllocationProportional AllocationMode = "proportional"
)

// EnvironmentalMode selects the source of emissions data.
type EnvironmentalMode string

const (
	EnvironmentalStatic         EnvironmentalMode = "static"
	EnvironmentalIndividualized EnvironmentalMode = "individualized"
)

// ScoringModel selects the scoring formula.
type ScoringModel string

const (
	// ScoringLinear is cost + tau*emissions - fairnessWeight*boost.
	ScoringLinear ScoringModel = "linear"
	// ScoringNormalized min-max normalises each criterion before weighting.
	ScoringNormalized ScoringModel = "normalized"
)

// WeightTransform turns scores into proportional allocation weights.
type WeightTransform string

const (
	WeightInverse WeightTransform = "inverse"
	WeightSoftmax WeightTransform = "softmax"
)

// ExpectedShare selects the reference share used by disparity fairness.
type ExpectedShare string

const (
	ExpectedEqual    ExpectedShare = "equal"
	ExpectedCapacity ExpectedShare = "capacity"
)

// Policy is the immutable configuration of one scenario run. It is passed
// by value and never mutated after a run starts.
type Policy struct {
	Name string `yaml:"name" mapstructure:"name" json:"name"`

	CarbonTax      float64 `yaml:"carbonTax" mapstructure:"carbonTax" json:"carbonTax"`
	FairnessWeight float64 `yaml:"fairnessWeight" mapstructure:"fairnessWeight" json:"fairnessWeight"`
	CostWeight     float64 `yaml:"costWeight" mapstructure:"costWeight" json:"costWeight"`
	EmissionWeight float64 `yaml:"emissionWeight" mapstructure:"emissionWeight" json:"emissionWeight"`

	// Delta mixes rotation (1) and disparity (0) fairness.
	Delta float64 `yaml:"delta" mapstructure:"delta" json:"delta"`

	Allocation    AllocationMode    `yaml:"allocation" mapstructure:"allocation" json:"allocation"`
	Environmental EnvironmentalMode `yaml:"environmental" mapstructure:"environmental" json:"environmental"`
	Scoring       ScoringModel      `yaml:"scoring" mapstructure:"scoring" json:"scoring"`
	Transform     WeightTransform   `yaml:"transform" mapstructure:"transform" json:"transform"`
	Temperature   float64           `yaml:"temperature" mapstructure:"temperature" json:"temperature"`

	// Window is the number of past steps disparity fairness looks at.
	// Zero means the full history.
	Window        int           `yaml:"window" mapstructure:"window" json:"window"`
	ExpectedShare ExpectedShare `yaml:"expectedShare" mapstructure:"expectedShare" json:"expectedShare"`
	DisparityCap  float64       `yaml:"disparityCap" mapstructure:"disparityCap" json:"disparityCap"`
}

// Default returns the baseline policy: cost-only sequential allocation on
// static emissions data with the linear scoring model.
func Default() Policy {
	return Policy{
		Name:          "default",
		CostWeight:    1.0,
		Delta:         constants.DefaultDelta,
		Allocation:    AllocationSequential,
		Environmental: EnvironmentalStatic,
		Scoring:       ScoringLinear,
		Transform:     WeightInverse,
		Temperature:   constants.DefaultSoftmaxTemperature,
		ExpectedShare: ExpectedEqual,
		DisparityCap:  constants.DefaultDisparityCap,
	}
}

// Normalize canonicalises enum spellings and fills zero-valued optional
// fields with defaults.
func (p Policy) Normalize() Policy {
	p.Allocation = AllocationMode(canonical(string(p.Allocation)))
	if p.Allocation == "" {
		p.Allocation = AllocationSequential
	}
	p.Environmental = EnvironmentalMode(canonical(string(p.Environmental)))
	switch p.Environmental {
	case "":
		p.Environmental = EnvironmentalStatic
	case "individual", "dpp":
		p.Environmental = EnvironmentalIndividualized
	}
	p.Scoring = ScoringModel(canonical(string(p.Scoring)))
	if p.Scoring == "" {
		p.Scoring = ScoringLinear
	}
	p.Transform = WeightTransform(canonical(string(p.Transform)))
	if p.Transform == "" {
		p.Transform = WeightInverse
	}
	p.ExpectedShare = ExpectedShare(canonical(string(p.ExpectedShare)))
	if p.ExpectedShare == "" {
		p.ExpectedShare = ExpectedEqual
	}
	if p.Temperature == 0 {
		p.Temperature = constants.DefaultSoftmaxTemperature
	}
	if p.DisparityCap == 0 {
		p.DisparityCap = constants.DefaultDisparityCap
	}
	return p
}

// Validate reports the first structural problem with the policy. Every
// error wraps ErrInvalidPolicy.
func (p Policy) Validate() error {
	numbers := []struct {
		name  string
		value float64
	}{
		{"carbon tax", p.CarbonTax},
		{"fairness weight", p.FairnessWeight},
		{"cost weight", p.CostWeight},
		{"emission weight", p.EmissionWeight},
		{"delta", p.Delta},
		{"temperature", p.Temperature},
		{"disparity cap", p.DisparityCap},
	}
	for _, n := range numbers {
		if math.IsNaN(n.value) || math.IsInf(n.value, 0) {
			return fmt.Errorf("%w: %s must be finite", ErrInvalidPolicy, n.name)
		}
		if n.value < 0 {
			return fmt.Errorf("%w: %s must not be negative, got %g", ErrInvalidPolicy, n.name, n.value)
		}
	}
	if p.Delta > 1 {
		return fmt.Errorf("%w: delta must be within [0, 1], got %g", ErrInvalidPolicy, p.Delta)
	}
	if p.Temperature == 0 {
		return fmt.Errorf("%w: temperature must be positive", ErrInvalidPolicy)
	}
	if p.DisparityCap < 1 {
		return fmt.Errorf("%w: disparity cap must be at least 1, got %g", ErrInvalidPolicy, p.DisparityCap)
	}
	if p.Window < 0 {
		return fmt.Errorf("%w: window must not be negative, got %d", ErrInvalidPolicy, p.Window)
	}

	switch p.Allocation {
	case AllocationSequential, AllocationProportional:
	default:
		return fmt.Errorf("%w: allocation mode %q is not one of %s or %s",
			ErrInvalidPolicy, p.Allocation, AllocationSequential, AllocationProportional)
	}
	switch p.Environmental {
	case EnvironmentalStatic, EnvironmentalIndividualized:
	default:
		return fmt.Errorf("%w: environmental mode %q is not one of %s or %s",
			ErrInvalidPolicy, p.Environmental, EnvironmentalStatic, EnvironmentalIndividualized)
	}
	switch p.Scoring {
	case ScoringLinear, ScoringNormalized:
	default:
		return fmt.Errorf("%w: scoring model %q is not supported", ErrInvalidPolicy, p.Scoring)
	}
	switch p.Transform {
	case WeightInverse, WeightSoftmax:
	default:
		return fmt.Errorf("%w: weight transform %q is not supported", ErrInvalidPolicy, p.Transform)
	}
	switch p.ExpectedShare {
	case ExpectedEqual, ExpectedCapacity:
	default:
		return fmt.Errorf("%w: expected share %q is not supported", ErrInvalidPolicy, p.ExpectedShare)
	}
	return nil
}

// FairnessActive reports whether fairness signals influence scoring.
func (p Policy) FairnessActive() bool {
	return p.FairnessWeight > 0
}

func canonical(value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	return strings.NewReplacer("-", "", "_", "").Replace(v)
}
