// Package environment supplies per-supplier emissions values, either as a
// static industry-style figure or as individualized per-transaction data
// sourced from digital product passports.
package environment

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/iwvelando/fairmarket/internal/agents"
	"github.com/iwvelando/fairmarket/internal/policy"
	"github.com/iwvelando/fairmarket/pkg/constants"
)

// Settings holds the market-wide environmental reference data.
type Settings struct {
	// IndustryAverage is the static emissions value used for suppliers that
	// have no registered static value.
	IndustryAverage float64 `yaml:"industryAverage" mapstructure:"industryAverage"`
	// CO2PerKm is the transport emission factor per unit and km.
	CO2PerKm float64 `yaml:"co2PerKm" mapstructure:"co2PerKm"`
	// Variability is the default relative standard deviation of
	// individualized emissions.
	Variability float64 `yaml:"variability" mapstructure:"variability"`
}

// DefaultSettings returns the reference environmental settings.
func DefaultSettings() Settings {
	return Settings{
		IndustryAverage: constants.DefaultIndustryAverageCO2,
		CO2PerKm:        constants.DefaultCO2PerKm,
	}
}

// Validate rejects negative reference values.
func (s Settings) Validate() error {
	if s.IndustryAverage < 0 {
		return fmt.Errorf("industry average emissions must not be negative, got %g", s.IndustryAverage)
	}
	if s.CO2PerKm < 0 {
		return fmt.Errorf("co2 per km must not be negative, got %g", s.CO2PerKm)
	}
	if s.Variability < 0 {
		return fmt.Errorf("variability must not be negative, got %g", s.Variability)
	}
	return nil
}

// Provider answers emissions queries for one run. It only reads its inputs;
// in individualized mode it additionally consumes the run's random stream.
type Provider struct {
	mode     policy.EnvironmentalMode
	settings Settings
	rng      *rand.Rand
}

// NewProvider constructs a Provider. rng may be nil only in static mode.
func NewProvider(mode policy.EnvironmentalMode, settings Settings, rng *rand.Rand) (*Provider, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	switch mode {
	case policy.EnvironmentalStatic:
	case policy.EnvironmentalIndividualized:
		if rng == nil {
			return nil, fmt.Errorf("individualized emissions require a seeded random source")
		}
	default:
		return nil, fmt.Errorf("environmental mode %q is not supported", mode)
	}
	return &Provider{mode: mode, settings: settings, rng: rng}, nil
}

// Mode returns the provider's environmental data mode.
func (p *Provider) Mode() policy.EnvironmentalMode {
	return p.mode
}

// Emissions returns the per-unit emissions of the supplier for the given
// step. The value is never negative.
func (p *Provider) Emissions(s agents.Supplier, step int) float64 {
	if p.mode == policy.EnvironmentalStatic {
		return p.Static(s)
	}

	sigma := s.Variability
	if sigma == 0 {
		sigma = p.settings.Variability
	}
	mean := s.Emissions
	if sigma == 0 {
		return mean
	}
	return math.Max(0, mean*(1+sigma*p.rng.NormFloat64()))
}

// Static returns the registered static value of the supplier, falling back
// to the industry average.
func (p *Provider) Static(s agents.Supplier) float64 {
	if s.StaticEmissions != nil {
		return *s.StaticEmissions
	}
	return p.settings.IndustryAverage
}

// Transport returns the per-unit transport emissions between a supplier and
// a buyer. Unknown routes contribute nothing.
func (p *Provider) Transport(s agents.Supplier, buyerID string) float64 {
	d, ok := s.Distance(buyerID)
	if !ok {
		return 0
	}
	return d * p.settings.CO2PerKm
}
