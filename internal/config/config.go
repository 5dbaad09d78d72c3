// Package config defines the data structures related to configuration and
// includes functions for loading the config and turning it into a run setup.
package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/iwvelando/fairmarket/internal/agents"
	"github.com/iwvelando/fairmarket/internal/environment"
	"github.com/iwvelando/fairmarket/internal/market"
	"github.com/iwvelando/fairmarket/internal/policy"
	"github.com/iwvelando/fairmarket/pkg/constants"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for one fairmarket run.
type Configuration struct {
	Logging     LoggingConfig     `yaml:"logging,omitempty" mapstructure:"logging"`
	Output      OutputConfig      `yaml:"output,omitempty" mapstructure:"output"`
	Simulation  SimulationConfig  `yaml:"simulation" mapstructure:"simulation"`
	Environment EnvironmentConfig `yaml:"environment,omitempty" mapstructure:"environment"`
	Suppliers   []agents.Supplier `yaml:"suppliers,omitempty" mapstructure:"suppliers"`
	Buyers      []agents.Buyer    `yaml:"buyers,omitempty" mapstructure:"buyers"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty" mapstructure:"level"`           // debug, info, warn, error
	Format     string `yaml:"format,omitempty" mapstructure:"format"`         // json, console
	OutputFile string `yaml:"outputFile,omitempty" mapstructure:"outputFile"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty" mapstructure:"format"` // pretty, csv
}

// SimulationConfig selects the scenario and the run length. Scenario picks
// a preset policy; Policy overrides individual fields on top of it.
type SimulationConfig struct {
	Name     string          `yaml:"name,omitempty" mapstructure:"name"`
	Scenario string          `yaml:"scenario,omitempty" mapstructure:"scenario"`
	Steps    int             `yaml:"steps,omitempty" mapstructure:"steps"`
	Seed     *int64          `yaml:"seed,omitempty" mapstructure:"seed"`
	Policy   PolicyOverrides `yaml:"policy,omitempty" mapstructure:"policy"`
}

// PolicyOverrides holds optional policy fields. Unset fields keep the
// scenario preset (or default policy) value.
type PolicyOverrides struct {
	CarbonTax      *float64 `yaml:"carbonTax,omitempty" mapstructure:"carbonTax"`
	FairnessWeight *float64 `yaml:"fairnessWeight,omitempty" mapstructure:"fairnessWeight"`
	CostWeight     *float64 `yaml:"costWeight,omitempty" mapstructure:"costWeight"`
	EmissionWeight *float64 `yaml:"emissionWeight,omitempty" mapstructure:"emissionWeight"`
	Delta          *float64 `yaml:"delta,omitempty" mapstructure:"delta"`
	Allocation     string   `yaml:"allocation,omitempty" mapstructure:"allocation"`
	Environmental  string   `yaml:"environmental,omitempty" mapstructure:"environmental"`
	Scoring        string   `yaml:"scoring,omitempty" mapstructure:"scoring"`
	Transform      string   `yaml:"transform,omitempty" mapstructure:"transform"`
	Temperature    *float64 `yaml:"temperature,omitempty" mapstructure:"temperature"`
	Window         *int     `yaml:"window,omitempty" mapstructure:"window"`
	ExpectedShare  string   `yaml:"expectedShare,omitempty" mapstructure:"expectedShare"`
	DisparityCap   *float64 `yaml:"disparityCap,omitempty" mapstructure:"disparityCap"`
}

// EnvironmentConfig holds optional environmental provider settings.
type EnvironmentConfig struct {
	IndustryAverage *float64 `yaml:"industryAverage,omitempty" mapstructure:"industryAverage"`
	CO2PerKm        *float64 `yaml:"co2PerKm,omitempty" mapstructure:"co2PerKm"`
	Variability     *float64 `yaml:"variability,omitempty" mapstructure:"variability"`
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yml")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %w", err)
	}
	return decode(v)
}

// LoadConfigurationFromReader loads a YAML-formatted configuration from r.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := viper.New()
	v.SetConfigType("yml")

	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config data, %w", err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}
	return &configuration, nil
}

// Policy resolves the scenario preset and applies the overrides.
func (c *Configuration) Policy() (policy.Policy, error) {
	p := policy.Default()
	if strings.TrimSpace(c.Simulation.Scenario) != "" {
		id, err := policy.ParseScenarioID(c.Simulation.Scenario)
		if err != nil {
			return policy.Policy{}, err
		}
		if p, err = id.Preset(); err != nil {
			return policy.Policy{}, err
		}
	}

	o := c.Simulation.Policy
	setFloat(&p.CarbonTax, o.CarbonTax)
	setFloat(&p.FairnessWeight, o.FairnessWeight)
	setFloat(&p.CostWeight, o.CostWeight)
	setFloat(&p.EmissionWeight, o.EmissionWeight)
	setFloat(&p.Delta, o.Delta)
	setFloat(&p.Temperature, o.Temperature)
	setFloat(&p.DisparityCap, o.DisparityCap)
	if o.Window != nil {
		p.Window = *o.Window
	}
	if o.Allocation != "" {
		p.Allocation = policy.AllocationMode(o.Allocation)
	}
	if o.Environmental != "" {
		p.Environmental = policy.EnvironmentalMode(o.Environmental)
	}
	if o.Scoring != "" {
		p.Scoring = policy.ScoringModel(o.Scoring)
	}
	if o.Transform != "" {
		p.Transform = policy.WeightTransform(o.Transform)
	}
	if o.ExpectedShare != "" {
		p.ExpectedShare = policy.ExpectedShare(o.ExpectedShare)
	}

	p = p.Normalize()
	if err := p.Validate(); err != nil {
		return policy.Policy{}, err
	}
	return p, nil
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

// EnvironmentSettings returns the provider settings with defaults applied.
func (c *Configuration) EnvironmentSettings() environment.Settings {
	s := environment.DefaultSettings()
	setFloat(&s.IndustryAverage, c.Environment.IndustryAverage)
	setFloat(&s.CO2PerKm, c.Environment.CO2PerKm)
	setFloat(&s.Variability, c.Environment.Variability)
	return s
}

// ToSetup converts the configuration into a market setup. Scenario, steps
// and seed overrides (e.g. from the command line) are applied by the caller
// on the configuration before conversion.
func (c *Configuration) ToSetup() (market.Setup, error) {
	p, err := c.Policy()
	if err != nil {
		return market.Setup{}, err
	}

	steps := c.Simulation.Steps
	if steps == 0 {
		steps = constants.DefaultSteps
	}
	if steps < 0 {
		return market.Setup{}, fmt.Errorf("%w: steps must be positive, got %d", market.ErrInvalidSetup, steps)
	}

	seed := constants.DefaultSeed
	if c.Simulation.Seed != nil {
		seed = *c.Simulation.Seed
	}

	name := c.Simulation.Name
	if name == "" {
		name = p.Name
	}
	settings := c.EnvironmentSettings()

	return market.Setup{
		Name:   name,
		Steps:  steps,
		Seed:   seed,
		Policy: p,
		Population: agents.Population{
			Suppliers: append([]agents.Supplier(nil), c.Suppliers...),
			Buyers:    append([]agents.Buyer(nil), c.Buyers...),
		},
		Environment: &settings,
	}, nil
}

// ValidateConfiguration performs general validation of the configuration and
// returns warnings for settings that are legal but likely unintended.
func (c *Configuration) ValidateConfiguration() []string {
	var warnings []string

	if len(c.Suppliers) == 0 && len(c.Buyers) == 0 {
		warnings = append(warnings, "No suppliers or buyers configured - using the reference A/B/C population")
	}

	p, err := c.Policy()
	if err != nil {
		return append(warnings, fmt.Sprintf("Policy is invalid: %v", err))
	}

	if c.Simulation.Steps > constants.MaxServerSteps {
		warnings = append(warnings, fmt.Sprintf("Run length %d exceeds the server limit of %d steps",
			c.Simulation.Steps, constants.MaxServerSteps))
	}
	if p.CostWeight == 0 && p.EmissionWeight == 0 && p.FairnessWeight == 0 {
		warnings = append(warnings, "All scoring weights are zero - every supplier scores the same")
	}
	if p.FairnessWeight == 0 && c.Simulation.Policy.Delta != nil {
		warnings = append(warnings, "Fairness delta is set but the fairness weight is zero - fairness has no effect")
	}

	settings := c.EnvironmentSettings()
	for _, s := range c.Suppliers {
		if s.Capacity == 0 {
			warnings = append(warnings, fmt.Sprintf("Supplier '%s' has zero capacity and can never be allocated", s.ID))
		}
		switch p.Environmental {
		case policy.EnvironmentalStatic:
			if s.StaticEmissions == nil {
				warnings = append(warnings, fmt.Sprintf("Supplier '%s' has no static emissions - industry average %g is used",
					s.ID, settings.IndustryAverage))
			}
		case policy.EnvironmentalIndividualized:
			if s.Emissions == 0 {
				warnings = append(warnings, fmt.Sprintf("Supplier '%s' reports zero individualized emissions", s.ID))
			}
		}
		if settings.CO2PerKm > 0 {
			for _, b := range c.Buyers {
				if _, ok := s.Distance(b.ID); !ok {
					warnings = append(warnings, fmt.Sprintf("Supplier '%s' has no route to buyer '%s' - transport emissions count as zero",
						s.ID, b.ID))
				}
			}
		}
	}

	return warnings
}
