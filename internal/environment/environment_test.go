package environment

import (
	"math"
	"math/rand"
	"testing"

	"github.com/iwvelando/fairmarket/internal/agents"
	"github.com/iwvelando/fairmarket/internal/policy"
)

func floatPtr(v float64) *float64 { return &v }

func TestStaticEmissions(t *testing.T) {
	p, err := NewProvider(policy.EnvironmentalStatic, DefaultSettings(), nil)
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}

	registered := agents.Supplier{ID: "S1", Emissions: 9, StaticEmissions: floatPtr(3)}
	unregistered := agents.Supplier{ID: "S2", Emissions: 9}

	for step := 0; step < 3; step++ {
		if v := p.Emissions(registered, step); v != 3 {
			t.Errorf("Emissions(registered, %d) = %v, expected 3", step, v)
		}
		if v := p.Emissions(unregistered, step); v != DefaultSettings().IndustryAverage {
			t.Errorf("Emissions(unregistered, %d) = %v, expected industry average", step, v)
		}
	}
}

func TestIndividualizedWithoutVariabilityIsExact(t *testing.T) {
	p, err := NewProvider(policy.EnvironmentalIndividualized, DefaultSettings(), rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	s := agents.Supplier{ID: "A1", Emissions: 4, StaticEmissions: floatPtr(5)}
	if v := p.Emissions(s, 0); v != 4 {
		t.Errorf("Emissions() = %v, expected 4", v)
	}
}

func TestIndividualizedIsSeededAndNonNegative(t *testing.T) {
	settings := DefaultSettings()
	settings.Variability = 0.5

	a, _ := NewProvider(policy.EnvironmentalIndividualized, settings, rand.New(rand.NewSource(99)))
	b, _ := NewProvider(policy.EnvironmentalIndividualized, settings, rand.New(rand.NewSource(99)))
	s := agents.Supplier{ID: "C1", Emissions: 10}

	varied := false
	for step := 0; step < 200; step++ {
		va, vb := a.Emissions(s, step), b.Emissions(s, step)
		if va != vb {
			t.Fatalf("Emissions() differs for equal seeds at step %d: %v != %v", step, va, vb)
		}
		if va < 0 {
			t.Fatalf("Emissions() = %v, expected non-negative", va)
		}
		if math.Abs(va-10) > 1e-9 {
			varied = true
		}
	}
	if !varied {
		t.Errorf("Emissions() never deviated from the profile with variability 0.5")
	}
}

func TestTransport(t *testing.T) {
	p, _ := NewProvider(policy.EnvironmentalStatic, Settings{CO2PerKm: 0.01}, nil)
	s := agents.Supplier{ID: "S1", Routes: []agents.Route{{Buyer: "B1", Distance: 200}}}
	if v := p.Transport(s, "B1"); math.Abs(v-2) > 1e-9 {
		t.Errorf("Transport(B1) = %v, expected 2", v)
	}
	if v := p.Transport(s, "B2"); v != 0 {
		t.Errorf("Transport(B2) = %v, expected 0", v)
	}
}

func TestNewProviderErrors(t *testing.T) {
	tests := []struct {
		name     string
		mode     policy.EnvironmentalMode
		settings Settings
		rng      *rand.Rand
	}{
		{"Individualized without rng", policy.EnvironmentalIndividualized, DefaultSettings(), nil},
		{"Unknown mode", "weather", DefaultSettings(), nil},
		{"Negative industry average", policy.EnvironmentalStatic, Settings{IndustryAverage: -1}, nil},
		{"Negative co2 per km", policy.EnvironmentalStatic, Settings{CO2PerKm: -1}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewProvider(tt.mode, tt.settings, tt.rng); err == nil {
				t.Errorf("NewProvider() expected error but got none")
			}
		})
	}
}
