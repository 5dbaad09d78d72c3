// Package agents defines the supplier and buyer agents that populate the
// marketplace, together with the small capability interfaces the simulation
// loop consumes them through.
package agents

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
)

// ErrInvalidPopulation is returned when the agent population cannot be simulated.
var ErrInvalidPopulation = errors.New("invalid agent population")

// Offer is what a supplier puts on the market for a single step.
type Offer struct {
	Capacity float64
	Cost     float64
}

// Offerer is implemented by anything that can supply units to the market.
type Offerer interface {
	SupplierID() string
	Offer(step int) Offer
}

// Demander is implemented by anything that requests units from the market.
type Demander interface {
	BuyerID() string
	Quantity(step int, rng *rand.Rand) float64
}

// Route is the distance between a supplier and one buyer.
type Route struct {
	Buyer    string  `yaml:"buyer" mapstructure:"buyer"`
	Distance float64 `yaml:"distance" mapstructure:"distance"` // km
}

// Supplier holds the cost, capacity and emissions profile of one producer.
type Supplier struct {
	ID       string  `yaml:"id" mapstructure:"id"`
	Group    string  `yaml:"group,omitempty" mapstructure:"group"`
	Cost     float64 `yaml:"cost" mapstructure:"cost"`
	Capacity float64 `yaml:"capacity" mapstructure:"capacity"` // units per step

	// StaticEmissions is the registered (industry-average style) value. When
	// nil the environmental provider's industry average is used instead.
	StaticEmissions *float64 `yaml:"staticEmissions,omitempty" mapstructure:"staticEmissions"`

	// Emissions is the supplier's true per-unit profile as reported through
	// a digital product passport.
	Emissions float64 `yaml:"emissions" mapstructure:"emissions"`

	// Variability is the relative standard deviation of individualized
	// emissions. Zero means use the provider default.
	Variability float64 `yaml:"variability,omitempty" mapstructure:"variability"`

	Routes []Route `yaml:"routes,omitempty" mapstructure:"routes"`
}

// SupplierID implements Offerer.
func (s Supplier) SupplierID() string { return s.ID }

// Offer implements Offerer. Capacity is refreshed every step.
func (s Supplier) Offer(step int) Offer {
	return Offer{Capacity: s.Capacity, Cost: s.Cost}
}

// GroupName returns the configured group, or the upper-cased first letter
// of the ID when none is set.
func (s Supplier) GroupName() string {
	if s.Group != "" {
		return s.Group
	}
	if s.ID == "" {
		return "?"
	}
	return strings.ToUpper(s.ID[:1])
}

// Distance returns the distance to the given buyer and whether one is known.
func (s Supplier) Distance(buyerID string) (float64, bool) {
	for _, r := range s.Routes {
		if r.Buyer == buyerID {
			return r.Distance, true
		}
	}
	return 0, false
}

// Buyer issues a demand request every step.
type Buyer struct {
	ID     string  `yaml:"id" mapstructure:"id"`
	Demand float64 `yaml:"demand" mapstructure:"demand"` // nominal units per step

	// Variability is the relative standard deviation of sampled demand.
	// Zero keeps demand fixed at the nominal value.
	Variability float64 `yaml:"variability,omitempty" mapstructure:"variability"`
}

// BuyerID implements Demander.
func (b Buyer) BuyerID() string { return b.ID }

// Quantity implements Demander. Fixed demand never consumes the random stream.
func (b Buyer) Quantity(step int, rng *rand.Rand) float64 {
	if b.Variability <= 0 || rng == nil {
		return b.Demand
	}
	return math.Max(0, b.Demand*(1+b.Variability*rng.NormFloat64()))
}

// Population is the full set of agents for a run.
type Population struct {
	Suppliers []Supplier
	Buyers    []Buyer
}

// Validate checks the population for structural problems. Any failure wraps
// ErrInvalidPopulation.
func (p Population) Validate() error {
	if len(p.Suppliers) == 0 {
		return fmt.Errorf("%w: at least one supplier is required", ErrInvalidPopulation)
	}
	if len(p.Buyers) == 0 {
		return fmt.Errorf("%w: at least one buyer is required", ErrInvalidPopulation)
	}

	seen := make(map[string]struct{}, len(p.Suppliers))
	for i, s := range p.Suppliers {
		if strings.TrimSpace(s.ID) == "" {
			return fmt.Errorf("%w: supplier %d has an empty id", ErrInvalidPopulation, i)
		}
		if _, dup := seen[s.ID]; dup {
			return fmt.Errorf("%w: duplicate supplier id %q", ErrInvalidPopulation, s.ID)
		}
		seen[s.ID] = struct{}{}
		if s.Cost < 0 {
			return fmt.Errorf("%w: supplier %s has negative cost %.2f", ErrInvalidPopulation, s.ID, s.Cost)
		}
		if s.Capacity < 0 {
			return fmt.Errorf("%w: supplier %s has negative capacity %.2f", ErrInvalidPopulation, s.ID, s.Capacity)
		}
		if s.Emissions < 0 {
			return fmt.Errorf("%w: supplier %s has negative emissions %.2f", ErrInvalidPopulation, s.ID, s.Emissions)
		}
		if s.Variability < 0 {
			return fmt.Errorf("%w: supplier %s has negative variability %.2f", ErrInvalidPopulation, s.ID, s.Variability)
		}
		if s.StaticEmissions != nil && *s.StaticEmissions < 0 {
			return fmt.Errorf("%w: supplier %s has negative static emissions %.2f", ErrInvalidPopulation, s.ID, *s.StaticEmissions)
		}
		for _, r := range s.Routes {
			if r.Distance < 0 {
				return fmt.Errorf("%w: supplier %s has negative distance to %s", ErrInvalidPopulation, s.ID, r.Buyer)
			}
		}
	}

	seen = make(map[string]struct{}, len(p.Buyers))
	for i, b := range p.Buyers {
		if strings.TrimSpace(b.ID) == "" {
			return fmt.Errorf("%w: buyer %d has an empty id", ErrInvalidPopulation, i)
		}
		if _, dup := seen[b.ID]; dup {
			return fmt.Errorf("%w: duplicate buyer id %q", ErrInvalidPopulation, b.ID)
		}
		seen[b.ID] = struct{}{}
		if b.Demand < 0 {
			return fmt.Errorf("%w: buyer %s has negative demand %.2f", ErrInvalidPopulation, b.ID, b.Demand)
		}
		if b.Variability < 0 {
			return fmt.Errorf("%w: buyer %s has negative variability %.2f", ErrInvalidPopulation, b.ID, b.Variability)
		}
	}
	return nil
}

// Sorted returns a copy of the population with suppliers and buyers ordered
// by ID. The simulation relies on this order for deterministic tie-breaking
// and random stream consumption.
func (p Population) Sorted() Population {
	out := Population{
		Suppliers: append([]Supplier(nil), p.Suppliers...),
		Buyers:    append([]Buyer(nil), p.Buyers...),
	}
	sort.SliceStable(out.Suppliers, func(i, j int) bool { return out.Suppliers[i].ID < out.Suppliers[j].ID })
	sort.SliceStable(out.Buyers, func(i, j int) bool { return out.Buyers[i].ID < out.Buyers[j].ID })
	return out
}
