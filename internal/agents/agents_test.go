package agents

import (
	"errors"
	"math/rand"
	"testing"
)

func floatPtr(v float64) *float64 { return &v }

func TestPopulationValidate(t *testing.T) {
	valid := Population{
		Suppliers: []Supplier{{ID: "S1", Cost: 10, Capacity: 5, Emissions: 1}},
		Buyers:    []Buyer{{ID: "B1", Demand: 3}},
	}

	tests := []struct {
		name    string
		mutate  func(p *Population)
		wantErr bool
	}{
		{"Valid population", func(p *Population) {}, false},
		{"No suppliers", func(p *Population) { p.Suppliers = nil }, true},
		{"No buyers", func(p *Population) { p.Buyers = nil }, true},
		{"Empty supplier id", func(p *Population) { p.Suppliers[0].ID = " " }, true},
		{"Duplicate supplier", func(p *Population) { p.Suppliers = append(p.Suppliers, p.Suppliers[0]) }, true},
		{"Negative cost", func(p *Population) { p.Suppliers[0].Cost = -1 }, true},
		{"Negative capacity", func(p *Population) { p.Suppliers[0].Capacity = -1 }, true},
		{"Negative emissions", func(p *Population) { p.Suppliers[0].Emissions = -1 }, true},
		{"Negative static emissions", func(p *Population) { p.Suppliers[0].StaticEmissions = floatPtr(-2) }, true},
		{"Negative variability", func(p *Population) { p.Suppliers[0].Variability = -0.1 }, true},
		{"Negative distance", func(p *Population) { p.Suppliers[0].Routes = []Route{{Buyer: "B1", Distance: -3}} }, true},
		{"Duplicate buyer", func(p *Population) { p.Buyers = append(p.Buyers, p.Buyers[0]) }, true},
		{"Negative demand", func(p *Population) { p.Buyers[0].Demand = -5 }, true},
		{"Zero capacity allowed", func(p *Population) { p.Suppliers[0].Capacity = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pop := Population{
				Suppliers: append([]Supplier(nil), valid.Suppliers...),
				Buyers:    append([]Buyer(nil), valid.Buyers...),
			}
			tt.mutate(&pop)
			err := pop.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Validate() expected error but got none")
				}
				if !errors.Is(err, ErrInvalidPopulation) {
					t.Errorf("Validate() error = %v, expected ErrInvalidPopulation", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() error = %v", err)
			}
		})
	}
}

func TestBuyerQuantity(t *testing.T) {
	fixed := Buyer{ID: "B1", Demand: 120}
	rng := rand.New(rand.NewSource(1))
	for step := 0; step < 5; step++ {
		if q := fixed.Quantity(step, rng); q != 120 {
			t.Errorf("Quantity() = %v, expected 120", q)
		}
	}

	sampled := Buyer{ID: "B2", Demand: 100, Variability: 0.2}
	a := rand.New(rand.NewSource(7))
	b := rand.New(rand.NewSource(7))
	for step := 0; step < 20; step++ {
		qa := sampled.Quantity(step, a)
		qb := sampled.Quantity(step, b)
		if qa != qb {
			t.Fatalf("Quantity() not deterministic for equal seeds: %v != %v", qa, qb)
		}
		if qa < 0 {
			t.Errorf("Quantity() = %v, expected non-negative", qa)
		}
	}
}

func TestSupplierHelpers(t *testing.T) {
	s := Supplier{ID: "c2", Routes: []Route{{Buyer: "B1", Distance: 80}}}
	if g := s.GroupName(); g != "C" {
		t.Errorf("GroupName() = %q, expected %q", g, "C")
	}
	s.Group = "coal"
	if g := s.GroupName(); g != "coal" {
		t.Errorf("GroupName() = %q, expected %q", g, "coal")
	}
	if d, ok := s.Distance("B1"); !ok || d != 80 {
		t.Errorf("Distance(B1) = %v, %v, expected 80, true", d, ok)
	}
	if _, ok := s.Distance("B9"); ok {
		t.Errorf("Distance(B9) expected unknown route")
	}
}

func TestReferencePopulation(t *testing.T) {
	pop := ReferencePopulation(rand.New(rand.NewSource(42)))
	if err := pop.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(pop.Suppliers) != 9 {
		t.Fatalf("expected 9 suppliers, got %d", len(pop.Suppliers))
	}
	if len(pop.Buyers) != 1 || pop.Buyers[0].Demand != 120 {
		t.Fatalf("expected single buyer with demand 120, got %+v", pop.Buyers)
	}
	for _, s := range pop.Suppliers {
		d, ok := s.Distance("B1")
		if !ok || d < 50 || d > 300 {
			t.Errorf("supplier %s distance = %v, expected within [50, 300]", s.ID, d)
		}
		if s.StaticEmissions != nil {
			t.Errorf("supplier %s expected no static emissions", s.ID)
		}
	}

	again := ReferencePopulation(rand.New(rand.NewSource(42)))
	for i := range pop.Suppliers {
		if pop.Suppliers[i].Routes[0].Distance != again.Suppliers[i].Routes[0].Distance {
			t.Errorf("supplier %s distance differs between equal seeds", pop.Suppliers[i].ID)
		}
	}
}

func TestSorted(t *testing.T) {
	pop := Population{
		Suppliers: []Supplier{{ID: "S2"}, {ID: "S1"}},
		Buyers:    []Buyer{{ID: "B2"}, {ID: "B1"}},
	}
	sorted := pop.Sorted()
	if sorted.Suppliers[0].ID != "S1" || sorted.Buyers[0].ID != "B1" {
		t.Errorf("Sorted() = %+v, expected ID order", sorted)
	}
	if pop.Suppliers[0].ID != "S2" {
		t.Errorf("Sorted() mutated the receiver")
	}
}
