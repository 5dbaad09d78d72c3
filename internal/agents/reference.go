package agents

import (
	"fmt"
	"math/rand"
)

// supplierType describes one class of the reference A/B/C population.
type supplierType struct {
	prefix    string
	cost      float64
	emissions float64
}

var referenceTypes = []supplierType{
	{prefix: "A", cost: 12.0, emissions: 4.0},  // high cost, low CO2
	{prefix: "B", cost: 10.0, emissions: 7.0},  // medium cost, medium CO2
	{prefix: "C", cost: 8.0, emissions: 10.0}, // low cost, high CO2
}

const (
	referencePerType     = 3
	referenceCapacity    = 100.0
	referenceBuyerID     = "B1"
	referenceDemand      = 120.0
	referenceMinDistance = 50.0
	referenceMaxDistance = 300.0
)

// ReferencePopulation builds the nine-supplier, single-buyer market used by
// the reference experiments. Suppliers carry no static emissions, so static
// LCA falls back to the industry average. Distances are drawn from rng.
func ReferencePopulation(rng *rand.Rand) Population {
	var pop Population
	for _, st := range referenceTypes {
		for i := 1; i <= referencePerType; i++ {
			distance := referenceMinDistance
			if rng != nil {
				distance += rng.Float64() * (referenceMaxDistance - referenceMinDistance)
			}
			pop.Suppliers = append(pop.Suppliers, Supplier{
				ID:        fmt.Sprintf("%s%d", st.prefix, i),
				Group:     st.prefix,
				Cost:      st.cost,
				Capacity:  referenceCapacity,
				Emissions: st.emissions,
				Routes:    []Route{{Buyer: referenceBuyerID, Distance: distance}},
			})
		}
	}
	pop.Buyers = []Buyer{{ID: referenceBuyerID, Demand: referenceDemand}}
	return pop
}
