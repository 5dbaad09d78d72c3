package market

import (
	"github.com/iwvelando/fairmarket/internal/allocation"
	"github.com/iwvelando/fairmarket/internal/policy"
)

// State is the lifecycle state of a Simulation.
type State int

const (
	StateInitialized State = iota
	StateRunning
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateInitialized:
		return "initialized"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Info identifies a run to observers.
type Info struct {
	RunID  string        `json:"runId"`
	Name   string        `json:"name"`
	Seed   int64         `json:"seed"`
	Steps  int           `json:"steps"`
	Policy policy.Policy `json:"policy"`
}

// SupplierStep is the state of one supplier at the end of a step.
type SupplierStep struct {
	ID        string  `json:"id"`
	Offered   float64 `json:"offered"`
	Allocated float64 `json:"allocated"`
	Emissions float64 `json:"emissions"`
	// Score is computed over the whole population at the start of the step.
	Score     float64 `json:"score"`
	Rotation  float64 `json:"rotation"`
	Disparity float64 `json:"disparity"`
	Boost     float64 `json:"boost"`
}

// Snapshot is the per-step record handed to downstream consumers.
type Snapshot struct {
	Step          int                   `json:"step"`
	Suppliers     []SupplierStep        `json:"suppliers"`
	Decisions     []allocation.Decision `json:"decisions"`
	Demand        float64               `json:"demand"`
	Allocated     float64               `json:"allocated"`
	Unmet         float64               `json:"unmet"`
	CO2Production float64               `json:"co2Production"`
	CO2Transport  float64               `json:"co2Transport"`
	CO2Total      float64               `json:"co2Total"`
	Cost          float64               `json:"cost"`
	Jain          float64               `json:"jain"`
}

// Allocation returns the quantity allocated to the supplier in this step.
func (s Snapshot) Allocation(supplier string) float64 {
	for _, sup := range s.Suppliers {
		if sup.ID == supplier {
			return sup.Allocated
		}
	}
	return 0
}

// SupplierSummary aggregates one supplier over the whole run.
type SupplierSummary struct {
	ID        string  `json:"id"`
	Group     string  `json:"group"`
	Offered   float64 `json:"offered"`
	Allocated float64 `json:"allocated"`
	Share     float64 `json:"share"`
	Expected  float64 `json:"expected"`
	Rotation  float64 `json:"rotation"`
	Disparity float64 `json:"disparity"`
	Boost     float64 `json:"boost"`
	Wait      int     `json:"wait"`
}

// GroupSummary aggregates the suppliers of one group.
type GroupSummary struct {
	Group     string  `json:"group"`
	Allocated float64 `json:"allocated"`
	Share     float64 `json:"share"`
}

// Summary is the final, cross-scenario comparable result of a run.
type Summary struct {
	Info

	TotalDemand    float64 `json:"totalDemand"`
	TotalAllocated float64 `json:"totalAllocated"`
	TotalUnmet     float64 `json:"totalUnmet"`

	CO2Production float64 `json:"co2Production"`
	CO2Transport  float64 `json:"co2Transport"`
	CO2Total      float64 `json:"co2Total"`
	CO2Mean       float64 `json:"co2Mean"`
	CostTotal     float64 `json:"costTotal"`
	CostMean      float64 `json:"costMean"`

	FinalJain      float64 `json:"finalJain"`
	CumulativeJain float64 `json:"cumulativeJain"`
	MeanJain       float64 `json:"meanJain"`

	ShareGini         float64 `json:"shareGini"`
	ShareMax          float64 `json:"shareMax"`
	ShareStd          float64 `json:"shareStd"`
	ActiveSuppliers   int     `json:"activeSuppliers"`
	ParticipationRate float64 `json:"participationRate"`

	Suppliers []SupplierSummary `json:"suppliers"`
	Groups    []GroupSummary    `json:"groups"`
}

// Result bundles the summary with every per-step snapshot.
type Result struct {
	Summary   Summary    `json:"summary"`
	Snapshots []Snapshot `json:"snapshots"`
}

// Observer is notified after every step and once when the run completes.
type Observer interface {
	ObserveStep(info Info, snap Snapshot)
	ObserveSummary(summary Summary)
}
