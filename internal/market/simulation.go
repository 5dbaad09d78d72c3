// Package market runs the discrete-time marketplace simulation: every step
// buyers issue demand, suppliers are scored on cost, emissions and fairness,
// demand is allocated and the fairness tracker is updated before the next
// step starts.
package market

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/google/uuid"
	"github.com/iwvelando/fairmarket/internal/agents"
	"github.com/iwvelando/fairmarket/internal/allocation"
	"github.com/iwvelando/fairmarket/internal/environment"
	"github.com/iwvelando/fairmarket/internal/fairness"
	"github.com/iwvelando/fairmarket/internal/policy"
	"github.com/iwvelando/fairmarket/internal/scoring"
	"github.com/iwvelando/fairmarket/pkg/mathutil"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrInvalidSetup is returned by New when the run cannot start.
	ErrInvalidSetup = errors.New("invalid simulation setup")
	// ErrCompleted is returned by Step once every configured step has run.
	ErrCompleted = errors.New("simulation already completed")
)

// Setup holds everything needed to construct a run.
type Setup struct {
	Name   string
	Steps  int
	Seed   int64
	Policy policy.Policy
	// Population may be left empty to use the reference A/B/C market, whose
	// distances are drawn from the run's random source.
	Population agents.Population
	// Environment nil means environment.DefaultSettings.
	Environment *environment.Settings
}

// Simulation owns all mutable state of a single run. It is not safe for
// concurrent use; independent runs share nothing.
type Simulation struct {
	logger    *zap.Logger
	info      Info
	policy    policy.Policy
	suppliers []agents.Supplier
	buyers    []agents.Buyer
	index     map[string]int

	rng      *rand.Rand
	provider *environment.Provider
	scorer   scoring.Scorer
	engine   *allocation.Engine
	tracker  *fairness.Tracker

	observers []Observer

	state     State
	step      int
	offered   []float64
	snapshots []Snapshot
	summary   Summary
}

// New validates the setup and constructs a simulation in the Initialized
// state. Any validation failure aborts before a step runs.
func New(logger *zap.Logger, setup Setup, observers ...Observer) (*Simulation, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if setup.Steps <= 0 {
		return nil, fmt.Errorf("%w: steps must be positive, got %d", ErrInvalidSetup, setup.Steps)
	}

	p := setup.Policy.Normalize()
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSetup, err)
	}

	rng := rand.New(rand.NewSource(setup.Seed))

	pop := setup.Population
	if len(pop.Suppliers) == 0 && len(pop.Buyers) == 0 {
		pop = agents.ReferencePopulation(rng)
	}
	if err := pop.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSetup, err)
	}
	pop = pop.Sorted()

	settings := environment.DefaultSettings()
	if setup.Environment != nil {
		settings = *setup.Environment
	}
	provider, err := environment.NewProvider(p.Environmental, settings, rng)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSetup, err)
	}
	scorer, err := scoring.New(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSetup, err)
	}
	engine, err := allocation.NewEngine(logger, p, scorer)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSetup, err)
	}

	ids := make([]string, len(pop.Suppliers))
	capacities := make([]float64, len(pop.Suppliers))
	index := make(map[string]int, len(pop.Suppliers))
	for i, s := range pop.Suppliers {
		ids[i] = s.ID
		capacities[i] = s.Capacity
		index[s.ID] = i
	}
	tracker, err := fairness.NewTracker(logger, ids, fairness.ConfigFromPolicy(p, capacities))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSetup, err)
	}

	name := setup.Name
	if name == "" {
		name = p.Name
	}

	return &Simulation{
		logger: logger,
		info: Info{
			RunID:  uuid.NewString(),
			Name:   name,
			Seed:   setup.Seed,
			Steps:  setup.Steps,
			Policy: p,
		},
		policy:    p,
		suppliers: pop.Suppliers,
		buyers:    pop.Buyers,
		index:     index,
		rng:       rng,
		provider:  provider,
		scorer:    scorer,
		engine:    engine,
		tracker:   tracker,
		observers: observers,
		state:     StateInitialized,
		offered:   make([]float64, len(pop.Suppliers)),
		snapshots: make([]Snapshot, 0, setup.Steps),
	}, nil
}

// Execute constructs and runs a simulation to completion.
func Execute(logger *zap.Logger, setup Setup, observers ...Observer) (*Result, error) {
	sim, err := New(logger, setup, observers...)
	if err != nil {
		return nil, err
	}
	return sim.Run()
}

// Info returns the run identification.
func (s *Simulation) Info() Info {
	return s.info
}

// State returns the current lifecycle state.
func (s *Simulation) State() State {
	return s.state
}

// Population returns the suppliers and buyers of the run in ID order.
func (s *Simulation) Population() agents.Population {
	return agents.Population{
		Suppliers: append([]agents.Supplier(nil), s.suppliers...),
		Buyers:    append([]agents.Buyer(nil), s.buyers...),
	}
}

// Snapshots returns the snapshots recorded so far.
func (s *Simulation) Snapshots() []Snapshot {
	return append([]Snapshot(nil), s.snapshots...)
}

// Summary returns the run summary. It is only populated once the run has
// completed.
func (s *Simulation) Summary() (Summary, bool) {
	return s.summary, s.state == StateCompleted
}

// Run advances the simulation until it completes.
func (s *Simulation) Run() (*Result, error) {
	for s.state != StateCompleted {
		if _, err := s.Step(); err != nil {
			return nil, err
		}
	}
	return &Result{Summary: s.summary, Snapshots: s.Snapshots()}, nil
}

// Step runs exactly one time step. Allocation and the fairness update of a
// step are finalized before Step returns.
func (s *Simulation) Step() (Snapshot, error) {
	switch s.state {
	case StateCompleted:
		return Snapshot{}, ErrCompleted
	case StateInitialized:
		s.state = StateRunning
		s.logger.Info("simulation started",
			zap.String("op", "market.Step"),
			zap.String("runId", s.info.RunID),
			zap.String("scenario", s.info.Name),
			zap.Int("steps", s.info.Steps),
			zap.Int64("seed", s.info.Seed),
			zap.String("allocation", string(s.policy.Allocation)),
			zap.String("environmental", string(s.policy.Environmental)),
			zap.Int("suppliers", len(s.suppliers)),
			zap.Int("buyers", len(s.buyers)),
		)
	}

	snap, err := s.advance(s.step + 1)
	if err != nil {
		return Snapshot{}, err
	}
	s.step++
	s.snapshots = append(s.snapshots, snap)
	for _, o := range s.observers {
		o.ObserveStep(s.info, snap)
	}

	if s.step == s.info.Steps {
		s.state = StateCompleted
		s.summary = s.summarize()
		for _, o := range s.observers {
			o.ObserveSummary(s.summary)
		}
		s.logger.Info("simulation completed",
			zap.String("op", "market.Step"),
			zap.String("runId", s.info.RunID),
			zap.String("scenario", s.info.Name),
			zap.Float64("co2Total", s.summary.CO2Total),
			zap.Float64("costTotal", s.summary.CostTotal),
			zap.Float64("unmet", s.summary.TotalUnmet),
			zap.Float64("cumulativeJain", s.summary.CumulativeJain),
		)
	}
	return snap, nil
}

func (s *Simulation) advance(step int) (Snapshot, error) {
	n := len(s.suppliers)

	// 1) demand, in buyer ID order
	demands := make([]float64, len(s.buyers))
	for j, b := range s.buyers {
		demands[j] = b.Quantity(step, s.rng)
	}

	// 2) emissions and fresh capacity, in supplier ID order
	offers := make([]allocation.Offer, n)
	capacity := make([]float64, n)
	candidates := make([]scoring.Candidate, n)
	boosts := make([]float64, n)
	if s.policy.FairnessActive() {
		boosts = s.tracker.Boosts()
	}
	for i, sup := range s.suppliers {
		o := sup.Offer(step)
		capacity[i] = o.Capacity
		s.offered[i] += o.Capacity
		candidates[i] = scoring.Candidate{
			ID:        sup.ID,
			Cost:      o.Cost,
			Emissions: s.provider.Emissions(sup, step),
			Boost:     boosts[i],
		}
		offers[i] = allocation.Offer{Candidate: candidates[i], Remaining: o.Capacity}
	}

	// 3) scores for reporting; the engine rescores its eligible set per request
	scores := s.scorer.Score(candidates)

	// 4) allocation
	snap := Snapshot{Step: step}
	allocated := make([]float64, n)
	for j, b := range s.buyers {
		d := s.engine.Allocate(b.ID, demands[j], offers)
		for _, line := range d.Lines {
			i := s.index[line.Supplier]
			c := candidates[i]
			allocated[i] += line.Quantity
			snap.CO2Production += line.Quantity * c.Emissions
			snap.CO2Transport += line.Quantity * s.provider.Transport(s.suppliers[i], b.ID)
			snap.Cost += line.Quantity * scoring.CarbonAdjustedCost(c.Cost, c.Emissions, s.policy.CarbonTax)
		}
		snap.Decisions = append(snap.Decisions, d)
		snap.Demand += d.Demand
		snap.Allocated += d.Allocated
		snap.Unmet += d.Unmet
	}
	snap.CO2Total = snap.CO2Production + snap.CO2Transport

	// 5) fairness update, before the next step scores anything
	jain, err := s.tracker.Record(allocated)
	if err != nil {
		return Snapshot{}, fmt.Errorf("step %d: %w", step, err)
	}
	snap.Jain = jain

	snap.Suppliers = make([]SupplierStep, n)
	for i, sup := range s.suppliers {
		sig := s.tracker.Signals(i)
		snap.Suppliers[i] = SupplierStep{
			ID:        sup.ID,
			Offered:   capacity[i],
			Allocated: allocated[i],
			Emissions: candidates[i].Emissions,
			Score:     scores[i],
			Rotation:  sig.Rotation,
			Disparity: sig.Disparity,
			Boost:     sig.Boost,
		}
	}

	// 6) log
	s.logger.Debug("step completed",
		zap.String("op", "market.advance"),
		zap.String("runId", s.info.RunID),
		zap.Int("step", step),
		zap.Float64("demand", snap.Demand),
		zap.Float64("allocated", snap.Allocated),
		zap.Float64("unmet", snap.Unmet),
		zap.Float64("co2Total", snap.CO2Total),
		zap.Float64("jain", snap.Jain),
	)
	return snap, nil
}

func (s *Simulation) summarize() Summary {
	sum := Summary{Info: s.info}

	jains := make([]float64, len(s.snapshots))
	for k, snap := range s.snapshots {
		sum.TotalDemand += snap.Demand
		sum.TotalAllocated += snap.Allocated
		sum.TotalUnmet += snap.Unmet
		sum.CO2Production += snap.CO2Production
		sum.CO2Transport += snap.CO2Transport
		sum.CO2Total += snap.CO2Total
		sum.CostTotal += snap.Cost
		jains[k] = snap.Jain
	}
	if len(s.snapshots) > 0 {
		steps := float64(len(s.snapshots))
		sum.CO2Mean = sum.CO2Total / steps
		sum.CostMean = sum.CostTotal / steps
		sum.MeanJain = stat.Mean(jains, nil)
	}
	sum.FinalJain = s.tracker.LastJain()
	sum.CumulativeJain = s.tracker.CumulativeJain()

	cumulative := s.tracker.Cumulative()
	expected := s.tracker.Expected()
	total := 0.0
	for _, q := range cumulative {
		total += q
	}

	shares := make([]float64, len(s.suppliers))
	groups := make(map[string]*GroupSummary)
	for i, sup := range s.suppliers {
		shares[i] = mathutil.SafeDiv(cumulative[i], total, 0)
		if mathutil.IsPositive(cumulative[i]) {
			sum.ActiveSuppliers++
		}
		sig := s.tracker.Signals(i)
		sum.Suppliers = append(sum.Suppliers, SupplierSummary{
			ID:        sup.ID,
			Group:     sup.GroupName(),
			Offered:   s.offered[i],
			Allocated: cumulative[i],
			Share:     shares[i],
			Expected:  expected[i],
			Rotation:  sig.Rotation,
			Disparity: sig.Disparity,
			Boost:     sig.Boost,
			Wait:      sig.Wait,
		})

		g, ok := groups[sup.GroupName()]
		if !ok {
			g = &GroupSummary{Group: sup.GroupName()}
			groups[sup.GroupName()] = g
		}
		g.Allocated += cumulative[i]
		g.Share += shares[i]
	}

	sum.ShareGini = fairness.Gini(shares)
	for _, h := range shares {
		if h > sum.ShareMax {
			sum.ShareMax = h
		}
	}
	if len(shares) > 1 {
		sum.ShareStd = stat.PopStdDev(shares, nil)
	}
	sum.ParticipationRate = float64(sum.ActiveSuppliers) / float64(len(s.suppliers))

	for _, g := range groups {
		sum.Groups = append(sum.Groups, *g)
	}
	sort.Slice(sum.Groups, func(i, j int) bool { return sum.Groups[i].Group < sum.Groups[j].Group })
	return sum
}
