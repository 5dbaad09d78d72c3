package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/iwvelando/fairmarket/internal/agents"
	"github.com/iwvelando/fairmarket/internal/market"
	"github.com/iwvelando/fairmarket/internal/policy"
	"github.com/iwvelando/fairmarket/pkg/constants"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, r *Recorder) string {
	t.Helper()
	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestRecorderObservesRun(t *testing.T) {
	recorder := NewRecorder()
	setup := market.Setup{
		Name:   "two-supplier",
		Steps:  4,
		Policy: policy.Default(),
		Population: agents.Population{
			Suppliers: []agents.Supplier{
				{ID: "S1", Cost: 1, Capacity: 10},
				{ID: "S2", Cost: 2, Capacity: 10},
			},
			Buyers: []agents.Buyer{{ID: "B1", Demand: 25}},
		},
	}

	_, err := market.Execute(nil, setup, recorder)
	require.NoError(t, err)

	body := scrape(t, recorder)
	assert.Contains(t, body, `fairmarket_steps_total{scenario="two-supplier"} 4`)
	assert.Contains(t, body, `fairmarket_allocated_units_total{scenario="two-supplier",supplier="S1"} 40`)
	assert.Contains(t, body, `fairmarket_allocated_units_total{scenario="two-supplier",supplier="S2"} 40`)
	assert.Contains(t, body, `fairmarket_unmet_units_total{scenario="two-supplier"} 20`)
	assert.Contains(t, body, `fairmarket_jain_index{scenario="two-supplier"} 1`)
	assert.Contains(t, body, `fairmarket_runs_completed_total{scenario="two-supplier"} 1`)
	assert.Contains(t, body, `fairmarket_participation_rate{scenario="two-supplier"} 1`)
}

func TestRecorderSeparatesScenarios(t *testing.T) {
	recorder := NewRecorder()
	for _, id := range []policy.ScenarioID{policy.S1, policy.S2B} {
		p, err := id.Preset()
		require.NoError(t, err)
		_, err = market.Execute(nil, market.Setup{Name: string(id), Steps: 3, Seed: 42, Policy: p}, recorder)
		require.NoError(t, err)
	}

	body := scrape(t, recorder)
	assert.Contains(t, body, `fairmarket_steps_total{scenario="S1"} 3`)
	assert.Contains(t, body, `fairmarket_steps_total{scenario="S2B"} 3`)
	assert.Contains(t, body, `fairmarket_allocated_units_total{scenario="S1",supplier="C1"} 300`)
	assert.Contains(t, body, `fairmarket_allocated_units_total{scenario="S2B",supplier="A1"} 300`)
}

func TestRecordersAreIndependent(t *testing.T) {
	a := NewRecorder()
	b := NewRecorder()

	a.ObserveStep(market.Info{Name: "x"}, market.Snapshot{Step: 1, Jain: 0.5})

	assert.Contains(t, scrape(t, a), `fairmarket_steps_total{scenario="x"} 1`)
	assert.NotContains(t, scrape(t, b), `fairmarket_steps_total{scenario="x"}`)
}

func TestRecorderBoundsLabelValues(t *testing.T) {
	recorder := NewRecorderWithLimits(2, 1)

	snap := market.Snapshot{
		Step: 1,
		Suppliers: []market.SupplierStep{
			{ID: "S1", Allocated: 5, Boost: 0.5},
			{ID: "S2", Allocated: 7, Boost: 0.25},
		},
	}
	for _, name := range []string{"a", "b", "c", "d"} {
		recorder.ObserveStep(market.Info{Name: name}, snap)
		recorder.ObserveSummary(market.Summary{Info: market.Info{Name: name}})
	}

	body := scrape(t, recorder)
	assert.Contains(t, body, `fairmarket_steps_total{scenario="a"} 1`)
	assert.Contains(t, body, `fairmarket_steps_total{scenario="b"} 1`)
	assert.Contains(t, body, `fairmarket_steps_total{scenario="other"} 2`)
	assert.NotContains(t, body, `scenario="c"`)
	assert.NotContains(t, body, `scenario="d"`)
	assert.Contains(t, body, `fairmarket_runs_completed_total{scenario="other"} 2`)

	assert.Contains(t, body, `fairmarket_allocated_units_total{scenario="a",supplier="S1"} 5`)
	assert.Contains(t, body, `fairmarket_allocated_units_total{scenario="a",supplier="other"} 7`)
	assert.NotContains(t, body, `supplier="S2"`)
	assert.NotContains(t, body, `fairmarket_fairness_boost{scenario="a",supplier="other"}`)
}

func TestDefaultRecorderLimits(t *testing.T) {
	recorder := NewRecorder()
	for i := 0; i < constants.MaxMetricScenarios+5; i++ {
		recorder.ObserveStep(market.Info{Name: string(rune('A' + i))}, market.Snapshot{Step: 1})
	}
	assert.Contains(t, scrape(t, recorder), `fairmarket_steps_total{scenario="other"} 5`)
}
