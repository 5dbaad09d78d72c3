package output

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/iwvelando/fairmarket/internal/market"
	"github.com/iwvelando/fairmarket/internal/policy"
)

func testResult() *market.Result {
	return &market.Result{
		Summary: market.Summary{
			Info: market.Info{
				RunID:  "run-1",
				Name:   "Test Scenario",
				Seed:   42,
				Steps:  2,
				Policy: policy.Default(),
			},
			TotalDemand:       2400,
			TotalAllocated:    2000,
			TotalUnmet:        400,
			CO2Total:          12000,
			CostTotal:         16000,
			FinalJain:         0.5,
			CumulativeJain:    0.5,
			MeanJain:          0.5,
			ActiveSuppliers:   1,
			ParticipationRate: 0.5,
			Suppliers: []market.SupplierSummary{
				{ID: "S1", Group: "S", Allocated: 2000, Share: 1, Expected: 0.5},
				{ID: "S2", Group: "S", Allocated: 0, Share: 0, Expected: 0.5, Wait: 2},
			},
			Groups: []market.GroupSummary{{Group: "S", Allocated: 2000, Share: 1}},
		},
		Snapshots: []market.Snapshot{
			{
				Step: 1, Demand: 1200, Allocated: 1000, Unmet: 200, CO2Total: 6000, Cost: 8000, Jain: 0.5,
				Suppliers: []market.SupplierStep{{ID: "S1", Allocated: 1000}, {ID: "S2"}},
			},
			{
				Step: 2, Demand: 1200, Allocated: 1000, Unmet: 200, CO2Total: 6000, Cost: 8000, Jain: 0.5,
				Suppliers: []market.SupplierStep{{ID: "S1", Allocated: 1000}, {ID: "S2"}},
			},
		},
	}
}

func TestPrettyFormat(t *testing.T) {
	var buf bytes.Buffer
	PrettyFormat(&buf, testResult())
	output := buf.String()

	expected := []string{
		"--- Results for scenario Test Scenario (run run-1) ---",
		"Step | Demand | Allocated | Unmet | CO2 Total | Cost | Jain",
		"1 | 1,200.00 | 1,000.00 | 200.00 | 6,000.00 | $8,000.00 | 0.5000",
		"S2 | S | 0.00 | 0.00% | 50.00% | 2",
		"S | 2,000.00 | 100.00%",
		"Cost: $16,000.00",
		"Participation: 1 of 2 suppliers (50.00%)",
	}
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("PrettyFormat() missing %q in:\n%s", want, output)
		}
	}
}

func TestCsvFormat(t *testing.T) {
	var buf bytes.Buffer
	CsvFormat(&buf, testResult())
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")

	if len(lines) != 3 {
		t.Fatalf("CsvFormat() produced %d lines, expected 3", len(lines))
	}
	if !strings.HasSuffix(lines[0], `,"allocated (S1)","allocated (S2)"`) {
		t.Errorf("CsvFormat() header = %s", lines[0])
	}
	want := `"2","1200.0000","1000.0000","200.0000","0.0000","0.0000","6000.0000","8000.0000","0.500000","1000.0000","0.0000"`
	if lines[2] != want {
		t.Errorf("CsvFormat() row = %s, expected %s", lines[2], want)
	}
}

func TestCsvString(t *testing.T) {
	var buf bytes.Buffer
	CsvFormat(&buf, testResult())
	if got := CsvString(testResult()); got != buf.String() {
		t.Errorf("CsvString() = %q, expected %q", got, buf.String())
	}
}

func TestCsvFormatEscapesSupplierIDs(t *testing.T) {
	tests := []struct {
		name string
		id   string
	}{
		{"Quote", `S"1`},
		{"Comma", "S,1"},
		{"Newline", "S\n1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := testResult()
			result.Summary.Suppliers[0].ID = tt.id
			for i := range result.Snapshots {
				result.Snapshots[i].Suppliers[0].ID = tt.id
			}

			records, err := csv.NewReader(strings.NewReader(CsvString(result))).ReadAll()
			if err != nil {
				t.Fatalf("csv.ReadAll() error = %v", err)
			}
			if len(records) != 3 {
				t.Fatalf("CsvFormat() produced %d records, expected 3", len(records))
			}
			if got := records[0][9]; got != "allocated ("+tt.id+")" {
				t.Errorf("CsvFormat() header = %q, expected %q", got, "allocated ("+tt.id+")")
			}
			for _, record := range records {
				if len(record) != 11 {
					t.Errorf("CsvFormat() record has %d fields, expected 11: %v", len(record), record)
				}
			}
			if records[1][9] != "1000.0000" {
				t.Errorf("CsvFormat() allocation = %s, expected 1000.0000", records[1][9])
			}
		})
	}
}
