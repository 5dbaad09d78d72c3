// Package output provides utilities for formatting and displaying run results.
package output

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/iwvelando/fairmarket/internal/market"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// PrettyFormat writes a human-readable rather than machine-readable report.
func PrettyFormat(w io.Writer, result *market.Result) {
	p := message.NewPrinter(language.English)
	s := result.Summary

	_, _ = fmt.Fprintf(w, "--- Results for scenario %s (run %s) ---\n", s.Name, s.RunID)
	_, _ = fmt.Fprintf(w, "Policy: tax=%g fairness=%g delta=%g allocation=%s environmental=%s scoring=%s\n",
		s.Policy.CarbonTax, s.Policy.FairnessWeight, s.Policy.Delta,
		s.Policy.Allocation, s.Policy.Environmental, s.Policy.Scoring)
	_, _ = fmt.Fprintf(w, "Steps: %d  Seed: %d\n\n", s.Steps, s.Seed)

	_, _ = fmt.Fprintf(w, "Step | Demand | Allocated | Unmet | CO2 Total | Cost | Jain\n")
	_, _ = fmt.Fprintf(w, "____ | ______ | _________ | _____ | _________ | ____ | ____\n")
	for _, snap := range result.Snapshots {
		_, _ = p.Fprintf(w, "%d | %.2f | %.2f | %.2f | %.2f | $%.2f | %.4f\n",
			snap.Step, snap.Demand, snap.Allocated, snap.Unmet, snap.CO2Total, snap.Cost, snap.Jain)
	}

	_, _ = fmt.Fprintf(w, "\nSupplier | Group | Allocated | Share | Expected | Wait\n")
	_, _ = fmt.Fprintf(w, "________ | _____ | _________ | _____ | ________ | ____\n")
	for _, sup := range s.Suppliers {
		_, _ = p.Fprintf(w, "%s | %s | %.2f | %.2f%% | %.2f%% | %d\n",
			sup.ID, sup.Group, sup.Allocated, sup.Share*100, sup.Expected*100, sup.Wait)
	}

	_, _ = fmt.Fprintf(w, "\nGroup | Allocated | Share\n")
	_, _ = fmt.Fprintf(w, "_____ | _________ | _____\n")
	for _, g := range s.Groups {
		_, _ = p.Fprintf(w, "%s | %.2f | %.2f%%\n", g.Group, g.Allocated, g.Share*100)
	}

	_, _ = fmt.Fprintf(w, "\nSummary\n")
	_, _ = p.Fprintf(w, "  Demand: %.2f  Allocated: %.2f  Unmet: %.2f\n", s.TotalDemand, s.TotalAllocated, s.TotalUnmet)
	_, _ = p.Fprintf(w, "  CO2: %.2f (production %.2f, transport %.2f, mean per step %.2f)\n",
		s.CO2Total, s.CO2Production, s.CO2Transport, s.CO2Mean)
	_, _ = p.Fprintf(w, "  Cost: $%.2f (mean per step $%.2f)\n", s.CostTotal, s.CostMean)
	_, _ = p.Fprintf(w, "  Jain: final %.4f, cumulative %.4f, mean %.4f\n", s.FinalJain, s.CumulativeJain, s.MeanJain)
	_, _ = p.Fprintf(w, "  Shares: gini %.4f, max %.4f, std %.4f\n", s.ShareGini, s.ShareMax, s.ShareStd)
	_, _ = p.Fprintf(w, "  Participation: %d of %d suppliers (%.2f%%)\n",
		s.ActiveSuppliers, len(s.Suppliers), s.ParticipationRate*100)
}

// CsvFormat writes one row per step in comma-separated value format, with
// one allocation column per supplier. Every field is quoted; quotes inside a
// supplier ID are doubled so free-form IDs stay valid CSV.
func CsvFormat(w io.Writer, result *market.Result) {
	_, _ = fmt.Fprintf(w, `"step","demand","allocated","unmet","co2 production","co2 transport","co2 total","cost","jain"`)
	for _, sup := range result.Summary.Suppliers {
		_, _ = fmt.Fprintf(w, `,"allocated (%s)"`, csvEscape(sup.ID))
	}
	_, _ = fmt.Fprintf(w, "\n")

	for _, snap := range result.Snapshots {
		_, _ = fmt.Fprintf(w, `"%d","%.4f","%.4f","%.4f","%.4f","%.4f","%.4f","%.4f","%.6f"`,
			snap.Step, snap.Demand, snap.Allocated, snap.Unmet,
			snap.CO2Production, snap.CO2Transport, snap.CO2Total, snap.Cost, snap.Jain)
		for _, sup := range result.Summary.Suppliers {
			_, _ = fmt.Fprintf(w, `,"%.4f"`, snap.Allocation(sup.ID))
		}
		_, _ = fmt.Fprintf(w, "\n")
	}
}

func csvEscape(field string) string {
	return strings.ReplaceAll(field, `"`, `""`)
}

// CsvString renders CsvFormat into a string.
func CsvString(result *market.Result) string {
	var buf bytes.Buffer
	CsvFormat(&buf, result)
	return buf.String()
}
