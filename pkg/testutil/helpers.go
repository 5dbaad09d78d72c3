// Package testutil provides common utility functions for testing.
package testutil

import (
	"github.com/iwvelando/fairmarket/internal/market"
)

// FindSupplier finds a supplier summary by ID.
// Returns a pointer to the summary if found, nil otherwise.
func FindSupplier(summary *market.Summary, id string) *market.SupplierSummary {
	if summary == nil {
		return nil
	}
	for i := range summary.Suppliers {
		if summary.Suppliers[i].ID == id {
			return &summary.Suppliers[i]
		}
	}
	return nil
}

// FindGroup finds a group summary by name.
func FindGroup(summary *market.Summary, group string) *market.GroupSummary {
	if summary == nil {
		return nil
	}
	for i := range summary.Groups {
		if summary.Groups[i].Group == group {
			return &summary.Groups[i]
		}
	}
	return nil
}

// GroupAllocations returns the allocation of every group in one step.
func GroupAllocations(snap market.Snapshot, groupOf func(id string) string) map[string]float64 {
	out := make(map[string]float64)
	for _, sup := range snap.Suppliers {
		out[groupOf(sup.ID)] += sup.Allocated
	}
	return out
}
