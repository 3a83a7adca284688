// Package producibility computes how many units of a PCB, or of a whole
// BOM, can be built from the current stock.
//
// All functions are pure: they never mutate their input and return the same
// result for the same input.
package producibility

import "github.com/replaysMike/Binner-sub003/internal/bom/domain"

// AnomalyKind classifies data the calculators skipped or corrected.
type AnomalyKind string

const (
	// AnomalyNonPositiveQuantity is a line item requiring zero or fewer units.
	AnomalyNonPositiveQuantity AnomalyKind = "non_positive_item_quantity"
	// AnomalyNonPositivePcbQuantity is a PCB requiring zero or fewer units per build.
	AnomalyNonPositivePcbQuantity AnomalyKind = "non_positive_pcb_quantity"
)

// Anomaly is a data problem found during a calculation. Anomalies never abort it.
type Anomaly struct {
	Kind       AnomalyKind
	PcbID      int64
	LineItemID int64
}

// PcbResult is the producibility of one PCB, or of the unassociated items
// when PcbID is zero.
type PcbResult struct {
	PcbID int64
	Count int64
	// LimitingItemID is the first line item achieving the minimum; nil when
	// there is no constraint.
	LimitingItemID *int64
	// NoPartsAssigned is set when no line item with a positive quantity
	// belongs to the PCB. Count is zero in that case.
	NoPartsAssigned bool
	Anomalies       []Anomaly
}

// PcbBuild is a PCB's result expressed in whole-BOM builds.
type PcbBuild struct {
	PcbResult
	Required int64
	Builds   int64
}

// BomResult is the producibility of the whole BOM.
type BomResult struct {
	Count int64
	// LimitingPcbID is the first PCB achieving the minimum; nil when the BOM
	// has no PCBs or nothing constrains it.
	LimitingPcbID *int64
	// LimitingItemID is set when the BOM has no PCBs and its unassociated
	// items constrain the count.
	LimitingItemID *int64
	Pcbs           []PcbBuild
	Unassociated   PcbResult
	Anomalies      []Anomaly
}

// PcbCount returns how many units of pcb can be produced from stock.
func PcbCount(items []domain.LineItem, pcb domain.Pcb) PcbResult {
	return countFor(items, pcb.ID)
}

// UnassociatedCount runs the per-PCB calculation over the line items that
// belong to no PCB.
func UnassociatedCount(items []domain.LineItem) PcbResult {
	return countFor(items, domain.Unassociated)
}

func countFor(items []domain.LineItem, pcbID int64) PcbResult {
	result := PcbResult{PcbID: pcbID}
	constrained := false

	for _, item := range items {
		if item.PcbID != pcbID {
			continue
		}
		if item.Quantity <= 0 {
			result.Anomalies = append(result.Anomalies, Anomaly{
				Kind:       AnomalyNonPositiveQuantity,
				PcbID:      pcbID,
				LineItemID: item.ID,
			})
			continue
		}

		possible := domain.ResolveAvailable(item) / item.Quantity
		if !constrained || possible < result.Count {
			id := item.ID
			result.Count = possible
			result.LimitingItemID = &id
			constrained = true
		}
	}

	if !constrained {
		result.NoPartsAssigned = true
		result.Count = 0
	}
	return result
}

// BomCount returns how many complete builds of the BOM can be produced.
//
// With PCBs, each PCB contributes floor(PcbCount / pcb.Quantity) and the
// smallest contribution wins. Without PCBs the unassociated line items are
// the whole BOM.
func BomCount(items []domain.LineItem, pcbs []domain.Pcb) BomResult {
	result := BomResult{Unassociated: UnassociatedCount(items)}
	result.Anomalies = append(result.Anomalies, result.Unassociated.Anomalies...)

	if len(pcbs) == 0 {
		if !result.Unassociated.NoPartsAssigned {
			result.Count = result.Unassociated.Count
			result.LimitingItemID = result.Unassociated.LimitingItemID
		}
		return result
	}

	result.Pcbs = make([]PcbBuild, 0, len(pcbs))
	for i, pcb := range pcbs {
		pc := PcbCount(items, pcb)
		result.Anomalies = append(result.Anomalies, pc.Anomalies...)

		required := pcb.Quantity
		if required <= 0 {
			result.Anomalies = append(result.Anomalies, Anomaly{
				Kind:  AnomalyNonPositivePcbQuantity,
				PcbID: pcb.ID,
			})
			required = 1
		}

		build := PcbBuild{PcbResult: pc, Required: required, Builds: pc.Count / required}
		result.Pcbs = append(result.Pcbs, build)

		if i == 0 || build.Builds < result.Count {
			id := pcb.ID
			result.Count = build.Builds
			result.LimitingPcbID = &id
		}
	}
	return result
}
