// Package domain holds the in-memory BOM model shared by the server, the
// client and the producibility calculators.
package domain

import "github.com/shopspring/decimal"

// Unassociated is the PcbID of line items that belong to no PCB.
const Unassociated int64 = 0

// Part is the inventory part a line item may be linked to.
type Part struct {
	ID          int64
	PartNumber  string
	Description string
	Quantity    int64
	Cost        decimal.Decimal
}

// Source tells where a line item's availability and cost live.
// It is either Linked or Manual.
type Source interface {
	source()
}

// Linked line items read and write availability and cost on the inventory part.
// Stored holds the line item's own override values; they are kept as-is and
// ignored while the item is linked.
type Linked struct {
	Part   Part
	Stored Manual
}

// Manual line items carry their own availability and cost.
type Manual struct {
	QuantityAvailable int64
	Cost              decimal.Decimal
}

func (Linked) source() {}
func (Manual) source() {}

// LineItem is one row of a BOM.
type LineItem struct {
	ID                   int64
	PcbID                int64
	PartName             string
	Quantity             int64
	Notes                string
	ReferenceID          string
	SchematicReferenceID string
	CustomDescription    string
	Source               Source
}

// Pcb is a named sub-assembly of a project.
type Pcb struct {
	ID       int64
	Name     string
	Quantity int64
}

// IsUnassociated reports whether the line item belongs to no PCB.
func (l LineItem) IsUnassociated() bool {
	return l.PcbID == Unassociated
}

// LinkedPart returns the inventory part of a linked line item.
func (l LineItem) LinkedPart() (Part, bool) {
	if linked, ok := l.Source.(Linked); ok {
		return linked.Part, true
	}
	return Part{}, false
}

// Cost is the unit cost of the line item, read from the linked part when linked.
func (l LineItem) Cost() decimal.Decimal {
	switch s := l.Source.(type) {
	case Linked:
		return s.Part.Cost
	case Manual:
		return s.Cost
	}
	return decimal.Zero
}

// ExtendedCost is unit cost times required quantity.
func (l LineItem) ExtendedCost() decimal.Decimal {
	return l.Cost().Mul(decimal.NewFromInt(l.Quantity))
}

// ResolveAvailable returns how many units of a line item are in stock.
// Linked items read the inventory part, manual items read their own override.
// The result is never negative.
func ResolveAvailable(item LineItem) int64 {
	var available int64
	switch s := item.Source.(type) {
	case Linked:
		available = s.Part.Quantity
	case Manual:
		available = s.QuantityAvailable
	}
	if available < 0 {
		return 0
	}
	return available
}

// TotalCost sums the extended cost of every line item.
func TotalCost(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.ExtendedCost())
	}
	return total
}
