package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestResolveAvailable(t *testing.T) {
	tests := []struct {
		name string
		item LineItem
		want int64
	}{
		{
			name: "linked reads inventory quantity",
			item: LineItem{Source: Linked{Part: Part{ID: 1, Quantity: 42}}},
			want: 42,
		},
		{
			name: "linked ignores manual values",
			item: LineItem{Source: Linked{Part: Part{ID: 1, Quantity: 3}}},
			want: 3,
		},
		{
			name: "manual reads override",
			item: LineItem{Source: Manual{QuantityAvailable: 7}},
			want: 7,
		},
		{
			name: "negative inventory clamps to zero",
			item: LineItem{Source: Linked{Part: Part{ID: 1, Quantity: -5}}},
			want: 0,
		},
		{
			name: "negative override clamps to zero",
			item: LineItem{Source: Manual{QuantityAvailable: -1}},
			want: 0,
		},
		{
			name: "missing source is zero",
			item: LineItem{},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveAvailable(tt.item); got != tt.want {
				t.Errorf("ResolveAvailable() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestLineItemCost(t *testing.T) {
	linked := LineItem{Quantity: 3, Source: Linked{Part: Part{Cost: decimal.RequireFromString("1.25")}}}
	manual := LineItem{Quantity: 2, Source: Manual{Cost: decimal.RequireFromString("0.10")}}

	if !linked.Cost().Equal(decimal.RequireFromString("1.25")) {
		t.Errorf("linked cost = %s", linked.Cost())
	}
	if !manual.ExtendedCost().Equal(decimal.RequireFromString("0.20")) {
		t.Errorf("manual extended cost = %s", manual.ExtendedCost())
	}
	total := TotalCost([]LineItem{linked, manual})
	if !total.Equal(decimal.RequireFromString("3.95")) {
		t.Errorf("TotalCost = %s, want 3.95", total)
	}
}

func TestLinkedPart(t *testing.T) {
	item := LineItem{Source: Linked{Part: Part{ID: 9}}}
	part, ok := item.LinkedPart()
	if !ok || part.ID != 9 {
		t.Fatalf("LinkedPart() = %v, %v", part, ok)
	}
	if _, ok := (LineItem{Source: Manual{}}).LinkedPart(); ok {
		t.Error("manual item reported a linked part")
	}
	if !(LineItem{}).IsUnassociated() {
		t.Error("zero pcb id should be unassociated")
	}
}
