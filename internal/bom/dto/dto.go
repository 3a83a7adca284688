// Package dto defines the JSON shapes exchanged by the BOM API and its client.
package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/replaysMike/Binner-sub003/internal/bom/domain"
	"github.com/replaysMike/Binner-sub003/internal/bom/producibility"
)

// PartView is an inventory part.
type PartView struct {
	PartID                 int64           `json:"partId"`
	PartNumber             string          `json:"partNumber"`
	Description            string          `json:"description"`
	Manufacturer           string          `json:"manufacturer"`
	ManufacturerPartNumber string          `json:"manufacturerPartNumber"`
	Quantity               int64           `json:"quantity"`
	Cost                   decimal.Decimal `json:"cost"`
	Location               string          `json:"location"`
	BinNumber              string          `json:"binNumber"`
}

// LineItemView is one BOM line item (a project part assignment).
type LineItemView struct {
	ProjectPartAssignmentID int64           `json:"projectPartAssignmentId"`
	ProjectID               int64           `json:"projectId"`
	PartID                  *int64          `json:"partId,omitempty"`
	PcbID                   int64           `json:"pcbId"`
	PartName                string          `json:"partName"`
	Quantity                int64           `json:"quantity"`
	QuantityAvailable       int64           `json:"quantityAvailable"`
	Cost                    decimal.Decimal `json:"cost"`
	Notes                   string          `json:"notes"`
	ReferenceID             string          `json:"referenceId"`
	SchematicReferenceID    string          `json:"schematicReferenceId"`
	CustomDescription       string          `json:"customDescription"`
	Part                    *PartView       `json:"part,omitempty"`
}

// PcbView is a PCB of a project.
type PcbView struct {
	PcbID              int64           `json:"pcbId"`
	ProjectID          int64           `json:"projectId"`
	Name               string          `json:"name"`
	Description        string          `json:"description"`
	Quantity           int64           `json:"quantity"`
	Cost               decimal.Decimal `json:"cost"`
	SerialNumberFormat string          `json:"serialNumberFormat"`
	LastSerialNumber   string          `json:"lastSerialNumber"`
}

// PcbProducibility is the producibility of one PCB.
type PcbProducibility struct {
	PcbID                    int64  `json:"pcbId"`
	Count                    int64  `json:"count"`
	Required                 int64  `json:"required"`
	Builds                   int64  `json:"builds"`
	LimitingPartAssignmentID *int64 `json:"limitingPartAssignmentId,omitempty"`
	NoPartsAssigned          bool   `json:"noPartsAssigned"`
}

// Producibility is the computed producibility of a BOM snapshot.
type Producibility struct {
	Count                    int64              `json:"count"`
	LimitingPcbID            *int64             `json:"limitingPcbId,omitempty"`
	LimitingPartAssignmentID *int64             `json:"limitingPartAssignmentId,omitempty"`
	Pcbs                     []PcbProducibility `json:"pcbs"`
	Unassociated             PcbProducibility   `json:"unassociated"`
}

// BomResponse is the BOM snapshot returned by GET /api/bom.
type BomResponse struct {
	ProjectID     int64           `json:"projectId"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Location      string          `json:"location"`
	Color         int             `json:"color"`
	Parts         []LineItemView  `json:"parts"`
	Pcbs          []PcbView       `json:"pcbs"`
	Producibility Producibility   `json:"producibility"`
	TotalCost     decimal.Decimal `json:"totalCost"`
}

// ProjectView is a project summary.
type ProjectView struct {
	ProjectID   int64     `json:"projectId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Color       int       `json:"color"`
	PartCount   int64     `json:"partCount"`
	PcbCount    int64     `json:"pcbCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ProducedPcb lists the units produced for one PCB.
type ProducedPcb struct {
	PcbID         int64    `json:"pcbId"`
	Units         int64    `json:"units"`
	SerialNumbers []string `json:"serialNumbers"`
}

// ProduceHistoryView is one recorded production run.
type ProduceHistoryView struct {
	ID            int64           `json:"id"`
	ProjectID     int64           `json:"projectId"`
	Quantity      int64           `json:"quantity"`
	Unassociated  bool            `json:"unassociated"`
	Pcbs          []ProducedPcb   `json:"pcbs"`
	PartsConsumed int64           `json:"partsConsumed"`
	Cost          decimal.Decimal `json:"cost"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// ProduceBomResponse is returned by POST /api/bom/produce.
type ProduceBomResponse struct {
	Bom      BomResponse   `json:"bom"`
	Produced []ProducedPcb `json:"produced"`
}

// DeleteResult reports how many rows a delete removed.
type DeleteResult struct {
	Deleted int64 `json:"deleted"`
}

// ToDomain converts the view into the tagged line item model.
func (v LineItemView) ToDomain() domain.LineItem {
	item := domain.LineItem{
		ID:                   v.ProjectPartAssignmentID,
		PcbID:                v.PcbID,
		PartName:             v.PartName,
		Quantity:             v.Quantity,
		Notes:                v.Notes,
		ReferenceID:          v.ReferenceID,
		SchematicReferenceID: v.SchematicReferenceID,
		CustomDescription:    v.CustomDescription,
	}
	own := domain.Manual{QuantityAvailable: v.QuantityAvailable, Cost: v.Cost}
	if v.Part != nil {
		item.Source = domain.Linked{
			Part: domain.Part{
				ID:          v.Part.PartID,
				PartNumber:  v.Part.PartNumber,
				Description: v.Part.Description,
				Quantity:    v.Part.Quantity,
				Cost:        v.Part.Cost,
			},
			Stored: own,
		}
	} else {
		item.Source = own
	}
	return item
}

// ToDomain converts the view into the calculator's PCB model.
func (v PcbView) ToDomain() domain.Pcb {
	return domain.Pcb{ID: v.PcbID, Name: v.Name, Quantity: v.Quantity}
}

// LineItems returns the snapshot's line items in order.
func (b BomResponse) LineItems() []domain.LineItem {
	items := make([]domain.LineItem, 0, len(b.Parts))
	for _, p := range b.Parts {
		items = append(items, p.ToDomain())
	}
	return items
}

// DomainPcbs returns the snapshot's PCBs in order.
func (b BomResponse) DomainPcbs() []domain.Pcb {
	pcbs := make([]domain.Pcb, 0, len(b.Pcbs))
	for _, p := range b.Pcbs {
		pcbs = append(pcbs, p.ToDomain())
	}
	return pcbs
}

// FindPart returns the line item with the given assignment id.
func (b BomResponse) FindPart(id int64) (LineItemView, bool) {
	for _, p := range b.Parts {
		if p.ProjectPartAssignmentID == id {
			return p, true
		}
	}
	return LineItemView{}, false
}

// NewProducibility converts a calculator result into its wire shape.
func NewProducibility(r producibility.BomResult) Producibility {
	out := Producibility{
		Count:                    r.Count,
		LimitingPcbID:            r.LimitingPcbID,
		LimitingPartAssignmentID: r.LimitingItemID,
		Pcbs:                     make([]PcbProducibility, 0, len(r.Pcbs)),
		Unassociated: PcbProducibility{
			PcbID:                    r.Unassociated.PcbID,
			Count:                    r.Unassociated.Count,
			Required:                 1,
			Builds:                   r.Unassociated.Count,
			LimitingPartAssignmentID: r.Unassociated.LimitingItemID,
			NoPartsAssigned:          r.Unassociated.NoPartsAssigned,
		},
	}
	for _, p := range r.Pcbs {
		out.Pcbs = append(out.Pcbs, PcbProducibility{
			PcbID:                    p.PcbID,
			Count:                    p.Count,
			Required:                 p.Required,
			Builds:                   p.Builds,
			LimitingPartAssignmentID: p.LimitingItemID,
			NoPartsAssigned:          p.NoPartsAssigned,
		})
	}
	return out
}

// MoveResult reports how many line items a move reassigned.
type MoveResult struct {
	Moved int64 `json:"moved"`
}
