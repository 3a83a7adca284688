package service

import (
	"github.com/replaysMike/Binner-sub003/internal/bom/domain"
	"github.com/replaysMike/Binner-sub003/internal/bom/dto"
	"github.com/replaysMike/Binner-sub003/internal/bom/entity"
	"github.com/replaysMike/Binner-sub003/internal/bom/producibility"
	"github.com/replaysMike/Binner-sub003/internal/bom/repository"
)

func toPartView(p *entity.Part) *dto.PartView {
	if p == nil {
		return nil
	}
	return &dto.PartView{
		PartID:                 p.ID,
		PartNumber:             p.PartNumber,
		Description:            p.Description,
		Manufacturer:           p.Manufacturer,
		ManufacturerPartNumber: p.ManufacturerPartNumber,
		Quantity:               p.Quantity,
		Cost:                   p.Cost,
		Location:               p.Location,
		BinNumber:              p.BinNumber,
	}
}

func toLineItemView(a *entity.PartAssignment) dto.LineItemView {
	view := dto.LineItemView{
		ProjectPartAssignmentID: a.ID,
		ProjectID:               a.ProjectID,
		PartID:                  a.PartID,
		PcbID:                   a.PcbID,
		PartName:                a.PartName,
		Quantity:                a.Quantity,
		QuantityAvailable:       a.QuantityAvailable,
		Cost:                    a.Cost,
		Notes:                   a.Notes,
		ReferenceID:             a.ReferenceID,
		SchematicReferenceID:    a.SchematicReferenceID,
		CustomDescription:       a.CustomDescription,
	}
	if a.PartID != nil && a.Part != nil {
		view.Part = toPartView(a.Part)
	}
	return view
}

func toPcbView(p *entity.Pcb) dto.PcbView {
	return dto.PcbView{
		PcbID:              p.ID,
		ProjectID:          p.ProjectID,
		Name:               p.Name,
		Description:        p.Description,
		Quantity:           p.Quantity,
		Cost:               p.Cost,
		SerialNumberFormat: p.SerialNumberFormat,
		LastSerialNumber:   p.LastSerialNumber,
	}
}

func toProjectView(p *entity.Project) dto.ProjectView {
	return dto.ProjectView{
		ProjectID:   p.ID,
		Name:        p.Name,
		Description: p.Description,
		Location:    p.Location,
		Color:       p.Color,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toProjectSummaryView(s repository.ProjectSummary) dto.ProjectView {
	return dto.ProjectView{
		ProjectID:   s.ID,
		Name:        s.Name,
		Description: s.Description,
		Location:    s.Location,
		Color:       s.Color,
		PartCount:   s.PartCount,
		PcbCount:    s.PcbCount,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func toHistoryView(h *entity.ProduceHistory) dto.ProduceHistoryView {
	pcbs := make([]dto.ProducedPcb, 0, len(h.Pcbs))
	for _, p := range h.Pcbs {
		pcbs = append(pcbs, dto.ProducedPcb{PcbID: p.PcbID, Units: p.Units, SerialNumbers: p.SerialNumbers})
	}
	return dto.ProduceHistoryView{
		ID:            h.ID,
		ProjectID:     h.ProjectID,
		Quantity:      h.Quantity,
		Unassociated:  h.Unassociated,
		Pcbs:          pcbs,
		PartsConsumed: h.PartsConsumed,
		Cost:          h.Cost,
		CreatedAt:     h.CreatedAt,
	}
}

// buildSnapshot converts a loaded project into its snapshot and computes
// producibility from it.
func buildSnapshot(project *entity.Project) (*dto.BomResponse, producibility.BomResult) {
	snapshot := &dto.BomResponse{
		ProjectID:   project.ID,
		Name:        project.Name,
		Description: project.Description,
		Location:    project.Location,
		Color:       project.Color,
		Parts:       make([]dto.LineItemView, 0, len(project.Parts)),
		Pcbs:        make([]dto.PcbView, 0, len(project.Pcbs)),
	}
	for i := range project.Parts {
		snapshot.Parts = append(snapshot.Parts, toLineItemView(&project.Parts[i]))
	}
	for i := range project.Pcbs {
		snapshot.Pcbs = append(snapshot.Pcbs, toPcbView(&project.Pcbs[i]))
	}

	items := snapshot.LineItems()
	result := producibility.BomCount(items, snapshot.DomainPcbs())
	snapshot.Producibility = dto.NewProducibility(result)
	snapshot.TotalCost = domain.TotalCost(items)
	return snapshot, result
}
