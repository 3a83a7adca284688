package dto

import "github.com/shopspring/decimal"

// CreateProjectRequest POST /api/bom/project
type CreateProjectRequest struct {
	Name        string `json:"name" binding:"required,max=255"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Color       int    `json:"color"`
}

// UpdateProjectRequest PUT /api/bom/project
type UpdateProjectRequest struct {
	ProjectID   int64  `json:"projectId" binding:"required"`
	Name        string `json:"name" binding:"required,max=255"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Color       int    `json:"color"`
}

// DeleteProjectRequest DELETE /api/bom/project
type DeleteProjectRequest struct {
	ProjectID int64 `json:"projectId" binding:"required"`
}

// AddBomPartRequest POST /api/bom/part
//
// PartID links the line item to an inventory part. Without it the line item
// is manual and QuantityAvailable/Cost are its own.
type AddBomPartRequest struct {
	ProjectID            int64           `json:"projectId" binding:"required"`
	PartID               *int64          `json:"partId"`
	PcbID                int64           `json:"pcbId"`
	PartName             string          `json:"partName"`
	Quantity             int64           `json:"quantity"`
	QuantityAvailable    int64           `json:"quantityAvailable"`
	Cost                 decimal.Decimal `json:"cost"`
	Notes                string          `json:"notes"`
	ReferenceID          string          `json:"referenceId"`
	SchematicReferenceID string          `json:"schematicReferenceId"`
	CustomDescription    string          `json:"customDescription"`
}

// PartStockUpdate carries the inventory fields an inline edit redirected to
// the linked part.
type PartStockUpdate struct {
	PartID   int64           `json:"partId"`
	Quantity int64           `json:"quantity"`
	Cost     decimal.Decimal `json:"cost"`
}

// UpdateBomPartRequest PUT /api/bom/part
type UpdateBomPartRequest struct {
	ProjectPartAssignmentID int64            `json:"projectPartAssignmentId" binding:"required"`
	ProjectID               int64            `json:"projectId" binding:"required"`
	PcbID                   int64            `json:"pcbId"`
	PartName                string           `json:"partName"`
	Quantity                int64            `json:"quantity"`
	QuantityAvailable       int64            `json:"quantityAvailable"`
	Cost                    decimal.Decimal  `json:"cost"`
	Notes                   string           `json:"notes"`
	ReferenceID             string           `json:"referenceId"`
	SchematicReferenceID    string           `json:"schematicReferenceId"`
	CustomDescription       string           `json:"customDescription"`
	Part                    *PartStockUpdate `json:"part,omitempty"`
}

// DeleteBomPartRequest DELETE /api/bom/part
type DeleteBomPartRequest struct {
	ProjectID int64   `json:"projectId" binding:"required"`
	IDs       []int64 `json:"ids" binding:"required,min=1"`
}

// MoveBomPartRequest PUT /api/bom/move
type MoveBomPartRequest struct {
	ProjectID int64   `json:"projectId" binding:"required"`
	IDs       []int64 `json:"ids" binding:"required,min=1"`
	PcbID     int64   `json:"pcbId"`
}

// AddPcbRequest POST /api/bom/pcb
type AddPcbRequest struct {
	ProjectID          int64           `json:"projectId" binding:"required"`
	Name               string          `json:"name" binding:"required,max=255"`
	Description        string          `json:"description"`
	Quantity           int64           `json:"quantity"`
	Cost               decimal.Decimal `json:"cost"`
	SerialNumberFormat string          `json:"serialNumberFormat"`
	LastSerialNumber   string          `json:"lastSerialNumber"`
}

// UpdatePcbRequest PUT /api/bom/pcb
type UpdatePcbRequest struct {
	PcbID              int64           `json:"pcbId" binding:"required"`
	ProjectID          int64           `json:"projectId" binding:"required"`
	Name               string          `json:"name" binding:"required,max=255"`
	Description        string          `json:"description"`
	Quantity           int64           `json:"quantity"`
	Cost               decimal.Decimal `json:"cost"`
	SerialNumberFormat string          `json:"serialNumberFormat"`
	LastSerialNumber   string          `json:"lastSerialNumber"`
}

// DeletePcbRequest DELETE /api/bom/pcb
type DeletePcbRequest struct {
	ProjectID int64 `json:"projectId" binding:"required"`
	PcbID     int64 `json:"pcbId" binding:"required"`
}

// ProduceBomRequest POST /api/bom/produce
//
// Quantity is the number of BOM builds. Pcbs selects the PCBs to produce;
// empty means every PCB unless Unassociated is the only selection.
type ProduceBomRequest struct {
	ProjectID    int64   `json:"projectId" binding:"required"`
	Quantity     int64   `json:"quantity" binding:"required,min=1,max=100000"`
	Unassociated bool    `json:"unassociated"`
	Pcbs         []int64 `json:"pcbs"`
}

// Export formats accepted by POST /api/bom/download.
const (
	FormatCSV   = "csv"
	FormatExcel = "excel"
)

// DownloadBomRequest POST /api/bom/download
type DownloadBomRequest struct {
	ProjectID int64  `json:"projectId" binding:"required"`
	Format    string `json:"format" binding:"omitempty,oneof=csv excel"`
}

// CreatePartRequest POST /api/part
type CreatePartRequest struct {
	PartNumber             string          `json:"partNumber" binding:"required,max=255"`
	Description            string          `json:"description"`
	Manufacturer           string          `json:"manufacturer"`
	ManufacturerPartNumber string          `json:"manufacturerPartNumber"`
	Quantity               int64           `json:"quantity"`
	Cost                   decimal.Decimal `json:"cost"`
	Location               string          `json:"location"`
	BinNumber              string          `json:"binNumber"`
}

// UpdatePartRequest PUT /api/part/:id
type UpdatePartRequest struct {
	PartNumber             string          `json:"partNumber" binding:"required,max=255"`
	Description            string          `json:"description"`
	Manufacturer           string          `json:"manufacturer"`
	ManufacturerPartNumber string          `json:"manufacturerPartNumber"`
	Quantity               int64           `json:"quantity"`
	Cost                   decimal.Decimal `json:"cost"`
	Location               string          `json:"location"`
	BinNumber              string          `json:"binNumber"`
}
