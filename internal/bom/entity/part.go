package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Part inventory part
type Part struct {
	ID                     int64           `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID                 string          `json:"user_id" gorm:"size:64;not null;index"`
	PartNumber             string          `json:"part_number" gorm:"size:255;not null;index"`
	Description            string          `json:"description,omitempty"`
	Manufacturer           string          `json:"manufacturer,omitempty" gorm:"size:128"`
	ManufacturerPartNumber string          `json:"manufacturer_part_number,omitempty" gorm:"size:128"`
	Quantity               int64           `json:"quantity" gorm:"not null;default:0"`
	Cost                   decimal.Decimal `json:"cost" gorm:"type:numeric(15,4);not null;default:0"`
	Location               string          `json:"location,omitempty" gorm:"size:255"`
	BinNumber              string          `json:"bin_number,omitempty" gorm:"size:64"`
	CreatedAt              time.Time       `json:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at"`
}

func (Part) TableName() string {
	return "parts"
}

// PartAssignment BOM line item: a part required by a project, optionally on a PCB
type PartAssignment struct {
	ID                   int64           `json:"id" gorm:"primaryKey;autoIncrement"`
	ProjectID            int64           `json:"project_id" gorm:"not null;index"`
	UserID               string          `json:"user_id" gorm:"size:64;not null"`
	PartID               *int64          `json:"part_id,omitempty" gorm:"index"`
	PcbID                int64           `json:"pcb_id" gorm:"not null;default:0;index"` // 0 = unassociated
	PartName             string          `json:"part_name,omitempty" gorm:"size:255"`
	Quantity             int64           `json:"quantity" gorm:"not null"`
	QuantityAvailable    int64           `json:"quantity_available" gorm:"not null;default:0"`
	Cost                 decimal.Decimal `json:"cost" gorm:"type:numeric(15,4);not null;default:0"`
	Notes                string          `json:"notes,omitempty"`
	ReferenceID          string          `json:"reference_id,omitempty" gorm:"size:255"`
	SchematicReferenceID string          `json:"schematic_reference_id,omitempty" gorm:"size:255"`
	CustomDescription    string          `json:"custom_description,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`

	// Relations
	Part *Part `json:"part,omitempty" gorm:"foreignKey:PartID"`
}

func (PartAssignment) TableName() string {
	return "project_part_assignments"
}

// ProducedPcb units produced for one PCB in a production run
type ProducedPcb struct {
	PcbID         int64    `json:"pcb_id"`
	Units         int64    `json:"units"`
	SerialNumbers []string `json:"serial_numbers"`
}

// ProduceHistory one production run of a project
type ProduceHistory struct {
	ID            int64                            `json:"id" gorm:"primaryKey;autoIncrement"`
	ProjectID     int64                            `json:"project_id" gorm:"not null;index"`
	UserID        string                           `json:"user_id" gorm:"size:64;not null"`
	Quantity      int64                            `json:"quantity" gorm:"not null"`
	Unassociated  bool                             `json:"unassociated" gorm:"default:false"`
	Pcbs          datatypes.JSONSlice[ProducedPcb] `json:"pcbs" gorm:"type:jsonb"`
	PartsConsumed int64                            `json:"parts_consumed" gorm:"not null;default:0"`
	Cost          decimal.Decimal                  `json:"cost" gorm:"type:numeric(15,4);not null;default:0"`
	CreatedAt     time.Time                        `json:"created_at"`
}

func (ProduceHistory) TableName() string {
	return "produce_histories"
}

// Models lists every table for AutoMigrate.
func Models() []interface{} {
	return []interface{}{
		&Project{},
		&Pcb{},
		&Part{},
		&PartAssignment{},
		&ProduceHistory{},
	}
}
