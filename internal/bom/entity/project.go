package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Project BOM project
type Project struct {
	ID          int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID      string    `json:"user_id" gorm:"size:64;not null;uniqueIndex:idx_projects_user_name"`
	Name        string    `json:"name" gorm:"size:255;not null;uniqueIndex:idx_projects_user_name"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty" gorm:"size:255"`
	Color       int       `json:"color" gorm:"default:0"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Relations
	Pcbs  []Pcb            `json:"pcbs,omitempty" gorm:"foreignKey:ProjectID"`
	Parts []PartAssignment `json:"parts,omitempty" gorm:"foreignKey:ProjectID"`
}

func (Project) TableName() string {
	return "projects"
}

// Pcb printed circuit board sub-assembly of a project
type Pcb struct {
	ID                 int64           `json:"id" gorm:"primaryKey;autoIncrement"`
	ProjectID          int64           `json:"project_id" gorm:"not null;index"`
	UserID             string          `json:"user_id" gorm:"size:64;not null"`
	Name               string          `json:"name" gorm:"size:255;not null"`
	Description        string          `json:"description,omitempty"`
	Quantity           int64           `json:"quantity" gorm:"not null"` // boards required per BOM build
	Cost               decimal.Decimal `json:"cost" gorm:"type:numeric(15,4);not null;default:0"`
	SerialNumberFormat string          `json:"serial_number_format,omitempty" gorm:"size:64"`
	LastSerialNumber   string          `json:"last_serial_number,omitempty" gorm:"size:64"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

func (Pcb) TableName() string {
	return "pcbs"
}
