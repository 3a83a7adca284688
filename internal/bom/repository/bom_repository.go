package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/replaysMike/Binner-sub003/internal/bom/entity"
)

type PcbRepository struct {
	db *gorm.DB
}

func NewPcbRepository(db *gorm.DB) *PcbRepository {
	return &PcbRepository{db: db}
}

// Create 创建PCB
func (r *PcbRepository) Create(ctx context.Context, pcb *entity.Pcb) error {
	return r.db.WithContext(ctx).Create(pcb).Error
}

// FindByID returns a PCB of the project.
func (r *PcbRepository) FindByID(ctx context.Context, projectID, id int64) (*entity.Pcb, error) {
	var pcb entity.Pcb
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		First(&pcb, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &pcb, nil
}

// FindByIDForUpdate locks the PCB row until the transaction ends.
func (r *PcbRepository) FindByIDForUpdate(ctx context.Context, projectID, id int64) (*entity.Pcb, error) {
	var pcb entity.Pcb
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("project_id = ?", projectID).
		First(&pcb, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &pcb, nil
}

// ListByProject 获取项目的PCB列表
func (r *PcbRepository) ListByProject(ctx context.Context, projectID int64) ([]entity.Pcb, error) {
	var pcbs []entity.Pcb
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("id ASC").
		Find(&pcbs).Error
	return pcbs, err
}

// Update 更新PCB
func (r *PcbRepository) Update(ctx context.Context, pcb *entity.Pcb) error {
	return r.db.WithContext(ctx).Save(pcb).Error
}

// UpdateLastSerial stores the last serial number issued for the PCB.
func (r *PcbRepository) UpdateLastSerial(ctx context.Context, id int64, serial string) error {
	return r.db.WithContext(ctx).Model(&entity.Pcb{}).
		Where("id = ?", id).
		Update("last_serial_number", serial).Error
}

// Delete 删除PCB
func (r *PcbRepository) Delete(ctx context.Context, projectID, id int64) error {
	return r.db.WithContext(ctx).
		Delete(&entity.Pcb{}, "project_id = ? AND id = ?", projectID, id).Error
}

type PartAssignmentRepository struct {
	db *gorm.DB
}

func NewPartAssignmentRepository(db *gorm.DB) *PartAssignmentRepository {
	return &PartAssignmentRepository{db: db}
}

// Create 创建BOM行项
func (r *PartAssignmentRepository) Create(ctx context.Context, item *entity.PartAssignment) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// FindByID returns a line item of the project with its linked part.
func (r *PartAssignmentRepository) FindByID(ctx context.Context, projectID, id int64) (*entity.PartAssignment, error) {
	var item entity.PartAssignment
	err := r.db.WithContext(ctx).
		Preload("Part").
		Where("project_id = ?", projectID).
		First(&item, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

// Update 更新BOM行项
func (r *PartAssignmentRepository) Update(ctx context.Context, item *entity.PartAssignment) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(item).Error
}

// DecrementAvailable lowers a manual line item's own availability.
func (r *PartAssignmentRepository) DecrementAvailable(ctx context.Context, id, by int64) error {
	return r.db.WithContext(ctx).Model(&entity.PartAssignment{}).
		Where("id = ?", id).
		Update("quantity_available", gorm.Expr("quantity_available - ?", by)).Error
}

// DeleteByIDs removes exactly the listed line items that belong to the project.
func (r *PartAssignmentRepository) DeleteByIDs(ctx context.Context, projectID int64, ids []int64) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("project_id = ? AND id IN ?", projectID, ids).
		Delete(&entity.PartAssignment{})
	return result.RowsAffected, result.Error
}

// MoveToPcb reassigns the listed line items to pcbID (0 = unassociated).
func (r *PartAssignmentRepository) MoveToPcb(ctx context.Context, projectID int64, ids []int64, pcbID int64) (int64, error) {
	result := r.db.WithContext(ctx).Model(&entity.PartAssignment{}).
		Where("project_id = ? AND id IN ?", projectID, ids).
		Update("pcb_id", pcbID)
	return result.RowsAffected, result.Error
}

// Unassign moves every line item of a PCB to unassociated.
func (r *PartAssignmentRepository) Unassign(ctx context.Context, projectID, pcbID int64) error {
	return r.db.WithContext(ctx).Model(&entity.PartAssignment{}).
		Where("project_id = ? AND pcb_id = ?", projectID, pcbID).
		Update("pcb_id", 0).Error
}

type ProduceHistoryRepository struct {
	db *gorm.DB
}

func NewProduceHistoryRepository(db *gorm.DB) *ProduceHistoryRepository {
	return &ProduceHistoryRepository{db: db}
}

// Create 记录生产
func (r *ProduceHistoryRepository) Create(ctx context.Context, h *entity.ProduceHistory) error {
	if err := r.db.WithContext(ctx).Create(h).Error; err != nil {
		return fmt.Errorf("create produce history: %w", err)
	}
	return nil
}

// ListByProject returns the project's production runs, newest first.
func (r *ProduceHistoryRepository) ListByProject(ctx context.Context, projectID int64) ([]entity.ProduceHistory, error) {
	var list []entity.ProduceHistory
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC, id DESC").
		Find(&list).Error
	return list, err
}
