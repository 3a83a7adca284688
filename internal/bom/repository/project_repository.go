package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/replaysMike/Binner-sub003/internal/bom/entity"
)

type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create 创建项目
func (r *ProjectRepository) Create(ctx context.Context, project *entity.Project) error {
	return r.db.WithContext(ctx).Create(project).Error
}

// FindByID returns the project without its BOM.
func (r *ProjectRepository) FindByID(ctx context.Context, userID string, id int64) (*entity.Project, error) {
	var project entity.Project
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&project, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &project, nil
}

// FindByName returns the project without its BOM.
func (r *ProjectRepository) FindByName(ctx context.Context, userID, name string) (*entity.Project, error) {
	var project entity.Project
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND name = ?", userID, name).
		First(&project).Error
	if err != nil {
		return nil, translate(err)
	}
	return &project, nil
}

// LoadBOM returns the project with PCBs, line items and linked parts in
// creation order.
func (r *ProjectRepository) LoadBOM(ctx context.Context, userID string, id int64) (*entity.Project, error) {
	var project entity.Project
	err := r.db.WithContext(ctx).
		Preload("Pcbs", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Parts", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Parts.Part").
		Where("user_id = ?", userID).
		First(&project, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &project, nil
}

// ExistsByName reports whether the user has a project with the name, other than excludeID.
func (r *ProjectRepository) ExistsByName(ctx context.Context, userID, name string, excludeID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Project{}).
		Where("user_id = ? AND name = ? AND id <> ?", userID, name, excludeID).
		Count(&count).Error
	return count > 0, err
}

// ProjectSummary is a project with its BOM sizes.
type ProjectSummary struct {
	ID          int64
	Name        string
	Description string
	Location    string
	Color       int
	PartCount   int64
	PcbCount    int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// List 获取用户的项目列表
func (r *ProjectRepository) List(ctx context.Context, userID string) ([]ProjectSummary, error) {
	var summaries []ProjectSummary
	err := r.db.WithContext(ctx).Model(&entity.Project{}).
		Select(`projects.*,
			(SELECT COUNT(*) FROM project_part_assignments a WHERE a.project_id = projects.id) AS part_count,
			(SELECT COUNT(*) FROM pcbs p WHERE p.project_id = projects.id) AS pcb_count`).
		Where("projects.user_id = ?", userID).
		Order("projects.name ASC").
		Scan(&summaries).Error
	return summaries, err
}

// Update 更新项目
func (r *ProjectRepository) Update(ctx context.Context, project *entity.Project) error {
	return r.db.WithContext(ctx).
		Model(project).
		Select("Name", "Description", "Location", "Color", "UpdatedAt").
		Updates(project).Error
}

// Delete removes the project with its PCBs, line items and history.
// Call it inside a transaction.
func (r *ProjectRepository) Delete(ctx context.Context, id int64) error {
	db := r.db.WithContext(ctx)
	if err := db.Delete(&entity.PartAssignment{}, "project_id = ?", id).Error; err != nil {
		return err
	}
	if err := db.Delete(&entity.Pcb{}, "project_id = ?", id).Error; err != nil {
		return err
	}
	if err := db.Delete(&entity.ProduceHistory{}, "project_id = ?", id).Error; err != nil {
		return err
	}
	return db.Delete(&entity.Project{}, "id = ?", id).Error
}
