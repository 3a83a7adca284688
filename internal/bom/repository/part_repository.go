package repository

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/replaysMike/Binner-sub003/internal/bom/entity"
)

type PartRepository struct {
	db *gorm.DB
}

func NewPartRepository(db *gorm.DB) *PartRepository {
	return &PartRepository{db: db}
}

// Create 创建库存零件
func (r *PartRepository) Create(ctx context.Context, part *entity.Part) error {
	return r.db.WithContext(ctx).Create(part).Error
}

// FindByID 根据ID查找零件
func (r *PartRepository) FindByID(ctx context.Context, userID string, id int64) (*entity.Part, error) {
	var part entity.Part
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&part, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &part, nil
}

// FindByIDsForUpdate locks the parts until the transaction ends.
func (r *PartRepository) FindByIDsForUpdate(ctx context.Context, userID string, ids []int64) ([]entity.Part, error) {
	var parts []entity.Part
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND id IN ?", userID, ids).
		Order("id ASC").
		Find(&parts).Error
	return parts, err
}

// Search matches part number, manufacturer part number and description.
func (r *PartRepository) Search(ctx context.Context, userID, keywords string, limit int) ([]entity.Part, error) {
	var parts []entity.Part
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	for _, kw := range strings.Fields(keywords) {
		like := "%" + kw + "%"
		query = query.Where("part_number ILIKE ? OR manufacturer_part_number ILIKE ? OR description ILIKE ?", like, like, like)
	}
	err := query.Order("part_number ASC").Limit(limit).Find(&parts).Error
	return parts, err
}

// Update 更新零件
func (r *PartRepository) Update(ctx context.Context, part *entity.Part) error {
	return r.db.WithContext(ctx).Save(part).Error
}

// UpdateStock writes the quantity and cost of a part.
func (r *PartRepository) UpdateStock(ctx context.Context, id, quantity int64, cost decimal.Decimal) error {
	return r.db.WithContext(ctx).Model(&entity.Part{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"quantity":   quantity,
			"cost":       cost,
			"updated_at": time.Now(),
		}).Error
}

// Decrement lowers a part's quantity.
func (r *PartRepository) Decrement(ctx context.Context, id, by int64) error {
	return r.db.WithContext(ctx).Model(&entity.Part{}).
		Where("id = ?", id).
		Update("quantity", gorm.Expr("quantity - ?", by)).Error
}
