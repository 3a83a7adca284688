package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/replaysMike/Binner-sub003/internal/bom/dto"
	"github.com/replaysMike/Binner-sub003/internal/bom/entity"
	"github.com/replaysMike/Binner-sub003/internal/bom/events"
	"github.com/replaysMike/Binner-sub003/internal/bom/repository"
	"github.com/replaysMike/Binner-sub003/internal/metrics"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 50
)

// PartService 库存零件服务
type PartService struct {
	changeNotifier
	repos   *repository.Repositories
	metrics *metrics.Metrics
}

func NewPartService(repos *repository.Repositories, cache SnapshotCache, hub *events.Hub, m *metrics.Metrics) *PartService {
	return &PartService{changeNotifier: changeNotifier{cache: cache, hub: hub}, repos: repos, metrics: m}
}

// Get 获取零件
func (s *PartService) Get(ctx context.Context, userID string, id int64) (*dto.PartView, error) {
	part, err := s.repos.Part.FindByID(ctx, userID, id)
	if err != nil {
		return nil, lookup(err, "part", id)
	}
	return toPartView(part), nil
}

// Create 创建零件
func (s *PartService) Create(ctx context.Context, userID string, req *dto.CreatePartRequest) (*dto.PartView, error) {
	if strings.TrimSpace(req.PartNumber) == "" {
		return nil, invalid("partNumber is required")
	}
	if req.Quantity < 0 {
		return nil, invalid("quantity must not be negative")
	}
	now := time.Now()
	part := &entity.Part{
		UserID:                 userID,
		PartNumber:             strings.TrimSpace(req.PartNumber),
		Description:            req.Description,
		Manufacturer:           req.Manufacturer,
		ManufacturerPartNumber: req.ManufacturerPartNumber,
		Quantity:               req.Quantity,
		Cost:                   req.Cost,
		Location:               req.Location,
		BinNumber:              req.BinNumber,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if err := s.repos.Part.Create(ctx, part); err != nil {
		return nil, fmt.Errorf("create part: %w", err)
	}
	s.metrics.RecordOperation("create_part")
	return toPartView(part), nil
}

// Update changes a part. Linked line items of every project see the change.
func (s *PartService) Update(ctx context.Context, userID string, id int64, req *dto.UpdatePartRequest) (*dto.PartView, error) {
	part, err := s.repos.Part.FindByID(ctx, userID, id)
	if err != nil {
		return nil, lookup(err, "part", id)
	}
	if strings.TrimSpace(req.PartNumber) == "" {
		return nil, invalid("partNumber is required")
	}
	if req.Quantity < 0 {
		return nil, invalid("quantity must not be negative")
	}

	part.PartNumber = strings.TrimSpace(req.PartNumber)
	part.Description = req.Description
	part.Manufacturer = req.Manufacturer
	part.ManufacturerPartNumber = req.ManufacturerPartNumber
	part.Quantity = req.Quantity
	part.Cost = req.Cost
	part.Location = req.Location
	part.BinNumber = req.BinNumber
	part.UpdatedAt = time.Now()
	if err := s.repos.Part.Update(ctx, part); err != nil {
		return nil, fmt.Errorf("update part: %w", err)
	}
	s.changed(ctx, userID, 0, "update_inventory_part")
	s.metrics.RecordOperation("update_part")
	return toPartView(part), nil
}

// Search 搜索零件 (type-ahead lookup)
func (s *PartService) Search(ctx context.Context, userID, keywords string, limit int) ([]dto.PartView, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	if strings.TrimSpace(keywords) == "" {
		return []dto.PartView{}, nil
	}
	parts, err := s.repos.Part.Search(ctx, userID, keywords, limit)
	if err != nil {
		return nil, fmt.Errorf("search parts: %w", err)
	}
	views := make([]dto.PartView, 0, len(parts))
	for i := range parts {
		views = append(views, *toPartView(&parts[i]))
	}
	return views, nil
}
