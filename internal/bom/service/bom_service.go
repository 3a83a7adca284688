package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/replaysMike/Binner-sub003/internal/bom/domain"
	"github.com/replaysMike/Binner-sub003/internal/bom/dto"
	"github.com/replaysMike/Binner-sub003/internal/bom/entity"
	"github.com/replaysMike/Binner-sub003/internal/bom/events"
	"github.com/replaysMike/Binner-sub003/internal/bom/producibility"
	"github.com/replaysMike/Binner-sub003/internal/bom/repository"
	"github.com/replaysMike/Binner-sub003/internal/metrics"
)

// BomService BOM服务: line items, PCBs, production and export.
type BomService struct {
	changeNotifier
	repos   *repository.Repositories
	archive ExportArchiver
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewBomService(repos *repository.Repositories, cache SnapshotCache, hub *events.Hub, archive ExportArchiver, logger *zap.Logger, m *metrics.Metrics) *BomService {
	return &BomService{
		changeNotifier: changeNotifier{cache: cache, hub: hub},
		repos:          repos,
		archive:        archive,
		logger:         logger,
		metrics:        m,
	}
}

// GetBom returns the snapshot of the project with the given name.
func (s *BomService) GetBom(ctx context.Context, userID, name string) (*dto.BomResponse, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("project name is required")
	}
	project, err := s.repos.Project.FindByName(ctx, userID, name)
	if err != nil {
		return nil, lookup(err, "project", name)
	}
	return s.snapshotByID(ctx, userID, project.ID)
}

func (s *BomService) snapshotByID(ctx context.Context, userID string, projectID int64) (*dto.BomResponse, error) {
	cached, version, ok := s.cache.Get(ctx, userID, projectID)
	s.metrics.RecordCache(ok)
	if ok {
		return cached, nil
	}

	project, err := s.repos.Project.LoadBOM(ctx, userID, projectID)
	if err != nil {
		return nil, lookup(err, "project", projectID)
	}
	snapshot, result := buildSnapshot(project)
	s.reportAnomalies(project.ID, result.Anomalies)
	s.cache.Set(ctx, userID, projectID, version, snapshot)
	return snapshot, nil
}

func (s *BomService) reportAnomalies(projectID int64, anomalies []producibility.Anomaly) {
	for _, a := range anomalies {
		s.logger.Warn("bom data anomaly",
			zap.Int64("project_id", projectID),
			zap.String("kind", string(a.Kind)),
			zap.Int64("pcb_id", a.PcbID),
			zap.Int64("line_item_id", a.LineItemID))
		s.metrics.RecordAnomaly(string(a.Kind))
	}
}

func (s *BomService) project(ctx context.Context, userID string, projectID int64) (*entity.Project, error) {
	project, err := s.repos.Project.FindByID(ctx, userID, projectID)
	if err != nil {
		return nil, lookup(err, "project", projectID)
	}
	return project, nil
}

func (s *BomService) checkPcb(ctx context.Context, repos *repository.Repositories, projectID, pcbID int64) error {
	if pcbID == domain.Unassociated {
		return nil
	}
	if _, err := repos.Pcb.FindByID(ctx, projectID, pcbID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return invalid("pcb %d does not belong to project %d", pcbID, projectID)
		}
		return fmt.Errorf("find pcb %d: %w", pcbID, err)
	}
	return nil
}

// AddPart adds a line item to the project.
func (s *BomService) AddPart(ctx context.Context, userID string, req *dto.AddBomPartRequest) (*dto.LineItemView, error) {
	if _, err := s.project(ctx, userID, req.ProjectID); err != nil {
		return nil, err
	}
	if req.Quantity < 0 {
		return nil, invalid("quantity must not be negative")
	}
	if req.QuantityAvailable < 0 {
		return nil, invalid("quantityAvailable must not be negative")
	}
	if err := s.checkPcb(ctx, s.repos, req.ProjectID, req.PcbID); err != nil {
		return nil, err
	}

	partName := strings.TrimSpace(req.PartName)
	if req.PartID != nil {
		part, err := s.repos.Part.FindByID(ctx, userID, *req.PartID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, invalid("part %d does not exist", *req.PartID)
			}
			return nil, fmt.Errorf("find part %d: %w", *req.PartID, err)
		}
		if partName == "" {
			partName = part.PartNumber
		}
	} else if partName == "" {
		return nil, invalid("partName is required for a line item without a part")
	}

	now := time.Now()
	item := &entity.PartAssignment{
		ProjectID:            req.ProjectID,
		UserID:               userID,
		PartID:               req.PartID,
		PcbID:                req.PcbID,
		PartName:             partName,
		Quantity:             req.Quantity,
		QuantityAvailable:    req.QuantityAvailable,
		Cost:                 req.Cost,
		Notes:                req.Notes,
		ReferenceID:          req.ReferenceID,
		SchematicReferenceID: req.SchematicReferenceID,
		CustomDescription:    req.CustomDescription,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.repos.PartAssignment.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("create line item: %w", err)
	}
	s.changed(ctx, userID, req.ProjectID, "add_part")
	s.metrics.RecordOperation("add_part")

	return s.lineItem(ctx, req.ProjectID, item.ID)
}

func (s *BomService) lineItem(ctx context.Context, projectID, id int64) (*dto.LineItemView, error) {
	item, err := s.repos.PartAssignment.FindByID(ctx, projectID, id)
	if err != nil {
		return nil, lookup(err, "line item", id)
	}
	view := toLineItemView(item)
	return &view, nil
}

// UpdatePart updates a line item. For a linked line item the stock fields
// carried in req.Part are written to the inventory part and the line item's
// own quantityAvailable and cost are left as they are.
func (s *BomService) UpdatePart(ctx context.Context, userID string, req *dto.UpdateBomPartRequest) (*dto.LineItemView, error) {
	if _, err := s.project(ctx, userID, req.ProjectID); err != nil {
		return nil, err
	}
	if req.Quantity < 0 {
		return nil, invalid("quantity must not be negative")
	}

	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		item, err := tx.PartAssignment.FindByID(ctx, req.ProjectID, req.ProjectPartAssignmentID)
		if err != nil {
			return lookup(err, "line item", req.ProjectPartAssignmentID)
		}
		if err := s.checkPcb(ctx, tx, req.ProjectID, req.PcbID); err != nil {
			return err
		}

		if item.PartID != nil {
			if req.Part != nil {
				if req.Part.PartID != *item.PartID {
					return invalid("line item %d is linked to part %d, not %d", item.ID, *item.PartID, req.Part.PartID)
				}
				if req.Part.Quantity < 0 {
					return invalid("part quantity must not be negative")
				}
				if err := tx.Part.UpdateStock(ctx, *item.PartID, req.Part.Quantity, req.Part.Cost); err != nil {
					return fmt.Errorf("update part %d stock: %w", *item.PartID, err)
				}
			}
		} else {
			if req.Part != nil {
				return invalid("line item %d is not linked to a part", item.ID)
			}
			if req.QuantityAvailable < 0 {
				return invalid("quantityAvailable must not be negative")
			}
			if strings.TrimSpace(req.PartName) == "" {
				return invalid("partName is required for a line item without a part")
			}
			item.QuantityAvailable = req.QuantityAvailable
			item.Cost = req.Cost
		}

		item.PcbID = req.PcbID
		item.PartName = strings.TrimSpace(req.PartName)
		item.Quantity = req.Quantity
		item.Notes = req.Notes
		item.ReferenceID = req.ReferenceID
		item.SchematicReferenceID = req.SchematicReferenceID
		item.CustomDescription = req.CustomDescription
		item.UpdatedAt = time.Now()
		if err := tx.PartAssignment.Update(ctx, item); err != nil {
			return fmt.Errorf("update line item %d: %w", item.ID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.changed(ctx, userID, req.ProjectID, "update_part")
	s.metrics.RecordOperation("update_part")

	return s.lineItem(ctx, req.ProjectID, req.ProjectPartAssignmentID)
}

// DeleteParts deletes exactly the listed line items of the project.
func (s *BomService) DeleteParts(ctx context.Context, userID string, req *dto.DeleteBomPartRequest) (*dto.DeleteResult, error) {
	if _, err := s.project(ctx, userID, req.ProjectID); err != nil {
		return nil, err
	}
	if len(req.IDs) == 0 {
		return nil, invalid("no line items selected")
	}
	deleted, err := s.repos.PartAssignment.DeleteByIDs(ctx, req.ProjectID, req.IDs)
	if err != nil {
		return nil, fmt.Errorf("delete line items: %w", err)
	}
	if deleted == 0 {
		return nil, notFound("line items", req.IDs)
	}
	s.changed(ctx, userID, req.ProjectID, "delete_parts")
	s.metrics.RecordOperation("delete_parts")
	return &dto.DeleteResult{Deleted: deleted}, nil
}

// MoveParts reassigns line items to a PCB, or to unassociated when PcbID is 0.
func (s *BomService) MoveParts(ctx context.Context, userID string, req *dto.MoveBomPartRequest) (*dto.MoveResult, error) {
	if _, err := s.project(ctx, userID, req.ProjectID); err != nil {
		return nil, err
	}
	if len(req.IDs) == 0 {
		return nil, invalid("no line items selected")
	}
	if err := s.checkPcb(ctx, s.repos, req.ProjectID, req.PcbID); err != nil {
		return nil, err
	}
	moved, err := s.repos.PartAssignment.MoveToPcb(ctx, req.ProjectID, req.IDs, req.PcbID)
	if err != nil {
		return nil, fmt.Errorf("move line items: %w", err)
	}
	if moved == 0 {
		return nil, notFound("line items", req.IDs)
	}
	s.changed(ctx, userID, req.ProjectID, "move_parts")
	s.metrics.RecordOperation("move_parts")
	return &dto.MoveResult{Moved: moved}, nil
}

func normalizePcbQuantity(q int64) (int64, error) {
	if q < 0 {
		return 0, invalid("pcb quantity must not be negative")
	}
	if q == 0 {
		return 1, nil
	}
	return q, nil
}

// AddPcb adds a PCB to the project. A zero quantity means one board per build.
func (s *BomService) AddPcb(ctx context.Context, userID string, req *dto.AddPcbRequest) (*dto.PcbView, error) {
	if _, err := s.project(ctx, userID, req.ProjectID); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("name is required")
	}
	quantity, err := normalizePcbQuantity(req.Quantity)
	if err != nil {
		return nil, err
	}
	if err := validateSerial(req.SerialNumberFormat, req.LastSerialNumber); err != nil {
		return nil, err
	}

	now := time.Now()
	pcb := &entity.Pcb{
		ProjectID:          req.ProjectID,
		UserID:             userID,
		Name:               name,
		Description:        req.Description,
		Quantity:           quantity,
		Cost:               req.Cost,
		SerialNumberFormat: req.SerialNumberFormat,
		LastSerialNumber:   req.LastSerialNumber,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.repos.Pcb.Create(ctx, pcb); err != nil {
		return nil, fmt.Errorf("create pcb: %w", err)
	}
	s.changed(ctx, userID, req.ProjectID, "add_pcb")
	s.metrics.RecordOperation("add_pcb")

	view := toPcbView(pcb)
	return &view, nil
}

// UpdatePcb 更新PCB
func (s *BomService) UpdatePcb(ctx context.Context, userID string, req *dto.UpdatePcbRequest) (*dto.PcbView, error) {
	if _, err := s.project(ctx, userID, req.ProjectID); err != nil {
		return nil, err
	}
	pcb, err := s.repos.Pcb.FindByID(ctx, req.ProjectID, req.PcbID)
	if err != nil {
		return nil, lookup(err, "pcb", req.PcbID)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("name is required")
	}
	quantity, err := normalizePcbQuantity(req.Quantity)
	if err != nil {
		return nil, err
	}
	if err := validateSerial(req.SerialNumberFormat, req.LastSerialNumber); err != nil {
		return nil, err
	}

	pcb.Name = name
	pcb.Description = req.Description
	pcb.Quantity = quantity
	pcb.Cost = req.Cost
	pcb.SerialNumberFormat = req.SerialNumberFormat
	pcb.LastSerialNumber = req.LastSerialNumber
	pcb.UpdatedAt = time.Now()
	if err := s.repos.Pcb.Update(ctx, pcb); err != nil {
		return nil, fmt.Errorf("update pcb: %w", err)
	}
	s.changed(ctx, userID, req.ProjectID, "update_pcb")
	s.metrics.RecordOperation("update_pcb")

	view := toPcbView(pcb)
	return &view, nil
}

// DeletePcb deletes a PCB. Its line items become unassociated.
func (s *BomService) DeletePcb(ctx context.Context, userID string, req *dto.DeletePcbRequest) error {
	if _, err := s.project(ctx, userID, req.ProjectID); err != nil {
		return err
	}
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if _, err := tx.Pcb.FindByID(ctx, req.ProjectID, req.PcbID); err != nil {
			return lookup(err, "pcb", req.PcbID)
		}
		if err := tx.PartAssignment.Unassign(ctx, req.ProjectID, req.PcbID); err != nil {
			return fmt.Errorf("unassign line items: %w", err)
		}
		if err := tx.Pcb.Delete(ctx, req.ProjectID, req.PcbID); err != nil {
			return fmt.Errorf("delete pcb: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.changed(ctx, userID, req.ProjectID, "delete_pcb")
	s.metrics.RecordOperation("delete_pcb")
	return nil
}

// produceSelection is the set of PCBs a production run builds.
type produceSelection struct {
	pcbs         []entity.Pcb
	unassociated bool
}

func selectForProduce(project *entity.Project, req *dto.ProduceBomRequest) (produceSelection, error) {
	sel := produceSelection{unassociated: req.Unassociated}
	if len(req.Pcbs) == 0 {
		if !req.Unassociated {
			if len(project.Pcbs) == 0 {
				sel.unassociated = true
			} else {
				sel.pcbs = project.Pcbs
			}
		}
		return sel, nil
	}

	byID := make(map[int64]entity.Pcb, len(project.Pcbs))
	for _, p := range project.Pcbs {
		byID[p.ID] = p
	}
	seen := make(map[int64]bool, len(req.Pcbs))
	for _, id := range req.Pcbs {
		if seen[id] {
			continue
		}
		seen[id] = true
		pcb, ok := byID[id]
		if !ok {
			return sel, invalid("pcb %d does not belong to project %d", id, project.ID)
		}
		sel.pcbs = append(sel.pcbs, pcb)
	}
	return sel, nil
}

// MaxProduceQuantity bounds the builds of one production run.
const MaxProduceQuantity = 100000

// demand is the stock a production run consumes.
type demand struct {
	units  map[int64]int64 // pcb id -> boards built
	parts  map[int64]int64 // inventory part id -> units
	manual map[int64]int64 // line item id -> units
	cost   decimal.Decimal
	total  int64
}

func mulInt64(a, b int64) (int64, bool) {
	if a != 0 && b > math.MaxInt64/a {
		return 0, false
	}
	return a * b, true
}

func addInt64(a, b int64) (int64, bool) {
	if a > math.MaxInt64-b {
		return 0, false
	}
	return a + b, true
}

func computeDemand(items []entity.PartAssignment, sel produceSelection, builds int64) (demand, error) {
	d := demand{
		units:  make(map[int64]int64, len(sel.pcbs)+1),
		parts:  map[int64]int64{},
		manual: map[int64]int64{},
		cost:   decimal.Zero,
	}
	tooLarge := func() (demand, error) {
		return demand{}, invalid("producing %d builds exceeds the quantities that can be tracked", builds)
	}

	for _, p := range sel.pcbs {
		units, ok := mulInt64(max(p.Quantity, 1), builds)
		if !ok {
			return tooLarge()
		}
		d.units[p.ID] = units
	}
	if sel.unassociated {
		d.units[domain.Unassociated] = builds
	}

	for i := range items {
		item := &items[i]
		units, ok := d.units[item.PcbID]
		if !ok || item.Quantity <= 0 {
			continue
		}
		need, ok := mulInt64(item.Quantity, units)
		if !ok {
			return tooLarge()
		}
		unitCost := item.Cost
		if item.PartID != nil {
			if d.parts[*item.PartID], ok = addInt64(d.parts[*item.PartID], need); !ok {
				return tooLarge()
			}
			if item.Part != nil {
				unitCost = item.Part.Cost
			}
		} else {
			if d.manual[item.ID], ok = addInt64(d.manual[item.ID], need); !ok {
				return tooLarge()
			}
		}
		if d.total, ok = addInt64(d.total, need); !ok {
			return tooLarge()
		}
		d.cost = d.cost.Add(unitCost.Mul(decimal.NewFromInt(need)))
	}
	return d, nil
}

func sortedKeys(m map[int64]int64) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Produce consumes stock for req.Quantity builds of the selected PCBs and
// issues serial numbers. Nothing is written when stock is short.
func (s *BomService) Produce(ctx context.Context, userID string, req *dto.ProduceBomRequest) (*dto.ProduceBomResponse, error) {
	if req.Quantity <= 0 {
		return nil, invalid("quantity must be positive")
	}
	if req.Quantity > MaxProduceQuantity {
		return nil, invalid("quantity must be at most %d", MaxProduceQuantity)
	}

	var produced []dto.ProducedPcb
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		project, err := tx.Project.LoadBOM(ctx, userID, req.ProjectID)
		if err != nil {
			return lookup(err, "project", req.ProjectID)
		}
		sel, err := selectForProduce(project, req)
		if err != nil {
			return err
		}
		need, err := computeDemand(project.Parts, sel, req.Quantity)
		if err != nil {
			return err
		}

		partIDs := sortedKeys(need.parts)
		if len(partIDs) > 0 {
			parts, err := tx.Part.FindByIDsForUpdate(ctx, userID, partIDs)
			if err != nil {
				return fmt.Errorf("lock parts: %w", err)
			}
			stock := make(map[int64]entity.Part, len(parts))
			for _, p := range parts {
				stock[p.ID] = p
			}
			for _, id := range partIDs {
				part, ok := stock[id]
				if !ok {
					return notFound("part", id)
				}
				if part.Quantity < need.parts[id] {
					return conflict("insufficient stock for part %s: need %d, have %d", part.PartNumber, need.parts[id], part.Quantity)
				}
			}
		}

		manualIDs := sortedKeys(need.manual)
		items := make(map[int64]*entity.PartAssignment, len(project.Parts))
		for i := range project.Parts {
			items[project.Parts[i].ID] = &project.Parts[i]
		}
		for _, id := range manualIDs {
			item := items[id]
			if item.QuantityAvailable < need.manual[id] {
				return conflict("insufficient stock for %s: need %d, have %d", item.PartName, need.manual[id], item.QuantityAvailable)
			}
		}

		for _, id := range partIDs {
			if err := tx.Part.Decrement(ctx, id, need.parts[id]); err != nil {
				return fmt.Errorf("decrement part %d: %w", id, err)
			}
		}
		for _, id := range manualIDs {
			if err := tx.PartAssignment.DecrementAvailable(ctx, id, need.manual[id]); err != nil {
				return fmt.Errorf("decrement line item %d: %w", id, err)
			}
		}

		history := &entity.ProduceHistory{
			ProjectID:     project.ID,
			UserID:        userID,
			Quantity:      req.Quantity,
			Unassociated:  sel.unassociated,
			PartsConsumed: need.total,
			Cost:          need.cost,
			CreatedAt:     time.Now(),
		}
		for _, p := range sel.pcbs {
			units := need.units[p.ID]
			run := entity.ProducedPcb{PcbID: p.ID, Units: units, SerialNumbers: []string{}}
			if p.SerialNumberFormat != "" {
				locked, err := tx.Pcb.FindByIDForUpdate(ctx, project.ID, p.ID)
				if err != nil {
					return lookup(err, "pcb", p.ID)
				}
				serials, err := NextSerials(locked.SerialNumberFormat, locked.LastSerialNumber, units)
				if err != nil {
					return err
				}
				if err := tx.Pcb.UpdateLastSerial(ctx, p.ID, serials[len(serials)-1]); err != nil {
					return fmt.Errorf("advance pcb %d serial: %w", p.ID, err)
				}
				run.SerialNumbers = serials
			}
			history.Pcbs = append(history.Pcbs, run)
			produced = append(produced, dto.ProducedPcb{PcbID: run.PcbID, Units: run.Units, SerialNumbers: run.SerialNumbers})
		}
		return tx.ProduceHistory.Create(ctx, history)
	})
	if err != nil {
		return nil, err
	}

	s.changed(ctx, userID, req.ProjectID, "produce")
	s.metrics.RecordOperation("produce")
	s.metrics.RecordProduced(req.Quantity)
	s.logger.Info("bom produced",
		zap.String("user_id", userID),
		zap.Int64("project_id", req.ProjectID),
		zap.Int64("quantity", req.Quantity),
		zap.Int("pcbs", len(produced)))

	snapshot, err := s.snapshotByID(ctx, userID, req.ProjectID)
	if err != nil {
		return nil, err
	}
	if produced == nil {
		produced = []dto.ProducedPcb{}
	}
	return &dto.ProduceBomResponse{Bom: *snapshot, Produced: produced}, nil
}

// ListProduceHistory returns the project's production runs, newest first.
func (s *BomService) ListProduceHistory(ctx context.Context, userID string, projectID int64) ([]dto.ProduceHistoryView, error) {
	if _, err := s.project(ctx, userID, projectID); err != nil {
		return nil, err
	}
	list, err := s.repos.ProduceHistory.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list produce history: %w", err)
	}
	views := make([]dto.ProduceHistoryView, 0, len(list))
	for i := range list {
		views = append(views, toHistoryView(&list[i]))
	}
	return views, nil
}
