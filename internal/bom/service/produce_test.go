package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/replaysMike/Binner-sub003/internal/bom/dto"
	"github.com/replaysMike/Binner-sub003/internal/bom/entity"
	"github.com/replaysMike/Binner-sub003/internal/bom/events"
)

func int64p(v int64) *int64 { return &v }

func produceFixture() *entity.Project {
	resistor := &entity.Part{ID: 100, PartNumber: "RC0603", Quantity: 500, Cost: decimal.RequireFromString("0.01")}
	return &entity.Project{
		ID:   1,
		Name: "Amp",
		Pcbs: []entity.Pcb{
			{ID: 10, Name: "Main", Quantity: 2},
			{ID: 11, Name: "Front", Quantity: 0},
		},
		Parts: []entity.PartAssignment{
			{ID: 1, PcbID: 10, PartID: int64p(100), Part: resistor, Quantity: 4},
			{ID: 2, PcbID: 11, PartID: int64p(100), Part: resistor, Quantity: 3},
			{ID: 3, PcbID: 10, PartName: "Heatsink", Quantity: 1, QuantityAvailable: 20, Cost: decimal.NewFromInt(2)},
			{ID: 4, PcbID: 0, PartName: "Knob", Quantity: 2, QuantityAvailable: 8, Cost: decimal.NewFromInt(1)},
			{ID: 5, PcbID: 10, PartName: "DNP", Quantity: 0, QuantityAvailable: 0},
		},
	}
}

func TestSelectForProduce_DefaultsToAllPcbs(t *testing.T) {
	sel, err := selectForProduce(produceFixture(), &dto.ProduceBomRequest{ProjectID: 1, Quantity: 1})
	require.NoError(t, err)
	require.Len(t, sel.pcbs, 2)
	require.False(t, sel.unassociated)
}

func TestSelectForProduce_NoPcbsUsesUnassociated(t *testing.T) {
	project := produceFixture()
	project.Pcbs = nil
	sel, err := selectForProduce(project, &dto.ProduceBomRequest{ProjectID: 1, Quantity: 1})
	require.NoError(t, err)
	require.Empty(t, sel.pcbs)
	require.True(t, sel.unassociated)
}

func TestSelectForProduce_UnknownPcb(t *testing.T) {
	_, err := selectForProduce(produceFixture(), &dto.ProduceBomRequest{ProjectID: 1, Quantity: 1, Pcbs: []int64{99}})
	require.True(t, errors.Is(err, ErrValidation))
}

func TestSelectForProduce_Explicit(t *testing.T) {
	sel, err := selectForProduce(produceFixture(), &dto.ProduceBomRequest{
		ProjectID: 1, Quantity: 1, Pcbs: []int64{11, 11}, Unassociated: true,
	})
	require.NoError(t, err)
	require.Len(t, sel.pcbs, 1)
	require.Equal(t, int64(11), sel.pcbs[0].ID)
	require.True(t, sel.unassociated)
}

func TestComputeDemand(t *testing.T) {
	project := produceFixture()
	sel := produceSelection{pcbs: project.Pcbs, unassociated: true}

	d, err := computeDemand(project.Parts, sel, 3)
	require.NoError(t, err)

	// Main: 4 per board x 2 boards x 3 builds = 24; Front: 3 x max(0,1) x 3 = 9.
	require.Equal(t, int64(33), d.parts[100])
	// Heatsink: 1 x 2 x 3; Knob: 2 x 3.
	require.Equal(t, int64(6), d.manual[3])
	require.Equal(t, int64(6), d.manual[4])
	require.NotContains(t, d.manual, int64(5))
	require.Equal(t, int64(45), d.total)
	require.Equal(t, map[int64]int64{10: 6, 11: 3, 0: 3}, d.units)
	require.True(t, decimal.RequireFromString("18.33").Equal(d.cost), d.cost.String())
}

func TestComputeDemand_SkipsUnselected(t *testing.T) {
	project := produceFixture()
	sel := produceSelection{pcbs: project.Pcbs[1:]}

	d, err := computeDemand(project.Parts, sel, 1)
	require.NoError(t, err)
	require.Equal(t, int64(3), d.parts[100])
	require.Empty(t, d.manual)
}

func TestComputeDemand_RejectsOverflow(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *entity.Project)
		builds int64
	}{
		{name: "line item need", builds: 1 << 62, mutate: func(p *entity.Project) {
			p.Pcbs[0].Quantity = 1
		}},
		{name: "boards per pcb", builds: 1 << 62, mutate: func(p *entity.Project) {
			p.Parts = nil
		}},
		{name: "line item quantity", builds: 1, mutate: func(p *entity.Project) {
			p.Parts[0].Quantity = math.MaxInt64/2 + 1
		}},
		{name: "summed over line items", builds: 1, mutate: func(p *entity.Project) {
			p.Pcbs[0].Quantity = 1
			p.Parts[0].Quantity = math.MaxInt64/2 + 1
			p.Parts[1].PcbID = 10
			p.Parts[1].Quantity = math.MaxInt64/2 + 1
		}},
		{name: "total over part kinds", builds: 1, mutate: func(p *entity.Project) {
			p.Pcbs[0].Quantity = 1
			p.Parts[0].Quantity = math.MaxInt64 / 2
			p.Parts[2].Quantity = math.MaxInt64 / 2
			p.Parts[3].Quantity = 10
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			project := produceFixture()
			if tt.mutate != nil {
				tt.mutate(project)
			}
			sel := produceSelection{pcbs: project.Pcbs, unassociated: true}

			_, err := computeDemand(project.Parts, sel, tt.builds)
			require.True(t, errors.Is(err, ErrValidation), "err = %v", err)
		})
	}
}

func TestProduceRejectsOversizedQuantity(t *testing.T) {
	s := &BomService{}
	_, err := s.Produce(context.Background(), "u1", &dto.ProduceBomRequest{ProjectID: 1, Quantity: MaxProduceQuantity + 1})
	require.True(t, errors.Is(err, ErrValidation), "err = %v", err)
}

func TestNormalizePcbQuantity(t *testing.T) {
	q, err := normalizePcbQuantity(0)
	require.NoError(t, err)
	require.Equal(t, int64(1), q)

	q, err = normalizePcbQuantity(5)
	require.NoError(t, err)
	require.Equal(t, int64(5), q)

	_, err = normalizePcbQuantity(-1)
	require.True(t, errors.Is(err, ErrValidation))
}

func exportSnapshot() *dto.BomResponse {
	project := produceFixture()
	project.Parts[0].PartName = ""
	project.Parts[0].Part.Description = "10k resistor"
	project.Parts[0].Part.Manufacturer = "Yageo"
	project.Parts[0].Part.ManufacturerPartNumber = "RC0603FR-0710KL"
	snapshot, _ := buildSnapshot(project)
	return snapshot
}

func TestRenderCSV(t *testing.T) {
	snapshot := exportSnapshot()
	data, err := renderCSV(exportRows(snapshot))
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, len(snapshot.Parts)+1)
	require.Equal(t, bomExportHeaders, records[0])

	first := records[1]
	require.Equal(t, "Main", first[0])
	require.Equal(t, "RC0603", first[1])
	require.Equal(t, "10k resistor", first[2])
	require.Equal(t, "Yageo", first[3])
	require.Equal(t, "RC0603FR-0710KL", first[4])
	require.Equal(t, "4", first[5])
	require.Equal(t, "500", first[6])
	require.Equal(t, "0.0100", first[7])

	knob := records[4]
	require.Equal(t, "", knob[0])
	require.Equal(t, "Knob", knob[1])
	require.Equal(t, "8", knob[6])
}

func TestRenderExcel(t *testing.T) {
	snapshot := exportSnapshot()
	data, err := renderExcel(exportRows(snapshot), snapshot.TotalCost)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("BOM")
	require.NoError(t, err)
	require.Len(t, rows, len(snapshot.Parts)+2)
	require.Equal(t, "PCB", rows[0][0])
	require.Equal(t, "Total", rows[len(rows)-1][0])
}

func TestExportFilename(t *testing.T) {
	require.Equal(t, "BOM_Amp_v1.csv", exportFilename("Amp/v1", "csv"))
	require.Equal(t, "BOM_Amp__v2_x.xlsx", exportFilename("Amp\r\nv2\tx", "xlsx"))
}

func TestNoopCache(t *testing.T) {
	cache := NewSnapshotCache(nil, 0, nil)
	ctx := context.Background()
	cache.Set(ctx, "u1", 1, "0", &dto.BomResponse{})
	_, _, ok := cache.Get(ctx, "u1", 1)
	require.False(t, ok)
	cache.Invalidate(ctx, "u1")
}

func TestCacheKeys(t *testing.T) {
	require.Equal(t, "binner:bom:version:u1", versionKey("u1"))
	require.Equal(t, "binner:bom:snapshot:u1:3:42", snapshotKey("u1", "3", 42))
}

type recordingCache struct {
	noopCache
	invalidated []string
}

func (c *recordingCache) Invalidate(_ context.Context, userID string) {
	c.invalidated = append(c.invalidated, userID)
}

func TestChangeNotifierInvalidatesAndPublishes(t *testing.T) {
	cache := &recordingCache{}
	hub := events.NewHub(zap.NewNop())
	sub := hub.Subscribe("u1", 2)
	n := changeNotifier{cache: cache, hub: hub}

	n.changed(context.Background(), "u1", 9, "move_parts")
	require.Equal(t, []string{"u1"}, cache.invalidated)
	require.Len(t, sub.Events, 1)
	ev := <-sub.Events
	require.Contains(t, ev.Data, `"projectId":9`)
	require.Contains(t, ev.Data, `"action":"move_parts"`)

	// no hub configured
	changeNotifier{cache: cache}.changed(context.Background(), "u2", 1, "add_part")
	require.Equal(t, []string{"u1", "u2"}, cache.invalidated)
}
