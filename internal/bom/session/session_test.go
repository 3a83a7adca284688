package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/replaysMike/Binner-sub003/internal/bom/client"
	"github.com/replaysMike/Binner-sub003/internal/bom/dto"
	"github.com/replaysMike/Binner-sub003/internal/bom/events"
	"github.com/replaysMike/Binner-sub003/internal/bom/inline"
)

// fakeAPI serves a single in-memory project.
type fakeAPI struct {
	mu        sync.Mutex
	bom       *dto.BomResponse
	loads     int
	updateErr error
	updates   []dto.UpdateBomPartRequest
	moved     []int64
}

func (f *fakeAPI) GetBom(_ context.Context, name string) (*dto.BomResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	if f.bom == nil || f.bom.Name != name {
		return nil, &client.APIError{Status: http.StatusNotFound, Code: 40400, Message: "not found"}
	}
	cp := *f.bom
	cp.Parts = append([]dto.LineItemView(nil), f.bom.Parts...)
	cp.Pcbs = append([]dto.PcbView(nil), f.bom.Pcbs...)
	return &cp, nil
}

func (f *fakeAPI) UpdatePart(_ context.Context, req dto.UpdateBomPartRequest) (*dto.LineItemView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	f.updates = append(f.updates, req)
	for i, p := range f.bom.Parts {
		if p.ProjectPartAssignmentID == req.ProjectPartAssignmentID {
			p.Quantity = req.Quantity
			p.QuantityAvailable = req.QuantityAvailable
			p.Cost = req.Cost
			f.bom.Parts[i] = p
			return &p, nil
		}
	}
	return nil, &client.APIError{Status: http.StatusNotFound}
}

func (f *fakeAPI) AddPart(context.Context, dto.AddBomPartRequest) (*dto.LineItemView, error) {
	return &dto.LineItemView{}, nil
}

func (f *fakeAPI) DeleteParts(_ context.Context, _ int64, ids []int64) (int64, error) {
	return int64(len(ids)), nil
}

func (f *fakeAPI) MoveParts(_ context.Context, _ int64, ids []int64, pcbID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moved = append(f.moved, ids...)
	for i, p := range f.bom.Parts {
		for _, id := range ids {
			if p.ProjectPartAssignmentID == id {
				f.bom.Parts[i].PcbID = pcbID
			}
		}
	}
	return int64(len(ids)), nil
}

func (f *fakeAPI) AddPcb(context.Context, dto.AddPcbRequest) (*dto.PcbView, error) {
	return &dto.PcbView{}, nil
}

func (f *fakeAPI) DeletePcb(context.Context, int64, int64) error { return nil }

func (f *fakeAPI) Produce(_ context.Context, req dto.ProduceBomRequest) (*dto.ProduceBomResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.bom.Parts {
		f.bom.Parts[i].QuantityAvailable -= f.bom.Parts[i].Quantity * req.Quantity
	}
	return &dto.ProduceBomResponse{
		Bom:      *f.bom,
		Produced: []dto.ProducedPcb{{PcbID: 1, Units: req.Quantity, SerialNumbers: []string{}}},
	}, nil
}

func (f *fakeAPI) Download(context.Context, int64, string) (*client.Download, error) {
	return &client.Download{Filename: "BOM_Amp.csv", Data: []byte("PCB\n")}, nil
}

func ampBom() *dto.BomResponse {
	return &dto.BomResponse{
		ProjectID: 7,
		Name:      "Amp",
		Pcbs:      []dto.PcbView{{PcbID: 1, ProjectID: 7, Name: "Main", Quantity: 1}},
		Parts: []dto.LineItemView{
			{ProjectPartAssignmentID: 11, ProjectID: 7, PcbID: 1, PartName: "R1", Quantity: 2, QuantityAvailable: 10, Cost: decimal.NewFromInt(1)},
			{ProjectPartAssignmentID: 12, ProjectID: 7, PcbID: 1, PartName: "C1", Quantity: 1, QuantityAvailable: 4, Cost: decimal.NewFromInt(1)},
		},
	}
}

func TestLoadComputesProducibility(t *testing.T) {
	s := New(&fakeAPI{bom: ampBom()})
	require.NoError(t, s.Load(context.Background(), "Amp"))

	require.False(t, s.ReadOnly())
	result := s.Producibility()
	require.Equal(t, int64(4), result.Count)
	require.NotNil(t, result.LimitingPcbID)
	require.Equal(t, int64(1), *result.LimitingPcbID)
}

func TestLoadNotFoundIsReadOnly(t *testing.T) {
	s := New(&fakeAPI{bom: ampBom()})
	err := s.Load(context.Background(), "Missing")
	require.True(t, client.IsNotFound(err))
	require.True(t, s.ReadOnly())
	require.Nil(t, s.Snapshot())

	require.ErrorIs(t, s.MoveParts(context.Background(), []int64{11}, 0), ErrReadOnly)
	require.ErrorIs(t, s.DeleteParts(context.Background(), []int64{11}), ErrReadOnly)
	require.ErrorIs(t, s.Edit(11, inline.FieldQuantity, "3"), ErrReadOnly)
	_, err = s.Produce(context.Background(), dto.ProduceBomRequest{Quantity: 1})
	require.ErrorIs(t, err, ErrReadOnly)
}

func TestMutationBeforeLoad(t *testing.T) {
	s := New(&fakeAPI{bom: ampBom()})
	require.ErrorIs(t, s.MoveParts(context.Background(), []int64{11}, 0), ErrNotLoaded)
	require.ErrorIs(t, s.Reload(context.Background()), ErrNotLoaded)
}

func TestCommitReloads(t *testing.T) {
	api := &fakeAPI{bom: ampBom()}
	s := New(api)
	ctx := context.Background()
	require.NoError(t, s.Load(ctx, "Amp"))

	require.NoError(t, s.Edit(12, inline.FieldQuantityAvailable, "20"))
	e, err := s.Editor(12)
	require.NoError(t, err)
	require.Equal(t, inline.Dirty, e.State())

	require.NoError(t, s.Commit(ctx, 12))
	require.Equal(t, 2, api.loads)
	require.Len(t, api.updates, 1)
	require.Equal(t, int64(20), api.updates[0].QuantityAvailable)

	e, err = s.Editor(12)
	require.NoError(t, err)
	require.Equal(t, inline.Clean, e.State())
	// R1 now limits: 10 / 2
	require.Equal(t, int64(5), s.Producibility().Count)
}

func TestCommitFailureKeepsEditDirty(t *testing.T) {
	api := &fakeAPI{bom: ampBom()}
	s := New(api)
	ctx := context.Background()
	require.NoError(t, s.Load(ctx, "Amp"))

	api.updateErr = &client.APIError{Status: http.StatusBadRequest, Message: "validation failed"}
	require.NoError(t, s.Edit(11, inline.FieldQuantity, "3"))
	commitErr := s.Commit(ctx, 11)
	var apiErr *client.APIError
	require.True(t, errors.As(commitErr, &apiErr))
	require.Equal(t, 1, api.loads)

	// a reload triggered by another mutation keeps the unsaved edit
	require.NoError(t, s.MoveParts(ctx, []int64{12}, 0))
	e, err := s.Editor(11)
	require.NoError(t, err)
	require.Equal(t, inline.Dirty, e.State())
	require.Equal(t, int64(3), e.Item().Quantity)
	require.Equal(t, commitErr, e.Err())
}

func TestCommitUnknownItem(t *testing.T) {
	s := New(&fakeAPI{bom: ampBom()})
	require.NoError(t, s.Load(context.Background(), "Amp"))
	require.ErrorIs(t, s.Commit(context.Background(), 99), ErrUnknownItem)
}

func TestMoveReloadsSnapshot(t *testing.T) {
	api := &fakeAPI{bom: ampBom()}
	s := New(api)
	ctx := context.Background()
	require.NoError(t, s.Load(ctx, "Amp"))

	require.NoError(t, s.MoveParts(ctx, []int64{12}, 0))
	item, ok := s.Snapshot().FindPart(12)
	require.True(t, ok)
	require.Equal(t, int64(0), item.PcbID)
	// C1 no longer constrains the PCB
	require.Equal(t, int64(5), s.Producibility().Count)
}

func TestProduceAdoptsServerSnapshot(t *testing.T) {
	api := &fakeAPI{bom: ampBom()}
	s := New(api)
	ctx := context.Background()
	require.NoError(t, s.Load(ctx, "Amp"))

	produced, err := s.Produce(ctx, dto.ProduceBomRequest{Quantity: 2})
	require.NoError(t, err)
	require.Len(t, produced, 1)
	require.Equal(t, 1, api.loads)

	item, _ := s.Snapshot().FindPart(12)
	require.Equal(t, int64(2), item.QuantityAvailable)
	require.Equal(t, int64(2), s.Producibility().Count)
}

func TestDownload(t *testing.T) {
	s := New(&fakeAPI{bom: ampBom()})
	_, err := s.Download(context.Background(), dto.FormatCSV)
	require.ErrorIs(t, err, ErrNotLoaded)

	require.NoError(t, s.Load(context.Background(), "Amp"))
	file, err := s.Download(context.Background(), dto.FormatCSV)
	require.NoError(t, err)
	require.Equal(t, "BOM_Amp.csv", file.Filename)
}

type fakeWatcher []events.Change

func (w fakeWatcher) Watch(_ context.Context, fn func(events.Change)) error {
	for _, c := range w {
		fn(c)
	}
	return nil
}

func TestFollowReloadsOnRelevantChanges(t *testing.T) {
	api := &fakeAPI{bom: ampBom()}
	s := New(api)
	ctx := context.Background()
	require.ErrorIs(t, s.Follow(ctx, fakeWatcher{}, nil), ErrNotLoaded)
	require.NoError(t, s.Load(ctx, "Amp"))

	var reloads int
	w := fakeWatcher{
		{ProjectID: 7, Action: "move_parts"},
		{ProjectID: 8, Action: "add_part"},
		{ProjectID: 0, Action: "update_inventory_part"},
	}
	require.NoError(t, s.Follow(ctx, w, func(err error) {
		require.NoError(t, err)
		reloads++
	}))
	require.Equal(t, 2, reloads)
	require.Equal(t, 3, api.loads)
}
