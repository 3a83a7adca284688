package inline

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/replaysMike/Binner-sub003/internal/bom/domain"
	"github.com/replaysMike/Binner-sub003/internal/bom/dto"
)

func linkedItem() domain.LineItem {
	return domain.LineItem{
		ID:       5,
		PcbID:    1,
		Quantity: 2,
		Source: domain.Linked{
			Part:   domain.Part{ID: 77, Quantity: 10, Cost: decimal.RequireFromString("0.50")},
			Stored: domain.Manual{QuantityAvailable: 3, Cost: decimal.RequireFromString("9.99")},
		},
	}
}

func manualItem() domain.LineItem {
	return domain.LineItem{
		ID:       6,
		Quantity: 1,
		Source:   domain.Manual{QuantityAvailable: 4, Cost: decimal.RequireFromString("1.00")},
	}
}

func TestApplyInlineEditRedirectsLinkedAvailability(t *testing.T) {
	item := linkedItem()

	next, err := ApplyInlineEdit(item, FieldQuantityAvailable, "25")
	require.NoError(t, err)

	linked, ok := next.Source.(domain.Linked)
	require.True(t, ok)
	require.Equal(t, int64(25), linked.Part.Quantity)
	require.Equal(t, int64(3), linked.Stored.QuantityAvailable)

	// the input snapshot is untouched
	require.Equal(t, int64(10), item.Source.(domain.Linked).Part.Quantity)
}

func TestApplyInlineEditRedirectsLinkedCost(t *testing.T) {
	next, err := ApplyInlineEdit(linkedItem(), FieldCost, "1.75")
	require.NoError(t, err)

	linked := next.Source.(domain.Linked)
	require.True(t, linked.Part.Cost.Equal(decimal.RequireFromString("1.75")))
	require.True(t, linked.Stored.Cost.Equal(decimal.RequireFromString("9.99")))
}

func TestApplyInlineEditManual(t *testing.T) {
	next, err := ApplyInlineEdit(manualItem(), FieldQuantityAvailable, "12")
	require.NoError(t, err)
	require.Equal(t, int64(12), next.Source.(domain.Manual).QuantityAvailable)

	next, err = ApplyInlineEdit(next, FieldCost, "not a number")
	require.NoError(t, err)
	require.True(t, next.Source.(domain.Manual).Cost.IsZero())
}

func TestApplyInlineEditQuantity(t *testing.T) {
	item := manualItem()

	next, err := ApplyInlineEdit(item, FieldQuantity, " 8 ")
	require.NoError(t, err)
	require.Equal(t, int64(8), next.Quantity)

	for _, bad := range []string{"", "abc", "1.5", "-2"} {
		same, err := ApplyInlineEdit(item, FieldQuantity, bad)
		require.ErrorIs(t, err, ErrInvalidNumber, bad)
		require.Equal(t, item, same)
	}
}

func TestApplyInlineEditTextFields(t *testing.T) {
	item := linkedItem()
	steps := []struct {
		field Field
		value string
	}{
		{FieldNotes, "hand solder"},
		{FieldReferenceID, "R1,R2"},
		{FieldSchematicReferenceID, "SCH-4"},
		{FieldCustomDescription, "10k 0603"},
		{FieldPartName, "RES-10K"},
	}
	var err error
	for _, s := range steps {
		item, err = ApplyInlineEdit(item, s.field, s.value)
		require.NoError(t, err)
	}
	require.Equal(t, "hand solder", item.Notes)
	require.Equal(t, "R1,R2", item.ReferenceID)
	require.Equal(t, "SCH-4", item.SchematicReferenceID)
	require.Equal(t, "10k 0603", item.CustomDescription)
	require.Equal(t, "RES-10K", item.PartName)

	_, err = ApplyInlineEdit(item, Field("color"), "red")
	require.ErrorIs(t, err, ErrUnknownField)
}

func TestCoerce(t *testing.T) {
	require.Equal(t, int64(12), CoerceInt("12"))
	require.Equal(t, int64(3), CoerceInt("3.9"))
	require.Equal(t, int64(0), CoerceInt("abc"))
	require.Equal(t, int64(0), CoerceInt("NaN"))
	require.True(t, CoerceDecimal("0.015").Equal(decimal.RequireFromString("0.015")))
	require.True(t, CoerceDecimal("").IsZero())
}

func TestCommitRequest(t *testing.T) {
	req := CommitRequest(9, linkedItem())
	require.Equal(t, int64(5), req.ProjectPartAssignmentID)
	require.Equal(t, int64(9), req.ProjectID)
	require.Equal(t, int64(3), req.QuantityAvailable)
	require.NotNil(t, req.Part)
	require.Equal(t, int64(77), req.Part.PartID)
	require.Equal(t, int64(10), req.Part.Quantity)

	req = CommitRequest(9, manualItem())
	require.Nil(t, req.Part)
	require.Equal(t, int64(4), req.QuantityAvailable)
}

type fakeCommitter struct {
	err      error
	requests []dto.UpdateBomPartRequest
	before   func()
}

func (f *fakeCommitter) UpdatePart(_ context.Context, req dto.UpdateBomPartRequest) (*dto.LineItemView, error) {
	if f.before != nil {
		f.before()
	}
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	view := &dto.LineItemView{
		ProjectPartAssignmentID: req.ProjectPartAssignmentID,
		ProjectID:               req.ProjectID,
		PcbID:                   req.PcbID,
		Quantity:                req.Quantity,
		QuantityAvailable:       req.QuantityAvailable,
		Cost:                    req.Cost,
		Notes:                   req.Notes,
	}
	if req.Part != nil {
		id := req.Part.PartID
		view.PartID = &id
		view.Part = &dto.PartView{PartID: id, Quantity: req.Part.Quantity, Cost: req.Part.Cost}
	}
	return view, nil
}

func TestEditorLifecycle(t *testing.T) {
	ctx := context.Background()
	e := NewEditor(9, linkedItem())
	c := &fakeCommitter{}

	require.Equal(t, Clean, e.State())
	require.NoError(t, e.Commit(ctx, c))
	require.Empty(t, c.requests, "clean commit must not call the server")

	require.NoError(t, e.Edit(FieldQuantityAvailable, "40"))
	require.Equal(t, Dirty, e.State())

	require.NoError(t, e.Commit(ctx, c))
	require.Equal(t, Clean, e.State())
	require.Len(t, c.requests, 1)
	require.Equal(t, int64(40), c.requests[0].Part.Quantity)

	part, ok := e.Item().LinkedPart()
	require.True(t, ok)
	require.Equal(t, int64(40), part.Quantity)
}

func TestEditorRejectedEditStaysClean(t *testing.T) {
	e := NewEditor(9, manualItem())
	require.ErrorIs(t, e.Edit(FieldQuantity, "x"), ErrInvalidNumber)
	require.Equal(t, Clean, e.State())
}

func TestEditorFailedCommitStaysDirty(t *testing.T) {
	ctx := context.Background()
	e := NewEditor(9, manualItem())
	failure := errors.New("server returned 500")
	c := &fakeCommitter{err: failure}

	require.NoError(t, e.Edit(FieldNotes, "edited"))
	err := e.Commit(ctx, c)
	require.ErrorIs(t, err, failure)
	require.Equal(t, Dirty, e.State())
	require.Equal(t, "edited", e.Item().Notes)
	require.ErrorIs(t, e.Err(), failure)

	c.err = nil
	require.NoError(t, e.Commit(ctx, c))
	require.Equal(t, Clean, e.State())
	require.NoError(t, e.Err())
	require.Len(t, c.requests, 2)
}

func TestEditorEditDuringCommitStaysDirty(t *testing.T) {
	ctx := context.Background()
	e := NewEditor(9, manualItem())
	require.NoError(t, e.Edit(FieldNotes, "first"))

	c := &fakeCommitter{before: func() {
		require.NoError(t, e.Edit(FieldNotes, "second"))
	}}
	require.NoError(t, e.Commit(ctx, c))
	require.Equal(t, Dirty, e.State())
	require.Equal(t, "second", e.Item().Notes)
}
