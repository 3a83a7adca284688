// Package inline applies single-field edits to BOM line items and commits
// them to the server.
package inline

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/replaysMike/Binner-sub003/internal/bom/domain"
	"github.com/replaysMike/Binner-sub003/internal/bom/dto"
)

// Field names an editable line item column, as sent on the wire.
type Field string

const (
	FieldQuantity             Field = "quantity"
	FieldQuantityAvailable    Field = "quantityAvailable"
	FieldCost                 Field = "cost"
	FieldPartName             Field = "partName"
	FieldNotes                Field = "notes"
	FieldReferenceID          Field = "referenceId"
	FieldSchematicReferenceID Field = "schematicReferenceId"
	FieldCustomDescription    Field = "customDescription"
)

var (
	ErrInvalidNumber = errors.New("invalid number")
	ErrUnknownField  = errors.New("unknown field")
)

var fields = map[Field]bool{
	FieldQuantity:             true,
	FieldQuantityAvailable:    true,
	FieldCost:                 true,
	FieldPartName:             true,
	FieldNotes:                true,
	FieldReferenceID:          true,
	FieldSchematicReferenceID: true,
	FieldCustomDescription:    true,
}

// ParseField validates a field name.
func ParseField(name string) (Field, error) {
	f := Field(name)
	if !fields[f] {
		return "", fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return f, nil
}

// ApplyInlineEdit returns a copy of item with field set to value.
//
// Availability and cost edits on a linked item are written to the linked
// inventory part; the item's own stored values stay untouched. A quantity that
// is not a non-negative integer leaves the item unchanged and returns
// ErrInvalidNumber. Availability and cost values that do not parse become 0.
func ApplyInlineEdit(item domain.LineItem, field Field, value string) (domain.LineItem, error) {
	next := item
	switch field {
	case FieldQuantity:
		q, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil || q < 0 {
			return item, fmt.Errorf("%w: quantity %q", ErrInvalidNumber, value)
		}
		next.Quantity = q
	case FieldQuantityAvailable:
		q := CoerceInt(value)
		switch s := item.Source.(type) {
		case domain.Linked:
			s.Part.Quantity = q
			next.Source = s
		case domain.Manual:
			s.QuantityAvailable = q
			next.Source = s
		default:
			next.Source = domain.Manual{QuantityAvailable: q}
		}
	case FieldCost:
		c := CoerceDecimal(value)
		switch s := item.Source.(type) {
		case domain.Linked:
			s.Part.Cost = c
			next.Source = s
		case domain.Manual:
			s.Cost = c
			next.Source = s
		default:
			next.Source = domain.Manual{Cost: c}
		}
	case FieldPartName:
		next.PartName = value
	case FieldNotes:
		next.Notes = value
	case FieldReferenceID:
		next.ReferenceID = value
	case FieldSchematicReferenceID:
		next.SchematicReferenceID = value
	case FieldCustomDescription:
		next.CustomDescription = value
	default:
		return item, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return next, nil
}

// CoerceInt parses an integer, accepting decimals by truncation, and returns 0
// when value is not a number.
func CoerceInt(value string) int64 {
	value = strings.TrimSpace(value)
	if i, err := strconv.ParseInt(value, 10, 64); err == nil {
		return i
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	if f > math.MaxInt64 || f < math.MinInt64 {
		return 0
	}
	return int64(f)
}

// CoerceDecimal parses a decimal and returns 0 when value is not a number.
func CoerceDecimal(value string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// CommitRequest builds the update request persisting item.
func CommitRequest(projectID int64, item domain.LineItem) dto.UpdateBomPartRequest {
	req := dto.UpdateBomPartRequest{
		ProjectPartAssignmentID: item.ID,
		ProjectID:               projectID,
		PcbID:                   item.PcbID,
		PartName:                item.PartName,
		Quantity:                item.Quantity,
		Notes:                   item.Notes,
		ReferenceID:             item.ReferenceID,
		SchematicReferenceID:    item.SchematicReferenceID,
		CustomDescription:       item.CustomDescription,
	}
	switch s := item.Source.(type) {
	case domain.Linked:
		req.QuantityAvailable = s.Stored.QuantityAvailable
		req.Cost = s.Stored.Cost
		req.Part = &dto.PartStockUpdate{
			PartID:   s.Part.ID,
			Quantity: s.Part.Quantity,
			Cost:     s.Part.Cost,
		}
	case domain.Manual:
		req.QuantityAvailable = s.QuantityAvailable
		req.Cost = s.Cost
	}
	return req
}
