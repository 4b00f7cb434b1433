package record

import (
	"errors"
	"fmt"
	"strings"

	"github.com/drblury/csvflow/internal/convert/schema"
)

var (
	ErrEmptyData       = errors.New("record: encountered empty CSV data")
	ErrMultipleRecords = errors.New("record: encountered multi-line CSV data for a single-record schema")
)

// EmptyDataError reports an envelope whose payload parsed to zero rows.
type EmptyDataError struct {
	Shape schema.RecordShape
}

func (e *EmptyDataError) Error() string {
	return fmt.Sprintf("%v (record-type=%s)", ErrEmptyData, strings.ToLower(e.Shape.String()))
}

func (e *EmptyDataError) Is(target error) bool {
	return target == ErrEmptyData
}

// MultipleRecordsError reports a single-shape schema receiving more than one
// parsed row.
type MultipleRecordsError struct {
	Count int
}

func (e *MultipleRecordsError) Error() string {
	return fmt.Sprintf("%v (record-type=single): got %d rows", ErrMultipleRecords, e.Count)
}

func (e *MultipleRecordsError) Is(target error) bool {
	return target == ErrMultipleRecords
}

// Assemble builds the record emitted for one envelope. Single shape returns
// the sole item unwrapped; Collection shape wraps all items, in order, under
// the elements field of the collection schema.
func Assemble(items []*Record, s *schema.Schema) (*Record, error) {
	if len(items) == 0 {
		return nil, &EmptyDataError{Shape: s.Shape}
	}

	if s.Shape == schema.ShapeSingle {
		if len(items) > 1 {
			return nil, &MultipleRecordsError{Count: len(items)}
		}
		return items[0], nil
	}

	root := New(s.Collection)
	elements := make([]*Record, len(items))
	copy(elements, items)
	if err := root.Set(schema.ElementsFieldName, elements); err != nil {
		return nil, err
	}
	return root, nil
}
