package csvparse

import (
	"errors"
	"fmt"

	"github.com/drblury/csvflow/internal/convert/schema"
)

var (
	ErrRowShape      = errors.New("csvparse: row does not match schema")
	ErrFieldCoercion = errors.New("csvparse: cannot coerce field value")
)

// RowShapeError reports a row with more cells than the item schema declares.
// Row is the zero-based data row index, not counting a header row.
type RowShapeError struct {
	Row    int
	Cells  int
	Fields int
}

func (e *RowShapeError) Error() string {
	return fmt.Sprintf("csvparse: row %d has %d cells, schema declares %d fields", e.Row, e.Cells, e.Fields)
}

func (e *RowShapeError) Is(target error) bool {
	return target == ErrRowShape
}

// FieldCoercionError reports a cell that cannot be converted to its declared
// type.
type FieldCoercionError struct {
	Row   int
	Field string
	Type  schema.DataType
	Value string
	Err   error
}

func (e *FieldCoercionError) Error() string {
	return fmt.Sprintf("csvparse: row %d: field %q: cannot coerce %q to %s: %v", e.Row, e.Field, e.Value, e.Type, e.Err)
}

func (e *FieldCoercionError) Is(target error) bool {
	return target == ErrFieldCoercion
}

func (e *FieldCoercionError) Unwrap() error {
	return e.Err
}

// RowError wraps tokenizer and interceptor failures with the row they occurred
// in.
type RowError struct {
	Row int
	Err error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("csvparse: row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}
