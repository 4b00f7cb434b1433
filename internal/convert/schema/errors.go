package schema

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownDataType  = errors.New("schema: unknown data type")
	ErrSchemaDerivation = errors.New("schema: derivation failed")
)

// UnknownDataTypeError reports a type label with no canonical or alias match.
// Field and Column are set when the label came from column metadata; Column
// is -1 otherwise.
type UnknownDataTypeError struct {
	Label  string
	Field  string
	Column int
}

func (e *UnknownDataTypeError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("schema: column %d: no data type found matching %q for field %q", e.Column, e.Label, e.Field)
	}
	return fmt.Sprintf("schema: no data type found matching %q", e.Label)
}

func (e *UnknownDataTypeError) Is(target error) bool {
	return target == ErrUnknownDataType
}

// SchemaDerivationError reports column metadata that cannot produce a schema.
// Column is the zero-based metadata index, or -1 when the problem is not tied
// to a single column.
type SchemaDerivationError struct {
	Column int
	Reason string
}

func (e *SchemaDerivationError) Error() string {
	if e.Column >= 0 {
		return fmt.Sprintf("schema: column %d: %s", e.Column, e.Reason)
	}
	return "schema: " + e.Reason
}

func (e *SchemaDerivationError) Is(target error) bool {
	return target == ErrSchemaDerivation
}

func derivationError(column int, format string, args ...any) error {
	return &SchemaDerivationError{Column: column, Reason: fmt.Sprintf(format, args...)}
}
