package schema

import "strings"

// ColumnMetadata is one entry of the ordered column description carried in a
// sample envelope. DataType is nil when the metadata omits the type.
type ColumnMetadata struct {
	MappedName string
	DataType   *string
}

// Schema is the derived schema triple. Exactly one of Item and Collection is
// active, chosen by Shape. A Schema is never mutated after Derive returns.
type Schema struct {
	Item       *RecordSchema
	Collection *RecordSchema
	Shape      RecordShape
}

// Target returns the schema of the records the converter emits.
func (s *Schema) Target() *RecordSchema {
	if s.Shape == ShapeSingle {
		return s.Item
	}
	return s.Collection
}

// Headers returns the column names in parse order.
func (s *Schema) Headers() []string {
	return s.Item.Headers()
}

// Equal reports whether two derived schemas are structurally identical.
func (s *Schema) Equal(other *Schema) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.Shape == other.Shape &&
		s.Item.Equal(other.Item) &&
		s.Collection.Equal(other.Collection)
}

// Derive builds the item and collection schemas from column metadata and
// resolves the record shape from shapeHint. Every field is optional. Column
// order is preserved since it is the order cells are mapped at parse time.
func Derive(columns []ColumnMetadata, shapeHint *string) (*Schema, error) {
	if len(columns) == 0 {
		return nil, derivationError(-1, "no column metadata found, unable to determine target schema")
	}

	descriptors := make([]FieldDescriptor, 0, len(columns))
	for i, col := range columns {
		name := strings.TrimSpace(col.MappedName)
		if name == "" {
			return nil, derivationError(i, "missing mapped-name")
		}
		dataType, err := ResolveDataType(col.DataType)
		if err != nil {
			return nil, &UnknownDataTypeError{Label: *col.DataType, Field: name, Column: i}
		}
		if dataType == DataTypeNone {
			return nil, derivationError(i, "missing data-type for field %q", name)
		}
		descriptors = append(descriptors, OptionalField(name, dataType))
	}

	item, err := NewItemSchema(descriptors)
	if err != nil {
		return nil, err
	}

	return &Schema{
		Item:       item,
		Collection: NewCollectionSchema(item),
		Shape:      SelectShape(shapeHint),
	}, nil
}
