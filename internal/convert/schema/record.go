package schema

import (
	"encoding/json"
	"fmt"

	jsoncodec "github.com/drblury/csvflow/internal/runtime/jsoncodec"
)

// Record names used by derived schemas.
const (
	ItemRecordName       = "item"
	CollectionRecordName = "root"
	ElementsFieldName    = "elements"
)

// FieldDescriptor describes one column: its mapped name, primitive type and
// optionality. Derived descriptors are always optional because CSV cells may be
// empty.
type FieldDescriptor struct {
	Name     string
	Type     DataType
	Optional bool
}

// OptionalField returns a nullable descriptor for name.
func OptionalField(name string, t DataType) FieldDescriptor {
	return FieldDescriptor{Name: name, Type: t, Optional: true}
}

// Field is one slot of a RecordSchema. It is either a primitive column
// (Elements == nil) or an array of nested records.
type Field struct {
	FieldDescriptor
	Elements *RecordSchema
}

// IsArray reports whether the field holds a sequence of nested records.
func (f Field) IsArray() bool {
	return f.Elements != nil
}

// RecordSchema is an ordered, named list of fields. It is immutable once
// built and safe to share between goroutines.
type RecordSchema struct {
	name   string
	fields []Field
	index  map[string]int
}

func newRecordSchema(name string, fields []Field) (*RecordSchema, error) {
	index := make(map[string]int, len(fields))
	for i, f := range fields {
		if _, dup := index[f.Name]; dup {
			return nil, derivationError(i, "duplicate field name %q", f.Name)
		}
		index[f.Name] = i
	}
	return &RecordSchema{name: name, fields: fields, index: index}, nil
}

// NewItemSchema builds the per-row record schema from descriptors, preserving
// their order.
func NewItemSchema(descriptors []FieldDescriptor) (*RecordSchema, error) {
	fields := make([]Field, len(descriptors))
	for i, d := range descriptors {
		fields[i] = Field{FieldDescriptor: d}
	}
	return newRecordSchema(ItemRecordName, fields)
}

// NewCollectionSchema wraps item in a root record with a single array field.
func NewCollectionSchema(item *RecordSchema) *RecordSchema {
	return &RecordSchema{
		name: CollectionRecordName,
		fields: []Field{{
			FieldDescriptor: FieldDescriptor{Name: ElementsFieldName},
			Elements:        item,
		}},
		index: map[string]int{ElementsFieldName: 0},
	}
}

func (s *RecordSchema) Name() string { return s.name }

func (s *RecordSchema) Len() int { return len(s.fields) }

// Field returns the field at position i.
func (s *RecordSchema) Field(i int) Field { return s.fields[i] }

// Fields returns a copy of the ordered field list.
func (s *RecordSchema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Index returns the position of the named field.
func (s *RecordSchema) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Headers lists field names in column order.
func (s *RecordSchema) Headers() []string {
	headers := make([]string, len(s.fields))
	for i, f := range s.fields {
		headers[i] = f.Name
	}
	return headers
}

// Equal reports structural equality: same name and identical fields in the
// same order, recursing into nested element schemas.
func (s *RecordSchema) Equal(other *RecordSchema) bool {
	if s == nil || other == nil {
		return s == other
	}
	if s.name != other.name || len(s.fields) != len(other.fields) {
		return false
	}
	for i, f := range s.fields {
		g := other.fields[i]
		if f.FieldDescriptor != g.FieldDescriptor {
			return false
		}
		if !f.Elements.Equal(g.Elements) {
			return false
		}
	}
	return true
}

func (s *RecordSchema) String() string {
	return fmt.Sprintf("%s%v", s.name, s.Headers())
}

type avroRecord struct {
	Type      string      `json:"type"`
	Name      string      `json:"name"`
	Namespace string      `json:"namespace,omitempty"`
	Fields    []avroField `json:"fields"`
}

type avroArray struct {
	Type  string      `json:"type"`
	Items *avroRecord `json:"items"`
}

type avroField struct {
	Name    string          `json:"name"`
	Type    any             `json:"type"`
	Default json.RawMessage `json:"default,omitempty"`
}

var avroNull = json.RawMessage("null")

func (s *RecordSchema) avro(namespace string) *avroRecord {
	rec := &avroRecord{
		Type:      "record",
		Name:      s.name,
		Namespace: namespace,
		Fields:    make([]avroField, len(s.fields)),
	}
	for i, f := range s.fields {
		switch {
		case f.IsArray():
			rec.Fields[i] = avroField{
				Name: f.Name,
				Type: avroArray{Type: "array", Items: f.Elements.avro("")},
			}
		case f.Optional:
			rec.Fields[i] = avroField{
				Name:    f.Name,
				Type:    []string{"null", f.Type.AvroType()},
				Default: avroNull,
			}
		default:
			rec.Fields[i] = avroField{Name: f.Name, Type: f.Type.AvroType()}
		}
	}
	return rec
}

// AvroDocument returns the Avro-style description of the schema, suitable for
// JSON encoding or embedding in a larger document.
func (s *RecordSchema) AvroDocument(namespace string) any {
	return s.avro(namespace)
}

// MarshalJSON renders the schema as an Avro-style record document.
func (s *RecordSchema) MarshalJSON() ([]byte, error) {
	return jsoncodec.Marshal(s.avro(""))
}
