// Package record holds schema-bound structured values produced by the CSV
// parser and the assembler that turns parsed items into the emitted record.
package record

import (
	"bytes"
	"fmt"

	"github.com/drblury/csvflow/internal/convert/schema"
	jsoncodec "github.com/drblury/csvflow/internal/runtime/jsoncodec"
)

// Record is an ordered set of values conforming to a RecordSchema. Primitive
// slots hold string, bool, int32, int64, float64 or nil; array slots hold
// []*Record.
type Record struct {
	schema *schema.RecordSchema
	values []any
}

// New returns a record for s with every slot set to nil.
func New(s *schema.RecordSchema) *Record {
	return &Record{schema: s, values: make([]any, s.Len())}
}

func (r *Record) Schema() *schema.RecordSchema { return r.schema }

func (r *Record) Len() int { return len(r.values) }

// At returns the value at field position i.
func (r *Record) At(i int) any { return r.values[i] }

// SetAt stores v at field position i.
func (r *Record) SetAt(i int, v any) { r.values[i] = v }

// Get returns the value of the named field.
func (r *Record) Get(name string) (any, bool) {
	i, ok := r.schema.Index(name)
	if !ok {
		return nil, false
	}
	return r.values[i], true
}

// Set stores v in the named field.
func (r *Record) Set(name string, v any) error {
	i, ok := r.schema.Index(name)
	if !ok {
		return fmt.Errorf("record: %s has no field %q", r.schema.Name(), name)
	}
	r.values[i] = v
	return nil
}

// Map converts the record into plain maps and slices, recursing into nested
// records.
func (r *Record) Map() map[string]any {
	out := make(map[string]any, len(r.values))
	for i, v := range r.values {
		out[r.schema.Field(i).Name] = plain(v)
	}
	return out
}

func plain(v any) any {
	switch val := v.(type) {
	case *Record:
		return val.Map()
	case []*Record:
		items := make([]any, len(val))
		for i, item := range val {
			items[i] = item.Map()
		}
		return items
	default:
		return v
	}
}

// MarshalJSON writes the record as a JSON object whose keys follow schema
// field order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, v := range r.values {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := jsoncodec.Marshal(r.schema.Field(i).Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		encoded, err := jsoncodec.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("record: field %q: %w", r.schema.Field(i).Name, err)
		}
		buf.Write(encoded)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
