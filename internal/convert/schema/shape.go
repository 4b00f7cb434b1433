package schema

import "strings"

// RecordShape decides whether a converted envelope yields one record or a
// collection of records. The zero value is ShapeCollection, the default.
type RecordShape int

const (
	ShapeCollection RecordShape = iota
	ShapeSingle
)

var shapeNames = map[RecordShape]string{
	ShapeCollection: "COLLECTION",
	ShapeSingle:     "SINGLE",
}

// shapeAliases keeps the historical record-type vocabulary of upstream
// collectors, where a one-row envelope is described as an "entry".
var shapeAliases = map[RecordShape][]string{
	ShapeSingle: {"entry"},
}

var shapeOrder = []RecordShape{ShapeCollection, ShapeSingle}

func (s RecordShape) String() string {
	if name, ok := shapeNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// MarshalText renders the shape in the lower-case form used in metadata.
func (s RecordShape) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(s.String())), nil
}

// ParseShape matches label case-insensitively against canonical shape names
// and then the alias table.
func ParseShape(label string) (RecordShape, bool) {
	label = strings.TrimSpace(label)
	for _, shape := range shapeOrder {
		if strings.EqualFold(shapeNames[shape], label) {
			return shape, true
		}
	}
	for _, shape := range shapeOrder {
		for _, alias := range shapeAliases[shape] {
			if strings.EqualFold(alias, label) {
				return shape, true
			}
		}
	}
	return ShapeCollection, false
}

// SelectShape resolves an optional record-type hint. Absent or unrecognised
// hints fall back to ShapeCollection.
func SelectShape(label *string) RecordShape {
	if label == nil {
		return ShapeCollection
	}
	shape, ok := ParseShape(*label)
	if !ok {
		return ShapeCollection
	}
	return shape
}
