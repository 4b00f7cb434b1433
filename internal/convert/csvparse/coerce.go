package csvparse

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/drblury/csvflow/internal/convert/schema"
)

var errNonFinite = errors.New("value is not a finite number")

// Coerce converts a cell into the Go value for the field's type. An empty cell
// is nil for every type. Non-string values are trimmed before parsing.
func Coerce(field schema.FieldDescriptor, raw string) (any, error) {
	if raw == "" {
		return nil, nil
	}
	if field.Type == schema.DataTypeString {
		return raw, nil
	}

	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, nil
	}

	switch field.Type {
	case schema.DataTypeBoolean:
		return strconv.ParseBool(s)
	case schema.DataTypeInt:
		v, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return nil, err
		}
		return int32(v), nil
	case schema.DataTypeLong:
		return strconv.ParseInt(s, 10, 64)
	case schema.DataTypeDouble:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, err
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errNonFinite
		}
		return v, nil
	default:
		return raw, nil
	}
}
