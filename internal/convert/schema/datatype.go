package schema

import "strings"

// DataType is the closed set of primitive column types a schema can carry.
// The zero value DataTypeNone is the "no type" sentinel returned for an absent
// label.
type DataType int

const (
	DataTypeNone DataType = iota
	DataTypeString
	DataTypeBoolean
	DataTypeInt
	DataTypeLong
	DataTypeDouble
)

var dataTypeNames = map[DataType]string{
	DataTypeString:  "STRING",
	DataTypeBoolean: "BOOLEAN",
	DataTypeInt:     "INT",
	DataTypeLong:    "LONG",
	DataTypeDouble:  "DOUBLE",
}

// dataTypeAliases maps alternative labels (upper case) to their canonical type.
var dataTypeAliases = map[string]DataType{
	"INTEGER": DataTypeInt,
}

// dataTypeOrder fixes the lookup order so canonical names win over aliases
// deterministically.
var dataTypeOrder = []DataType{
	DataTypeString,
	DataTypeBoolean,
	DataTypeInt,
	DataTypeLong,
	DataTypeDouble,
}

func (t DataType) String() string {
	if name, ok := dataTypeNames[t]; ok {
		return name
	}
	return "NONE"
}

// AvroType returns the primitive type name used when the schema is rendered
// as an Avro-style JSON document.
func (t DataType) AvroType() string {
	switch t {
	case DataTypeBoolean:
		return "boolean"
	case DataTypeInt:
		return "int"
	case DataTypeLong:
		return "long"
	case DataTypeDouble:
		return "double"
	default:
		return "string"
	}
}

// ResolveDataType maps a free-text type label onto a DataType. A nil label
// yields DataTypeNone without an error so callers can decide how to treat a
// missing type. Matching is case-insensitive against canonical names first and
// the alias table second.
func ResolveDataType(label *string) (DataType, error) {
	if label == nil {
		return DataTypeNone, nil
	}
	return ParseDataType(*label)
}

// ParseDataType resolves a label that is known to be present. The match is
// exact apart from letter case, so surrounding whitespace is not a match.
func ParseDataType(label string) (DataType, error) {
	normalized := strings.ToUpper(label)
	if normalized != "" {
		for _, t := range dataTypeOrder {
			if dataTypeNames[t] == normalized {
				return t, nil
			}
		}
		if t, ok := dataTypeAliases[normalized]; ok {
			return t, nil
		}
	}
	return DataTypeNone, &UnknownDataTypeError{Label: label, Column: -1}
}
