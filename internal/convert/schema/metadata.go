package schema

import "fmt"

// Item metadata keys written by upstream collectors.
const (
	MetadataKeyFields     = "fields"
	MetadataKeyMappedName = "mapped-name"
	MetadataKeyDataType   = "data-type"
	MetadataKeyRecordType = "record-type"
)

// FromItemMetadata extracts the ordered column list and the optional
// record-type hint from an envelope item's metadata map, as produced by JSON
// decoding. A missing fields key yields an empty column list; malformed
// entries are reported as SchemaDerivationError.
func FromItemMetadata(meta map[string]any) ([]ColumnMetadata, *string, error) {
	var shapeHint *string
	if raw, ok := meta[MetadataKeyRecordType]; ok && raw != nil {
		s, ok := raw.(string)
		if !ok {
			return nil, nil, derivationError(-1, "%s must be a string, got %T", MetadataKeyRecordType, raw)
		}
		shapeHint = &s
	}

	raw, ok := meta[MetadataKeyFields]
	if !ok || raw == nil {
		return nil, shapeHint, nil
	}
	entries, ok := raw.([]any)
	if !ok {
		return nil, nil, derivationError(-1, "%s must be a list, got %T", MetadataKeyFields, raw)
	}

	columns := make([]ColumnMetadata, 0, len(entries))
	for i, entry := range entries {
		m, ok := entry.(map[string]any)
		if !ok {
			return nil, nil, derivationError(i, "field entry must be an object, got %T", entry)
		}
		name, err := optionalString(m, MetadataKeyMappedName)
		if err != nil {
			return nil, nil, derivationError(i, "%v", err)
		}
		dataType, err := optionalString(m, MetadataKeyDataType)
		if err != nil {
			return nil, nil, derivationError(i, "%v", err)
		}
		col := ColumnMetadata{DataType: dataType}
		if name != nil {
			col.MappedName = *name
		}
		columns = append(columns, col)
	}
	return columns, shapeHint, nil
}

// DeriveFromItemMetadata is FromItemMetadata followed by Derive.
func DeriveFromItemMetadata(meta map[string]any) (*Schema, error) {
	columns, shapeHint, err := FromItemMetadata(meta)
	if err != nil {
		return nil, err
	}
	return Derive(columns, shapeHint)
}

func optionalString(m map[string]any, key string) (*string, error) {
	raw, ok := m[key]
	if !ok || raw == nil {
		return nil, nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("%s must be a string, got %T", key, raw)
	}
	return &s, nil
}
