package convert

import (
	"bytes"

	"github.com/spf13/cast"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/drblury/csvflow/internal/convert/record"
	"github.com/drblury/csvflow/internal/runtime/jsoncodec"
)

// Result is the outcome of converting one envelope.
type Result struct {
	EnvelopeID string
	Position   string
	Schema     *TargetSchema
	// Manifest is the envelope manifest flattened to strings.
	Manifest map[string]string
	Data     *record.Record
	Rows     int
}

// collectorManifest flattens an envelope manifest into the map<string>
// layout of manifest.collector.
func collectorManifest(manifest map[string]any) map[string]string {
	out := make(map[string]string, len(manifest))
	for k, v := range manifest {
		switch v.(type) {
		case map[string]any, []any:
			encoded, err := jsoncodec.Marshal(v)
			if err == nil {
				out[k] = string(encoded)
				continue
			}
		}
		out[k] = cast.ToString(v)
	}
	return out
}

// MarshalJSON writes {"manifest":{"collector":{...}},"data":{...}}.
func (r *Result) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"manifest":{"collector":`)
	manifest := r.Manifest
	if manifest == nil {
		manifest = map[string]string{}
	}
	collector, err := jsoncodec.Marshal(manifest)
	if err != nil {
		return nil, err
	}
	buf.Write(collector)
	buf.WriteString(`},"data":`)
	data, err := r.Data.MarshalJSON()
	if err != nil {
		return nil, err
	}
	buf.Write(data)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ToStruct converts the result into a protobuf Struct with the same layout
// as MarshalJSON.
func (r *Result) ToStruct() (*structpb.Struct, error) {
	collector := make(map[string]any, len(r.Manifest))
	for k, v := range r.Manifest {
		collector[k] = v
	}
	return structpb.NewStruct(map[string]any{
		FieldManifest: map[string]any{FieldCollector: collector},
		FieldData:     r.Data.Map(),
	})
}
