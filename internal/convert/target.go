package convert

import (
	"github.com/drblury/csvflow/internal/convert/schema"
	"github.com/drblury/csvflow/internal/runtime/jsoncodec"
)

// Field names of the aggregate conversion result.
const (
	FieldManifest  = "manifest"
	FieldCollector = "collector"
	FieldData      = "data"

	namespacePrefix   = "csvflow.rawdata."
	manifestNamespace = "csvflow.rawdata.manifest"
)

// TargetSchema describes every conversion result: the collector manifest
// under manifest.collector and the CSV data under data.
type TargetSchema struct {
	Namespace string
	Data      *schema.RecordSchema
}

// Namespace returns the target schema namespace for a topic.
func Namespace(topic string) string {
	return namespacePrefix + topic
}

type avroRecord struct {
	Type      string      `json:"type"`
	Name      string      `json:"name"`
	Namespace string      `json:"namespace,omitempty"`
	Fields    []avroField `json:"fields"`
}

type avroField struct {
	Name string `json:"name"`
	Type any    `json:"type"`
}

type avroMap struct {
	Type   string `json:"type"`
	Values string `json:"values"`
}

// Document returns the Avro-style JSON document for the aggregate schema.
func (t *TargetSchema) Document() any {
	manifest := avroRecord{
		Type:      "record",
		Name:      FieldManifest,
		Namespace: manifestNamespace,
		Fields: []avroField{
			{Name: FieldCollector, Type: avroMap{Type: "map", Values: "string"}},
		},
	}
	return avroRecord{
		Type:      "record",
		Name:      "rawdata",
		Namespace: t.Namespace,
		Fields: []avroField{
			{Name: FieldManifest, Type: manifest},
			{Name: FieldData, Type: t.Data.AvroDocument("")},
		},
	}
}

func (t *TargetSchema) MarshalJSON() ([]byte, error) {
	return jsoncodec.Marshal(t.Document())
}
