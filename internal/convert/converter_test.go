package convert

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/csvflow/internal/convert/csvparse"
	"github.com/drblury/csvflow/internal/convert/intercept"
	"github.com/drblury/csvflow/internal/convert/record"
	"github.com/drblury/csvflow/internal/convert/schema"
	"github.com/drblury/csvflow/internal/envelope"
	"github.com/drblury/csvflow/internal/runtime/jsoncodec"
)

func envelopeWith(id, shape, data string, columns ...[2]string) *envelope.Envelope {
	fields := make([]any, len(columns))
	for i, c := range columns {
		fields[i] = map[string]any{"mapped-name": c[0], "data-type": c[1]}
	}
	meta := map[string]any{"fields": fields}
	if shape != "" {
		meta["record-type"] = shape
	}
	return &envelope.Envelope{
		ID:       id,
		Position: "1",
		Items: map[string]envelope.Item{
			envelope.ItemEntry: {Data: []byte(data), Metadata: meta},
		},
		Manifest: map[string]any{"source": "sftp", "size": 14},
	}
}

var abColumns = [][2]string{{"a", "STRING"}, {"b", "INTEGER"}}

func initialised(t *testing.T, shape string) *Converter {
	t.Helper()
	c := New(Options{})
	require.NoError(t, c.Init([]*envelope.Envelope{envelopeWith("sample", shape, "", abColumns...)}))
	return c
}

func TestConvertCollectionOfTwoRows(t *testing.T) {
	c := initialised(t, "")

	res, err := c.Convert(context.Background(), envelopeWith("e1", "", "hello,5\nworld,\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Rows)
	assert.Equal(t, "root", res.Data.Schema().Name())

	elements, ok := res.Data.Get(schema.ElementsFieldName)
	require.True(t, ok)
	items := elements.([]*record.Record)
	require.Len(t, items, 2)
	assert.Equal(t, map[string]any{"a": "hello", "b": int32(5)}, items[0].Map())
	assert.Equal(t, map[string]any{"a": "world", "b": nil}, items[1].Map())

	encoded, err := jsoncodec.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"manifest":{"collector":{"size":"14","source":"sftp"}},"data":{"elements":[{"a":"hello","b":5},{"a":"world","b":null}]}}`,
		string(encoded))
}

func TestConvertSingleRowIsUnwrapped(t *testing.T) {
	c := initialised(t, "entry")

	res, err := c.Convert(context.Background(), envelopeWith("e1", "", "x,1\n"))
	require.NoError(t, err)
	assert.Equal(t, "item", res.Data.Schema().Name())
	assert.Equal(t, map[string]any{"a": "x", "b": int32(1)}, res.Data.Map())
}

func TestConvertSingleRejectsMultipleRows(t *testing.T) {
	c := initialised(t, "entry")

	_, err := c.Convert(context.Background(), envelopeWith("e2", "", "x,1\ny,2\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, record.ErrMultipleRecords)

	var convErr *ConversionError
	require.ErrorAs(t, err, &convErr)
	assert.Equal(t, "e2", convErr.EnvelopeID)
	assert.Contains(t, err.Error(), "pos=1, id=e2")
}

func TestInitUnknownTypeProducesNoSchema(t *testing.T) {
	c := New(Options{})
	err := c.Init([]*envelope.Envelope{envelopeWith("s", "", "", [2]string{"z", "FROBNICATE"})})
	assert.ErrorIs(t, err, schema.ErrUnknownDataType)
	assert.False(t, c.Initialised())

	_, err = c.Schema()
	assert.ErrorIs(t, err, ErrNotInitialised)
	_, err = c.TargetSchema()
	assert.ErrorIs(t, err, ErrNotInitialised)
	assert.Nil(t, c.Headers())
}

func TestConvertLongRowFails(t *testing.T) {
	c := initialised(t, "")

	_, err := c.Convert(context.Background(), envelopeWith("e3", "", "x,1,extra\n"))
	assert.ErrorIs(t, err, csvparse.ErrRowShape)
}

func TestConvertEmptyPayload(t *testing.T) {
	c := initialised(t, "")

	_, err := c.Convert(context.Background(), envelopeWith("e4", "", ""))
	assert.ErrorIs(t, err, record.ErrEmptyData)
}

func TestConvertMissingEntry(t *testing.T) {
	c := initialised(t, "")
	env := &envelope.Envelope{ID: "e5", Items: map[string]envelope.Item{"other": {}}}

	_, err := c.Convert(context.Background(), env)
	assert.ErrorIs(t, err, envelope.ErrItemNotFound)
}

func TestInitOnlyOnce(t *testing.T) {
	c := initialised(t, "")
	err := c.Init([]*envelope.Envelope{envelopeWith("again", "", "", abColumns...)})
	assert.ErrorIs(t, err, ErrAlreadyInitialised)
}

func TestInitFailures(t *testing.T) {
	c := New(Options{})
	assert.ErrorIs(t, c.Init(nil), ErrNoSamples)

	noMeta := &envelope.Envelope{ID: "s", Items: map[string]envelope.Item{envelope.ItemEntry: {}}}
	assert.ErrorIs(t, c.Init([]*envelope.Envelope{noMeta}), ErrNoItemMetadata)

	noEntry := &envelope.Envelope{ID: "s2", Position: "3", Items: map[string]envelope.Item{"other": {}}}
	err := c.Init([]*envelope.Envelope{noEntry})
	assert.ErrorIs(t, err, ErrNoItemMetadata)
	assert.ErrorIs(t, err, envelope.ErrItemNotFound)
	assert.Contains(t, err.Error(), "pos=3, id=s2")

	empty := &envelope.Envelope{ID: "s", Items: map[string]envelope.Item{
		envelope.ItemEntry: {Metadata: map[string]any{"fields": []any{}}},
	}}
	assert.ErrorIs(t, c.Init([]*envelope.Envelope{empty}), schema.ErrSchemaDerivation)

	// failed attempts leave the converter open for a later Init
	require.NoError(t, c.Init([]*envelope.Envelope{envelopeWith("s", "", "", abColumns...)}))
}

func TestConvertBeforeInit(t *testing.T) {
	_, err := New(Options{}).Convert(context.Background(), envelopeWith("e", "", "x,1"))
	assert.ErrorIs(t, err, ErrNotInitialised)
}

func TestTargetSchemaNamespaceAndDocument(t *testing.T) {
	c := initialised(t, "")
	target, err := c.TargetSchema()
	require.NoError(t, err)
	assert.Equal(t, "csvflow.rawdata.csv", target.Namespace)
	assert.Equal(t, []string{"a", "b"}, c.Headers())

	doc, err := jsoncodec.Marshal(target)
	require.NoError(t, err)
	assert.Contains(t, string(doc), `"namespace":"csvflow.rawdata.csv"`)
	assert.Contains(t, string(doc), `{"name":"collector","type":{"type":"map","values":"string"}}`)
	assert.Contains(t, string(doc), `"name":"elements"`)

	named := New(Options{Topic: "kortdata"})
	require.NoError(t, named.Init([]*envelope.Envelope{envelopeWith("s", "", "", abColumns...)}))
	target, err = named.TargetSchema()
	require.NoError(t, err)
	assert.Equal(t, "csvflow.rawdata.kortdata", target.Namespace)
	assert.Equal(t, "kortdata", named.Topic())
	assert.Equal(t, "csv", c.Topic())
}

func TestInterceptorsRunDuringConversion(t *testing.T) {
	chain := intercept.NewChain(intercept.Func(func(f schema.FieldDescriptor, v string) string {
		if f.Name == "a" {
			return "***"
		}
		return v
	}))
	c := New(Options{Interceptors: chain})
	require.NoError(t, c.Init([]*envelope.Envelope{envelopeWith("s", "single", "", abColumns...)}))

	res, err := c.Convert(context.Background(), envelopeWith("e", "", "12345678901,3"))
	require.NoError(t, err)
	assert.Equal(t, "***", res.Data.At(0))
}

func TestInterceptorFailureIsConversionError(t *testing.T) {
	boom := errors.New("pseudonymizer unavailable")
	chain := intercept.NewChain(func(schema.FieldDescriptor, string) (string, error) { return "", boom })
	c := New(Options{Interceptors: chain})
	require.NoError(t, c.Init([]*envelope.Envelope{envelopeWith("s", "", "", abColumns...)}))

	_, err := c.Convert(context.Background(), envelopeWith("e", "", "x,1"))
	var convErr *ConversionError
	require.ErrorAs(t, err, &convErr)
	assert.ErrorIs(t, err, boom)
}

func TestNewFromJSON(t *testing.T) {
	c, err := NewFromJSON([]byte(`{
		"topic": "kortdata",
		"csv-settings": {"delimiters": ";", "column-headers-present": "true"},
		"normalizers": [{"field": "a", "kind": "truncate", "max_length": 2}]
	}`), nil)
	require.NoError(t, err)
	require.NoError(t, c.Init([]*envelope.Envelope{envelopeWith("s", "", "", abColumns...)}))

	res, err := c.Convert(context.Background(), envelopeWith("e", "", "a;b\nhello;4\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Rows)

	elements, _ := res.Data.Get(schema.ElementsFieldName)
	assert.Equal(t, "he", elements.([]*record.Record)[0].At(0))

	_, err = NewFromJSON(nil, nil)
	assert.NoError(t, err)

	_, err = NewFromJSON([]byte(`{"topic":`), nil)
	assert.Error(t, err)

	_, err = NewFromJSON([]byte(`{"csv-settings":{"delimiters":""}}`), nil)
	assert.Error(t, err)
}

func TestResultToStruct(t *testing.T) {
	c := initialised(t, "")
	res, err := c.Convert(context.Background(), envelopeWith("e1", "", "hello,5\n"))
	require.NoError(t, err)

	st, err := res.ToStruct()
	require.NoError(t, err)
	collector := st.Fields[FieldManifest].GetStructValue().Fields[FieldCollector].GetStructValue()
	assert.Equal(t, "sftp", collector.Fields["source"].GetStringValue())

	elements := st.Fields[FieldData].GetStructValue().Fields[schema.ElementsFieldName].GetListValue().Values
	require.Len(t, elements, 1)
	assert.Equal(t, float64(5), elements[0].GetStructValue().Fields["b"].GetNumberValue())
}

func TestConvertConcurrentUse(t *testing.T) {
	c := initialised(t, "")

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 25 {
				res, err := c.Convert(context.Background(), envelopeWith("e", "", "x,1\ny,2\n"))
				if assert.NoError(t, err) {
					assert.Equal(t, 2, res.Rows)
				}
			}
		}()
	}
	wg.Wait()
}

func TestCollectorManifestFlattensValues(t *testing.T) {
	out := collectorManifest(map[string]any{
		"count":  3,
		"nested": map[string]any{"k": "v"},
		"flag":   true,
		"bytes":  json.Number("9007199254740993"),
	})
	assert.Equal(t, map[string]string{
		"count":  "3",
		"nested": `{"k":"v"}`,
		"flag":   "true",
		"bytes":  "9007199254740993",
	}, out)
}
