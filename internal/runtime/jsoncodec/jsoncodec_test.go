package jsoncodec

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type column struct {
	MappedName string `json:"mapped-name"`
	DataType   string `json:"data-type"`
}

func TestMarshalAndUnmarshal(t *testing.T) {
	in := column{MappedName: "Beløp", DataType: "DOUBLE"}
	data, err := Marshal(in)
	require.NoError(t, err)

	var out column
	require.NoError(t, Unmarshal(data, &out))
	assert.Equal(t, in, out)

	indented, err := MarshalIndent(in, "", "  ")
	require.NoError(t, err)
	assert.Contains(t, string(indented), "\n  \"mapped-name\"")
}

func TestEncodeAndDecode(t *testing.T) {
	buf := &bytes.Buffer{}
	in := column{MappedName: "Kontonummer", DataType: "STRING"}

	require.NoError(t, Encode(buf, in))

	var out column
	require.NoError(t, Decode(buf, &out))
	assert.Equal(t, in, out)
}

func TestUnmarshalNumbersKeepsIntegers(t *testing.T) {
	var out map[string]any
	require.NoError(t, UnmarshalNumbers([]byte(`{"position":9007199254740993}`), &out))

	n, ok := out["position"].(json.Number)
	require.True(t, ok, "expected json.Number, got %T", out["position"])
	assert.Equal(t, "9007199254740993", n.String())
}
