package intercept

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/csvflow/internal/convert/schema"
)

var (
	nameField  = schema.OptionalField("BrukerstedNavn", schema.DataTypeString)
	otherField = schema.OptionalField("amount", schema.DataTypeLong)
)

func TestChainAppliesStagesInOrder(t *testing.T) {
	var seen []string
	chain := NewChain(
		Func(func(f schema.FieldDescriptor, v string) string {
			seen = append(seen, "upper:"+f.Name)
			return strings.ToUpper(v)
		}),
		Func(func(f schema.FieldDescriptor, v string) string {
			seen = append(seen, "suffix:"+f.Name)
			return v + "!"
		}),
	)

	got, err := chain.Intercept(nameField, "abc")
	require.NoError(t, err)
	assert.Equal(t, "ABC!", got)
	assert.Equal(t, []string{"upper:BrukerstedNavn", "suffix:BrukerstedNavn"}, seen)
	assert.Equal(t, 2, chain.Len())
}

func TestChainEmptyAndNil(t *testing.T) {
	got, err := NewChain().Intercept(nameField, "x")
	require.NoError(t, err)
	assert.Equal(t, "x", got)

	var nilChain *Chain
	got, err = nilChain.Intercept(nameField, "y")
	require.NoError(t, err)
	assert.Equal(t, "y", got)
	assert.Zero(t, nilChain.Len())
}

func TestChainRegisterIgnoresNil(t *testing.T) {
	chain := NewChain(nil).Register(nil, StripNewlines("a"))
	assert.Equal(t, 1, chain.Len())
}

func TestChainStopsAtFailingStage(t *testing.T) {
	boom := errors.New("vault unavailable")
	called := false
	chain := NewChain(
		func(schema.FieldDescriptor, string) (string, error) { return "", boom },
		Func(func(_ schema.FieldDescriptor, v string) string {
			called = true
			return v
		}),
	)

	_, err := chain.Intercept(otherField, "42")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.False(t, called)

	var stageErr *Error
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, "amount", stageErr.Field)
	assert.Equal(t, 0, stageErr.Stage)
}

func TestStripNewlines(t *testing.T) {
	stage := StripNewlines("BrukerstedNavn")

	tests := []struct {
		name  string
		field schema.FieldDescriptor
		in    string
		want  string
	}{
		{"plain newline removed", nameField, "Kiosk\nSentrum", "KioskSentrum"},
		{"crlf removed", nameField, "Kiosk\r\nSentrum", "KioskSentrum"},
		{"tab newline becomes space", nameField, "Kiosk\t\nSentrum", "Kiosk Sentrum"},
		{"untouched without newline", nameField, "Kiosk Sentrum", "Kiosk Sentrum"},
		{"other fields pass through", otherField, "1\n2", "1\n2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := stage(tt.field, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTruncate(t *testing.T) {
	stage := Truncate("BrukerstedNavn", 3)

	got, err := stage(nameField, "Ærlig")
	require.NoError(t, err)
	assert.Equal(t, "Ærl", got)

	got, err = stage(nameField, "ab")
	require.NoError(t, err)
	assert.Equal(t, "ab", got)

	got, err = stage(otherField, "123456")
	require.NoError(t, err)
	assert.Equal(t, "123456", got)
}

func TestFromConfig(t *testing.T) {
	chain, err := FromConfig([]Normalizer{
		{Field: "BrukerstedNavn", Kind: KindStripNewlines},
		{Field: "comment", Kind: KindTruncate, MaxLength: 4},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, chain.Len())

	got, err := chain.Intercept(nameField, "a\nb")
	require.NoError(t, err)
	assert.Equal(t, "ab", got)

	got, err = chain.Intercept(schema.OptionalField("comment", schema.DataTypeString), "abcdefgh")
	require.NoError(t, err)
	assert.Equal(t, "abcd", got)
}

func TestFromConfigRejectsInvalidEntries(t *testing.T) {
	_, err := FromConfig([]Normalizer{{Field: "a", Kind: "rot13"}})
	assert.Error(t, err)

	_, err = FromConfig([]Normalizer{{Field: "a", Kind: KindTruncate}})
	assert.Error(t, err)
}

func TestValidateNormalizersReportsConflicts(t *testing.T) {
	err := ValidateNormalizers([]Normalizer{
		{Field: "comment", Kind: KindTruncate, MaxLength: 4},
		{Field: "comment", Kind: KindTruncate, MaxLength: 8},
		{Field: "", Kind: KindStripNewlines},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conflicts with normalizer 0")
	assert.Contains(t, err.Error(), "field is required")

	err = ValidateNormalizers([]Normalizer{
		{Field: "comment", Kind: KindStripNewlines},
		{Field: "comment", Kind: KindTruncate, MaxLength: 5},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `conflicts with normalizer 0 for field "comment"`)

	assert.NoError(t, ValidateNormalizers([]Normalizer{
		{Field: "comment", Kind: KindTruncate, MaxLength: 4},
		{Field: "holder", Kind: KindStripNewlines},
	}))
}
