// Package csvparse turns raw delimited text into records of a derived item
// schema. Tokenizing is delegated to encoding/csv; this package maps cells to
// fields, runs the interceptor chain and coerces values.
package csvparse

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"iter"

	"github.com/drblury/csvflow/internal/convert/intercept"
	"github.com/drblury/csvflow/internal/convert/record"
	"github.com/drblury/csvflow/internal/convert/schema"
)

var errTokenizerClosed = errors.New("csvparse: tokenizer closed")

// tokenizer owns the reader over one payload. It is opened when iteration
// starts and closed on every exit path.
type tokenizer struct {
	src    *bytes.Reader
	reader *csv.Reader
}

func openTokenizer(data []byte, settings Settings) *tokenizer {
	src := bytes.NewReader(data)
	r := csv.NewReader(src)
	r.Comma = settings.Delimiter
	r.Comment = settings.Comment
	r.LazyQuotes = settings.LazyQuotes
	r.TrimLeadingSpace = settings.TrimLeadingSpace
	r.FieldsPerRecord = -1
	r.ReuseRecord = true
	return &tokenizer{src: src, reader: r}
}

func (t *tokenizer) next() ([]string, error) {
	if t.reader == nil {
		return nil, errTokenizerClosed
	}
	return t.reader.Read()
}

func (t *tokenizer) close() {
	if t.src != nil {
		t.src.Reset(nil)
	}
	t.src = nil
	t.reader = nil
}

// Parse lazily converts data into item records. Each yielded pair carries
// either a record or the error that ended the sequence; iteration stops after
// the first error. The sequence is single use.
func Parse(data []byte, item *schema.RecordSchema, settings Settings, chain *intercept.Chain) iter.Seq2[*record.Record, error] {
	return func(yield func(*record.Record, error) bool) {
		tok := openTokenizer(data, settings)
		defer tok.close()

		skipHeader := settings.HeadersPresent
		row := 0
		for {
			cells, err := tok.next()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(nil, &RowError{Row: row, Err: err})
				return
			}
			if skipHeader {
				skipHeader = false
				continue
			}

			rec, err := toRecord(row, cells, item, chain)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(rec, nil) {
				return
			}
			row++
		}
	}
}

func toRecord(row int, cells []string, item *schema.RecordSchema, chain *intercept.Chain) (*record.Record, error) {
	if len(cells) > item.Len() {
		return nil, &RowShapeError{Row: row, Cells: len(cells), Fields: item.Len()}
	}

	rec := record.New(item)
	for i, cell := range cells {
		field := item.Field(i).FieldDescriptor
		value, err := chain.Intercept(field, cell)
		if err != nil {
			return nil, &RowError{Row: row, Err: err}
		}
		coerced, err := Coerce(field, value)
		if err != nil {
			return nil, &FieldCoercionError{Row: row, Field: field.Name, Type: field.Type, Value: value, Err: err}
		}
		rec.SetAt(i, coerced)
	}
	return rec, nil
}

// Collect drains seq, returning every record or the first error.
func Collect(seq iter.Seq2[*record.Record, error]) ([]*record.Record, error) {
	var items []*record.Record
	for rec, err := range seq {
		if err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	return items, nil
}
