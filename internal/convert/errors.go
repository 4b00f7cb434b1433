package convert

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyInitialised = errors.New("convert: converter already initialised")
	ErrNotInitialised     = errors.New("convert: converter not initialised, call Init first")
	ErrNoSamples          = errors.New("convert: no sample envelopes supplied, unable to determine target schema; configure sample_file")
	ErrNoItemMetadata     = errors.New("convert: no item metadata found for sample item, unable to determine target schema")
)

// ConversionError carries the envelope a per-message failure occurred in.
type ConversionError struct {
	EnvelopeID string
	Position   string
	Err        error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("convert: error converting CSV data at pos=%s, id=%s: %v", orUnknown(e.Position), e.EnvelopeID, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

func orUnknown(s string) string {
	if s == "" {
		return "?"
	}
	return s
}
