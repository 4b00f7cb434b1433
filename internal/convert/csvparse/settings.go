package csvparse

import (
	"errors"
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/spf13/cast"
)

// Keys accepted in the flat CSV settings override map.
const (
	KeyDelimiters       = "delimiters"
	KeyHeadersPresent   = "column-headers-present"
	KeyLazyQuotes       = "quote-lazy"
	KeyTrimLeadingSpace = "trim-leading-space"
	KeyComment          = "comment"
)

// Settings configures the tokenizer.
type Settings struct {
	// Delimiter separates cells. Defaults to a comma.
	Delimiter rune
	// HeadersPresent skips the first row of every payload.
	HeadersPresent bool
	// LazyQuotes tolerates bare quotes inside unquoted cells.
	LazyQuotes bool
	// TrimLeadingSpace drops leading white space of each cell.
	TrimLeadingSpace bool
	// Comment marks lines to ignore when non-zero.
	Comment rune
}

// DefaultSettings returns comma-delimited settings without a header row.
func DefaultSettings() Settings {
	return Settings{Delimiter: ','}
}

// FromMap applies flat key/value overrides on top of DefaultSettings. Values
// may be strings or native types; unknown keys are rejected.
func FromMap(overrides map[string]any) (Settings, error) {
	s := DefaultSettings()

	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []error
	for _, key := range keys {
		value := overrides[key]
		var err error
		switch key {
		case KeyDelimiters:
			s.Delimiter, err = toRune(value)
		case KeyComment:
			s.Comment, err = toRune(value)
		case KeyHeadersPresent:
			s.HeadersPresent, err = cast.ToBoolE(value)
		case KeyLazyQuotes:
			s.LazyQuotes, err = cast.ToBoolE(value)
		case KeyTrimLeadingSpace:
			s.TrimLeadingSpace, err = cast.ToBoolE(value)
		default:
			err = errors.New("unknown setting")
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("csvparse: %s: %w", key, err))
		}
	}
	if len(errs) > 0 {
		return Settings{}, errors.Join(errs...)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate applies the tokenizer's constraints on delimiter and comment runes.
func (s Settings) Validate() error {
	if !validSeparator(s.Delimiter) {
		return fmt.Errorf("csvparse: invalid delimiter %q", s.Delimiter)
	}
	if s.Comment != 0 {
		if !validSeparator(s.Comment) {
			return fmt.Errorf("csvparse: invalid comment character %q", s.Comment)
		}
		if s.Comment == s.Delimiter {
			return errors.New("csvparse: comment character equals delimiter")
		}
	}
	return nil
}

func validSeparator(r rune) bool {
	return r != 0 && r != '"' && r != '\r' && r != '\n' && utf8.ValidRune(r) && r != utf8.RuneError
}

func toRune(value any) (rune, error) {
	s, err := cast.ToStringE(value)
	if err != nil {
		return 0, err
	}
	if s == "" {
		return 0, errors.New("must not be empty")
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}
