package intercept

import (
	"errors"
	"fmt"
	"strings"

	"github.com/drblury/csvflow/internal/convert/schema"
)

// Normalizer kinds accepted in configuration.
const (
	KindStripNewlines = "strip_newlines"
	KindTruncate      = "truncate"
)

// Normalizer configures one built-in stage for one field.
type Normalizer struct {
	Field     string `yaml:"field" json:"field"`
	Kind      string `yaml:"kind" json:"kind"`
	MaxLength int    `yaml:"max_length,omitempty" json:"max_length,omitempty"`
}

var newlineReplacer = strings.NewReplacer(
	"\t\n", " ",
	"\r\n", "",
	"\n", "",
	"\r", "",
)

// StripNewlines removes embedded line breaks from the named field. A tab
// immediately followed by a newline collapses into a single space. Other
// fields pass through unchanged.
func StripNewlines(fieldName string) Interceptor {
	return Func(func(field schema.FieldDescriptor, value string) string {
		if field.Name != fieldName || !strings.ContainsAny(value, "\r\n") {
			return value
		}
		return newlineReplacer.Replace(value)
	})
}

// Truncate keeps at most maxRunes characters of the named field.
func Truncate(fieldName string, maxRunes int) Interceptor {
	return Func(func(field schema.FieldDescriptor, value string) string {
		if field.Name != fieldName || len(value) <= maxRunes {
			return value
		}
		runes := []rune(value)
		if len(runes) <= maxRunes {
			return value
		}
		return string(runes[:maxRunes])
	})
}

// ValidateNormalizers reports every malformed entry and every field that is
// configured more than once. A field carries at most one shaping policy.
func ValidateNormalizers(normalizers []Normalizer) error {
	var errs []error
	seen := make(map[string]int, len(normalizers))
	for i, n := range normalizers {
		if strings.TrimSpace(n.Field) == "" {
			errs = append(errs, fmt.Errorf("normalizer %d: field is required", i))
		}
		switch n.Kind {
		case KindStripNewlines:
		case KindTruncate:
			if n.MaxLength <= 0 {
				errs = append(errs, fmt.Errorf("normalizer %d: truncate for %q needs a positive max length", i, n.Field))
			}
		default:
			errs = append(errs, fmt.Errorf("normalizer %d: unknown kind %q", i, n.Kind))
		}

		if prev, dup := seen[n.Field]; dup {
			errs = append(errs, fmt.Errorf("normalizer %d: conflicts with normalizer %d for field %q", i, prev, n.Field))
			continue
		}
		seen[n.Field] = i
	}
	return errors.Join(errs...)
}

// FromConfig builds a chain from configured normalizers, in configuration
// order.
func FromConfig(normalizers []Normalizer) (*Chain, error) {
	if err := ValidateNormalizers(normalizers); err != nil {
		return nil, fmt.Errorf("intercept: %w", err)
	}
	chain := NewChain()
	for _, n := range normalizers {
		switch n.Kind {
		case KindStripNewlines:
			chain.Register(StripNewlines(n.Field))
		case KindTruncate:
			chain.Register(Truncate(n.Field, n.MaxLength))
		}
	}
	return chain, nil
}
