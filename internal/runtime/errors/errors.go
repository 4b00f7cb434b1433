package errors

import (
	sterrors "errors"
	"fmt"
)

var (
	ErrServiceRequired      = sterrors.New("csvflow: service is required")
	ErrConfigRequired       = sterrors.New("csvflow: configuration is required")
	ErrLoggerRequired       = sterrors.New("csvflow: logger is required")
	ErrConverterRequired    = sterrors.New("csvflow: converter is required")
	ErrConsumeQueueRequired = sterrors.New("csvflow: consume queue is required")
	ErrPublishQueueRequired = sterrors.New("csvflow: publish queue is required")
	ErrPublisherRequired    = sterrors.New("csvflow: publisher is required")
	ErrSamplesRequired      = sterrors.New("csvflow: sample envelopes are required")
	ErrEnvelopeRequired     = sterrors.New("csvflow: envelope payload is required")
)

// ConfigValidationError wraps the joined problems reported by Config.Validate.
type ConfigValidationError struct {
	Err error
}

func (e ConfigValidationError) Error() string {
	return fmt.Sprintf("csvflow: invalid configuration: %v", e.Err)
}

func (e ConfigValidationError) Unwrap() error {
	return e.Err
}

// NewConfigValidationError returns nil when err is nil.
func NewConfigValidationError(err error) error {
	if err == nil {
		return nil
	}
	return ConfigValidationError{Err: err}
}
