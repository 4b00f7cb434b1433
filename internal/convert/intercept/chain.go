// Package intercept holds the value interceptor chain applied to every CSV
// cell before type coercion, together with the normalizer stages shipped with
// the converter.
package intercept

import (
	"fmt"

	"github.com/drblury/csvflow/internal/convert/schema"
)

// Interceptor transforms the raw value of one field. It may only change the
// value, never which field is processed. Implementations must be safe for
// concurrent use when the converter runs conversions in parallel.
type Interceptor func(field schema.FieldDescriptor, value string) (string, error)

// Func adapts an infallible transformation into an Interceptor.
func Func(fn func(field schema.FieldDescriptor, value string) string) Interceptor {
	return func(field schema.FieldDescriptor, value string) (string, error) {
		return fn(field, value), nil
	}
}

// Chain is an ordered list of interceptors. Stages are registered while the
// converter is assembled; the chain is read-only afterwards.
type Chain struct {
	stages []Interceptor
}

// NewChain returns a chain holding the given stages in order.
func NewChain(stages ...Interceptor) *Chain {
	c := &Chain{}
	return c.Register(stages...)
}

// Register appends stages; nil stages are ignored.
func (c *Chain) Register(stages ...Interceptor) *Chain {
	for _, stage := range stages {
		if stage != nil {
			c.stages = append(c.stages, stage)
		}
	}
	return c
}

// Len reports the number of registered stages.
func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.stages)
}

// Intercept runs value through every stage in registration order, feeding each
// stage the previous stage's output. The first failing stage aborts the chain.
func (c *Chain) Intercept(field schema.FieldDescriptor, value string) (string, error) {
	if c == nil {
		return value, nil
	}
	var err error
	for i, stage := range c.stages {
		value, err = stage(field, value)
		if err != nil {
			return "", &Error{Field: field.Name, Stage: i, Err: err}
		}
	}
	return value, nil
}

// Error reports a failing interceptor stage.
type Error struct {
	Field string
	Stage int
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("intercept: stage %d failed for field %q: %v", e.Stage, e.Field, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
