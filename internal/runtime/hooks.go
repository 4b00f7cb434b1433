package runtime

import (
	"context"
	"time"

	"github.com/drblury/csvflow/internal/convert"
	loggingpkg "github.com/drblury/csvflow/internal/runtime/logging"
)

// ConversionContext describes one envelope handled by the converter handler.
type ConversionContext struct {
	HandlerName   string
	Topic         string
	MessageUUID   string
	EnvelopeID    string
	CorrelationID string
	Context       context.Context
	StartedAt     time.Time
	// Duration is set for OnConverted and OnFailed.
	Duration time.Duration
}

// ConversionHooks are optional callbacks around each conversion.
type ConversionHooks struct {
	OnStart     func(ctx ConversionContext)
	OnConverted func(ctx ConversionContext, result *convert.Result)
	OnFailed    func(ctx ConversionContext, err error)
}

// Merge returns hooks that call h first and then other.
func (h ConversionHooks) Merge(other ConversionHooks) ConversionHooks {
	return ConversionHooks{
		OnStart:     chain1(h.OnStart, other.OnStart),
		OnConverted: chain2(h.OnConverted, other.OnConverted),
		OnFailed:    chain2(h.OnFailed, other.OnFailed),
	}
}

func chain1[A any](a, b func(A)) func(A) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(x A) {
		a(x)
		b(x)
	}
}

func chain2[A, B any](a, b func(A, B)) func(A, B) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(x A, y B) {
		a(x, y)
		b(x, y)
	}
}

func (h ConversionHooks) start(ctx ConversionContext) {
	if h.OnStart != nil {
		h.OnStart(ctx)
	}
}

func (h ConversionHooks) converted(ctx ConversionContext, res *convert.Result) {
	if h.OnConverted != nil {
		h.OnConverted(ctx, res)
	}
}

func (h ConversionHooks) failed(ctx ConversionContext, err error) {
	if h.OnFailed != nil {
		h.OnFailed(ctx, err)
	}
}

// LoggingHooks logs each conversion outcome. Payloads are never logged.
func LoggingHooks(logger loggingpkg.ServiceLogger) ConversionHooks {
	return ConversionHooks{
		OnConverted: func(ctx ConversionContext, res *convert.Result) {
			logger.Info("Envelope converted", loggingpkg.LogFields{
				"envelope_id":    ctx.EnvelopeID,
				"correlation_id": ctx.CorrelationID,
				"rows":           res.Rows,
				"duration_ms":    ctx.Duration.Milliseconds(),
			})
		},
		OnFailed: func(ctx ConversionContext, err error) {
			logger.Error("Envelope conversion failed", err, loggingpkg.LogFields{
				"envelope_id":    ctx.EnvelopeID,
				"correlation_id": ctx.CorrelationID,
				"duration_ms":    ctx.Duration.Milliseconds(),
			})
		},
	}
}

// AlertingHooks calls alert for every failed conversion.
func AlertingHooks(alert func(ctx ConversionContext, err error)) ConversionHooks {
	return ConversionHooks{OnFailed: alert}
}
