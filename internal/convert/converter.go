// Package convert hosts the CSV converter: a target schema derived once from
// sample envelopes, then applied to every envelope that follows.
package convert

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/drblury/csvflow/internal/convert/csvparse"
	"github.com/drblury/csvflow/internal/convert/intercept"
	"github.com/drblury/csvflow/internal/convert/record"
	"github.com/drblury/csvflow/internal/convert/schema"
	"github.com/drblury/csvflow/internal/envelope"
	configpkg "github.com/drblury/csvflow/internal/runtime/config"
	"github.com/drblury/csvflow/internal/runtime/jsoncodec"
	loggingpkg "github.com/drblury/csvflow/internal/runtime/logging"
)

const tracerName = "github.com/drblury/csvflow/internal/convert"

// Options configures a Converter. Zero values select comma-delimited input,
// an empty interceptor chain and a discarding logger.
type Options struct {
	// Topic overrides the topic of the first sample in the schema namespace.
	Topic        string
	Settings     csvparse.Settings
	Interceptors *intercept.Chain
	Logger       loggingpkg.ServiceLogger
	Tracer       trace.Tracer
}

type state struct {
	topic  string
	schema *schema.Schema
	target *TargetSchema
}

// Converter converts envelopes carrying delimited text. Init must succeed
// once before Convert is used; afterwards Convert is safe for concurrent use.
type Converter struct {
	topic    string
	settings csvparse.Settings
	chain    *intercept.Chain
	logger   loggingpkg.ServiceLogger
	tracer   trace.Tracer

	initMu sync.Mutex
	state  atomic.Pointer[state]
}

// New builds an uninitialised converter.
func New(opts Options) *Converter {
	settings := opts.Settings
	if settings.Delimiter == 0 {
		settings.Delimiter = csvparse.DefaultSettings().Delimiter
	}
	logger := opts.Logger
	if logger == nil {
		logger = loggingpkg.Discard()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &Converter{
		topic:    strings.TrimSpace(opts.Topic),
		settings: settings,
		chain:    opts.Interceptors,
		logger:   logger.With(loggingpkg.LogFields{"component": "csv_converter"}),
		tracer:   tracer,
	}
}

// NewFromConfig builds a converter from service configuration. Configured
// normalizers run before the extra interceptors.
func NewFromConfig(cfg *configpkg.Config, logger loggingpkg.ServiceLogger, extra ...intercept.Interceptor) (*Converter, error) {
	if cfg == nil {
		return nil, errors.New("convert: config is required")
	}
	settings, err := cfg.ParserSettings()
	if err != nil {
		return nil, err
	}
	chain, err := intercept.FromConfig(cfg.Normalizers)
	if err != nil {
		return nil, err
	}
	chain.Register(extra...)
	return New(Options{
		Topic:        cfg.Topic,
		Settings:     settings,
		Interceptors: chain,
		Logger:       logger,
	}), nil
}

// JobConfig is the per-job converter configuration document.
type JobConfig struct {
	Topic       string                 `json:"topic,omitempty"`
	CSVSettings map[string]any         `json:"csv-settings,omitempty"`
	Normalizers []intercept.Normalizer `json:"normalizers,omitempty"`
}

// NewFromJSON builds a converter from a JSON job configuration. Empty input
// selects the defaults.
func NewFromJSON(raw []byte, logger loggingpkg.ServiceLogger, extra ...intercept.Interceptor) (*Converter, error) {
	var job JobConfig
	if len(strings.TrimSpace(string(raw))) > 0 {
		if err := jsoncodec.Unmarshal(raw, &job); err != nil {
			return nil, fmt.Errorf("convert: invalid job config: %w", err)
		}
	}
	return NewFromConfig(&configpkg.Config{
		Topic:       job.Topic,
		CSVSettings: job.CSVSettings,
		Normalizers: job.Normalizers,
	}, logger, extra...)
}

// Init derives the target schema from the first sample envelope. It succeeds
// at most once.
func (c *Converter) Init(samples []*envelope.Envelope) error {
	c.initMu.Lock()
	defer c.initMu.Unlock()

	if c.state.Load() != nil {
		return ErrAlreadyInitialised
	}
	if len(samples) == 0 || samples[0] == nil {
		return ErrNoSamples
	}

	sample := samples[0]
	c.logger.Info("Determining target schema", loggingpkg.LogFields{"sample": sample.PosAndID()})

	meta, err := sample.ItemMetadata(envelope.ItemEntry)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNoItemMetadata, err)
	}
	if meta == nil {
		return fmt.Errorf("%w (item %q in sample %s)", ErrNoItemMetadata, envelope.ItemEntry, sample.PosAndID())
	}
	derived, err := schema.DeriveFromItemMetadata(meta)
	if err != nil {
		return err
	}

	topic := c.topic
	if topic == "" {
		topic = strings.TrimSpace(sample.Topic)
	}
	if topic == "" {
		topic = configpkg.DefaultTopic
	}

	st := &state{
		topic:  topic,
		schema: derived,
		target: &TargetSchema{Namespace: Namespace(topic), Data: derived.Target()},
	}
	c.state.Store(st)

	c.logger.Info("Target schema derived", loggingpkg.LogFields{
		"columns":   derived.Headers(),
		"shape":     derived.Shape.String(),
		"namespace": st.target.Namespace,
	})
	return nil
}

// Initialised reports whether Init has succeeded.
func (c *Converter) Initialised() bool {
	return c.state.Load() != nil
}

// Schema returns the derived schema triple.
func (c *Converter) Schema() (*schema.Schema, error) {
	st := c.state.Load()
	if st == nil {
		return nil, ErrNotInitialised
	}
	return st.schema, nil
}

// TargetSchema returns the aggregate schema of every Result.
func (c *Converter) TargetSchema() (*TargetSchema, error) {
	st := c.state.Load()
	if st == nil {
		return nil, ErrNotInitialised
	}
	return st.target, nil
}

// Topic returns the topic the target namespace was derived from, or "" before
// Init.
func (c *Converter) Topic() string {
	st := c.state.Load()
	if st == nil {
		return ""
	}
	return st.topic
}

// Headers returns the data column names in schema order.
func (c *Converter) Headers() []string {
	st := c.state.Load()
	if st == nil {
		return nil
	}
	return st.schema.Headers()
}

// Convert parses and assembles the CSV entry of env. Every failure is a
// *ConversionError.
func (c *Converter) Convert(ctx context.Context, env *envelope.Envelope) (result *Result, err error) {
	st := c.state.Load()
	if st == nil {
		return nil, ErrNotInitialised
	}
	if env == nil {
		return nil, &ConversionError{Err: errors.New("envelope is nil")}
	}

	_, span := c.tracer.Start(ctx, "csvflow.Convert", trace.WithAttributes(
		attribute.String("envelope.id", env.ID),
		attribute.String("envelope.position", env.Position),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(attribute.Int("csvflow.rows", result.Rows))
		}
		span.End()
	}()

	fail := func(cause error) error {
		return &ConversionError{EnvelopeID: env.ID, Position: env.Position, Err: cause}
	}

	data, err := env.Data(envelope.ItemEntry)
	if err != nil {
		return nil, fail(err)
	}
	items, err := csvparse.Collect(csvparse.Parse(data, st.schema.Item, c.settings, c.chain))
	if err != nil {
		return nil, fail(err)
	}
	rec, err := record.Assemble(items, st.schema)
	if err != nil {
		return nil, fail(err)
	}

	c.logger.Debug("Converted envelope", loggingpkg.LogFields{
		"envelope": env.PosAndID(),
		"rows":     len(items),
	})

	return &Result{
		EnvelopeID: env.ID,
		Position:   env.Position,
		Schema:     st.target,
		Manifest:   collectorManifest(env.Manifest),
		Data:       rec,
		Rows:       len(items),
	}, nil
}
