package csvflow

import (
	"github.com/drblury/csvflow/internal/convert"
	"github.com/drblury/csvflow/internal/convert/csvparse"
	"github.com/drblury/csvflow/internal/convert/intercept"
	"github.com/drblury/csvflow/internal/convert/record"
	"github.com/drblury/csvflow/internal/convert/schema"
	"github.com/drblury/csvflow/internal/envelope"
	runtimepkg "github.com/drblury/csvflow/internal/runtime"
	configpkg "github.com/drblury/csvflow/internal/runtime/config"
	errspkg "github.com/drblury/csvflow/internal/runtime/errors"
	idspkg "github.com/drblury/csvflow/internal/runtime/ids"
	jsoncodec "github.com/drblury/csvflow/internal/runtime/jsoncodec"
	loggingpkg "github.com/drblury/csvflow/internal/runtime/logging"
	metadatapkg "github.com/drblury/csvflow/internal/runtime/metadata"
	"github.com/drblury/csvflow/transport"
)

type (
	Config              = configpkg.Config
	Normalizer          = configpkg.Normalizer
	Service             = runtimepkg.Service
	ServiceDependencies = runtimepkg.ServiceDependencies

	Envelope = envelope.Envelope
	Item     = envelope.Item

	Converter        = convert.Converter
	ConverterOptions = convert.Options
	JobConfig        = convert.JobConfig
	Result           = convert.Result
	TargetSchema     = convert.TargetSchema
	ConversionError  = convert.ConversionError

	Schema          = schema.Schema
	RecordSchema    = schema.RecordSchema
	RecordShape     = schema.RecordShape
	DataType        = schema.DataType
	FieldDescriptor = schema.FieldDescriptor
	Record          = record.Record

	CSVSettings      = csvparse.Settings
	Interceptor      = intercept.Interceptor
	InterceptorChain = intercept.Chain

	MiddlewareBuilder      = runtimepkg.MiddlewareBuilder
	MiddlewareRegistration = runtimepkg.MiddlewareRegistration
	RetryMiddlewareConfig  = runtimepkg.RetryMiddlewareConfig

	ConversionContext = runtimepkg.ConversionContext
	ConversionHooks   = runtimepkg.ConversionHooks

	Metadata = metadatapkg.Metadata

	LogFields     = loggingpkg.LogFields
	ServiceLogger = loggingpkg.ServiceLogger
	LogFormat     = loggingpkg.Format

	UnprocessableEventError = runtimepkg.UnprocessableEventError
	ConfigValidationError   = errspkg.ConfigValidationError

	HandlerInfo   = runtimepkg.HandlerInfo
	HandlerStats  = runtimepkg.HandlerStats
	StatsSnapshot = runtimepkg.StatsSnapshot

	ErrorClassifier = runtimepkg.ErrorClassifier
	ErrorCategory   = runtimepkg.ErrorCategory

	Transport         = transport.Transport
	TransportBuilder  = transport.Builder
	TransportConfig   = transport.Config
	TransportRegistry = transport.Registry
)

var (
	LoadConfig     = configpkg.Load
	ParseConfig    = configpkg.Parse
	ValidateConfig = configpkg.ValidateConfig

	NewService    = runtimepkg.NewService
	TryNewService = runtimepkg.TryNewService

	NewConverter         = convert.New
	NewConverterFromJSON = convert.NewFromJSON
	NewConverterConfig   = convert.NewFromConfig

	LoadSamples     = envelope.LoadSamples
	ReadSamples     = envelope.ReadSamples
	DecodeEnvelope  = envelope.Decode
	PublishEnvelope = runtimepkg.PublishEnvelope

	NewInterceptorChain = intercept.NewChain
	StripNewlines       = intercept.StripNewlines
	Truncate            = intercept.Truncate
	CSVSettingsFromMap  = csvparse.FromMap

	DefaultMiddlewares      = runtimepkg.DefaultMiddlewares
	CorrelationIDMiddleware = runtimepkg.CorrelationIDMiddleware
	LogMessagesMiddleware   = runtimepkg.LogMessagesMiddleware
	TracerMiddleware        = runtimepkg.TracerMiddleware
	MetricsMiddleware       = runtimepkg.MetricsMiddleware
	RetryMiddleware         = runtimepkg.RetryMiddleware
	PoisonQueueMiddleware   = runtimepkg.PoisonQueueMiddleware
	RecovererMiddleware     = runtimepkg.RecovererMiddleware

	LoggingHooks  = runtimepkg.LoggingHooks
	AlertingHooks = runtimepkg.AlertingHooks

	DefaultTransportRegistry = transport.DefaultRegistry
	RegisterTransport        = transport.Register
	BuildTransport           = transport.Build
	ErrUnknownTransport      = transport.ErrUnknownTransport

	Marshal       = jsoncodec.Marshal
	MarshalIndent = jsoncodec.MarshalIndent
	Unmarshal     = jsoncodec.Unmarshal
	Encode        = jsoncodec.Encode
	Decode        = jsoncodec.Decode

	ErrServiceRequired      = errspkg.ErrServiceRequired
	ErrConfigRequired       = errspkg.ErrConfigRequired
	ErrLoggerRequired       = errspkg.ErrLoggerRequired
	ErrConverterRequired    = errspkg.ErrConverterRequired
	ErrConsumeQueueRequired = errspkg.ErrConsumeQueueRequired
	ErrPublishQueueRequired = errspkg.ErrPublishQueueRequired
	ErrPublisherRequired    = errspkg.ErrPublisherRequired
	ErrSamplesRequired      = errspkg.ErrSamplesRequired
	ErrEnvelopeRequired     = errspkg.ErrEnvelopeRequired

	ErrNotInitialised     = convert.ErrNotInitialised
	ErrAlreadyInitialised = convert.ErrAlreadyInitialised
	ErrNoSamples          = convert.ErrNoSamples

	NewLogger            = loggingpkg.New
	NewSlogServiceLogger = loggingpkg.NewSlogServiceLogger
	DiscardLogger        = loggingpkg.Discard

	NewMetadata = metadatapkg.New
	CreateULID  = idspkg.CreateULID
)

// Metadata keys set on envelopes and conversion results.
const (
	MetadataKeyCorrelationID    = metadatapkg.KeyCorrelationID
	MetadataKeyEnvelopeID       = metadatapkg.KeyEnvelopeID
	MetadataKeyEnvelopePosition = metadatapkg.KeyEnvelopePosition
	MetadataKeyEnvelopeTopic    = metadatapkg.KeyEnvelopeTopic
	MetadataKeyContentType      = metadatapkg.KeyContentType
	MetadataKeyRows             = metadatapkg.KeyRows
	MetadataKeySchemaNamespace  = metadatapkg.KeySchemaNamespace
)

// ItemEntry names the envelope item holding the CSV payload.
const ItemEntry = envelope.ItemEntry

const (
	OutputJSON     = configpkg.OutputJSON
	OutputProtobuf = configpkg.OutputProtobuf

	ContentTypeJSON     = runtimepkg.ContentTypeJSON
	ContentTypeProtobuf = runtimepkg.ContentTypeProtobuf

	LogFormatText = loggingpkg.FormatText
	LogFormatJSON = loggingpkg.FormatJSON
)

// Error category constants for ErrorClassifier.
const (
	ErrorCategoryNone       = runtimepkg.ErrorCategoryNone
	ErrorCategoryValidation = runtimepkg.ErrorCategoryValidation
	ErrorCategoryTransport  = runtimepkg.ErrorCategoryTransport
	ErrorCategoryDownstream = runtimepkg.ErrorCategoryDownstream
	ErrorCategoryOther      = runtimepkg.ErrorCategoryOther
)
