// Package csvflow converts delimited-text envelopes into typed records and
// hosts the converter on a Watermill router.
//
// A converter is initialised once from sample envelopes: the column metadata
// of the first sample's entry item yields the item schema, the record shape
// (single record or collection) and the target schema namespace
// csvflow.rawdata.<topic>. Every envelope consumed afterwards is parsed row by
// row, each cell is passed through the interceptor chain and coerced to its
// column type, and the rows are assembled into one result record carrying the
// envelope manifest.
//
// Service reads the transport (Go channels, Kafka, RabbitMQ, NATS, HTTP, AWS
// SNS/SQS or I/O) from Config, subscribes to Config.ConsumeQueue and publishes
// results as JSON or protobuf Struct payloads to Config.PublishQueue. A
// minimal setup loads a Config, creates a Service with sample envelopes and
// calls Start; see examples/csv for a complete program.
//
// # Failure handling
//
// Envelopes that can never convert (malformed JSON, rows with too many
// fields, values that do not coerce, a collection rule violation) are
// reported as UnprocessableEventError, skip the retry middleware and are
// forwarded to Config.PoisonQueue. Interceptor failures and cancelled
// contexts are retried with exponential backoff.
//
// # Middleware
//
// The default middleware chain adds correlation IDs, debug logging of
// envelope headers, OpenTelemetry tracing, Prometheus metrics, retries,
// poison queue forwarding and panic recovery. Custom middleware can be added
// via ServiceDependencies.Middlewares, and ConversionHooks observe every
// conversion outcome.
package csvflow
