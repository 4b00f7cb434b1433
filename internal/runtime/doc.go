/*
Package runtime hosts the csvflow converter on a Watermill router.

# Architecture Overview

A Service consumes envelopes from one queue, converts the CSV entry of each
envelope with an initialised convert.Converter and publishes the result
record to a second queue. The transport is chosen by name from the
transport registry; everything else is wired around the single converter
handler.

# Package Structure

## Core Service (service.go)

The Service struct wires together:
  - Message router (Watermill) with the signals plugin
  - Publisher and subscriber from the configured transport
  - Middleware chain
  - HTTP servers for /metrics and introspection
  - The converter, initialised from sample envelopes at construction

## Converter Handler (handler.go)

Decodes the envelope, converts it and encodes the result as JSON or as a
protobuf Struct. Envelope headers and the correlation ID are copied onto the
result. Input that can never convert becomes an UnprocessableEventError;
interceptor failures and cancelled contexts are returned as is so the retry
middleware picks them up.

## Middleware (middleware.go)

  - CorrelationID: Ensures message traceability
  - LogMessages: Debug logging of envelope headers, never payloads
  - Tracer: OpenTelemetry distributed tracing
  - Metrics: Watermill router metrics for Prometheus
  - Retry: Exponential backoff, skipping validation errors
  - PoisonQueue: Forwards validation errors to the poison queue
  - Recoverer: Panic recovery

## Hooks and metrics (hooks.go, metrics.go)

ConversionHooks observe the start and outcome of every conversion.
ConversionMetrics counts envelopes by outcome and rows per topic.

## Stats & Monitoring (models.go, resources.go, introspection.go)

  - Latency percentiles (p50, p95, p99)
  - Rows converted and error categorization
  - Resource usage sampling
  - /schema, /handlers and /healthz on the metrics port

## Publishing (publisher.go)

PublishEnvelope and Service.SubmitEnvelope feed envelopes into the consume
queue.

# Sub-packages

  - config/: Service configuration with validation
  - errors/: Sentinel errors and error types
  - ids/: ULID generation for message IDs
  - jsoncodec/: JSON marshaling utilities
  - logging/: Logger interface and adapters
  - metadata/: Message metadata utilities

# Usage Example

	cfg, err := config.Load("csvflow.yaml")
	if err != nil {
		return err
	}
	svc, err := runtime.TryNewService(ctx, cfg, logger, runtime.ServiceDependencies{
		Hooks: runtime.LoggingHooks(logger),
	})
	if err != nil {
		return err
	}
	defer svc.Close()
	return svc.Start(ctx)
*/
package runtime
