package runtime

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/drblury/csvflow/internal/runtime/jsoncodec"
)

const latencySampleSize = 256

// UnprocessableEventError marks an envelope that can never be converted.
// Retries are skipped and the message goes to the poison queue.
type UnprocessableEventError struct {
	EnvelopeID string
	Err        error
}

func (e *UnprocessableEventError) Error() string {
	return fmt.Sprintf("unprocessable envelope %s: %v", e.EnvelopeID, e.Err)
}

func (e *UnprocessableEventError) Unwrap() error {
	return e.Err
}

// HandlerStats aggregates per-handler processing figures served at /stats.
type HandlerStats struct {
	mu sync.Mutex

	MessagesProcessed   uint64    `json:"messages_processed"`
	MessagesFailed      uint64    `json:"messages_failed"`
	RowsConverted       uint64    `json:"rows_converted"`
	TotalProcessingTime int64     `json:"total_processing_time_ns"`
	LastProcessedAt     time.Time `json:"last_processed_at"`

	Latency  LatencyMetrics `json:"latency"`
	Errors   ErrorBreakdown `json:"errors"`
	Resource ResourceUsage  `json:"resource"`

	latencyWindow   *latencyWindow
	resourceSampler *resourceTracker
}

type HandlerInfo struct {
	Name         string        `json:"name"`
	ConsumeQueue string        `json:"consume_queue"`
	PublishQueue string        `json:"publish_queue"`
	Stats        *HandlerStats `json:"stats"`
}

type LatencyMetrics struct {
	AverageNs  int64 `json:"average_ns"`
	P50Ns      int64 `json:"p50_ns"`
	P95Ns      int64 `json:"p95_ns"`
	P99Ns      int64 `json:"p99_ns"`
	LastNs     int64 `json:"last_ns"`
	SampleSize int   `json:"sample_size"`
}

type ErrorBreakdown struct {
	Validation uint64 `json:"validation"`
	Transport  uint64 `json:"transport"`
	Downstream uint64 `json:"downstream"`
	Other      uint64 `json:"other"`
	LastError  string `json:"last_error,omitempty"`
}

type ResourceUsage struct {
	CPUPercent  float64 `json:"cpu_percent"`
	MemoryBytes uint64  `json:"memory_bytes"`
	Goroutines  int     `json:"goroutines"`
}

type ErrorCategory string

const (
	ErrorCategoryNone       ErrorCategory = "none"
	ErrorCategoryValidation ErrorCategory = "validation"
	ErrorCategoryTransport  ErrorCategory = "transport"
	ErrorCategoryDownstream ErrorCategory = "downstream"
	ErrorCategoryOther      ErrorCategory = "other"
)

// ErrorClassifier maps handler errors to a category. Validation errors are
// never retried.
type ErrorClassifier func(error) ErrorCategory

func newHandlerStats(sampler *resourceTracker) *HandlerStats {
	return &HandlerStats{
		latencyWindow:   newLatencyWindow(latencySampleSize),
		resourceSampler: sampler,
	}
}

func (h *HandlerStats) record(duration time.Duration, rows int, err error, classifier ErrorClassifier) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.MessagesProcessed++
	if err != nil {
		h.MessagesFailed++
	} else if rows > 0 {
		h.RowsConverted += uint64(rows)
	}
	h.TotalProcessingTime += int64(duration)
	h.LastProcessedAt = time.Now().UTC()

	h.latencyWindow.Add(duration)
	h.Latency = h.latencyWindow.Snapshot()
	h.Latency.AverageNs = h.TotalProcessingTime / int64(h.MessagesProcessed)

	if classifier == nil {
		classifier = defaultErrorClassifier
	}
	h.Errors.Record(classifier(err), err)

	if h.resourceSampler != nil {
		h.Resource = h.resourceSampler.Snapshot()
	}
}

// StatsSnapshot is a point-in-time copy of HandlerStats.
type StatsSnapshot struct {
	MessagesProcessed   uint64         `json:"messages_processed"`
	MessagesFailed      uint64         `json:"messages_failed"`
	RowsConverted       uint64         `json:"rows_converted"`
	TotalProcessingTime int64          `json:"total_processing_time_ns"`
	LastProcessedAt     time.Time      `json:"last_processed_at"`
	Latency             LatencyMetrics `json:"latency"`
	Errors              ErrorBreakdown `json:"errors"`
	Resource            ResourceUsage  `json:"resource"`
}

func (h *HandlerStats) Snapshot() StatsSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return StatsSnapshot{
		MessagesProcessed:   h.MessagesProcessed,
		MessagesFailed:      h.MessagesFailed,
		RowsConverted:       h.RowsConverted,
		TotalProcessingTime: h.TotalProcessingTime,
		LastProcessedAt:     h.LastProcessedAt,
		Latency:             h.Latency,
		Errors:              h.Errors,
		Resource:            h.Resource,
	}
}

func (h *HandlerStats) MarshalJSON() ([]byte, error) {
	return jsoncodec.Marshal(h.Snapshot())
}

func (e *ErrorBreakdown) Record(category ErrorCategory, err error) {
	switch category {
	case ErrorCategoryNone:
		if err == nil {
			return
		}
		e.Other++
	case ErrorCategoryValidation:
		e.Validation++
	case ErrorCategoryTransport:
		e.Transport++
	case ErrorCategoryDownstream:
		e.Downstream++
	default:
		e.Other++
	}
	if err != nil {
		e.LastError = err.Error()
	}
}

// latencyWindow is a ring buffer of the most recent handler durations.
type latencyWindow struct {
	samples []int64
	next    int
	filled  int
	last    int64
}

func newLatencyWindow(size int) *latencyWindow {
	if size <= 0 {
		size = latencySampleSize
	}
	return &latencyWindow{samples: make([]int64, size)}
}

func (lw *latencyWindow) Add(d time.Duration) {
	lw.samples[lw.next] = int64(d)
	lw.last = int64(d)
	lw.next = (lw.next + 1) % len(lw.samples)
	if lw.filled < len(lw.samples) {
		lw.filled++
	}
}

func (lw *latencyWindow) Snapshot() LatencyMetrics {
	metrics := LatencyMetrics{LastNs: lw.last}
	if lw.filled == 0 {
		return metrics
	}
	sorted := slices.Clone(lw.samples[:lw.filled])
	slices.Sort(sorted)

	metrics.SampleSize = lw.filled
	metrics.P50Ns = percentile(sorted, 0.50)
	metrics.P95Ns = percentile(sorted, 0.95)
	metrics.P99Ns = percentile(sorted, 0.99)
	return metrics
}

func percentile(sorted []int64, quantile float64) int64 {
	if len(sorted) == 0 {
		return 0
	}
	if quantile <= 0 {
		return sorted[0]
	}
	if quantile >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := quantile * float64(len(sorted)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return sorted[lower]
	}
	frac := pos - float64(lower)
	return sorted[lower] + int64(float64(sorted[upper]-sorted[lower])*frac)
}

func defaultErrorClassifier(err error) ErrorCategory {
	if err == nil {
		return ErrorCategoryNone
	}
	var unprocessable *UnprocessableEventError
	if errors.As(err, &unprocessable) {
		return ErrorCategoryValidation
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrorCategoryDownstream
	}
	return ErrorCategoryOther
}
