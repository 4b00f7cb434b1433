package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatermillServiceLoggerDelegates(t *testing.T) {
	base := newRecordingWatermillLogger()
	logger := NewWatermillServiceLogger(base)

	logger.Debug("dbg", LogFields{"component": "parser"})
	logger.Info("info", nil)
	logger.Trace("trace", LogFields{"trace": true})
	logger.Error("oops", errors.New("boom"), LogFields{"failed": true})

	child := logger.With(LogFields{"envelope_id": "env-1"})
	child.Info("child_info", nil)

	require.Len(t, *base.sink, 6)
	entries := *base.sink
	assert.Equal(t, "debug", entries[0].level)
	assert.Equal(t, "parser", entries[0].fields["component"])
	assert.Equal(t, "with", entries[4].level)
	assert.Equal(t, "env-1", entries[4].fields["envelope_id"])
}

func TestWatermillServiceLoggerWithNoFieldsReturnsSelf(t *testing.T) {
	logger := NewWatermillServiceLogger(newRecordingWatermillLogger())
	assert.Same(t, logger, logger.With(nil))
}

func TestConstructorsPanicOnNil(t *testing.T) {
	assert.Panics(t, func() { NewWatermillServiceLogger(nil) })
	assert.Panics(t, func() { NewSlogServiceLogger(nil) })
	assert.Panics(t, func() { NewWatermillAdapter(nil) })
}

func TestWatermillAdapterDelegates(t *testing.T) {
	base := &recordingServiceLogger{}
	adapter := NewWatermillAdapter(base)

	adapter.Debug("dbg", watermill.LogFields{"k": "v"})
	adapter.Info("info", nil)
	adapter.Trace("trace", nil)
	adapter.Error("err", errors.New("boom"), nil)

	child := adapter.With(watermill.LogFields{"child": "yes"})
	typedChild, ok := child.(*serviceLoggerAdapter)
	require.True(t, ok)
	childBase, ok := typedChild.base.(*recordingServiceLogger)
	require.True(t, ok)
	child.Info("child_info", nil)

	assert.Len(t, base.entries, 4)
	require.Len(t, childBase.entries, 2)
	assert.Equal(t, "yes", childBase.entries[0].fields["child"])
}

func TestWatermillFieldConversions(t *testing.T) {
	assert.Nil(t, toWatermillFields(nil))
	assert.Nil(t, fromWatermillFields(nil))

	wm := toWatermillFields(LogFields{"a": 1})
	assert.Equal(t, 1, wm["a"])
	assert.Equal(t, 1, fromWatermillFields(wm)["a"])
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewWritesStructuredOutput(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "info", FormatJSON)
	require.NoError(t, err)

	logger.Debug("hidden", nil)
	logger.Info("schema derived", LogFields{"shape": "collection"})

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"schema derived"`)
	assert.Contains(t, out, `"shape":"collection"`)

	_, err = New(&buf, "info", "xml")
	assert.Error(t, err)
}

func TestDiscard(t *testing.T) {
	assert.NotPanics(t, func() {
		Discard().With(LogFields{"a": 1}).Error("ignored", errors.New("x"), nil)
	})
}

type watermillEntry struct {
	level  string
	fields watermill.LogFields
	err    error
}

type recordingWatermillLogger struct {
	sink *[]watermillEntry
}

func newRecordingWatermillLogger() *recordingWatermillLogger {
	return &recordingWatermillLogger{sink: &[]watermillEntry{}}
}

func (r *recordingWatermillLogger) record(entry watermillEntry) {
	*r.sink = append(*r.sink, entry)
}

func (r *recordingWatermillLogger) Error(_ string, err error, fields watermill.LogFields) {
	r.record(watermillEntry{level: "error", fields: fields, err: err})
}

func (r *recordingWatermillLogger) Info(_ string, fields watermill.LogFields) {
	r.record(watermillEntry{level: "info", fields: fields})
}

func (r *recordingWatermillLogger) Debug(_ string, fields watermill.LogFields) {
	r.record(watermillEntry{level: "debug", fields: fields})
}

func (r *recordingWatermillLogger) Trace(_ string, fields watermill.LogFields) {
	r.record(watermillEntry{level: "trace", fields: fields})
}

func (r *recordingWatermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	child := &recordingWatermillLogger{sink: r.sink}
	child.record(watermillEntry{level: "with", fields: fields})
	return child
}

type loggedEntry struct {
	level  string
	msg    string
	fields LogFields
	err    error
}

type recordingServiceLogger struct {
	entries []loggedEntry
}

func (r *recordingServiceLogger) With(fields LogFields) ServiceLogger {
	return &recordingServiceLogger{entries: []loggedEntry{{level: "with", fields: fields}}}
}

func (r *recordingServiceLogger) Debug(msg string, fields LogFields) {
	r.entries = append(r.entries, loggedEntry{level: "debug", msg: msg, fields: fields})
}

func (r *recordingServiceLogger) Info(msg string, fields LogFields) {
	r.entries = append(r.entries, loggedEntry{level: "info", msg: msg, fields: fields})
}

func (r *recordingServiceLogger) Error(msg string, err error, fields LogFields) {
	r.entries = append(r.entries, loggedEntry{level: "error", msg: msg, fields: fields, err: err})
}

func (r *recordingServiceLogger) Trace(msg string, fields LogFields) {
	r.entries = append(r.entries, loggedEntry{level: "trace", msg: msg, fields: fields})
}
