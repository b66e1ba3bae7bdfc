package resources

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otelog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/trace"
)

func TestSeverityOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level    zerolog.Level
		severity otelog.Severity
		text     string
	}{
		{zerolog.TraceLevel, otelog.SeverityTrace, "TRACE"},
		{zerolog.DebugLevel, otelog.SeverityDebug, "DEBUG"},
		{zerolog.InfoLevel, otelog.SeverityInfo, "INFO"},
		{zerolog.WarnLevel, otelog.SeverityWarn, "WARN"},
		{zerolog.ErrorLevel, otelog.SeverityError, "ERROR"},
		{zerolog.FatalLevel, otelog.SeverityFatal, "FATAL"},
		{zerolog.PanicLevel, otelog.SeverityFatal4, "PANIC"},
		{zerolog.NoLevel, otelog.SeverityInfo, "INFO"},
	}

	for _, tt := range tests {
		severity, text := severityOf(tt.level)
		assert.Equal(t, tt.severity, severity, tt.level.String())
		assert.Equal(t, tt.text, text, tt.level.String())
	}
}

func TestTimestampOf(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 3, 14, 9, 30, 0, 123, time.UTC)

	got := timestampOf(map[string]any{zerolog.TimestampFieldName: ts.Format(time.RFC3339Nano)})
	assert.True(t, ts.Equal(got))

	before := time.Now()
	fallback := timestampOf(map[string]any{zerolog.TimestampFieldName: 42.0})
	assert.False(t, fallback.Before(before))
}

func TestAttributesOf(t *testing.T) {
	t.Parallel()

	kvs := attributesOf(map[string]any{
		"user_id": "user-1",
		"ok":      true,
		"events":  3.0,
		"ratio":   0.5,
		"tags":    []any{"a"},
	})

	got := make(map[string]otelog.Value, len(kvs))
	for _, kv := range kvs {
		got[kv.Key] = kv.Value
	}

	assert.Equal(t, "user-1", got["user_id"].AsString())
	assert.True(t, got["ok"].AsBool())
	assert.Equal(t, int64(3), got["events"].AsInt64())
	assert.InDelta(t, 0.5, got["ratio"].AsFloat64(), 0.0001)
	assert.Equal(t, "[a]", got["tags"].AsString())
}

func TestOTelWriter_AcceptsAnyLine(t *testing.T) {
	t.Parallel()

	w := NewOTelWriter("test")

	line := []byte(`{"level":"warn","time":"2024-03-14T09:30:00Z","message":"calendar source unavailable","source":"google"}`)
	n, err := w.WriteLevel(zerolog.WarnLevel, line)
	assert.NoError(t, err)
	assert.Equal(t, len(line), n)

	n, err = w.Write([]byte("plain text"))
	assert.NoError(t, err)
	assert.Equal(t, len("plain text"), n)
}

func TestContextOf(t *testing.T) {
	t.Parallel()

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x4b, 0xf9, 0x2f, 0x35, 0x77, 0xb3, 0x4d, 0xa6, 0xa3, 0xce, 0x92, 0x9d, 0x0e, 0x0e, 0x47, 0x36},
		SpanID:     trace.SpanID{0x00, 0xf0, 0x67, 0xaa, 0x0b, 0xa9, 0x02, 0xb7},
		TraceFlags: trace.FlagsSampled,
	})

	t.Run("line logged with a span", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer
		logger := zerolog.New(&out).Hook(TraceHook{})
		logger.Warn().Ctx(trace.ContextWithSpanContext(context.Background(), sc)).Str("source", "google").Msg("calendar source unavailable")

		var fields map[string]any
		require.NoError(t, json.Unmarshal(out.Bytes(), &fields))

		got := trace.SpanContextFromContext(contextOf(fields))
		assert.True(t, got.IsValid())
		assert.Equal(t, sc.TraceID(), got.TraceID())
		assert.Equal(t, sc.SpanID(), got.SpanID())
		assert.NotContains(t, fields, "trace_id")
		assert.NotContains(t, fields, "span_id")
		assert.Equal(t, "google", fields["source"])
	})

	t.Run("line logged without a span", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer
		logger := zerolog.New(&out).Hook(TraceHook{})
		logger.Info().Ctx(context.Background()).Msg("schema up to date")

		var fields map[string]any
		require.NoError(t, json.Unmarshal(out.Bytes(), &fields))

		assert.NotContains(t, fields, "trace_id")
		assert.False(t, trace.SpanContextFromContext(contextOf(fields)).IsValid())
	})
}
