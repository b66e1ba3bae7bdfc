package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	otelog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/trace"
)

const (
	traceIdField = "trace_id"
	spanIdField  = "span_id"
)

var (
	_ zerolog.Hook        = TraceHook{}
	_ zerolog.LevelWriter = (*OTelWriter)(nil)
)

// TraceHook stamps trace_id and span_id on events that carry a context
// (zerolog.Event.Ctx) with an active span. OTelWriter turns them back into
// the record's trace context.
type TraceHook struct{}

func (TraceHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	ctx := e.GetCtx()
	if ctx == nil {
		return
	}

	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return
	}

	e.Str(traceIdField, sc.TraceID().String()).Str(spanIdField, sc.SpanID().String())
}

// OTelWriter forwards every JSON log line to the global OTel logger provider.
// Combine it with the stdout writer through zerolog.MultiLevelWriter.
type OTelWriter struct {
	logger otelog.Logger
}

func NewOTelWriter(name string) *OTelWriter {
	return &OTelWriter{logger: global.GetLoggerProvider().Logger(name)}
}

func (w *OTelWriter) Write(p []byte) (int, error) {
	return w.WriteLevel(zerolog.NoLevel, p)
}

func (w *OTelWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	var fields map[string]any

	err := json.Unmarshal(p, &fields)
	if err != nil {
		// not a JSON line, export it verbatim
		fields = map[string]any{zerolog.MessageFieldName: string(p)}
	}

	var rec otelog.Record

	severity, text := severityOf(level)
	rec.SetSeverity(severity)
	rec.SetSeverityText(text)
	rec.SetTimestamp(timestampOf(fields))
	rec.SetObservedTimestamp(time.Now())

	if msg, ok := fields[zerolog.MessageFieldName].(string); ok {
		rec.SetBody(otelog.StringValue(msg))
	}

	delete(fields, zerolog.MessageFieldName)
	delete(fields, zerolog.LevelFieldName)
	delete(fields, zerolog.TimestampFieldName)

	ctx := contextOf(fields)

	rec.AddAttributes(attributesOf(fields)...)

	w.logger.Emit(ctx, rec)

	return len(p), nil
}

// contextOf rebuilds the span context TraceHook stamped on the line, so the
// exported record correlates with its trace. The id fields are consumed.
func contextOf(fields map[string]any) context.Context {
	traceHex, _ := fields[traceIdField].(string)
	spanHex, _ := fields[spanIdField].(string)

	delete(fields, traceIdField)
	delete(fields, spanIdField)

	traceId, err := trace.TraceIDFromHex(traceHex)
	if err != nil {
		return context.Background()
	}

	spanId, err := trace.SpanIDFromHex(spanHex)
	if err != nil {
		return context.Background()
	}

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceId,
		SpanID:     spanId,
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	})

	return trace.ContextWithSpanContext(context.Background(), sc)
}

func severityOf(level zerolog.Level) (otelog.Severity, string) {
	switch level {
	case zerolog.TraceLevel:
		return otelog.SeverityTrace, "TRACE"
	case zerolog.DebugLevel:
		return otelog.SeverityDebug, "DEBUG"
	case zerolog.WarnLevel:
		return otelog.SeverityWarn, "WARN"
	case zerolog.ErrorLevel:
		return otelog.SeverityError, "ERROR"
	case zerolog.FatalLevel:
		return otelog.SeverityFatal, "FATAL"
	case zerolog.PanicLevel:
		return otelog.SeverityFatal4, "PANIC"
	default:
		return otelog.SeverityInfo, "INFO"
	}
}

func timestampOf(fields map[string]any) time.Time {
	s, ok := fields[zerolog.TimestampFieldName].(string)
	if !ok {
		return time.Now()
	}

	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Now()
	}

	return ts
}

func attributesOf(fields map[string]any) []otelog.KeyValue {
	kvs := make([]otelog.KeyValue, 0, len(fields))

	for k, v := range fields {
		switch x := v.(type) {
		case string:
			kvs = append(kvs, otelog.String(k, x))
		case bool:
			kvs = append(kvs, otelog.Bool(k, x))
		case float64:
			if x == float64(int64(x)) {
				kvs = append(kvs, otelog.Int64(k, int64(x)))
			} else {
				kvs = append(kvs, otelog.Float64(k, x))
			}
		default:
			kvs = append(kvs, otelog.String(k, fmt.Sprintf("%v", x)))
		}
	}

	return kvs
}
