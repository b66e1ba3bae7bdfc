package core

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// EventSource fetches events of one provider and translates them to CalendarEvent.
type EventSource interface {
	Source() Source
	GetEvents(ctx context.Context, userId string, start, end time.Time) ([]CalendarEvent, error)
}

type SourceWarning struct {
	Source  Source `json:"source"`
	Message string `json:"message"`
}

type FetchResult struct {
	Events   []CalendarEvent `json:"events"`
	Warnings []SourceWarning `json:"warnings,omitempty"`
}

type Aggregator struct {
	tracer  trace.Tracer
	metrics *SourceMetrics
	timeout time.Duration
	sources []EventSource
}

func NewAggregator(timeout time.Duration, sources ...EventSource) *Aggregator {
	return &Aggregator{
		tracer:  otel.GetTracerProvider().Tracer("lemur-calendar/core"),
		metrics: NewSourceMetrics(),
		timeout: timeout,
		sources: sources,
	}
}

// Fetch queries every source in parallel. A source that fails or times out
// contributes a warning instead of events; Fetch itself never fails.
func (a *Aggregator) Fetch(ctx context.Context, userId string, start, end time.Time) FetchResult {
	ctx, span := a.tracer.Start(ctx, "aggregator.Fetch")
	defer span.End()

	var (
		mu     sync.Mutex
		group  errgroup.Group
		result = FetchResult{Events: []CalendarEvent{}}
	)

	for _, source := range a.sources {
		group.Go(func() error {
			events, err := a.fetchOne(ctx, source, userId, start, end)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				log.Ctx(ctx).Warn().Ctx(ctx).Err(err).Str("source", string(source.Source())).Str("user_id", userId).Msg("calendar source unavailable")
				result.Warnings = append(result.Warnings, SourceWarning{Source: source.Source(), Message: err.Error()})

				return nil
			}

			result.Events = append(result.Events, events...)

			return nil
		})
	}

	_ = group.Wait()

	return result
}

func (a *Aggregator) fetchOne(ctx context.Context, source EventSource, userId string, start, end time.Time) ([]CalendarEvent, error) {
	begin := time.Now()

	var err error

	defer func() { a.metrics.Observe(ctx, source.Source(), begin, err) }()

	ctx, span := a.tracer.Start(ctx, "aggregator.fetch."+string(source.Source()))
	defer span.End()

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)

		defer cancel()
	}

	events, err := source.GetEvents(ctx, userId, start, end)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return nil, err
	}

	span.SetAttributes(attribute.Int("calendar.events", len(events)))

	return events, nil
}

/*

 */

type SourceMetrics struct {
	fTotal   metric.Int64Counter
	fErrors  metric.Int64Counter
	fLatency metric.Float64Histogram
}

func NewSourceMetrics() *SourceMetrics {
	meter := otel.Meter("lemur-calendar/sources")

	fTotal, _ := meter.Int64Counter("calendar.source.fetch.total")
	fErrors, _ := meter.Int64Counter("calendar.source.fetch.errors.total")
	fLatency, _ := meter.Float64Histogram("calendar.source.fetch.duration.ms")

	return &SourceMetrics{fTotal: fTotal, fErrors: fErrors, fLatency: fLatency}
}

func (m *SourceMetrics) Observe(ctx context.Context, source Source, start time.Time, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("calendar.source", string(source)),
	}

	m.fTotal.Add(ctx, 1, metric.WithAttributes(attrs...))

	ms := float64(time.Since(start).Milliseconds())
	m.fLatency.Record(ctx, ms, metric.WithAttributes(attrs...))

	if err != nil {
		m.fErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}
