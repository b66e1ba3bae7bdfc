package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"lemur-calendar/pkg/resources"
)

const eventColumns = "id, user_id, title, description, start_time, end_time, attendees, meeting_link, created_at"

type Repository interface {
	EventSource
	SaveEvent(ctx context.Context, event *Event) (*Event, error)
	GetEventById(ctx context.Context, id string) (*Event, error)
	UpdateEvent(ctx context.Context, id string, event *Event) (*Event, error)
	DeleteEvent(ctx context.Context, id string) error
}

type repository struct {
	tracer  trace.Tracer
	metrics *DBMetrics
	pool    resources.DBInstance
}

func NewRepository(pool resources.DBInstance) Repository {
	return &repository{
		tracer:  otel.GetTracerProvider().Tracer("lemur-calendar/core"),
		metrics: NewDBMetrics(),
		pool:    pool,
	}
}

func (r *repository) Source() Source {
	return SourceLocal
}

func (r *repository) SaveEvent(ctx context.Context, event *Event) (*Event, error) {
	start := time.Now()

	var err error

	defer func() { r.metrics.Observe(ctx, "save_event", start, err) }()

	ctx, span := r.tracer.Start(ctx, "repository.SaveEvent")
	defer span.End()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	var savedEvent Event

	err = scanEvent(tx.QueryRow(ctx,
		"INSERT INTO events (user_id, title, description, start_time, end_time, attendees, meeting_link) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7) "+
			"RETURNING "+eventColumns,
		event.UserId, event.Title, event.Description, event.StartTime, event.EndTime, attendeesOrEmpty(event.Attendees), event.MeetingLink),
		&savedEvent)
	if err != nil {
		_ = tx.Rollback(ctx)
		return nil, fmt.Errorf("failed to insert event: %w", err)
	}

	err = tx.Commit(ctx)
	if err != nil {
		_ = tx.Rollback(ctx)
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &savedEvent, nil
}

func (r *repository) GetEventById(ctx context.Context, id string) (*Event, error) {
	start := time.Now()

	var err error

	defer func() { r.metrics.Observe(ctx, "get_event_by_id", start, err) }()

	ctx, span := r.tracer.Start(ctx, "repository.GetEventById")
	defer span.End()

	var e Event

	err = scanEvent(r.pool.QueryRow(
		ctx,
		`SELECT `+eventColumns+`
		 FROM events
		 WHERE id = $1`,
		id,
	), &e)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrEventNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get event by id: %w", err)
	}

	return &e, nil
}

func (r *repository) UpdateEvent(ctx context.Context, id string, event *Event) (*Event, error) {
	start := time.Now()

	var err error

	defer func() { r.metrics.Observe(ctx, "update_event", start, err) }()

	ctx, span := r.tracer.Start(ctx, "repository.UpdateEvent")
	defer span.End()

	var e Event

	err = scanEvent(r.pool.QueryRow(ctx,
		"UPDATE events SET title = $2, description = $3, start_time = $4, end_time = $5, attendees = $6, meeting_link = $7 "+
			"WHERE id = $1 "+
			"RETURNING "+eventColumns,
		id, event.Title, event.Description, event.StartTime, event.EndTime, attendeesOrEmpty(event.Attendees), event.MeetingLink),
		&e)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrEventNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}

	return &e, nil
}

func (r *repository) DeleteEvent(ctx context.Context, id string) error {
	start := time.Now()

	var err error

	defer func() { r.metrics.Observe(ctx, "delete_event", start, err) }()

	ctx, span := r.tracer.Start(ctx, "repository.DeleteEvent")
	defer span.End()

	tag, err := r.pool.Exec(ctx, "DELETE FROM events WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrEventNotFound
	}

	return nil
}

// GetEvents returns the user's local events starting in [start, end).
func (r *repository) GetEvents(ctx context.Context, userId string, start, end time.Time) ([]CalendarEvent, error) {
	begin := time.Now()

	var err error

	defer func() { r.metrics.Observe(ctx, "list_events", begin, err) }()

	ctx, span := r.tracer.Start(ctx, "repository.GetEvents")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT `+eventColumns+`
		 FROM events
		 WHERE user_id = $1 AND start_time >= $2 AND start_time < $3
		 ORDER BY start_time`,
		userId, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	events := make([]CalendarEvent, 0)

	for rows.Next() {
		var e Event

		err = scanEvent(rows, &e)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}

		events = append(events, e.ToCalendarEvent())
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}

	return events, nil
}

func scanEvent(row pgx.Row, e *Event) error {
	return row.Scan(
		&e.Id,
		&e.UserId,
		&e.Title,
		&e.Description,
		&e.StartTime,
		&e.EndTime,
		&e.Attendees,
		&e.MeetingLink,
		&e.CreatedAt,
	)
}

func attendeesOrEmpty(attendees []string) []string {
	if attendees == nil {
		return []string{}
	}

	return attendees
}

/*

 */

type DBMetrics struct {
	qTotal   metric.Int64Counter
	qErrors  metric.Int64Counter
	qLatency metric.Float64Histogram
}

func NewDBMetrics() *DBMetrics {
	meter := otel.Meter("lemur-calendar/db")

	qTotal, _ := meter.Int64Counter("db.query.total")
	qErrors, _ := meter.Int64Counter("db.query.errors.total")
	qLatency, _ := meter.Float64Histogram("db.query.duration.ms")

	return &DBMetrics{qTotal: qTotal, qErrors: qErrors, qLatency: qLatency}
}

func (m *DBMetrics) Observe(ctx context.Context, op string, start time.Time, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("db.system", "postgres"),
		attribute.String("db.operation", op),
	}

	m.qTotal.Add(ctx, 1, metric.WithAttributes(attrs...))

	ms := float64(time.Since(start).Milliseconds())
	m.qLatency.Record(ctx, ms, metric.WithAttributes(attrs...))

	if err != nil {
		m.qErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}
