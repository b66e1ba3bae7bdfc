package core

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"lemur-calendar/pkg/resources"
)

// Meeting is a legacy meeting record scheduled against a client.
type Meeting struct {
	Id              string
	UserId          string
	ClientId        string
	Title           string
	ScheduledAt     time.Time
	DurationMinutes int
	Attendees       []string
	MeetingUrl      string
	Description     string
}

func (m *Meeting) ToCalendarEvent() CalendarEvent {
	ce := NewCalendarEvent(SourceMeeting, m.Id, m.Title, m.ScheduledAt,
		m.ScheduledAt.Add(time.Duration(max(m.DurationMinutes, 0))*time.Minute),
		AttendeesFromEmails(m.Attendees))
	ce.MeetingLink = m.MeetingUrl
	ce.Description = m.Description

	return ce
}

type meetingRepository struct {
	tracer  trace.Tracer
	metrics *DBMetrics
	pool    resources.DBInstance
}

func NewMeetingRepository(pool resources.DBInstance) EventSource {
	return &meetingRepository{
		tracer:  otel.GetTracerProvider().Tracer("lemur-calendar/core"),
		metrics: NewDBMetrics(),
		pool:    pool,
	}
}

func (r *meetingRepository) Source() Source {
	return SourceMeeting
}

func (r *meetingRepository) GetEvents(ctx context.Context, userId string, start, end time.Time) ([]CalendarEvent, error) {
	begin := time.Now()

	var err error

	defer func() { r.metrics.Observe(ctx, "list_meetings", begin, err) }()

	ctx, span := r.tracer.Start(ctx, "meetingRepository.GetEvents")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, client_id, title, scheduled_at, duration_minutes, attendees, meeting_url, description
		 FROM meetings
		 WHERE user_id = $1 AND scheduled_at >= $2 AND scheduled_at < $3
		 ORDER BY scheduled_at`,
		userId, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list meetings: %w", err)
	}
	defer rows.Close()

	events := make([]CalendarEvent, 0)

	for rows.Next() {
		var m Meeting

		err = rows.Scan(&m.Id, &m.UserId, &m.ClientId, &m.Title, &m.ScheduledAt, &m.DurationMinutes,
			&m.Attendees, &m.MeetingUrl, &m.Description)
		if err != nil {
			return nil, fmt.Errorf("failed to scan meeting: %w", err)
		}

		events = append(events, m.ToCalendarEvent())
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate meetings: %w", err)
	}

	return events, nil
}
