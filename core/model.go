package core

import (
	"strings"
	"time"
)

const UntitledTitle = "Untitled Meeting"

type Source string

const (
	SourceLocal   Source = "local"
	SourceMeeting Source = "meeting"
	SourceICS     Source = "ics"
	SourceGoogle  Source = "google"
)

// Precedence ranks sources for de-duplication. External providers reflect the
// canonical schedule, so they win over locally cached copies.
func (s Source) Precedence() int {
	switch s {
	case SourceGoogle:
		return 3
	case SourceICS:
		return 2
	case SourceMeeting:
		return 1
	default:
		return 0
	}
}

type Attendee struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Event is a record of the local event store.
type Event struct {
	Id          string    `json:"id,omitempty"`
	UserId      string    `json:"user_id,omitempty"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	StartTime   time.Time `json:"start_time,omitempty"`
	EndTime     time.Time `json:"end_time,omitempty"`
	Attendees   []string  `json:"attendees,omitempty"`
	MeetingLink string    `json:"meeting_link,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
}

// CalendarEvent is the canonical shape every source is translated into.
type CalendarEvent struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     time.Time  `json:"end_time"`
	Attendees   []Attendee `json:"attendees"`
	MeetingLink string     `json:"meeting_link,omitempty"`
	Description string     `json:"description,omitempty"`
	Location    string     `json:"location,omitempty"`
	AllDay      bool       `json:"all_day,omitempty"`
	Source      Source     `json:"source"`
}

// In anchors an all-day event at midnight of its dates in loc. All-day events
// are floating: adapters store their dates at UTC midnight. Timed events are
// returned unchanged.
func (e CalendarEvent) In(loc *time.Location) CalendarEvent {
	if !e.AllDay {
		return e
	}

	e.StartTime = floatingDate(e.StartTime, loc)
	e.EndTime = floatingDate(e.EndTime, loc)

	return e
}

func floatingDate(t time.Time, loc *time.Location) time.Time {
	if t.IsZero() {
		return t
	}

	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// Malformed reports whether the event misses the temporal fields needed to place it.
func (e CalendarEvent) Malformed() bool {
	return e.StartTime.IsZero() || e.EndTime.IsZero() || e.EndTime.Before(e.StartTime)
}

type CategorizedMeetings struct {
	Upcoming []CalendarEvent `json:"upcoming"`
	Today    []CalendarEvent `json:"today"`
	Previous []CalendarEvent `json:"previous"`
	Excluded []CalendarEvent `json:"excluded,omitempty"`
}

type CalendarDay struct {
	Date           time.Time       `json:"date"`
	IsCurrentMonth bool            `json:"is_current_month"`
	IsToday        bool            `json:"is_today"`
	Events         []CalendarEvent `json:"events"`
	Meetings       []CalendarEvent `json:"meetings"`
}

type ConnectionStatus struct {
	UserId    string     `json:"user_id"`
	Provider  string     `json:"provider,omitempty"`
	Connected bool       `json:"connected"`
	LastSync  *time.Time `json:"last_sync"`
}

// NewCalendarEvent normalizes title and attendees. Adapters must build events through it.
func NewCalendarEvent(source Source, id, title string, start, end time.Time, attendees []Attendee) CalendarEvent {
	title = strings.TrimSpace(title)
	if title == "" {
		title = UntitledTitle
	}

	return CalendarEvent{
		ID:        id,
		Title:     title,
		StartTime: start,
		EndTime:   end,
		Attendees: NormalizeAttendees(attendees),
		Source:    source,
	}
}

// NormalizeAttendees lower-cases and trims emails and drops blanks and repeats, keeping order.
func NormalizeAttendees(attendees []Attendee) []Attendee {
	out := make([]Attendee, 0, len(attendees))
	seen := make(map[string]struct{}, len(attendees))

	for _, a := range attendees {
		email := strings.ToLower(strings.TrimSpace(a.Email))
		if email == "" {
			continue
		}

		if _, ok := seen[email]; ok {
			continue
		}

		seen[email] = struct{}{}
		out = append(out, Attendee{Email: email, Name: strings.TrimSpace(a.Name)})
	}

	return out
}

func AttendeesFromEmails(emails []string) []Attendee {
	attendees := make([]Attendee, 0, len(emails))
	for _, email := range emails {
		attendees = append(attendees, Attendee{Email: email})
	}

	return attendees
}

func (e *Event) ToCalendarEvent() CalendarEvent {
	ce := NewCalendarEvent(SourceLocal, e.Id, e.Title, e.StartTime, e.EndTime, AttendeesFromEmails(e.Attendees))
	ce.Description = e.Description
	ce.MeetingLink = e.MeetingLink

	return ce
}
