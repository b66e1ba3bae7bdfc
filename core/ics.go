package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/rs/zerolog/log"
)

type ICSFeed struct {
	Name string
	URL  string
}

// ParseICSFeeds reads "name=url" entries. A bare URL is named after its position.
func ParseICSFeeds(entries []string) []ICSFeed {
	feeds := make([]ICSFeed, 0, len(entries))

	for i, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		name, url, found := strings.Cut(entry, "=")
		if !found || strings.Contains(name, "://") {
			name, url = fmt.Sprintf("feed-%d", i+1), entry
		}

		feeds = append(feeds, ICSFeed{Name: strings.TrimSpace(name), URL: strings.TrimSpace(url)})
	}

	return feeds
}

// ICSSource reads shared iCalendar subscriptions (team or holiday calendars).
// Every user sees the same feeds.
type ICSSource struct {
	client   *http.Client
	feeds    []ICSFeed
	location *time.Location
}

func NewICSSource(client *http.Client, location *time.Location, feeds ...ICSFeed) *ICSSource {
	if client == nil {
		client = http.DefaultClient
	}

	return &ICSSource{client: client, feeds: feeds, location: location}
}

func (s *ICSSource) Source() Source {
	return SourceICS
}

// GetEvents fails only when every feed failed; a partial failure is logged and skipped.
func (s *ICSSource) GetEvents(ctx context.Context, _ string, start, end time.Time) ([]CalendarEvent, error) {
	events := make([]CalendarEvent, 0)

	var errs []error

	for _, feed := range s.feeds {
		feedEvents, err := s.fetchFeed(ctx, feed, start, end)
		if err != nil {
			log.Ctx(ctx).Warn().Ctx(ctx).Err(err).Str("feed", feed.Name).Msg("skipping ics feed")
			errs = append(errs, err)

			continue
		}

		events = append(events, feedEvents...)
	}

	if len(s.feeds) > 0 && len(errs) == len(s.feeds) {
		return nil, errors.Join(errs...)
	}

	return events, nil
}

func (s *ICSSource) fetchFeed(ctx context.Context, feed ICSFeed, start, end time.Time) ([]CalendarEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("feed %s: failed to create request: %w", feed.Name, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed %s: request failed: %w", feed.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed %s: unexpected status %d", feed.Name, resp.StatusCode)
	}

	cal, err := ical.NewDecoder(resp.Body).Decode()
	if err != nil {
		return nil, fmt.Errorf("feed %s: failed to decode calendar: %w", feed.Name, err)
	}

	vevents := cal.Events()
	moved := movedInstances(vevents, s.location)
	events := make([]CalendarEvent, 0)

	for _, vevent := range vevents {
		converted, err := s.expandEvent(&vevent, moved, start, end)
		if err != nil {
			log.Ctx(ctx).Warn().Ctx(ctx).Err(err).Str("feed", feed.Name).Msg("skipping ics event")
			continue
		}

		events = append(events, converted...)
	}

	return events, nil
}

// movedInstances indexes the RECURRENCE-ID of every override by UID, so the
// master's rule does not emit the slot the override replaces.
func movedInstances(vevents []ical.Event, loc *time.Location) map[string]map[string]struct{} {
	moved := make(map[string]map[string]struct{})

	for _, vevent := range vevents {
		recurrenceId, ok := recurrenceIdOf(&vevent, loc)
		if !ok {
			continue
		}

		uid, _ := vevent.Props.Text(ical.PropUID)
		if moved[uid] == nil {
			moved[uid] = make(map[string]struct{})
		}

		moved[uid][instanceKey(recurrenceId)] = struct{}{}
	}

	return moved
}

func recurrenceIdOf(vevent *ical.Event, loc *time.Location) (time.Time, bool) {
	prop := vevent.Props.Get(ical.PropRecurrenceID)
	if prop == nil {
		return time.Time{}, false
	}

	if isDate(prop) {
		loc = time.UTC
	}

	t, err := prop.DateTime(loc)
	if err != nil || t.IsZero() {
		return time.Time{}, false
	}

	return t, true
}

func instanceKey(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// isDate reports whether prop holds a DATE (all-day) value rather than a DATE-TIME.
func isDate(prop *ical.Prop) bool {
	return prop.ValueType() == ical.ValueDate || len(prop.Value) == len("20060102")
}

// expandEvent converts a VEVENT, expanding its recurrence rule inside [start, end).
// An override (RECURRENCE-ID) takes the ID of the instance it replaces.
func (s *ICSSource) expandEvent(vevent *ical.Event, moved map[string]map[string]struct{}, start, end time.Time) ([]CalendarEvent, error) {
	if status, _ := vevent.Props.Text(ical.PropStatus); strings.EqualFold(status, "CANCELLED") {
		return nil, nil
	}

	// DATE values are floating and parsed at UTC midnight
	loc := s.location

	allDay := false
	if prop := vevent.Props.Get(ical.PropDateTimeStart); prop != nil && isDate(prop) {
		loc, allDay = time.UTC, true
	}

	dtStart, err := vevent.DateTimeStart(loc)
	if err != nil {
		return nil, fmt.Errorf("invalid DTSTART: %w", err)
	}

	dtEnd, err := vevent.DateTimeEnd(loc)
	if err != nil {
		return nil, fmt.Errorf("invalid DTEND: %w", err)
	}

	if dtEnd.IsZero() {
		dtEnd = dtStart
	}

	base := s.convertToEvent(vevent, dtStart, dtEnd)
	base.AllDay = allDay

	if recurrenceId, ok := recurrenceIdOf(vevent, s.location); ok {
		base.ID = base.ID + "-" + instanceKey(recurrenceId)
		return inWindow(base, dtStart, start, end), nil
	}

	set, err := vevent.RecurrenceSet(loc)
	if err != nil {
		return nil, fmt.Errorf("invalid recurrence: %w", err)
	}

	if set == nil {
		return inWindow(base, dtStart, start, end), nil
	}

	duration := dtEnd.Sub(dtStart)
	occurrences := set.Between(start, end, true)
	events := make([]CalendarEvent, 0, len(occurrences))

	for _, occurrence := range occurrences {
		if !occurrence.Before(end) {
			continue
		}

		key := instanceKey(occurrence)
		if _, ok := moved[base.ID][key]; ok {
			continue
		}

		instance := base
		instance.ID = base.ID + "-" + key
		instance.StartTime = occurrence.In(loc)
		instance.EndTime = instance.StartTime.Add(duration)
		events = append(events, instance)
	}

	return events, nil
}

// inWindow keeps a single event starting in [start, end). A missing DTSTART is
// passed through so the categorizer reports it.
func inWindow(event CalendarEvent, dtStart, start, end time.Time) []CalendarEvent {
	if !dtStart.IsZero() && (dtStart.Before(start) || !dtStart.Before(end)) {
		return nil
	}

	return []CalendarEvent{event}
}

func (s *ICSSource) convertToEvent(vevent *ical.Event, start, end time.Time) CalendarEvent {
	uid, _ := vevent.Props.Text(ical.PropUID)
	summary, _ := vevent.Props.Text(ical.PropSummary)

	var attendees []Attendee

	for _, prop := range vevent.Props.Values(ical.PropAttendee) {
		email := strings.TrimPrefix(strings.TrimPrefix(prop.Value, "mailto:"), "MAILTO:")
		attendees = append(attendees, Attendee{Email: email, Name: prop.Params.Get(ical.ParamCommonName)})
	}

	event := NewCalendarEvent(SourceICS, uid, summary, start, end, attendees)
	event.Description, _ = vevent.Props.Text(ical.PropDescription)
	event.Location, _ = vevent.Props.Text(ical.PropLocation)

	if link := vevent.Props.Get(ical.PropURL); link != nil {
		event.MeetingLink = link.Value
	}

	return event
}
