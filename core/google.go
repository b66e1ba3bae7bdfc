package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// 250 is the page size ceiling of the Calendar API.
const googleMaxResults = 250

func NewGoogleOAuthConfig(clientId, clientSecret, redirectUrl string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientId,
		ClientSecret: clientSecret,
		RedirectURL:  redirectUrl,
		Scopes:       []string{calendar.CalendarReadonlyScope},
		Endpoint:     google.Endpoint,
	}
}

// GoogleCalendarSource reads events of users that connected their Google Calendar.
type GoogleCalendarSource struct {
	connections   ConnectionStore
	calendarId    string
	location      *time.Location
	clock         Clock
	clientOptions func(ctx context.Context, token *oauth2.Token) []option.ClientOption
}

func NewGoogleCalendarSource(connections ConnectionStore, oauthConfig *oauth2.Config, calendarId string, location *time.Location, clock Clock) *GoogleCalendarSource {
	return &GoogleCalendarSource{
		connections: connections,
		calendarId:  calendarId,
		location:    location,
		clock:       clock,
		clientOptions: func(ctx context.Context, token *oauth2.Token) []option.ClientOption {
			return []option.ClientOption{option.WithTokenSource(oauthConfig.TokenSource(ctx, token))}
		},
	}
}

func (s *GoogleCalendarSource) Source() Source {
	return SourceGoogle
}

func (s *GoogleCalendarSource) Status(ctx context.Context, userId string) (*ConnectionStatus, error) {
	return s.connections.Status(ctx, userId)
}

func (s *GoogleCalendarSource) GetEvents(ctx context.Context, userId string, start, end time.Time) ([]CalendarEvent, error) {
	token, err := s.connections.GetToken(ctx, userId)
	if errors.Is(err, ErrCalendarNotConnected) {
		log.Ctx(ctx).Debug().Ctx(ctx).Str("user_id", userId).Msg("google calendar not connected")
		return []CalendarEvent{}, nil
	}

	if err != nil {
		return nil, err
	}

	service, err := calendar.NewService(ctx, s.clientOptions(ctx, token)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create google calendar service: %w", err)
	}

	call := service.Events.List(s.calendarId).
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(end.Format(time.RFC3339)).
		ShowDeleted(false).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(googleMaxResults)

	events := make([]CalendarEvent, 0)

	err = call.Pages(ctx, func(page *calendar.Events) error {
		for _, item := range page.Items {
			if item.Status == "cancelled" {
				continue
			}

			event, convErr := s.convertToEvent(item)
			if convErr != nil {
				log.Ctx(ctx).Warn().Ctx(ctx).Err(convErr).Str("event_id", item.Id).Msg("skipping google calendar event")
				continue
			}

			events = append(events, event)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list google calendar events: %w", err)
	}

	err = s.connections.MarkSynced(ctx, userId, s.clock.Now())
	if err != nil {
		log.Ctx(ctx).Warn().Ctx(ctx).Err(err).Str("user_id", userId).Msg("unable to record google calendar sync")
	}

	return events, nil
}

// convertToEvent translates a Calendar API event. A missing start or end is kept
// as a zero time so the categorizer can exclude and report the event.
func (s *GoogleCalendarSource) convertToEvent(item *calendar.Event) (CalendarEvent, error) {
	startTime, err := s.parseEventTime(item.Start)
	if err != nil {
		return CalendarEvent{}, fmt.Errorf("invalid start time: %w", err)
	}

	endTime, err := s.parseEventTime(item.End)
	if err != nil {
		return CalendarEvent{}, fmt.Errorf("invalid end time: %w", err)
	}

	attendees := make([]Attendee, 0, len(item.Attendees))
	for _, a := range item.Attendees {
		if a == nil || a.Resource {
			continue
		}

		attendees = append(attendees, Attendee{Email: a.Email, Name: a.DisplayName})
	}

	event := NewCalendarEvent(SourceGoogle, item.Id, item.Summary, startTime, endTime, attendees)
	event.AllDay = item.Start != nil && item.Start.DateTime == "" && item.Start.Date != ""
	event.Description = item.Description
	event.Location = item.Location
	event.MeetingLink = meetingLinkOf(item)

	return event, nil
}

func (s *GoogleCalendarSource) parseEventTime(edt *calendar.EventDateTime) (time.Time, error) {
	switch {
	case edt == nil:
		return time.Time{}, nil
	case edt.DateTime != "":
		t, err := time.Parse(time.RFC3339, edt.DateTime)
		if err != nil {
			return time.Time{}, err
		}

		return t.In(s.location), nil
	case edt.Date != "":
		// floating date, anchored in the viewer's zone by CalendarEvent.In
		return time.ParseInLocation(time.DateOnly, edt.Date, time.UTC)
	default:
		return time.Time{}, nil
	}
}

func meetingLinkOf(item *calendar.Event) string {
	if item.HangoutLink != "" {
		return item.HangoutLink
	}

	if item.ConferenceData == nil {
		return ""
	}

	for _, entry := range item.ConferenceData.EntryPoints {
		if entry != nil && entry.EntryPointType == "video" && entry.Uri != "" {
			return entry.Uri
		}
	}

	return ""
}
