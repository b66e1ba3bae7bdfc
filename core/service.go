package core

import (
	"context"
	"time"
)

const DefaultListLimit = 20

type CalendarConfig struct {
	Location      *time.Location
	LookbackDays  int
	LookaheadDays int
}

// Fetcher is satisfied by Aggregator.
type Fetcher interface {
	Fetch(ctx context.Context, userId string, start, end time.Time) FetchResult
}

type StatusProvider interface {
	Status(ctx context.Context, userId string) (*ConnectionStatus, error)
}

type Dashboard struct {
	CategorizedMeetings
	Warnings []SourceWarning `json:"warnings,omitempty"`
}

type MeetingList struct {
	Meetings   []CalendarEvent `json:"meetings"`
	TotalCount int             `json:"total_count"`
	Warnings   []SourceWarning `json:"warnings,omitempty"`
}

type MonthGrid struct {
	Year     int             `json:"year"`
	Month    time.Month      `json:"month"`
	Days     []CalendarDay   `json:"days"`
	Warnings []SourceWarning `json:"warnings,omitempty"`
}

type CalendarService interface {
	Dashboard(ctx context.Context, userId string, loc *time.Location) (*Dashboard, error)
	Upcoming(ctx context.Context, userId string, loc *time.Location, limit int) (*MeetingList, error)
	Previous(ctx context.Context, userId string, loc *time.Location, limit int) (*MeetingList, error)
	MonthGrid(ctx context.Context, userId string, year int, month time.Month, loc *time.Location) (*MonthGrid, error)
	Status(ctx context.Context, userId string) (*ConnectionStatus, error)
}

type calendarService struct {
	fetcher Fetcher
	status  StatusProvider
	clock   Clock
	config  CalendarConfig
}

func NewCalendarService(fetcher Fetcher, status StatusProvider, clock Clock, config CalendarConfig) CalendarService {
	if config.Location == nil {
		config.Location = time.UTC
	}

	return &calendarService{fetcher: fetcher, status: status, clock: clock, config: config}
}

func (s *calendarService) Dashboard(ctx context.Context, userId string, loc *time.Location) (*Dashboard, error) {
	now := s.now(loc)
	today := dateOf(now, now.Location())

	fetched := s.fetcher.Fetch(ctx, userId,
		today.AddDate(0, 0, -s.config.LookbackDays),
		today.AddDate(0, 0, s.config.LookaheadDays+1))

	return &Dashboard{
		CategorizedMeetings: Categorize(fetched.Events, now),
		Warnings:            fetched.Warnings,
	}, nil
}

func (s *calendarService) Upcoming(ctx context.Context, userId string, loc *time.Location, limit int) (*MeetingList, error) {
	dashboard, err := s.Dashboard(ctx, userId, loc)
	if err != nil {
		return nil, err
	}

	return newMeetingList(dashboard.Upcoming, limit, dashboard.Warnings), nil
}

func (s *calendarService) Previous(ctx context.Context, userId string, loc *time.Location, limit int) (*MeetingList, error) {
	dashboard, err := s.Dashboard(ctx, userId, loc)
	if err != nil {
		return nil, err
	}

	return newMeetingList(dashboard.Previous, limit, dashboard.Warnings), nil
}

func (s *calendarService) MonthGrid(ctx context.Context, userId string, year int, month time.Month, loc *time.Location) (*MonthGrid, error) {
	now := s.now(loc)
	from, to := GridRange(year, month, now.Location())

	fetched := s.fetcher.Fetch(ctx, userId, from, to)

	wellFormed := make([]CalendarEvent, 0, len(fetched.Events))
	for _, event := range fetched.Events {
		if !event.Malformed() {
			wellFormed = append(wellFormed, event.In(now.Location()))
		}
	}

	var events, meetings []CalendarEvent

	for _, event := range Deduplicate(wellFormed) {
		if event.Source == SourceMeeting {
			meetings = append(meetings, event)
		} else {
			events = append(events, event)
		}
	}

	return &MonthGrid{
		Year:     year,
		Month:    month,
		Days:     BuildMonthGrid(year, month, events, meetings, now),
		Warnings: fetched.Warnings,
	}, nil
}

func (s *calendarService) Status(ctx context.Context, userId string) (*ConnectionStatus, error) {
	if s.status == nil {
		return &ConnectionStatus{UserId: userId}, nil
	}

	return s.status.Status(ctx, userId)
}

func (s *calendarService) now(loc *time.Location) time.Time {
	if loc == nil {
		loc = s.config.Location
	}

	return s.clock.Now().In(loc)
}

func newMeetingList(events []CalendarEvent, limit int, warnings []SourceWarning) *MeetingList {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	if len(events) > limit {
		events = events[:limit]
	}

	return &MeetingList{Meetings: events, TotalCount: len(events), Warnings: warnings}
}
