package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Fetch(ctx context.Context, userId string, start, end time.Time) FetchResult {
	args := m.Called(ctx, userId, start, end)
	return args.Get(0).(FetchResult)
}

type MockStatusProvider struct {
	mock.Mock
}

func (m *MockStatusProvider) Status(ctx context.Context, userId string) (*ConnectionStatus, error) {
	args := m.Called(ctx, userId)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*ConnectionStatus), args.Error(1)
}

func TestCalendarService_Dashboard(t *testing.T) {
	t.Parallel()

	now := at(t, "2024-03-14 10:00", time.UTC)
	warning := SourceWarning{Source: SourceGoogle, Message: "unreachable"}

	fetcher := new(MockFetcher)
	fetcher.On("Fetch", mock.Anything, "user-1",
		at(t, "2024-03-07 00:00", time.UTC),
		at(t, "2024-03-22 00:00", time.UTC),
	).Return(FetchResult{
		Events: []CalendarEvent{
			event(SourceLocal, "1", "Standup", at(t, "2024-03-14 09:00", time.UTC), 30*time.Minute),
			event(SourceLocal, "2", "Planning", at(t, "2024-03-15 09:00", time.UTC), time.Hour),
			{ID: "3", Title: "Broken", Source: SourceLocal},
		},
		Warnings: []SourceWarning{warning},
	})

	service := NewCalendarService(fetcher, nil, FixedClock(now), CalendarConfig{LookbackDays: 7, LookaheadDays: 7})

	got, err := service.Dashboard(context.Background(), "user-1", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"1"}, ids(got.Today))
	assert.Equal(t, []string{"2"}, ids(got.Upcoming))
	assert.Empty(t, got.Previous)
	assert.Len(t, got.Excluded, 1)
	assert.Equal(t, []SourceWarning{warning}, got.Warnings)
	fetcher.AssertExpectations(t)
}

func TestCalendarService_UpcomingAndPrevious(t *testing.T) {
	t.Parallel()

	now := at(t, "2024-03-14 10:00", time.UTC)

	var events []CalendarEvent
	for i := 1; i <= 5; i++ {
		events = append(events,
			event(SourceLocal, "u"+string(rune('0'+i)), "Upcoming", now.AddDate(0, 0, i), time.Hour),
			event(SourceLocal, "p"+string(rune('0'+i)), "Previous", now.AddDate(0, 0, -i), time.Hour),
		)
	}

	fetcher := new(MockFetcher)
	fetcher.On("Fetch", mock.Anything, "user-1", mock.Anything, mock.Anything).Return(FetchResult{Events: events})

	service := NewCalendarService(fetcher, nil, FixedClock(now), CalendarConfig{LookbackDays: 30, LookaheadDays: 30})

	upcoming, err := service.Upcoming(context.Background(), "user-1", nil, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2", "u3"}, ids(upcoming.Meetings))
	assert.Equal(t, 3, upcoming.TotalCount)

	previous, err := service.Previous(context.Background(), "user-1", nil, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2", "p3", "p4", "p5"}, ids(previous.Meetings))
}

func TestCalendarService_MonthGrid(t *testing.T) {
	t.Parallel()

	now := at(t, "2024-02-14 12:00", time.UTC)

	fetcher := new(MockFetcher)
	fetcher.On("Fetch", mock.Anything, "user-1",
		at(t, "2024-01-28 00:00", time.UTC),
		at(t, "2024-03-10 00:00", time.UTC),
	).Return(FetchResult{
		Events: []CalendarEvent{
			event(SourceMeeting, "m1", "Client call", at(t, "2024-02-20 11:00", time.UTC), time.Hour),
			event(SourceGoogle, "g1", "Client call", at(t, "2024-02-20 11:00", time.UTC), time.Hour),
			event(SourceMeeting, "m2", "Follow-up", at(t, "2024-02-21 11:00", time.UTC), time.Hour),
			event(SourceLocal, "l1", "Focus", at(t, "2024-02-22 09:00", time.UTC), time.Hour),
			{ID: "bad", Title: "No times", Source: SourceLocal},
		},
	})

	service := NewCalendarService(fetcher, nil, FixedClock(now), CalendarConfig{})

	got, err := service.MonthGrid(context.Background(), "user-1", 2024, time.February, nil)
	require.NoError(t, err)
	require.Len(t, got.Days, GridCells)

	assert.Equal(t, 2024, got.Year)
	assert.Equal(t, time.February, got.Month)

	byDate := make(map[string]CalendarDay, len(got.Days))
	for _, day := range got.Days {
		byDate[day.Date.Format(time.DateOnly)] = day
	}

	assert.Equal(t, []string{"g1"}, ids(byDate["2024-02-20"].Events))
	assert.Empty(t, byDate["2024-02-20"].Meetings)
	assert.Equal(t, []string{"m2"}, ids(byDate["2024-02-21"].Meetings))
	assert.Equal(t, []string{"l1"}, ids(byDate["2024-02-22"].Events))
	fetcher.AssertExpectations(t)
}

func TestCalendarService_Status(t *testing.T) {
	t.Parallel()

	lastSync := at(t, "2024-03-14 09:00", time.UTC)

	t.Run("without provider", func(t *testing.T) {
		t.Parallel()

		service := NewCalendarService(new(MockFetcher), nil, SystemClock, CalendarConfig{})

		got, err := service.Status(context.Background(), "user-1")
		require.NoError(t, err)
		assert.Equal(t, &ConnectionStatus{UserId: "user-1"}, got)
	})

	t.Run("connected", func(t *testing.T) {
		t.Parallel()

		status := new(MockStatusProvider)
		status.On("Status", mock.Anything, "user-1").
			Return(&ConnectionStatus{UserId: "user-1", Provider: ProviderGoogle, Connected: true, LastSync: &lastSync}, nil)

		service := NewCalendarService(new(MockFetcher), status, SystemClock, CalendarConfig{})

		got, err := service.Status(context.Background(), "user-1")
		require.NoError(t, err)
		assert.True(t, got.Connected)
		assert.Equal(t, &lastSync, got.LastSync)
		status.AssertExpectations(t)
	})

	t.Run("store failure", func(t *testing.T) {
		t.Parallel()

		status := new(MockStatusProvider)
		status.On("Status", mock.Anything, "user-1").Return(nil, errors.New("db down"))

		service := NewCalendarService(new(MockFetcher), status, SystemClock, CalendarConfig{})

		_, err := service.Status(context.Background(), "user-1")
		require.Error(t, err)
	})
}
