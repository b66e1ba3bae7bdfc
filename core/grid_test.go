package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMonthGrid_LeapFebruary(t *testing.T) {
	t.Parallel()

	now := at(t, "2024-02-14 12:00", time.UTC)

	days := BuildMonthGrid(2024, time.February, nil, nil, now)

	require.Len(t, days, GridCells)
	assert.Equal(t, "2024-01-28", days[0].Date.Format(time.DateOnly))
	assert.Equal(t, time.Sunday, days[0].Date.Weekday())
	assert.Equal(t, "2024-03-09", days[GridCells-1].Date.Format(time.DateOnly))

	assert.False(t, days[3].IsCurrentMonth)
	assert.True(t, days[4].IsCurrentMonth)
	assert.Equal(t, "2024-02-01", days[4].Date.Format(time.DateOnly))
	assert.Equal(t, "2024-02-29", days[32].Date.Format(time.DateOnly))
	assert.True(t, days[32].IsCurrentMonth)
	assert.False(t, days[33].IsCurrentMonth)

	var today []string
	for _, day := range days {
		if day.IsToday {
			today = append(today, day.Date.Format(time.DateOnly))
		}
	}

	assert.Equal(t, []string{"2024-02-14"}, today)
}

func TestBuildMonthGrid_EveryMonthHas42DistinctDays(t *testing.T) {
	t.Parallel()

	now := at(t, "2024-06-01 00:00", time.UTC)

	for year := 2023; year <= 2026; year++ {
		for month := time.January; month <= time.December; month++ {
			days := BuildMonthGrid(year, month, nil, nil, now)
			require.Len(t, days, GridCells, "%d-%02d", year, month)

			seen := make(map[string]struct{}, GridCells)
			inMonth := 0

			for i, day := range days {
				key := day.Date.Format(time.DateOnly)
				_, dup := seen[key]
				assert.False(t, dup, "%s appears twice", key)
				seen[key] = struct{}{}

				if i > 0 {
					assert.Equal(t, days[i-1].Date.AddDate(0, 0, 1), day.Date)
				}

				if day.IsCurrentMonth {
					inMonth++
				}
			}

			first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
			assert.Equal(t, first.AddDate(0, 1, -1).Day(), inMonth, "%d-%02d", year, month)
		}
	}
}

func TestBuildMonthGrid_PlacesEventsByDay(t *testing.T) {
	t.Parallel()

	now := at(t, "2024-03-10 08:00", time.UTC)

	events := []CalendarEvent{
		event(SourceGoogle, "g2", "Demo", at(t, "2024-03-12 15:00", time.UTC), time.Hour),
		event(SourceGoogle, "g1", "Planning", at(t, "2024-03-12 09:00", time.UTC), time.Hour),
		event(SourceICS, "h1", "Holiday", at(t, "2024-04-01 00:00", time.UTC), 24*time.Hour),
	}
	meetings := []CalendarEvent{
		event(SourceMeeting, "m1", "Client call", at(t, "2024-03-12 11:00", time.UTC), time.Hour),
	}

	days := BuildMonthGrid(2024, time.March, events, meetings, now)
	require.Len(t, days, GridCells)

	byDate := make(map[string]CalendarDay, len(days))
	for _, day := range days {
		byDate[day.Date.Format(time.DateOnly)] = day
	}

	assert.Equal(t, []string{"g1", "g2"}, ids(byDate["2024-03-12"].Events))
	assert.Equal(t, []string{"m1"}, ids(byDate["2024-03-12"].Meetings))
	assert.Equal(t, []string{"h1"}, ids(byDate["2024-04-01"].Events))
	assert.False(t, byDate["2024-04-01"].IsCurrentMonth)
	assert.True(t, byDate["2024-03-10"].IsToday)

	for key, day := range byDate {
		assert.NotNil(t, day.Events, key)
		assert.NotNil(t, day.Meetings, key)
	}
}

func TestBuildMonthGrid_EmptyAndDeterministic(t *testing.T) {
	t.Parallel()

	now := at(t, "2024-03-10 08:00", time.UTC)
	events := []CalendarEvent{
		event(SourceLocal, "1", "Focus", at(t, "2024-03-05 10:00", time.UTC), time.Hour),
	}

	empty := BuildMonthGrid(2024, time.March, []CalendarEvent{}, nil, now)
	require.Len(t, empty, GridCells)

	for _, day := range empty {
		assert.Empty(t, day.Events)
		assert.Empty(t, day.Meetings)
	}

	assert.Equal(t, BuildMonthGrid(2024, time.March, events, nil, now), BuildMonthGrid(2024, time.March, events, nil, now))
}

func TestBuildMonthGrid_UsesViewerZone(t *testing.T) {
	t.Parallel()

	newYork, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 02:00 UTC on the 6th is still the evening of the 5th in New York.
	late := event(SourceGoogle, "late", "Late sync", at(t, "2024-03-06 02:00", time.UTC), time.Hour)
	now := at(t, "2024-03-10 08:00", time.UTC).In(newYork)

	days := BuildMonthGrid(2024, time.March, []CalendarEvent{late}, nil, now)

	for _, day := range days {
		if day.Date.Format(time.DateOnly) == "2024-03-05" {
			assert.Equal(t, []string{"late"}, ids(day.Events))
		} else {
			assert.Empty(t, day.Events, day.Date.Format(time.DateOnly))
		}
	}
}

func TestBuildMonthGrid_AllDayFollowsViewerDate(t *testing.T) {
	t.Parallel()

	losAngeles, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)

	holiday := event(SourceICS, "holiday", "Company holiday", at(t, "2024-03-14 00:00", time.UTC), 24*time.Hour)
	holiday.AllDay = true

	days := BuildMonthGrid(2024, time.March, []CalendarEvent{holiday}, nil, at(t, "2024-03-14 09:00", losAngeles))

	for _, day := range days {
		if day.Date.Format(time.DateOnly) == "2024-03-14" {
			assert.True(t, day.IsToday)
			assert.Equal(t, []string{"holiday"}, ids(day.Events))
		} else {
			assert.Empty(t, day.Events, day.Date.Format(time.DateOnly))
		}
	}
}

func TestGridRange(t *testing.T) {
	t.Parallel()

	from, to := GridRange(2024, time.February, time.UTC)

	assert.Equal(t, at(t, "2024-01-28 00:00", time.UTC), from)
	assert.Equal(t, at(t, "2024-03-10 00:00", time.UTC), to)
}
