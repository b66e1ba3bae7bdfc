package core

import (
	"slices"
	"time"
)

const (
	GridWeeks = 6
	GridCells = GridWeeks * 7
)

// GridRange returns the [from, to) window covered by the month grid of year/month in loc.
func GridRange(year int, month time.Month, loc *time.Location) (time.Time, time.Time) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	from := first.AddDate(0, 0, -int(first.Weekday()))

	return from, from.AddDate(0, 0, GridCells)
}

// BuildMonthGrid lays year/month out on a Sunday-first 6x7 grid in now's
// location. Each cell carries every event and meeting starting on that date;
// truncation is left to the presentation layer.
func BuildMonthGrid(year int, month time.Month, events []CalendarEvent, localMeetings []CalendarEvent, now time.Time) []CalendarDay {
	loc := now.Location()
	from, _ := GridRange(year, month, loc)

	// time.Date normalizes out-of-range months, so read the displayed month back.
	displayed := time.Date(year, month, 1, 0, 0, 0, 0, loc)

	eventsByDay := groupByDate(events, loc)
	meetingsByDay := groupByDate(localMeetings, loc)

	days := make([]CalendarDay, 0, GridCells)

	for i := range GridCells {
		date := from.AddDate(0, 0, i)
		key := date.Format(time.DateOnly)

		days = append(days, CalendarDay{
			Date:           date,
			IsCurrentMonth: date.Year() == displayed.Year() && date.Month() == displayed.Month(),
			IsToday:        sameDate(date, now, loc),
			Events:         nonNil(eventsByDay[key]),
			Meetings:       nonNil(meetingsByDay[key]),
		})
	}

	return days
}

func groupByDate(events []CalendarEvent, loc *time.Location) map[string][]CalendarEvent {
	grouped := make(map[string][]CalendarEvent)

	for _, event := range events {
		event = event.In(loc)
		if event.StartTime.IsZero() {
			continue
		}

		key := event.StartTime.In(loc).Format(time.DateOnly)
		grouped[key] = append(grouped[key], event)
	}

	for _, day := range grouped {
		slices.SortStableFunc(day, compareByStart)
	}

	return grouped
}

func nonNil(events []CalendarEvent) []CalendarEvent {
	if events == nil {
		return []CalendarEvent{}
	}

	return events
}
