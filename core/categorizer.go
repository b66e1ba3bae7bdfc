package core

import (
	"cmp"
	"slices"
	"strings"
	"time"
)

// Categorize merges events from every source into upcoming/today/previous
// buckets relative to the calendar date of now, in now's location.
// All-day events count on their own date in that location.
// Malformed events land in Excluded and in no bucket.
func Categorize(events []CalendarEvent, now time.Time) CategorizedMeetings {
	result := CategorizedMeetings{
		Upcoming: []CalendarEvent{},
		Today:    []CalendarEvent{},
		Previous: []CalendarEvent{},
	}

	loc := now.Location()

	wellFormed := make([]CalendarEvent, 0, len(events))
	for _, event := range events {
		event = event.In(loc)
		if event.Malformed() {
			result.Excluded = append(result.Excluded, event)
			continue
		}

		wellFormed = append(wellFormed, event)
	}

	today := dateOf(now, loc)

	for _, event := range Deduplicate(wellFormed) {
		day := dateOf(event.StartTime, loc)

		switch {
		case day.Equal(today):
			result.Today = append(result.Today, event)
		case day.After(today):
			result.Upcoming = append(result.Upcoming, event)
		default:
			result.Previous = append(result.Previous, event)
		}
	}

	slices.SortStableFunc(result.Upcoming, compareByStart)
	slices.SortStableFunc(result.Today, compareByStart)
	slices.SortStableFunc(result.Previous, func(a, b CalendarEvent) int {
		return compareByStart(b, a)
	})

	return result
}

// Deduplicate keeps one event per meeting. Two events are the same meeting when
// they share a non-empty ID or the same normalized title and start instant.
// The copy from the source with the highest precedence survives; ties keep
// the earliest in input order.
func Deduplicate(events []CalendarEvent) []CalendarEvent {
	ordered := slices.Clone(events)
	slices.SortStableFunc(ordered, func(a, b CalendarEvent) int {
		return cmp.Compare(b.Source.Precedence(), a.Source.Precedence())
	})

	seenIDs := make(map[string]struct{}, len(ordered))
	seenKeys := make(map[string]struct{}, len(ordered))
	kept := make([]CalendarEvent, 0, len(ordered))

	for _, event := range ordered {
		key := titleTimeKey(event)

		if _, ok := seenKeys[key]; ok {
			continue
		}

		if event.ID != "" {
			if _, ok := seenIDs[event.ID]; ok {
				continue
			}

			seenIDs[event.ID] = struct{}{}
		}

		seenKeys[key] = struct{}{}
		kept = append(kept, event)
	}

	return kept
}

func titleTimeKey(event CalendarEvent) string {
	title := strings.ToLower(strings.Join(strings.Fields(event.Title), " "))
	return title + "|" + event.StartTime.UTC().Format(time.RFC3339Nano)
}

func compareByStart(a, b CalendarEvent) int {
	if c := a.StartTime.Compare(b.StartTime); c != 0 {
		return c
	}

	if c := strings.Compare(a.Title, b.Title); c != 0 {
		return c
	}

	return strings.Compare(a.ID, b.ID)
}

// dateOf truncates t to midnight of its calendar date in loc.
func dateOf(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func sameDate(a, b time.Time, loc *time.Location) bool {
	return dateOf(a, loc).Equal(dateOf(b, loc))
}
