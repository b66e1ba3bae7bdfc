package core

import (
	"errors"
	"net/mail"
	"strings"
)

var ErrUserIdRequired = errors.New("user_id is required")

func ValidateEvent(event Event) error {
	event.Title = strings.TrimSpace(event.Title)
	if len(event.Title) == 0 {
		return errors.New("title is required")
	}

	if len(event.Title) > 100 {
		return errors.New("title is too long (100 characters tops)")
	}

	if event.StartTime.IsZero() || event.EndTime.IsZero() {
		return errors.New("start time and end time are required")
	}

	if event.EndTime.Before(event.StartTime) {
		return errors.New("end time must be after start time")
	}

	for _, attendee := range event.Attendees {
		_, err := mail.ParseAddress(attendee)
		if err != nil {
			return errors.New("attendee '" + attendee + "' is not a valid email")
		}
	}

	return nil
}
