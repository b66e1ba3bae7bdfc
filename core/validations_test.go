package core

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEvent(t *testing.T) {
	t.Parallel()

	now := time.Now()

	tests := []struct {
		name    string
		event   Event
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid event",
			event: Event{
				Title:     "Valid Title",
				StartTime: now,
				EndTime:   now.Add(time.Hour),
				Attendees: []string{"ana@example.com", "Bo <bo@example.com>"},
			},
			wantErr: false,
		},
		{
			name: "zero length event",
			event: Event{
				Title:     "Reminder",
				StartTime: now,
				EndTime:   now,
			},
			wantErr: false,
		},
		{
			name: "empty title",
			event: Event{
				Title:     "   ",
				StartTime: now,
				EndTime:   now.Add(time.Hour),
			},
			wantErr: true,
			errMsg:  "title is required",
		},
		{
			name: "title too long",
			event: Event{
				Title:     strings.Repeat("a", 101),
				StartTime: now,
				EndTime:   now.Add(time.Hour),
			},
			wantErr: true,
			errMsg:  "title is too long (100 characters tops)",
		},
		{
			name: "missing start time",
			event: Event{
				Title:   "Valid Title",
				EndTime: now,
			},
			wantErr: true,
			errMsg:  "start time and end time are required",
		},
		{
			name: "end time before start time",
			event: Event{
				Title:     "Valid Title",
				StartTime: now,
				EndTime:   now.Add(-time.Hour),
			},
			wantErr: true,
			errMsg:  "end time must be after start time",
		},
		{
			name: "invalid attendee",
			event: Event{
				Title:     "Valid Title",
				StartTime: now,
				EndTime:   now.Add(time.Hour),
				Attendees: []string{"ana@example.com", "not-an-email"},
			},
			wantErr: true,
			errMsg:  "attendee 'not-an-email' is not a valid email",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := ValidateEvent(tt.event)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
