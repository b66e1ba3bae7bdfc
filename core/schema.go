package core

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"lemur-calendar/pkg/resources"
)

var schema = []string{
	`CREATE EXTENSION IF NOT EXISTS pgcrypto`,
	`CREATE TABLE IF NOT EXISTS events (
		id           UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id      TEXT NOT NULL,
		title        VARCHAR(100) NOT NULL,
		description  TEXT NOT NULL DEFAULT '',
		start_time   TIMESTAMPTZ NOT NULL,
		end_time     TIMESTAMPTZ NOT NULL CHECK (end_time >= start_time),
		attendees    TEXT[] NOT NULL DEFAULT '{}',
		meeting_link TEXT NOT NULL DEFAULT '',
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS events_user_start_idx ON events (user_id, start_time)`,
	`CREATE TABLE IF NOT EXISTS meetings (
		id               TEXT PRIMARY KEY,
		user_id          TEXT NOT NULL,
		client_id        TEXT NOT NULL DEFAULT '',
		title            TEXT NOT NULL DEFAULT '',
		scheduled_at     TIMESTAMPTZ NOT NULL,
		duration_minutes INTEGER NOT NULL DEFAULT 60,
		attendees        TEXT[] NOT NULL DEFAULT '{}',
		meeting_url      TEXT NOT NULL DEFAULT '',
		description      TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS meetings_user_scheduled_idx ON meetings (user_id, scheduled_at)`,
	`CREATE TABLE IF NOT EXISTS calendar_connections (
		user_id       TEXT NOT NULL,
		provider      TEXT NOT NULL,
		access_token  TEXT NOT NULL,
		refresh_token TEXT NOT NULL DEFAULT '',
		token_type    TEXT NOT NULL DEFAULT 'Bearer',
		expiry        TIMESTAMPTZ,
		last_sync     TIMESTAMPTZ,
		PRIMARY KEY (user_id, provider)
	)`,
}

// Migrate creates the tables the service reads from. Statements are idempotent.
func Migrate(ctx context.Context, db resources.DBInstance) error {
	for i, stmt := range schema {
		_, err := db.Exec(ctx, stmt)
		if err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i, err)
		}
	}

	log.Ctx(ctx).Info().Ctx(ctx).Int("statements", len(schema)).Msg("schema up to date")

	return nil
}
