package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"

	"lemur-calendar/pkg/resources"
)

const ProviderGoogle = "google"

// ConnectionStore keeps the OAuth tokens of users that connected an external calendar.
type ConnectionStore interface {
	StatusProvider
	GetToken(ctx context.Context, userId string) (*oauth2.Token, error)
	MarkSynced(ctx context.Context, userId string, at time.Time) error
}

type connectionStore struct {
	tracer   trace.Tracer
	metrics  *DBMetrics
	pool     resources.DBInstance
	provider string
}

func NewConnectionStore(pool resources.DBInstance, provider string) ConnectionStore {
	return &connectionStore{
		tracer:   otel.GetTracerProvider().Tracer("lemur-calendar/core"),
		metrics:  NewDBMetrics(),
		pool:     pool,
		provider: provider,
	}
}

func (s *connectionStore) GetToken(ctx context.Context, userId string) (*oauth2.Token, error) {
	start := time.Now()

	var err error

	defer func() { s.metrics.Observe(ctx, "get_token", start, err) }()

	ctx, span := s.tracer.Start(ctx, "connectionStore.GetToken")
	defer span.End()

	var (
		token  oauth2.Token
		expiry *time.Time
	)

	err = s.pool.QueryRow(ctx,
		`SELECT access_token, refresh_token, token_type, expiry
		 FROM calendar_connections
		 WHERE user_id = $1 AND provider = $2`,
		userId, s.provider,
	).Scan(&token.AccessToken, &token.RefreshToken, &token.TokenType, &expiry)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCalendarNotConnected
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get calendar token: %w", err)
	}

	if expiry != nil {
		token.Expiry = *expiry
	}

	return &token, nil
}

func (s *connectionStore) MarkSynced(ctx context.Context, userId string, at time.Time) error {
	start := time.Now()

	var err error

	defer func() { s.metrics.Observe(ctx, "mark_synced", start, err) }()

	ctx, span := s.tracer.Start(ctx, "connectionStore.MarkSynced")
	defer span.End()

	_, err = s.pool.Exec(ctx,
		"UPDATE calendar_connections SET last_sync = $3 WHERE user_id = $1 AND provider = $2",
		userId, s.provider, at)
	if err != nil {
		return fmt.Errorf("failed to update last sync: %w", err)
	}

	return nil
}

func (s *connectionStore) Status(ctx context.Context, userId string) (*ConnectionStatus, error) {
	start := time.Now()

	var err error

	defer func() { s.metrics.Observe(ctx, "get_status", start, err) }()

	ctx, span := s.tracer.Start(ctx, "connectionStore.Status")
	defer span.End()

	status := &ConnectionStatus{UserId: userId}

	var lastSync *time.Time

	err = s.pool.QueryRow(ctx,
		"SELECT last_sync FROM calendar_connections WHERE user_id = $1 AND provider = $2",
		userId, s.provider,
	).Scan(&lastSync)
	if errors.Is(err, pgx.ErrNoRows) {
		err = nil
		return status, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get calendar status: %w", err)
	}

	status.Provider = s.provider
	status.Connected = true
	status.LastSync = lastSync

	return status, nil
}
