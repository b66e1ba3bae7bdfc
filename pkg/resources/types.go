package resources

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	_ DBInstance = (*pgxpool.Pool)(nil)
)

type Closable interface {
	Close()
}

// DBInstance is the subset of *pgxpool.Pool used by the repositories; pgxmock implements it too.
type DBInstance interface {
	Closable
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// StopFn releases a resource, waiting at most timeout.
type StopFn func(ctx context.Context, timeout time.Duration)

func noopStop(context.Context, time.Duration) {}
