package adapters

import (
	"context"

	"github.com/AntonStoeckl/persistence-go/persistence"
)

// DBAdapter defines the pool operations needed by the engine.
type DBAdapter interface {
	Acquire(ctx context.Context) (DBConn, error)
	Ping(ctx context.Context) error
	Stats() persistence.PoolStats
	Close() error
}

// Querier runs statements with positional arguments.
type Querier interface {
	Query(ctx context.Context, query string, args ...any) (DBRows, error)
	Exec(ctx context.Context, query string, args ...any) (DBResult, error)
}

// DBConn is a connection checked out of the pool. Release returns it.
type DBConn interface {
	Querier
	Begin(ctx context.Context) (DBTx, error)
	Release() error
}

// DBTx is a transaction on a checked-out connection.
type DBTx interface {
	Querier
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// DBRows defines the interface for query result rows.
type DBRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// DBResult defines the interface for execution results.
type DBResult interface {
	RowsAffected() (int64, error)
}
