package adapters

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AntonStoeckl/persistence-go/persistence"
)

// PoolFactory builds a pgx pool. It is called on first use by a lazy PGXAdapter.
type PoolFactory func() (*pgxpool.Pool, error)

// PGXAdapter implements DBAdapter for pgxpool.Pool.
type PGXAdapter struct {
	mu      sync.Mutex
	pool    *pgxpool.Pool
	factory PoolFactory
	closed  bool
}

// NewPGXAdapter creates a new PGX adapter for an existing pool.
func NewPGXAdapter(pool *pgxpool.Pool) *PGXAdapter {
	return &PGXAdapter{pool: pool}
}

// NewLazyPGXAdapter creates a PGX adapter that builds its pool on the first operation.
// A factory error is returned from that operation and the next operation tries again.
func NewLazyPGXAdapter(factory PoolFactory) *PGXAdapter {
	return &PGXAdapter{factory: factory}
}

func (p *PGXAdapter) getPool() (*pgxpool.Pool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, persistence.ErrEngineClosed
	}

	if p.pool != nil {
		return p.pool, nil
	}

	pool, err := p.factory()
	if err != nil {
		return nil, err
	}

	p.pool = pool

	return pool, nil
}

// Acquire checks out a connection from the pool.
func (p *PGXAdapter) Acquire(ctx context.Context) (DBConn, error) {
	pool, err := p.getPool()
	if err != nil {
		return nil, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	return &pgxConn{conn: conn}, nil
}

// Ping acquires a connection and pings the server.
func (p *PGXAdapter) Ping(ctx context.Context) error {
	pool, err := p.getPool()
	if err != nil {
		return err
	}

	return pool.Ping(ctx)
}

// Stats reports the pool statistics, all zero while a lazy pool was not built yet.
func (p *PGXAdapter) Stats() persistence.PoolStats {
	p.mu.Lock()
	pool := p.pool
	p.mu.Unlock()

	if pool == nil {
		return persistence.PoolStats{}
	}

	stat := pool.Stat()

	return persistence.PoolStats{
		MaxOpen:      int(stat.MaxConns()),
		Open:         int(stat.TotalConns()),
		InUse:        int(stat.AcquiredConns()),
		Idle:         int(stat.IdleConns()),
		WaitCount:    stat.EmptyAcquireCount(),
		WaitDuration: stat.AcquireDuration(),
	}
}

// Close closes all connections of a built pool. A lazy pool that was never built will not be built afterward.
func (p *PGXAdapter) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true

	if p.pool != nil {
		p.pool.Close()
	}

	return nil
}

type pgxConn struct {
	conn *pgxpool.Conn
}

func (c *pgxConn) Query(ctx context.Context, query string, args ...any) (DBRows, error) {
	rows, err := c.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return &pgxRows{rows: rows}, nil
}

func (c *pgxConn) Exec(ctx context.Context, query string, args ...any) (DBResult, error) {
	tag, err := c.conn.Exec(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return &pgxResult{tag: tag}, nil
}

func (c *pgxConn) Begin(ctx context.Context) (DBTx, error) {
	tx, err := c.conn.Begin(ctx)
	if err != nil {
		return nil, err
	}

	return &pgxTx{tx: tx}, nil
}

func (c *pgxConn) Release() error {
	c.conn.Release()
	return nil
}

type pgxTx struct {
	tx pgx.Tx
}

func (t *pgxTx) Query(ctx context.Context, query string, args ...any) (DBRows, error) {
	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return &pgxRows{rows: rows}, nil
}

func (t *pgxTx) Exec(ctx context.Context, query string, args ...any) (DBResult, error) {
	tag, err := t.tx.Exec(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return &pgxResult{tag: tag}, nil
}

func (t *pgxTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *pgxTx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}

// pgxRows wraps pgx.Rows to implement the DBRows interface.
type pgxRows struct {
	rows pgx.Rows
}

// Next advances to the next row.
func (p *pgxRows) Next() bool {
	return p.rows.Next()
}

// Scan copies row values into provided destinations.
func (p *pgxRows) Scan(dest ...any) error {
	return p.rows.Scan(dest...)
}

// Err returns the error that ended iteration, if any.
func (p *pgxRows) Err() error {
	return p.rows.Err()
}

// Close closes the rows iterator.
func (p *pgxRows) Close() error {
	p.rows.Close()
	return nil
}

// pgxResult wraps pgconn.CommandTag to implement the DBResult interface.
type pgxResult struct {
	tag pgconn.CommandTag
}

// RowsAffected returns the number of rows affected by the command.
func (p *pgxResult) RowsAffected() (int64, error) {
	return p.tag.RowsAffected(), nil
}
