package adapters

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/AntonStoeckl/persistence-go/persistence"
)

// SQLXAdapter implements DBAdapter for sqlx.DB
type SQLXAdapter struct {
	db *sqlx.DB
}

// NewSQLXAdapter creates a new SQLX adapter
func NewSQLXAdapter(db *sqlx.DB) *SQLXAdapter {
	return &SQLXAdapter{db: db}
}

// Acquire checks out a dedicated connection; ctx only bounds the wait.
func (s *SQLXAdapter) Acquire(ctx context.Context) (DBConn, error) {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return nil, err
	}

	return &sqlxConn{conn: conn}, nil
}

// Ping verifies a connection to the database is still alive.
func (s *SQLXAdapter) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Stats returns the database/sql pool statistics of the underlying sql.DB.
func (s *SQLXAdapter) Stats() persistence.PoolStats {
	return statsFromDBStats(s.db.Stats())
}

// Close closes the pool.
func (s *SQLXAdapter) Close() error {
	return s.db.Close()
}

type sqlxConn struct {
	conn *sqlx.Conn
}

func (c *sqlxConn) Query(ctx context.Context, query string, args ...any) (DBRows, error) {
	rows, err := c.conn.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return &stdRows{rows: rows.Rows}, nil
}

func (c *sqlxConn) Exec(ctx context.Context, query string, args ...any) (DBResult, error) {
	result, err := c.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return &stdResult{result: result}, nil
}

func (c *sqlxConn) Begin(ctx context.Context) (DBTx, error) {
	tx, err := c.conn.BeginTxx(context.WithoutCancel(ctx), nil)
	if err != nil {
		return nil, err
	}

	return &sqlxTx{tx: tx}, nil
}

func (c *sqlxConn) Release() error {
	return c.conn.Close()
}

type sqlxTx struct {
	tx *sqlx.Tx
}

func (t *sqlxTx) Query(ctx context.Context, query string, args ...any) (DBRows, error) {
	rows, err := t.tx.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return &stdRows{rows: rows.Rows}, nil
}

func (t *sqlxTx) Exec(ctx context.Context, query string, args ...any) (DBResult, error) {
	result, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return &stdResult{result: result}, nil
}

func (t *sqlxTx) Commit(_ context.Context) error {
	return t.tx.Commit()
}

func (t *sqlxTx) Rollback(_ context.Context) error {
	return t.tx.Rollback()
}
