package postgresengine

import (
	"context"
	"sync"

	"github.com/AntonStoeckl/persistence-go/persistence"
	"github.com/AntonStoeckl/persistence-go/persistence/postgresengine/internal/adapters"
)

// Rows is the cursor returned by Connection.Query. It must be closed.
type Rows = adapters.DBRows

// Connection is a raw connection checked out of the Engine's pool.
// Every statement runs in its own implicit transaction.
type Connection struct {
	engine *Engine
	conn   adapters.DBConn
	once   sync.Once
	closed bool
	mu     sync.Mutex
}

// Query runs a statement that returns rows.
func (c *Connection) Query(ctx context.Context, sqlQuery string, args ...any) (Rows, error) {
	conn, err := c.current()
	if err != nil {
		return nil, err
	}

	return c.engine.query(ctx, conn, actionQuery, sqlQuery, args)
}

// Exec runs a statement and returns the number of affected rows.
func (c *Connection) Exec(ctx context.Context, sqlQuery string, args ...any) (int64, error) {
	conn, err := c.current()
	if err != nil {
		return 0, err
	}

	return c.engine.exec(ctx, conn, actionExec, sqlQuery, args)
}

// Close returns the connection to the pool. Calling it more than once is a no-op.
func (c *Connection) Close() error {
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		c.engine.release(context.Background(), c.conn)
	})

	return nil
}

func (c *Connection) current() (adapters.DBConn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, persistence.ErrConnectionClosed
	}

	return c.conn, nil
}
