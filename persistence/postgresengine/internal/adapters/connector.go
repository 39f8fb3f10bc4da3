package adapters

import (
	"context"
	"database/sql/driver"
	"errors"
)

const probeStatement = "SELECT 1"

var errIsolationNotSupported = errors.New("driver does not support non-default transaction options")

// NewDSNConnector returns a connector that hands dsn to the driver only when a connection is opened,
// so an empty or malformed dsn fails at the first connection attempt instead of at construction.
func NewDSNConnector(d driver.Driver, dsn string) driver.Connector {
	return dsnConnector{driver: d, dsn: dsn}
}

type dsnConnector struct {
	driver driver.Driver
	dsn    string
}

func (c dsnConnector) Connect(ctx context.Context) (driver.Conn, error) {
	if driverCtx, ok := c.driver.(driver.DriverContext); ok {
		connector, err := driverCtx.OpenConnector(c.dsn)
		if err != nil {
			return nil, err
		}

		return connector.Connect(ctx)
	}

	return c.driver.Open(c.dsn)
}

func (c dsnConnector) Driver() driver.Driver {
	return c.driver
}

// NewPrePingConnector wraps connector so that database/sql probes every pooled connection before reusing it.
// A connection failing the probe is reported as driver.ErrBadConn, which makes database/sql discard it
// and hand out another one (or open a fresh one) transparently.
func NewPrePingConnector(connector driver.Connector) driver.Connector {
	return prePingConnector{Connector: connector}
}

type prePingConnector struct {
	driver.Connector
}

func (c prePingConnector) Connect(ctx context.Context) (driver.Conn, error) {
	conn, err := c.Connector.Connect(ctx)
	if err != nil {
		return nil, err
	}

	return &prePingConn{Conn: conn}, nil
}

// prePingConn forwards every optional driver interface of the wrapped connection.
type prePingConn struct {
	driver.Conn
}

// ResetSession is called by database/sql before a pooled connection is reused.
func (c *prePingConn) ResetSession(ctx context.Context) error {
	if resetter, ok := c.Conn.(driver.SessionResetter); ok {
		if err := resetter.ResetSession(ctx); err != nil {
			return err
		}
	}

	if err := c.probe(ctx); err != nil {
		return driver.ErrBadConn
	}

	return nil
}

func (c *prePingConn) probe(ctx context.Context) error {
	if pinger, ok := c.Conn.(driver.Pinger); ok {
		return pinger.Ping(ctx)
	}

	if execer, ok := c.Conn.(driver.ExecerContext); ok {
		_, err := execer.ExecContext(ctx, probeStatement, nil)
		return err
	}

	return nil
}

func (c *prePingConn) IsValid() bool {
	if validator, ok := c.Conn.(driver.Validator); ok {
		return validator.IsValid()
	}

	return true
}

func (c *prePingConn) Ping(ctx context.Context) error {
	if pinger, ok := c.Conn.(driver.Pinger); ok {
		return pinger.Ping(ctx)
	}

	return nil
}

func (c *prePingConn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	if preparer, ok := c.Conn.(driver.ConnPrepareContext); ok {
		return preparer.PrepareContext(ctx, query)
	}

	return c.Conn.Prepare(query)
}

func (c *prePingConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	if beginner, ok := c.Conn.(driver.ConnBeginTx); ok {
		return beginner.BeginTx(ctx, opts)
	}

	if opts.Isolation != 0 || opts.ReadOnly {
		return nil, errIsolationNotSupported
	}

	return c.Conn.Begin() //nolint:staticcheck // fallback for drivers without ConnBeginTx
}

func (c *prePingConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	if queryer, ok := c.Conn.(driver.QueryerContext); ok {
		return queryer.QueryContext(ctx, query, args)
	}

	return nil, driver.ErrSkip
}

func (c *prePingConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	if execer, ok := c.Conn.(driver.ExecerContext); ok {
		return execer.ExecContext(ctx, query, args)
	}

	return nil, driver.ErrSkip
}

func (c *prePingConn) CheckNamedValue(value *driver.NamedValue) error {
	if checker, ok := c.Conn.(driver.NamedValueChecker); ok {
		return checker.CheckNamedValue(value)
	}

	return driver.ErrSkip
}
