// Package fakedriver is an in-memory database/sql driver for exercising pool behavior without a database.
//
// It counts physical connections (open, high-water mark, total opened), can refuse new connections,
// and can break every open connection to simulate a database restart. Every query returns the single
// row (1); every exec affects one row.
package fakedriver

import (
	"context"
	"database/sql/driver"
	"errors"
	"io"
	"sync"
)

// ErrConnectionBroken is returned by statements on a connection broken with BreakAll.
var ErrConnectionBroken = errors.New("fakedriver: connection reset by peer")

// ErrUnsupported is returned for prepared statements.
var ErrUnsupported = errors.New("fakedriver: not supported")

// Driver implements driver.Driver and driver.Connector. It is safe for concurrent use.
type Driver struct {
	mu         sync.Mutex
	open       int
	maxOpen    int
	opened     int
	connectErr error
	conns      map[*conn]struct{}
	statements []string
}

// New creates a Driver that accepts connections.
func New() *Driver {
	return &Driver{conns: make(map[*conn]struct{})}
}

// Open implements driver.Driver; the name is ignored.
func (d *Driver) Open(_ string) (driver.Conn, error) {
	return d.Connect(context.Background())
}

// Connect implements driver.Connector.
func (d *Driver) Connect(_ context.Context) (driver.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connectErr != nil {
		return nil, d.connectErr
	}

	c := &conn{driver: d}
	d.conns[c] = struct{}{}
	d.open++
	d.opened++
	d.maxOpen = max(d.maxOpen, d.open)

	return c, nil
}

// Driver implements driver.Connector.
func (d *Driver) Driver() driver.Driver {
	return d
}

// FailConnect makes every following connection attempt fail with err; nil restores normal behavior.
func (d *Driver) FailConnect(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connectErr = err
}

// BreakAll breaks every currently open connection: pings and statements on them fail from now on.
func (d *Driver) BreakAll() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for c := range d.conns {
		c.broken = true
	}
}

// OpenConnections returns the number of open physical connections.
func (d *Driver) OpenConnections() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.open
}

// MaxOpenConnections returns the highest number of simultaneously open physical connections.
func (d *Driver) MaxOpenConnections() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.maxOpen
}

// Opened returns the total number of physical connections ever opened.
func (d *Driver) Opened() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.opened
}

// Statements returns every statement sent, including pings issued as "SELECT 1".
func (d *Driver) Statements() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]string(nil), d.statements...)
}

func (d *Driver) record(query string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.statements = append(d.statements, query)
}

func (d *Driver) isBroken(c *conn) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return c.broken
}

func (d *Driver) closeConn(c *conn) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.conns[c]; ok {
		delete(d.conns, c)
		d.open--
	}
}

type conn struct {
	driver *Driver
	broken bool
}

func (c *conn) Prepare(_ string) (driver.Stmt, error) {
	return nil, ErrUnsupported
}

func (c *conn) Close() error {
	c.driver.closeConn(c)
	return nil
}

func (c *conn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

func (c *conn) BeginTx(_ context.Context, _ driver.TxOptions) (driver.Tx, error) {
	if c.driver.isBroken(c) {
		return nil, ErrConnectionBroken
	}

	return tx{}, nil
}

func (c *conn) Ping(_ context.Context) error {
	if c.driver.isBroken(c) {
		return ErrConnectionBroken
	}

	return nil
}

func (c *conn) ExecContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Result, error) {
	if c.driver.isBroken(c) {
		return nil, ErrConnectionBroken
	}

	c.driver.record(query)

	return driver.RowsAffected(1), nil
}

func (c *conn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	if c.driver.isBroken(c) {
		return nil, ErrConnectionBroken
	}

	c.driver.record(query)

	return &rows{}, nil
}

type tx struct{}

func (tx) Commit() error   { return nil }
func (tx) Rollback() error { return nil }

type rows struct {
	done bool
}

func (r *rows) Columns() []string {
	return []string{"one"}
}

func (r *rows) Close() error {
	return nil
}

func (r *rows) Next(dest []driver.Value) error {
	if r.done {
		return io.EOF
	}

	r.done = true
	dest[0] = int64(1)

	return nil
}
