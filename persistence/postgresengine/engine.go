package postgresengine

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/AntonStoeckl/persistence-go/persistence"
	"github.com/AntonStoeckl/persistence-go/persistence/postgresengine/internal/adapters"
)

// Driver names accepted by WithDriver.
const (
	DriverLibPQ = "postgres"
	DriverPGX   = "pgx"
)

// Pool defaults.
const (
	DefaultPoolSize    = 10
	DefaultMaxOverflow = 20
	DefaultPrePing     = true
	DefaultEcho        = false
	DefaultPoolTimeout = 30 * time.Second

	unlimitedOverflow      = -1
	defaultMaxConnIdleTime = 5 * time.Minute
)

// Engine is the pooled connection manager. It is safe for concurrent use.
//
// An Engine is created eagerly but connects lazily: no physical connection is opened
// before the first checkout, so connectivity problems surface there and not at construction.
type Engine struct {
	db               adapters.DBAdapter
	ownsPool         bool
	closed           atomic.Bool
	driverName       string
	poolSize         int
	maxOverflow      int
	prePing          bool
	echo             bool
	poolTimeout      time.Duration
	poolRecycle      time.Duration
	logger           persistence.Logger
	contextualLogger persistence.ContextualLogger
	metricsCollector persistence.MetricsCollector
	tracingCollector persistence.TracingCollector
}

// NewEngine creates an Engine owning a database/sql pool for dsn.
// The dsn is handed to the driver (DriverLibPQ unless WithDriver says otherwise) at the first connection attempt.
func NewEngine(dsn string, options ...Option) (*Engine, error) {
	e, err := newEngine(options...)
	if err != nil {
		return nil, err
	}

	d, err := driverFor(e.driverName)
	if err != nil {
		return nil, err
	}

	db := sql.OpenDB(e.wrapConnector(adapters.NewDSNConnector(d, dsn)))
	e.configureSQLDB(db)
	e.db = adapters.NewSQLAdapter(db)
	e.ownsPool = true

	return e, nil
}

// NewEngineFromConnector creates an Engine owning a database/sql pool that opens connections through connector.
func NewEngineFromConnector(connector driver.Connector, options ...Option) (*Engine, error) {
	if connector == nil {
		return nil, persistence.ErrNilDatabaseConnection
	}

	e, err := newEngine(options...)
	if err != nil {
		return nil, err
	}

	db := sql.OpenDB(e.wrapConnector(connector))
	e.configureSQLDB(db)
	e.db = adapters.NewSQLAdapter(db)
	e.ownsPool = true

	return e, nil
}

// NewSQLXEngine creates an Engine owning a pool for dsn that is driven through sqlx.
func NewSQLXEngine(dsn string, options ...Option) (*Engine, error) {
	e, err := newEngine(options...)
	if err != nil {
		return nil, err
	}

	d, err := driverFor(e.driverName)
	if err != nil {
		return nil, err
	}

	db := sqlx.NewDb(sql.OpenDB(e.wrapConnector(adapters.NewDSNConnector(d, dsn))), e.driverName)
	e.configureSQLDB(db.DB)
	e.db = adapters.NewSQLXAdapter(db)
	e.ownsPool = true

	return e, nil
}

// NewPGXEngine creates an Engine owning a native pgx pool for dsn.
// The pool is built on the first checkout, which is also where a malformed dsn is reported.
func NewPGXEngine(dsn string, options ...Option) (*Engine, error) {
	e, err := newEngine(options...)
	if err != nil {
		return nil, err
	}

	e.driverName = DriverPGX
	e.db = adapters.NewLazyPGXAdapter(func() (*pgxpool.Pool, error) {
		config, parseErr := pgxpool.ParseConfig(dsn)
		if parseErr != nil {
			return nil, parseErr
		}

		e.configurePGXPool(config)

		return pgxpool.NewWithConfig(context.Background(), config)
	})
	e.ownsPool = true

	return e, nil
}

// NewEngineFromPGXPool creates an Engine on a caller-owned pgx Pool.
// The pool keeps its own limits and health checking; Close does not close it.
func NewEngineFromPGXPool(pool *pgxpool.Pool, options ...Option) (*Engine, error) {
	if pool == nil {
		return nil, persistence.ErrNilDatabaseConnection
	}

	e, err := newEngine(options...)
	if err != nil {
		return nil, err
	}

	e.driverName = DriverPGX
	e.db = adapters.NewPGXAdapter(pool)

	return e, nil
}

// NewEngineFromSQLDB creates an Engine on a caller-owned sql.DB and applies the pool limits to it.
// Close does not close it.
func NewEngineFromSQLDB(db *sql.DB, options ...Option) (*Engine, error) {
	if db == nil {
		return nil, persistence.ErrNilDatabaseConnection
	}

	e, err := newEngine(options...)
	if err != nil {
		return nil, err
	}

	e.configureSQLDB(db)
	e.db = adapters.NewSQLAdapter(db)

	return e, nil
}

// NewEngineFromSQLX creates an Engine on a caller-owned sqlx.DB and applies the pool limits to it.
// Close does not close it.
func NewEngineFromSQLX(db *sqlx.DB, options ...Option) (*Engine, error) {
	if db == nil {
		return nil, persistence.ErrNilDatabaseConnection
	}

	e, err := newEngine(options...)
	if err != nil {
		return nil, err
	}

	e.driverName = db.DriverName()
	e.configureSQLDB(db.DB)
	e.db = adapters.NewSQLXAdapter(db)

	return e, nil
}

func newEngine(options ...Option) (*Engine, error) {
	e := &Engine{
		driverName:  DriverLibPQ,
		poolSize:    DefaultPoolSize,
		maxOverflow: DefaultMaxOverflow,
		prePing:     DefaultPrePing,
		echo:        DefaultEcho,
		poolTimeout: DefaultPoolTimeout,
	}

	for _, option := range options {
		if err := option(e); err != nil {
			return nil, err
		}
	}

	return e, nil
}

func driverFor(name string) (driver.Driver, error) {
	switch name {
	case DriverLibPQ:
		return &pq.Driver{}, nil
	case DriverPGX:
		return stdlib.GetDefaultDriver(), nil
	default:
		return nil, errors.Join(persistence.ErrUnsupportedDriver, fmt.Errorf("driver %q", name))
	}
}

func (e *Engine) wrapConnector(connector driver.Connector) driver.Connector {
	if !e.prePing {
		return connector
	}

	return adapters.NewPrePingConnector(connector)
}

// configureSQLDB applies the limits: at most MaxConnections open, PoolSize of them kept idle,
// so overflow connections are closed when returned.
func (e *Engine) configureSQLDB(db *sql.DB) {
	db.SetMaxOpenConns(e.MaxConnections())

	maxIdle := e.poolSize
	if maxIdle == 0 {
		maxIdle = e.MaxConnections()
	}
	db.SetMaxIdleConns(maxIdle)

	if e.poolRecycle > 0 {
		db.SetConnMaxLifetime(e.poolRecycle)
	}
}

// configurePGXPool applies the limits to a pgx pool config. pgx has no idle cap, so overflow
// connections are reclaimed by the idle timeout instead.
func (e *Engine) configurePGXPool(config *pgxpool.Config) {
	if maxConns := e.MaxConnections(); maxConns > 0 {
		config.MaxConns = int32(maxConns) //nolint:gosec // bounded by configuration
	}

	config.MinConns = 0
	config.MaxConnIdleTime = defaultMaxConnIdleTime

	if e.poolRecycle > 0 {
		config.MaxConnLifetime = e.poolRecycle
	}

	if e.prePing {
		config.BeforeAcquire = func(ctx context.Context, conn *pgx.Conn) bool {
			return conn.Ping(ctx) == nil
		}
	}
}

// PoolSize returns the number of idle connections retained for reuse.
func (e *Engine) PoolSize() int {
	return e.poolSize
}

// MaxOverflow returns the number of connections allowed above the pool size, -1 for unlimited.
func (e *Engine) MaxOverflow() int {
	return e.maxOverflow
}

// MaxConnections returns the upper bound of concurrently checked-out connections, 0 for unbounded.
func (e *Engine) MaxConnections() int {
	if e.maxOverflow == unlimitedOverflow {
		return 0
	}

	return e.poolSize + e.maxOverflow
}

// PrePing reports whether pooled connections are probed before reuse.
func (e *Engine) PrePing() bool {
	return e.prePing
}

// Echo reports whether executed statements are logged.
func (e *Engine) Echo() bool {
	return e.echo
}

// PoolTimeout returns how long a checkout waits for a free connection.
func (e *Engine) PoolTimeout() time.Duration {
	return e.poolTimeout
}

// DriverName returns the database/sql driver name, or DriverPGX for native pgx pools.
func (e *Engine) DriverName() string {
	return e.driverName
}

// Stats returns a snapshot of the pool.
func (e *Engine) Stats() persistence.PoolStats {
	return e.db.Stats()
}

// Ping checks out a connection and verifies the database is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	if e.closed.Load() {
		return errors.Join(persistence.ErrCheckoutFailed, persistence.ErrEngineClosed)
	}

	if err := e.db.Ping(ctx); err != nil {
		e.logError(ctx, logMsgPingFailed, err)
		return errors.Join(persistence.ErrCheckoutFailed, err)
	}

	return nil
}

// Close disposes a pool the engine created. Caller-owned pools are left open.
// After Close every checkout fails with persistence.ErrEngineClosed; closing again is a no-op.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) || !e.ownsPool {
		return nil
	}

	return e.db.Close()
}

// Connect checks out a raw connection. The caller must Close it to return it to the pool.
func (e *Engine) Connect(ctx context.Context) (*Connection, error) {
	conn, err := e.acquire(ctx)
	if err != nil {
		return nil, err
	}

	return &Connection{engine: e, conn: conn}, nil
}

// acquire checks out a connection, waiting at most the pool timeout.
func (e *Engine) acquire(ctx context.Context) (adapters.DBConn, error) {
	if e.closed.Load() {
		e.logError(ctx, logMsgCheckoutFailed, persistence.ErrEngineClosed)
		return nil, errors.Join(persistence.ErrCheckoutFailed, persistence.ErrEngineClosed)
	}

	ctx, span := e.startTraceSpan(ctx, spanNameCheckout, map[string]string{spanAttrOperation: operationCheckout})

	acquireCtx := ctx
	if e.poolTimeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, e.poolTimeout)
		defer cancel()
	}

	start := time.Now()
	conn, err := e.db.Acquire(acquireCtx)
	duration := time.Since(start)

	if err != nil {
		sentinel := persistence.ErrCheckoutFailed
		errorType := errorTypeCheckout

		if ctx.Err() == nil && errors.Is(acquireCtx.Err(), context.DeadlineExceeded) {
			sentinel = persistence.ErrPoolTimeout
			errorType = errorTypePoolTimeout
		}

		e.logError(ctx, logMsgCheckoutFailed, err, logAttrDurationMS, e.toMilliseconds(duration))
		e.recordErrorMetrics(ctx, operationCheckout, errorType)
		e.recordDurationMetrics(ctx, metricCheckoutDuration, duration, operationCheckout, statusError)
		e.finishTraceSpan(span, statusError, map[string]string{spanAttrErrorType: errorType})

		return nil, errors.Join(sentinel, err)
	}

	e.recordDurationMetrics(ctx, metricCheckoutDuration, duration, operationCheckout, statusSuccess)
	e.recordPoolUtilisation(ctx)
	e.finishTraceSpan(span, statusSuccess, nil)

	return conn, nil
}

// release returns a connection to the pool; failures are only logged.
func (e *Engine) release(ctx context.Context, conn adapters.DBConn) {
	if err := conn.Release(); err != nil {
		e.logWarn(ctx, logMsgReleaseFailed, logAttrError, err.Error())
	}

	e.recordPoolUtilisation(ctx)
}

// query runs a statement returning rows on q and echoes it when configured.
func (e *Engine) query(
	ctx context.Context,
	q adapters.Querier,
	action string,
	sqlQuery string,
	args []any,
) (adapters.DBRows, error) {

	start := time.Now()
	rows, err := q.Query(ctx, sqlQuery, args...)
	duration := time.Since(start)
	e.echoStatement(ctx, action, sqlQuery, duration)
	e.recordDurationMetrics(ctx, metricStatementDuration, duration, action, statusFor(err))

	if err != nil {
		e.logError(ctx, logMsgDBQueryFailed, err, logAttrQuery, sqlQuery)
		e.recordErrorMetrics(ctx, action, errorTypeQuery)

		return nil, errors.Join(persistence.ErrQueryingFailed, err)
	}

	return rows, nil
}

// exec runs a statement on q, echoes it when configured and returns the affected row count.
func (e *Engine) exec(
	ctx context.Context,
	q adapters.Querier,
	action string,
	sqlQuery string,
	args []any,
) (int64, error) {

	start := time.Now()
	result, err := q.Exec(ctx, sqlQuery, args...)
	duration := time.Since(start)
	e.echoStatement(ctx, action, sqlQuery, duration)
	e.recordDurationMetrics(ctx, metricStatementDuration, duration, action, statusFor(err))

	if err != nil {
		e.logError(ctx, logMsgDBExecFailed, err, logAttrQuery, sqlQuery)
		e.recordErrorMetrics(ctx, action, errorTypeExec)

		return 0, errors.Join(persistence.ErrExecutingFailed, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		e.logError(ctx, logMsgRowsAffectedFailed, err)

		return 0, errors.Join(persistence.ErrGettingRowsAffected, err)
	}

	return rowsAffected, nil
}
