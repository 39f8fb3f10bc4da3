package postgresengine

import (
	"time"

	"github.com/AntonStoeckl/persistence-go/persistence"
)

// Option defines a functional option for configuring an Engine.
type Option func(*Engine) error

// WithPoolSize sets the number of idle connections the pool retains for reuse.
func WithPoolSize(size int) Option {
	return func(e *Engine) error {
		if size < 0 {
			return persistence.ErrInvalidPoolSize
		}

		e.poolSize = size

		return nil
	}
}

// WithMaxOverflow sets how many connections may be opened above the pool size under load.
// -1 allows unlimited overflow.
func WithMaxOverflow(overflow int) Option {
	return func(e *Engine) error {
		if overflow < unlimitedOverflow {
			return persistence.ErrInvalidMaxOverflow
		}

		e.maxOverflow = overflow

		return nil
	}
}

// WithPrePing enables or disables the liveness probe of pooled connections before reuse.
func WithPrePing(enabled bool) Option {
	return func(e *Engine) error {
		e.prePing = enabled
		return nil
	}
}

// WithEcho enables or disables logging of every executed statement at info level.
// Echo has no effect without a Logger or ContextualLogger.
func WithEcho(enabled bool) Option {
	return func(e *Engine) error {
		e.echo = enabled
		return nil
	}
}

// WithPoolTimeout bounds how long a checkout waits for a free connection.
// A non-positive timeout waits as long as the caller's context allows.
func WithPoolTimeout(timeout time.Duration) Option {
	return func(e *Engine) error {
		e.poolTimeout = timeout
		return nil
	}
}

// WithPoolRecycle closes connections that have been open longer than the given duration.
// Zero disables recycling.
func WithPoolRecycle(maxLifetime time.Duration) Option {
	return func(e *Engine) error {
		e.poolRecycle = maxLifetime
		return nil
	}
}

// WithDriver selects the database/sql driver used by NewEngine and NewSQLXEngine: DriverLibPQ or DriverPGX.
func WithDriver(name string) Option {
	return func(e *Engine) error {
		if _, err := driverFor(name); err != nil {
			return err
		}

		e.driverName = name

		return nil
	}
}

// WithLogger sets the logger for the Engine and its sessions.
// The logger will receive messages at different levels:
//
// Info level: executed statements when echo is enabled, flush and commit summaries
// Warn level: non-critical issues like failures while returning a connection
// Error level: failures that cause an operation to fail.
func WithLogger(logger persistence.Logger) Option {
	return func(e *Engine) error {
		e.logger = logger
		return nil
	}
}

// WithContextualLogger sets the context-aware logger for the Engine and its sessions.
// It receives the same messages as the Logger, with the operation's context for trace correlation.
func WithContextualLogger(logger persistence.ContextualLogger) Option {
	return func(e *Engine) error {
		e.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Engine.
// It receives checkout, statement, flush and commit durations, pool utilisation and error counts.
func WithMetrics(collector persistence.MetricsCollector) Option {
	return func(e *Engine) error {
		e.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Engine.
// Spans are created for checkouts, flushes, commits and rollbacks.
func WithTracing(collector persistence.TracingCollector) Option {
	return func(e *Engine) error {
		e.tracingCollector = collector
		return nil
	}
}
