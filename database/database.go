// Package database assembles the process-wide persistence handles: one engine, one session factory
// and one mapping registry, configured from config.Settings.
//
// Construction is eager and never touches the network; an empty or malformed connection string is
// reported by the first operation that needs a connection.
package database

import (
	"errors"

	"github.com/AntonStoeckl/persistence-go/config"
	"github.com/AntonStoeckl/persistence-go/persistence"
	"github.com/AntonStoeckl/persistence-go/persistence/postgresengine"
)

// Database bundles the engine, the session factory and the mapping registry.
// It is safe for concurrent use; the sessions it hands out are not.
type Database struct {
	settings config.Settings
	engine   *postgresengine.Engine
	sessions *postgresengine.SessionFactory
	registry *persistence.Registry
}

// New creates the engine for settings.Adapter and a session factory on it, and seals registry.
// Extra options, such as a logger or metrics collector, are applied after the settings.
func New(settings config.Settings, registry *persistence.Registry, options ...postgresengine.Option) (*Database, error) {
	if registry == nil {
		return nil, persistence.ErrNilRegistry
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}

	engineOptions := append(settings.EngineOptions(), options...)

	engine, err := newEngine(settings, engineOptions)
	if err != nil {
		return nil, err
	}

	sessions, err := engine.NewSessionFactory(registry, settings.SessionOptions()...)
	if err != nil {
		return nil, errors.Join(err, engine.Close())
	}

	return &Database{
		settings: settings,
		engine:   engine,
		sessions: sessions,
		registry: registry,
	}, nil
}

// NewFromEnv is New with config.FromEnv settings.
func NewFromEnv(registry *persistence.Registry, options ...postgresengine.Option) (*Database, error) {
	settings, err := config.FromEnv()
	if err != nil {
		return nil, err
	}

	return New(settings, registry, options...)
}

func newEngine(settings config.Settings, options []postgresengine.Option) (*postgresengine.Engine, error) {
	switch settings.Adapter {
	case config.AdapterSQLX:
		return postgresengine.NewSQLXEngine(settings.DatabaseURL, options...)
	case config.AdapterPGXPool:
		return postgresengine.NewPGXEngine(settings.DatabaseURL, options...)
	default:
		return postgresengine.NewEngine(settings.DatabaseURL, options...)
	}
}

// Settings returns the settings the Database was created with.
func (d *Database) Settings() config.Settings {
	return d.settings
}

// Engine returns the pooled connection manager for raw checkouts.
func (d *Database) Engine() *postgresengine.Engine {
	return d.engine
}

// Sessions returns the session factory.
func (d *Database) Sessions() *postgresengine.SessionFactory {
	return d.sessions
}

// Registry returns the sealed mapping registry shared by all sessions.
func (d *Database) Registry() *persistence.Registry {
	return d.registry
}

// NewSession is shorthand for Sessions().NewSession().
func (d *Database) NewSession() *postgresengine.Session {
	return d.sessions.NewSession()
}

// Close closes the pool. Sessions still holding connections fail on their next statement.
func (d *Database) Close() error {
	return d.engine.Close()
}
