package postgresengine

import (
	"github.com/AntonStoeckl/persistence-go/persistence"
)

// Session defaults.
const (
	DefaultAutoFlush  = false
	DefaultAutoCommit = false
)

// SessionOption defines a functional option for configuring a SessionFactory.
type SessionOption func(*SessionFactory)

// WithAutoFlush makes sessions flush pending changes before every Get and Find.
func WithAutoFlush(enabled bool) SessionOption {
	return func(f *SessionFactory) {
		f.autoFlush = enabled
	}
}

// WithAutoCommit makes sessions commit after every flush and after reads.
func WithAutoCommit(enabled bool) SessionOption {
	return func(f *SessionFactory) {
		f.autoCommit = enabled
	}
}

// SessionFactory produces independent sessions bound to one Engine and one Registry.
// It is safe for concurrent use; the sessions it produces are not.
type SessionFactory struct {
	engine     *Engine
	registry   *persistence.Registry
	builder    statementBuilder
	autoFlush  bool
	autoCommit bool
}

// NewSessionFactory creates a SessionFactory and seals the registry, so every session sees the same mappings.
func (e *Engine) NewSessionFactory(registry *persistence.Registry, options ...SessionOption) (*SessionFactory, error) {
	if registry == nil {
		return nil, persistence.ErrNilRegistry
	}

	f := &SessionFactory{
		engine:     e,
		registry:   registry,
		builder:    newStatementBuilder(),
		autoFlush:  DefaultAutoFlush,
		autoCommit: DefaultAutoCommit,
	}

	for _, option := range options {
		option(f)
	}

	registry.Seal()

	return f, nil
}

// NewSession returns a new Session. No connection is checked out until the session first needs the database.
func (f *SessionFactory) NewSession() *Session {
	return &Session{
		factory:   f,
		engine:    f.engine,
		identity:  make(map[string]*entityState),
		byPointer: make(map[any]*entityState),
	}
}

// Engine returns the engine all sessions of this factory use.
func (f *SessionFactory) Engine() *Engine {
	return f.engine
}

// Registry returns the mapping registry all sessions of this factory use.
func (f *SessionFactory) Registry() *persistence.Registry {
	return f.registry
}

// AutoFlush reports whether sessions flush before every Get and Find.
func (f *SessionFactory) AutoFlush() bool {
	return f.autoFlush
}

// AutoCommit reports whether sessions commit after every flush and after reads.
func (f *SessionFactory) AutoCommit() bool {
	return f.autoCommit
}
