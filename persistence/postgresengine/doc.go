// Package postgresengine provides the PostgreSQL engine: a pooled connection manager,
// raw connection checkout, and the session factory producing units of work.
//
// The engine supports multiple database adapters (database/sql with lib/pq or pgx stdlib,
// sqlx, native pgxpool). Constructing an engine never opens a connection:
// an empty or malformed connection string surfaces at the first checkout.
//
// Key features:
//   - Bounded pool: base size plus overflow (10 + 20 by default), overflow connections reclaimed when idle
//   - Pre-ping: pooled connections are probed before reuse and silently replaced when dead
//   - Optional statement echo through the configured logger
//   - Sessions that never flush or commit implicitly unless configured to
//   - Optional logging, metrics and tracing through dependency-free interfaces
//
// Usage examples:
//
//	// Engine owning a database/sql pool (lib/pq driver)
//	engine, _ := postgresengine.NewEngine(os.Getenv("DATABASE_URL"))
//
//	// With operational logging and statement echo
//	engine, _ := postgresengine.NewEngine(
//		dsn,
//		postgresengine.WithLogger(slog.Default()),
//		postgresengine.WithEcho(true),
//	)
//
//	// Native pgx pool with a larger overflow
//	engine, _ := postgresengine.NewPGXEngine(dsn, postgresengine.WithMaxOverflow(40))
//
//	sessions, _ := engine.NewSessionFactory(registry)
//	session := sessions.NewSession()
//	defer session.Close(ctx)
package postgresengine
