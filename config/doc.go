// Package config provides the persistence settings and database connection helpers.
//
// Settings carries the pool and session literals together with the connection string, which is read
// from the DATABASE_URL environment variable, optionally loaded from a .env file.
// The Postgres* helpers build caller-owned pools (pgxpool.Pool, sql.DB, sqlx.DB) with the same limits,
// and NewObservabilityProviders wires OpenTelemetry exporters for services embedding the engine.
package config
