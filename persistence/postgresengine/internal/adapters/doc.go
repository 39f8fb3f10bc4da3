// Package adapters provide database adapter implementations for the PostgreSQL engine.
//
// This package implements the adapter pattern to support multiple PostgreSQL database libraries:
// pgxpool.Pool, sql.DB, and sqlx.DB. All adapters provide equivalent functionality through
// a common DBAdapter interface: checking out a connection, running statements on it,
// demarcating transactions and reporting pool statistics.
//
// It also contains the driver.Connector wrappers used when the engine builds a database/sql pool
// itself: one that defers DSN parsing to the first connection attempt and one that probes
// every pooled connection before it is reused (pre-ping).
package adapters
