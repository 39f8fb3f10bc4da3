// Package postgreswrapper provides engines on a real PostgreSQL database for integration tests.
//
// The database is taken from DATABASE_URL (or a .env file); tests are skipped when it is not set.
// The pool implementation is selected with the ADAPTER_TYPE environment variable:
//
//	pgxpool  native pgx pool (default)
//	sqldb    database/sql
//	sqlx     sqlx on database/sql
package postgreswrapper
