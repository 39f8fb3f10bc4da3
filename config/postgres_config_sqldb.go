package config

import (
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	_ "github.com/lib/pq"              // postgres driver
)

// PostgresSQLDB opens a caller-owned *sql.DB with the settings' driver and limits.
// sql.Open does not connect, so an unreachable database is only reported on first use.
func PostgresSQLDB(settings Settings) (*sql.DB, error) {
	const defaultMaxConnLifetime = time.Hour
	const defaultMaxConnIdleTime = time.Minute * 5

	db, err := sql.Open(settings.Driver, settings.DatabaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(settings.MaxConnections())
	db.SetMaxIdleConns(settings.PoolSize)
	db.SetConnMaxLifetime(defaultMaxConnLifetime)
	db.SetConnMaxIdleTime(defaultMaxConnIdleTime)

	return db, nil
}
