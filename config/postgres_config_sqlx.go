package config

import (
	"time"

	"github.com/jmoiron/sqlx"
)

// PostgresSQLX opens a caller-owned *sqlx.DB with the settings' driver and limits.
func PostgresSQLX(settings Settings) (*sqlx.DB, error) {
	const defaultMaxConnLifetime = time.Hour
	const defaultMaxConnIdleTime = time.Minute * 5

	db, err := sqlx.Open(settings.Driver, settings.DatabaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(settings.MaxConnections())
	db.SetMaxIdleConns(settings.PoolSize)
	db.SetConnMaxLifetime(defaultMaxConnLifetime)
	db.SetConnMaxIdleTime(defaultMaxConnIdleTime)

	return db, nil
}
