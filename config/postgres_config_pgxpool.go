package config

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresPGXPoolConfig creates a pgxpool.Config for the settings' connection string with the settings' limits.
func PostgresPGXPoolConfig(settings Settings) (*pgxpool.Config, error) {
	const defaultMaxConnIdleTime = time.Minute * 5
	const defaultHealthCheckPeriod = time.Minute
	const defaultConnectTimeout = time.Second * 5

	dbConfig, err := pgxpool.ParseConfig(settings.DatabaseURL)
	if err != nil {
		return nil, err
	}

	if maxConns := settings.MaxConnections(); maxConns > 0 {
		dbConfig.MaxConns = int32(maxConns) //nolint:gosec // bounded by configuration
	}

	dbConfig.MinConns = 0
	dbConfig.MaxConnIdleTime = defaultMaxConnIdleTime
	dbConfig.HealthCheckPeriod = defaultHealthCheckPeriod
	dbConfig.ConnConfig.ConnectTimeout = defaultConnectTimeout

	return dbConfig, nil
}

// PostgresPGXPool creates a caller-owned pgxpool.Pool. No connection is opened before the first use.
func PostgresPGXPool(ctx context.Context, settings Settings) (*pgxpool.Pool, error) {
	dbConfig, err := PostgresPGXPoolConfig(settings)
	if err != nil {
		return nil, err
	}

	return pgxpool.NewWithConfig(ctx, dbConfig)
}
