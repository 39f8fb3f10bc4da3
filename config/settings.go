package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/AntonStoeckl/persistence-go/persistence"
	"github.com/AntonStoeckl/persistence-go/persistence/postgresengine"
)

// Environment variables.
const (
	EnvDatabaseURL     = "DATABASE_URL"
	EnvDatabaseAdapter = "DATABASE_ADAPTER"
	EnvDatabaseDriver  = "DATABASE_DRIVER"
)

// Adapter types select the pool implementation the engine runs on.
const (
	AdapterSQLDB   = "sql.db"
	AdapterSQLX    = "sqlx.db"
	AdapterPGXPool = "pgx.pool"
)

// Settings is the complete persistence configuration.
// Everything except the connection string is fixed by Defaults unless overridden in code.
type Settings struct {
	DatabaseURL string
	Adapter     string
	Driver      string
	PoolSize    int
	MaxOverflow int
	PrePing     bool
	Echo        bool
	PoolTimeout time.Duration
	AutoFlush   bool
	AutoCommit  bool
}

// Defaults returns the fixed settings with an empty connection string.
func Defaults() Settings {
	return Settings{
		Adapter:     AdapterSQLDB,
		Driver:      postgresengine.DriverLibPQ,
		PoolSize:    postgresengine.DefaultPoolSize,
		MaxOverflow: postgresengine.DefaultMaxOverflow,
		PrePing:     postgresengine.DefaultPrePing,
		Echo:        postgresengine.DefaultEcho,
		PoolTimeout: postgresengine.DefaultPoolTimeout,
		AutoFlush:   postgresengine.DefaultAutoFlush,
		AutoCommit:  postgresengine.DefaultAutoCommit,
	}
}

// FromEnv returns Defaults with the connection string taken from DATABASE_URL.
// The given env files (".env" if none) are loaded first; missing files are ignored and variables
// already set in the process environment win. An unset DATABASE_URL is not an error: the first
// connection attempt reports it.
func FromEnv(envFiles ...string) (Settings, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}

	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Settings{}, err
		}
	}

	settings := Defaults()
	settings.DatabaseURL = os.Getenv(EnvDatabaseURL)

	if adapter := strings.TrimSpace(os.Getenv(EnvDatabaseAdapter)); adapter != "" {
		settings.Adapter = adapter
	}

	if driver := strings.TrimSpace(os.Getenv(EnvDatabaseDriver)); driver != "" {
		settings.Driver = driver
	}

	return settings, settings.Validate()
}

// Validate rejects settings that can never work, independent of database reachability.
func (s Settings) Validate() error {
	switch s.Adapter {
	case AdapterSQLDB, AdapterSQLX, AdapterPGXPool:
	default:
		return errors.Join(persistence.ErrUnsupportedAdapter, errors.New(s.Adapter))
	}

	switch s.Driver {
	case postgresengine.DriverLibPQ, postgresengine.DriverPGX:
	default:
		return errors.Join(persistence.ErrUnsupportedDriver, errors.New(s.Driver))
	}

	if s.PoolSize < 0 {
		return persistence.ErrInvalidPoolSize
	}

	if s.MaxOverflow < -1 {
		return persistence.ErrInvalidMaxOverflow
	}

	return nil
}

// MaxConnections returns PoolSize+MaxOverflow, or 0 (unbounded) when overflow is unlimited.
func (s Settings) MaxConnections() int {
	if s.MaxOverflow < 0 {
		return 0
	}

	return s.PoolSize + s.MaxOverflow
}

// EngineOptions translates the settings into engine options.
func (s Settings) EngineOptions() []postgresengine.Option {
	return []postgresengine.Option{
		postgresengine.WithDriver(s.Driver),
		postgresengine.WithPoolSize(s.PoolSize),
		postgresengine.WithMaxOverflow(s.MaxOverflow),
		postgresengine.WithPrePing(s.PrePing),
		postgresengine.WithEcho(s.Echo),
		postgresengine.WithPoolTimeout(s.PoolTimeout),
	}
}

// SessionOptions translates the settings into session factory options.
func (s Settings) SessionOptions() []postgresengine.SessionOption {
	return []postgresengine.SessionOption{
		postgresengine.WithAutoFlush(s.AutoFlush),
		postgresengine.WithAutoCommit(s.AutoCommit),
	}
}
