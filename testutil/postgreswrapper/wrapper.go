package postgreswrapper

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/persistence-go/config"
	"github.com/AntonStoeckl/persistence-go/persistence/postgresengine"
)

// Adapter type constants
const (
	typePGXPool = "pgxpool"
	typeSQLDB   = "sqldb"
	typeSQLX    = "sqlx"

	envAdapterType = "ADAPTER_TYPE"
)

const createTodosTable = `CREATE TABLE IF NOT EXISTS todos (
	id        BIGSERIAL PRIMARY KEY,
	title     TEXT      NOT NULL,
	completed BOOLEAN   NOT NULL DEFAULT FALSE
)`

// Wrapper abstracts over the caller-owned pool types an engine can run on.
type Wrapper interface {
	GetEngine() *postgresengine.Engine
	Close()
}

// PGXPoolWrapper wraps pgxpool-based testing
type PGXPoolWrapper struct {
	pool   *pgxpool.Pool
	engine *postgresengine.Engine
}

func (w *PGXPoolWrapper) GetEngine() *postgresengine.Engine {
	return w.engine
}

func (w *PGXPoolWrapper) Close() {
	w.pool.Close()
}

// SQLDBWrapper wraps sql.DB-based testing
type SQLDBWrapper struct {
	db     *sql.DB
	engine *postgresengine.Engine
}

func (w *SQLDBWrapper) GetEngine() *postgresengine.Engine {
	return w.engine
}

func (w *SQLDBWrapper) Close() {
	_ = w.db.Close() // ignore error
}

// SQLXWrapper wraps sqlx.DB-based testing
type SQLXWrapper struct {
	db     *sqlx.DB
	engine *postgresengine.Engine
}

func (w *SQLXWrapper) GetEngine() *postgresengine.Engine {
	return w.engine
}

func (w *SQLXWrapper) Close() {
	_ = w.db.Close() // ignore error
}

// SettingsOrSkip returns the settings from the environment and skips the test when DATABASE_URL is not set.
func SettingsOrSkip(t testing.TB) config.Settings {
	t.Helper()

	settings, err := config.FromEnv()
	require.NoError(t, err, "error reading the database settings")

	if settings.DatabaseURL == "" {
		t.Skip(config.EnvDatabaseURL + " is not set, skipping integration test")
	}

	return settings
}

// CreateWrapperWithTestConfig creates the wrapper selected by ADAPTER_TYPE, makes sure the todos table exists
// and closes the pool when the test ends.
func CreateWrapperWithTestConfig(t testing.TB, options ...postgresengine.Option) Wrapper {
	t.Helper()

	settings := SettingsOrSkip(t)

	var wrapper Wrapper

	switch adapterType := strings.ToLower(os.Getenv(envAdapterType)); adapterType {
	case typePGXPool, "":
		pool, err := config.PostgresPGXPool(context.Background(), settings)
		require.NoError(t, err, "error creating the pgx pool in test setup")

		engine, err := postgresengine.NewEngineFromPGXPool(pool, options...)
		require.NoError(t, err)

		wrapper = &PGXPoolWrapper{pool: pool, engine: engine}

	case typeSQLDB:
		db, err := config.PostgresSQLDB(settings)
		require.NoError(t, err, "error opening sql.DB in test setup")

		engine, err := postgresengine.NewEngineFromSQLDB(db, options...)
		require.NoError(t, err)

		wrapper = &SQLDBWrapper{db: db, engine: engine}

	case typeSQLX:
		db, err := config.PostgresSQLX(settings)
		require.NoError(t, err, "error opening sqlx.DB in test setup")

		engine, err := postgresengine.NewEngineFromSQLX(db, options...)
		require.NoError(t, err)

		wrapper = &SQLXWrapper{db: db, engine: engine}

	default: // neither one of the known types nor empty
		panic(fmt.Sprintf("unsupported wrapper type from env: %s", adapterType))
	}

	t.Cleanup(wrapper.Close)
	exec(t, wrapper, createTodosTable)

	return wrapper
}

// CleanUp empties the todos table.
func CleanUp(t testing.TB, wrapper Wrapper) {
	t.Helper()

	exec(t, wrapper, "TRUNCATE TABLE todos RESTART IDENTITY")
}

// UniqueTitle returns a todo title no other test run uses, so tests can share the table.
func UniqueTitle() string {
	return "todo-" + uuid.NewString()
}

// CountTodosWithTitle counts the committed rows with the given title, on a connection of its own.
func CountTodosWithTitle(t testing.TB, wrapper Wrapper, title string) int {
	t.Helper()

	ctx := context.Background()

	conn, err := wrapper.GetEngine().Connect(ctx)
	require.NoError(t, err, "error checking out a connection")
	defer func() { _ = conn.Close() }()

	rows, err := conn.Query(ctx, "SELECT count(*) FROM todos WHERE title = $1", title)
	require.NoError(t, err, "error counting todos")
	defer func() { _ = rows.Close() }()

	var count int
	require.True(t, rows.Next(), "count returned no row")
	require.NoError(t, rows.Scan(&count))

	return count
}

func exec(t testing.TB, wrapper Wrapper, statement string) {
	t.Helper()

	ctx := context.Background()

	conn, err := wrapper.GetEngine().Connect(ctx)
	require.NoError(t, err, "error checking out a connection")
	defer func() { _ = conn.Close() }()

	_, err = conn.Exec(ctx, statement)
	require.NoError(t, err, "error executing %q", statement)
}
