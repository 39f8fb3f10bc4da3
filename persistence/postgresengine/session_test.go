package postgresengine_test

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/persistence-go/persistence"
	"github.com/AntonStoeckl/persistence-go/persistence/postgresengine"
	"github.com/AntonStoeckl/persistence-go/testutil/spies"
)

type todo struct {
	ID        int64  `db:"id,pk,auto"`
	Title     string `db:"title"`
	Completed bool   `db:"completed"`
}

type checklist struct {
	ID     int64     `db:"id,pk"`
	Scores []float64 `db:"scores,json"`
}

type unmapped struct {
	ID int64 `db:"id,pk"`
}

const (
	insertTodo     = `INSERT INTO "todos" ("title", "completed") VALUES ($1, $2) RETURNING "id"`
	selectTodoByID = `SELECT "id", "title", "completed" FROM "todos" WHERE ("id" = $1)`
	selectAllTodos = `SELECT "id", "title", "completed" FROM "todos" ORDER BY "id" ASC`
	updateTodo     = `UPDATE "todos" SET "completed"=$1 WHERE ("id" = $2)`
	deleteTodo     = `DELETE FROM "todos" WHERE ("id" = $1)`

	selectChecklistByID = `SELECT "id", "scores" FROM "checklists" WHERE ("id" = $1)`
)

func todoColumns() []string {
	return []string{"id", "title", "completed"}
}

func newMockSessionFactory(
	t *testing.T,
	engineOptions []postgresengine.Option,
	sessionOptions ...postgresengine.SessionOption,
) (*postgresengine.SessionFactory, sqlmock.Sqlmock) {

	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	engine, err := postgresengine.NewEngineFromSQLDB(db, engineOptions...)
	require.NoError(t, err)

	registry := persistence.NewRegistry()
	registry.MustRegister(&todo{}, "todos")
	registry.MustRegister(&checklist{}, "checklists")

	factory, err := engine.NewSessionFactory(registry, sessionOptions...)
	require.NoError(t, err)

	return factory, mock
}

func newMockSession(t *testing.T, sessionOptions ...postgresengine.SessionOption) (*postgresengine.Session, sqlmock.Sqlmock) {
	t.Helper()

	factory, mock := newMockSessionFactory(t, nil, sessionOptions...)

	return factory.NewSession(), mock
}

func quoted(query string) string {
	return regexp.QuoteMeta(query)
}

func Test_SessionFactory_DefaultsToNoAutoFlushAndNoAutoCommit(t *testing.T) {
	// setup
	factory, _ := newMockSessionFactory(t, nil)

	// assert
	assert.False(t, factory.AutoFlush())
	assert.False(t, factory.AutoCommit())
	assert.True(t, factory.Registry().IsSealed())
	assert.Equal(t, 10, factory.Engine().PoolSize())
}

func Test_SessionFactory_RequiresARegistry(t *testing.T) {
	// setup
	engine, _ := newFakeEngine(t)

	// act
	factory, err := engine.NewSessionFactory(nil)

	// assert
	assert.Nil(t, factory)
	assert.ErrorIs(t, err, persistence.ErrNilRegistry)
}

func Test_SessionFactory_SealsTheRegistry(t *testing.T) {
	// setup
	factory, _ := newMockSessionFactory(t, nil)

	// act
	_, err := factory.Registry().Register(&unmapped{}, "unmapped")

	// assert
	assert.ErrorIs(t, err, persistence.ErrRegistrySealed)
}

func Test_SessionFactory_ProducesIndependentSessions(t *testing.T) {
	// setup
	factory, _ := newMockSessionFactory(t, nil)
	first := factory.NewSession()
	second := factory.NewSession()

	// act
	require.NoError(t, first.Add(&todo{Title: "write tests"}))

	// assert
	assert.NotSame(t, first, second)
	assert.True(t, first.IsDirty())
	assert.False(t, second.IsDirty())
}

func Test_NewSession_DoesNotCheckOutAConnection(t *testing.T) {
	// setup
	factory, mock := newMockSessionFactory(t, nil)

	// act
	session := factory.NewSession()
	require.NoError(t, session.Add(&todo{Title: "write tests"}))

	// assert
	assert.False(t, session.InTransaction())
	assert.Equal(t, 0, factory.Engine().Stats().InUse)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_Commit_InsertsAddedEntitiesAndReadsBackGeneratedColumns(t *testing.T) {
	// setup
	ctx := context.Background()
	session, mock := newMockSession(t)
	entity := &todo{Title: "write tests"}

	mock.ExpectBegin()
	mock.ExpectQuery(quoted(insertTodo)).
		WithArgs("write tests", false).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectCommit()

	// arrange
	require.NoError(t, session.Add(entity))
	assert.Equal(t, postgresengine.PendingChanges{Inserts: 1}, session.Pending())

	// act
	err := session.Commit(ctx)

	// assert
	require.NoError(t, err)
	assert.Equal(t, int64(7), entity.ID)
	assert.False(t, session.IsDirty())
	assert.False(t, session.InTransaction())
	assert.NoError(t, mock.ExpectationsWereMet())

	// act
	loaded, err := postgresengine.Get[todo](ctx, session, 7)

	// assert
	require.NoError(t, err)
	assert.Same(t, entity, loaded, "committed entities stay in the identity map")
}

func Test_Flush_WritesButDoesNotCommit(t *testing.T) {
	// setup
	ctx := context.Background()
	session, mock := newMockSession(t)
	entity := &todo{Title: "write tests"}

	mock.ExpectBegin()
	mock.ExpectQuery(quoted(insertTodo)).
		WithArgs("write tests", false).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectRollback()

	// arrange
	require.NoError(t, session.Add(entity))

	// act
	err := session.Flush(ctx)

	// assert
	require.NoError(t, err)
	assert.True(t, session.InTransaction())
	assert.False(t, session.IsDirty())
	assert.Equal(t, int64(7), entity.ID)

	// act
	err = session.Close(ctx)

	// assert
	require.NoError(t, err)
	assert.Equal(t, int64(0), entity.ID, "generated keys of rolled back inserts are reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_Add_IsANoOpForStagedOrPersistentEntities(t *testing.T) {
	// setup
	ctx := context.Background()
	session, mock := newMockSession(t)
	entity := &todo{Title: "write tests"}

	mock.ExpectBegin()
	mock.ExpectQuery(quoted(insertTodo)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectCommit()

	// act
	require.NoError(t, session.Add(entity))
	require.NoError(t, session.Add(entity))
	require.NoError(t, session.Commit(ctx))
	require.NoError(t, session.Add(entity))

	// assert
	assert.False(t, session.IsDirty())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_Add_RejectsInvalidEntities(t *testing.T) {
	// setup
	session, _ := newMockSession(t)

	// act & assert
	assert.ErrorIs(t, session.Add(&unmapped{}), persistence.ErrUnmappedEntity)
	assert.ErrorIs(t, session.Add(todo{Title: "by value"}), persistence.ErrNotAStruct)
	assert.ErrorIs(t, session.Add((*todo)(nil)), persistence.ErrNotAStruct)
	assert.ErrorIs(t, session.Add("todo"), persistence.ErrNotAStruct)
	assert.False(t, session.IsDirty())
}

func Test_Delete_OfAStagedEntityCancelsTheInsert(t *testing.T) {
	// setup
	session, mock := newMockSession(t)
	entity := &todo{Title: "write tests"}
	require.NoError(t, session.Add(entity))

	// act
	err := session.Delete(entity)

	// assert
	require.NoError(t, err)
	assert.False(t, session.IsDirty())
	assert.NoError(t, session.Commit(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_Delete_RejectsTransientEntities(t *testing.T) {
	// setup
	session, _ := newMockSession(t)

	// act & assert
	assert.ErrorIs(t, session.Delete(&todo{ID: 3}), persistence.ErrNotPersistent)
	assert.ErrorIs(t, session.Delete(todo{ID: 3}), persistence.ErrNotAStruct)
}

func Test_Get_UsesTheIdentityMap(t *testing.T) {
	// setup
	ctx := context.Background()
	session, mock := newMockSession(t)

	mock.ExpectBegin()
	mock.ExpectQuery(quoted(selectTodoByID)).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(todoColumns()).AddRow(int64(3), "write tests", false))

	// act
	first, err := postgresengine.Get[todo](ctx, session, 3)
	require.NoError(t, err)
	second, err := postgresengine.Get[todo](ctx, session, int64(3))
	require.NoError(t, err)

	// assert
	assert.Equal(t, &todo{ID: 3, Title: "write tests"}, first)
	assert.Same(t, first, second, "one row is represented by one instance per session")
	assert.True(t, session.InTransaction(), "reads begin the session transaction")
	assert.False(t, session.IsDirty())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_Get_ReportsMissingRows(t *testing.T) {
	// setup
	ctx := context.Background()
	session, mock := newMockSession(t)

	mock.ExpectBegin()
	mock.ExpectQuery(quoted(selectTodoByID)).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows(todoColumns()))

	// act
	entity, err := postgresengine.Get[todo](ctx, session, 4)

	// assert
	assert.Nil(t, entity)
	assert.ErrorIs(t, err, persistence.ErrEntityNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_Get_RejectsInvalidKeysWithoutQuerying(t *testing.T) {
	// setup
	ctx := context.Background()
	session, mock := newMockSession(t)

	// act
	_, arityErr := postgresengine.Get[todo](ctx, session, 1, 2)
	_, typeErr := postgresengine.Get[todo](ctx, session, "one")
	_, unmappedErr := postgresengine.Get[unmapped](ctx, session, 1)

	// assert
	assert.ErrorIs(t, arityErr, persistence.ErrInvalidPrimaryKey)
	assert.ErrorIs(t, typeErr, persistence.ErrInvalidPrimaryKey)
	assert.ErrorIs(t, unmappedErr, persistence.ErrUnmappedEntity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_Find_LoadsMatchingRowsInPrimaryKeyOrder(t *testing.T) {
	// setup
	ctx := context.Background()
	session, mock := newMockSession(t)

	mock.ExpectBegin()
	mock.ExpectQuery(quoted(`SELECT "id", "title", "completed" FROM "todos" WHERE ("title" = $1) ORDER BY "id" ASC`)).
		WithArgs("write tests").
		WillReturnRows(sqlmock.NewRows(todoColumns()).
			AddRow(int64(1), "write tests", false).
			AddRow(int64(2), "write tests", true))

	// act
	found, err := postgresengine.Find[todo](ctx, session, persistence.Where{"title": "write tests"})

	// assert
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, int64(1), found[0].ID)
	assert.Equal(t, int64(2), found[1].ID)
	assert.True(t, found[1].Completed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_Find_RejectsUnknownColumns(t *testing.T) {
	// setup
	session, mock := newMockSession(t)

	// act
	found, err := postgresengine.Find[todo](context.Background(), session, persistence.Where{"owner": "me"})

	// assert
	assert.Nil(t, found)
	assert.ErrorIs(t, err, persistence.ErrUnknownColumn)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_Commit_UpdatesOnlyModifiedColumns(t *testing.T) {
	// setup
	ctx := context.Background()
	session, mock := newMockSession(t)

	mock.ExpectBegin()
	mock.ExpectQuery(quoted(selectTodoByID)).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(todoColumns()).AddRow(int64(3), "write tests", false))
	mock.ExpectExec(quoted(updateTodo)).
		WithArgs(true, int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	entity, err := postgresengine.Get[todo](ctx, session, 3)
	require.NoError(t, err)

	// arrange
	entity.Completed = true
	assert.True(t, session.IsDirty())
	assert.Equal(t, postgresengine.PendingChanges{Updates: 1}, session.Pending())

	// act
	err = session.Commit(ctx)

	// assert
	require.NoError(t, err)
	assert.False(t, session.IsDirty())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_Commit_DeletesStagedEntities(t *testing.T) {
	// setup
	ctx := context.Background()
	session, mock := newMockSession(t)

	mock.ExpectBegin()
	mock.ExpectQuery(quoted(selectTodoByID)).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(todoColumns()).AddRow(int64(3), "write tests", false))
	mock.ExpectExec(quoted(deleteTodo)).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	entity, err := postgresengine.Get[todo](ctx, session, 3)
	require.NoError(t, err)

	// arrange
	require.NoError(t, session.Delete(entity))
	_, err = postgresengine.Get[todo](ctx, session, 3)
	assert.ErrorIs(t, err, persistence.ErrEntityNotFound, "staged deletes are hidden from reads")

	// act
	err = session.Commit(ctx)

	// assert
	require.NoError(t, err)
	assert.Equal(t, postgresengine.PendingChanges{}, session.Pending())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_Flush_ReportsStaleEntitiesAndRollsBack(t *testing.T) {
	// setup
	ctx := context.Background()
	tracingSpy := spies.NewTracingCollectorSpy()
	factory, mock := newMockSessionFactory(t, []postgresengine.Option{postgresengine.WithTracing(tracingSpy)})
	session := factory.NewSession()

	mock.ExpectBegin()
	mock.ExpectQuery(quoted(selectTodoByID)).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(todoColumns()).AddRow(int64(3), "write tests", false))
	mock.ExpectExec(quoted(updateTodo)).
		WithArgs(true, int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	entity, err := postgresengine.Get[todo](ctx, session, 3)
	require.NoError(t, err)
	entity.Completed = true

	// act
	err = session.Flush(ctx)

	// assert
	assert.ErrorIs(t, err, persistence.ErrStaleEntity)
	assert.False(t, session.InTransaction())
	assert.False(t, session.IsDirty(), "a failed flush discards the unit of work")
	assert.True(t, tracingSpy.HasSpanRecordForName("persistence.flush").
		WithStatus("error").
		WithEndAttribute("entity_count", "0").
		WithEndAttribute("error_type", "stale_entity").Assert())
	assert.True(t, tracingSpy.HasSpanRecordForName("persistence.rollback").WithStatus("success").Assert())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_Flush_FailureResetsGeneratedColumns(t *testing.T) {
	// setup
	ctx := context.Background()
	session, mock := newMockSession(t)
	first := &todo{Title: "first"}
	second := &todo{Title: "second"}

	mock.ExpectBegin()
	mock.ExpectQuery(quoted(insertTodo)).
		WithArgs("first", false).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery(quoted(insertTodo)).
		WithArgs("second", false).
		WillReturnError(errors.New("duplicate key value violates unique constraint"))
	mock.ExpectRollback()

	require.NoError(t, session.Add(first))
	require.NoError(t, session.Add(second))

	// act
	err := session.Commit(ctx)

	// assert
	assert.ErrorIs(t, err, persistence.ErrQueryingFailed)
	assert.ErrorContains(t, err, "duplicate key")
	assert.Equal(t, int64(0), first.ID)
	assert.Equal(t, int64(0), second.ID)
	assert.False(t, session.IsDirty())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_Rollback_DiscardsPendingChangesAndLoadedEntities(t *testing.T) {
	// setup
	ctx := context.Background()
	session, mock := newMockSession(t)

	mock.ExpectBegin()
	mock.ExpectQuery(quoted(selectTodoByID)).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(todoColumns()).AddRow(int64(3), "write tests", false))
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectQuery(quoted(selectTodoByID)).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(todoColumns()).AddRow(int64(3), "write tests", false))

	entity, err := postgresengine.Get[todo](ctx, session, 3)
	require.NoError(t, err)
	entity.Completed = true
	require.NoError(t, session.Add(&todo{Title: "another"}))

	// act
	err = session.Rollback(ctx)

	// assert
	require.NoError(t, err)
	assert.False(t, session.IsDirty())
	assert.False(t, session.InTransaction())

	// act
	reloaded, err := postgresengine.Get[todo](ctx, session, 3)

	// assert
	require.NoError(t, err)
	assert.NotSame(t, entity, reloaded)
	assert.False(t, reloaded.Completed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_AutoFlush_WritesPendingChangesBeforeReads(t *testing.T) {
	// setup
	ctx := context.Background()
	session, mock := newMockSession(t, postgresengine.WithAutoFlush(true))
	entity := &todo{Title: "write tests"}

	mock.ExpectBegin()
	mock.ExpectQuery(quoted(insertTodo)).
		WithArgs("write tests", false).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery(quoted(selectAllTodos)).
		WillReturnRows(sqlmock.NewRows(todoColumns()).AddRow(int64(1), "write tests", false))

	require.NoError(t, session.Add(entity))

	// act
	found, err := postgresengine.Find[todo](ctx, session, nil)

	// assert
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Same(t, entity, found[0])
	assert.True(t, session.InTransaction(), "auto-flush does not commit")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_WithoutAutoFlush_ReadsDoNotWrite(t *testing.T) {
	// setup
	ctx := context.Background()
	session, mock := newMockSession(t)

	mock.ExpectBegin()
	mock.ExpectQuery(quoted(selectAllTodos)).
		WillReturnRows(sqlmock.NewRows(todoColumns()))

	require.NoError(t, session.Add(&todo{Title: "write tests"}))

	// act
	found, err := postgresengine.Find[todo](ctx, session, persistence.Where{})

	// assert
	require.NoError(t, err)
	assert.Empty(t, found)
	assert.Equal(t, postgresengine.PendingChanges{Inserts: 1}, session.Pending())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_AutoCommit_CommitsAfterFlushAndReads(t *testing.T) {
	// setup
	ctx := context.Background()
	session, mock := newMockSession(t, postgresengine.WithAutoCommit(true))

	mock.ExpectBegin()
	mock.ExpectQuery(quoted(insertTodo)).
		WithArgs("write tests", false).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectQuery(quoted(selectTodoByID)).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows(todoColumns()).AddRow(int64(2), "read me", false))
	mock.ExpectCommit()

	require.NoError(t, session.Add(&todo{Title: "write tests"}))

	// act
	require.NoError(t, session.Flush(ctx))
	_, err := postgresengine.Get[todo](ctx, session, 2)

	// assert
	require.NoError(t, err)
	assert.False(t, session.InTransaction())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_Close_RollsBackAndInvalidatesTheSession(t *testing.T) {
	// setup
	ctx := context.Background()
	session, mock := newMockSession(t)

	mock.ExpectBegin()
	mock.ExpectQuery(quoted(selectTodoByID)).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(todoColumns()).AddRow(int64(3), "write tests", false))
	mock.ExpectRollback()

	_, err := postgresengine.Get[todo](ctx, session, 3)
	require.NoError(t, err)

	// act
	err = session.Close(ctx)

	// assert
	require.NoError(t, err)
	assert.NoError(t, session.Close(ctx), "closing twice is a no-op")
	assert.ErrorIs(t, session.Add(&todo{}), persistence.ErrSessionClosed)
	assert.ErrorIs(t, session.Delete(&todo{}), persistence.ErrSessionClosed)
	assert.ErrorIs(t, session.Flush(ctx), persistence.ErrSessionClosed)
	assert.ErrorIs(t, session.Commit(ctx), persistence.ErrSessionClosed)
	assert.ErrorIs(t, session.Rollback(ctx), persistence.ErrSessionClosed)
	_, err = postgresengine.Get[todo](ctx, session, 3)
	assert.ErrorIs(t, err, persistence.ErrSessionClosed)
	_, err = postgresengine.Find[todo](ctx, session, nil)
	assert.ErrorIs(t, err, persistence.ErrSessionClosed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_Commit_IsObservable(t *testing.T) {
	// setup
	ctx := context.Background()
	metricsSpy := spies.NewMetricsCollectorSpy()
	tracingSpy := spies.NewTracingCollectorSpy()
	factory, mock := newMockSessionFactory(t, []postgresengine.Option{
		postgresengine.WithMetrics(metricsSpy),
		postgresengine.WithTracing(tracingSpy),
	})
	session := factory.NewSession()

	mock.ExpectBegin()
	mock.ExpectQuery(quoted(insertTodo)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectCommit()

	require.NoError(t, session.Add(&todo{Title: "write tests"}))

	// act
	require.NoError(t, session.Commit(ctx))

	// assert
	assert.True(t, metricsSpy.HasDurationRecordForMetric("persistence_flush_duration_seconds").
		WithOperation("flush").WithStatus("success").Assert())
	assert.True(t, metricsSpy.HasDurationRecordForMetric("persistence_statement_duration_seconds").
		WithOperation("insert").Assert())
	assert.True(t, metricsSpy.HasCounterRecordForMetric("persistence_transactions_total").
		WithOperation("commit").WithStatus("success").Assert())
	assert.True(t, metricsSpy.HasValueRecordForMetric("persistence_flushed_entities").Assert())
	assert.True(t, tracingSpy.HasSpanRecordForName("persistence.flush").
		WithStatus("success").WithEndAttribute("entity_count", "1").Assert())
	assert.True(t, tracingSpy.HasSpanRecordForName("persistence.commit").WithStatus("success").Assert())
	assert.Equal(t, 0, tracingSpy.OpenSpanCount())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_Commit_ReportsColumnsThatCannotBeEncoded(t *testing.T) {
	// setup
	ctx := context.Background()
	logSpy := spies.NewLogHandlerSpy(false)
	factory, mock := newMockSessionFactory(t, []postgresengine.Option{postgresengine.WithLogger(slog.New(logSpy))})
	session := factory.NewSession()

	mock.ExpectBegin()
	mock.ExpectQuery(quoted(selectChecklistByID)).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "scores"}).AddRow(int64(7), []byte(`[1.5,2]`)))
	mock.ExpectRollback()

	// arrange
	entity, err := postgresengine.Get[checklist](ctx, session, 7)
	require.NoError(t, err)
	entity.Scores[0] = math.NaN()
	require.True(t, session.IsDirty())

	// act
	err = session.Commit(ctx)

	// assert
	assert.ErrorIs(t, err, persistence.ErrEncodingColumnFailed)
	assert.False(t, session.InTransaction())
	assert.False(t, session.IsDirty(), "a failed flush discards the unit of work")
	assert.True(t, logSpy.HasLog(slog.LevelError, "failed to encode entity columns").WithAttrKey("error").Assert())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_Get_ReloadsEntitiesExpiredByCommit(t *testing.T) {
	// setup
	ctx := context.Background()
	session, mock := newMockSession(t)

	mock.ExpectBegin()
	mock.ExpectQuery(quoted(insertTodo)).
		WithArgs("write tests", false).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectQuery(quoted(selectTodoByID)).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(todoColumns()).AddRow(int64(1), "renamed elsewhere", true))

	entity := &todo{Title: "write tests"}
	require.NoError(t, session.Add(entity))
	require.NoError(t, session.Commit(ctx))

	// act
	reloaded, err := postgresengine.Get[todo](ctx, session, 1)

	// assert
	require.NoError(t, err)
	assert.Same(t, entity, reloaded)
	assert.Equal(t, &todo{ID: 1, Title: "renamed elsewhere", Completed: true}, reloaded)
	assert.False(t, session.IsDirty(), "the snapshot follows the reloaded row")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_Get_KeepsChangesMadeAfterCommit(t *testing.T) {
	// setup
	ctx := context.Background()
	session, mock := newMockSession(t)

	mock.ExpectBegin()
	mock.ExpectQuery(quoted(insertTodo)).
		WithArgs("write tests", false).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectCommit()

	entity := &todo{Title: "write tests"}
	require.NoError(t, session.Add(entity))
	require.NoError(t, session.Commit(ctx))
	entity.Completed = true

	// act
	loaded, err := postgresengine.Get[todo](ctx, session, 1)

	// assert
	require.NoError(t, err)
	assert.Same(t, entity, loaded)
	assert.True(t, loaded.Completed)
	assert.Equal(t, postgresengine.PendingChanges{Updates: 1}, session.Pending())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func Test_Get_ForgetsExpiredEntitiesWhoseRowIsGone(t *testing.T) {
	// setup
	ctx := context.Background()
	session, mock := newMockSession(t)

	mock.ExpectBegin()
	mock.ExpectQuery(quoted(insertTodo)).
		WithArgs("write tests", false).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectQuery(quoted(selectTodoByID)).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(todoColumns()))

	entity := &todo{Title: "write tests"}
	require.NoError(t, session.Add(entity))
	require.NoError(t, session.Commit(ctx))

	// act
	_, err := postgresengine.Get[todo](ctx, session, 1)

	// assert
	assert.ErrorIs(t, err, persistence.ErrEntityNotFound)
	assert.ErrorIs(t, session.Delete(entity), persistence.ErrNotPersistent)
	assert.NoError(t, mock.ExpectationsWereMet())
}
