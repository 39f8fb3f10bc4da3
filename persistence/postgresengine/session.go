package postgresengine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"time"

	"github.com/AntonStoeckl/persistence-go/persistence"
	"github.com/AntonStoeckl/persistence-go/persistence/postgresengine/internal/adapters"
)

// PendingChanges counts the changes a Flush would write.
type PendingChanges struct {
	Inserts int
	Updates int
	Deletes int
}

type entityState struct {
	mapping  *persistence.Mapping
	pointer  any
	value    reflect.Value
	key      string
	snapshot []any
	autoWas  []any
	expired  bool
}

// Session is a unit of work: it tracks added, loaded, modified and deleted entities
// and writes them inside one database transaction.
//
// The transaction is begun on the first database access and ends with Commit, Rollback or Close.
// Nothing is written before Flush or Commit unless auto-flush is enabled, and nothing is
// committed implicitly unless auto-commit is enabled.
//
// Entities stay attached after Commit but are expired: the next Get or Find that reaches them
// reloads their columns from the database into the same instance. An expired entity modified
// in the meantime keeps its in-memory values and is written by the next flush.
//
// A Session must not be used concurrently.
type Session struct {
	factory      *SessionFactory
	engine       *Engine
	conn         adapters.DBConn
	tx           adapters.DBTx
	identity     map[string]*entityState
	byPointer    map[any]*entityState
	pendingNew   []*entityState
	pendingDel   []*entityState
	insertedInTx []*entityState
	closed       bool
}

// Add stages a pointer to a registered entity for insertion at the next flush.
// Adding an entity that is already persistent, or already staged, is a no-op;
// adding an entity staged for deletion cancels the deletion.
func (s *Session) Add(entity any) error {
	if s.closed {
		return persistence.ErrSessionClosed
	}

	mapping, err := s.factory.registry.MappingFor(entity)
	if err != nil {
		return err
	}

	value, err := mapping.Entity(entity)
	if err != nil {
		return err
	}

	if state, ok := s.byPointer[entity]; ok {
		s.pendingDel = slices.DeleteFunc(s.pendingDel, func(p *entityState) bool { return p == state })
		return nil
	}

	if slices.ContainsFunc(s.pendingNew, func(p *entityState) bool { return p.pointer == entity }) {
		return nil
	}

	s.pendingNew = append(s.pendingNew, &entityState{mapping: mapping, pointer: entity, value: value})

	return nil
}

// Delete stages a persistent entity for deletion at the next flush.
// Deleting an entity that is only staged for insertion cancels the insertion.
func (s *Session) Delete(entity any) error {
	if s.closed {
		return persistence.ErrSessionClosed
	}

	if v := reflect.ValueOf(entity); v.Kind() != reflect.Pointer || v.IsNil() {
		return errors.Join(persistence.ErrNotAStruct, fmt.Errorf("want a pointer, got %T", entity))
	}

	pendingCount := len(s.pendingNew)
	s.pendingNew = slices.DeleteFunc(s.pendingNew, func(p *entityState) bool { return p.pointer == entity })

	if len(s.pendingNew) < pendingCount {
		return nil
	}

	state, ok := s.byPointer[entity]
	if !ok {
		return errors.Join(persistence.ErrNotPersistent, fmt.Errorf("%T", entity))
	}

	if !slices.Contains(s.pendingDel, state) {
		s.pendingDel = append(s.pendingDel, state)
	}

	return nil
}

// Get loads the entity of type T with the given primary key.
// An entity already present in the session is returned without querying the database.
func Get[T any](ctx context.Context, s *Session, primaryKey ...any) (*T, error) {
	if s.closed {
		return nil, persistence.ErrSessionClosed
	}

	mapping, err := s.factory.registry.MappingForType(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}

	converted, err := mapping.ConvertPrimaryKey(primaryKey)
	if err != nil {
		return nil, err
	}

	if err = s.autoFlushBeforeRead(ctx); err != nil {
		return nil, err
	}

	state, known := s.identity[mapping.IdentityKey(converted)]
	if known {
		if s.isPendingDelete(state) {
			return nil, persistence.ErrEntityNotFound
		}

		if !s.needsRefresh(state) {
			return state.pointer.(*T), nil //nolint:forcetypeassert // the mapping guarantees the type
		}
	}

	statement, err := s.factory.builder.selectByPrimaryKey(mapping, converted)
	if err != nil {
		s.engine.logError(ctx, logMsgBuildQueryFailed, err, logAttrTable, mapping.Table)
		return nil, err
	}

	loaded, err := s.load(ctx, mapping, statement)
	if err != nil {
		return nil, err
	}

	if err = s.afterRead(ctx); err != nil {
		return nil, err
	}

	if len(loaded) == 0 {
		if known {
			s.detach(state)
		}

		return nil, persistence.ErrEntityNotFound
	}

	return loaded[0].pointer.(*T), nil //nolint:forcetypeassert // the mapping guarantees the type
}

// Find loads all entities of type T whose columns equal the given values, ordered by primary key.
// A nil or empty where loads all rows. Entities staged for deletion are left out.
func Find[T any](ctx context.Context, s *Session, where persistence.Where) ([]*T, error) {
	if s.closed {
		return nil, persistence.ErrSessionClosed
	}

	mapping, err := s.factory.registry.MappingForType(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}

	statement, err := s.factory.builder.selectWhere(mapping, where)
	if err != nil {
		s.engine.logError(ctx, logMsgBuildQueryFailed, err, logAttrTable, mapping.Table)
		return nil, err
	}

	if err = s.autoFlushBeforeRead(ctx); err != nil {
		return nil, err
	}

	loaded, err := s.load(ctx, mapping, statement)
	if err != nil {
		return nil, err
	}

	if err = s.afterRead(ctx); err != nil {
		return nil, err
	}

	result := make([]*T, 0, len(loaded))
	for _, state := range loaded {
		if s.isPendingDelete(state) {
			continue
		}

		result = append(result, state.pointer.(*T)) //nolint:forcetypeassert // the mapping guarantees the type
	}

	return result, nil
}

// Flush writes pending inserts, updates of modified entities and deletes, in this order,
// inside the session transaction. It does not commit unless auto-commit is enabled.
// When a flush fails, the transaction is rolled back and the session is reset as by Rollback.
func (s *Session) Flush(ctx context.Context) error {
	if s.closed {
		return persistence.ErrSessionClosed
	}

	if err := s.flush(ctx); err != nil {
		return err
	}

	if s.factory.autoCommit {
		return s.commit(ctx)
	}

	return nil
}

// Commit flushes pending changes and commits the session transaction.
// The connection is returned to the pool; loaded entities stay attached to the session.
func (s *Session) Commit(ctx context.Context) error {
	if s.closed {
		return persistence.ErrSessionClosed
	}

	if err := s.flush(ctx); err != nil {
		return err
	}

	return s.commit(ctx)
}

// Rollback rolls back the session transaction and discards all pending changes and loaded entities.
// Entities inserted in the rolled back transaction get their database-generated fields reset.
func (s *Session) Rollback(ctx context.Context) error {
	if s.closed {
		return persistence.ErrSessionClosed
	}

	return s.rollback(ctx)
}

// Close rolls back an open transaction and returns the connection to the pool.
// Every later call on the session fails with persistence.ErrSessionClosed; calling Close again is a no-op.
func (s *Session) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}

	err := s.rollback(ctx)
	s.closed = true

	return err
}

// IsDirty reports whether the session holds changes that were not flushed yet.
func (s *Session) IsDirty() bool {
	return s.Pending().total() > 0
}

// Pending counts the changes the next flush would write.
// An entity with a column that cannot be encoded counts as an update; Flush reports the error.
func (s *Session) Pending() PendingChanges {
	pending, _ := s.pending()

	return pending
}

func (s *Session) pending() (PendingChanges, error) {
	var firstErr error

	pending := PendingChanges{
		Inserts: len(s.pendingNew),
		Deletes: len(s.pendingDel),
	}

	for _, state := range s.identity {
		if s.isPendingDelete(state) {
			continue
		}

		set, err := s.changedColumns(state)
		if err != nil && firstErr == nil {
			firstErr = err
		}

		if err != nil || len(set) > 0 {
			pending.Updates++
		}
	}

	return pending, firstErr
}

func (p PendingChanges) total() int {
	return p.Inserts + p.Updates + p.Deletes
}

// InTransaction reports whether the session currently holds a connection with an open transaction.
func (s *Session) InTransaction() bool {
	return s.tx != nil
}

func (s *Session) autoFlushBeforeRead(ctx context.Context) error {
	if !s.factory.autoFlush {
		return nil
	}

	return s.Flush(ctx)
}

func (s *Session) afterRead(ctx context.Context) error {
	if !s.factory.autoCommit || s.IsDirty() {
		return nil
	}

	return s.commit(ctx)
}

// needsRefresh reports whether an expired entity can be reloaded without losing in-memory changes.
func (s *Session) needsRefresh(state *entityState) bool {
	if !state.expired {
		return false
	}

	set, err := s.changedColumns(state)

	return err == nil && len(set) == 0
}

func (s *Session) isPendingDelete(state *entityState) bool {
	return slices.Contains(s.pendingDel, state)
}

func (s *Session) begin(ctx context.Context) error {
	if s.tx != nil {
		return nil
	}

	conn, err := s.engine.acquire(ctx)
	if err != nil {
		return err
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		s.engine.logError(ctx, logMsgBeginFailed, err)
		s.engine.recordErrorMetrics(ctx, operationBegin, errorTypeBegin)
		s.engine.release(ctx, conn)

		return errors.Join(persistence.ErrBeginTransactionFailed, err)
	}

	s.conn = conn
	s.tx = tx

	return nil
}

func (s *Session) releaseConnection(ctx context.Context) {
	if s.conn != nil {
		s.engine.release(ctx, s.conn)
	}

	s.conn = nil
	s.tx = nil
}

// load runs a select statement and attaches the resulting entities, preferring instances already in the session.
func (s *Session) load(ctx context.Context, mapping *persistence.Mapping, statement sqlStatement) ([]*entityState, error) {
	if err := s.begin(ctx); err != nil {
		return nil, err
	}

	rows, err := s.engine.query(ctx, s.tx, actionSelect, statement.query, statement.args)
	if err != nil {
		return nil, err
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.engine.logWarn(ctx, logMsgCloseRowsFailed, logAttrError, closeErr.Error())
		}
	}()

	loaded := make([]*entityState, 0)

	for rows.Next() {
		pointer := mapping.New()
		value := pointer.Elem()

		targets, finish := mapping.ScanTargets(value, mapping.Columns)
		if err = rows.Scan(targets...); err != nil {
			s.engine.logError(ctx, logMsgScanRowFailed, err, logAttrTable, mapping.Table)
			s.engine.recordErrorMetrics(ctx, actionSelect, errorTypeScan)

			return nil, errors.Join(persistence.ErrScanningDBRowFailed, err)
		}

		if err = finish(); err != nil {
			s.engine.logError(ctx, logMsgScanRowFailed, err, logAttrTable, mapping.Table)
			return nil, err
		}

		key := mapping.IdentityKey(mapping.PrimaryKeyValues(value))
		if existing, ok := s.identity[key]; ok {
			if s.needsRefresh(existing) {
				existing.value.Set(value)

				if err = s.attach(existing); err != nil {
					return nil, err
				}
			}

			loaded = append(loaded, existing)

			continue
		}

		state := &entityState{mapping: mapping, pointer: pointer.Interface(), value: value}
		if err = s.attach(state); err != nil {
			return nil, err
		}

		loaded = append(loaded, state)
	}

	if err = rows.Err(); err != nil {
		s.engine.logError(ctx, logMsgScanRowFailed, err, logAttrTable, mapping.Table)
		return nil, errors.Join(persistence.ErrScanningDBRowFailed, err)
	}

	return loaded, nil
}

// attach makes an entity persistent: it enters the identity map with a fresh snapshot.
func (s *Session) attach(state *entityState) error {
	snapshot, err := takeSnapshot(state)
	if err != nil {
		return err
	}

	state.snapshot = snapshot
	state.expired = false
	state.key = state.mapping.IdentityKey(state.mapping.PrimaryKeyValues(state.value))
	s.identity[state.key] = state
	s.byPointer[state.pointer] = state

	return nil
}

func (s *Session) detach(state *entityState) {
	delete(s.identity, state.key)
	delete(s.byPointer, state.pointer)
}

type flushResult struct {
	inserted []*entityState
	updated  []*entityState
	deleted  []*entityState
}

func (r flushResult) count() int {
	return len(r.inserted) + len(r.updated) + len(r.deleted)
}

func (s *Session) flush(ctx context.Context) error {
	pending, err := s.pending()
	if err != nil {
		s.engine.logError(ctx, logMsgEncodeFailed, err)
		s.engine.recordErrorMetrics(ctx, operationFlush, errorTypeEncode)

		if rollbackErr := s.rollback(ctx); rollbackErr != nil {
			return errors.Join(err, rollbackErr)
		}

		return err
	}

	if pending.total() == 0 {
		return nil
	}

	if err = s.begin(ctx); err != nil {
		return err
	}

	ctx, span := s.engine.startTraceSpan(ctx, spanNameFlush, map[string]string{spanAttrOperation: operationFlush})
	start := time.Now()

	result, err := s.writePending(ctx)
	duration := time.Since(start)

	s.engine.recordDurationMetrics(ctx, metricFlushDuration, duration, operationFlush, statusFor(err))
	s.engine.finishFlushSpan(span, result.count(), duration, err)

	if err != nil {
		s.engine.recordErrorMetrics(ctx, operationFlush, flushErrorType(err))

		for _, state := range result.inserted {
			resetAutoFields(state)
		}

		if rollbackErr := s.rollback(ctx); rollbackErr != nil {
			return errors.Join(err, rollbackErr)
		}

		return err
	}

	// The pending lists are only cleared once every statement succeeded.
	for _, state := range result.inserted {
		if attachErr := s.attach(state); attachErr != nil {
			return attachErr
		}
	}

	for _, state := range result.updated {
		state.snapshot, _ = takeSnapshot(state)
	}

	for _, state := range result.deleted {
		s.detach(state)
	}

	s.insertedInTx = append(s.insertedInTx, result.inserted...)
	s.pendingNew = nil
	s.pendingDel = nil

	s.engine.recordValueMetrics(ctx, metricFlushedEntities, float64(result.count()), operationFlush, statusSuccess)
	s.engine.logOperation(
		ctx,
		logMsgFlushed,
		logAttrInserted, len(result.inserted),
		logAttrUpdated, len(result.updated),
		logAttrDeleted, len(result.deleted),
		logAttrDurationMS, s.engine.toMilliseconds(duration),
	)

	return nil
}

// writePending sends all statements of one flush. The result lists what was written before a failure.
func (s *Session) writePending(ctx context.Context) (flushResult, error) {
	var result flushResult

	for _, state := range s.pendingNew {
		saveAutoFields(state)
		result.inserted = append(result.inserted, state)

		if err := s.insert(ctx, state); err != nil {
			return result, err
		}
	}

	for _, state := range s.modifiedEntities() {
		written, err := s.update(ctx, state)
		if err != nil {
			return result, err
		}

		if written {
			result.updated = append(result.updated, state)
		}
	}

	for _, state := range s.pendingDel {
		if err := s.delete(ctx, state); err != nil {
			return result, err
		}

		result.deleted = append(result.deleted, state)
	}

	return result, nil
}

// modifiedEntities returns the persistent entities in a stable order, so updates are issued deterministically.
func (s *Session) modifiedEntities() []*entityState {
	keys := make([]string, 0, len(s.identity))
	for key, state := range s.identity {
		if !s.isPendingDelete(state) {
			keys = append(keys, key)
		}
	}

	slices.Sort(keys)

	states := make([]*entityState, len(keys))
	for i, key := range keys {
		states[i] = s.identity[key]
	}

	return states
}

func (s *Session) insert(ctx context.Context, state *entityState) error {
	mapping := state.mapping
	columns := make([]persistence.Column, 0, len(mapping.Columns))
	values := make([]any, 0, len(mapping.Columns))
	returning := make([]persistence.Column, 0)

	for _, column := range mapping.Columns {
		if column.Auto {
			returning = append(returning, column)

			if mapping.IsZero(state.value, column) {
				continue
			}
		}

		value, err := mapping.Value(state.value, column)
		if err != nil {
			return err
		}

		columns = append(columns, column)
		values = append(values, value)
	}

	statement, err := s.factory.builder.insert(mapping, columns, values, returning)
	if err != nil {
		s.engine.logError(ctx, logMsgBuildQueryFailed, err, logAttrTable, mapping.Table)
		return err
	}

	if len(returning) == 0 {
		_, err = s.engine.exec(ctx, s.tx, actionInsert, statement.query, statement.args)
		return err
	}

	rows, err := s.engine.query(ctx, s.tx, actionInsert, statement.query, statement.args)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.engine.logWarn(ctx, logMsgCloseRowsFailed, logAttrError, closeErr.Error())
		}
	}()

	if !rows.Next() {
		if err = rows.Err(); err == nil {
			err = fmt.Errorf("insert into %s returned no row", mapping.Table)
		}

		s.engine.logError(ctx, logMsgScanRowFailed, err, logAttrTable, mapping.Table)

		return errors.Join(persistence.ErrScanningDBRowFailed, err)
	}

	targets, finish := mapping.ScanTargets(state.value, returning)
	if err = rows.Scan(targets...); err != nil {
		s.engine.logError(ctx, logMsgScanRowFailed, err, logAttrTable, mapping.Table)
		return errors.Join(persistence.ErrScanningDBRowFailed, err)
	}

	return finish()
}

// update writes the changed columns of a persistent entity. It reports whether anything was written.
func (s *Session) update(ctx context.Context, state *entityState) (bool, error) {
	set, err := s.changedColumns(state)
	if err != nil || len(set) == 0 {
		return false, err
	}

	statement, err := s.factory.builder.update(state.mapping, set, snapshotPrimaryKey(state))
	if err != nil {
		s.engine.logError(ctx, logMsgBuildQueryFailed, err, logAttrTable, state.mapping.Table)
		return false, err
	}

	rowsAffected, err := s.engine.exec(ctx, s.tx, actionUpdate, statement.query, statement.args)
	if err != nil {
		return false, err
	}

	if rowsAffected == 0 {
		return false, s.staleEntity(ctx, state, rowsAffected)
	}

	return true, nil
}

func (s *Session) delete(ctx context.Context, state *entityState) error {
	statement, err := s.factory.builder.delete(state.mapping, snapshotPrimaryKey(state))
	if err != nil {
		s.engine.logError(ctx, logMsgBuildQueryFailed, err, logAttrTable, state.mapping.Table)
		return err
	}

	rowsAffected, err := s.engine.exec(ctx, s.tx, actionDelete, statement.query, statement.args)
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return s.staleEntity(ctx, state, rowsAffected)
	}

	return nil
}

func (s *Session) staleEntity(ctx context.Context, state *entityState, rowsAffected int64) error {
	s.engine.logWarn(
		ctx,
		logMsgStaleEntity,
		logAttrTable, state.mapping.Table,
		logAttrRowsAffected, rowsAffected,
	)

	return errors.Join(persistence.ErrStaleEntity, fmt.Errorf("%s %s", state.mapping.Table, state.key))
}

// changedColumns compares the entity with its snapshot. Primary key columns are never written by an update.
func (s *Session) changedColumns(state *entityState) (map[string]any, error) {
	current, err := state.mapping.Values(state.value)
	if err != nil {
		return nil, err
	}

	set := make(map[string]any)

	for i, column := range state.mapping.Columns {
		if column.PrimaryKey {
			continue
		}

		if !sameValue(state.snapshot[i], current[i]) {
			set[column.Name] = current[i]
		}
	}

	return set, nil
}

func (s *Session) commit(ctx context.Context) error {
	if s.tx == nil {
		return nil
	}

	ctx, span := s.engine.startTraceSpan(ctx, spanNameCommit, map[string]string{spanAttrOperation: operationCommit})
	start := time.Now()

	err := s.tx.Commit(ctx)
	duration := time.Since(start)

	s.engine.recordDurationMetrics(ctx, metricCommitDuration, duration, operationCommit, statusFor(err))
	s.engine.recordCounterMetrics(ctx, metricTransactions, operationCommit, statusFor(err))

	if err != nil {
		s.engine.logError(ctx, logMsgCommitFailed, err)
		s.engine.recordErrorMetrics(ctx, operationCommit, errorTypeCommit)
		s.engine.finishTraceSpan(span, statusError, map[string]string{spanAttrErrorType: errorTypeCommit})

		s.releaseConnection(ctx)
		s.discardState()

		return errors.Join(persistence.ErrCommitFailed, err)
	}

	s.engine.finishTraceSpan(span, statusSuccess, nil)
	s.engine.logOperation(ctx, logMsgCommitted, logAttrDurationMS, s.engine.toMilliseconds(duration))

	s.releaseConnection(ctx)
	s.insertedInTx = nil

	for _, state := range s.identity {
		state.expired = true
	}

	return nil
}

func (s *Session) rollback(ctx context.Context) error {
	var err error

	if s.tx != nil {
		var span persistence.SpanContext
		ctx, span = s.engine.startTraceSpan(ctx, spanNameRollback, map[string]string{spanAttrOperation: operationRollback})

		err = s.tx.Rollback(ctx)
		s.engine.recordCounterMetrics(ctx, metricTransactions, operationRollback, statusFor(err))

		if err != nil {
			s.engine.logError(ctx, logMsgRollbackFailed, err)
			s.engine.recordErrorMetrics(ctx, operationRollback, errorTypeRollback)
			s.engine.finishTraceSpan(span, statusError, map[string]string{spanAttrErrorType: errorTypeRollback})
			err = errors.Join(persistence.ErrRollbackFailed, err)
		} else {
			s.engine.finishTraceSpan(span, statusSuccess, nil)
			s.engine.logOperation(ctx, logMsgRolledBack)
		}

		s.releaseConnection(ctx)
	}

	s.discardState()

	return err
}

// discardState forgets every tracked entity and resets the generated fields of entities
// whose insert was never committed.
func (s *Session) discardState() {
	for _, state := range s.insertedInTx {
		resetAutoFields(state)
	}

	s.insertedInTx = nil
	s.pendingNew = nil
	s.pendingDel = nil
	clear(s.identity)
	clear(s.byPointer)
}

func flushErrorType(err error) string {
	switch {
	case errors.Is(err, persistence.ErrStaleEntity):
		return errorTypeStale
	case errors.Is(err, persistence.ErrEncodingColumnFailed):
		return errorTypeEncode
	case errors.Is(err, persistence.ErrBuildingQueryFailed):
		return errorTypeBuildQuery
	case errors.Is(err, persistence.ErrScanningDBRowFailed):
		return errorTypeScan
	case errors.Is(err, persistence.ErrQueryingFailed):
		return errorTypeQuery
	default:
		return errorTypeExec
	}
}

func takeSnapshot(state *entityState) ([]any, error) {
	values, err := state.mapping.Values(state.value)
	if err != nil {
		return nil, err
	}

	for i, value := range values {
		if b, ok := value.([]byte); ok {
			values[i] = bytes.Clone(b)
		}
	}

	return values, nil
}

func snapshotPrimaryKey(state *entityState) []any {
	primaryKey := make([]any, 0, len(state.mapping.PrimaryKey))

	for i, column := range state.mapping.Columns {
		if column.PrimaryKey {
			primaryKey = append(primaryKey, state.snapshot[i])
		}
	}

	return primaryKey
}

func saveAutoFields(state *entityState) {
	state.autoWas = state.autoWas[:0]

	for _, column := range state.mapping.Columns {
		if column.Auto {
			state.autoWas = append(state.autoWas, state.mapping.Field(state.value, column).Interface())
		}
	}
}

func resetAutoFields(state *entityState) {
	if len(state.autoWas) == 0 {
		return
	}

	i := 0

	for _, column := range state.mapping.Columns {
		if column.Auto {
			field := state.mapping.Field(state.value, column)
			if previous := state.autoWas[i]; previous != nil {
				field.Set(reflect.ValueOf(previous))
			} else {
				field.SetZero()
			}

			i++
		}
	}
}

func sameValue(a, b any) bool {
	if ab, ok := a.([]byte); ok {
		if bb, ok := b.([]byte); ok {
			return bytes.Equal(ab, bb)
		}
	}

	return reflect.DeepEqual(a, b)
}
