package postgresengine

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/AntonStoeckl/persistence-go/persistence"
)

// Log messages and attributes.
const (
	logMsgSQLExecuted        = "executed sql"
	logMsgOperation          = "persistence operation: "
	logMsgPingFailed         = "database ping failed"
	logMsgCheckoutFailed     = "failed to check out a database connection"
	logMsgReleaseFailed      = "failed to return database connection to the pool"
	logMsgBuildQueryFailed   = "failed to build query"
	logMsgEncodeFailed       = "failed to encode entity columns"
	logMsgDBQueryFailed      = "database query execution failed"
	logMsgDBExecFailed       = "database execution failed"
	logMsgRowsAffectedFailed = "failed to get rows affected count"
	logMsgCloseRowsFailed    = "failed to close database rows"
	logMsgScanRowFailed      = "failed to scan database row"
	logMsgBeginFailed        = "failed to begin transaction"
	logMsgCommitFailed       = "failed to commit transaction"
	logMsgRollbackFailed     = "failed to roll back transaction"
	logMsgStaleEntity        = "stale entity detected"
	logMsgFlushed            = "flushed"
	logMsgCommitted          = "committed"
	logMsgRolledBack         = "rolled back"
	logAttrError             = "error"
	logAttrQuery             = "query"
	logAttrAction            = "action"
	logAttrTable             = "table"
	logAttrDurationMS        = "duration_ms"
	logAttrInserted          = "inserted"
	logAttrUpdated           = "updated"
	logAttrDeleted           = "deleted"
	logAttrRowsAffected      = "rows_affected"
)

// Metric names.
const (
	metricCheckoutDuration  = "persistence_checkout_duration_seconds"
	metricStatementDuration = "persistence_statement_duration_seconds"
	metricFlushDuration     = "persistence_flush_duration_seconds"
	metricCommitDuration    = "persistence_commit_duration_seconds"
	metricTransactions      = "persistence_transactions_total"
	metricDatabaseErrors    = "persistence_database_errors_total"
	metricConnectionsInUse  = "persistence_pool_connections_in_use"
	metricFlushedEntities   = "persistence_flushed_entities"
)

// Span names and attributes.
const (
	spanNameCheckout     = "persistence.checkout"
	spanNameFlush        = "persistence.flush"
	spanNameCommit       = "persistence.commit"
	spanNameRollback     = "persistence.rollback"
	spanAttrOperation    = "operation"
	spanAttrErrorType    = "error_type"
	spanAttrEntityCount  = "entity_count"
	spanAttrDurationMS   = "duration_ms"
	metricLabelStatus    = "status"
	statusSuccess        = "success"
	statusError          = "error"
	operationCheckout    = "checkout"
	operationFlush       = "flush"
	operationCommit      = "commit"
	operationRollback    = "rollback"
	operationBegin       = "begin"
	operationPool        = "pool"
	actionSelect         = "select"
	actionInsert         = "insert"
	actionUpdate         = "update"
	actionDelete         = "delete"
	actionQuery          = "query"
	actionExec           = "exec"
	errorTypeCheckout    = "checkout_error"
	errorTypePoolTimeout = "pool_timeout"
	errorTypeBuildQuery  = "build_query_error"
	errorTypeQuery       = "query_error"
	errorTypeExec        = "exec_error"
	errorTypeScan        = "scan_error"
	errorTypeBegin       = "begin_error"
	errorTypeCommit      = "commit_error"
	errorTypeRollback    = "rollback_error"
	errorTypeStale       = "stale_entity"
	errorTypeEncode      = "encode_error"
)

// echoStatement logs an executed statement at info level when echo is enabled.
func (e *Engine) echoStatement(ctx context.Context, action string, sqlQuery string, duration time.Duration) {
	if !e.echo {
		return
	}

	args := []any{logAttrAction, action, logAttrQuery, sqlQuery, logAttrDurationMS, e.toMilliseconds(duration)}

	if e.logger != nil {
		e.logger.Info(logMsgSQLExecuted, args...)
	}

	if e.contextualLogger != nil {
		e.contextualLogger.InfoContext(ctx, logMsgSQLExecuted, args...)
	}
}

// logOperation logs operational information at info level if a logger is configured.
func (e *Engine) logOperation(ctx context.Context, action string, args ...any) {
	if e.logger != nil {
		e.logger.Info(logMsgOperation+action, args...)
	}

	if e.contextualLogger != nil {
		e.contextualLogger.InfoContext(ctx, logMsgOperation+action, args...)
	}
}

// logWarn logs non-critical issues at warn level if a logger is configured.
func (e *Engine) logWarn(ctx context.Context, message string, args ...any) {
	if e.logger != nil {
		e.logger.Warn(message, args...)
	}

	if e.contextualLogger != nil {
		e.contextualLogger.WarnContext(ctx, message, args...)
	}
}

// logError logs error information at the error level if a logger is configured.
func (e *Engine) logError(ctx context.Context, message string, err error, args ...any) {
	allArgs := []any{logAttrError, err.Error()}
	allArgs = append(allArgs, args...)

	if e.logger != nil {
		e.logger.Error(message, allArgs...)
	}

	if e.contextualLogger != nil {
		e.contextualLogger.ErrorContext(ctx, message, allArgs...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func (e *Engine) toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

func statusFor(err error) string {
	if err != nil {
		return statusError
	}

	return statusSuccess
}

// recordErrorMetrics increments the database error counter if a metrics collector is configured.
func (e *Engine) recordErrorMetrics(ctx context.Context, operation, errorType string) {
	if e.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: operation,
		metricLabelStatus: statusError,
		spanAttrErrorType: errorType,
	}

	// Use context-aware method if available
	if contextualCollector, ok := e.metricsCollector.(persistence.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metricDatabaseErrors, labels)
	} else {
		e.metricsCollector.IncrementCounter(metricDatabaseErrors, labels)
	}
}

// recordCounterMetrics increments a counter if a metrics collector is configured.
func (e *Engine) recordCounterMetrics(ctx context.Context, metricName, operation, status string) {
	if e.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: operation,
		metricLabelStatus: status,
	}

	if contextualCollector, ok := e.metricsCollector.(persistence.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metricName, labels)
	} else {
		e.metricsCollector.IncrementCounter(metricName, labels)
	}
}

// recordDurationMetrics records a duration if a metrics collector is configured.
func (e *Engine) recordDurationMetrics(
	ctx context.Context,
	metricName string,
	duration time.Duration,
	operation, status string,
) {
	if e.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: operation,
		metricLabelStatus: status,
	}

	if contextualCollector, ok := e.metricsCollector.(persistence.ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, metricName, duration, labels)
	} else {
		e.metricsCollector.RecordDuration(metricName, duration, labels)
	}
}

// recordValueMetrics records a value if a metrics collector is configured.
func (e *Engine) recordValueMetrics(
	ctx context.Context,
	metricName string,
	value float64,
	operation, status string,
) {
	if e.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: operation,
		metricLabelStatus: status,
	}

	if contextualCollector, ok := e.metricsCollector.(persistence.ContextualMetricsCollector); ok {
		contextualCollector.RecordValueContext(ctx, metricName, value, labels)
	} else {
		e.metricsCollector.RecordValue(metricName, value, labels)
	}
}

// recordPoolUtilisation records the number of checked-out connections.
func (e *Engine) recordPoolUtilisation(ctx context.Context) {
	if e.metricsCollector == nil {
		return
	}

	e.recordValueMetrics(ctx, metricConnectionsInUse, float64(e.db.Stats().InUse), operationPool, statusSuccess)
}

// startTraceSpan starts a tracing span if the tracing collector is configured.
func (e *Engine) startTraceSpan(
	ctx context.Context,
	name string,
	attrs map[string]string,
) (context.Context, persistence.SpanContext) {
	if e.tracingCollector != nil {
		return e.tracingCollector.StartSpan(ctx, name, attrs)
	}

	return ctx, nil
}

// finishTraceSpan finishes a tracing span if the tracing collector is configured.
func (e *Engine) finishTraceSpan(
	spanCtx persistence.SpanContext,
	status string,
	attrs map[string]string,
) {
	if e.tracingCollector != nil && spanCtx != nil {
		e.tracingCollector.FinishSpan(spanCtx, status, attrs)
	}
}

// finishFlushSpan finishes a flush span with the number of written entities.
func (e *Engine) finishFlushSpan(span persistence.SpanContext, entityCount int, duration time.Duration, err error) {
	attrs := map[string]string{
		spanAttrEntityCount: strconv.Itoa(entityCount),
		spanAttrDurationMS:  strconv.FormatFloat(e.toMilliseconds(duration), 'f', 2, 64),
	}

	if err != nil {
		attrs[spanAttrErrorType] = flushErrorType(err)
	}

	e.finishTraceSpan(span, statusFor(err), attrs)
}
