package spies

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
)

// LogHandlerSpy is a slog.Handler that captures log records for testing.
type LogHandlerSpy struct {
	records     []slog.Record
	mu          sync.Mutex
	logToStdout bool
}

// NewLogHandlerSpy creates a new LogHandlerSpy.
// Switchable to log to stdout, which can be useful for debugging tests by seeing the actual log output.
func NewLogHandlerSpy(logToStdout bool) *LogHandlerSpy {
	return &LogHandlerSpy{
		records:     make([]slog.Record, 0),
		logToStdout: logToStdout,
	}
}

func (s *LogHandlerSpy) Handle(ctx context.Context, record slog.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record.Clone())

	if s.logToStdout {
		_ = slog.NewJSONHandler(os.Stdout, nil).Handle(ctx, record)
	}

	return nil
}

func (s *LogHandlerSpy) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func (s *LogHandlerSpy) WithAttrs(_ []slog.Attr) slog.Handler {
	return s
}

func (s *LogHandlerSpy) WithGroup(_ string) slog.Handler {
	return s
}

// GetRecords returns a copy of all captured log records.
func (s *LogHandlerSpy) GetRecords() []slog.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]slog.Record, len(s.records))
	copy(records, s.records)

	return records
}

// CountLogs counts the records with the given level and message.
func (s *LogHandlerSpy) CountLogs(level slog.Level, message string) int {
	count := 0

	for _, record := range s.GetRecords() {
		if record.Level == level && record.Message == message {
			count++
		}
	}

	return count
}

// CountLevel counts the records with the given level.
func (s *LogHandlerSpy) CountLevel(level slog.Level) int {
	count := 0

	for _, record := range s.GetRecords() {
		if record.Level == level {
			count++
		}
	}

	return count
}

// Reset clears all captured log records.
func (s *LogHandlerSpy) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = s.records[:0]
}

// LogRecordMatcher narrows down the records found by HasLog.
type LogRecordMatcher struct {
	candidates []slog.Record
}

// HasLog starts a fluent chain over all records with the given level and message.
func (s *LogHandlerSpy) HasLog(level slog.Level, message string) *LogRecordMatcher {
	candidates := make([]slog.Record, 0)

	for _, record := range s.GetRecords() {
		if record.Level == level && record.Message == message {
			candidates = append(candidates, record)
		}
	}

	return &LogRecordMatcher{candidates: candidates}
}

// WithAttr keeps the records having the attribute key with a value printing as value.
func (m *LogRecordMatcher) WithAttr(key string, value any) *LogRecordMatcher {
	want := fmt.Sprint(value)

	return m.filter(func(attr slog.Attr) bool {
		return attr.Key == key && attr.Value.String() == want
	})
}

// WithAttrKey keeps the records having the attribute key, whatever its value.
func (m *LogRecordMatcher) WithAttrKey(key string) *LogRecordMatcher {
	return m.filter(func(attr slog.Attr) bool {
		return attr.Key == key
	})
}

// WithDurationMS keeps the records having a non-negative duration_ms attribute.
func (m *LogRecordMatcher) WithDurationMS() *LogRecordMatcher {
	return m.filter(func(attr slog.Attr) bool {
		if attr.Key != "duration_ms" {
			return false
		}

		switch attr.Value.Kind() {
		case slog.KindFloat64:
			return attr.Value.Float64() >= 0
		case slog.KindInt64:
			return attr.Value.Int64() >= 0
		default:
			return false
		}
	})
}

// Assert reports whether at least one record satisfied the whole chain.
func (m *LogRecordMatcher) Assert() bool {
	return len(m.candidates) > 0
}

func (m *LogRecordMatcher) filter(match func(slog.Attr) bool) *LogRecordMatcher {
	kept := make([]slog.Record, 0, len(m.candidates))

	for _, record := range m.candidates {
		found := false
		record.Attrs(func(attr slog.Attr) bool {
			found = match(attr)
			return !found
		})

		if found {
			kept = append(kept, record)
		}
	}

	m.candidates = kept

	return m
}
