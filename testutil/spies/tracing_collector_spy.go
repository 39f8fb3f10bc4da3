package spies

import (
	"context"
	"maps"
	"sync"

	"github.com/AntonStoeckl/persistence-go/persistence"
)

// SpySpanContext is the persistence.SpanContext handed out by TracingCollectorSpy.
type SpySpanContext struct {
	name       string
	status     string
	attributes map[string]string
	mu         sync.Mutex
}

func (c *SpySpanContext) SetStatus(status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = status
}

func (c *SpySpanContext) AddAttribute(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.attributes == nil {
		c.attributes = make(map[string]string)
	}

	c.attributes[key] = value
}

// TracingCollectorSpy is a persistence.TracingCollector that captures finished spans for testing.
// Spans started but never finished are counted by OpenSpanCount.
type TracingCollectorSpy struct {
	spanRecords []SpySpanRecord
	open        int
	mu          sync.Mutex
}

// SpySpanRecord represents a finished span.
type SpySpanRecord struct {
	Name            string
	StartAttributes map[string]string
	Status          string
	EndAttributes   map[string]string
}

// NewTracingCollectorSpy creates an empty spy.
func NewTracingCollectorSpy() *TracingCollectorSpy {
	return &TracingCollectorSpy{}
}

func (s *TracingCollectorSpy) StartSpan(
	ctx context.Context,
	name string,
	attrs map[string]string,
) (context.Context, persistence.SpanContext) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open++

	return ctx, &SpySpanContext{name: name, attributes: maps.Clone(attrs)}
}

func (s *TracingCollectorSpy) FinishSpan(spanCtx persistence.SpanContext, status string, attrs map[string]string) {
	spySpanCtx, ok := spanCtx.(*SpySpanContext)
	if !ok {
		return
	}

	spySpanCtx.mu.Lock()
	record := SpySpanRecord{
		Name:            spySpanCtx.name,
		StartAttributes: maps.Clone(spySpanCtx.attributes),
		Status:          status,
		EndAttributes:   maps.Clone(attrs),
	}
	spySpanCtx.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.open--
	s.spanRecords = append(s.spanRecords, record)
}

// OpenSpanCount returns the number of started but unfinished spans.
func (s *TracingCollectorSpy) OpenSpanCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.open
}

// GetSpanRecords returns a copy of all finished spans.
func (s *TracingCollectorSpy) GetSpanRecords() []SpySpanRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]SpySpanRecord, len(s.spanRecords))
	copy(records, s.spanRecords)

	return records
}

// SpanRecordMatcher narrows down the finished spans with one name.
type SpanRecordMatcher struct {
	candidates []SpySpanRecord
}

// HasSpanRecordForName starts a fluent chain over the finished spans named name.
func (s *TracingCollectorSpy) HasSpanRecordForName(name string) *SpanRecordMatcher {
	m := &SpanRecordMatcher{}

	for _, record := range s.GetSpanRecords() {
		if record.Name == name {
			m.candidates = append(m.candidates, record)
		}
	}

	return m
}

func (m *SpanRecordMatcher) WithStatus(status string) *SpanRecordMatcher {
	return m.filter(func(record SpySpanRecord) bool { return record.Status == status })
}

func (m *SpanRecordMatcher) WithStartAttribute(key, value string) *SpanRecordMatcher {
	return m.filter(func(record SpySpanRecord) bool { return record.StartAttributes[key] == value })
}

func (m *SpanRecordMatcher) WithEndAttribute(key, value string) *SpanRecordMatcher {
	return m.filter(func(record SpySpanRecord) bool { return record.EndAttributes[key] == value })
}

func (m *SpanRecordMatcher) Count() int {
	return len(m.candidates)
}

func (m *SpanRecordMatcher) Assert() bool {
	return len(m.candidates) > 0
}

func (m *SpanRecordMatcher) filter(keep func(SpySpanRecord) bool) *SpanRecordMatcher {
	kept := make([]SpySpanRecord, 0, len(m.candidates))

	for _, record := range m.candidates {
		if keep(record) {
			kept = append(kept, record)
		}
	}

	m.candidates = kept

	return m
}

var _ persistence.TracingCollector = (*TracingCollectorSpy)(nil)
