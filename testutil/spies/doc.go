// Package spies provides test doubles that record what the engine and its sessions report:
// a slog.Handler capturing log records, a MetricsCollectorSpy and a TracingCollectorSpy.
//
// All spies are safe for concurrent use and offer fluent matchers:
//
//	assert.True(t, logSpy.HasLog(slog.LevelInfo, "executed sql").WithAttr("action", "insert").Assert())
//	assert.True(t, metricsSpy.HasDurationRecordForMetric("persistence_flush_duration_seconds").WithStatus("success").Assert())
package spies
