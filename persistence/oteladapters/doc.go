// Package oteladapters implements the persistence observability interfaces on top of OpenTelemetry.
//
// Wire them into an engine with postgresengine.WithMetrics, postgresengine.WithTracing and
// postgresengine.WithContextualLogger:
//
//	engine, err := postgresengine.NewEngine(dsn,
//		postgresengine.WithMetrics(oteladapters.NewMetricsCollector(otel.Meter("persistence"))),
//		postgresengine.WithTracing(oteladapters.NewTracingCollector(otel.Tracer("persistence"))),
//		postgresengine.WithContextualLogger(oteladapters.NewSlogBridgeLogger("persistence")),
//	)
package oteladapters
