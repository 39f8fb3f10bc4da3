// Package persistence provides the core abstractions for a pooled PostgreSQL persistence layer.
//
// This package defines the types shared by all engine implementations:
// the mapping registry that replaces inheritance-based declarative registration,
// pool statistics, common error definitions and the dependency-free observability
// interfaces (Logger, MetricsCollector, TracingCollector, ContextualLogger).
//
// Key types:
//   - Registry: explicit schema/mapping table built once at startup
//   - Mapping: table-to-struct correspondence of one entity type
//   - Where: equality filter used to load entities
//
// Common usage pattern:
//
//	type Todo struct {
//		ID        int64  `db:"id,pk,auto"`
//		Title     string `db:"title"`
//		Completed bool   `db:"completed"`
//	}
//
//	registry := persistence.NewRegistry()
//	registry.MustRegister(&Todo{}, "todos")
//
//	db, _ := database.NewFromEnv(registry)
//	session := db.NewSession()
//	defer session.Close(ctx)
//
//	session.Add(&Todo{Title: "buy milk"})
//	err := session.Commit(ctx)
package persistence
