package todo

import (
	"context"

	"github.com/AntonStoeckl/persistence-go/persistence"
	"github.com/AntonStoeckl/persistence-go/persistence/postgresengine"
)

// Table is the table todos are stored in.
const Table = "todos"

const createTable = `CREATE TABLE IF NOT EXISTS todos (
	id        BIGSERIAL PRIMARY KEY,
	title     TEXT      NOT NULL,
	completed BOOLEAN   NOT NULL DEFAULT FALSE
)`

// Todo is one to-do item.
type Todo struct {
	ID        int64  `db:"id,pk,auto" json:"id"`
	Title     string `db:"title"      json:"title"`
	Completed bool   `db:"completed"  json:"completed"`
}

// Register adds the Todo mapping to registry.
func Register(registry *persistence.Registry) error {
	_, err := registry.Register(&Todo{}, Table)
	return err
}

// CreateSchema creates the todos table if it does not exist yet.
func CreateSchema(ctx context.Context, engine *postgresengine.Engine) error {
	conn, err := engine.Connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	_, err = conn.Exec(ctx, createTable)

	return err
}
