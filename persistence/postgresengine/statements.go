package postgresengine

import (
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/AntonStoeckl/persistence-go/persistence"
)

const dialectPostgres = "postgres"

type sqlStatement struct {
	query string
	args  []any
}

// statementBuilder renders prepared postgres statements ($n placeholders) for one mapping.
type statementBuilder struct {
	dialect goqu.DialectWrapper
}

func newStatementBuilder() statementBuilder {
	return statementBuilder{dialect: goqu.Dialect(dialectPostgres)}
}

// selectWhere selects all mapped columns filtered by column equality, ordered by primary key.
func (b statementBuilder) selectWhere(mapping *persistence.Mapping, where persistence.Where) (sqlStatement, error) {
	conditions := goqu.Ex{}

	for name, value := range where {
		if _, ok := mapping.Column(name); !ok {
			return sqlStatement{}, errors.Join(
				persistence.ErrUnknownColumn,
				fmt.Errorf("%s.%s", mapping.Table, name),
			)
		}

		conditions[name] = value
	}

	order := make([]exp.OrderedExpression, len(mapping.PrimaryKey))
	for i, column := range mapping.PrimaryKey {
		order[i] = goqu.I(column.Name).Asc()
	}

	selectStmt := b.dialect.
		From(mapping.Table).
		Prepared(true).
		Select(columnExpressions(mapping.Columns)...).
		Order(order...)

	if len(conditions) > 0 {
		selectStmt = selectStmt.Where(conditions)
	}

	return toStatement(selectStmt.ToSQL())
}

// selectByPrimaryKey selects all mapped columns of the row with the given primary key.
func (b statementBuilder) selectByPrimaryKey(mapping *persistence.Mapping, primaryKey []any) (sqlStatement, error) {
	selectStmt := b.dialect.
		From(mapping.Table).
		Prepared(true).
		Select(columnExpressions(mapping.Columns)...).
		Where(primaryKeyCondition(mapping, primaryKey))

	return toStatement(selectStmt.ToSQL())
}

// insert writes the given columns and returns the auto columns.
func (b statementBuilder) insert(
	mapping *persistence.Mapping,
	columns []persistence.Column,
	values []any,
	returning []persistence.Column,
) (sqlStatement, error) {

	insertStmt := b.dialect.
		Insert(mapping.Table).
		Prepared(true)

	if len(columns) > 0 {
		cols := make([]any, len(columns))
		for i, column := range columns {
			cols[i] = column.Name
		}

		insertStmt = insertStmt.Cols(cols...).Vals(values)
	}

	if len(returning) > 0 {
		insertStmt = insertStmt.Returning(columnExpressions(returning)...)
	}

	return toStatement(insertStmt.ToSQL())
}

// update sets the given columns on the row with the given primary key.
func (b statementBuilder) update(
	mapping *persistence.Mapping,
	set map[string]any,
	primaryKey []any,
) (sqlStatement, error) {

	updateStmt := b.dialect.
		Update(mapping.Table).
		Prepared(true).
		Set(goqu.Record(set)).
		Where(primaryKeyCondition(mapping, primaryKey))

	return toStatement(updateStmt.ToSQL())
}

// delete removes the row with the given primary key.
func (b statementBuilder) delete(mapping *persistence.Mapping, primaryKey []any) (sqlStatement, error) {
	deleteStmt := b.dialect.
		Delete(mapping.Table).
		Prepared(true).
		Where(primaryKeyCondition(mapping, primaryKey))

	return toStatement(deleteStmt.ToSQL())
}

func columnExpressions(columns []persistence.Column) []any {
	expressions := make([]any, len(columns))
	for i, column := range columns {
		expressions[i] = goqu.C(column.Name)
	}

	return expressions
}

func primaryKeyCondition(mapping *persistence.Mapping, primaryKey []any) goqu.Ex {
	condition := goqu.Ex{}
	for i, column := range mapping.PrimaryKey {
		condition[column.Name] = primaryKey[i]
	}

	return condition
}

func toStatement(query string, args []any, err error) (sqlStatement, error) {
	if err != nil {
		return sqlStatement{}, errors.Join(persistence.ErrBuildingQueryFailed, err)
	}

	return sqlStatement{query: query, args: args}, nil
}
