package persistence

import (
	"errors"
)

// Configuration errors.
var (
	ErrNilDatabaseConnection = errors.New("database connection must not be nil")
	ErrInvalidPoolSize       = errors.New("pool size must not be negative")
	ErrInvalidMaxOverflow    = errors.New("max overflow must be -1 (unlimited) or greater")
	ErrUnsupportedDriver     = errors.New("unsupported database driver")
	ErrUnsupportedAdapter    = errors.New("unsupported database adapter")
	ErrNilRegistry           = errors.New("mapping registry must not be nil")
)

// Mapping registry errors.
var (
	ErrNotAStruct       = errors.New("entity must be a struct or a pointer to a struct")
	ErrEmptyTableName   = errors.New("empty table name supplied")
	ErrDuplicateMapping = errors.New("entity or table is already mapped")
	ErrNoPrimaryKey     = errors.New("entity has no primary key column")
	ErrRegistrySealed   = errors.New("mapping registry is sealed")
	ErrUnmappedEntity   = errors.New("entity type is not registered")
	ErrUnknownColumn    = errors.New("unknown column")
)

// Runtime errors.
var (
	ErrCheckoutFailed         = errors.New("checking out a connection from the pool failed")
	ErrPoolTimeout            = errors.New("timed out waiting for a pooled connection")
	ErrBeginTransactionFailed = errors.New("beginning a transaction failed")
	ErrBuildingQueryFailed    = errors.New("building the sql statement failed")
	ErrQueryingFailed         = errors.New("querying the database failed")
	ErrExecutingFailed        = errors.New("executing the sql statement failed")
	ErrScanningDBRowFailed    = errors.New("scanning a database row failed")
	ErrGettingRowsAffected    = errors.New("getting the rows affected count failed")
	ErrCommitFailed           = errors.New("committing the transaction failed")
	ErrRollbackFailed         = errors.New("rolling back the transaction failed")
	ErrEncodingColumnFailed   = errors.New("encoding a json column failed")
	ErrStaleEntity            = errors.New("entity was changed or removed by another transaction")
	ErrEntityNotFound         = errors.New("entity not found")
	ErrInvalidPrimaryKey      = errors.New("invalid primary key value(s)")
	ErrSessionClosed          = errors.New("session is closed")
	ErrNotPersistent          = errors.New("entity is not persistent in this session")
	ErrConnectionClosed       = errors.New("connection was already returned to the pool")
	ErrEngineClosed           = errors.New("engine is closed")
)
