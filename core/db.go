package core

import (
	"context"
	"database/sql"
)

// DBExecutor is the query surface repositories run on. Both sqlx databases
// and transactions satisfy it, so repository calls compose inside either.
type DBExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}
