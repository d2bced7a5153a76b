// Package db opens the SQL databases the version ledger is stored in.
package db

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/rs/zerolog"
)

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

type DB interface {
	InitDB(ctx context.Context) error

	Get() *sql.DB
	Close() error

	Dialect() Dialect
	// Builder returns a statement builder using the dialect's placeholders.
	Builder() sq.StatementBuilderType

	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
}

var dbLogger zerolog.Logger = zerolog.Nop()

func SetLogger(l zerolog.Logger) {
	dbLogger = l
}

// Open returns an uninitialized database for the configured driver.
func Open(driver, dsn string) (DB, error) {
	switch Dialect(driver) {
	case DialectSQLite, "sqlite3", "":
		return NewSQLite(dsn), nil
	case DialectPostgres, "postgresql":
		return NewPostgres(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

func logQuery(kind, query string) {
	dbLogger.Debug().Str("query", query).Msg(kind)
}
