package db

import (
	"context"
	"database/sql"
	"strings"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
)

const DefaultSQLitePath = "./ledger.db"

type SQLite struct {
	path string
	conn *sql.DB
}

func NewSQLite(path string) *SQLite {
	if path == "" {
		path = DefaultSQLitePath
	}
	return &SQLite{
		path: path,
		conn: nil,
	}
}

// dsn makes every transaction start with BEGIN IMMEDIATE so that writers
// take the database lock before reading the next version number.
func (s *SQLite) dsn() string {
	params := "_txlock=immediate&_foreign_keys=on&_busy_timeout=10000&_journal_mode=WAL"
	if strings.Contains(s.path, "?") {
		return s.path + "&" + params
	}
	return "file:" + s.path + "?" + params
}

func (s *SQLite) InitDB(ctx context.Context) error {
	var err error
	s.conn, err = sql.Open("sqlite3", s.dsn())
	if err != nil {
		return err
	}

	res, err := s.conn.ExecContext(ctx, schema(DialectSQLite))
	if err != nil {
		return err
	}

	dbLogger.Info().Str("path", s.path).Any("db_result", res).Msg("Database initialized")
	return nil
}

func (s *SQLite) Get() *sql.DB {
	return s.conn
}

func (s *SQLite) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (s *SQLite) Dialect() Dialect {
	return DialectSQLite
}

func (s *SQLite) Builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

func (s *SQLite) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	logQuery("Query", query)
	return s.conn.QueryContext(ctx, query, args...)
}

func (s *SQLite) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	logQuery("Exec", query)
	return s.conn.ExecContext(ctx, query, args...)
}
