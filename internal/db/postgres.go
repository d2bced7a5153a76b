package db

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
)

type Postgres struct {
	dsn  string
	conn *sql.DB
}

func NewPostgres(dsn string) *Postgres {
	return &Postgres{dsn: dsn}
}

func (p *Postgres) InitDB(ctx context.Context) error {
	var err error
	p.conn, err = sql.Open("postgres", p.dsn)
	if err != nil {
		return err
	}

	if err := p.conn.PingContext(ctx); err != nil {
		return err
	}

	if _, err := p.conn.ExecContext(ctx, schema(DialectPostgres)); err != nil {
		return err
	}

	dbLogger.Info().Msg("Postgres database initialized")
	return nil
}

func (p *Postgres) Get() *sql.DB {
	return p.conn
}

func (p *Postgres) Close() error {
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

func (p *Postgres) Dialect() Dialect {
	return DialectPostgres
}

func (p *Postgres) Builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

func (p *Postgres) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	logQuery("Query", query)
	return p.conn.QueryContext(ctx, query, args...)
}

func (p *Postgres) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	logQuery("Exec", query)
	return p.conn.ExecContext(ctx, query, args...)
}
