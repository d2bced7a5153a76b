package db

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

const failedToInitDB = "Failed to initialize database: %v"

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	SetLogger(zerolog.New(os.Stdout).Level(zerolog.ErrorLevel))

	db := NewSQLite(filepath.Join(t.TempDir(), "ledger.db"))
	if err := db.InitDB(context.Background()); err != nil {
		t.Fatalf(failedToInitDB, err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewSQLite(t *testing.T) {
	db := NewSQLite("")

	if db == nil {
		t.Fatal("Expected non-nil SQLite instance")
	}
	if db.conn != nil {
		t.Error("Expected connection to be nil initially")
	}
	if db.path != DefaultSQLitePath {
		t.Errorf("Expected default path %q, got %q", DefaultSQLitePath, db.path)
	}
}

func TestOpen(t *testing.T) {
	testCases := []struct {
		driver  string
		dialect Dialect
		wantErr bool
	}{
		{driver: "", dialect: DialectSQLite},
		{driver: "sqlite3", dialect: DialectSQLite},
		{driver: "postgres", dialect: DialectPostgres},
		{driver: "mysql", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.driver, func(t *testing.T) {
			db, err := Open(tc.driver, "")
			if tc.wantErr {
				if err == nil {
					t.Error("Expected error for unsupported driver")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if db.Dialect() != tc.dialect {
				t.Errorf("Expected dialect %q, got %q", tc.dialect, db.Dialect())
			}
		})
	}
}

func TestSchema(t *testing.T) {
	if s := schema(DialectPostgres); !strings.Contains(s, "BYTEA") || strings.Contains(s, "{{") {
		t.Error("Postgres schema was not specialised")
	}
	if s := schema(DialectSQLite); !strings.Contains(s, "BLOB") || strings.Contains(s, "{{") {
		t.Error("SQLite schema was not specialised")
	}
}

func TestSQLiteBasicOperations(t *testing.T) {
	db := newTestSQLite(t)
	ctx := context.Background()

	t.Run("Connection is established", func(t *testing.T) {
		if db.Get() == nil {
			t.Fatal("Expected database connection to be established")
		}
		if err := db.Get().Ping(); err != nil {
			t.Errorf("Failed to ping database: %v", err)
		}
	})

	t.Run("Verify tables are created", func(t *testing.T) {
		for _, table := range []string{"posts", "versions"} {
			rows, err := db.Query(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name=?", table)
			if err != nil {
				t.Errorf("Failed to query for table %s: %v", table, err)
				continue
			}
			if !rows.Next() {
				t.Errorf("Expected table %s to exist", table)
			}
			rows.Close()
		}
	})

	t.Run("Verify versions schema", func(t *testing.T) {
		rows, err := db.Query(ctx, "PRAGMA table_info(versions)")
		if err != nil {
			t.Fatalf("Failed to get versions table info: %v", err)
		}
		defer rows.Close()

		columns := make(map[string]bool)
		for rows.Next() {
			var cid int
			var name, dataType string
			var notNull, pk int
			var defaultValue sql.NullString

			if err := rows.Scan(&cid, &name, &dataType, &notNull, &defaultValue, &pk); err != nil {
				t.Errorf("Failed to scan column info: %v", err)
				continue
			}
			columns[name] = true
		}

		expected := []string{"id", "post_id", "version_number", "content", "content_encoding", "content_hash",
			"title", "excerpt", "tags", "change_summary", "created_by", "created_at", "restored_from"}
		for _, col := range expected {
			if !columns[col] {
				t.Errorf("Expected versions table to have column %s", col)
			}
		}
	})

	t.Run("Foreign keys are enabled", func(t *testing.T) {
		var enabled int
		if err := db.Get().QueryRow("PRAGMA foreign_keys").Scan(&enabled); err != nil {
			t.Fatalf("Failed to check foreign keys: %v", err)
		}
		if enabled != 1 {
			t.Error("Expected foreign keys to be enabled")
		}
	})

	t.Run("InitDB is idempotent", func(t *testing.T) {
		again := NewSQLite(db.path)
		defer again.Close()
		if err := again.InitDB(ctx); err != nil {
			t.Fatalf(failedToInitDB, err)
		}
	})
}

func TestVersionNumbersAreUniquePerPost(t *testing.T) {
	db := newTestSQLite(t)
	ctx := context.Background()

	insertPost := `INSERT INTO posts (id, slug, created_at, modified_at) VALUES (?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`
	insertVersion := `INSERT INTO versions (id, post_id, version_number, content, content_encoding, content_hash, created_at)
		VALUES (?, ?, ?, x'00', 'none', 'h', CURRENT_TIMESTAMP)`

	if _, err := db.Exec(ctx, insertPost, "p1", "first"); err != nil {
		t.Fatalf("Failed to insert post: %v", err)
	}
	if _, err := db.Exec(ctx, insertPost, "p2", "second"); err != nil {
		t.Fatalf("Failed to insert post: %v", err)
	}

	if _, err := db.Exec(ctx, insertVersion, "v1", "p1", 1); err != nil {
		t.Fatalf("Failed to insert version: %v", err)
	}
	if _, err := db.Exec(ctx, insertVersion, "v2", "p2", 1); err != nil {
		t.Errorf("Same number on another post should be allowed: %v", err)
	}
	if _, err := db.Exec(ctx, insertVersion, "v3", "p1", 1); err == nil {
		t.Error("Expected duplicate version number to be rejected")
	}
	if _, err := db.Exec(ctx, insertVersion, "v4", "missing", 1); err == nil {
		t.Error("Expected version of unknown post to be rejected")
	}
}
