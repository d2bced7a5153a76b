package db

import "strings"

// versions rows are never updated or deleted once written.
const schemaTemplate = `
CREATE TABLE IF NOT EXISTS posts (
    id TEXT PRIMARY KEY,
    slug TEXT NOT NULL UNIQUE,
    status TEXT NOT NULL DEFAULT 'draft',
    current_version_id TEXT,
    owner TEXT,
    created_at {{TIMESTAMP}} NOT NULL,
    modified_at {{TIMESTAMP}} NOT NULL
);

CREATE TABLE IF NOT EXISTS versions (
    id TEXT PRIMARY KEY,
    post_id TEXT NOT NULL REFERENCES posts(id),
    version_number INTEGER NOT NULL,
    content {{BLOB}} NOT NULL,
    content_encoding TEXT NOT NULL,
    content_hash TEXT NOT NULL,
    title TEXT NOT NULL DEFAULT '',
    excerpt TEXT NOT NULL DEFAULT '',
    tags TEXT NOT NULL DEFAULT '[]',
    change_summary TEXT NOT NULL DEFAULT '',
    created_by TEXT NOT NULL DEFAULT '',
    created_at {{TIMESTAMP}} NOT NULL,
    restored_from INTEGER NOT NULL DEFAULT 0
);

CREATE UNIQUE INDEX IF NOT EXISTS versions_post_number ON versions (post_id, version_number);
`

func schema(d Dialect) string {
	r := strings.NewReplacer("{{TIMESTAMP}}", "DATETIME", "{{BLOB}}", "BLOB")
	if d == DialectPostgres {
		r = strings.NewReplacer("{{TIMESTAMP}}", "TIMESTAMPTZ", "{{BLOB}}", "BYTEA")
	}
	return r.Replace(schemaTemplate)
}
