package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/debemdeboas/archive-ledger/internal/db"
	"github.com/debemdeboas/archive-ledger/internal/document"
	"github.com/debemdeboas/archive-ledger/internal/exception"
	"github.com/debemdeboas/archive-ledger/internal/model"
	"github.com/debemdeboas/archive-ledger/internal/util/compression"
)

var postColumns = []string{"id", "slug", "status", "current_version_id", "owner", "created_at", "modified_at"}

var versionColumns = []string{
	"id", "post_id", "version_number", "content", "content_encoding", "content_hash",
	"title", "excerpt", "tags", "change_summary", "created_by", "created_at", "restored_from",
}

type DBStore struct { // implements Store
	db         db.DB
	sb         sq.StatementBuilderType
	compressor compression.Compressor
}

func NewDBStore(database db.DB, compressor compression.Compressor) *DBStore {
	if compressor == nil {
		compressor = compression.ZstdCompressor{}
	}
	return &DBStore{
		db:         database,
		sb:         database.Builder(),
		compressor: compressor,
	}
}

func (s *DBStore) Close() error {
	return s.db.Close()
}

func (s *DBStore) CreatePost(ctx context.Context, post *model.Post) error {
	tx, err := s.db.Get().BeginTx(ctx, nil)
	if err != nil {
		return exception.NewStorageError("error starting transaction", err)
	}
	defer tx.Rollback()

	query, args, err := s.sb.Select("COUNT(*)").From("posts").Where(sq.Eq{"slug": post.Slug}).ToSql()
	if err != nil {
		return exception.NewInternalError("error building query", err)
	}
	var taken int
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&taken); err != nil {
		return exception.NewStorageError("error checking slug", err)
	}
	if taken > 0 {
		return exception.NewSlugTakenError(post.Slug)
	}

	query, args, err = s.sb.Insert("posts").
		Columns(postColumns...).
		Values(post.ID, post.Slug, post.Status, nullString(string(post.CurrentVersionID)), string(post.Owner), post.CreatedDate, post.ModifiedDate).
		ToSql()
	if err != nil {
		return exception.NewInternalError("error building query", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return exception.NewStorageError("error saving post", err)
	}

	if err := tx.Commit(); err != nil {
		return exception.NewStorageError("error committing post", err)
	}

	repoLogger.Debug().Str("post_id", string(post.ID)).Str("slug", post.Slug).Msg("Post created")
	return nil
}

func (s *DBStore) GetPost(ctx context.Context, id model.PostID) (*model.Post, error) {
	post, err := s.getPost(ctx, sq.Eq{"id": id})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, exception.NewPostNotFoundError(string(id))
	}
	return post, err
}

func (s *DBStore) GetPostBySlug(ctx context.Context, slug string) (*model.Post, error) {
	post, err := s.getPost(ctx, sq.Eq{"slug": slug})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, exception.NewPostNotFoundError(slug)
	}
	return post, err
}

func (s *DBStore) getPost(ctx context.Context, where sq.Eq) (*model.Post, error) {
	query, args, err := s.sb.Select(postColumns...).From("posts").Where(where).ToSql()
	if err != nil {
		return nil, exception.NewInternalError("error building query", err)
	}

	post, err := scanPost(s.db.Get().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, exception.NewStorageError("error scanning post", err)
	}
	return post, nil
}

func (s *DBStore) ListPosts(ctx context.Context) ([]*model.Post, error) {
	query, args, err := s.sb.Select(postColumns...).From("posts").OrderBy("modified_at DESC", "id").ToSql()
	if err != nil {
		return nil, exception.NewInternalError("error building query", err)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, exception.NewStorageError("error querying posts", err)
	}
	defer rows.Close()

	posts := make([]*model.Post, 0)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, exception.NewStorageError("error scanning post", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, exception.NewStorageError("error reading posts", err)
	}
	return posts, nil
}

func (s *DBStore) AppendVersion(ctx context.Context, v *model.Version) (*model.Version, error) {
	stored := v.Clone()
	if stored.ID == "" {
		stored.ID = model.VersionID(uuid.New().String())
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	content, err := json.Marshal(stored.Content)
	if err != nil {
		return nil, exception.NewInternalError("error encoding content", err)
	}
	compressed, err := s.compressor.Compress(content)
	if err != nil {
		return nil, exception.NewInternalError("error compressing content", err)
	}
	tags := stored.Tags
	if tags == nil {
		tags = []string{}
	}
	encodedTags, err := json.Marshal(tags)
	if err != nil {
		return nil, exception.NewInternalError("error encoding tags", err)
	}

	// SQLite opens this transaction with BEGIN IMMEDIATE, Postgres locks the
	// post row below. Either way the MAX read and the insert are serialized.
	tx, err := s.db.Get().BeginTx(ctx, nil)
	if err != nil {
		return nil, exception.NewStorageError("error starting transaction", err)
	}
	defer tx.Rollback()

	lock := s.sb.Select("id").From("posts").Where(sq.Eq{"id": stored.PostID})
	if s.db.Dialect() == db.DialectPostgres {
		lock = lock.Suffix("FOR UPDATE")
	}
	query, args, err := lock.ToSql()
	if err != nil {
		return nil, exception.NewInternalError("error building query", err)
	}
	var postID string
	err = tx.QueryRowContext(ctx, query, args...).Scan(&postID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, exception.NewPostNotFoundError(string(stored.PostID))
	}
	if err != nil {
		return nil, exception.NewStorageError("error locking post", err)
	}

	query, args, err = s.sb.Select("COALESCE(MAX(version_number), 0)").
		From("versions").
		Where(sq.Eq{"post_id": stored.PostID}).
		ToSql()
	if err != nil {
		return nil, exception.NewInternalError("error building query", err)
	}
	var last int
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&last); err != nil {
		return nil, exception.NewStorageError("error reading version number", err)
	}
	stored.Number = last + 1

	query, args, err = s.sb.Insert("versions").
		Columns(versionColumns...).
		Values(
			stored.ID, stored.PostID, stored.Number, compressed, compression.Name(s.compressor), stored.ContentHash,
			stored.Title, stored.Excerpt, string(encodedTags), stored.ChangeSummary, string(stored.CreatedBy), stored.CreatedAt, stored.RestoredFrom,
		).
		ToSql()
	if err != nil {
		return nil, exception.NewInternalError("error building query", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return nil, exception.NewStorageError("error saving version", err)
	}

	query, args, err = s.sb.Update("posts").
		Set("current_version_id", stored.ID).
		Set("modified_at", stored.CreatedAt).
		Where(sq.Eq{"id": stored.PostID}).
		ToSql()
	if err != nil {
		return nil, exception.NewInternalError("error building query", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return nil, exception.NewStorageError("error moving current version", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, exception.NewStorageError("error committing version", err)
	}

	repoLogger.Debug().
		Str("post_id", string(stored.PostID)).
		Str("version_id", string(stored.ID)).
		Int("version_number", stored.Number).
		Int("compressed_size", len(compressed)).
		Msg("Version appended")

	return stored, nil
}

func (s *DBStore) GetVersion(ctx context.Context, id model.VersionID) (*model.Version, error) {
	query, args, err := s.sb.Select(versionColumns...).From("versions").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, exception.NewInternalError("error building query", err)
	}

	v, err := scanVersion(s.db.Get().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, exception.NewVersionNotFoundError(string(id))
	}
	if err != nil {
		return nil, exception.AsStorage("error scanning version", err)
	}
	return v, nil
}

func (s *DBStore) ListVersions(ctx context.Context, postID model.PostID) ([]*model.Version, error) {
	if _, err := s.GetPost(ctx, postID); err != nil {
		return nil, err
	}

	query, args, err := s.sb.Select(versionColumns...).
		From("versions").
		Where(sq.Eq{"post_id": postID}).
		OrderBy("version_number DESC").
		ToSql()
	if err != nil {
		return nil, exception.NewInternalError("error building query", err)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, exception.NewStorageError("error querying versions", err)
	}
	defer rows.Close()

	versions := make([]*model.Version, 0)
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, exception.AsStorage("error scanning version", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, exception.NewStorageError("error reading versions", err)
	}
	return versions, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(row scanner) (*model.Post, error) {
	var post model.Post
	var current, owner sql.NullString
	err := row.Scan(&post.ID, &post.Slug, &post.Status, &current, &owner, &post.CreatedDate, &post.ModifiedDate)
	if err != nil {
		return nil, err
	}
	post.CurrentVersionID = model.VersionID(current.String)
	post.Owner = model.UserID(owner.String)
	return &post, nil
}

func scanVersion(row scanner) (*model.Version, error) {
	var v model.Version
	var compressed []byte
	var encoding, tags string
	err := row.Scan(
		&v.ID, &v.PostID, &v.Number, &compressed, &encoding, &v.ContentHash,
		&v.Title, &v.Excerpt, &tags, &v.ChangeSummary, &v.CreatedBy, &v.CreatedAt, &v.RestoredFrom,
	)
	if err != nil {
		return nil, err
	}

	decompressor, err := compression.ByName(encoding)
	if err != nil {
		return nil, exception.NewStorageError(fmt.Sprintf("version %s has unknown content encoding", v.ID), err)
	}
	content, err := decompressor.Decompress(compressed)
	if err != nil {
		return nil, exception.NewStorageError("error decompressing content", err)
	}
	if err := json.Unmarshal(content, &v.Content); err != nil {
		return nil, exception.NewStorageError("error decoding content", err)
	}
	if v.Content == nil {
		v.Content = document.Document{}
	}
	if err := json.Unmarshal([]byte(tags), &v.Tags); err != nil {
		return nil, exception.NewStorageError("error decoding tags", err)
	}
	return &v, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
