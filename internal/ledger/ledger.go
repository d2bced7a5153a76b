// Package ledger keeps the append-only version history of every post and
// the movable pointer to its current version.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/debemdeboas/archive-ledger/internal/cache"
	"github.com/debemdeboas/archive-ledger/internal/document"
	"github.com/debemdeboas/archive-ledger/internal/exception"
	"github.com/debemdeboas/archive-ledger/internal/model"
	"github.com/debemdeboas/archive-ledger/internal/repository"
	"github.com/debemdeboas/archive-ledger/internal/util"
)

var ledgerLogger zerolog.Logger = zerolog.Nop()

func SetLogger(l zerolog.Logger) {
	ledgerLogger = l
}

const versionCacheSize = 4096

type Service struct {
	store repository.Store

	// Versions never change once written, so entries are only ever evicted.
	versions *cache.Cache[model.VersionID, *model.Version]

	notifier func(*model.Version)
	now      func() time.Time
}

func New(store repository.Store) *Service {
	return &Service{
		store:    store,
		versions: cache.NewBoundedCache[model.VersionID, *model.Version](versionCacheSize),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetVersionNotifier sets a function called after a version becomes current.
func (s *Service) SetVersionNotifier(notifier func(*model.Version)) {
	s.notifier = notifier
}

type NewPost struct {
	Slug   string
	Status model.PostStatus
	Owner  model.UserID
}

func (s *Service) CreatePost(ctx context.Context, p NewPost) (*model.Post, error) {
	if !util.IsValidSlug(p.Slug) {
		return nil, exception.NewValidationError("INVALID_SLUG", "slug '%s' must be lowercase letters, digits and single hyphens", p.Slug)
	}
	if p.Status == "" {
		p.Status = model.StatusDraft
	}
	if !p.Status.Valid() {
		return nil, exception.NewValidationError("UNKNOWN_STATUS", "unknown post status '%s'", p.Status)
	}

	now := s.now()
	post := &model.Post{
		ID:           model.PostID(uuid.New().String()),
		Slug:         p.Slug,
		Status:       p.Status,
		Owner:        p.Owner,
		CreatedDate:  now,
		ModifiedDate: now,
	}
	if err := s.store.CreatePost(ctx, post); err != nil {
		return nil, exception.AsStorage("error creating post", err)
	}

	ledgerLogger.Info().Str("post_id", string(post.ID)).Str("slug", post.Slug).Msg("Post created")
	return post, nil
}

func (s *Service) GetPost(ctx context.Context, id model.PostID) (*model.Post, error) {
	post, err := s.store.GetPost(ctx, id)
	return post, exception.AsStorage("error loading post", err)
}

func (s *Service) GetPostBySlug(ctx context.Context, slug string) (*model.Post, error) {
	post, err := s.store.GetPostBySlug(ctx, slug)
	return post, exception.AsStorage("error loading post", err)
}

func (s *Service) ListPosts(ctx context.Context) ([]*model.Post, error) {
	posts, err := s.store.ListPosts(ctx)
	return posts, exception.AsStorage("error listing posts", err)
}

// CreateVersion validates content and appends it as the post's newest version.
// Invalid content is rejected before anything is written.
func (s *Service) CreateVersion(ctx context.Context, postID model.PostID, content document.Document, meta model.Metadata, note model.ChangeNote) (*model.Version, error) {
	if err := document.Validate(content); err != nil {
		return nil, err
	}
	return s.append(ctx, &model.Version{
		PostID:        postID,
		Content:       content.Clone(),
		Metadata:      meta.Clone(),
		ChangeSummary: note.Summary,
		CreatedBy:     note.CreatedBy,
	})
}

// Rollback appends a copy of target as the newest version. History before
// it is left untouched.
func (s *Service) Rollback(ctx context.Context, postID model.PostID, targetID model.VersionID, author model.UserID) (*model.Version, error) {
	target, err := s.GetPostVersion(ctx, postID, targetID)
	if err != nil {
		return nil, err
	}

	return s.append(ctx, &model.Version{
		PostID:        postID,
		Content:       target.Content.Clone(),
		Metadata:      target.Metadata.Clone(),
		ChangeSummary: fmt.Sprintf("Rolled back to version %d", target.Number),
		CreatedBy:     author,
		RestoredFrom:  target.Number,
	})
}

func (s *Service) append(ctx context.Context, v *model.Version) (*model.Version, error) {
	if v.Content == nil {
		v.Content = document.Document{}
	}
	hash, err := ContentHash(v.Content)
	if err != nil {
		return nil, err
	}
	v.ContentHash = hash
	v.CreatedAt = s.now()

	stored, err := s.store.AppendVersion(ctx, v)
	if err != nil {
		return nil, exception.AsStorage("error appending version", err)
	}
	s.versions.Set(stored.ID, stored.Clone())

	ledgerLogger.Info().
		Str("post_id", string(stored.PostID)).
		Str("version_id", string(stored.ID)).
		Int("version_number", stored.Number).
		Int("restored_from", stored.RestoredFrom).
		Msg("Version created")

	if s.notifier != nil {
		s.notifier(stored.Clone())
	}
	return stored, nil
}

func (s *Service) GetVersion(ctx context.Context, id model.VersionID) (*model.Version, error) {
	if v, ok := s.versions.Get(id); ok {
		return v.Clone(), nil
	}

	v, err := s.store.GetVersion(ctx, id)
	if err != nil {
		return nil, exception.AsStorage("error loading version", err)
	}
	s.versions.Set(v.ID, v.Clone())
	return v, nil
}

// GetPostVersion loads a version and reports NotFound when it belongs to
// another post.
func (s *Service) GetPostVersion(ctx context.Context, postID model.PostID, id model.VersionID) (*model.Version, error) {
	v, err := s.GetVersion(ctx, id)
	if err != nil {
		return nil, err
	}
	if v.PostID != postID {
		return nil, exception.NewForeignVersionError(string(id), string(postID))
	}
	return v, nil
}

// ListVersions returns the post's versions newest first.
func (s *Service) ListVersions(ctx context.Context, postID model.PostID) ([]*model.Version, error) {
	versions, err := s.store.ListVersions(ctx, postID)
	if err != nil {
		return nil, exception.AsStorage("error listing versions", err)
	}
	for _, v := range versions {
		s.versions.Set(v.ID, v.Clone())
	}
	return versions, nil
}

func (s *Service) GetCurrentVersion(ctx context.Context, postID model.PostID) (*model.Version, error) {
	post, err := s.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !post.HasVersions() {
		return nil, &exception.AppError{
			Kind:    exception.KindNotFound,
			Code:    "NO_VERSIONS",
			Message: fmt.Sprintf("post '%s' has no versions yet", postID),
		}
	}
	return s.GetPostVersion(ctx, postID, post.CurrentVersionID)
}

// ContentHash is the sha256 of the JSON encoding of doc.
func ContentHash(doc document.Document) (string, error) {
	if doc == nil {
		doc = document.Document{}
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return "", exception.NewInternalError("error encoding content", err)
	}
	return util.ContentHash(data), nil
}
