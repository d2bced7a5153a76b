// Package repository persists posts and their version ledgers.
package repository

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/archive-ledger/internal/model"
)

// Store is the persistence boundary of the ledger. Implementations must make
// AppendVersion atomic: the next number is allocated, the version inserted and
// the post's current pointer moved in one step.
type Store interface {
	CreatePost(ctx context.Context, post *model.Post) error
	GetPost(ctx context.Context, id model.PostID) (*model.Post, error)
	GetPostBySlug(ctx context.Context, slug string) (*model.Post, error)
	ListPosts(ctx context.Context) ([]*model.Post, error)

	// AppendVersion assigns v its number (and an id when empty) and makes it
	// the post's current version.
	AppendVersion(ctx context.Context, v *model.Version) (*model.Version, error)
	GetVersion(ctx context.Context, id model.VersionID) (*model.Version, error)
	// ListVersions returns a post's versions newest first.
	ListVersions(ctx context.Context, postID model.PostID) ([]*model.Version, error)

	Close() error
}

var repoLogger zerolog.Logger = zerolog.Nop()

func SetLogger(l zerolog.Logger) {
	repoLogger = l
}
