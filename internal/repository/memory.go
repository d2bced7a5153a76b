package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/debemdeboas/archive-ledger/internal/exception"
	"github.com/debemdeboas/archive-ledger/internal/model"
)

// MemoryStore keeps everything in process. A single mutex serializes writers.
type MemoryStore struct { // implements Store
	mu       sync.RWMutex
	posts    map[model.PostID]*model.Post
	slugs    map[string]model.PostID
	versions map[model.VersionID]*model.Version
	ledgers  map[model.PostID][]model.VersionID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		posts:    make(map[model.PostID]*model.Post),
		slugs:    make(map[string]model.PostID),
		versions: make(map[model.VersionID]*model.Version),
		ledgers:  make(map[model.PostID][]model.VersionID),
	}
}

func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) CreatePost(_ context.Context, post *model.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.slugs[post.Slug]; ok {
		return exception.NewSlugTakenError(post.Slug)
	}
	p := *post
	s.posts[p.ID] = &p
	s.slugs[p.Slug] = p.ID
	return nil
}

func (s *MemoryStore) GetPost(_ context.Context, id model.PostID) (*model.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return nil, exception.NewPostNotFoundError(string(id))
	}
	c := *p
	return &c, nil
}

func (s *MemoryStore) GetPostBySlug(ctx context.Context, slug string) (*model.Post, error) {
	s.mu.RLock()
	id, ok := s.slugs[slug]
	s.mu.RUnlock()
	if !ok {
		return nil, exception.NewPostNotFoundError(slug)
	}
	return s.GetPost(ctx, id)
}

func (s *MemoryStore) ListPosts(_ context.Context) ([]*model.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	posts := make([]*model.Post, 0, len(s.posts))
	for _, p := range s.posts {
		c := *p
		posts = append(posts, &c)
	}
	slices.SortStableFunc(posts, func(a, b *model.Post) int {
		if c := -a.ModifiedDate.Compare(b.ModifiedDate); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return posts, nil
}

func (s *MemoryStore) AppendVersion(_ context.Context, v *model.Version) (*model.Version, error) {
	stored := v.Clone()
	if stored.ID == "" {
		stored.ID = model.VersionID(uuid.New().String())
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[stored.PostID]
	if !ok {
		return nil, exception.NewPostNotFoundError(string(stored.PostID))
	}
	if _, dup := s.versions[stored.ID]; dup {
		return nil, exception.NewStorageError("version id already exists", nil)
	}

	stored.Number = len(s.ledgers[stored.PostID]) + 1
	s.versions[stored.ID] = stored
	s.ledgers[stored.PostID] = append(s.ledgers[stored.PostID], stored.ID)
	post.CurrentVersionID = stored.ID
	post.ModifiedDate = stored.CreatedAt

	return stored.Clone(), nil
}

func (s *MemoryStore) GetVersion(_ context.Context, id model.VersionID) (*model.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.versions[id]
	if !ok {
		return nil, exception.NewVersionNotFoundError(string(id))
	}
	return v.Clone(), nil
}

func (s *MemoryStore) ListVersions(_ context.Context, postID model.PostID) ([]*model.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.posts[postID]; !ok {
		return nil, exception.NewPostNotFoundError(string(postID))
	}

	ids := s.ledgers[postID]
	versions := make([]*model.Version, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		versions = append(versions, s.versions[ids[i]].Clone())
	}
	return versions, nil
}
