package ledger

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/debemdeboas/archive-ledger/internal/db"
	"github.com/debemdeboas/archive-ledger/internal/document"
	"github.com/debemdeboas/archive-ledger/internal/exception"
	"github.com/debemdeboas/archive-ledger/internal/model"
	"github.com/debemdeboas/archive-ledger/internal/repository"
)

func paragraph(text string, marks ...string) document.Document {
	return document.Document{{
		Type:     document.TypeBlock,
		Style:    document.StyleNormal,
		Children: []document.Span{{Type: document.TypeSpan, Text: text, Marks: marks}},
	}}
}

func newService(t *testing.T) (*Service, *model.Post) {
	t.Helper()
	s := New(repository.NewMemoryStore())
	post, err := s.CreatePost(context.Background(), NewPost{Slug: "hello-world", Owner: "author"})
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	return s, post
}

func save(t *testing.T, s *Service, postID model.PostID, text, title string) *model.Version {
	t.Helper()
	v, err := s.CreateVersion(context.Background(), postID, paragraph(text),
		model.Metadata{Title: title, Tags: []string{"t"}},
		model.ChangeNote{Summary: "save " + text, CreatedBy: "author"})
	if err != nil {
		t.Fatalf("CreateVersion failed: %v", err)
	}
	return v
}

func TestCreatePost(t *testing.T) {
	s := New(repository.NewMemoryStore())
	ctx := context.Background()

	post, err := s.CreatePost(ctx, NewPost{Slug: "first-post"})
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	if post.Status != model.StatusDraft || post.HasVersions() || post.ID == "" {
		t.Errorf("Unexpected new post: %+v", post)
	}

	testCases := []struct {
		name string
		in   NewPost
		code string
	}{
		{"Invalid slug", NewPost{Slug: "Not A Slug"}, "INVALID_SLUG"},
		{"Empty slug", NewPost{}, "INVALID_SLUG"},
		{"Unknown status", NewPost{Slug: "x", Status: "deleted"}, "UNKNOWN_STATUS"},
		{"Duplicate slug", NewPost{Slug: "first-post"}, "SLUG_TAKEN"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.CreatePost(ctx, tc.in)
			var appErr *exception.AppError
			if !errors.As(err, &appErr) || appErr.Code != tc.code {
				t.Errorf("Expected %s, got %v", tc.code, err)
			}
		})
	}

	bySlug, err := s.GetPostBySlug(ctx, "first-post")
	if err != nil || bySlug.ID != post.ID {
		t.Errorf("GetPostBySlug = %v, %v", bySlug, err)
	}
	posts, err := s.ListPosts(ctx)
	if err != nil || len(posts) != 1 {
		t.Errorf("ListPosts = %d posts, %v", len(posts), err)
	}
}

func TestVersionNumbersAreGapless(t *testing.T) {
	s, post := newService(t)
	ctx := context.Background()

	const k = 5
	var last *model.Version
	for i := 1; i <= k; i++ {
		last = save(t, s, post.ID, fmt.Sprint("edit ", i), "Title")
		if last.Number != i {
			t.Errorf("Expected version %d, got %d", i, last.Number)
		}
	}

	versions, err := s.ListVersions(ctx, post.ID)
	if err != nil {
		t.Fatalf("ListVersions failed: %v", err)
	}
	if len(versions) != k {
		t.Fatalf("Expected %d versions, got %d", k, len(versions))
	}
	for i, v := range versions {
		if v.Number != k-i {
			t.Errorf("Expected newest first, position %d has %d", i, v.Number)
		}
	}

	current, err := s.GetCurrentVersion(ctx, post.ID)
	if err != nil {
		t.Fatalf("GetCurrentVersion failed: %v", err)
	}
	if current.ID != last.ID || current.PostID != post.ID {
		t.Errorf("Expected current %s, got %s", last.ID, current.ID)
	}
}

func TestCreateVersionRejectsInvalidContent(t *testing.T) {
	s, post := newService(t)
	ctx := context.Background()

	_, err := s.CreateVersion(ctx, post.ID, paragraph("x", "missing-link"), model.Metadata{}, model.ChangeNote{})
	if !errors.Is(err, exception.ErrValidation) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}

	versions, err := s.ListVersions(ctx, post.ID)
	if err != nil {
		t.Fatalf("ListVersions failed: %v", err)
	}
	if len(versions) != 0 {
		t.Errorf("Expected no versions to be written, got %d", len(versions))
	}
	if _, err := s.GetCurrentVersion(ctx, post.ID); !errors.Is(err, exception.ErrNotFound) {
		t.Errorf("Expected NotFound for a post without versions, got %v", err)
	}
}

func TestCreateVersionEmptyDocument(t *testing.T) {
	s, post := newService(t)

	v, err := s.CreateVersion(context.Background(), post.ID, nil, model.Metadata{}, model.ChangeNote{})
	if err != nil {
		t.Fatalf("CreateVersion failed: %v", err)
	}
	if v.Content == nil || len(v.Content) != 0 {
		t.Errorf("Expected empty document, got %#v", v.Content)
	}
	if v.ContentHash == "" {
		t.Error("Expected a content hash")
	}
}

func TestCreateVersionUnknownPost(t *testing.T) {
	s, _ := newService(t)

	_, err := s.CreateVersion(context.Background(), "missing", paragraph("x"), model.Metadata{}, model.ChangeNote{})
	if !errors.Is(err, exception.ErrNotFound) {
		t.Errorf("Expected NotFound, got %v", err)
	}
}

func TestVersionsAreImmutable(t *testing.T) {
	s, post := newService(t)
	ctx := context.Background()

	v := save(t, s, post.ID, "original", "Title")
	v.Content[0].Children[0].Text = "mutated"
	v.Title = "mutated"

	got, err := s.GetVersion(ctx, v.ID)
	if err != nil {
		t.Fatalf("GetVersion failed: %v", err)
	}
	if got.Content[0].Children[0].Text != "original" || got.Title != "Title" {
		t.Error("Returned version shares memory with the ledger")
	}
}

func TestRollback(t *testing.T) {
	s, post := newService(t)
	ctx := context.Background()

	v1 := save(t, s, post.ID, "first draft", "First")
	v2 := save(t, s, post.ID, "second draft", "Second")

	v3, err := s.Rollback(ctx, post.ID, v1.ID, "editor")
	if err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}

	if v3.Number != 3 || v3.ID == v1.ID {
		t.Errorf("Expected a new version 3, got %d (%s)", v3.Number, v3.ID)
	}
	if !v3.Content.Equal(v1.Content) {
		t.Error("Rolled back content differs from the target")
	}
	if diff := cmp.Diff(v1.Metadata, v3.Metadata); diff != "" {
		t.Errorf("Metadata mismatch (-want +got):\n%s", diff)
	}
	if v3.ChangeSummary != "Rolled back to version 1" || v3.RestoredFrom != 1 || v3.CreatedBy != "editor" {
		t.Errorf("Unexpected rollback attribution: %+v", v3.Summary(v3.ID))
	}
	if v3.ContentHash != v1.ContentHash {
		t.Error("Identical content should hash identically")
	}

	current, err := s.GetCurrentVersion(ctx, post.ID)
	if err != nil || current.ID != v3.ID {
		t.Errorf("Expected pointer on %s, got %v (%v)", v3.ID, current, err)
	}

	for _, old := range []*model.Version{v1, v2} {
		got, err := s.GetVersion(ctx, old.ID)
		if err != nil {
			t.Fatalf("GetVersion failed: %v", err)
		}
		if diff := cmp.Diff(old, got); diff != "" {
			t.Errorf("History changed after rollback (-want +got):\n%s", diff)
		}
	}
}

func TestRollbackNotFound(t *testing.T) {
	s, post := newService(t)
	ctx := context.Background()
	save(t, s, post.ID, "mine", "Mine")

	other, err := s.CreatePost(ctx, NewPost{Slug: "other"})
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	foreign := save(t, s, other.ID, "theirs", "Theirs")

	testCases := []struct {
		name   string
		target model.VersionID
	}{
		{"Missing version", "missing"},
		{"Version of another post", foreign.ID},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Rollback(ctx, post.ID, tc.target, "editor")
			if !errors.Is(err, exception.ErrNotFound) {
				t.Errorf("Expected NotFound, got %v", err)
			}
		})
	}

	versions, _ := s.ListVersions(ctx, post.ID)
	if len(versions) != 1 {
		t.Errorf("Failed rollbacks must not write, got %d versions", len(versions))
	}
}

func TestVersionNotifier(t *testing.T) {
	s, post := newService(t)

	var got []*model.Version
	s.SetVersionNotifier(func(v *model.Version) { got = append(got, v) })

	v1 := save(t, s, post.ID, "one", "One")
	v2, err := s.Rollback(context.Background(), post.ID, v1.ID, "author")
	if err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}

	if len(got) != 2 || got[0].ID != v1.ID || got[1].ID != v2.ID {
		t.Errorf("Expected notifications for both versions, got %d", len(got))
	}
}

type failingStore struct {
	*repository.MemoryStore
}

func (failingStore) AppendVersion(context.Context, *model.Version) (*model.Version, error) {
	return nil, errors.New("disk full")
}

func TestStoreFailuresAreStorageErrors(t *testing.T) {
	store := failingStore{repository.NewMemoryStore()}
	s := New(store)
	post, err := s.CreatePost(context.Background(), NewPost{Slug: "p"})
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}

	_, err = s.CreateVersion(context.Background(), post.ID, paragraph("x"), model.Metadata{}, model.ChangeNote{})
	if !errors.Is(err, exception.ErrStorage) {
		t.Errorf("Expected StorageError, got %v", err)
	}
}

func TestConcurrentCreateVersionSQLite(t *testing.T) {
	database := db.NewSQLite(filepath.Join(t.TempDir(), "ledger.db"))
	if err := database.InitDB(context.Background()); err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	store := repository.NewDBStore(database, nil)
	defer store.Close()

	s := New(store)
	ctx := context.Background()
	post, err := s.CreatePost(ctx, NewPost{Slug: "busy-post"})
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}

	const writers = 6
	var wg sync.WaitGroup
	results := make(chan *model.Version, writers)
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := s.CreateVersion(ctx, post.ID, paragraph(fmt.Sprint(i)), model.Metadata{}, model.ChangeNote{})
			if err != nil {
				t.Errorf("CreateVersion failed: %v", err)
				return
			}
			results <- v
		}()
	}
	wg.Wait()
	close(results)

	seen := map[int]bool{}
	for v := range results {
		seen[v.Number] = true
	}
	for n := 1; n <= writers; n++ {
		if !seen[n] {
			t.Errorf("Missing version number %d", n)
		}
	}

	current, err := s.GetCurrentVersion(ctx, post.ID)
	if err != nil {
		t.Fatalf("GetCurrentVersion failed: %v", err)
	}
	if current.Number != writers {
		t.Errorf("Expected the last commit to own the pointer, got version %d", current.Number)
	}
}
