package model

import (
	"testing"
	"time"

	"github.com/debemdeboas/archive-ledger/internal/document"
)

func TestPostStatus(t *testing.T) {
	for _, s := range []PostStatus{StatusDraft, StatusPublished, StatusArchived} {
		if !s.Valid() {
			t.Errorf("Expected %q to be valid", s)
		}
	}
	if PostStatus("deleted").Valid() {
		t.Error("Expected unknown status to be invalid")
	}
}

func TestPost(t *testing.T) {
	t.Run("Post without versions", func(t *testing.T) {
		post := &Post{ID: "p1", Slug: "hello", Status: StatusDraft}
		if post.HasVersions() {
			t.Error("Expected a fresh post to have no versions")
		}
	})

	t.Run("Post with a current version", func(t *testing.T) {
		post := &Post{ID: "p1", CurrentVersionID: "v1"}
		if !post.HasVersions() {
			t.Error("Expected post with a pointer to report versions")
		}
	})
}

func sampleVersion() *Version {
	return &Version{
		ID:     "v1",
		PostID: "p1",
		Number: 3,
		Content: document.Document{{
			Type:     document.TypeBlock,
			Style:    document.StyleNormal,
			Children: []document.Span{{Text: "Hello", Marks: []string{document.MarkStrong}}},
		}},
		Metadata:      Metadata{Title: "Title", Excerpt: "Excerpt", Tags: []string{"a", "b"}},
		ChangeSummary: "Rolled back to version 1",
		CreatedBy:     "author",
		CreatedAt:     time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		RestoredFrom:  1,
	}
}

func TestVersionClone(t *testing.T) {
	v := sampleVersion()
	c := v.Clone()

	c.Content[0].Children[0].Text = "changed"
	c.Tags[0] = "changed"

	if v.Content[0].Children[0].Text != "Hello" {
		t.Error("Clone shares content with the original")
	}
	if v.Tags[0] != "a" {
		t.Error("Clone shares tags with the original")
	}

	var nilVersion *Version
	if nilVersion.Clone() != nil {
		t.Error("Expected clone of nil to be nil")
	}
}

func TestVersionSummary(t *testing.T) {
	v := sampleVersion()

	s := v.Summary("v1")
	if !s.Current {
		t.Error("Expected summary to be marked current")
	}
	if s.Number != 3 || s.Title != "Title" || s.RestoredFrom != 1 || s.CreatedBy != "author" {
		t.Errorf("Unexpected summary: %+v", s)
	}

	if v.Summary("v2").Current {
		t.Error("Expected summary for another pointer to not be current")
	}
}
