// Package model defines the posts and version snapshots kept by the ledger.
package model

import (
	"slices"
	"time"

	"github.com/debemdeboas/archive-ledger/internal/document"
)

type PostID string

type VersionID string

type UserID string

type PostStatus string

const (
	StatusDraft     PostStatus = "draft"
	StatusPublished PostStatus = "published"
	StatusArchived  PostStatus = "archived"
)

func (s PostStatus) Valid() bool {
	return s == StatusDraft || s == StatusPublished || s == StatusArchived
}

type Post struct {
	ID     PostID     `json:"id"`
	Slug   string     `json:"slug"`
	Status PostStatus `json:"status"`

	// CurrentVersionID is a lookup key into the post's ledger, empty until
	// the first version is written. The ledger owns the versions.
	CurrentVersionID VersionID `json:"current_version_id,omitempty"`

	Owner        UserID    `json:"owner,omitempty"`
	CreatedDate  time.Time `json:"created_at"`
	ModifiedDate time.Time `json:"modified_at"`
}

func (p *Post) HasVersions() bool {
	return p.CurrentVersionID != ""
}

// Metadata is the part of a post snapshotted with every version.
type Metadata struct {
	Title   string   `json:"title"`
	Excerpt string   `json:"excerpt"`
	Tags    []string `json:"tags"`
}

func (m Metadata) Clone() Metadata {
	m.Tags = slices.Clone(m.Tags)
	return m
}

// ChangeNote attributes a version to its author.
type ChangeNote struct {
	Summary   string `json:"change_summary"`
	CreatedBy UserID `json:"created_by"`
}

// Version is an immutable snapshot in a post's ledger.
type Version struct {
	ID     VersionID `json:"id"`
	PostID PostID    `json:"post_id"`
	Number int       `json:"version_number"`

	Content document.Document `json:"content"`
	Metadata

	ChangeSummary string    `json:"change_summary"`
	CreatedBy     UserID    `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`

	// ContentHash is the sha256 of the JSON encoded content.
	ContentHash string `json:"content_hash"`

	// RestoredFrom is the number of the version a rollback copied, zero otherwise.
	RestoredFrom int `json:"restored_from,omitempty"`
}

// Clone copies the version including its content, so that the copy can be
// handed out without sharing memory with a cached snapshot.
func (v *Version) Clone() *Version {
	if v == nil {
		return nil
	}
	c := *v
	c.Content = v.Content.Clone()
	c.Metadata = v.Metadata.Clone()
	return &c
}

// Summary is a version without its content, used for history listings.
type Summary struct {
	ID            VersionID `json:"id"`
	Number        int       `json:"version_number"`
	Title         string    `json:"title"`
	ChangeSummary string    `json:"change_summary"`
	CreatedBy     UserID    `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
	RestoredFrom  int       `json:"restored_from,omitempty"`
	Current       bool      `json:"current"`
}

func (v *Version) Summary(current VersionID) Summary {
	return Summary{
		ID:            v.ID,
		Number:        v.Number,
		Title:         v.Title,
		ChangeSummary: v.ChangeSummary,
		CreatedBy:     v.CreatedBy,
		CreatedAt:     v.CreatedAt,
		RestoredFrom:  v.RestoredFrom,
		Current:       v.ID == current,
	}
}
