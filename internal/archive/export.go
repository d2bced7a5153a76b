package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/debemdeboas/archive-ledger/internal/markdown"
	"github.com/debemdeboas/archive-ledger/internal/model"
	"github.com/debemdeboas/archive-ledger/internal/util"
)

const (
	contentTypeJSON     = "application/json"
	contentTypeMarkdown = "text/markdown; charset=utf-8"
	manifestName        = "manifest.json"
)

// Source is the read side of the ledger.
type Source interface {
	GetPost(ctx context.Context, id model.PostID) (*model.Post, error)
	ListPosts(ctx context.Context) ([]*model.Post, error)
	ListVersions(ctx context.Context, postID model.PostID) ([]*model.Version, error)
}

type Manifest struct {
	PostID           model.PostID     `json:"post_id"`
	Slug             string           `json:"slug"`
	Status           model.PostStatus `json:"status"`
	CurrentVersionID model.VersionID  `json:"current_version_id,omitempty"`
	ExportedAt       time.Time        `json:"exported_at"`
	Versions         []model.Summary  `json:"versions"`
}

// Result counts what one export wrote.
type Result struct {
	Posts    int
	Written  int
	Skipped  int
	Manifests []*Manifest
}

type Exporter struct {
	src    Source
	sink   Sink
	prefix string
	now    func() time.Time
}

func NewExporter(src Source, sink Sink, prefix string) *Exporter {
	return &Exporter{src: src, sink: sink, prefix: prefix, now: func() time.Time { return time.Now().UTC() }}
}

func (e *Exporter) key(post *model.Post, name string) string {
	return path.Join(e.prefix, post.Slug, name)
}

func versionName(v *model.Version, ext string) string {
	return fmt.Sprintf("v%04d%s", v.Number, ext)
}

// ExportPost writes every version of a post as JSON and as Markdown with a
// front matter block, then the manifest. Versions are immutable, so objects
// already in the sink are skipped.
func (e *Exporter) ExportPost(ctx context.Context, id model.PostID) (Result, error) {
	var res Result

	post, err := e.src.GetPost(ctx, id)
	if err != nil {
		return res, err
	}
	versions, err := e.src.ListVersions(ctx, id)
	if err != nil {
		return res, err
	}

	manifest := &Manifest{
		PostID:           post.ID,
		Slug:             post.Slug,
		Status:           post.Status,
		CurrentVersionID: post.CurrentVersionID,
		ExportedAt:       e.now(),
		Versions:         make([]model.Summary, 0, len(versions)),
	}

	for _, v := range versions {
		manifest.Versions = append(manifest.Versions, v.Summary(post.CurrentVersionID))

		objects, err := versionObjects(post, v)
		if err != nil {
			return res, err
		}
		for name, obj := range objects {
			key := e.key(post, name)
			exists, err := e.sink.Exists(ctx, key)
			if err != nil {
				return res, err
			}
			if exists {
				res.Skipped++
				continue
			}
			if err := e.sink.Put(ctx, key, obj.data, obj.contentType); err != nil {
				return res, err
			}
			res.Written++
		}
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return res, err
	}
	if err := e.sink.Put(ctx, e.key(post, manifestName), data, contentTypeJSON); err != nil {
		return res, err
	}
	res.Written++
	res.Posts = 1
	res.Manifests = []*Manifest{manifest}

	archiveLogger.Info().
		Str("post_id", string(post.ID)).
		Int("versions", len(versions)).
		Int("written", res.Written).
		Int("skipped", res.Skipped).
		Msg("Exported post")

	return res, nil
}

// ExportAll exports every post, stopping at the first failure.
func (e *Exporter) ExportAll(ctx context.Context) (Result, error) {
	var total Result

	posts, err := e.src.ListPosts(ctx)
	if err != nil {
		return total, err
	}
	for _, p := range posts {
		res, err := e.ExportPost(ctx, p.ID)
		if err != nil {
			return total, fmt.Errorf("export %s: %w", p.Slug, err)
		}
		total.Posts += res.Posts
		total.Written += res.Written
		total.Skipped += res.Skipped
		total.Manifests = append(total.Manifests, res.Manifests...)
	}
	return total, nil
}

type object struct {
	data        []byte
	contentType string
}

func versionObjects(post *model.Post, v *model.Version) (map[string]object, error) {
	js, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}

	fm, err := util.EncodeFrontMatter(v.Title, v.Excerpt, v.Tags, post.Slug, v.CreatedAt)
	if err != nil {
		return nil, err
	}
	md := append(fm, []byte("\n"+markdown.Encode(v.Content))...)

	return map[string]object{
		versionName(v, ".json"): {js, contentTypeJSON},
		versionName(v, ".md"):   {md, contentTypeMarkdown},
	}, nil
}
