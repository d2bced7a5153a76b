package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/debemdeboas/archive-ledger/internal/document"
	"github.com/debemdeboas/archive-ledger/internal/exception"
	"github.com/debemdeboas/archive-ledger/internal/ledger"
	"github.com/debemdeboas/archive-ledger/internal/markdown"
	"github.com/debemdeboas/archive-ledger/internal/model"
	"github.com/debemdeboas/archive-ledger/internal/util"
)

type importOutcome string

const (
	outcomeCreated   importOutcome = "created"
	outcomeVersioned importOutcome = "new version"
	outcomeUnchanged importOutcome = "unchanged"
)

// runImport turns every .md file of a directory into a post. Files whose
// post already exists become a new version unless nothing changed.
func runImport(ctx context.Context, c *cli, args []string) error {
	fs := newFlagSet("import", c.out)
	owner := fs.String("owner", "", "Owner user ID for created posts")
	dryRun := fs.Bool("dry-run", false, "Parse files without writing")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 1 {
		return errUsage
	}
	if *owner == "" {
		*owner = c.cfg.Auth.UserID
	}

	dir := fs.Arg(0)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("error reading directory %s: %w", dir, err)
	}

	var failed int
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}

		outcome, slug, err := c.importFile(ctx, filepath.Join(dir, entry.Name()), model.UserID(*owner), *dryRun)
		if err != nil {
			failed++
			fmt.Fprintf(c.out, "%s %s: %v\n", errorStyle.Render("failed"), entry.Name(), err)
			continue
		}
		fmt.Fprintf(c.out, "%s %s -> %s\n", currentStyle.Render(string(outcome)), entry.Name(), slug)
	}

	if failed > 0 {
		return fmt.Errorf("%d files failed to import", failed)
	}
	return nil
}

func (c *cli) importFile(ctx context.Context, path string, owner model.UserID, dryRun bool) (importOutcome, string, error) {
	text, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}

	comp, err := markdown.Compose(string(text))
	if err != nil {
		return "", "", err
	}

	name := strings.TrimSuffix(filepath.Base(path), ".md")
	if comp.Title == "" {
		comp.Title = name
	}
	slug := comp.Slug
	if slug == "" {
		slug = util.Slugify(comp.Title)
	}
	if slug == "" {
		slug = util.Slugify(name)
	}

	meta := model.Metadata{Title: comp.Title, Excerpt: comp.Excerpt, Tags: comp.Tags}
	note := model.ChangeNote{Summary: "Imported from " + filepath.Base(path), CreatedBy: owner}

	post, err := c.ledger.GetPostBySlug(ctx, slug)
	switch {
	case errors.Is(err, exception.ErrNotFound):
		if dryRun {
			return outcomeCreated, slug, nil
		}
		post, err = c.ledger.CreatePost(ctx, ledger.NewPost{Slug: slug, Owner: owner})
		if err != nil {
			return "", "", err
		}
		if _, err := c.ledger.CreateVersion(ctx, post.ID, comp.Body, meta, note); err != nil {
			return "", "", err
		}
		return outcomeCreated, slug, nil
	case err != nil:
		return "", "", err
	}

	if post.HasVersions() {
		current, err := c.ledger.GetCurrentVersion(ctx, post.ID)
		if err != nil {
			return "", "", err
		}
		if sameSnapshot(current, comp.Body, meta) {
			return outcomeUnchanged, slug, nil
		}
	}
	if dryRun {
		return outcomeVersioned, slug, nil
	}
	if _, err := c.ledger.CreateVersion(ctx, post.ID, comp.Body, meta, note); err != nil {
		return "", "", err
	}
	return outcomeVersioned, slug, nil
}

func sameSnapshot(v *model.Version, body document.Document, meta model.Metadata) bool {
	hash, err := ledger.ContentHash(body)
	if err != nil || hash != v.ContentHash {
		return false
	}
	return v.Title == meta.Title && v.Excerpt == meta.Excerpt && slices.Equal(v.Tags, meta.Tags)
}
