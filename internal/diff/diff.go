// Package diff compares two versions of a post at metadata and content level.
package diff

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/debemdeboas/archive-ledger/internal/markdown"
	"github.com/debemdeboas/archive-ledger/internal/model"
)

// VersionSource loads a version scoped to a post, reporting NotFound for
// versions that are missing or belong elsewhere.
type VersionSource interface {
	GetPostVersion(ctx context.Context, postID model.PostID, id model.VersionID) (*model.Version, error)
}

type FieldChange[T any] struct {
	Old     T    `json:"old"`
	New     T    `json:"new"`
	Changed bool `json:"changed"`
}

func fieldChange[T any](old, new T, equal func(T, T) bool) FieldChange[T] {
	return FieldChange[T]{Old: old, New: new, Changed: !equal(old, new)}
}

type MetadataDiff struct {
	Title   FieldChange[string]   `json:"title"`
	Excerpt FieldChange[string]   `json:"excerpt"`
	Tags    FieldChange[[]string] `json:"tags"`
}

func (m MetadataDiff) Changed() bool {
	return m.Title.Changed || m.Excerpt.Changed || m.Tags.Changed
}

func compareMetadata(a, b model.Metadata) MetadataDiff {
	eq := func(x, y string) bool { return x == y }
	return MetadataDiff{
		Title:   fieldChange(a.Title, b.Title, eq),
		Excerpt: fieldChange(a.Excerpt, b.Excerpt, eq),
		Tags:    fieldChange(a.Tags, b.Tags, func(x, y []string) bool { return slices.Equal(x, y) }),
	}
}

type Comparison struct {
	PostID   model.PostID  `json:"post_id"`
	From     model.Summary `json:"from"`
	To       model.Summary `json:"to"`
	Metadata MetadataDiff  `json:"metadata"`
	Content  []Group       `json:"content"`
}

type Stats struct {
	Added     int `json:"added"`
	Removed   int `json:"removed"`
	Unchanged int `json:"unchanged"`
}

func (c *Comparison) Stats() Stats {
	var s Stats
	for _, g := range c.Content {
		switch g.Type {
		case Added:
			s.Added += len(g.Lines)
		case Removed:
			s.Removed += len(g.Lines)
		default:
			s.Unchanged += len(g.Lines)
		}
	}
	return s
}

// Identical reports whether nothing differs between the two versions.
func (c *Comparison) Identical() bool {
	if c.Metadata.Changed() {
		return false
	}
	for _, g := range c.Content {
		if g.Type != Unchanged {
			return false
		}
	}
	return true
}

type Engine struct {
	versions VersionSource
}

func NewEngine(versions VersionSource) *Engine {
	return &Engine{versions: versions}
}

// Compare loads a and b in the given order and diffs a against b. Comparing
// an older version against a newer one is as valid as the reverse.
func (e *Engine) Compare(ctx context.Context, postID model.PostID, a, b model.VersionID) (*Comparison, error) {
	from, err := e.versions.GetPostVersion(ctx, postID, a)
	if err != nil {
		return nil, err
	}
	to, err := e.versions.GetPostVersion(ctx, postID, b)
	if err != nil {
		return nil, err
	}
	return CompareVersions(from, to), nil
}

// CompareVersions diffs two loaded versions.
func CompareVersions(from, to *model.Version) *Comparison {
	return &Comparison{
		PostID:   from.PostID,
		From:     from.Summary(""),
		To:       to.Summary(""),
		Metadata: compareMetadata(from.Metadata, to.Metadata),
		Content:  Lines(splitLines(markdown.Encode(from.Content)), splitLines(markdown.Encode(to.Content))),
	}
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

const unifiedContext = 3

// Unified renders the content diff in unified format with three lines of
// context around each hunk.
func (c *Comparison) Unified() string {
	type line struct {
		kind   GroupType
		text   string
		oldNum int
		newNum int
	}

	var lines []line
	oldNum, newNum := 1, 1
	for _, g := range c.Content {
		for _, l := range g.Lines {
			ln := line{kind: g.Type, text: l, oldNum: oldNum, newNum: newNum}
			switch g.Type {
			case Removed:
				oldNum++
			case Added:
				newNum++
			default:
				oldNum++
				newNum++
			}
			lines = append(lines, ln)
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "--- version %d\n+++ version %d\n", c.From.Number, c.To.Number)

	for i := 0; i < len(lines); {
		if lines[i].kind == Unchanged {
			i++
			continue
		}

		start := max(0, i-unifiedContext)
		end := i
		// Extend the hunk while the next change is within two context windows.
		for end < len(lines) {
			if lines[end].kind != Unchanged {
				end++
				continue
			}
			next := end
			for next < len(lines) && lines[next].kind == Unchanged {
				next++
			}
			if next == len(lines) || next-end > 2*unifiedContext {
				end = min(len(lines), end+unifiedContext)
				break
			}
			end = next
		}

		oldStart, newStart := lines[start].oldNum, lines[start].newNum
		var oldCount, newCount int
		var body strings.Builder
		for _, l := range lines[start:end] {
			switch l.kind {
			case Removed:
				oldCount++
				body.WriteString("-" + l.text + "\n")
			case Added:
				newCount++
				body.WriteString("+" + l.text + "\n")
			default:
				oldCount++
				newCount++
				body.WriteString(" " + l.text + "\n")
			}
		}
		if oldCount == 0 {
			oldStart--
		}
		if newCount == 0 {
			newStart--
		}
		fmt.Fprintf(&sb, "@@ -%d,%d +%d,%d @@\n", oldStart, oldCount, newStart, newCount)
		sb.WriteString(body.String())

		i = end
	}

	return sb.String()
}
