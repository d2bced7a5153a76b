package markdown

import (
	"strings"

	"github.com/gomarkdown/markdown"

	"github.com/debemdeboas/archive-ledger/internal/document"
	"github.com/debemdeboas/archive-ledger/internal/util"
)

// ExtractTitle splits off the first H1 block as the title. Later H1 blocks
// stay in the body.
func ExtractTitle(doc document.Document) (string, document.Document) {
	for i, b := range doc {
		if b.Type == document.TypeBlock && b.Style == document.StyleH1 && !b.IsListItem() {
			body := make(document.Document, 0, len(doc)-1)
			body = append(body, doc[:i]...)
			body = append(body, doc[i+1:]...)
			return strings.TrimSpace(b.Text()), body
		}
	}
	return "", doc
}

// Composition is a post assembled from pasted Markdown.
type Composition struct {
	Title   string
	Excerpt string
	Tags    []string
	Slug    string
	Body    document.Document
}

// Compose builds a post from Markdown with an optional mmark %%% title
// block. Without a title in the block, the first H1 becomes the title.
func Compose(text string) (*Composition, error) {
	src := markdown.NormalizeNewlines([]byte(text))

	c := &Composition{}
	if fm, err := util.GetFrontMatter(src); err == nil {
		c.Title = fm.Title
		c.Excerpt = fm.Excerpt
		c.Tags = fm.Tags
		c.Slug = fm.Slug
		src = src[fm.Consumed:]
	}

	doc, err := Decode(string(src))
	if err != nil {
		return nil, err
	}

	if c.Title == "" {
		c.Title, doc = ExtractTitle(doc)
	}
	c.Body = doc

	return c, nil
}
