package render

import (
	"html/template"

	"github.com/debemdeboas/archive-ledger/internal/diff"
	"github.com/debemdeboas/archive-ledger/internal/document"
	"github.com/debemdeboas/archive-ledger/internal/markdown"
	"github.com/debemdeboas/archive-ledger/internal/model"
	"github.com/debemdeboas/archive-ledger/internal/util"
)

// Renderer carries the configured engine and default syntax theme.
type Renderer struct {
	Engine      string
	SyntaxTheme string
}

func NewRenderer(engine, syntaxTheme string) *Renderer {
	if engine != EngineMmark {
		engine = EngineClassic
	}
	return &Renderer{Engine: engine, SyntaxTheme: syntaxTheme}
}

func (r *Renderer) theme(override string) string {
	if override != "" {
		return override
	}
	return r.SyntaxTheme
}

// VersionMarkdown is the Markdown shown for a version: its title as an H1
// followed by the encoded body.
func VersionMarkdown(v *model.Version) string {
	doc := v.Content
	if v.Title != "" {
		title := document.Block{
			Type:     document.TypeBlock,
			Style:    document.StyleH1,
			Children: []document.Span{{Type: document.TypeSpan, Text: v.Title}},
		}
		doc = append(document.Document{title}, v.Content...)
	}
	return markdown.Encode(doc)
}

// Version renders the HTML preview of a version.
func (r *Renderer) Version(v *model.Version, theme string) []byte {
	md := []byte(VersionMarkdown(v))
	html, _ := RenderMarkdownCached(md, util.ContentHash(md), r.Engine, r.theme(theme))
	return html
}

// Warm renders a new version in the background so the first preview is served from cache.
func (r *Renderer) Warm(v *model.Version) {
	md := []byte(VersionMarkdown(v))
	WarmCache(md, util.ContentHash(md), r.Engine, r.SyntaxTheme)
}

// Comparison renders a comparison as a highlighted unified diff.
func (r *Renderer) Comparison(c *diff.Comparison, theme string) template.HTML {
	out, err := HighlightDiff(c.Unified(), r.theme(theme))
	if err != nil {
		renderLogger.Warn().Err(err).Msg("Error highlighting diff")
	}
	return template.HTML(out)
}

func (r *Renderer) Source(v *model.Version, theme string) template.HTML {
	out, err := HighlightMarkdown(VersionMarkdown(v), r.theme(theme))
	if err != nil {
		renderLogger.Warn().Err(err).Msg("Error highlighting markdown")
	}
	return template.HTML(out)
}
