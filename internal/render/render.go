// Package render turns versions and diffs into HTML previews.
package render

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	md_html "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/rs/zerolog"

	"github.com/mmarkdown/mmark/v2/lang"
	"github.com/mmarkdown/mmark/v2/mast"
	"github.com/mmarkdown/mmark/v2/mparser"
	"github.com/mmarkdown/mmark/v2/render/mhtml"

	"github.com/debemdeboas/archive-ledger/internal/cache"
)

const (
	EngineClassic = "classic"
	EngineMmark   = "mmark"
)

var renderLogger zerolog.Logger = zerolog.Nop()

func SetLogger(l zerolog.Logger) {
	renderLogger = l
}

func Formatter() *chromahtml.Formatter {
	return chromahtml.New(
		chromahtml.WithClasses(true),
		chromahtml.TabWidth(4),
		chromahtml.WithLineNumbers(true),
		chromahtml.WrapLongLines(true),
	)
}

func style(name string) *chroma.Style {
	s := styles.Get(name)
	if s == nil {
		return styles.Fallback
	}
	return s
}

func HighlightCode(code, language, highlightTheme string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return template.HTMLEscapeString(code)
	}

	var buf strings.Builder
	if err := Formatter().Format(&buf, style(highlightTheme), iterator); err != nil {
		return template.HTMLEscapeString(code)
	}
	return buf.String()
}

// SyntaxCSS returns the stylesheet for a chroma theme.
func SyntaxCSS(theme string) template.CSS {
	if css, ok := cache.GetSyntaxCSS(theme); ok {
		return css
	}

	var buf strings.Builder
	s := style(theme)

	bg := s.Get(chroma.Background)
	if !bg.Colour.IsSet() {
		// Pick a readable text colour when the theme has none.
		luminance := (0.299*float64(bg.Background.Red()) +
			0.587*float64(bg.Background.Green()) +
			0.114*float64(bg.Background.Blue())) / 255
		if luminance > 0.5 {
			buf.WriteString(".chroma { color: #181818; }\n")
		}
	}

	if err := Formatter().WriteCSS(&buf, s); err != nil {
		renderLogger.Error().Err(err).Str("theme", theme).Msg("Error writing syntax CSS")
	}
	css := template.CSS(buf.String())
	cache.SetSyntaxCSS(theme, css)
	return css
}

func RenderMarkdown(md []byte, engine, highlightTheme string) ([]byte, any) {
	switch engine {
	case EngineMmark:
		return RenderMarkdownMmark(md, highlightTheme)
	default:
		return RenderMarkdownClassic(md, highlightTheme), nil
	}
}

// Serializes the check-render-set sequence in RenderMarkdownCached.
var renderCacheMutex sync.Mutex

func RenderMarkdownCached(md []byte, contentHash, engine, highlightTheme string) ([]byte, any) {
	if contentHash == "" {
		renderLogger.Warn().Msg("Content hash is empty, skipping cache check")
		return RenderMarkdown(md, engine, highlightTheme)
	}

	key := engine + ":" + contentHash
	if cached, found := cache.GetRenderedMarkdown(key, highlightTheme); found {
		renderLogger.Debug().Str("contentHash", contentHash).Str("highlightTheme", highlightTheme).Msg("Cache hit for rendered markdown")
		return cached.HTML, cached.Extra
	}

	renderLogger.Debug().Str("contentHash", contentHash).Str("highlightTheme", highlightTheme).Msg("Cache miss for rendered markdown")
	renderCacheMutex.Lock()
	defer renderCacheMutex.Unlock()

	if cached, found := cache.GetRenderedMarkdown(key, highlightTheme); found {
		return cached.HTML, cached.Extra
	}

	html, extra := RenderMarkdown(md, engine, highlightTheme)
	cache.SetRenderedMarkdown(key, highlightTheme, html, extra)

	return html, extra
}

func codeBlockHook(highlightTheme string) func(w io.Writer, node ast.Node, entering bool) (ast.WalkStatus, bool) {
	return func(w io.Writer, node ast.Node, entering bool) (ast.WalkStatus, bool) {
		if code, ok := node.(*ast.CodeBlock); ok && entering {
			var lang string
			if info := code.Info; info != nil {
				lang = string(info)
			}
			highlighted := HighlightCode(string(code.Literal), lang, highlightTheme)
			fmt.Fprintf(w, "<div class=\"highlight\">%s</div>", highlighted)
			return ast.GoToNext, true
		}
		return ast.GoToNext, false
	}
}

func RenderMarkdownClassic(md []byte, highlightTheme string) []byte {
	opts := md_html.RendererOptions{
		Flags:          md_html.CommonFlags | md_html.HrefTargetBlank | md_html.SkipHTML,
		RenderNodeHook: codeBlockHook(highlightTheme),
	}

	doc := parser.NewWithExtensions(
		parser.FencedCode | parser.Strikethrough | parser.SpaceHeadings | parser.NoEmptyLineBeforeBlock |
			parser.HeadingIDs | parser.AutoHeadingIDs | parser.Tables | parser.Autolink,
	).Parse(markdown.NormalizeNewlines(md))

	return markdown.Render(doc, md_html.NewRenderer(opts))
}

// RenderMarkdownMmark renders with the mmark extensions and returns the
// title block, if the source had one.
func RenderMarkdownMmark(md []byte, highlightTheme string) ([]byte, *mast.TitleData) {
	md = markdown.NormalizeNewlines(md)

	p := parser.NewWithExtensions(mparser.Extensions)

	var info *mast.TitleData
	p.Opts = parser.Options{
		ParserHook: func(data []byte) (ast.Node, []byte, int) {
			node, data, consumed := mparser.Hook(data)
			if t, ok := node.(*mast.Title); ok {
				info = t.TitleData
			}
			return node, data, consumed
		},
		Flags: parser.FlagsNone,
	}

	doc := markdown.Parse(md, p)
	mparser.AddIndex(doc)

	if info == nil {
		info = &mast.TitleData{
			Title:    "Untitled",
			Language: "en",
		}
	}

	mhtmlOpts := mhtml.RendererOptions{
		Language: lang.New(info.Language),
	}

	hook := codeBlockHook(highlightTheme)
	opts := md_html.RendererOptions{
		RenderNodeHook: func(w io.Writer, node ast.Node, entering bool) (ast.WalkStatus, bool) {
			if status, handled := hook(w, node, entering); handled {
				return status, true
			}
			return mhtmlOpts.RenderHook(w, node, entering)
		},
		Flags: md_html.CommonFlags | md_html.FootnoteNoHRTag | md_html.FootnoteReturnLinks | md_html.SkipHTML,
	}

	return markdown.Render(doc, md_html.NewRenderer(opts)), info
}

// WarmCache pre-renders markdown content asynchronously.
func WarmCache(md []byte, contentHash, engine, highlightTheme string) {
	renderLogger.Debug().Str("contentHash", contentHash).Str("highlightTheme", highlightTheme).Msg("Starting cache warming")
	go func() {
		RenderMarkdownCached(md, contentHash, engine, highlightTheme)
		renderLogger.Debug().Str("contentHash", contentHash).Str("highlightTheme", highlightTheme).Msg("Cache warming completed")
	}()
}
