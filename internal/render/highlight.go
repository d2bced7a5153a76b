package render

import (
	"bytes"
	"html/template"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
)

// HighlightSource highlights src with the named chroma lexer.
func HighlightSource(src, lexerName, theme string) (string, error) {
	lexer := lexers.Get(lexerName)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	formatter := html.New(
		html.WithClasses(true),
		html.WithLineNumbers(false),
	)

	var buf bytes.Buffer
	iterator, err := lexer.Tokenise(nil, src)
	if err != nil {
		return template.HTMLEscapeString(src), err
	}

	if err := formatter.Format(&buf, style(theme), iterator); err != nil {
		return template.HTMLEscapeString(src), err
	}
	return buf.String(), nil
}

// HighlightMarkdown shows the Markdown source of a version.
func HighlightMarkdown(markdown string, theme string) (string, error) {
	out, err := HighlightSource(markdown, "markdown", theme)
	if err != nil {
		return out, err
	}
	return `<div class="markdown-source">` + out + `</div>`, nil
}

// HighlightDiff colours a unified diff.
func HighlightDiff(unified string, theme string) (string, error) {
	out, err := HighlightSource(unified, "diff", theme)
	if err != nil {
		return out, err
	}
	return `<div class="version-diff">` + out + `</div>`, nil
}
