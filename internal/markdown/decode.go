package markdown

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gomarkdown/markdown/ast"
	"github.com/gomarkdown/markdown/parser"

	"github.com/debemdeboas/archive-ledger/internal/document"
	"github.com/debemdeboas/archive-ledger/internal/exception"
	"github.com/debemdeboas/archive-ledger/internal/util"
)

const extensions = parser.FencedCode | parser.Strikethrough | parser.SpaceHeadings | parser.NoEmptyLineBeforeBlock

// Decode parses Markdown into a block document. Constructs outside the
// supported subset become normal blocks holding their raw text. The only
// error is a parser panic, reported as an internal failure.
func Decode(text string) (doc document.Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = exception.NewInternalError("markdown parser failed", fmt.Errorf("%v", r))
		}
	}()

	src := []byte(strings.ReplaceAll(text, "\r\n", "\n"))
	// an HTML block is only closed by a line break
	if len(src) > 0 && src[len(src)-1] != '\n' {
		src = append(src, '\n')
	}
	root := parser.NewWithExtensions(extensions).Parse(src)

	d := &decoder{doc: document.Document{}}
	for _, child := range root.GetChildren() {
		d.block(child)
	}
	return d.doc, nil
}

type decoder struct {
	doc document.Document
}

func (d *decoder) block(node ast.Node) {
	switch n := node.(type) {
	case *ast.Heading:
		d.textBlock(document.HeadingStyle(n.Level), "", 0, n.GetChildren())
	case *ast.Paragraph:
		d.textBlock(document.StyleNormal, "", 0, n.GetChildren())
	case *ast.BlockQuote:
		d.quote(n)
	case *ast.List:
		d.list(n, 1)
	case *ast.CodeBlock:
		d.code(n)
	case *ast.HTMLBlock:
		if strings.TrimSpace(string(n.Literal)) == emptyBlockMarker {
			d.textBlock(document.StyleNormal, "", 0, nil)
			return
		}
		d.raw(node)
	default:
		d.raw(node)
	}
}

func (d *decoder) textBlock(style document.Style, list document.ListType, level int, inlines []ast.Node) {
	b := document.Block{
		Type:     document.TypeBlock,
		Style:    style,
		ListItem: list,
		Level:    level,
		Children: []document.Span{},
	}
	in := &inlineCollector{block: &b}
	for _, n := range inlines {
		in.walk(n, nil)
	}
	in.finish()
	d.doc = append(d.doc, b)
}

func (d *decoder) quote(n *ast.BlockQuote) {
	var inlines []ast.Node
	for i, child := range n.GetChildren() {
		p, ok := child.(*ast.Paragraph)
		if !ok {
			d.raw(n)
			return
		}
		if i > 0 {
			inlines = append(inlines, &ast.Hardbreak{})
		}
		inlines = append(inlines, p.GetChildren()...)
	}
	d.textBlock(document.StyleBlockquote, "", 0, inlines)
}

func (d *decoder) list(n *ast.List, level int) {
	listType := document.ListBullet
	if n.ListFlags&ast.ListTypeOrdered != 0 {
		listType = document.ListNumber
	}

	for _, child := range n.GetChildren() {
		item, ok := child.(*ast.ListItem)
		if !ok {
			d.raw(child)
			continue
		}

		var inlines []ast.Node
		var nested []ast.Node
		for _, c := range item.GetChildren() {
			switch c := c.(type) {
			case *ast.Paragraph:
				if len(inlines) > 0 {
					inlines = append(inlines, &ast.Hardbreak{})
				}
				inlines = append(inlines, c.GetChildren()...)
			case *ast.List, *ast.CodeBlock, *ast.BlockQuote, *ast.Heading:
				nested = append(nested, c)
			default:
				inlines = append(inlines, c)
			}
		}

		d.textBlock(document.StyleNormal, listType, min(level, document.MaxListLevel), inlines)

		for _, c := range nested {
			if sub, ok := c.(*ast.List); ok {
				d.list(sub, level+1)
				continue
			}
			d.block(c)
		}
	}
}

func (d *decoder) code(n *ast.CodeBlock) {
	lang := ""
	if fields := strings.Fields(string(n.Info)); len(fields) > 0 {
		lang = fields[0]
	}
	d.doc = append(d.doc, document.Block{
		Type:     document.TypeCode,
		Language: lang,
		Code:     strings.TrimSuffix(string(n.Literal), "\n"),
	})
}

// raw degrades an unsupported node to a normal block with its literal text.
func (d *decoder) raw(node ast.Node) {
	var s strings.Builder
	rawText(&s, node)
	text := strings.TrimSpace(s.String())
	if _, ok := node.(*ast.HorizontalRule); ok && text == "" {
		text = "---"
	}
	if text == "" {
		return
	}
	d.doc = append(d.doc, document.Block{
		Type:     document.TypeBlock,
		Style:    document.StyleNormal,
		Children: []document.Span{{Text: text}},
	})
}

func rawText(s *strings.Builder, node ast.Node) {
	if leaf := node.AsLeaf(); leaf != nil {
		s.Write(leaf.Literal)
		return
	}
	for i, child := range node.GetChildren() {
		if i > 0 && isBlockLevel(child) {
			s.WriteString("\n")
		}
		rawText(s, child)
	}
}

func isBlockLevel(node ast.Node) bool {
	switch node.(type) {
	case *ast.Paragraph, *ast.Heading, *ast.ListItem, *ast.List, *ast.CodeBlock,
		*ast.BlockQuote, *ast.HTMLBlock, *ast.Table, *ast.TableRow:
		return true
	}
	return false
}

type inlineCollector struct {
	block *document.Block
}

func (c *inlineCollector) walk(node ast.Node, marks []string) {
	switch n := node.(type) {
	case *ast.Text:
		c.add(string(n.Literal), marks)
	case *ast.Softbreak, *ast.Hardbreak:
		c.add("\n", marks)
	case *ast.Code:
		c.add(string(n.Literal), withMark(marks, document.MarkCode))
	case *ast.Strong:
		c.children(n, withMark(marks, document.MarkStrong))
	case *ast.Emph:
		c.children(n, withMark(marks, document.MarkEm))
	case *ast.Del:
		c.children(n, withMark(marks, document.MarkStrikeThrough))
	case *ast.Link:
		c.children(n, withMark(marks, c.linkKey(string(n.Destination))))
	default:
		if leaf := node.AsLeaf(); leaf != nil {
			c.add(string(leaf.Literal), marks)
			return
		}
		c.children(node, marks)
	}
}

func (c *inlineCollector) children(node ast.Node, marks []string) {
	for _, child := range node.GetChildren() {
		c.walk(child, marks)
	}
}

// linkKey derives the markDef key from the href so decoding stays deterministic.
func (c *inlineCollector) linkKey(href string) string {
	key := "lnk" + util.ContentHashString(href)[:10]
	if _, ok := c.block.MarkDef(key); !ok {
		c.block.MarkDefs = append(c.block.MarkDefs, document.MarkDef{
			Key:  key,
			Type: document.TypeLink,
			Href: href,
		})
	}
	return key
}

func (c *inlineCollector) add(text string, marks []string) {
	if text == "" {
		return
	}
	spans := c.block.Children
	if n := len(spans); n > 0 && slices.Equal(spans[n-1].Marks, marks) {
		spans[n-1].Text += text
		return
	}
	c.block.Children = append(spans, document.Span{
		Type:  document.TypeSpan,
		Text:  text,
		Marks: slices.Clone(marks),
	})
}

// finish drops the line break a paragraph may end with.
func (c *inlineCollector) finish() {
	spans := c.block.Children
	for len(spans) > 0 {
		last := &spans[len(spans)-1]
		last.Text = strings.TrimRight(last.Text, "\n")
		if last.Text != "" {
			break
		}
		spans = spans[:len(spans)-1]
	}
	c.block.Children = spans
}

var canonicalOrder = []string{document.MarkStrong, document.MarkEm, document.MarkCode, document.MarkStrikeThrough}

// withMark returns marks plus mark in a canonical order: decorators first,
// then markDef keys in nesting order.
func withMark(marks []string, mark string) []string {
	if slices.Contains(marks, mark) {
		return marks
	}
	out := make([]string, 0, len(marks)+1)
	for _, d := range canonicalOrder {
		if d == mark || slices.Contains(marks, d) {
			out = append(out, d)
		}
	}
	for _, m := range append(slices.Clone(marks), mark) {
		if !document.IsDecorator(m) {
			out = append(out, m)
		}
	}
	return out
}
