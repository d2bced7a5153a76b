// Package document defines the block-structured rich-text model stored in every post version.
package document

import (
	"slices"
	"strings"
)

const (
	TypeBlock = "block"
	TypeCode  = "code"
	TypeSpan  = "span"
	TypeLink  = "link"
)

type Style string

const (
	StyleNormal     Style = "normal"
	StyleH1         Style = "h1"
	StyleH2         Style = "h2"
	StyleH3         Style = "h3"
	StyleH4         Style = "h4"
	StyleH5         Style = "h5"
	StyleH6         Style = "h6"
	StyleBlockquote Style = "blockquote"
)

// HeadingStyle returns the style for a heading level between 1 and 6.
func HeadingStyle(level int) Style {
	if level < 1 || level > 6 {
		return StyleNormal
	}
	return Style("h" + string(rune('0'+level)))
}

// HeadingLevel returns 1..6 for heading styles and 0 otherwise.
func (s Style) HeadingLevel() int {
	if len(s) == 2 && s[0] == 'h' && s[1] >= '1' && s[1] <= '6' {
		return int(s[1] - '0')
	}
	return 0
}

func (s Style) Known() bool {
	return s == StyleNormal || s == StyleBlockquote || s.HeadingLevel() > 0
}

type ListType string

const (
	ListBullet ListType = "bullet"
	ListNumber ListType = "number"
)

// Decorator marks. Any other mark on a span is a key into the block's MarkDefs.
const (
	MarkStrong        = "strong"
	MarkEm            = "em"
	MarkCode          = "code"
	MarkStrikeThrough = "strike-through"
)

var decorators = []string{MarkStrong, MarkEm, MarkCode, MarkStrikeThrough}

func IsDecorator(mark string) bool {
	return slices.Contains(decorators, mark)
}

const MaxListLevel = 8

type Span struct {
	Type  string   `json:"_type,omitempty"`
	Key   string   `json:"_key,omitempty"`
	Text  string   `json:"text"`
	Marks []string `json:"marks,omitempty"`
}

type MarkDef struct {
	Key  string `json:"_key"`
	Type string `json:"_type"`
	Href string `json:"href,omitempty"`
}

// Block is either a text block (Type "block") holding spans, or a code block
// (Type "code") holding a literal and a language tag.
type Block struct {
	Type     string    `json:"_type"`
	Key      string    `json:"_key,omitempty"`
	Style    Style     `json:"style,omitempty"`
	ListItem ListType  `json:"listItem,omitempty"`
	Level    int       `json:"level,omitempty"`
	Children []Span    `json:"children,omitempty"`
	MarkDefs []MarkDef `json:"markDefs,omitempty"`

	Language string `json:"language,omitempty"`
	Code     string `json:"code,omitempty"`
}

type Document []Block

func (b Block) IsCode() bool {
	return b.Type == TypeCode
}

func (b Block) IsListItem() bool {
	return b.Type == TypeBlock && b.ListItem != ""
}

func (b Block) MarkDef(key string) (MarkDef, bool) {
	for _, def := range b.MarkDefs {
		if def.Key == key {
			return def, true
		}
	}
	return MarkDef{}, false
}

// ResolvedMarks returns the marks of a span with markDef keys replaced by
// "<type>:<href>", sorted. Two spans with the same resolved marks look the
// same no matter which keys they were given.
func (b Block) ResolvedMarks(span Span) []string {
	out := make([]string, 0, len(span.Marks))
	for _, m := range span.Marks {
		if IsDecorator(m) {
			out = append(out, m)
			continue
		}
		if def, ok := b.MarkDef(m); ok {
			out = append(out, def.Type+":"+def.Href)
			continue
		}
		out = append(out, m)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Text concatenates the text of the block's spans, or returns the code literal.
func (b Block) Text() string {
	if b.IsCode() {
		return b.Code
	}
	var s strings.Builder
	for _, span := range b.Children {
		s.WriteString(span.Text)
	}
	return s.String()
}

func (b Block) clone() Block {
	c := b
	if b.Children != nil {
		c.Children = make([]Span, len(b.Children))
		for i, span := range b.Children {
			c.Children[i] = span
			if span.Marks != nil {
				c.Children[i].Marks = slices.Clone(span.Marks)
			}
		}
	}
	if b.MarkDefs != nil {
		c.MarkDefs = slices.Clone(b.MarkDefs)
	}
	return c
}

// Clone returns a deep copy. Stored versions hold clones so that callers can
// never alias history.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	c := make(Document, len(d))
	for i, b := range d {
		c[i] = b.clone()
	}
	return c
}

// Equal reports deep equality. A nil document equals an empty one.
func (d Document) Equal(other Document) bool {
	return slices.EqualFunc(d, other, blockEqual)
}

func blockEqual(a, b Block) bool {
	return a.Type == b.Type &&
		a.Key == b.Key &&
		a.Style == b.Style &&
		a.ListItem == b.ListItem &&
		a.Level == b.Level &&
		a.Language == b.Language &&
		a.Code == b.Code &&
		slices.Equal(a.MarkDefs, b.MarkDefs) &&
		slices.EqualFunc(a.Children, b.Children, func(x, y Span) bool {
			return x.Type == y.Type && x.Key == y.Key && x.Text == y.Text && slices.Equal(x.Marks, y.Marks)
		})
}

// PlainText joins the text of every block with blank lines.
func (d Document) PlainText() string {
	parts := make([]string, 0, len(d))
	for _, b := range d {
		parts = append(parts, b.Text())
	}
	return strings.Join(parts, "\n\n")
}
