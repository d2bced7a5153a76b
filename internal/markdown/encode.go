// Package markdown converts block documents to Markdown text and back.
package markdown

import (
	"slices"
	"strconv"
	"strings"

	"github.com/debemdeboas/archive-ledger/internal/document"
)

// emptyBlockMarker stands in for a normal block without text, which would
// otherwise leave no trace in the output.
const emptyBlockMarker = "<!-- -->"

// Encode renders doc as Markdown. It never fails: blocks are joined by a
// blank line, except consecutive list items which stay on adjacent lines so
// the list remains tight.
func Encode(doc document.Document) string {
	var s strings.Builder
	counters := make([]int, document.MaxListLevel+1)
	prevLevel := 0

	for i, b := range doc {
		if i > 0 {
			if b.IsListItem() && doc[i-1].IsListItem() {
				s.WriteString("\n")
			} else {
				s.WriteString("\n\n")
			}
		}

		if !b.IsListItem() {
			clear(counters)
			prevLevel = 0
		}

		switch {
		case b.IsCode():
			s.WriteString(encodeCode(b))
		case b.IsListItem():
			// a list cannot open deeper than one level below its parent
			level := min(max(b.Level, 1), prevLevel+1, document.MaxListLevel)
			s.WriteString(encodeListItem(b, level, counters))
			prevLevel = level
		case b.Style == document.StyleNormal && b.Text() == "":
			s.WriteString(emptyBlockMarker)
		default:
			s.WriteString(encodeTextBlock(b))
		}
	}

	return s.String()
}

func encodeTextBlock(b document.Block) string {
	inline := encodeInline(b)
	if level := b.Style.HeadingLevel(); level > 0 {
		return strings.Repeat("#", level) + " " + keepEdges(strings.ReplaceAll(inline, "\n", " "))
	}
	if b.Style == document.StyleBlockquote {
		return "> " + strings.ReplaceAll(escapeLines(inline), "\n", "\n> ")
	}
	return escapeLines(inline)
}

func encodeListItem(b document.Block, level int, counters []int) string {
	// deeper levels restart whenever a shallower item appears
	for l := level + 1; l < len(counters); l++ {
		counters[l] = 0
	}

	marker := "- "
	if b.ListItem == document.ListNumber {
		counters[level]++
		marker = strconv.Itoa(counters[level]) + ". "
	}

	indent := strings.Repeat("    ", level-1)
	inline := strings.ReplaceAll(escapeLines(encodeInline(b)), "\n", "\n"+indent+"    ")
	return indent + marker + inline
}

func encodeCode(b document.Block) string {
	fence := strings.Repeat("`", max(3, longestBacktickRun(b.Code)+1))
	return fence + b.Language + "\n" + b.Code + "\n" + fence
}

func longestBacktickRun(s string) int {
	longest, run := 0, 0
	for _, r := range s {
		if r == '`' {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	return longest
}

// decorator order, outermost first
var markOrder = []struct {
	mark  string
	open  string
	close string
}{
	{document.MarkStrong, "**", "**"},
	{document.MarkEm, "_", "_"},
	{document.MarkStrikeThrough, "~~", "~~"},
}

func encodeInline(b document.Block) string {
	var s strings.Builder
	for _, span := range mergeSpans(b.Children) {
		s.WriteString(encodeSpan(b, span))
	}
	return s.String()
}

// mergeSpans joins neighbours with the same marks, whose delimiters would
// otherwise run together.
func mergeSpans(spans []document.Span) []document.Span {
	out := make([]document.Span, 0, len(spans))
	for _, span := range spans {
		if span.Text == "" {
			continue
		}
		if n := len(out); n > 0 && slices.Equal(out[n-1].Marks, span.Marks) {
			out[n-1].Text += span.Text
			continue
		}
		out = append(out, span)
	}
	return out
}

func encodeSpan(b document.Block, span document.Span) string {
	if span.Text == "" {
		return ""
	}

	// Emphasis delimiters cannot hug whitespace, so keep it outside.
	core := strings.TrimSpace(span.Text)
	if core == "" {
		return escapeText(span.Text)
	}
	lead := span.Text[:strings.Index(span.Text, core)]
	trail := span.Text[len(lead)+len(core):]

	has := func(mark string) bool {
		for _, m := range span.Marks {
			if m == mark {
				return true
			}
		}
		return false
	}

	var text string
	if has(document.MarkCode) {
		text = encodeCodeSpan(core)
	} else {
		text = escapeText(core)
	}

	for i := len(markOrder) - 1; i >= 0; i-- {
		if has(markOrder[i].mark) {
			text = markOrder[i].open + text + markOrder[i].close
		}
	}

	for _, m := range span.Marks {
		if document.IsDecorator(m) {
			continue
		}
		if def, ok := b.MarkDef(m); ok && def.Type == document.TypeLink {
			text = "[" + text + "](" + escapeHref(def.Href) + ")"
		}
	}

	return escapeText(lead) + text + escapeText(trail)
}

func encodeCodeSpan(text string) string {
	ticks := strings.Repeat("`", longestBacktickRun(text)+1)
	if strings.HasPrefix(text, "`") || strings.HasSuffix(text, "`") {
		return ticks + " " + text + " " + ticks
	}
	return ticks + text + ticks
}

func escapeHref(href string) string {
	r := strings.NewReplacer(" ", "%20", "(", "%28", ")", "%29")
	return r.Replace(href)
}

var textEscaper = strings.NewReplacer(
	`\`, `\\`,
	"&", `\&`,
	"`", "\\`",
	"*", `\*`,
	"_", `\_`,
	"[", `\[`,
	"]", `\]`,
	"<", `\<`,
	">", `\>`,
	"~", `\~`,
)

func escapeText(s string) string {
	return textEscaper.Replace(s)
}

// escapeLines protects each line of block text from being read as a heading,
// list item, rule or indented code.
func escapeLines(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = escapeLine(line)
	}
	return strings.Join(lines, "\n")
}

const edgeSpace = " \t"

// The parser strips spaces and tabs at the edges of a line, but resolves
// numeric character references back to them.
var edgeEscaper = strings.NewReplacer(" ", "&#32;", "\t", "&#9;")

func splitEdges(line string) (lead, body, trail string) {
	body = strings.TrimLeft(line, edgeSpace)
	lead = line[:len(line)-len(body)]
	body = strings.TrimRight(body, edgeSpace)
	trail = line[len(lead)+len(body):]
	return lead, body, trail
}

func keepEdges(line string) string {
	lead, body, trail := splitEdges(line)
	return edgeEscaper.Replace(lead) + body + edgeEscaper.Replace(trail)
}

func escapeLine(line string) string {
	lead, body, trail := splitEdges(line)
	if lead == "" {
		body = escapeBlockStart(body)
	}
	return edgeEscaper.Replace(lead) + body + edgeEscaper.Replace(trail)
}

func escapeBlockStart(line string) string {
	if line == "" {
		return line
	}
	switch line[0] {
	case '#', '+', '-':
		return `\` + line
	}
	// "1. " or "1) " would start an ordered list
	digits := 0
	for digits < len(line) && line[digits] >= '0' && line[digits] <= '9' {
		digits++
	}
	if digits > 0 && digits < len(line) && (line[digits] == '.' || line[digits] == ')') {
		return line[:digits] + `\` + line[digits:]
	}
	return line
}
