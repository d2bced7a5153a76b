package document

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/debemdeboas/archive-ledger/internal/exception"
	"github.com/google/go-cmp/cmp"
)

func linkBlock() Block {
	return Block{
		Type:  TypeBlock,
		Style: StyleNormal,
		Children: []Span{
			{Text: "see "},
			{Text: "docs", Marks: []string{"l1", MarkStrong}},
		},
		MarkDefs: []MarkDef{{Key: "l1", Type: TypeLink, Href: "https://example.com"}},
	}
}

func TestIsValidDocument(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  bool
	}{
		{"typed empty", Document{}, true},
		{"typed with link", Document{linkBlock()}, true},
		{"raw json", []byte(`[{"_type":"block","style":"normal","children":[{"text":"Hello world"}]}]`), true},
		{"raw code", []byte(`[{"_type":"code","language":"go","code":"x := 1"}]`), true},
		{"raw object not array", []byte(`{"_type":"block"}`), false},
		{"raw unknown type", []byte(`[{"_type":"image"}]`), false},
		{"raw unknown style", []byte(`[{"_type":"block","style":"h9","children":[]}]`), false},
		{"raw missing children", []byte(`[{"_type":"block","style":"normal"}]`), false},
		{"raw span without text", []byte(`[{"_type":"block","children":[{"marks":[]}]}]`), false},
		{"raw code without literal", []byte(`[{"_type":"code","language":"go"}]`), false},
		{"not json", []byte(`not json`), false},
		{"string", "hello", false},
		{"nil", nil, false},
		{"decoded any", []any{map[string]any{"_type": "block", "children": []any{map[string]any{"text": "x"}}}}, true},
		{"decoded non-object element", []any{"x"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidDocument(tt.value); got != tt.want {
				t.Errorf("IsValidDocument() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	dangling := linkBlock()
	dangling.MarkDefs = nil

	badLevel := Block{Type: TypeBlock, ListItem: ListNumber, Level: 0, Children: []Span{{Text: "x"}}}
	levelNoList := Block{Type: TypeBlock, Level: 2, Children: []Span{{Text: "x"}}}
	codeSpans := Block{Type: TypeCode, Code: "x", Children: []Span{{Text: "x"}}}

	tests := []struct {
		name     string
		doc      Document
		wantCode string
	}{
		{"valid", Document{linkBlock(), {Type: TypeCode, Language: "go", Code: "x"}}, ""},
		{"dangling mark", Document{dangling}, "DANGLING_MARK"},
		{"bad level", Document{badLevel}, "LIST_LEVEL"},
		{"level without list", Document{levelNoList}, "LEVEL_WITHOUT_LIST"},
		{"code with spans", Document{codeSpans}, "CODE_WITH_SPANS"},
		{"unknown type", Document{{Type: "image"}}, "UNKNOWN_TYPE"},
		{"unknown style", Document{{Type: TypeBlock, Style: "title"}}, "UNKNOWN_STYLE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.doc)
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var appErr *exception.AppError
			if !errors.As(err, &appErr) {
				t.Fatalf("expected AppError, got %v", err)
			}
			if appErr.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", appErr.Code, tt.wantCode)
			}
			if !errors.Is(err, exception.ErrValidation) {
				t.Error("expected error to match ErrValidation")
			}
		})
	}
}

func TestParseRoundTripsJSON(t *testing.T) {
	doc := Document{linkBlock(), {Type: TypeCode, Language: "go", Code: "fmt.Println()"}}
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}

	parsed, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if diff := cmp.Diff(doc, parsed); diff != "" {
		t.Errorf("Parse mismatch (-want +got):\n%s", diff)
	}

	if _, err := Parse([]byte(`{"nope":1}`)); !errors.Is(err, exception.ErrValidation) {
		t.Errorf("expected validation error for object input, got %v", err)
	}
}

func TestCloneIsDeep(t *testing.T) {
	doc := Document{linkBlock()}
	c := doc.Clone()

	c[0].Children[1].Marks[0] = "changed"
	c[0].MarkDefs[0].Href = "https://changed.example"
	c[0].Children[0].Text = "changed"

	if doc[0].Children[1].Marks[0] != "l1" {
		t.Error("clone shares marks with original")
	}
	if doc[0].MarkDefs[0].Href != "https://example.com" {
		t.Error("clone shares markDefs with original")
	}
	if doc[0].Children[0].Text != "see " {
		t.Error("clone shares children with original")
	}
	if Document(nil).Clone() != nil {
		t.Error("clone of nil should be nil")
	}
}

func TestEqual(t *testing.T) {
	a := Document{linkBlock()}
	b := a.Clone()
	if !a.Equal(b) {
		t.Error("clone should be equal")
	}
	b[0].Children[0].Text = "other"
	if a.Equal(b) {
		t.Error("changed text should not be equal")
	}
	if !Document(nil).Equal(Document{}) {
		t.Error("nil and empty documents should be equal")
	}
}

func TestResolvedMarks(t *testing.T) {
	b := linkBlock()
	got := b.ResolvedMarks(b.Children[1])
	want := []string{"link:https://example.com", MarkStrong}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ResolvedMarks mismatch (-want +got):\n%s", diff)
	}
}

func TestHeadingStyle(t *testing.T) {
	for level := 1; level <= 6; level++ {
		s := HeadingStyle(level)
		if s.HeadingLevel() != level {
			t.Errorf("HeadingStyle(%d).HeadingLevel() = %d", level, s.HeadingLevel())
		}
	}
	if HeadingStyle(7) != StyleNormal {
		t.Error("out of range heading should fall back to normal")
	}
	if StyleBlockquote.HeadingLevel() != 0 {
		t.Error("blockquote is not a heading")
	}
}

func TestPlainText(t *testing.T) {
	doc := Document{linkBlock(), {Type: TypeCode, Code: "x := 1"}}
	if got := doc.PlainText(); got != "see docs\n\nx := 1" {
		t.Errorf("PlainText() = %q", got)
	}
}
