package document

import (
	"encoding/json"

	"github.com/debemdeboas/archive-ledger/internal/exception"
)

// IsValidDocument reports whether value has the shape of a block document:
// an array whose elements all carry a recognized type and, for text blocks,
// a recognized style and an array of spans with string text. It accepts
// decoded JSON ([]any), typed documents and raw JSON bytes.
func IsValidDocument(value any) bool {
	switch v := value.(type) {
	case Document:
		return Validate(v) == nil
	case []Block:
		return Validate(Document(v)) == nil
	case []byte:
		return isValidJSON(v)
	case json.RawMessage:
		return isValidJSON(v)
	case []any:
		for _, elem := range v {
			if !isValidRawBlock(elem) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func isValidJSON(data []byte) bool {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return false
	}
	return IsValidDocument(raw)
}

func isValidRawBlock(elem any) bool {
	obj, ok := elem.(map[string]any)
	if !ok {
		return false
	}

	switch obj["_type"] {
	case TypeCode:
		_, ok := obj["code"].(string)
		return ok
	case TypeBlock:
		if style, present := obj["style"]; present {
			s, ok := style.(string)
			if !ok || !Style(s).Known() {
				return false
			}
		}
		children, ok := obj["children"].([]any)
		if !ok {
			return false
		}
		for _, child := range children {
			span, ok := child.(map[string]any)
			if !ok {
				return false
			}
			if _, ok := span["text"].(string); !ok {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Validate is the typed structural check run before anything is stored. On
// top of the shape check it enforces that every non-decorator mark resolves
// to a markDef of the owning block and that list levels are in range.
func Validate(doc Document) error {
	for i, b := range doc {
		switch b.Type {
		case TypeCode:
			if len(b.Children) > 0 {
				return exception.NewValidationError("CODE_WITH_SPANS", "block %d: code blocks cannot hold spans", i)
			}
		case TypeBlock:
			if b.Style != "" && !b.Style.Known() {
				return exception.NewValidationError("UNKNOWN_STYLE", "block %d: unknown style %q", i, b.Style)
			}
			if err := validateList(i, b); err != nil {
				return err
			}
			for j, span := range b.Children {
				for _, mark := range span.Marks {
					if IsDecorator(mark) {
						continue
					}
					if _, ok := b.MarkDef(mark); !ok {
						return exception.NewValidationError("DANGLING_MARK",
							"block %d span %d: mark %q has no markDef", i, j, mark)
					}
				}
			}
		default:
			return exception.NewValidationError("UNKNOWN_TYPE", "block %d: unknown type %q", i, b.Type)
		}
	}
	return nil
}

func validateList(i int, b Block) error {
	if b.ListItem == "" {
		if b.Level != 0 {
			return exception.NewValidationError("LEVEL_WITHOUT_LIST", "block %d: level set on a non-list block", i)
		}
		return nil
	}
	if b.ListItem != ListBullet && b.ListItem != ListNumber {
		return exception.NewValidationError("UNKNOWN_LIST", "block %d: unknown list type %q", i, b.ListItem)
	}
	if b.Level < 1 || b.Level > MaxListLevel {
		return exception.NewValidationError("LIST_LEVEL", "block %d: list level %d outside 1..%d", i, b.Level, MaxListLevel)
	}
	return nil
}

// Parse decodes a JSON document and validates it.
func Parse(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, exception.NewValidationError("MALFORMED_JSON", "document is not a JSON block array: %v", err)
	}
	if err := Validate(doc); err != nil {
		return nil, err
	}
	return doc, nil
}
