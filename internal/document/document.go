// Package document reads and writes the local JSON settings file.
//
// A document is a JSON array of objects with the optional properties Key,
// Label, Environment, Application, Value, KeyVault and Purge. Property names
// match case-insensitively and unknown properties are ignored.
package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/systmms/appcfg/internal/item"
	"github.com/systmms/appcfg/internal/validation"
)

// ProblemKind separates documents that are not JSON at all from documents
// whose items fail validation.
type ProblemKind string

const (
	KindParse      ProblemKind = "parse"
	KindValidation ProblemKind = "validation"
)

// Problem is a parse or validation error. Index is -1 when the problem is not
// tied to a single item.
type Problem struct {
	Kind    ProblemKind `json:"kind"`
	Index   int         `json:"index"`
	Field   string      `json:"field,omitempty"`
	Message string      `json:"message"`
}

func (p Problem) Error() string {
	switch {
	case p.Index >= 0 && p.Field != "":
		return fmt.Sprintf("item[%d].%s: %s", p.Index, p.Field, p.Message)
	case p.Index >= 0:
		return fmt.Sprintf("item[%d]: %s", p.Index, p.Message)
	case p.Field != "":
		return fmt.Sprintf("%s: %s", p.Field, p.Message)
	default:
		return p.Message
	}
}

// HasParseProblems reports whether any problem is a parse problem.
func HasParseProblems(problems []Problem) bool {
	for _, p := range problems {
		if p.Kind == KindParse {
			return true
		}
	}
	return false
}

const itemSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "patternProperties": {
      "(?i)^(key|label|environment|application|value)$": {"type": ["string", "null"]},
      "(?i)^(keyvault|purge)$": {"type": ["boolean", "null"]}
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(itemSchema)

// IsWellFormedJSON is a cheap pre-check: the trimmed text must be bracketed
// by a matching {} or [] pair and parse as JSON.
func IsWellFormedJSON(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) < 2 {
		return false
	}
	first, last := trimmed[0], trimmed[len(trimmed)-1]
	if !(first == '{' && last == '}') && !(first == '[' && last == ']') {
		return false
	}
	return json.Valid(trimmed)
}

// Parse decodes a document. It recovers every item it can and always runs
// item validation over the recovered items; all problems are returned as
// data rather than as an error.
func Parse(data []byte) ([]item.ConfigItem, []Problem) {
	var problems []Problem

	var root interface{}
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, []Problem{{Kind: KindParse, Index: -1, Message: syntaxMessage(data, err)}}
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(root))
	if err != nil {
		return nil, []Problem{{Kind: KindParse, Index: -1, Message: err.Error()}}
	}
	for _, desc := range result.Errors() {
		problems = append(problems, schemaProblem(desc))
	}

	elements, ok := root.([]interface{})
	if !ok {
		return nil, problems
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, append(problems, Problem{Kind: KindParse, Index: -1, Message: err.Error()})
	}

	items := make([]item.ConfigItem, 0, len(raws))
	indexes := make([]int, 0, len(raws))
	for i, raw := range raws {
		if _, isObject := elements[i].(map[string]interface{}); !isObject {
			continue
		}
		var c item.ConfigItem
		// Mistyped fields are already reported by the schema; Unmarshal
		// still fills every field it can.
		_ = json.Unmarshal(raw, &c)
		items = append(items, c)
		indexes = append(indexes, i)
	}

	for _, fe := range validation.ValidateAll(items).Errors {
		problems = append(problems, Problem{
			Kind:    KindValidation,
			Index:   indexes[fe.Index],
			Field:   fe.Field,
			Message: fe.Message,
		})
	}

	return items, problems
}

// Serialize renders items sorted by Key (stable), indented, with empty and
// default fields omitted.
func Serialize(items []item.ConfigItem) ([]byte, error) {
	sorted := make([]item.ConfigItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Key < sorted[j].Key
	})

	out, err := json.MarshalIndent(sorted, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return append(out, '\n'), nil
}

func schemaProblem(desc gojsonschema.ResultError) Problem {
	p := Problem{Kind: KindParse, Index: -1, Message: desc.Description()}

	// Field paths look like "(root)", "3" or "3.KeyVault".
	path := desc.Field()
	if path == "(root)" {
		return p
	}
	head, field, _ := strings.Cut(path, ".")
	if _, err := fmt.Sscanf(head, "%d", &p.Index); err != nil {
		p.Index = -1
		p.Field = path
		return p
	}
	p.Field = field
	return p
}

func syntaxMessage(data []byte, err error) string {
	var syntaxErr *json.SyntaxError
	if !errors.As(err, &syntaxErr) {
		return fmt.Sprintf("invalid JSON: %v", err)
	}
	line, col := position(data, syntaxErr.Offset)
	return fmt.Sprintf("invalid JSON at line %d, column %d: %v", line, col, err)
}

func position(data []byte, offset int64) (line, col int) {
	line, col = 1, 1
	for i := int64(0); i < offset && i < int64(len(data)); i++ {
		if data[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
