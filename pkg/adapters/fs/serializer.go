package fs

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/livelist/pkg/core"
)

// ContentField holds the body of a Markdown document.
const ContentField = "content"

// Serializer defines how to read and write a specific file format.
type Serializer interface {
	// Parse reads from r and returns the document fields.
	Parse(r io.Reader) (core.Fields, error)
	// Serialize converts the fields to bytes.
	Serialize(fields core.Fields) ([]byte, error)
}

// DefaultSerializers returns the standard set of serializers keyed by extension.
func DefaultSerializers(strict bool) map[string]Serializer {
	return map[string]Serializer{
		".json": NewJSONSerializer(strict),
		".yaml": NewYAMLSerializer(strict),
		".yml":  NewYAMLSerializer(strict),
		".md":   NewMarkdownSerializer(strict),
	}
}

// --- JSON Serializer ---

// JSONSerializer handles reading and writing JSON files.
type JSONSerializer struct {
	// Strict enables strict number parsing (as json.Number) to avoid precision loss.
	Strict bool
	api    jsoniter.API
}

// NewJSONSerializer creates a new JSON serializer.
// Optional strict mode prevents float64 conversion for large integers.
func NewJSONSerializer(strict bool) *JSONSerializer {
	return &JSONSerializer{
		Strict: strict,
		api: jsoniter.Config{
			EscapeHTML:             true,
			SortMapKeys:            true,
			ValidateJsonRawMessage: true,
			UseNumber:              strict,
		}.Froze(),
	}
}

func (s *JSONSerializer) Parse(r io.Reader) (core.Fields, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var fields map[string]any
	if err := s.api.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	if fields == nil {
		fields = make(map[string]any)
	}
	return fields, nil
}

func (s *JSONSerializer) Serialize(fields core.Fields) ([]byte, error) {
	return s.api.MarshalIndent(map[string]any(fields), "", "  ")
}

// --- YAML Serializer ---

type YAMLSerializer struct {
	// Strict enables strict number parsing (as json.Number) to avoid precision loss.
	Strict bool
}

// NewYAMLSerializer creates a new YAML serializer.
func NewYAMLSerializer(strict bool) *YAMLSerializer {
	return &YAMLSerializer{Strict: strict}
}

func (s *YAMLSerializer) Parse(r io.Reader) (core.Fields, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	fields := make(core.Fields)
	if err := yaml.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}
	if s.Strict {
		fields = recursiveNormalize(fields).(core.Fields)
	}
	return fields, nil
}

func (s *YAMLSerializer) Serialize(fields core.Fields) ([]byte, error) {
	return yaml.Marshal(map[string]any(fields))
}

// --- Markdown Serializer ---

// MarkdownSerializer reads YAML front matter as fields and the body as ContentField.
type MarkdownSerializer struct {
	// Strict enables strict number parsing (as json.Number) to avoid precision loss.
	Strict bool
}

// NewMarkdownSerializer creates a new Markdown serializer.
func NewMarkdownSerializer(strict bool) *MarkdownSerializer {
	return &MarkdownSerializer{Strict: strict}
}

func (s *MarkdownSerializer) Parse(r io.Reader) (core.Fields, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	fields := make(core.Fields)
	if !bytes.HasPrefix(data, []byte("---\n")) && !bytes.HasPrefix(data, []byte("---\r\n")) {
		fields[ContentField] = string(data)
		return fields, nil
	}

	rest := data[3:]
	parts := bytes.SplitN(rest, []byte("\n---"), 2)
	if len(parts) == 1 {
		return nil, errors.New("frontmatter started but no closing delimiter found")
	}

	if err := yaml.Unmarshal(parts[0], &fields); err != nil {
		return nil, fmt.Errorf("failed to parse frontmatter: %w", err)
	}

	body := strings.TrimPrefix(string(parts[1]), "\r")
	body = strings.TrimPrefix(body, "\n")
	body = strings.TrimPrefix(body, "\r\n")
	if body != "" {
		fields[ContentField] = body
	}

	if s.Strict {
		fields = recursiveNormalize(fields).(core.Fields)
	}
	return fields, nil
}

func (s *MarkdownSerializer) Serialize(fields core.Fields) ([]byte, error) {
	meta := make(map[string]any, len(fields))
	for k, v := range fields {
		if k != ContentField {
			meta[k] = v
		}
	}

	var buf bytes.Buffer
	if len(meta) > 0 {
		buf.WriteString("---\n")
		encoder := yaml.NewEncoder(&buf)
		encoder.SetIndent(2)
		if err := encoder.Encode(meta); err != nil {
			return nil, err
		}
		encoder.Close()
		buf.WriteString("---\n")
	}
	if body, ok := fields[ContentField].(string); ok {
		buf.WriteString(body)
	}
	return buf.Bytes(), nil
}

// recursiveNormalize traverses the map/slice and converts numeric types to json.Number.
// This ensures consistency with JSON Strict mode.
func recursiveNormalize(val any) any {
	switch v := val.(type) {
	case core.Fields:
		m := make(core.Fields, len(v))
		for k, val := range v {
			m[k] = recursiveNormalize(val)
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(v))
		for k, val := range v {
			m[k] = recursiveNormalize(val)
		}
		return m
	case []any:
		l := make([]any, len(v))
		for i, val := range v {
			l[i] = recursiveNormalize(val)
		}
		return l
	case int:
		return json.Number(fmt.Sprintf("%d", v))
	case int64:
		return json.Number(fmt.Sprintf("%d", v))
	case int32:
		return json.Number(fmt.Sprintf("%d", v))
	case float64:
		return json.Number(fmt.Sprintf("%v", v))
	default:
		return v
	}
}
