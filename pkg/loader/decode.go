package loader

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ErrDecode marks content that was fetched but could not be decoded.
var ErrDecode = errors.New("malformed source")

// Format names a decoding path.
type Format string

const (
	FormatJSON   Format = "json"
	FormatNDJSON Format = "ndjson"
	FormatYAML   Format = "yaml"
	FormatTOML   Format = "toml"
	FormatCSV    Format = "csv"
	FormatTSV    Format = "tsv"
)

// StructuredFormat maps a file extension to a structured format. The boolean is
// false for extensions that denote delimited text or nothing known.
func StructuredFormat(ext string) (Format, bool) {
	switch strings.ToLower(ext) {
	case "json":
		return FormatJSON, true
	case "ndjson", "jsonl":
		return FormatNDJSON, true
	case "yaml", "yml":
		return FormatYAML, true
	case "toml":
		return FormatTOML, true
	default:
		return "", false
	}
}

// DecodeJSON parses a single JSON document.
func DecodeJSON(text string) (any, error) {
	var data any
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %w", ErrDecode, err)
	}
	return data, nil
}

// DecodeRows decodes text of a structured format into records.
func DecodeRows(text string, format Format) ([]map[string]any, error) {
	var (
		doc any
		err error
	)
	switch format {
	case FormatJSON:
		doc, err = DecodeJSON(text)
	case FormatNDJSON:
		doc, err = decodeNDJSON(text)
	case FormatYAML:
		doc, err = decodeYAML(text)
	case FormatTOML:
		doc, err = decodeTOML(text)
	default:
		return nil, fmt.Errorf("%w: %q is not a structured format", ErrDecode, format)
	}
	if err != nil {
		return nil, err
	}
	return Records(doc)
}

// Records converts a decoded document into records. The document must be a
// list of objects; a single object is one record.
func Records(doc any) ([]map[string]any, error) {
	switch v := doc.(type) {
	case nil:
		return []map[string]any{}, nil
	case map[string]any:
		return []map[string]any{v}, nil
	case []map[string]any:
		return v, nil
	case []any:
		out := make([]map[string]any, 0, len(v))
		for i, item := range v {
			rec, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: element [%d] is %T, want an object", ErrDecode, i, item)
			}
			out = append(out, rec)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: document is %T, want a list of objects", ErrDecode, doc)
	}
}

// decodeYAML returns the single document, or the list of documents for
// multi-document input.
func decodeYAML(text string) (any, error) {
	dec := yaml.NewDecoder(strings.NewReader(text))
	var docs []any
	for {
		var doc any
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%w: invalid YAML: %w", ErrDecode, err)
		}
		if doc != nil {
			docs = append(docs, doc)
		}
	}
	switch len(docs) {
	case 0:
		return nil, nil
	case 1:
		return docs[0], nil
	default:
		return docs, nil
	}
}

// decodeTOML accepts a document whose only top-level array of tables holds the
// records, e.g. [[rows]] blocks.
func decodeTOML(text string) (any, error) {
	var data map[string]any
	if err := toml.Unmarshal([]byte(text), &data); err != nil {
		return nil, fmt.Errorf("%w: invalid TOML: %w", ErrDecode, err)
	}
	var keys []string
	for k, v := range data {
		if _, ok := v.([]any); ok {
			keys = append(keys, k)
		}
	}
	if len(keys) != 1 {
		slices.Sort(keys)
		return nil, fmt.Errorf("%w: TOML needs exactly one array of tables, found %v", ErrDecode, keys)
	}
	return data[keys[0]], nil
}

func decodeNDJSON(text string) (any, error) {
	var out []any
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var obj any
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			return nil, fmt.Errorf("%w: invalid JSON on line %d: %w", ErrDecode, i+1, err)
		}
		out = append(out, obj)
	}
	return out, nil
}

// Sniff guesses the format of unnamed input such as stdin. Delimited text is
// reported as FormatCSV when its header holds commas but no tabs, else FormatTSV.
func Sniff(text string) Format {
	input := strings.TrimSpace(text)
	if input == "" {
		return FormatTSV
	}
	lines := strings.Split(input, "\n")
	if isLikelyNDJSON(lines) {
		return FormatNDJSON
	}
	if strings.HasPrefix(input, "{") || (strings.HasPrefix(input, "[") && !isLikelyTOML(input)) {
		return FormatJSON
	}
	if isLikelyTOML(input) {
		return FormatTOML
	}
	if strings.HasPrefix(input, "---") || isLikelyYAMLList(lines) {
		return FormatYAML
	}
	header := lines[0]
	if !strings.Contains(header, "\t") && strings.Contains(header, ",") {
		return FormatCSV
	}
	return FormatTSV
}

// isLikelyNDJSON requires several lines with a majority starting like JSON.
func isLikelyNDJSON(lines []string) bool {
	jsonCount := 0
	nonEmpty := 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		nonEmpty++
		if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
			jsonCount++
		}
	}
	return nonEmpty > 1 && jsonCount > nonEmpty/2
}

var (
	// [rows], [[rows]], ["quoted"], [a.b]; excludes JSON arrays like [1, 2].
	tomlSectionPattern = regexp.MustCompile(`^\s*\[{1,2}(?:[a-zA-Z_][a-zA-Z0-9_-]*|"[^"]+"|'[^']+')+(?:\.(?:[a-zA-Z_][a-zA-Z0-9_-]*|"[^"]+"|'[^']+'))*\]{1,2}\s*$`)
	tomlKeyValuePattern = regexp.MustCompile(`^\s*(?:[a-zA-Z_][a-zA-Z0-9_-]*|"[^"]+"|'[^']+')+(?:\.(?:[a-zA-Z_][a-zA-Z0-9_-]*|"[^"]+"|'[^']+'))*\s*=\s*.+$`)
	yamlListItemPattern = regexp.MustCompile(`^-\s+[^\s:]+:\s`)
)

func isLikelyTOML(input string) bool {
	sections := 0
	keyValues := 0
	nonEmpty := 0
	for _, line := range strings.Split(input, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		nonEmpty++
		if tomlSectionPattern.MatchString(line) {
			sections++
		}
		if tomlKeyValuePattern.MatchString(line) {
			keyValues++
		}
	}
	return sections > 0 || (nonEmpty > 0 && keyValues > nonEmpty/2)
}

// isLikelyYAMLList matches a sequence of mappings ("- name: x").
func isLikelyYAMLList(lines []string) bool {
	return len(lines) > 0 && yamlListItemPattern.MatchString(lines[0])
}
