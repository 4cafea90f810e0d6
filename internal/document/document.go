// Package document holds the parsed .faf metadata tree and the YAML boundary
// used to read and write it.
package document

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/faf/internal/apperr"
)

// Conventional file names inside a project root.
const (
	StructuredName       = "project.faf"
	LegacyStructuredName = ".faf"
	ReadableName         = "CLAUDE.md"
)

// Document is a parsed .faf file. Keys are section names; nested sections are
// map[string]any. Sections faf does not recognise are carried through as-is.
type Document map[string]any

// topLevelOrder is the order known sections are written in. Anything else
// follows in lexical order.
var topLevelOrder = []string{
	"faf_version",
	"generated",
	"ai_score",
	"ai_confidence",
	"project",
	"instant_context",
	"human_context",
	"stack",
	"ai_instructions",
	"key_files",
	"preferences",
	"state",
	"tags",
	"scores",
	"metadata",
}

// nestedOrder fixes the key order inside the slot-bearing sections so a
// rewritten file reads the same way a human wrote it.
var nestedOrder = map[string][]string{
	"project":         {"name", "goal", "main_language", "type"},
	"human_context":   {"who", "what", "why", "where", "when", "how"},
	"instant_context": {"what_building", "tech_stack", "main_language", "key_files"},
	"stack": {
		"frontend", "ui_library", "backend", "runtime", "database", "build",
		"package_manager", "api_type", "hosting", "cicd", "css_framework",
	},
	"scores": {
		"faf_score", "scoring_system", "filled_slots", "ignored_slots",
		"missing_slots", "total_slots", "confidence", "last_calculated",
	},
}

// Parse decodes YAML bytes into a Document. Empty input yields an empty
// Document; a top-level value that is not a mapping is rejected.
func Parse(data []byte) (Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Document{}, nil
	}
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidDocument, err)
	}
	if raw == nil {
		return Document{}, nil
	}
	m, ok := normalize(raw).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: top level is %T, want a mapping", apperr.ErrInvalidDocument, raw)
	}
	return Document(m), nil
}

// Stringify encodes the Document as YAML with two-space indentation and a
// stable key order.
func (d Document) Stringify() ([]byte, error) {
	node, err := encodeMap(map[string]any(d), "")
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return nil, fmt.Errorf("document: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("document: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Get resolves a dotted path such as "stack.frontend". Any missing or
// non-mapping intermediate yields (nil, false).
func (d Document) Get(path string) (any, bool) {
	var cur any = map[string]any(d)
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// GetString returns the value at path formatted as a string, or "" when the
// path is absent or holds a collection.
func (d Document) GetString(path string) string {
	v, ok := d.Get(path)
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case map[string]any, []any:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

// Section returns the mapping stored under a top-level key, or nil.
func (d Document) Section(name string) map[string]any {
	m, _ := d[name].(map[string]any)
	return m
}

// Set stores v at a dotted path, creating intermediate mappings as needed.
// A non-mapping intermediate is replaced by a mapping.
func (d Document) Set(path string, v any) {
	parts := strings.Split(path, ".")
	cur := map[string]any(d)
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur[part].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[part] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = v
}

// Clone returns a deep copy, so edits to the copy never reach the original.
func (d Document) Clone() Document {
	if d == nil {
		return Document{}
	}
	return Document(deepCopy(map[string]any(d)).(map[string]any))
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = deepCopy(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = deepCopy(val)
		}
		return out
	default:
		return t
	}
}

// normalize turns map[any]any produced for non-string keys into
// map[string]any so path lookups work uniformly.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = normalize(val)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []any:
		for i, val := range t {
			t[i] = normalize(val)
		}
		return t
	default:
		return t
	}
}

func encodeMap(m map[string]any, path string) (*yaml.Node, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range orderedKeys(m, path) {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}
		child := k
		if path != "" {
			child = path + "." + k
		}
		valNode, err := encodeValue(m[k], child)
		if err != nil {
			return nil, err
		}
		node.Content = append(node.Content, keyNode, valNode)
	}
	return node, nil
}

func encodeValue(v any, path string) (*yaml.Node, error) {
	switch t := v.(type) {
	case map[string]any:
		return encodeMap(t, path)
	case []any:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range t {
			n, err := encodeValue(item, path)
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, n)
		}
		return seq, nil
	default:
		n := &yaml.Node{}
		if err := n.Encode(t); err != nil {
			return nil, fmt.Errorf("document: encode %s: %w", path, err)
		}
		return n, nil
	}
}

func orderedKeys(m map[string]any, path string) []string {
	preferred := topLevelOrder
	if path != "" {
		preferred = nestedOrder[path]
	}
	seen := make(map[string]struct{}, len(m))
	keys := make([]string, 0, len(m))
	for _, k := range preferred {
		if _, ok := m[k]; ok {
			keys = append(keys, k)
			seen[k] = struct{}{}
		}
	}
	rest := make([]string, 0, len(m)-len(keys))
	for k := range m {
		if _, ok := seen[k]; !ok {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}
