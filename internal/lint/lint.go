// Package lint reports formatting problems in a .faf file and rewrites it in
// canonical form.
package lint

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/faf/internal/slots"
)

// Rule names.
const (
	RuleSyntax             = "syntax"
	RuleTrailingWhitespace = "trailing-whitespace"
	RuleIndentation        = "indentation"
	RuleSentinel           = "sentinel"
	RuleMissingProject     = "missing-project"
)

// Finding is one lint problem. Line is 1-based; 0 means the whole file.
type Finding struct {
	Line    int    `json:"line"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
	Fixable bool   `json:"fixable"`
}

func (f Finding) String() string {
	if f.Line == 0 {
		return fmt.Sprintf("%s: %s", f.Rule, f.Message)
	}
	return fmt.Sprintf("%d: %s: %s", f.Line, f.Rule, f.Message)
}

// canonicalSentinels maps lower-cased sentinels to the spelling Fix writes.
var canonicalSentinels = map[string]string{
	"none":          "None",
	"unknown":       "Unknown",
	"not specified": "Not specified",
	"n/a":           "N/A",
	"slotignored":   "slotignored",
}

// Canonical returns the canonical spelling of sentinel s, or s unchanged when
// it is not a sentinel.
func Canonical(s string) string {
	if !slots.IsSentinel(s) {
		return s
	}
	return canonicalSentinels[strings.ToLower(strings.TrimSpace(s))]
}

// Check lints raw and returns findings in line order, syntax errors first.
func Check(raw []byte) []Finding {
	var out []Finding

	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return []Finding{{Rule: RuleSyntax, Message: err.Error()}}
	}

	for i, line := range strings.Split(string(raw), "\n") {
		n := i + 1
		if strings.TrimRight(line, " \t") != line {
			out = append(out, Finding{Line: n, Rule: RuleTrailingWhitespace, Message: "trailing whitespace", Fixable: true})
		}
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		switch {
		case strings.Contains(indent, "\t"):
			out = append(out, Finding{Line: n, Rule: RuleIndentation, Message: "tab in indentation", Fixable: true})
		case len(indent)%2 != 0 && strings.TrimSpace(line) != "":
			out = append(out, Finding{Line: n, Rule: RuleIndentation, Message: fmt.Sprintf("indent of %d is not a multiple of 2", len(indent)), Fixable: true})
		}
	}

	if len(root.Content) == 0 {
		return append(out, Finding{Rule: RuleMissingProject, Message: "document is empty"})
	}
	top := root.Content[0]
	if top.Kind != yaml.MappingNode {
		return append(out, Finding{Line: top.Line, Rule: RuleSyntax, Message: "top level must be a mapping"})
	}

	hasProject := false
	for i := 0; i+1 < len(top.Content); i += 2 {
		if top.Content[i].Value == "project" {
			hasProject = true
		}
	}
	if !hasProject {
		out = append(out, Finding{Rule: RuleMissingProject, Message: "no project section"})
	}

	for _, n := range slotScalars(top) {
		if want := Canonical(n.Value); want != n.Value {
			out = append(out, Finding{
				Line:    n.Line,
				Rule:    RuleSentinel,
				Message: fmt.Sprintf("%q should be written %q", n.Value, want),
				Fixable: true,
			})
		}
	}

	sortFindings(out)
	return out
}

// slotScalars returns the string value nodes at the slot paths. Sentinel
// spelling only matters there; free-form sections are left alone.
func slotScalars(top *yaml.Node) []*yaml.Node {
	var out []*yaml.Node
	for _, slot := range slots.All() {
		n := lookup(top, strings.Split(slot.Path(), "."))
		if n != nil && n.Kind == yaml.ScalarNode && n.Tag == "!!str" {
			out = append(out, n)
		}
	}
	return out
}

func lookup(n *yaml.Node, path []string) *yaml.Node {
	for _, key := range path {
		if n.Kind != yaml.MappingNode {
			return nil
		}
		var next *yaml.Node
		for i := 0; i+1 < len(n.Content); i += 2 {
			if n.Content[i].Value == key {
				next = n.Content[i+1]
			}
		}
		if next == nil {
			return nil
		}
		n = next
	}
	return n
}

func sortFindings(fs []Finding) {
	// Insertion sort keeps equal lines in discovery order.
	for i := 1; i < len(fs); i++ {
		for j := i; j > 0 && fs[j].Line < fs[j-1].Line; j-- {
			fs[j], fs[j-1] = fs[j-1], fs[j]
		}
	}
}

// Fix rewrites raw with slot sentinels respelled, two-space indentation and
// no trailing whitespace. Key order, comments and every other value are kept.
func Fix(raw []byte) ([]byte, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("lint: %w", err)
	}
	if len(root.Content) == 0 {
		return raw, nil
	}
	if root.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("lint: top level must be a mapping")
	}
	for _, n := range slotScalars(root.Content[0]) {
		n.Value = Canonical(n.Value)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&root); err != nil {
		return nil, fmt.Errorf("lint: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("lint: %w", err)
	}

	lines := strings.Split(buf.String(), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	return []byte(strings.Join(lines, "\n")), nil
}

// Changed reports whether Fix would alter raw.
func Changed(raw []byte) (bool, error) {
	out, err := Fix(raw)
	if err != nil {
		return false, err
	}
	return !bytes.Equal(out, raw), nil
}
