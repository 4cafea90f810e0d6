// Package slots defines the fixed universe of 21 context slots and the rules
// that classify a slot value as filled, ignored or missing.
package slots

import (
	"fmt"
	"strings"
)

// State is the classification of one slot value.
type State int

const (
	Missing State = iota
	Ignored
	Filled
)

func (s State) String() string {
	switch s {
	case Filled:
		return "filled"
	case Ignored:
		return "ignored"
	default:
		return "missing"
	}
}

// Section names, matching the top-level document keys.
const (
	SectionProject      = "project"
	SectionHumanContext = "human_context"
	SectionStack        = "stack"
)

// Slot is a named leaf path into a document.
type Slot struct {
	Section string
	Key     string
}

// Path returns the dotted document path, e.g. "stack.frontend".
func (s Slot) Path() string {
	return s.Section + "." + s.Key
}

func (s Slot) String() string {
	return s.Path()
}

// Section groups the slots that live under one top-level key.
type Section struct {
	Name  string
	Slots []Slot
}

var sections = []Section{
	{Name: SectionProject, Slots: build(SectionProject,
		"name", "goal", "main_language", "type")},
	{Name: SectionHumanContext, Slots: build(SectionHumanContext,
		"who", "what", "why", "where", "when", "how")},
	{Name: SectionStack, Slots: build(SectionStack,
		"frontend", "ui_library", "backend", "runtime", "database", "build",
		"package_manager", "api_type", "hosting", "cicd", "css_framework")},
}

// Total is the size of the slot universe.
const Total = 21

func build(section string, keys ...string) []Slot {
	out := make([]Slot, len(keys))
	for i, k := range keys {
		out[i] = Slot{Section: section, Key: k}
	}
	return out
}

// Sections returns the three slot sections in declaration order.
func Sections() []Section {
	out := make([]Section, len(sections))
	for i, s := range sections {
		out[i] = Section{Name: s.Name, Slots: append([]Slot(nil), s.Slots...)}
	}
	return out
}

// All returns every slot in declaration order.
func All() []Slot {
	out := make([]Slot, 0, Total)
	for _, s := range sections {
		out = append(out, s.Slots...)
	}
	return out
}

// sentinels are values a user writes to say "this slot does not apply".
var sentinels = map[string]struct{}{
	"none":          {},
	"unknown":       {},
	"not specified": {},
	"n/a":           {},
	"slotignored":   {},
}

// IsSentinel reports whether s, trimmed and lower-cased, is an ignore sentinel.
func IsSentinel(s string) bool {
	_, ok := sentinels[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// Classify returns the state of a slot value. Presence decides filled: 0 and
// false count as filled. Whitespace-only strings and empty collections count
// as missing.
func Classify(v any) State {
	switch t := v.(type) {
	case nil:
		return Missing
	case string:
		if strings.TrimSpace(t) == "" {
			return Missing
		}
		if IsSentinel(t) {
			return Ignored
		}
		return Filled
	case map[string]any:
		if len(t) == 0 {
			return Missing
		}
		return Filled
	case []any:
		if len(t) == 0 {
			return Missing
		}
		return Filled
	case fmt.Stringer:
		return Classify(t.String())
	default:
		return Filled
	}
}
