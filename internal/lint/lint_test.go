package lint

import (
	"strings"
	"testing"

	"github.com/starford/faf/internal/document"
)

func rules(fs []Finding) map[string]int {
	out := map[string]int{}
	for _, f := range fs {
		out[f.Rule]++
	}
	return out
}

func TestCheck_Clean(t *testing.T) {
	raw := []byte("project:\n  name: demo\n  goal: ship it\nstack:\n  frontend: None\n")
	if got := Check(raw); len(got) != 0 {
		t.Errorf("expected no findings, got %v", got)
	}
}

func TestCheck_Findings(t *testing.T) {
	raw := []byte("project:\n   name: demo \n   goal: ship\nstack:\n   frontend: none\n   css_framework: N/a\n")
	got := rules(Check(raw))
	if got[RuleTrailingWhitespace] != 1 {
		t.Errorf("trailing whitespace findings = %d", got[RuleTrailingWhitespace])
	}
	if got[RuleIndentation] != 4 {
		t.Errorf("indentation findings = %d", got[RuleIndentation])
	}
	if got[RuleSentinel] != 2 {
		t.Errorf("sentinel findings = %d", got[RuleSentinel])
	}
}

func TestCheck_LineOrder(t *testing.T) {
	fs := Check([]byte("stack:\n  frontend: none\nproject:\n  name: x \n"))
	for i := 1; i < len(fs); i++ {
		if fs[i].Line < fs[i-1].Line {
			t.Fatalf("findings out of order: %v", fs)
		}
	}
}

func TestCheck_MissingProject(t *testing.T) {
	got := rules(Check([]byte("stack:\n  backend: go\n")))
	if got[RuleMissingProject] != 1 {
		t.Errorf("expected missing-project finding, got %v", got)
	}
}

func TestCheck_Syntax(t *testing.T) {
	fs := Check([]byte("project: [unclosed\n"))
	if len(fs) != 1 || fs[0].Rule != RuleSyntax {
		t.Errorf("got %v", fs)
	}
}

func TestCheck_SentinelsOnlyAtSlots(t *testing.T) {
	raw := []byte("project:\n  name: demo\n  goal: ship\nmetadata:\n  reviewer: unknown\ntags: [n/a]\n")
	if got := rules(Check(raw)); got[RuleSentinel] != 0 {
		t.Errorf("free-form values flagged: %v", Check(raw))
	}
}

func TestFix(t *testing.T) {
	raw := []byte("stack:\n   frontend: none \nproject:\n   name: demo\n   goal: ship\ncustom:\n  tags: [n/a, go]\n")
	out, err := Fix(raw)
	if err != nil {
		t.Fatalf("Fix: %v", err)
	}
	if got := Check(out); len(got) != 0 {
		t.Errorf("fixed output still has findings: %v\n%s", got, out)
	}
	if !strings.HasPrefix(string(out), "stack:") {
		t.Errorf("key order should be kept:\n%s", out)
	}
	doc, err := document.Parse(out)
	if err != nil {
		t.Fatal(err)
	}
	if got := doc.GetString("stack.frontend"); got != "None" {
		t.Errorf("stack.frontend = %q", got)
	}
	tags, _ := doc.Get("custom.tags")
	if list, ok := tags.([]any); !ok || list[0] != "n/a" || list[1] != "go" {
		t.Errorf("custom.tags = %v", tags)
	}

	changed, err := Changed(out)
	if err != nil || changed {
		t.Errorf("Fix should be idempotent: changed=%v err=%v", changed, err)
	}
}

func TestFix_KeepsFreeFormAndComments(t *testing.T) {
	raw := []byte("# project context\nproject:\n  name: demo # short name\n  goal: ship\nstack:\n  backend: n/a\nmetadata:\n  reviewer: unknown\n")
	out, err := Fix(raw)
	if err != nil {
		t.Fatalf("Fix: %v", err)
	}
	s := string(out)
	for _, want := range []string{"# project context", "# short name", "reviewer: unknown", "backend: N/A"} {
		if !strings.Contains(s, want) {
			t.Errorf("missing %q in:\n%s", want, s)
		}
	}
}

func TestCanonical(t *testing.T) {
	tests := map[string]string{
		"none":          "None",
		" NONE ":        "None",
		"unknown":       "Unknown",
		"not specified": "Not specified",
		"Go":            "Go",
	}
	for in, want := range tests {
		if got := Canonical(in); got != want {
			t.Errorf("Canonical(%q) = %q, want %q", in, got, want)
		}
	}
}
