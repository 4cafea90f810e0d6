package transform

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/starford/faf/internal/document"
	"github.com/starford/faf/internal/score"
)

var fixedNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func sampleDoc() document.Document {
	return document.Document{
		"project": map[string]any{
			"name":          "Foo",
			"goal":          "Ship the thing",
			"main_language": "Go",
			"type":          "cli",
		},
		"human_context": map[string]any{"what": "A CLI"},
		"stack": map[string]any{
			"backend":  "Go",
			"database": "SQLite",
			"frontend": "None",
		},
		"instant_context": map[string]any{
			"key_files": []any{"cmd/faf/main.go", "internal/mirror/engine.go"},
		},
		"ai_instructions": map[string]any{"tone": "terse", "rules": []any{"no magic", "test first"}},
		"custom_section": map[string]any{
			"nested": []any{"a", 1, map[string]any{"deep": true}},
		},
	}
}

func TestToReadable_Template(t *testing.T) {
	doc := sampleDoc()
	md := ToReadable(doc, score.Calculate(doc), fixedNow)

	wants := []string{
		"# CLAUDE.md - Foo\n",
		"## STATE: BUILDING",
		"**Current Position:** Ship the thing",
		"- **Description:** Ship the thing",
		"- **Main Language:** Go",
		"- **What Building:** A CLI",
		"- **Stack:** Go / SQLite",
		"## Key Files\n\n1. cmd/faf/main.go\n2. internal/mirror/engine.go\n",
		"## AI Instructions",
		"- **rules:** no magic, test first",
		"- **Score:** 38% (8/21 slots)",
		"- **Last Updated:** 2026-10-19",
		"*STATUS: BI-SYNC ACTIVE",
		"*Last Sync: 2026-10-19T12:00:00Z*",
	}
	for _, w := range wants {
		if !strings.Contains(md, w) {
			t.Errorf("missing %q in:\n%s", w, md)
		}
	}
	if !HasFooter(md) {
		t.Error("HasFooter = false")
	}
}

func TestToReadable_Deterministic(t *testing.T) {
	doc := sampleDoc()
	res := score.Calculate(doc)
	if ToReadable(doc, res, fixedNow) != ToReadable(doc, res, fixedNow) {
		t.Error("same input and time produced different output")
	}
}

func TestToReadable_OptionalBlocksOmitted(t *testing.T) {
	doc := document.Document{"project": map[string]any{"name": "Bare"}}
	md := ToReadable(doc, score.Calculate(doc), fixedNow)
	for _, unwanted := range []string{"## Key Files", "## AI Instructions", "Current Position", "**Stack:**"} {
		if strings.Contains(md, unwanted) {
			t.Errorf("unexpected %q in:\n%s", unwanted, md)
		}
	}
}

func TestScan_Fields(t *testing.T) {
	md := "# CLAUDE.md - Widget\n\n" +
		"**Current Position:** building v2\n\n" +
		"## Core Context\n\n" +
		"- **Description:** A widget factory\n" +
		"- **Main Language:** Rust\n" +
		"- **What Building:** widgets\n" +
		"- **Stack:** Rust / Postgres\n\n" +
		"## Key Files\n\n1. `src/main.rs`\n2) Cargo.toml\n\n" +
		"## Notes\n\n- **Description:** not core context\n\n" +
		"```\n**Main Language:** Python\n```\n"
	ex := Scan(md)

	want := map[string]string{
		FieldTitle:           "Widget",
		FieldCurrentPosition: "building v2",
		FieldDescription:     "A widget factory",
		FieldMainLanguage:    "Rust",
		FieldWhatBuilding:    "widgets",
		FieldStack:           "Rust / Postgres",
	}
	if !reflect.DeepEqual(ex.Fields, want) {
		t.Errorf("fields = %v, want %v", ex.Fields, want)
	}
	if !reflect.DeepEqual(ex.KeyFiles, []string{"src/main.rs", "Cargo.toml"}) {
		t.Errorf("key files = %v", ex.KeyFiles)
	}
}

func TestScan_PlainTitleAndUntitled(t *testing.T) {
	if got := Scan("# My Project\n").Fields[FieldTitle]; got != "My Project" {
		t.Errorf("title = %q", got)
	}
	if _, ok := Scan("# CLAUDE.md - Untitled Project\n").Fields[FieldTitle]; ok {
		t.Error("placeholder title should not be extracted")
	}
}

func TestFromReadable_Merge(t *testing.T) {
	existing := document.Document{
		"project": map[string]any{"name": "Old", "type": "cli"},
		"extra":   "keep",
	}
	md := "# Widget\n\n**Current Position:** fallback goal\n\n## Core Context\n\n- **Main Language:** Rust\n"
	out := FromReadable(md, existing, fixedNow)

	if out.GetString("project.name") != "Widget" {
		t.Errorf("name = %q", out.GetString("project.name"))
	}
	if out.GetString("project.goal") != "fallback goal" {
		t.Errorf("goal = %q", out.GetString("project.goal"))
	}
	if out.GetString("project.type") != "cli" || out.GetString("extra") != "keep" {
		t.Error("unrecognised fields were lost")
	}
	if out.GetString("metadata.last_sync") != "2026-10-19T12:00:00Z" {
		t.Errorf("last_sync = %q", out.GetString("metadata.last_sync"))
	}
	if v, _ := out.Get("metadata.sync_active"); v != true {
		t.Errorf("sync_active = %v", v)
	}
	if existing.GetString("project.name") != "Old" {
		t.Error("FromReadable mutated existing")
	}
}

func TestFromReadable_UnmatchedLeavesFields(t *testing.T) {
	existing := sampleDoc()
	out := FromReadable("no recognisable structure here", existing, fixedNow)
	delete(out, "metadata")
	if !reflect.DeepEqual(out, existing) {
		t.Errorf("doc changed:\n got %v\nwant %v", out, existing)
	}
}

func TestFromReadable_UntouchedLinesFollowSlots(t *testing.T) {
	doc := sampleDoc()
	md := ToReadable(doc, score.Calculate(doc), fixedNow)
	out := FromReadable(md, doc, fixedNow)

	for _, p := range []string{"instant_context.tech_stack", "instant_context.what_building"} {
		if _, ok := out.Get(p); ok {
			t.Errorf("%s written for an untouched line", p)
		}
	}
	out.Set("stack.backend", "Rust")
	if next := ToReadable(out, score.Calculate(out), fixedNow); !strings.Contains(next, "- **Stack:** Rust / SQLite") {
		t.Errorf("stack edit did not reach the mirror:\n%s", next)
	}
}

func TestFromReadable_StackOverride(t *testing.T) {
	doc := sampleDoc()
	md := ToReadable(doc, score.Calculate(doc), fixedNow)

	edited := strings.Replace(md, "- **Stack:** Go / SQLite", "- **Stack:** Go + htmx", 1)
	out := FromReadable(edited, doc, fixedNow)
	if got := out.GetString("instant_context.tech_stack"); got != "Go + htmx" {
		t.Fatalf("tech_stack = %q", got)
	}

	// Writing the slot-derived text back drops the override.
	reverted := strings.Replace(edited, "- **Stack:** Go + htmx", "- **Stack:** Go / SQLite", 1)
	back := FromReadable(reverted, out, fixedNow)
	if _, ok := back.Get("instant_context.tech_stack"); ok {
		t.Errorf("override kept after revert: %v", back["instant_context"])
	}
}

func TestFromReadable_EditedCurrentPosition(t *testing.T) {
	doc := sampleDoc()
	md := ToReadable(doc, score.Calculate(doc), fixedNow)

	edited := strings.Replace(md, "**Current Position:** Ship the thing", "**Current Position:** ship v2", 1)
	if got := FromReadable(edited, doc, fixedNow).GetString("project.goal"); got != "ship v2" {
		t.Errorf("goal from Current Position = %q", got)
	}

	edited = strings.Replace(md, "- **Description:** Ship the thing", "- **Description:** ship v3", 1)
	if got := FromReadable(edited, doc, fixedNow).GetString("project.goal"); got != "ship v3" {
		t.Errorf("goal from Description = %q", got)
	}

	if got := FromReadable(md, doc, fixedNow).GetString("project.goal"); got != "Ship the thing" {
		t.Errorf("untouched goal = %q", got)
	}
}

func TestRoundTripPreservesUnknownSections(t *testing.T) {
	doc := sampleDoc()
	md := ToReadable(doc, score.Calculate(doc), fixedNow)
	out := FromReadable(md, doc, fixedNow)

	if !reflect.DeepEqual(out["custom_section"], doc["custom_section"]) {
		t.Errorf("custom_section = %v, want %v", out["custom_section"], doc["custom_section"])
	}
	if !reflect.DeepEqual(out["ai_instructions"], doc["ai_instructions"]) {
		t.Error("ai_instructions changed")
	}
	for _, p := range []string{"project.name", "project.goal", "project.main_language"} {
		if out.GetString(p) != doc.GetString(p) {
			t.Errorf("%s = %q, want %q", p, out.GetString(p), doc.GetString(p))
		}
	}
	if score.Calculate(out).TotalScore != score.Calculate(doc).TotalScore {
		t.Error("round trip changed the score")
	}
}

func TestStripFooter(t *testing.T) {
	body := "# Notes\n\n| Tool | Use |\n|---|---|\n| go | build |\n\n---\n\nuser rule above is kept"
	md := body + "\n\n" + Footer(fixedNow)
	if got := StripFooter(md); got != body {
		t.Errorf("StripFooter =\n%q\nwant\n%q", got, body)
	}
	if got := StripFooter("no footer\n\n"); got != "no footer" {
		t.Errorf("StripFooter(no footer) = %q", got)
	}
}

func TestStripFooter_KeepsTextAfterFooter(t *testing.T) {
	tail := "## Notes\n\n| Tool | Use |\n|---|---|\n\n```sh\nmake test\n```"
	md := "# Body\n\n" + Footer(fixedNow) + "\n" + tail + "\n"
	want := "# Body\n\n" + tail
	if got := StripFooter(md); got != want {
		t.Errorf("StripFooter =\n%q\nwant\n%q", got, want)
	}
}

func TestToText(t *testing.T) {
	doc := sampleDoc()
	txt := ToText(doc, score.Calculate(doc))
	for _, w := range []string{"Foo\n===\n", "[stack]", "frontend:", "None (ignored)", "who:", "- (missing)", "Score: 38% (8/21 slots, LOW)"} {
		if !strings.Contains(txt, w) {
			t.Errorf("missing %q in:\n%s", w, txt)
		}
	}
}
