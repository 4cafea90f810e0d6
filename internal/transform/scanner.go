package transform

import (
	"regexp"
	"strings"
	"time"

	"github.com/starford/faf/internal/document"
)

// Field names produced by Scan.
const (
	FieldTitle           = "title"
	FieldCurrentPosition = "current_position"
	FieldDescription     = "description"
	FieldStack           = "stack"
	FieldMainLanguage    = "main_language"
	FieldWhatBuilding    = "what_building"
)

// Section headings the scanner reads from.
const (
	sectionCoreContext = "Core Context"
	sectionKeyFiles    = "Key Files"
)

var (
	labeledRe  = regexp.MustCompile(`^\s*(?:[-*]\s+)?\*\*([^*]+?):\*\*\s*(.*?)\s*$`)
	numberedRe = regexp.MustCompile(`^\s*\d+[.)]\s+(.+?)\s*$`)
)

// labelRule binds a bold "**Label:**" line to a field. When section is set the
// rule only fires inside that "## " section.
type labelRule struct {
	label   string
	field   string
	section string
}

var labelRules = []labelRule{
	{label: "Current Position", field: FieldCurrentPosition},
	{label: "Description", field: FieldDescription, section: sectionCoreContext},
	{label: "Stack", field: FieldStack, section: sectionCoreContext},
	{label: "Main Language", field: FieldMainLanguage, section: sectionCoreContext},
	{label: "What Building", field: FieldWhatBuilding, section: sectionCoreContext},
}

// Extracted holds what Scan recognised. Fields not seen are absent from Fields.
type Extracted struct {
	Fields   map[string]string
	KeyFiles []string
}

// Scan walks markdown line by line, tracking the current "## " section and
// skipping fenced code blocks and the sync footer. The first "# " heading is
// the title; the first match wins for every labelled field.
func Scan(markdown string) Extracted {
	out := Extracted{Fields: map[string]string{}}
	section := ""
	inFence := false

	for _, line := range strings.Split(StripFooter(markdown), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}

		switch {
		case strings.HasPrefix(trimmed, "# "):
			if _, ok := out.Fields[FieldTitle]; !ok {
				if title := cleanTitle(trimmed[2:]); title != "" {
					out.Fields[FieldTitle] = title
				}
			}
			section = ""
			continue
		case strings.HasPrefix(trimmed, "## "):
			section = strings.TrimSpace(trimmed[3:])
			continue
		}

		if section == sectionKeyFiles {
			if m := numberedRe.FindStringSubmatch(line); m != nil {
				if f := strings.Trim(m[1], "`"); f != "" {
					out.KeyFiles = append(out.KeyFiles, f)
				}
			}
			continue
		}

		m := labeledRe.FindStringSubmatch(line)
		if m == nil || m[2] == "" {
			continue
		}
		for _, r := range labelRules {
			if !strings.EqualFold(m[1], r.label) || (r.section != "" && r.section != section) {
				continue
			}
			if _, seen := out.Fields[r.field]; !seen {
				out.Fields[r.field] = m[2]
			}
		}
	}
	return out
}

// cleanTitle drops the "CLAUDE.md - " prefix the renderer writes.
func cleanTitle(s string) string {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "CLAUDE.md"); ok {
		s = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(rest), "-:|"))
	}
	if s == untitled {
		return ""
	}
	return s
}

// FromReadable merges the recognised fields of markdown into a copy of
// existing. A field is written only when its scanned value differs from what
// ToReadable renders for existing, so lines the user did not touch keep
// following the slots. Unrecognised fields and sections are untouched.
func FromReadable(markdown string, existing document.Document, now time.Time) document.Document {
	out := existing.Clone()
	ex := Scan(markdown)

	if v, ok := ex.Fields[FieldTitle]; ok && v != slotText(existing, "project.name") {
		out.Set("project.name", v)
	}

	// Both lines render project.goal; the one that differs is the edit.
	goal := slotText(existing, "project.goal")
	for _, f := range []string{FieldDescription, FieldCurrentPosition} {
		if v, ok := ex.Fields[f]; ok && v != goal {
			out.Set("project.goal", v)
			break
		}
	}

	if v, ok := ex.Fields[FieldMainLanguage]; ok && v != slotText(existing, "project.main_language") {
		out.Set("project.main_language", v)
	}
	if v, ok := ex.Fields[FieldStack]; ok {
		mergeOverride(out, "tech_stack", v, stackSummary(existing), slotStack(existing))
	}
	if v, ok := ex.Fields[FieldWhatBuilding]; ok {
		mergeOverride(out, "what_building", v, whatBuilding(existing), slotText(existing, "human_context.what"))
	}
	if len(ex.KeyFiles) > 0 {
		files := make([]any, len(ex.KeyFiles))
		for i, f := range ex.KeyFiles {
			files[i] = f
		}
		out.Set("instant_context.key_files", files)
	}

	out.Set("metadata.last_sync", now.UTC().Format(time.RFC3339))
	out.Set("metadata.sync_active", true)
	return out
}

// mergeOverride stores scanned under instant_context.key when the user changed
// the rendered line. A line edited back to the slot-derived text drops the
// override so the slots drive the mirror again.
func mergeOverride(doc document.Document, key, scanned, rendered, fromSlots string) {
	switch {
	case scanned == rendered:
	case scanned == fromSlots:
		if ic := doc.Section("instant_context"); ic != nil {
			delete(ic, key)
		}
	default:
		doc.Set("instant_context."+key, scanned)
	}
}
