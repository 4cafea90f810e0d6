// Package transform converts a .faf document to and from its human-readable
// Markdown mirror. The conversion is lossy: only the fields listed
// in scanner.go survive the trip back, and everything else in the existing
// document is left alone.
package transform

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/starford/faf/internal/document"
	"github.com/starford/faf/internal/score"
	"github.com/starford/faf/internal/slots"
)

// FooterMarker identifies a generated sync footer.
const FooterMarker = "BI-SYNC ACTIVE"

const untitled = "Untitled Project"

// ToReadable renders doc as the Markdown mirror. now is the only impure
// input; it stamps the footer and the "Last Updated" line.
func ToReadable(doc document.Document, res score.Result, now time.Time) string {
	var b strings.Builder

	name := projectName(doc)
	fmt.Fprintf(&b, "# CLAUDE.md - %s\n\n", name)
	fmt.Fprintf(&b, "## STATE: %s\n\n", stateBanner(doc, res))
	if goal := slotText(doc, "project.goal"); goal != "" {
		fmt.Fprintf(&b, "**Current Position:** %s\n\n", goal)
	}

	b.WriteString("## Core Context\n\n")
	fmt.Fprintf(&b, "- **Project:** %s\n", name)
	writeBullet(&b, "Description", slotText(doc, "project.goal"))
	writeBullet(&b, "Main Language", slotText(doc, "project.main_language"))
	writeBullet(&b, "What Building", whatBuilding(doc))
	writeBullet(&b, "Stack", stackSummary(doc))
	b.WriteString("\n")

	if files := keyFiles(doc); len(files) > 0 {
		b.WriteString("## Key Files\n\n")
		for i, f := range files {
			fmt.Fprintf(&b, "%d. %s\n", i+1, f)
		}
		b.WriteString("\n")
	}

	if instr := aiInstructions(doc); instr != "" {
		b.WriteString("## AI Instructions\n\n")
		b.WriteString(instr)
		b.WriteString("\n\n")
	}

	b.WriteString("## Context Quality\n\n")
	fmt.Fprintf(&b, "- **Assessment:** %s\n", res.Confidence)
	fmt.Fprintf(&b, "- **Score:** %d%% (%d/%d slots)\n", res.TotalScore, completeSlots(res), res.TotalSlots)
	fmt.Fprintf(&b, "- **Last Updated:** %s\n\n", now.UTC().Format(time.DateOnly))

	b.WriteString(Footer(now))
	return b.String()
}

// Footer renders the sync-status block appended to every mirror.
func Footer(now time.Time) string {
	return "---\n\n" +
		"*STATUS: " + FooterMarker + " - synchronized with .faf*\n" +
		"*Last Sync: " + now.UTC().Format(time.RFC3339) + "*\n" +
		"*Sync Status: zero slippage*\n"
}

// HasFooter reports whether md carries a generated sync footer.
func HasFooter(md string) bool {
	return strings.Contains(md, FooterMarker)
}

// footerEnd is the last line of a generated footer.
const footerEnd = "*Sync Status:"

// StripFooter removes the last sync footer: the "---" rule before the marker
// through the "*Sync Status:*" line. Text after the footer is kept and joined
// to the text before it. Trailing blank lines are trimmed.
func StripFooter(md string) string {
	lines := strings.Split(md, "\n")
	marker := -1
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.Contains(lines[i], FooterMarker) {
			marker = i
			break
		}
	}
	if marker < 0 {
		return strings.TrimRight(md, " \t\n")
	}

	start := marker
	j := marker - 1
	for j >= 0 && strings.TrimSpace(lines[j]) == "" {
		j--
	}
	if j >= 0 && strings.TrimSpace(lines[j]) == "---" {
		start = j
	}

	end := marker
	for k := marker + 1; k < len(lines) && k <= marker+3; k++ {
		l := strings.TrimSpace(lines[k])
		if !strings.HasPrefix(l, "*") {
			break
		}
		end = k
		if strings.HasPrefix(l, footerEnd) {
			break
		}
	}

	before := strings.TrimRight(strings.Join(lines[:start], "\n"), " \t\n")
	after := strings.Trim(strings.Join(lines[end+1:], "\n"), "\n")
	after = strings.TrimRight(after, " \t\n")
	switch {
	case after == "":
		return before
	case before == "":
		return after
	default:
		return before + "\n\n" + after
	}
}

// completeSlots is the numerator of the score: filled plus explicitly ignored.
func completeSlots(res score.Result) int {
	return res.FilledCount + res.IgnoredCount
}

func projectName(doc document.Document) string {
	if name := slotText(doc, "project.name"); name != "" {
		return name
	}
	return untitled
}

// slotText returns the string form of a value that is not missing.
func slotText(doc document.Document, path string) string {
	v, _ := doc.Get(path)
	if slots.Classify(v) == slots.Missing {
		return ""
	}
	return strings.TrimSpace(doc.GetString(path))
}

func stateBanner(doc document.Document, res score.Result) string {
	if s := slotText(doc, "state.status"); s != "" {
		return strings.ToUpper(s)
	}
	if res.TotalScore >= 70 {
		return "OPERATIONAL"
	}
	return "BUILDING"
}

func whatBuilding(doc document.Document) string {
	if s := slotText(doc, "instant_context.what_building"); s != "" {
		return s
	}
	return slotText(doc, "human_context.what")
}

// stackSummary prefers an explicit tech_stack line, then the stack slots.
func stackSummary(doc document.Document) string {
	if s := slotText(doc, "instant_context.tech_stack"); s != "" {
		return s
	}
	return slotStack(doc)
}

// slotStack joins the filled stack slots in declaration order.
func slotStack(doc document.Document) string {
	var parts []string
	for _, sec := range slots.Sections() {
		if sec.Name != slots.SectionStack {
			continue
		}
		for _, slot := range sec.Slots {
			v, _ := doc.Get(slot.Path())
			if slots.Classify(v) == slots.Filled {
				parts = append(parts, strings.TrimSpace(doc.GetString(slot.Path())))
			}
		}
	}
	return strings.Join(parts, " / ")
}

func keyFiles(doc document.Document) []string {
	v, ok := doc.Get("instant_context.key_files")
	if !ok {
		v, _ = doc.Get("key_files")
	}
	list, _ := v.([]any)
	var out []string
	for _, item := range list {
		if s := strings.TrimSpace(fmt.Sprint(item)); s != "" && item != nil {
			out = append(out, s)
		}
	}
	return out
}

func aiInstructions(doc document.Document) string {
	switch t := doc["ai_instructions"].(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		var lines []string
		for _, item := range t {
			lines = append(lines, "- "+fmt.Sprint(item))
		}
		return strings.Join(lines, "\n")
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var lines []string
		for _, k := range keys {
			lines = append(lines, fmt.Sprintf("- **%s:** %s", k, inline(t[k])))
		}
		return strings.Join(lines, "\n")
	default:
		return ""
	}
}

func inline(v any) string {
	if list, ok := v.([]any); ok {
		parts := make([]string, len(list))
		for i, item := range list {
			parts[i] = fmt.Sprint(item)
		}
		return strings.Join(parts, ", ")
	}
	return fmt.Sprint(v)
}

func writeBullet(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "- **%s:** %s\n", label, value)
}
