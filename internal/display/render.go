package display

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/starford/faf/internal/apperr"
	"github.com/starford/faf/internal/history"
	"github.com/starford/faf/internal/lint"
	"github.com/starford/faf/internal/mirror"
	"github.com/starford/faf/internal/score"
)

const barWidth = 20

var titleCaser = cases.Title(language.English)

// SectionTitle turns a section key such as "human_context" into "Human Context".
func SectionTitle(name string) string {
	return titleCaser.String(strings.ReplaceAll(name, "_", " "))
}

func scoreColor(pct int) lipgloss.Color {
	switch {
	case pct >= 85:
		return lipgloss.Color("10")
	case pct >= 55:
		return lipgloss.Color("11")
	default:
		return lipgloss.Color("9")
	}
}

// Bar draws a fixed-width progress bar for pct.
func Bar(pct int) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	n := pct * barWidth / 100
	return strings.Repeat("█", n) + strings.Repeat("░", barWidth-n)
}

// RenderScore draws the score card. With details set, the per-section
// breakdown and missing slots are included.
func RenderScore(res score.Result, details bool) string {
	head := lipgloss.NewStyle().Bold(true).Foreground(scoreColor(res.TotalScore))
	dim := lipgloss.NewStyle().Faint(true)

	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", head.Render(fmt.Sprintf("%d%%", res.TotalScore)), Bar(res.TotalScore))
	fmt.Fprintf(&b, "%d/%d slots  (%d filled, %d ignored, %d missing)  %s\n",
		res.FilledCount+res.IgnoredCount, res.TotalSlots,
		res.FilledCount, res.IgnoredCount, res.MissingCount, res.Confidence)
	if res.Embedded {
		b.WriteString(dim.Render("embedded score from "+res.ScoringSystem) + "\n")
	}

	if details && len(res.Sections) > 0 {
		b.WriteString("\n")
		for _, sec := range res.Sections {
			fmt.Fprintf(&b, "%-14s %s %3d%%  %d/%d\n",
				SectionTitle(sec.Name), Bar(sec.Percentage), sec.Percentage, sec.Filled+sec.Ignored, sec.Total)
			if len(sec.Missing) > 0 {
				b.WriteString(dim.Render("  missing: "+strings.Join(sec.Missing, ", ")) + "\n")
			}
		}
	}

	if len(res.Suggestions) > 0 {
		b.WriteString("\nNext:\n")
		for _, s := range res.Suggestions {
			fmt.Fprintf(&b, "  • %s\n", s.Message)
		}
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1)
	return box.Render(strings.TrimRight(b.String(), "\n"))
}

// RenderSync summarises a sync result.
func RenderSync(res mirror.Result) string {
	var b strings.Builder
	status := "ok"
	if !res.Success {
		status = "failed"
	}
	fmt.Fprintf(&b, "sync %s  direction=%s  integrity=%s\n", status, res.Direction, res.Integrity)
	switch {
	case res.DryRun && len(res.Planned) > 0:
		fmt.Fprintf(&b, "would write: %s\n", strings.Join(res.Planned, ", "))
	case len(res.FilesChanged) > 0:
		fmt.Fprintf(&b, "changed: %s\n", strings.Join(res.FilesChanged, ", "))
	}
	if res.Preserved {
		b.WriteString("custom Markdown content preserved\n")
	}
	if res.Conflict != "" {
		fmt.Fprintf(&b, "conflict: %s\n", res.Conflict)
	}
	for _, n := range res.IntegrityNotes {
		fmt.Fprintf(&b, "note: %s\n", n)
	}
	if res.Error != "" {
		fmt.Fprintf(&b, "error: %s\n", res.Error)
	}
	return b.String()
}

// RenderIssues lists validation issues one per line.
func RenderIssues(issues []apperr.Issue) string {
	var b strings.Builder
	for _, is := range issues {
		fmt.Fprintf(&b, "  ✗ %s\n", is)
	}
	return b.String()
}

// RenderFindings lists lint findings one per line.
func RenderFindings(path string, fs []lint.Finding) string {
	var b strings.Builder
	for _, f := range fs {
		fix := ""
		if f.Fixable {
			fix = " (fixable)"
		}
		if f.Line > 0 {
			fmt.Fprintf(&b, "%s:%d: %s: %s%s\n", path, f.Line, f.Rule, f.Message, fix)
		} else {
			fmt.Fprintf(&b, "%s: %s: %s%s\n", path, f.Rule, f.Message, fix)
		}
	}
	return b.String()
}

// RenderHistory prints score history as a small table, newest first.
func RenderHistory(entries []history.Entry) string {
	if len(entries) == 0 {
		return "no score history yet\n"
	}
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s  %3d%%  %s  %s\n",
			e.CreatedAt.Local().Format("2006-01-02 15:04"), e.Score, Bar(e.Score), e.Confidence)
	}
	return b.String()
}
