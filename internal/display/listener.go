// Package display renders mirror events and score results for the terminal.
package display

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/starford/faf/internal/events"
)

// ColorEnabled reports whether f is a terminal that should get colour.
func ColorEnabled(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Listener prints one line per mirror event.
type Listener struct {
	mu      sync.Mutex
	w       io.Writer
	verbose bool

	ok, warn, fail, info *color.Color
}

// NewListener creates a listener writing to w. Progress events are only
// printed when verbose is set.
func NewListener(w io.Writer, useColor, verbose bool) *Listener {
	l := &Listener{
		w:       w,
		verbose: verbose,
		ok:      color.New(color.FgGreen),
		warn:    color.New(color.FgYellow),
		fail:    color.New(color.FgRed, color.Bold),
		info:    color.New(color.FgCyan),
	}
	for _, c := range []*color.Color{l.ok, l.warn, l.fail, l.info} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return l
}

// Attach subscribes the listener to every event on bus.
func (l *Listener) Attach(bus *events.Bus) events.Subscription {
	return bus.Subscribe(events.All, l.Handle)
}

// Handle renders ev. Unknown event types are ignored.
func (l *Listener) Handle(ev events.Event) {
	line := l.format(ev)
	if line == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, line)
}

func (l *Listener) format(ev events.Event) string {
	switch ev.Type {
	case events.SyncStart:
		if !l.verbose {
			return ""
		}
		return l.status(l.info, "▸", "sync started")
	case events.SyncProgress:
		if !l.verbose {
			return ""
		}
		if file, ok := ev.Data["file"].(string); ok && ev.Data["step"] == "write" {
			if skipped, _ := ev.Data["skipped"].(bool); skipped {
				return l.status(l.info, "·", file+" unchanged")
			}
			return l.status(l.ok, "✓", "wrote "+file)
		}
		return l.status(l.info, "·", fmt.Sprint(ev.Data["step"]))
	case events.SyncConflict:
		return l.status(l.warn, "⚠", "conflict: "+fmt.Sprint(ev.Data["note"]))
	case events.SyncComplete:
		dir := fmt.Sprint(ev.Data["direction"])
		if dir == "none" {
			return l.status(l.ok, "✓", "already in sync")
		}
		if dry, _ := ev.Data["dry_run"].(bool); dry {
			return l.status(l.info, "▸", "would sync "+dir)
		}
		return l.status(l.ok, "✓", "synced "+dir+filesSuffix(ev.Data["files_changed"]))
	case events.SyncError:
		return l.status(l.fail, "✗", "sync failed: "+fmt.Sprint(ev.Data["error"]))
	case events.IntegrityDegraded:
		return l.status(l.warn, "⚠", "integrity degraded"+notesSuffix(ev.Data["notes"]))
	case events.IntegrityFailed:
		if _, ok := ev.Data["notes"]; !ok {
			return ""
		}
		return l.status(l.fail, "✗", "integrity failed"+notesSuffix(ev.Data["notes"]))
	case events.ScoreCalculated:
		if !l.verbose {
			return ""
		}
		return l.status(l.info, "·", fmt.Sprintf("score %v%%", ev.Data["score"]))
	default:
		return ""
	}
}

func (l *Listener) status(c *color.Color, symbol, message string) string {
	return fmt.Sprintf("%s %s", c.Sprint(symbol), message)
}

func filesSuffix(v any) string {
	files, ok := v.([]string)
	if !ok || len(files) == 0 {
		return ""
	}
	return " (" + strings.Join(files, ", ") + ")"
}

func notesSuffix(v any) string {
	notes, ok := v.([]string)
	if !ok || len(notes) == 0 {
		return ""
	}
	return ": " + strings.Join(notes, "; ")
}
