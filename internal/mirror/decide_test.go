package mirror

import (
	"testing"
	"time"

	"github.com/starford/faf/internal/checksum"
	"github.com/starford/faf/internal/models"
)

func mkSide(exists bool, content string, mod time.Time) side {
	return side{stat: models.FileStat{Exists: exists, ModTime: mod}, content: []byte(content)}
}

func TestDecide_ModTimes(t *testing.T) {
	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Minute)
	tests := []struct {
		name       string
		structured side
		readable   side
		want       Direction
	}{
		{"neither", side{}, side{}, DirectionNone},
		{"only structured", mkSide(true, "a", older), side{}, StructuredToReadable},
		{"only readable", side{}, mkSide(true, "b", older), ReadableToStructured},
		{"structured newer", mkSide(true, "a", newer), mkSide(true, "b", older), StructuredToReadable},
		{"readable newer", mkSide(true, "a", older), mkSide(true, "b", newer), ReadableToStructured},
		{"equal", mkSide(true, "a", older), mkSide(true, "b", older), DirectionNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decide(tt.structured, tt.readable, SyncState{}, false, StructuredWins)
			if got.direction != tt.want {
				t.Errorf("direction = %q, want %q", got.direction, tt.want)
			}
			if got.conflict != "" {
				t.Errorf("unexpected conflict %q", got.conflict)
			}
		})
	}
}

func TestDecide_KnownState(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	prev := SyncState{StructuredSum: checksum.Sum([]byte("s")), ReadableSum: checksum.Sum([]byte("r")), SyncedAt: t0}

	// Mod times deliberately disagree with content changes.
	same := decide(mkSide(true, "s", t0.Add(time.Hour)), mkSide(true, "r", t0), prev, true, StructuredWins)
	if same.direction != DirectionNone {
		t.Errorf("unchanged pair: %q", same.direction)
	}
	r := decide(mkSide(true, "s", t0.Add(time.Hour)), mkSide(true, "r2", t0), prev, true, StructuredWins)
	if r.direction != ReadableToStructured {
		t.Errorf("readable changed: %q", r.direction)
	}
	s := decide(mkSide(true, "s2", t0), mkSide(true, "r", t0.Add(time.Hour)), prev, true, StructuredWins)
	if s.direction != StructuredToReadable {
		t.Errorf("structured changed: %q", s.direction)
	}
}

func TestDecide_Conflict(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	prev := SyncState{StructuredSum: checksum.Sum([]byte("s")), ReadableSum: checksum.Sum([]byte("r")), SyncedAt: t0}
	structured := mkSide(true, "s2", t0.Add(time.Minute))
	readable := mkSide(true, "r2", t0.Add(time.Hour))

	tests := []struct {
		strategy ConflictStrategy
		want     Direction
	}{
		{StructuredWins, StructuredToReadable},
		{ReadableWins, ReadableToStructured},
		{NewestWins, ReadableToStructured},
	}
	for _, tt := range tests {
		got := decide(structured, readable, prev, true, tt.strategy)
		if got.direction != tt.want {
			t.Errorf("%s: direction = %q, want %q", tt.strategy, got.direction, tt.want)
		}
		if got.conflict == "" {
			t.Errorf("%s: expected a conflict note", tt.strategy)
		}
	}
}

func TestParseConflictStrategy(t *testing.T) {
	if s, err := ParseConflictStrategy(""); err != nil || s != StructuredWins {
		t.Errorf("empty: %q %v", s, err)
	}
	if s, err := ParseConflictStrategy("newest"); err != nil || s != NewestWins {
		t.Errorf("newest: %q %v", s, err)
	}
	if _, err := ParseConflictStrategy("coin-flip"); err == nil {
		t.Error("expected error for unknown strategy")
	}
}

func TestHasCustomContent(t *testing.T) {
	tests := []struct {
		md   string
		want bool
	}{
		{"# Title\n\n- **Project:** x\n", false},
		{"| a | b |\n", true},
		{"text\n```go\nx\n```\n", true},
		{"## Notes\nremember\n", true},
	}
	for _, tt := range tests {
		if got := hasCustomContent(tt.md); got != tt.want {
			t.Errorf("hasCustomContent(%q) = %v", tt.md, got)
		}
	}
}

func TestExtractTriple(t *testing.T) {
	tr, ok := extractTriple("- **Score:** 38% (8/21 slots)\n")
	if !ok || tr != (ScoreTriple{Score: 38, Complete: 8, Total: 21}) {
		t.Errorf("got %+v %v", tr, ok)
	}
	if _, ok := extractTriple("no score here"); ok {
		t.Error("expected no triple")
	}
}
