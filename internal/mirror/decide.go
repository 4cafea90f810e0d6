package mirror

import (
	"fmt"

	"github.com/starford/faf/internal/checksum"
	"github.com/starford/faf/internal/models"
)

// Direction is the source-of-truth choice for one sync pass.
type Direction string

const (
	DirectionNone        Direction = "none"
	StructuredToReadable Direction = "structured→readable"
	ReadableToStructured Direction = "readable→structured"
)

// ConflictStrategy resolves a pass where both files changed since the last
// known-good sync.
type ConflictStrategy string

const (
	StructuredWins ConflictStrategy = "structured-wins"
	ReadableWins   ConflictStrategy = "readable-wins"
	NewestWins     ConflictStrategy = "newest"
)

// ParseConflictStrategy validates a strategy name; empty means StructuredWins.
func ParseConflictStrategy(s string) (ConflictStrategy, error) {
	switch ConflictStrategy(s) {
	case "":
		return StructuredWins, nil
	case StructuredWins, ReadableWins, NewestWins:
		return ConflictStrategy(s), nil
	default:
		return "", fmt.Errorf("mirror: unknown conflict strategy %q", s)
	}
}

// side is the analysed state of one file of the pair.
type side struct {
	stat    models.FileStat
	content []byte
}

func (s side) sum() string {
	if !s.stat.Exists {
		return ""
	}
	return checksum.Sum(s.content)
}

// decision is the outcome of comparing both sides.
type decision struct {
	direction Direction
	conflict  string
}

// decide picks a direction. With a known previous state, content checksums
// decide which side changed; without one, modification times do.
func decide(structured, readable side, prev SyncState, known bool, strategy ConflictStrategy) decision {
	switch {
	case !structured.stat.Exists && !readable.stat.Exists:
		return decision{direction: DirectionNone}
	case structured.stat.Exists && !readable.stat.Exists:
		return decision{direction: StructuredToReadable}
	case !structured.stat.Exists && readable.stat.Exists:
		return decision{direction: ReadableToStructured}
	}

	if known {
		sChanged := structured.sum() != prev.StructuredSum
		rChanged := readable.sum() != prev.ReadableSum
		switch {
		case !sChanged && !rChanged:
			return decision{direction: DirectionNone}
		case sChanged && !rChanged:
			return decision{direction: StructuredToReadable}
		case !sChanged && rChanged:
			return decision{direction: ReadableToStructured}
		}
		d := resolveConflict(structured, readable, strategy)
		d.conflict = fmt.Sprintf("both files changed since last sync at %s; %s applied, edits in the %s file were overwritten",
			prev.SyncedAt.UTC().Format("2006-01-02T15:04:05Z"), strategy, losingSide(d.direction))
		return d
	}

	sm, rm := structured.stat.ModTime, readable.stat.ModTime
	switch {
	case sm.After(rm):
		return decision{direction: StructuredToReadable}
	case rm.After(sm):
		return decision{direction: ReadableToStructured}
	default:
		return decision{direction: DirectionNone}
	}
}

func resolveConflict(structured, readable side, strategy ConflictStrategy) decision {
	switch strategy {
	case ReadableWins:
		return decision{direction: ReadableToStructured}
	case NewestWins:
		if readable.stat.ModTime.After(structured.stat.ModTime) {
			return decision{direction: ReadableToStructured}
		}
		return decision{direction: StructuredToReadable}
	default:
		return decision{direction: StructuredToReadable}
	}
}

func losingSide(d Direction) string {
	if d == ReadableToStructured {
		return "structured"
	}
	return "readable"
}
