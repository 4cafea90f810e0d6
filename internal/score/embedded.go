package score

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/starford/faf/internal/document"
)

// scoringSystemRe accepts versioned tags such as "faf-engine/v2".
var scoringSystemRe = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*/v[0-9]+$`)

type embedded struct {
	system string
	score  int
	filled int
	total  int
}

// readEmbedded extracts a trusted prior score from the scores section. Every
// field must be present and consistent, otherwise ok is false.
func readEmbedded(doc document.Document) (embedded, bool) {
	scores := doc.Section("scores")
	if scores == nil {
		return embedded{}, false
	}
	system, _ := scores["scoring_system"].(string)
	system = strings.TrimSpace(system)
	if !scoringSystemRe.MatchString(system) {
		return embedded{}, false
	}
	score, ok := percentValue(scores["faf_score"])
	if !ok || score < 0 || score > 100 {
		return embedded{}, false
	}
	filled, ok := intValue(scores["filled_slots"])
	if !ok {
		return embedded{}, false
	}
	total, ok := intValue(scores["total_slots"])
	if !ok || total <= 0 || filled < 0 || filled > total {
		return embedded{}, false
	}
	return embedded{system: system, score: score, filled: filled, total: total}, true
}

func intValue(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case uint64:
		return int(t), true
	case float64:
		if t != math.Trunc(t) {
			return 0, false
		}
		return int(t), true
	default:
		return 0, false
	}
}

// percentValue accepts 85, 85.0 or "85%".
func percentValue(v any) (int, bool) {
	if s, ok := v.(string); ok {
		s = strings.TrimSuffix(strings.TrimSpace(s), "%")
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return intValue(v)
}
