// Package score computes the slot-based completeness score of a .faf document.
package score

import (
	"math"
	"time"

	"github.com/starford/faf/internal/document"
	"github.com/starford/faf/internal/slots"
)

// Confidence labels derived from the total score.
const (
	ConfidenceVeryHigh = "VERY_HIGH"
	ConfidenceHigh     = "HIGH"
	ConfidenceGood     = "GOOD"
	ConfidenceModerate = "MODERATE"
	ConfidenceLow      = "LOW"
)

// DefaultMaxSuggestions caps the suggestion list when no option is given.
const DefaultMaxSuggestions = 5

// SectionScore is the breakdown for one slot section.
type SectionScore struct {
	Name       string   `json:"name"`
	Filled     int      `json:"filled"`
	Ignored    int      `json:"ignored"`
	Total      int      `json:"total"`
	Percentage int      `json:"percentage"`
	Missing    []string `json:"missing"`
}

// Suggestion is one improvement hint. Section is set when a whole section is
// missing; Slot is set for a single missing slot.
type Suggestion struct {
	Section string `json:"section,omitempty"`
	Slot    string `json:"slot,omitempty"`
	Message string `json:"message"`
}

// Result is the outcome of Calculate.
type Result struct {
	TotalScore   int            `json:"total_score"`
	FilledCount  int            `json:"filled"`
	IgnoredCount int            `json:"ignored"`
	MissingCount int            `json:"missing"`
	TotalSlots   int            `json:"total_slots"`
	Sections     []SectionScore `json:"sections"`
	MissingSlots []string       `json:"missing_slots"`
	Suggestions  []Suggestion   `json:"suggestions"`
	Confidence   string         `json:"confidence"`

	// Embedded is true when the score was taken verbatim from a well-formed
	// marker in the document instead of being recomputed.
	Embedded      bool   `json:"embedded"`
	ScoringSystem string `json:"scoring_system,omitempty"`
}

type options struct {
	maxSuggestions int
	trustEmbedded  bool
}

// Option configures Calculate.
type Option func(*options)

// WithMaxSuggestions caps the number of suggestions. Values outside 1..21 are ignored.
func WithMaxSuggestions(n int) Option {
	return func(o *options) {
		if n >= 1 && n <= slots.Total {
			o.maxSuggestions = n
		}
	}
}

// WithoutEmbedded forces recomputation even when the document carries a
// well-formed embedded score.
func WithoutEmbedded() Option {
	return func(o *options) {
		o.trustEmbedded = false
	}
}

// Calculate scores doc. It never fails: absent or malformed sections count as
// fully missing.
func Calculate(doc document.Document, opts ...Option) Result {
	o := options{maxSuggestions: DefaultMaxSuggestions, trustEmbedded: true}
	for _, opt := range opts {
		opt(&o)
	}

	res := Result{TotalSlots: slots.Total}
	sectionMissing := make(map[string]bool)

	for _, sec := range slots.Sections() {
		ss := SectionScore{Name: sec.Name, Total: len(sec.Slots), Missing: []string{}}
		for _, slot := range sec.Slots {
			v, _ := doc.Get(slot.Path())
			switch slots.Classify(v) {
			case slots.Filled:
				ss.Filled++
			case slots.Ignored:
				ss.Ignored++
			default:
				ss.Missing = append(ss.Missing, slot.Path())
			}
		}
		ss.Percentage = percent(ss.Filled+ss.Ignored, ss.Total)
		sectionMissing[sec.Name] = len(ss.Missing) == ss.Total

		res.FilledCount += ss.Filled
		res.IgnoredCount += ss.Ignored
		res.MissingSlots = append(res.MissingSlots, ss.Missing...)
		res.Sections = append(res.Sections, ss)
	}
	if res.MissingSlots == nil {
		res.MissingSlots = []string{}
	}
	res.MissingCount = len(res.MissingSlots)
	res.TotalScore = percent(res.FilledCount+res.IgnoredCount, slots.Total)
	res.Suggestions = suggest(res.Sections, sectionMissing, o.maxSuggestions)

	if o.trustEmbedded {
		if emb, ok := readEmbedded(doc); ok {
			res.Embedded = true
			res.ScoringSystem = emb.system
			res.TotalScore = emb.score
			res.TotalSlots = emb.total
			res.FilledCount = emb.filled
			res.IgnoredCount = 0
			res.MissingCount = emb.total - emb.filled
		}
	}

	res.Confidence = ConfidenceFor(res.TotalScore)
	return res
}

// ConfidenceFor maps a 0..100 score to its qualitative label.
func ConfidenceFor(score int) string {
	switch {
	case score >= 90:
		return ConfidenceVeryHigh
	case score >= 80:
		return ConfidenceHigh
	case score >= 70:
		return ConfidenceGood
	case score >= 60:
		return ConfidenceModerate
	default:
		return ConfidenceLow
	}
}

// WriteBack returns a copy of doc whose scores section reflects res. It never
// writes a scoring_system tag, so the next Calculate recomputes.
func WriteBack(doc document.Document, res Result, now time.Time) document.Document {
	out := doc.Clone()
	scores := out.Section("scores")
	if scores == nil {
		scores = map[string]any{}
	}
	delete(scores, "scoring_system")
	scores["faf_score"] = res.TotalScore
	scores["filled_slots"] = res.FilledCount
	scores["ignored_slots"] = res.IgnoredCount
	scores["missing_slots"] = res.MissingCount
	scores["total_slots"] = res.TotalSlots
	scores["confidence"] = res.Confidence
	scores["last_calculated"] = now.UTC().Format(time.RFC3339)
	out["scores"] = scores
	return out
}

func percent(n, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(n) / float64(total) * 100))
}

func suggest(sections []SectionScore, wholeMissing map[string]bool, limit int) []Suggestion {
	out := []Suggestion{}
	for _, ss := range sections {
		if len(out) == limit {
			return out
		}
		if wholeMissing[ss.Name] {
			out = append(out, Suggestion{
				Section: ss.Name,
				Message: "add the " + ss.Name + " section",
			})
		}
	}
	for _, ss := range sections {
		if wholeMissing[ss.Name] {
			continue
		}
		for _, p := range ss.Missing {
			if len(out) == limit {
				return out
			}
			out = append(out, Suggestion{Slot: p, Message: "fill in " + p})
		}
	}
	return out
}
