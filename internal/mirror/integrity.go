package mirror

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/starford/faf/internal/checksum"
	"github.com/starford/faf/internal/document"
	"github.com/starford/faf/internal/score"
	"github.com/starford/faf/internal/storage"
	"github.com/starford/faf/internal/transform"
)

// Integrity classifies the file pair after a sync.
type Integrity string

const (
	IntegrityPerfect  Integrity = "perfect"
	IntegrityDegraded Integrity = "degraded"
	IntegrityFailed   Integrity = "failed"
	// IntegritySkipped is reported when there was nothing to verify: no
	// files exist, or the pass was a dry run.
	IntegritySkipped Integrity = "skipped"
)

var scoreTripleRe = regexp.MustCompile(`\*\*Score:\*\*\s*(\d+)%\s*\((\d+)/(\d+) slots\)`)

// ScoreTriple is the score line found in a readable file.
type ScoreTriple struct {
	Score    int `json:"score"`
	Complete int `json:"complete"`
	Total    int `json:"total"`
}

// extractTriple returns the first score line of md, if any.
func extractTriple(md string) (ScoreTriple, bool) {
	m := scoreTripleRe.FindStringSubmatch(md)
	if m == nil {
		return ScoreTriple{}, false
	}
	s, _ := strconv.Atoi(m[1])
	c, _ := strconv.Atoi(m[2])
	t, _ := strconv.Atoi(m[3])
	return ScoreTriple{Score: s, Complete: c, Total: t}, true
}

// report is the outcome of verify.
type report struct {
	integrity Integrity
	notes     []string
	triple    *ScoreTriple
	sums      SyncState
}

// verify re-reads both files and checks that they parse and agree.
func verify(store storage.Provider, structuredPath, readablePath string, opts []score.Option) report {
	rawS, err := store.Read(structuredPath)
	if err != nil {
		return report{integrity: IntegrityFailed, notes: []string{fmt.Sprintf("read %s: %v", structuredPath, err)}}
	}
	doc, err := document.Parse(rawS)
	if err != nil {
		return report{integrity: IntegrityFailed, notes: []string{fmt.Sprintf("parse %s: %v", structuredPath, err)}}
	}
	rawR, err := store.Read(readablePath)
	if err != nil {
		return report{integrity: IntegrityFailed, notes: []string{fmt.Sprintf("read %s: %v", readablePath, err)}}
	}
	md := string(rawR)

	rep := report{
		integrity: IntegrityPerfect,
		sums:      SyncState{StructuredSum: checksum.Sum(rawS), ReadableSum: checksum.Sum(rawR)},
	}
	if doc.GetString("project.name") == "" {
		rep.notes = append(rep.notes, "structured file has no project.name")
	}
	if !transform.HasFooter(md) {
		rep.notes = append(rep.notes, "readable file has no sync footer")
	}
	if t, ok := extractTriple(md); ok {
		rep.triple = &t
		res := score.Calculate(doc, opts...)
		want := ScoreTriple{Score: res.TotalScore, Complete: res.FilledCount + res.IgnoredCount, Total: res.TotalSlots}
		if t != want {
			rep.notes = append(rep.notes, fmt.Sprintf("readable score %d%% (%d/%d) differs from structured %d%% (%d/%d)",
				t.Score, t.Complete, t.Total, want.Score, want.Complete, want.Total))
		}
	}
	if len(rep.notes) > 0 {
		rep.integrity = IntegrityDegraded
	}
	return rep
}
