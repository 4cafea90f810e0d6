package history

import (
	"context"
	"fmt"
	"time"

	"github.com/starford/faf/internal/score"
)

// Entry is one recorded score calculation.
type Entry struct {
	ID         int64     `json:"id"`
	Root       string    `json:"root"`
	Score      int       `json:"score"`
	Filled     int       `json:"filled"`
	Ignored    int       `json:"ignored"`
	Missing    int       `json:"missing"`
	Confidence string    `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
}

// Record appends a score result for root.
func (db *DB) Record(ctx context.Context, root string, res score.Result, at time.Time) (Entry, error) {
	e := Entry{
		Root:       root,
		Score:      res.TotalScore,
		Filled:     res.FilledCount,
		Ignored:    res.IgnoredCount,
		Missing:    res.MissingCount,
		Confidence: res.Confidence,
		CreatedAt:  at.UTC(),
	}
	r, err := db.conn.ExecContext(ctx, `
		INSERT INTO scores (root, score, filled, ignored, missing, confidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.Root, e.Score, e.Filled, e.Ignored, e.Missing, e.Confidence, e.CreatedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("history: record: %w", err)
	}
	e.ID, _ = r.LastInsertId()
	return e, nil
}

// Recent returns up to limit entries for root, newest first.
func (db *DB) Recent(ctx context.Context, root string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, root, score, filled, ignored, missing, confidence, created_at
		FROM scores WHERE root = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, root, limit)
	if err != nil {
		return nil, fmt.Errorf("history: recent: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Root, &e.Score, &e.Filled, &e.Ignored, &e.Missing, &e.Confidence, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
