package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/faf/internal/mirror"
)

var _ mirror.StateStore = (*DB)(nil)

// LoadState returns the last known-good fingerprint stored for key.
func (db *DB) LoadState(ctx context.Context, key string) (mirror.SyncState, bool, error) {
	var st mirror.SyncState
	err := db.conn.QueryRowContext(ctx,
		`SELECT structured_sum, readable_sum, synced_at FROM sync_state WHERE root = ?`, key,
	).Scan(&st.StructuredSum, &st.ReadableSum, &st.SyncedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return mirror.SyncState{}, false, nil
	}
	if err != nil {
		return mirror.SyncState{}, false, fmt.Errorf("history: load state: %w", err)
	}
	return st, true, nil
}

// SaveState stores st as the known-good fingerprint for key.
func (db *DB) SaveState(ctx context.Context, key string, st mirror.SyncState) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO sync_state (root, structured_sum, readable_sum, synced_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(root) DO UPDATE SET
			structured_sum = excluded.structured_sum,
			readable_sum   = excluded.readable_sum,
			synced_at      = excluded.synced_at
	`, key, st.StructuredSum, st.ReadableSum, st.SyncedAt.UTC())
	if err != nil {
		return fmt.Errorf("history: save state: %w", err)
	}
	return nil
}
