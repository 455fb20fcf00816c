package remotestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/anbuneel/zenote-sub001/internal/dbx"
)

// lookupMutation decodes the recorded response of mutationID into dest and
// reports whether there was one. An empty mutation id is never recorded.
func lookupMutation(ctx context.Context, tx dbx.DBTX, userID, mutationID string, dest any) (bool, error) {
	if mutationID == "" {
		return false, nil
	}
	var raw []byte
	err := tx.QueryRowContext(ctx,
		`SELECT response FROM applied_mutations WHERE user_id = $1 AND client_mutation_id = $2`,
		userID, mutationID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup mutation %s: %w", mutationID, err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, dest); err != nil {
			return false, fmt.Errorf("decode recorded response of %s: %w", mutationID, err)
		}
	}
	return true, nil
}

func recordMutation(ctx context.Context, tx dbx.DBTX, userID, mutationID string, response any, now time.Time) error {
	if mutationID == "" {
		return nil
	}
	raw, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("encode response of %s: %w", mutationID, err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO applied_mutations (client_mutation_id, user_id, response, created_at) VALUES ($1, $2, $3, $4)`,
		mutationID, userID, string(raw), now.UTC())
	if err != nil {
		return fmt.Errorf("record mutation %s: %w", mutationID, err)
	}
	return nil
}

// PurgeLedger drops ledger entries older than cutoff. A mutation replayed
// after its entry is gone is applied again.
func (s *PostgresStore) PurgeLedger(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM applied_mutations WHERE created_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("purge mutation ledger: %w", err)
	}
	return res.RowsAffected()
}
