package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/thatsimonsguy/tstat-bridge/internal/proxy"
)

// StartTransaction starts a new database transaction.
func StartTransaction(db *sql.DB) (*sql.Tx, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	return tx, nil
}

// CommitTransaction commits the given transaction.
func CommitTransaction(tx *sql.Tx) error {
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RollbackTransaction rolls back the given transaction.
func RollbackTransaction(tx *sql.Tx) {
	tx.Rollback()
}

// InsertSnapshot stores every reading and read failure of one cycle.
func InsertSnapshot(db *sql.DB, snap proxy.Snapshot) error {
	tx, err := StartTransaction(db)
	if err != nil {
		return err
	}

	ts := snap.Time.UnixNano()
	for _, r := range snap.Readings {
		_, err = tx.Exec(`INSERT INTO readings (time_ns, point, raw, value, unit) VALUES (?, ?, ?, ?, ?)`,
			ts, r.Point, float64(r.Raw), r.Value, r.Unit)
		if err != nil {
			RollbackTransaction(tx)
			return fmt.Errorf("insert reading %s: %w", r.Point, err)
		}
	}
	for _, f := range snap.Failures {
		_, err = tx.Exec(`INSERT INTO read_failures (time_ns, point, error) VALUES (?, ?, ?)`,
			ts, f.Point, f.Err.Error())
		if err != nil {
			RollbackTransaction(tx)
			return fmt.Errorf("insert read failure %s: %w", f.Point, err)
		}
	}

	return CommitTransaction(tx)
}

// InsertApplyResult stores one row per command entry under a fresh batch id,
// which it returns.
func InsertApplyResult(db *sql.DB, at time.Time, res proxy.ApplyResult) (string, error) {
	batchID := uuid.NewString()

	tx, err := StartTransaction(db)
	if err != nil {
		return "", err
	}

	for i, o := range res.Outcomes {
		var raw, errText any
		if o.Accepted() {
			raw = float64(o.Raw)
		} else {
			errText = o.Err.Error()
		}
		_, err = tx.Exec(`INSERT INTO commands (batch_id, applied_at, seq, point, value, raw, accepted, error) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			batchID, at.UTC().Format(time.RFC3339Nano), i, o.Point, o.Value, raw, o.Accepted(), errText)
		if err != nil {
			RollbackTransaction(tx)
			return "", fmt.Errorf("insert command outcome %s: %w", o.Point, err)
		}
	}

	if err := CommitTransaction(tx); err != nil {
		return "", err
	}
	return batchID, nil
}

// PruneBefore deletes history older than cutoff.
func PruneBefore(db *sql.DB, cutoff time.Time) (int64, error) {
	tx, err := StartTransaction(db)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, table := range []string{"readings", "read_failures"} {
		res, err := tx.Exec(fmt.Sprintf(`DELETE FROM %s WHERE time_ns < ?`, table), cutoff.UnixNano())
		if err != nil {
			RollbackTransaction(tx)
			return 0, fmt.Errorf("prune %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}

	res, err := tx.Exec(`DELETE FROM commands WHERE applied_at < ?`, cutoff.UTC().Format(time.RFC3339Nano))
	if err != nil {
		RollbackTransaction(tx)
		return 0, fmt.Errorf("prune commands: %w", err)
	}
	n, _ := res.RowsAffected()
	total += n

	return total, CommitTransaction(tx)
}
