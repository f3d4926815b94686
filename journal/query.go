package journal

import (
	"database/sql"
	"fmt"
	"time"
)

// GetOperation returns a single operation record by ID.
func (j *SQLite) GetOperation(id string) (OperationRecord, error) {
	row := j.db.QueryRow(`
		SELECT id, event_id, kind, user_id, asset, amount, value, balance_before, balance_after, total, at
		FROM operations
		WHERE id = ?`, id)

	rec, err := scanOperation(row)
	if err == sql.ErrNoRows {
		return OperationRecord{}, fmt.Errorf("operation %q not found", id)
	}
	return rec, err
}

// ListOperationsByUser returns a user's operations in execution order.
func (j *SQLite) ListOperationsByUser(user string) ([]OperationRecord, error) {
	return j.listOperations(`
		SELECT id, event_id, kind, user_id, asset, amount, value, balance_before, balance_after, total, at
		FROM operations
		WHERE user_id = ?
		ORDER BY id ASC`, user)
}

// ListOperationsBetween returns operations executed within [start, end).
func (j *SQLite) ListOperationsBetween(start, end time.Time) ([]OperationRecord, error) {
	return j.listOperations(`
		SELECT id, event_id, kind, user_id, asset, amount, value, balance_before, balance_after, total, at
		FROM operations
		WHERE at >= ? AND at < ?
		ORDER BY id ASC`, start, end)
}

func (j *SQLite) listOperations(query string, args ...interface{}) ([]OperationRecord, error) {
	rows, err := j.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OperationRecord
	for rows.Next() {
		rec, err := scanOperation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListSnapshotsBetween returns total snapshots recorded within [start, end).
func (j *SQLite) ListSnapshotsBetween(start, end time.Time) ([]TotalSnapshot, error) {
	rows, err := j.db.Query(`
		SELECT at, total
		FROM snapshots
		WHERE at >= ? AND at < ?
		ORDER BY at ASC`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TotalSnapshot
	for rows.Next() {
		var s TotalSnapshot
		if err := rows.Scan(&s.At, &s.Total); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanOperation(row scannable) (OperationRecord, error) {
	var rec OperationRecord
	var kind string
	err := row.Scan(
		&rec.ID,
		&rec.EventID,
		&kind,
		&rec.User,
		&rec.Asset,
		&rec.Amount,
		&rec.Value,
		&rec.BalanceBefore,
		&rec.BalanceAfter,
		&rec.Total,
		&rec.At,
	)
	rec.Kind = OperationKind(kind)
	return rec, err
}
