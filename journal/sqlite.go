package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordOperation(rec OperationRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO operations
		(id, event_id, kind, user_id, asset, amount, value, balance_before, balance_after, total, at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.EventID, string(rec.Kind), rec.User, rec.Asset,
		rec.Amount, rec.Value, rec.BalanceBefore, rec.BalanceAfter, rec.Total, rec.At,
	)
	return err
}

func (j *SQLite) RecordSourceUpdate(rec SourceUpdateRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO source_updates
		(id, event_id, asset, source_name, native_decimals, caller, at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.EventID, rec.Asset, rec.SourceName, rec.NativeDecimals, rec.Caller, rec.At,
	)
	return err
}

func (j *SQLite) RecordSnapshot(s TotalSnapshot) error {
	_, err := j.db.Exec(`INSERT INTO snapshots (at, total) VALUES (?, ?)`, s.At, s.Total)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
