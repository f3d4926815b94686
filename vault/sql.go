package vault

import (
	"database/sql"
	"fmt"
	"math/big"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	migrate "github.com/rubenv/sql-migrate"

	"github.com/rustyeddy/custodian/oracle"
)

// migrations are applied in order at open. Balances and totals are stored as
// decimal integer strings: they routinely exceed 64 bits and no SQL integer
// type is wide enough.
var migrations = &migrate.MemoryMigrationSource{
	Migrations: []*migrate.Migration{
		{
			Id: "001-ledger-state",
			Up: []string{
				`CREATE TABLE vaults (
					user_id          TEXT NOT NULL,
					asset            TEXT NOT NULL,
					balance          TEXT NOT NULL,
					deposit_count    BIGINT NOT NULL DEFAULT 0,
					withdrawal_count BIGINT NOT NULL DEFAULT 0,
					PRIMARY KEY (user_id, asset)
				)`,
				`CREATE TABLE ledger_state (
					id    INTEGER PRIMARY KEY CHECK (id = 1),
					total TEXT NOT NULL
				)`,
				`INSERT INTO ledger_state (id, total) VALUES (1, '0')`,
				`CREATE TABLE price_sources (
					asset           TEXT PRIMARY KEY,
					source_name     TEXT NOT NULL,
					native_decimals INTEGER NOT NULL
				)`,
			},
			Down: []string{
				`DROP TABLE price_sources`,
				`DROP TABLE ledger_state`,
				`DROP TABLE vaults`,
			},
		},
	},
}

// SQL is the durable Store, working against sqlite3 or postgres through sqlx.
type SQL struct {
	db *sqlx.DB
}

// OpenSQL connects, pings, and applies migrations. driver is "sqlite3" or
// "postgres".
func OpenSQL(driver, dsn string) (*SQL, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open vault store: %w", err)
	}

	if _, err := migrate.Exec(db.DB, driver, migrations, migrate.Up); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate vault store: %w", err)
	}

	return &SQL{db: db}, nil
}

type vaultRow struct {
	UserID          string `db:"user_id"`
	Asset           string `db:"asset"`
	Balance         string `db:"balance"`
	DepositCount    uint64 `db:"deposit_count"`
	WithdrawalCount uint64 `db:"withdrawal_count"`
}

func (r vaultRow) vault() (Vault, error) {
	bal, err := parseBig(r.Balance)
	if err != nil {
		return Vault{}, fmt.Errorf("vault %s/%s: %w", r.UserID, r.Asset, err)
	}
	return Vault{
		User:            r.UserID,
		Asset:           r.Asset,
		Balance:         bal,
		DepositCount:    r.DepositCount,
		WithdrawalCount: r.WithdrawalCount,
	}, nil
}

func (s *SQL) Get(user, asset string) (Vault, error) {
	var row vaultRow
	err := s.db.Get(&row, s.db.Rebind(
		`SELECT user_id, asset, balance, deposit_count, withdrawal_count
		 FROM vaults WHERE user_id = ? AND asset = ?`), user, asset)
	if err == sql.ErrNoRows {
		return Zero(user, asset), nil
	}
	if err != nil {
		return Vault{}, fmt.Errorf("get vault %s/%s: %w", user, asset, err)
	}
	return row.vault()
}

func (s *SQL) Credit(user, asset string, amount *big.Int) (Vault, error) {
	return s.apply(user, asset, func(v *Vault) {
		v.Balance.Add(v.Balance, amount)
		v.DepositCount++
	})
}

func (s *SQL) Debit(user, asset string, amount *big.Int) (Vault, error) {
	return s.apply(user, asset, func(v *Vault) {
		v.Balance.Sub(v.Balance, amount)
		v.WithdrawalCount++
	})
}

// apply runs a read-modify-write of one vault row in a transaction. The
// ledger serializes operations above us, so the transaction only defends
// against torn writes, not against a concurrent mutator.
func (s *SQL) apply(user, asset string, mutate func(*Vault)) (Vault, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return Vault{}, fmt.Errorf("apply vault %s/%s: begin: %w", user, asset, err)
	}
	defer tx.Rollback()

	var row vaultRow
	v := Zero(user, asset)
	err = tx.Get(&row, tx.Rebind(
		`SELECT user_id, asset, balance, deposit_count, withdrawal_count
		 FROM vaults WHERE user_id = ? AND asset = ?`), user, asset)
	if err != nil && err != sql.ErrNoRows {
		return Vault{}, fmt.Errorf("apply vault %s/%s: read: %w", user, asset, err)
	}
	if err == nil {
		if v, err = row.vault(); err != nil {
			return Vault{}, err
		}
	}

	mutate(&v)

	if err := upsertVault(tx, v); err != nil {
		return Vault{}, fmt.Errorf("apply vault %s/%s: %w", user, asset, err)
	}
	if err := tx.Commit(); err != nil {
		return Vault{}, fmt.Errorf("apply vault %s/%s: commit: %w", user, asset, err)
	}
	return v.Clone(), nil
}

func (s *SQL) Write(v Vault) error {
	if err := upsertVault(s.db, v); err != nil {
		return fmt.Errorf("write vault %s/%s: %w", v.User, v.Asset, err)
	}
	return nil
}

type execer interface {
	Rebind(string) string
	Exec(query string, args ...interface{}) (sql.Result, error)
}

func upsertVault(e execer, v Vault) error {
	_, err := e.Exec(e.Rebind(
		`INSERT INTO vaults (user_id, asset, balance, deposit_count, withdrawal_count)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, asset) DO UPDATE SET
			balance = excluded.balance,
			deposit_count = excluded.deposit_count,
			withdrawal_count = excluded.withdrawal_count`),
		v.User, v.Asset, v.Balance.String(), v.DepositCount, v.WithdrawalCount)
	return err
}

func (s *SQL) Total() (*big.Int, error) {
	var total string
	if err := s.db.Get(&total, `SELECT total FROM ledger_state WHERE id = 1`); err != nil {
		return nil, fmt.Errorf("get accounted total: %w", err)
	}
	t, err := parseBig(total)
	if err != nil {
		return nil, fmt.Errorf("get accounted total: %w", err)
	}
	return t, nil
}

func (s *SQL) SetTotal(total *big.Int) error {
	_, err := s.db.Exec(s.db.Rebind(`UPDATE ledger_state SET total = ? WHERE id = 1`), total.String())
	if err != nil {
		return fmt.Errorf("set accounted total: %w", err)
	}
	return nil
}

type descriptorRow struct {
	Asset          string `db:"asset"`
	SourceName     string `db:"source_name"`
	NativeDecimals uint32 `db:"native_decimals"`
}

func (s *SQL) Descriptors() ([]oracle.DescriptorRecord, error) {
	var rows []descriptorRow
	err := s.db.Select(&rows, `SELECT asset, source_name, native_decimals FROM price_sources ORDER BY asset`)
	if err != nil {
		return nil, fmt.Errorf("list price source descriptors: %w", err)
	}
	out := make([]oracle.DescriptorRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, oracle.DescriptorRecord{
			Asset:          r.Asset,
			SourceName:     r.SourceName,
			NativeDecimals: r.NativeDecimals,
		})
	}
	return out, nil
}

func (s *SQL) SaveDescriptor(rec oracle.DescriptorRecord) error {
	_, err := s.db.Exec(s.db.Rebind(
		`INSERT INTO price_sources (asset, source_name, native_decimals)
		 VALUES (?, ?, ?)
		 ON CONFLICT (asset) DO UPDATE SET
			source_name = excluded.source_name,
			native_decimals = excluded.native_decimals`),
		rec.Asset, rec.SourceName, rec.NativeDecimals)
	if err != nil {
		return fmt.Errorf("save price source descriptor %q: %w", rec.Asset, err)
	}
	return nil
}

func (s *SQL) Close() error {
	return s.db.Close()
}

func parseBig(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("malformed balance %q", s)
	}
	return v, nil
}
