// Package vault holds the per-user, per-asset balance records and the durable
// ledger state behind them. Stores are pure data access: sufficiency checks,
// caps, and every other policy decision belong to the ledger.
package vault

import (
	"math/big"

	"github.com/rustyeddy/custodian/oracle"
)

// Vault is one (user, asset) balance record. Vaults come into existence
// implicitly as all-zero records on first reference and are never destroyed.
// The counters are audit trail only; nothing is enforced beyond their
// monotonic growth.
type Vault struct {
	User            string
	Asset           string
	Balance         *big.Int
	DepositCount    uint64
	WithdrawalCount uint64
}

// Zero returns the implicit all-zero vault for (user, asset).
func Zero(user, asset string) Vault {
	return Vault{User: user, Asset: asset, Balance: new(big.Int)}
}

// Clone returns a deep copy, so callers can hand vaults out without aliasing
// the store's balance.
func (v Vault) Clone() Vault {
	out := v
	if v.Balance != nil {
		out.Balance = new(big.Int).Set(v.Balance)
	} else {
		out.Balance = new(big.Int)
	}
	return out
}

// Store is the durable ledger state: vault records, the global accounted
// total, and the price source descriptor rows.
//
// Credit and Debit mutate balance and bump the matching counter; Debit trusts
// the caller to have verified sufficiency. Write replaces a record wholesale
// and exists so the ledger can reverse a committed withdrawal whose paired
// asset release failed.
type Store interface {
	Get(user, asset string) (Vault, error)
	Credit(user, asset string, amount *big.Int) (Vault, error)
	Debit(user, asset string, amount *big.Int) (Vault, error)
	Write(v Vault) error

	Total() (*big.Int, error)
	SetTotal(total *big.Int) error

	Descriptors() ([]oracle.DescriptorRecord, error)
	SaveDescriptor(rec oracle.DescriptorRecord) error

	Close() error
}
