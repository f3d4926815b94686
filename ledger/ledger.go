// Package ledger is the deposit/withdraw state machine. It prices every
// operation through the valuation engine, enforces the custody and withdrawal
// caps against a running common-unit total, and owns the ordering discipline:
// validate, then mutate, then (withdrawals only) release the asset.
package ledger

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rustyeddy/custodian/valuation"
	"github.com/rustyeddy/custodian/vault"
)

// Transferer releases custodied assets back to a user. Invoked only after
// withdrawal state is committed. The mechanism (chain transfer, wire, RTGS
// rail) is the operator's concern.
type Transferer interface {
	ReleaseAsset(ctx context.Context, asset, user string, amount *big.Int) error
}

// ReleaseFunc adapts a function to the Transferer interface.
type ReleaseFunc func(ctx context.Context, asset, user string, amount *big.Int) error

func (f ReleaseFunc) ReleaseAsset(ctx context.Context, asset, user string, amount *big.Int) error {
	return f(ctx, asset, user, amount)
}

// Event describes a completed deposit or withdrawal. Amount is native units;
// Value is the common-unit figure observed at execution time; Total is the
// accounted total after the operation.
type Event struct {
	ID            string
	User          string
	Asset         string
	Amount        *big.Int
	Value         *big.Int
	BalanceBefore *big.Int
	BalanceAfter  *big.Int
	Total         *big.Int
	At            time.Time
}

// Listener is notified after an operation fully commits. Failed operations
// never produce events.
type Listener interface {
	OnDeposit(Event)
	OnWithdrawal(Event)
}

// Ledger enforces the two caps over a store of vaults. All operations take
// the ledger mutex for their full duration, giving the single-writer
// semantics the accounting requires: no interleaving between validation,
// mutation, and (for withdrawals) the asset release.
type Ledger struct {
	store    vault.Store
	engine   *valuation.Engine
	transfer Transferer

	// fixed at construction, common units
	custodyCap    *big.Int
	withdrawalCap *big.Int

	mu       sync.Mutex // held for the whole of each operation
	total    *big.Int   // cached accounted total, authoritative copy in store
	listener Listener
	clock    func() time.Time
}

// New builds a Ledger over store, loading the persisted accounted total.
// Caps are common-unit values and never change afterward.
func New(store vault.Store, engine *valuation.Engine, transfer Transferer, custodyCap, withdrawalCap *big.Int) (*Ledger, error) {
	total, err := store.Total()
	if err != nil {
		return nil, fmt.Errorf("load accounted total: %w", err)
	}
	l := &Ledger{
		store:         store,
		engine:        engine,
		transfer:      transfer,
		custodyCap:    new(big.Int).Set(custodyCap),
		withdrawalCap: new(big.Int).Set(withdrawalCap),
		total:         total,
		clock:         time.Now,
	}
	return l, nil
}

// SetListener attaches a completion listener (journal, notifier).
func (l *Ledger) SetListener(listener Listener) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listener = listener
}

// WithClock overrides the ledger clock for deterministic tests.
func (l *Ledger) WithClock(clock func() time.Time) {
	if clock == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.clock = clock
}

// Deposit credits amount of asset to user's vault after valuing it at the
// current price and checking the custody cap. The asset itself is presumed
// already received: the caller moves value into custody before or atomically
// with this call.
func (l *Ledger) Deposit(ctx context.Context, user, asset string, amount *big.Int) (vault.Vault, error) {
	if amount == nil || amount.Sign() <= 0 {
		return vault.Vault{}, fmt.Errorf("deposit %s/%s: %w", user, asset, ErrZeroAmount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	value, err := l.engine.Value(ctx, asset, amount)
	if err != nil {
		return vault.Vault{}, fmt.Errorf("deposit %s/%s: %w", user, asset, err)
	}

	newTotal := new(big.Int).Add(l.total, value)
	if newTotal.Cmp(l.custodyCap) > 0 {
		return vault.Vault{}, &CustodyCapError{Attempted: newTotal, Cap: new(big.Int).Set(l.custodyCap)}
	}

	prev, err := l.store.Get(user, asset)
	if err != nil {
		return vault.Vault{}, fmt.Errorf("deposit %s/%s: %w", user, asset, err)
	}

	// Commit. If the total fails to persist after the credit landed, the
	// credit is reversed so the two never diverge.
	v, err := l.store.Credit(user, asset, amount)
	if err != nil {
		return vault.Vault{}, fmt.Errorf("deposit %s/%s: credit: %w", user, asset, err)
	}
	if err := l.store.SetTotal(newTotal); err != nil {
		if werr := l.store.Write(prev); werr != nil {
			return vault.Vault{}, fmt.Errorf("deposit %s/%s: persist total: %v; reverse credit: %w", user, asset, err, werr)
		}
		return vault.Vault{}, fmt.Errorf("deposit %s/%s: persist total: %w", user, asset, err)
	}
	l.total = newTotal

	l.emit(func(lis Listener, ev Event) { lis.OnDeposit(ev) }, user, asset, amount, value, prev.Balance, v.Balance)
	return v, nil
}

// Withdraw debits amount of asset from user's vault and releases it. The
// release happens strictly after the state commit; if it fails, the commit
// is reversed before Withdraw returns, so the operation is atomic as far as
// any caller can observe.
func (l *Ledger) Withdraw(ctx context.Context, user, asset string, amount *big.Int) (vault.Vault, error) {
	if amount == nil || amount.Sign() <= 0 {
		return vault.Vault{}, fmt.Errorf("withdraw %s/%s: %w", user, asset, ErrZeroAmount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	prev, err := l.store.Get(user, asset)
	if err != nil {
		return vault.Vault{}, fmt.Errorf("withdraw %s/%s: %w", user, asset, err)
	}
	if prev.Balance.Cmp(amount) < 0 {
		return vault.Vault{}, &InsufficientBalanceError{
			Balance:   new(big.Int).Set(prev.Balance),
			Requested: new(big.Int).Set(amount),
		}
	}

	value, err := l.engine.Value(ctx, asset, amount)
	if err != nil {
		return vault.Vault{}, fmt.Errorf("withdraw %s/%s: %w", user, asset, err)
	}
	if value.Cmp(l.withdrawalCap) > 0 {
		return vault.Vault{}, &WithdrawalCapError{Value: value, Cap: new(big.Int).Set(l.withdrawalCap)}
	}

	oldTotal := new(big.Int).Set(l.total)
	newTotal := new(big.Int).Sub(l.total, value)

	v, err := l.store.Debit(user, asset, amount)
	if err != nil {
		return vault.Vault{}, fmt.Errorf("withdraw %s/%s: debit: %w", user, asset, err)
	}
	if err := l.store.SetTotal(newTotal); err != nil {
		if werr := l.store.Write(prev); werr != nil {
			return vault.Vault{}, fmt.Errorf("withdraw %s/%s: persist total: %v; reverse debit: %w", user, asset, err, werr)
		}
		return vault.Vault{}, fmt.Errorf("withdraw %s/%s: persist total: %w", user, asset, err)
	}
	l.total = newTotal

	// Interaction last. The release target may be adversarial; by the time
	// it runs, state is fully consistent, and we still hold the operation
	// lock, so nothing can observe a half-done withdrawal.
	if err := l.transfer.ReleaseAsset(ctx, asset, user, amount); err != nil {
		if werr := l.store.Write(prev); werr != nil {
			return vault.Vault{}, fmt.Errorf("withdraw %s/%s: reverse after failed release: %w (release: %v)", user, asset, werr, err)
		}
		if terr := l.store.SetTotal(oldTotal); terr != nil {
			return vault.Vault{}, fmt.Errorf("withdraw %s/%s: restore total after failed release: %w (release: %v)", user, asset, terr, err)
		}
		l.total = oldTotal
		return vault.Vault{}, fmt.Errorf("withdraw %s/%s: %w: %v", user, asset, ErrTransferFailed, err)
	}

	l.emit(func(lis Listener, ev Event) { lis.OnWithdrawal(ev) }, user, asset, amount, value, prev.Balance, v.Balance)
	return v, nil
}

func (l *Ledger) emit(fire func(Listener, Event), user, asset string, amount, value, before, after *big.Int) {
	if l.listener == nil {
		return
	}
	fire(l.listener, Event{
		ID:            uuid.NewString(),
		User:          user,
		Asset:         asset,
		Amount:        new(big.Int).Set(amount),
		Value:         new(big.Int).Set(value),
		BalanceBefore: new(big.Int).Set(before),
		BalanceAfter:  new(big.Int).Set(after),
		Total:         new(big.Int).Set(l.total),
		At:            l.clock(),
	})
}

// Vault returns the current record for (user, asset); all-zero if untouched.
func (l *Ledger) Vault(user, asset string) (vault.Vault, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.Get(user, asset)
}

// TotalAccountedValue returns the running common-unit total. It is the sum of
// deposit values minus withdrawal values at their execution-time prices, not
// a mark-to-market of outstanding balances: prices moving after an operation
// do not move this figure.
func (l *Ledger) TotalAccountedValue() *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.total)
}

// CustodyCap returns the fixed custody cap in common units.
func (l *Ledger) CustodyCap() *big.Int { return new(big.Int).Set(l.custodyCap) }

// WithdrawalCap returns the fixed per-operation withdrawal cap in common units.
func (l *Ledger) WithdrawalCap() *big.Int { return new(big.Int).Set(l.withdrawalCap) }
