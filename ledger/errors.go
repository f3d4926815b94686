package ledger

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrZeroAmount rejects operations requesting a non-positive quantity.
	ErrZeroAmount = errors.New("ledger: zero amount")
	// ErrTransferFailed marks a withdrawal whose asset release did not
	// succeed. The preceding state commit has been reversed by the time the
	// caller sees this.
	ErrTransferFailed = errors.New("ledger: asset release failed")
)

// InsufficientBalanceError reports a withdrawal exceeding the recorded
// balance. Amounts are native units.
type InsufficientBalanceError struct {
	Balance   *big.Int
	Requested *big.Int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("ledger: insufficient balance: have %s, want %s", e.Balance, e.Requested)
}

// CustodyCapError reports a deposit that would push the accounted total past
// the custody cap. Figures are common units.
type CustodyCapError struct {
	Attempted *big.Int // total the deposit would have produced
	Cap       *big.Int
}

func (e *CustodyCapError) Error() string {
	return fmt.Sprintf("ledger: custody cap exceeded: total would be %s, cap %s", e.Attempted, e.Cap)
}

// WithdrawalCapError reports a single withdrawal valued above the
// per-operation cap. Figures are common units.
type WithdrawalCapError struct {
	Value *big.Int
	Cap   *big.Int
}

func (e *WithdrawalCapError) Error() string {
	return fmt.Sprintf("ledger: withdrawal cap exceeded: value %s, cap %s", e.Value, e.Cap)
}
