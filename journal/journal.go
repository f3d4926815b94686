package journal

import "time"

type OperationKind string

const (
	OpDeposit    OperationKind = "deposit"
	OpWithdrawal OperationKind = "withdrawal"
)

// OperationRecord is one completed deposit or withdrawal. Amounts are decimal
// integer strings (native units for Amount and balances, common units for
// Value and Total); they do not fit fixed-width columns.
type OperationRecord struct {
	ID            string // ULID, time-sortable
	EventID       string
	Kind          OperationKind
	User          string
	Asset         string
	Amount        string
	Value         string
	BalanceBefore string
	BalanceAfter  string
	Total         string
	At            time.Time
}

// SourceUpdateRecord is one price source registration or overwrite.
type SourceUpdateRecord struct {
	ID             string
	EventID        string
	Asset          string
	SourceName     string
	NativeDecimals uint32
	Caller         string
	At             time.Time
}

// TotalSnapshot is a periodic reading of the accounted total, common units.
type TotalSnapshot struct {
	At    time.Time
	Total string
}

type Journal interface {
	RecordOperation(OperationRecord) error
	RecordSourceUpdate(SourceUpdateRecord) error
	RecordSnapshot(TotalSnapshot) error
	Close() error
}
