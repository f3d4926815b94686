package journal

import (
	"log"

	"github.com/rustyeddy/custodian/ledger"
	"github.com/rustyeddy/custodian/oracle"
	"github.com/rustyeddy/custodian/pkg/id"
)

// Recorder adapts a Journal to the ledger and registry notification
// interfaces. Recording failures are logged, not propagated: the operation
// has already committed by the time its event fires, and the accounting state
// must not depend on the observability sink.
type Recorder struct {
	j Journal
}

func NewRecorder(j Journal) *Recorder {
	return &Recorder{j: j}
}

func (r *Recorder) OnDeposit(ev ledger.Event) {
	r.record(OpDeposit, ev)
}

func (r *Recorder) OnWithdrawal(ev ledger.Event) {
	r.record(OpWithdrawal, ev)
}

func (r *Recorder) record(kind OperationKind, ev ledger.Event) {
	rec := OperationRecord{
		ID:            id.New(),
		EventID:       ev.ID,
		Kind:          kind,
		User:          ev.User,
		Asset:         ev.Asset,
		Amount:        ev.Amount.String(),
		Value:         ev.Value.String(),
		BalanceBefore: ev.BalanceBefore.String(),
		BalanceAfter:  ev.BalanceAfter.String(),
		Total:         ev.Total.String(),
		At:            ev.At,
	}
	if err := r.j.RecordOperation(rec); err != nil {
		log.Printf("[ERROR] journal: record %s %s/%s: %v", kind, ev.User, ev.Asset, err)
	}
}

func (r *Recorder) OnSourceUpdated(ev oracle.SourceUpdated) {
	rec := SourceUpdateRecord{
		ID:             id.New(),
		EventID:        ev.EventID,
		Asset:          ev.Asset,
		SourceName:     ev.SourceName,
		NativeDecimals: ev.NativeDecimals,
		Caller:         ev.Caller,
		At:             ev.At,
	}
	if err := r.j.RecordSourceUpdate(rec); err != nil {
		log.Printf("[ERROR] journal: record source update %s: %v", ev.Asset, err)
	}
}
