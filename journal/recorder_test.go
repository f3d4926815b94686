package journal

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/custodian/ledger"
	"github.com/rustyeddy/custodian/oracle"
)

type captureJournal struct {
	ops     []OperationRecord
	sources []SourceUpdateRecord
	snaps   []TotalSnapshot
}

func (c *captureJournal) RecordOperation(r OperationRecord) error {
	c.ops = append(c.ops, r)
	return nil
}

func (c *captureJournal) RecordSourceUpdate(r SourceUpdateRecord) error {
	c.sources = append(c.sources, r)
	return nil
}

func (c *captureJournal) RecordSnapshot(s TotalSnapshot) error {
	c.snaps = append(c.snaps, s)
	return nil
}

func (c *captureJournal) Close() error { return nil }

func TestRecorderMapsLedgerEvents(t *testing.T) {
	t.Parallel()

	cj := &captureJournal{}
	rec := NewRecorder(cj)

	at := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	ev := ledger.Event{
		ID:            "ev-1",
		User:          "alice",
		Asset:         "TOKN",
		Amount:        big.NewInt(100),
		Value:         big.NewInt(200),
		BalanceBefore: big.NewInt(0),
		BalanceAfter:  big.NewInt(100),
		Total:         big.NewInt(200),
		At:            at,
	}

	rec.OnDeposit(ev)
	rec.OnWithdrawal(ev)

	require.Len(t, cj.ops, 2)
	dep := cj.ops[0]
	assert.Equal(t, OpDeposit, dep.Kind)
	assert.Equal(t, "ev-1", dep.EventID)
	assert.Equal(t, "100", dep.Amount)
	assert.Equal(t, "200", dep.Value)
	assert.Equal(t, "0", dep.BalanceBefore)
	assert.Equal(t, "100", dep.BalanceAfter)
	assert.NotEmpty(t, dep.ID)

	wd := cj.ops[1]
	assert.Equal(t, OpWithdrawal, wd.Kind)

	// Record IDs are ULIDs: unique and time-sortable.
	assert.NotEqual(t, dep.ID, wd.ID)
	assert.True(t, dep.ID < wd.ID)
}

func TestRecorderMapsSourceUpdates(t *testing.T) {
	t.Parallel()

	cj := &captureJournal{}
	rec := NewRecorder(cj)

	rec.OnSourceUpdated(oracle.SourceUpdated{
		EventID:        "ev-2",
		Asset:          "TOKN",
		SourceName:     "static:1.00@8",
		NativeDecimals: 18,
		Caller:         "ops",
		At:             time.Now(),
	})

	require.Len(t, cj.sources, 1)
	assert.Equal(t, "TOKN", cj.sources[0].Asset)
	assert.Equal(t, uint32(18), cj.sources[0].NativeDecimals)
	assert.Equal(t, "ops", cj.sources[0].Caller)
}
