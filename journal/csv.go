package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// CSVJournal writes one file per record kind under a directory:
// operations.csv, source_updates.csv, snapshots.csv.
type CSVJournal struct {
	ops, sources, snaps *csv.Writer
	of, uf, sf          *os.File
}

func NewCSV(dir string) (*CSVJournal, error) {
	of, err := os.Create(filepath.Join(dir, "operations.csv"))
	if err != nil {
		return nil, err
	}
	uf, err := os.Create(filepath.Join(dir, "source_updates.csv"))
	if err != nil {
		return nil, err
	}
	sf, err := os.Create(filepath.Join(dir, "snapshots.csv"))
	if err != nil {
		return nil, err
	}

	ow := csv.NewWriter(of)
	uw := csv.NewWriter(uf)
	sw := csv.NewWriter(sf)

	if err := ow.Write([]string{"id", "event_id", "kind", "user", "asset", "amount", "value", "balance_before", "balance_after", "total", "at"}); err != nil {
		return nil, err
	}
	if err := uw.Write([]string{"id", "event_id", "asset", "source_name", "native_decimals", "caller", "at"}); err != nil {
		return nil, err
	}
	if err := sw.Write([]string{"at", "total"}); err != nil {
		return nil, err
	}

	for _, w := range []*csv.Writer{ow, uw, sw} {
		w.Flush()
		if err := w.Error(); err != nil {
			return nil, err
		}
	}

	return &CSVJournal{ops: ow, sources: uw, snaps: sw, of: of, uf: uf, sf: sf}, nil
}

func (j *CSVJournal) RecordOperation(rec OperationRecord) error {
	err := j.ops.Write([]string{
		rec.ID,
		rec.EventID,
		string(rec.Kind),
		rec.User,
		rec.Asset,
		rec.Amount,
		rec.Value,
		rec.BalanceBefore,
		rec.BalanceAfter,
		rec.Total,
		rec.At.Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	j.ops.Flush()
	return j.ops.Error()
}

func (j *CSVJournal) RecordSourceUpdate(rec SourceUpdateRecord) error {
	err := j.sources.Write([]string{
		rec.ID,
		rec.EventID,
		rec.Asset,
		rec.SourceName,
		strconv.FormatUint(uint64(rec.NativeDecimals), 10),
		rec.Caller,
		rec.At.Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	j.sources.Flush()
	return j.sources.Error()
}

func (j *CSVJournal) RecordSnapshot(s TotalSnapshot) error {
	err := j.snaps.Write([]string{
		s.At.Format(time.RFC3339),
		s.Total,
	})
	if err != nil {
		return err
	}
	j.snaps.Flush()
	return j.snaps.Error()
}

func (j *CSVJournal) Close() error {
	for _, w := range []*csv.Writer{j.ops, j.sources, j.snaps} {
		w.Flush()
		if err := w.Error(); err != nil {
			return err
		}
	}
	for _, f := range []*os.File{j.of, j.uf, j.sf} {
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}
