package domain

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/zeebo/xxh3"
)

// FirstDownloadedColumn is the locally added column holding the discovery time.
const FirstDownloadedColumn = "time_first_downloaded"

// TimestampLayout renders time_first_downloaded in persisted records.
const TimestampLayout = "2006-01-02 15:04:05"

// ErrSchemaChanged reports a snapshot whose columns differ from the record's.
var ErrSchemaChanged = errors.New("feed columns changed")

// Snapshot is one full-day table as served by the feed.
type Snapshot struct {
	Columns []string
	Rows    [][]string
}

// Len returns the number of rows in the snapshot.
func (s Snapshot) Len() int { return len(s.Rows) }

// Row is a single detection: the feed-defined values, aligned with the owning
// record's columns, and the time it was first seen locally.
type Row struct {
	Fields          []string
	FirstDownloaded time.Time
}

// Key returns the identity hash of the row's feed-defined fields.
func (r Row) Key() uint64 { return keyOf(r.Fields) }

// Record is the cumulative, append-only set of detections for one source.
// Rows keep their insertion order and no two rows share the same fields.
type Record struct {
	columns []string
	rows    []Row
	index   map[uint64][]int
}

// NewRecord creates an empty record with the given feed columns.
func NewRecord(columns []string) *Record {
	return &Record{
		columns: slices.Clone(columns),
		index:   make(map[uint64][]int),
	}
}

// RestoreRecord rebuilds a record from persisted rows, keeping their order
// and timestamps. Persisted duplicates are an error.
func RestoreRecord(columns []string, rows []Row) (*Record, error) {
	rec := NewRecord(columns)
	for i, row := range rows {
		if len(row.Fields) != len(columns) {
			return nil, fmt.Errorf("row %d: %d fields, want %d", i, len(row.Fields), len(columns))
		}
		if rec.Contains(row.Fields) {
			return nil, fmt.Errorf("row %d: duplicate detection", i)
		}
		rec.append(row)
	}
	return rec, nil
}

// Columns returns a copy of the feed-defined columns.
func (r *Record) Columns() []string { return slices.Clone(r.columns) }

// Len returns the number of rows in the record.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.rows)
}

// Rows returns a copy of the rows in insertion order.
func (r *Record) Rows() []Row {
	if r == nil {
		return nil
	}
	return slices.Clone(r.rows)
}

// Contains reports whether a row with exactly these field values exists.
func (r *Record) Contains(fields []string) bool {
	for _, i := range r.index[keyOf(fields)] {
		if slices.Equal(r.rows[i].Fields, fields) {
			return true
		}
	}
	return false
}

// Validate checks the record's invariants and returns every violation found.
func (r *Record) Validate() []error {
	return ValidateRows(r.columns, r.rows)
}

// ValidateRows checks rows read from storage against the record invariants:
// no reserved feed column, aligned field counts, a discovery time on every
// row, and no duplicate detections.
func ValidateRows(columns []string, rows []Row) []error {
	var errs []error
	if slices.Contains(columns, FirstDownloadedColumn) {
		errs = append(errs, fmt.Errorf("feed columns include %s", FirstDownloadedColumn))
	}
	seen := make(map[uint64][]int, len(rows))
	for i, row := range rows {
		if len(row.Fields) != len(columns) {
			errs = append(errs, fmt.Errorf("row %d: %d fields, want %d", i, len(row.Fields), len(columns)))
		}
		if row.FirstDownloaded.IsZero() {
			errs = append(errs, fmt.Errorf("row %d: missing %s", i, FirstDownloadedColumn))
		}
		k := row.Key()
		for _, j := range seen[k] {
			if slices.Equal(rows[j].Fields, row.Fields) {
				errs = append(errs, fmt.Errorf("row %d: duplicate of row %d", i, j))
				break
			}
		}
		seen[k] = append(seen[k], i)
	}
	return errs
}

// clone returns a record sharing no mutable state with r.
func (r *Record) clone() *Record {
	out := &Record{
		columns: slices.Clone(r.columns),
		rows:    slices.Clone(r.rows),
		index:   make(map[uint64][]int, len(r.index)),
	}
	for k, v := range r.index {
		out.index[k] = slices.Clone(v)
	}
	return out
}

func (r *Record) append(row Row) {
	k := row.Key()
	r.index[k] = append(r.index[k], len(r.rows))
	r.rows = append(r.rows, row)
}

// keyOf hashes the full field tuple. The unit separator cannot appear in
// FIRMS CSV values, so distinct tuples never produce the same input.
func keyOf(fields []string) uint64 {
	return xxh3.HashString(strings.Join(fields, "\x1f"))
}
