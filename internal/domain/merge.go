package domain

import (
	"fmt"
	"slices"
	"time"
)

// Merge returns old extended with every snapshot row it does not already hold,
// each stamped with now, together with the rows that were added.
//
// A nil old record means the source has never been seen: every snapshot row is
// new. Existing rows keep their position and timestamp, and rows missing from
// the snapshot are left in place. old itself is never modified, so on error the
// caller still holds the previous record.
func Merge(old *Record, snap Snapshot, now time.Time) (*Record, []Row, error) {
	if err := checkSnapshot(snap); err != nil {
		return old, nil, err
	}

	var next *Record
	var order []int
	switch {
	case old == nil || old.Len() == 0:
		next = NewRecord(snap.Columns)
	default:
		var err error
		order, err = alignColumns(old.columns, snap.Columns)
		if err != nil {
			return old, nil, err
		}
		next = old.clone()
	}

	added := make([]Row, 0)
	for _, values := range snap.Rows {
		fields := project(values, order)
		if next.Contains(fields) {
			continue
		}
		row := Row{Fields: fields, FirstDownloaded: now}
		next.append(row)
		added = append(added, row)
	}
	return next, added, nil
}

func checkSnapshot(snap Snapshot) error {
	if len(snap.Columns) == 0 {
		return fmt.Errorf("snapshot has no columns")
	}
	if slices.Contains(snap.Columns, FirstDownloadedColumn) {
		return fmt.Errorf("snapshot carries reserved column %s", FirstDownloadedColumn)
	}
	for i, row := range snap.Rows {
		if len(row) != len(snap.Columns) {
			return fmt.Errorf("snapshot row %d: %d fields, want %d", i, len(row), len(snap.Columns))
		}
	}
	return nil
}

// alignColumns maps record column positions to snapshot column positions.
// A nil result means the orders already match.
func alignColumns(recordCols, snapCols []string) ([]int, error) {
	if slices.Equal(recordCols, snapCols) {
		return nil, nil
	}
	if len(recordCols) != len(snapCols) {
		return nil, fmt.Errorf("%w: have %v, feed served %v", ErrSchemaChanged, recordCols, snapCols)
	}
	pos := make(map[string]int, len(snapCols))
	for i, c := range snapCols {
		pos[c] = i
	}
	order := make([]int, len(recordCols))
	for i, c := range recordCols {
		j, ok := pos[c]
		if !ok {
			return nil, fmt.Errorf("%w: have %v, feed served %v", ErrSchemaChanged, recordCols, snapCols)
		}
		order[i] = j
	}
	return order, nil
}

func project(values []string, order []int) []string {
	if order == nil {
		return slices.Clone(values)
	}
	out := make([]string, len(order))
	for i, j := range order {
		out[i] = values[j]
	}
	return out
}
