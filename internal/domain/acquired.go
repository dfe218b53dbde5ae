package domain

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	acqDateColumn = "acq_date"
	acqTimeColumn = "acq_time"
)

// AcquiredAt returns the satellite acquisition time of a row in columns order,
// combining acq_date (YYYY-MM-DD) with acq_time (HHMM, UTC).
func AcquiredAt(columns []string, fields []string) (time.Time, error) {
	di := slices.Index(columns, acqDateColumn)
	ti := slices.Index(columns, acqTimeColumn)
	if di < 0 || ti < 0 || di >= len(fields) || ti >= len(fields) {
		return time.Time{}, fmt.Errorf("row has no %s/%s", acqDateColumn, acqTimeColumn)
	}

	date, err := time.Parse(time.DateOnly, strings.TrimSpace(fields[di]))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %s: %w", acqDateColumn, err)
	}
	return parseHHMM(date, fields[ti])
}

// parseHHMM combines a base date with an HHMM time string (e.g. "0412" → 04:12).
func parseHHMM(baseDate time.Time, hhmm string) (time.Time, error) {
	hhmm = strings.TrimSpace(hhmm)
	if len(hhmm) == 0 || len(hhmm) > 4 {
		return time.Time{}, fmt.Errorf("parse %s: invalid value %q", acqTimeColumn, hhmm)
	}
	hhmm = strings.Repeat("0", 4-len(hhmm)) + hhmm

	hour, errH := strconv.Atoi(hhmm[:2])
	mins, errM := strconv.Atoi(hhmm[2:])
	if errH != nil || errM != nil || hour < 0 || hour > 23 || mins < 0 || mins > 59 {
		return time.Time{}, fmt.Errorf("parse %s: invalid value %q", acqTimeColumn, hhmm)
	}

	return time.Date(
		baseDate.Year(), baseDate.Month(), baseDate.Day(),
		hour, mins, 0, 0, time.UTC,
	), nil
}

// Latency returns how long after acquisition the row was first seen locally.
func Latency(columns []string, row Row) (time.Duration, error) {
	acquired, err := AcquiredAt(columns, row.Fields)
	if err != nil {
		return 0, err
	}
	return row.FirstDownloaded.Sub(acquired), nil
}
