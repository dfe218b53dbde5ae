package benchmark

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jszwec/csvutil"
)

// Entry is one row of the run log.
type Entry struct {
	RunName         string    `csv:"run_name"`
	RunStartTime    time.Time `csv:"run_start_time"`
	RunEndTime      time.Time `csv:"run_end_time"`
	DurationSeconds float64   `csv:"duration_seconds"`
	Region          string    `csv:"region"`
	RegionFile      string    `csv:"region_file"`
	Start           string    `csv:"tst"`
	End             string    `csv:"ted"`
	GitBranch       string    `csv:"git_branch"`
	GitCommitHash   string    `csv:"git_commit_hash"`
	FireSource      string    `csv:"FIRE_SOURCE"`
	DaskWorkers     string    `csv:"N_DASK_WORKERS"`
	FtypOpt         string    `csv:"FTYP_OPT"`
	RunCompleted    bool      `csv:"run_completed"`
	Error           string    `csv:"error"`
	ProfileFile     string    `csv:"profile_file"`
}

// ReadLog returns every entry in the run log. A missing or empty log has no entries.
func ReadLog(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	defer f.Close()

	dec, err := csvutil.NewDecoder(csv.NewReader(f))
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("create run log decoder: %w", err)
	}

	var entries []Entry
	if err := dec.Decode(&entries); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode run log: %w", err)
	}
	return entries, nil
}

// AppendLog adds an entry to the run log, writing the header only when the
// log is new or empty.
func AppendLog(path string, e Entry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create run log dir: %w", err)
	}

	needHeader := true
	if fi, err := os.Stat(path); err == nil && fi.Size() > 0 {
		needHeader = false
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open run log: %w", err)
	}

	w := csv.NewWriter(f)
	enc := csvutil.NewEncoder(w)
	enc.AutoHeader = needHeader
	if err := enc.Encode(e); err != nil {
		f.Close()
		return fmt.Errorf("encode run log entry: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("write run log: %w", err)
	}
	return f.Close()
}

// countRuns returns how many logged runs mention the region name.
func countRuns(entries []Entry, region string) int {
	n := 0
	for _, e := range entries {
		if strings.Contains(e.Region, region) {
			n++
		}
	}
	return n
}
