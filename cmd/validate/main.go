// Command validate checks the integrity of the per-source record files written
// by firms-ingest: that each file parses, that every row is unique and stamped,
// and that no detection was first downloaded before it was acquired.
//
// Usage:
//
//	go run ./cmd/validate --data-dir ./data --sources SNPP,NOAA20,NOAA21
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/couchcryptid/firms-ingest/internal/adapter/csvstore"
	"github.com/couchcryptid/firms-ingest/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	var (
		dataDir string
		sources []string
	)
	flagSet := pflag.NewFlagSet("validate", pflag.ContinueOnError)
	flagSet.StringVar(&dataDir, "data-dir", ".", "directory containing the record files")
	flagSet.StringSliceVar(&sources, "sources", []string{"SNPP", "NOAA20", "NOAA21"}, "sources to check")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	if code := run(dataDir, sources); code != 0 {
		os.Exit(code)
	}
}

func run(dataDir string, names []string) int {
	fmt.Println("=== FIRMS Record Validation ===")
	fmt.Println()

	records := map[domain.Source]recordFile{}
	load := &phase{name: "Phase 1: Record files parse"}
	var sources []domain.Source
	for _, name := range names {
		src, err := domain.ParseSource(name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
			return 1
		}
		sources = append(sources, src)
		rec, err := loadRecord(filepath.Join(dataDir, src.FileName()))
		if err != nil {
			load.errorf("%s: %v", src, err)
			continue
		}
		if rec.columns == nil {
			fmt.Printf("  %s: no record yet\n", src)
			continue
		}
		records[src] = rec
	}

	phases := []*phase{
		load,
		validateRecords(sources, records),
		validateAcquisition(sources, records),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	for _, src := range sources {
		fmt.Printf("%s: %d rows\n", src, len(records[src].rows))
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// recordFile is a record file as stored, before any invariant is enforced.
type recordFile struct {
	columns []string
	rows    []domain.Row
}

// loadRecord reads a record file leniently so that duplicate rows reach the
// invariant checks instead of failing the parse. A missing file has nil columns.
func loadRecord(path string) (recordFile, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return recordFile{}, nil
	}
	if err != nil {
		return recordFile{}, err
	}
	defer f.Close()
	columns, rows, err := csvstore.DecodeRows(f)
	return recordFile{columns: columns, rows: rows}, err
}

// ── Phase 2: Record invariants ──

func validateRecords(sources []domain.Source, records map[domain.Source]recordFile) *phase {
	p := &phase{name: "Phase 2: Unique, stamped rows"}
	for _, src := range sources {
		rec, ok := records[src]
		if !ok {
			continue
		}
		for _, err := range domain.ValidateRows(rec.columns, rec.rows) {
			p.errorf("%s: %v", src, err)
		}
	}
	return p
}

// ── Phase 3: Acquisition times ──
// A detection cannot be downloaded before the satellite acquired it.

func validateAcquisition(sources []domain.Source, records map[domain.Source]recordFile) *phase {
	p := &phase{name: "Phase 3: Acquired before first download"}
	for _, src := range sources {
		rec, ok := records[src]
		if !ok {
			continue
		}
		for i, row := range rec.rows {
			lat, err := domain.Latency(rec.columns, row)
			if err != nil {
				p.errorf("%s row %d: %v", src, i+1, err)
				continue
			}
			if lat < 0 {
				p.errorf("%s row %d: first downloaded %s before acquisition", src, i+1, (-lat).String())
			}
		}
	}
	return p
}
