// Package csvstore persists cumulative detection records as one CSV file per
// source: the feed columns followed by time_first_downloaded.
package csvstore

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/couchcryptid/firms-ingest/internal/domain"
)

// Store reads and writes record files under a single directory.
// It implements pipeline.RecordStore.
type Store struct {
	dir    string
	logger *slog.Logger
}

// New creates a Store rooted at dir.
func New(dir string, logger *slog.Logger) *Store {
	return &Store{dir: dir, logger: logger}
}

// Path returns the record file for a source.
func (s *Store) Path(src domain.Source) string {
	return filepath.Join(s.dir, src.FileName())
}

// Load reads the record for a source. A missing or zero-length file means
// the source has no prior state and yields a nil record.
func (s *Store) Load(src domain.Source) (*domain.Record, error) {
	path := s.Path(src)
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open record: %w", err)
	}
	defer f.Close()

	rec, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if rec != nil {
		s.logger.Info("record loaded", "source", src, "path", path, "rows", rec.Len())
	}
	return rec, nil
}

// Save replaces the record file for a source. The new content is written to a
// temporary file in the same directory, synced and renamed over the old file.
func (s *Store) Save(src domain.Source, rec *domain.Record) error {
	if rec == nil {
		return fmt.Errorf("save %s: nil record", src)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	path := s.Path(src)
	tmp, err := os.CreateTemp(s.dir, "."+src.FileName()+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp record: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) //nolint:errcheck // no-op after a successful rename

	cw := &countingWriter{w: tmp}
	if err := Encode(cw, rec); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}

	s.logger.Debug("record saved", "source", src, "path", path, "rows", rec.Len(), "size", humanize.Bytes(uint64(cw.n)))
	return nil
}

// Encode writes a record as CSV with a header row.
func Encode(w io.Writer, rec *domain.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append(rec.Columns(), domain.FirstDownloadedColumn)); err != nil {
		return err
	}
	for _, row := range rec.Rows() {
		line := append(slices.Clone(row.Fields), row.FirstDownloaded.UTC().Format(domain.TimestampLayout))
		if err := cw.Write(line); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Decode reads a record written by Encode. The time_first_downloaded column
// may sit at any position. Empty input yields a nil record.
func Decode(r io.Reader) (*domain.Record, error) {
	columns, rows, err := DecodeRows(r)
	if err != nil || columns == nil {
		return nil, err
	}
	return domain.RestoreRecord(columns, rows)
}

// DecodeRows reads the feed columns and rows of a record file without
// enforcing record invariants, so duplicates reach the caller. Empty input
// yields nil columns.
func DecodeRows(r io.Reader) ([]string, []domain.Row, error) {
	cr := csv.NewReader(bufio.NewReader(r))

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}

	tsCol := slices.Index(header, domain.FirstDownloadedColumn)
	if tsCol < 0 {
		return nil, nil, fmt.Errorf("header has no %s column", domain.FirstDownloadedColumn)
	}
	columns := slices.Delete(slices.Clone(header), tsCol, tsCol+1)

	var rows []domain.Row
	for line := 2; ; line++ {
		values, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read rows: %w", err)
		}
		ts, err := time.ParseInLocation(domain.TimestampLayout, values[tsCol], time.UTC)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: parse %s: %w", line, domain.FirstDownloadedColumn, err)
		}
		rows = append(rows, domain.Row{
			Fields:          slices.Delete(values, tsCol, tsCol+1),
			FirstDownloaded: ts,
		})
	}
	return columns, rows, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
