package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRestoreRecord(t *testing.T) {
	rows := []Row{
		{Fields: []string{"1", "10", "20"}, FirstDownloaded: firstPoll},
		{Fields: []string{"2", "11", "21"}, FirstDownloaded: secondPoll},
	}

	t.Run("keeps order and timestamps", func(t *testing.T) {
		rec, err := RestoreRecord(testColumns, rows)
		require.NoError(t, err)
		assert.Equal(t, rows, rec.Rows())
		assert.True(t, rec.Contains([]string{"2", "11", "21"}))
		assert.False(t, rec.Contains([]string{"3", "12", "22"}))
	})

	t.Run("rejects duplicates", func(t *testing.T) {
		_, err := RestoreRecord(testColumns, append(rows, rows[0]))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate")
	})

	t.Run("rejects ragged rows", func(t *testing.T) {
		_, err := RestoreRecord(testColumns, []Row{{Fields: []string{"1"}, FirstDownloaded: firstPoll}})
		require.Error(t, err)
	})
}

func TestRecord_NilIsEmpty(t *testing.T) {
	var rec *Record
	assert.Equal(t, 0, rec.Len())
	assert.Nil(t, rec.Rows())
}

func TestRecord_Validate(t *testing.T) {
	rec := &Record{
		columns: testColumns,
		rows: []Row{
			{Fields: []string{"1", "10", "20"}, FirstDownloaded: firstPoll},
			{Fields: []string{"1", "10", "20"}, FirstDownloaded: secondPoll},
			{Fields: []string{"2", "11"}},
		},
	}

	errs := rec.Validate()
	require.Len(t, errs, 3)
	assert.Contains(t, errs[0].Error(), "row 1: duplicate of row 0")
	assert.Contains(t, errs[1].Error(), "row 2: 2 fields")
	assert.Contains(t, errs[2].Error(), "row 2: missing")
}

func TestRowKey_SeparatesFieldBoundaries(t *testing.T) {
	a := Row{Fields: []string{"1", "23"}}
	b := Row{Fields: []string{"12", "3"}}
	assert.NotEqual(t, a.Key(), b.Key())
	assert.Equal(t, a.Key(), Row{Fields: []string{"1", "23"}, FirstDownloaded: time.Now()}.Key())
}

func TestParseSource(t *testing.T) {
	src, err := ParseSource(" noaa20 ")
	require.NoError(t, err)
	assert.Equal(t, SourceNOAA20, src)
	assert.Equal(t, "VIIRS_NOAA20_NRT", src.Product())
	assert.Equal(t, "noaa20.csv", src.FileName())

	_, err = ParseSource("MODIS")
	require.Error(t, err)
}

func TestValidateRows_ReservedColumnAndDuplicates(t *testing.T) {
	columns := []string{"id", FirstDownloadedColumn}
	rows := []Row{
		{Fields: []string{"1", "x"}, FirstDownloaded: firstPoll},
		{Fields: []string{"1", "x"}, FirstDownloaded: secondPoll},
	}

	errs := ValidateRows(columns, rows)
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0].Error(), "feed columns include")
	assert.Contains(t, errs[1].Error(), "row 1: duplicate of row 0")
}
