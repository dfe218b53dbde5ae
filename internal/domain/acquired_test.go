package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var viirsColumns = []string{"latitude", "longitude", "acq_date", "acq_time", "confidence"}

func TestAcquiredAt(t *testing.T) {
	tests := []struct {
		name    string
		date    string
		hhmm    string
		want    time.Time
		wantErr bool
	}{
		{"four digit", "2024-08-14", "0412", time.Date(2024, 8, 14, 4, 12, 0, 0, time.UTC), false},
		{"three digit padded", "2024-08-14", "412", time.Date(2024, 8, 14, 4, 12, 0, 0, time.UTC), false},
		{"minutes only", "2024-08-14", "7", time.Date(2024, 8, 14, 0, 7, 0, 0, time.UTC), false},
		{"afternoon", "2024-08-14", "2359", time.Date(2024, 8, 14, 23, 59, 0, 0, time.UTC), false},
		{"bad hour", "2024-08-14", "2460", time.Time{}, true},
		{"bad date", "14/08/2024", "0412", time.Time{}, true},
		{"empty time", "2024-08-14", "", time.Time{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AcquiredAt(viirsColumns, []string{"-12.3", "130.1", tt.date, tt.hhmm, "n"})
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAcquiredAt_MissingColumns(t *testing.T) {
	_, err := AcquiredAt(testColumns, []string{"1", "10", "20"})
	require.Error(t, err)
}

func TestLatency(t *testing.T) {
	row := Row{
		Fields:          []string{"-12.3", "130.1", "2024-08-14", "0412", "n"},
		FirstDownloaded: time.Date(2024, 8, 14, 7, 2, 30, 0, time.UTC),
	}
	got, err := Latency(viirsColumns, row)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour+50*time.Minute+30*time.Second, got)
}
