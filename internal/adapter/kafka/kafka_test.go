package kafka

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/firms-ingest/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testColumns = []string{"latitude", "longitude", "acq_date", "acq_time"}

func testRow() domain.Row {
	return domain.Row{
		Fields:          []string{"-12.39412", "130.89213", "2024-08-14", "0412"},
		FirstDownloaded: time.Date(2024, 8, 14, 4, 20, 0, 0, time.UTC),
	}
}

func TestSerializeToMessage(t *testing.T) {
	row := testRow()

	msg, err := serializeToMessage(domain.SourceNOAA20, testColumns, row)
	require.NoError(t, err)

	assert.Equal(t, []byte(strconv.FormatUint(row.Key(), 16)), msg.Key)

	var got Detection
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, domain.SourceNOAA20, got.Source)
	assert.Equal(t, "2024-08-14 04:20:00", got.TimeFirstDownloaded)
	assert.Equal(t, "130.89213", got.Fields["longitude"])
	assert.Equal(t, "0412", got.Fields["acq_time"])

	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "source", msg.Headers[0].Key)
	assert.Equal(t, []byte("NOAA20"), msg.Headers[0].Value)
	assert.Equal(t, "time_first_downloaded", msg.Headers[1].Key)
	assert.Equal(t, []byte("2024-08-14 04:20:00"), msg.Headers[1].Value)
}

func TestSerializeToMessage_SameRowSameKey(t *testing.T) {
	a, err := serializeToMessage(domain.SourceSNPP, testColumns, testRow())
	require.NoError(t, err)

	later := testRow()
	later.FirstDownloaded = later.FirstDownloaded.Add(time.Hour)
	b, err := serializeToMessage(domain.SourceSNPP, testColumns, later)
	require.NoError(t, err)

	assert.Equal(t, a.Key, b.Key)
}

func TestSerializeToMessage_MismatchedColumns(t *testing.T) {
	_, err := serializeToMessage(domain.SourceSNPP, testColumns[:2], testRow())
	require.Error(t, err)
}

func TestWriter_PublishNothing(t *testing.T) {
	w := &Writer{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	require.NoError(t, w.Publish(context.Background(), domain.SourceSNPP, testColumns, nil))
}
