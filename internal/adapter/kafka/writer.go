package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/couchcryptid/firms-ingest/internal/config"
	"github.com/couchcryptid/firms-ingest/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Detection is the message body published for each newly discovered row.
type Detection struct {
	Source              domain.Source     `json:"source"`
	TimeFirstDownloaded string            `json:"time_first_downloaded"`
	Fields              map[string]string `json:"fields"`
}

// Writer produces new-detection messages to a Kafka topic.
// It implements pipeline.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured detections topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes the rows discovered for a source and writes them in a
// single WriteMessages call. Rows are keyed by their identity hash so the same
// detection always lands on the same partition.
func (w *Writer) Publish(ctx context.Context, src domain.Source, columns []string, rows []domain.Row) error {
	if len(rows) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(rows))
	for i := range rows {
		msg, err := serializeToMessage(src, columns, rows[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d %s detections: %w", len(msgs), src, err)
	}
	w.logger.Debug("detections published", "source", src, "count", len(msgs), "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a row into a Kafka message.
func serializeToMessage(src domain.Source, columns []string, row domain.Row) (kafkago.Message, error) {
	if len(columns) != len(row.Fields) {
		return kafkago.Message{}, fmt.Errorf("serialize detection: %d columns, %d fields", len(columns), len(row.Fields))
	}
	fields := make(map[string]string, len(columns))
	for i, c := range columns {
		fields[c] = row.Fields[i]
	}
	stamp := row.FirstDownloaded.UTC().Format(domain.TimestampLayout)

	data, err := json.Marshal(Detection{
		Source:              src,
		TimeFirstDownloaded: stamp,
		Fields:              fields,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize detection: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(strconv.FormatUint(row.Key(), 16)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte(src)},
			{Key: "time_first_downloaded", Value: []byte(stamp)},
		},
	}, nil
}
