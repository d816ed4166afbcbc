package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/crime-dashboard/internal/config"
	"github.com/couchcryptid/crime-dashboard/internal/dashboard"
)

// Writer produces dashboard reports to a Kafka topic.
// It implements dashboard.ReportPublisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured report topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaReportTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes and writes reports in a single WriteMessages call.
func (w *Writer) Publish(ctx context.Context, reports []dashboard.Report) error {
	if len(reports) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(reports))
	for i := range reports {
		msg, err := serializeToMessage(reports[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write reports to %s: %w", w.writer.Topic, err)
	}
	w.logger.Debug("reports written", "topic", w.writer.Topic, "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a Report into a Kafka message keyed by report ID.
func serializeToMessage(r dashboard.Report) (kafkago.Message, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize report: %w", err)
	}
	headers := []kafkago.Header{
		{Key: "generated_at", Value: []byte(r.GeneratedAt.Format(time.RFC3339))},
		{Key: "source", Value: []byte(r.Source)},
	}
	if r.Forecast != nil {
		headers = append(headers, kafkago.Header{Key: "forecast_model", Value: []byte(r.Forecast.Model)})
	}
	return kafkago.Message{
		Key:     []byte(r.ID.String()),
		Value:   data,
		Headers: headers,
		Time:    r.GeneratedAt,
	}, nil
}
