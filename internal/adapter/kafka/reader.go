package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/crime-dashboard/internal/config"
	"github.com/couchcryptid/crime-dashboard/internal/domain"
)

// messageReader is the subset of *kafkago.Reader used by Reader.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Reader consumes incident messages from a Kafka topic.
// It implements pipeline.BatchExtractor.
type Reader struct {
	reader        messageReader
	logger        *slog.Logger
	flushInterval time.Duration
}

// NewReader creates a consumer-group reader for the configured incident topic.
func NewReader(cfg *config.Config, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     cfg.KafkaBrokers,
		Topic:       cfg.KafkaIncidentTopic,
		GroupID:     cfg.KafkaGroupID,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	return &Reader{reader: r, logger: logger, flushInterval: cfg.BatchFlushInterval}
}

// ExtractBatch blocks for the first message, then collects up to batchSize
// messages or until the flush interval elapses, whichever comes first. A fetch
// error after the first message ends the batch early; the next call reports it.
func (r *Reader) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawMessage, error) {
	first, err := r.reader.FetchMessage(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch message: %w", err)
	}
	batch := make([]domain.RawMessage, 0, batchSize)
	batch = append(batch, r.toRawMessage(first))

	flushCtx, cancel := context.WithTimeout(ctx, r.flushInterval)
	defer cancel()
	for len(batch) < batchSize {
		msg, err := r.reader.FetchMessage(flushCtx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				break
			}
			r.logger.Warn("fetch failed mid-batch, returning partial batch",
				"size", len(batch), "error", err)
			break
		}
		batch = append(batch, r.toRawMessage(msg))
	}

	r.logger.Debug("batch extracted", "topic", first.Topic, "size", len(batch))
	return batch, nil
}

func (r *Reader) toRawMessage(msg kafkago.Message) domain.RawMessage {
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return domain.RawMessage{
		Key:       msg.Key,
		Value:     msg.Value,
		Headers:   headers,
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
		Commit: func(ctx context.Context) error {
			return r.reader.CommitMessages(ctx, msg)
		},
	}
}

func (r *Reader) Close() error {
	return r.reader.Close()
}
