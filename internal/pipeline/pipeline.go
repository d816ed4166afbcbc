// Package pipeline streams incident records from a message source into the
// active dashboard dataset.
package pipeline

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/crime-dashboard/internal/domain"
	"github.com/couchcryptid/crime-dashboard/internal/observability"
)

// BatchExtractor reads up to batchSize raw messages from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawMessage, error)
}

// Decoder converts a raw message into the incidents it carries.
type Decoder interface {
	Decode(raw domain.RawMessage) (domain.Dataset, error)
}

// Appender adds decoded incidents to the active dataset.
type Appender interface {
	AppendIncidents(ds domain.Dataset, source string) error
}

// Pipeline orchestrates the extract-decode-append loop.
type Pipeline struct {
	extractor BatchExtractor
	decoder   Decoder
	appender  Appender
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
	batchSize int
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, d Decoder, a Appender, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor: e,
		decoder:   d,
		appender:  a,
		logger:    logger,
		metrics:   metrics,
		batchSize: batchSize,
	}
}

// Ready reports whether at least one batch has been appended.
func (p *Pipeline) Ready() bool {
	return p.ready.Load()
}

// Run executes the ingest loop until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processBatch(ctx, &backoff, maxBackoff) {
			return nil
		}
	}
}

// processBatch runs one extract-decode-append cycle. Returns false if the pipeline should stop.
func (p *Pipeline) processBatch(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	start := time.Now()

	rawBatch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return p.backoffOrStop(ctx, backoff, maxBackoff)
	}

	if len(rawBatch) == 0 {
		return ctx.Err() == nil
	}

	p.metrics.MessagesConsumed.Add(float64(len(rawBatch)))
	p.metrics.BatchSize.Observe(float64(len(rawBatch)))
	*backoff = 200 * time.Millisecond

	appended, ok := p.decodeAndAppend(ctx, rawBatch, backoff, maxBackoff)
	if !ok {
		return false
	}

	if appended > 0 {
		p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
		p.ready.Store(true)
	}
	return true
}

// decodeAndAppend decodes each message in the batch, appends the decoded
// incidents in one snapshot swap, and commits offsets. Messages that fail to
// decode are committed and skipped. Returns the number of appended incidents
// and false if the pipeline should stop.
func (p *Pipeline) decodeAndAppend(ctx context.Context, rawBatch []domain.RawMessage, backoff *time.Duration, maxBackoff time.Duration) (int, bool) {
	var batch domain.Dataset
	decoded := make([]domain.RawMessage, 0, len(rawBatch))

	for _, raw := range rawBatch {
		ds, err := p.decoder.Decode(raw)
		if err != nil {
			p.logger.Warn("decode failed, skipping message",
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.DecodeErrors.Inc()
			p.commitOffset(ctx, raw)
			continue
		}
		batch = batch.Merge(ds)
		decoded = append(decoded, raw)
	}

	if len(batch.Incidents) == 0 {
		for _, raw := range decoded {
			p.commitOffset(ctx, raw)
		}
		return 0, true
	}

	if err := p.appender.AppendIncidents(batch, decoded[0].Topic); err != nil {
		p.logger.Error("append batch failed", "error", err, "incidents", len(batch.Incidents))
		return 0, p.backoffOrStop(ctx, backoff, maxBackoff)
	}

	p.metrics.IncidentsIngested.Add(float64(len(batch.Incidents)))

	for _, raw := range decoded {
		p.commitOffset(ctx, raw)
	}

	return len(batch.Incidents), true
}

// backoffOrStop checks for context cancellation, sleeps with the current backoff,
// and advances the backoff. Returns false if the pipeline should stop.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
}

// commitOffset commits the message offset if a commit function is available.
func (p *Pipeline) commitOffset(ctx context.Context, raw domain.RawMessage) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
