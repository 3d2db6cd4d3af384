package queue

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/tanisingh134/carbon/internal/logger"
	"github.com/tanisingh134/carbon/internal/observability"
	"github.com/tanisingh134/carbon/internal/protocol"
)

// MessageSource is the subset of Consumer the writer needs
type MessageSource interface {
	Consume(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, msgs ...kafka.Message) error
}

// ScoreApplier folds activity events into the leaderboard.
// Apply must be idempotent per ActivityID; a failed batch is retried whole.
type ScoreApplier interface {
	Apply(ctx context.Context, events []protocol.ActivityRecorded) (int, error)
}

// LeaderboardWriter consumes activity events and applies them in batches.
// Offsets are committed only after the batch they belong to was applied.
type LeaderboardWriter struct {
	source        MessageSource
	applier       ScoreApplier
	batchSize     int
	flushInterval time.Duration
	retryBackoff  time.Duration
	log           *logger.Logger

	applied  atomic.Int64
	skipped  atomic.Int64
	failures atomic.Int64
}

// NewLeaderboardWriter creates a new leaderboard writer
func NewLeaderboardWriter(source MessageSource, applier ScoreApplier, batchSize int, flushInterval time.Duration, log *logger.Logger) *LeaderboardWriter {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &LeaderboardWriter{
		source:        source,
		applier:       applier,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		retryBackoff:  time.Second,
		log:           log,
	}
}

// Run consumes until ctx is done, then makes a final flush attempt
func (w *LeaderboardWriter) Run(ctx context.Context) error {
	msgChan := make(chan kafka.Message, w.batchSize)
	go w.consume(ctx, msgChan)

	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	var batch []kafka.Message
	for {
		// a full batch that failed to apply stops intake until it succeeds
		in := msgChan
		if len(batch) >= w.batchSize {
			in = nil
		}

		select {
		case <-ctx.Done():
			if len(batch) > 0 {
				drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
				w.flush(drainCtx, batch)
				cancel()
			}
			return nil

		case <-ticker.C:
			if len(batch) > 0 {
				w.log.Debug("Flush interval reached", "messages", len(batch))
				if w.flush(ctx, batch) {
					batch = nil
				}
			}

		case msg := <-in:
			batch = append(batch, msg)
			if len(batch) >= w.batchSize {
				w.log.Debug("Batch full", "messages", len(batch))
				if w.flush(ctx, batch) {
					batch = nil
				}
			}
		}
	}
}

func (w *LeaderboardWriter) consume(ctx context.Context, out chan<- kafka.Message) {
	for {
		msg, err := w.source.Consume(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.log.Warn("Consumer error", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.retryBackoff):
			}
			continue
		}

		select {
		case out <- msg:
		case <-ctx.Done():
			return
		}
	}
}

// flush applies a batch and commits it; it reports whether the batch is done
func (w *LeaderboardWriter) flush(ctx context.Context, batch []kafka.Message) bool {
	events := make([]protocol.ActivityRecorded, 0, len(batch))
	for _, msg := range batch {
		event, err := protocol.DecodeActivityRecorded(msg.Value)
		if err != nil {
			w.log.Warn("Skipping undecodable activity event",
				"partition", msg.Partition, "offset", msg.Offset, "error", err)
			w.skipped.Add(1)
			continue
		}
		events = append(events, *event)
	}

	if len(events) > 0 {
		n, err := w.applier.Apply(ctx, events)
		if err != nil {
			w.failures.Add(1)
			w.log.Error("Failed to apply leaderboard batch", "events", len(events), "error", err)
			return false
		}
		w.applied.Add(int64(n))
		observability.RecordLeaderboardApplied(n)
	}

	if err := w.source.Commit(ctx, batch...); err != nil {
		// the batch was applied; redelivery is absorbed by Apply's idempotency
		w.log.Error("Failed to commit offsets", "messages", len(batch), "error", err)
		return true
	}

	w.log.Debug("Flushed leaderboard batch", "messages", len(batch), "events", len(events))
	return true
}

// WriterStats contains counters for the writer
type WriterStats struct {
	Applied  int64
	Skipped  int64
	Failures int64
}

// Stats returns statistics about the writer
func (w *LeaderboardWriter) Stats() WriterStats {
	return WriterStats{
		Applied:  w.applied.Load(),
		Skipped:  w.skipped.Load(),
		Failures: w.failures.Load(),
	}
}
