package transmit

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	trkerrors "github.com/engagekit/tracker/pkg/tracker/errors"
	"github.com/engagekit/tracker/pkg/tracker/observability"
	"github.com/engagekit/tracker/pkg/tracker/spool"
	"github.com/engagekit/tracker/pkg/tracker/task"
)

// Config configures a Transmitter.
type Config struct {
	// Endpoint is the collection endpoint URL.
	Endpoint string

	// APIKey authenticates against the collection endpoint.
	APIKey string

	// QueueSize is the ingest buffer size.
	// Default: 256
	QueueSize int

	// BatchSize is the number of tasks delivered per batch.
	// Default: 16
	BatchSize int

	// FlushInterval is how often a partial batch is flushed and the
	// spool is replayed.
	// Default: 5s
	FlushInterval time.Duration

	// Retry configures per-batch delivery retries.
	// Default: errors.DefaultRetry
	Retry trkerrors.RetryConfig

	// Spool stores batches that exhausted their retry budget.
	// Optional; nil disables spooling.
	Spool spool.Store

	// Logger receives structured delivery logs. Optional.
	Logger *slog.Logger

	// Metrics records delivery metrics.
	// Default: observability.NoopMetrics{}
	Metrics observability.MetricsRecorder

	// Spans traces batch flushes.
	// Default: observability.NoopSpanManager{}
	Spans observability.SpanManager

	// HTTPClient overrides the delivery HTTP client. Optional.
	HTTPClient *http.Client
}

// Transmitter delivers tracking tasks asynchronously.
//
// Tasks enter through Track, which never blocks. A single worker goroutine
// batches them and posts batches to the collection endpoint, retrying
// transient failures and spooling what still cannot be delivered. The
// worker is the sole writer of task completion state.
type Transmitter struct {
	cfg    Config
	client *Client

	queue chan *task.Task

	delegateMu sync.RWMutex
	delegate   Delegate

	// mu orders ingest sends against Close: Track sends on queue under the
	// read lock, Close flips closed under the write lock, so once Close
	// holds the lock no send can be in flight and the queue never needs to
	// be closed.
	mu     sync.RWMutex
	closed bool

	closeOnce sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// New creates a Transmitter and starts its delivery worker.
// The process-wide delegate slot is consulted here, so a delegate set
// before construction is picked up automatically.
func New(cfg Config) *Transmitter {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 16
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = trkerrors.DefaultRetry
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NoopMetrics{}
	}
	if cfg.Spans == nil {
		cfg.Spans = observability.NoopSpanManager{}
	}

	client := NewClient(cfg.Endpoint, cfg.APIKey)
	if cfg.HTTPClient != nil {
		client = client.WithHTTPClient(cfg.HTTPClient)
	}

	tx := &Transmitter{
		cfg:      cfg,
		client:   client,
		queue:    make(chan *task.Task, cfg.QueueSize),
		delegate: DefaultDelegate(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	go tx.run()
	return tx
}

// SetDelegate replaces the transmitter's delivery observer.
func (tx *Transmitter) SetDelegate(d Delegate) {
	tx.delegateMu.Lock()
	defer tx.delegateMu.Unlock()
	tx.delegate = d
}

// Delegate returns the transmitter's current delivery observer.
func (tx *Transmitter) Delegate() Delegate {
	tx.delegateMu.RLock()
	defer tx.delegateMu.RUnlock()
	return tx.delegate
}

// Track hands a task to the transmitter for asynchronous delivery.
// Never blocks and never panics: if the ingest queue is full or the
// transmitter is closed, the task fails immediately and the call returns.
// Safe to call concurrently with Close.
func (tx *Transmitter) Track(t *task.Task) {
	tx.mu.RLock()
	if tx.closed {
		tx.mu.RUnlock()
		t.Fail(trkerrors.ErrClosed)
		return
	}

	select {
	case tx.queue <- t:
		tx.mu.RUnlock()
		tx.cfg.Metrics.RecordTrack(context.Background(), string(t.Event().Kind()))
		observability.LogTaskEnqueued(tx.cfg.Logger, t.ID(), string(t.Event().EventName()))
	default:
		tx.mu.RUnlock()
		tx.cfg.Metrics.RecordDrop(context.Background())
		observability.LogTaskDropped(tx.cfg.Logger, t.ID(), string(t.Event().EventName()))
		t.Fail(trkerrors.ErrQueueFull)
	}
}

// Close stops the worker after draining queued tasks and flushing the
// final partial batch. Tracking calls made after Close fail their tasks.
func (tx *Transmitter) Close() error {
	tx.closeOnce.Do(func() {
		tx.mu.Lock()
		tx.closed = true
		tx.mu.Unlock()

		close(tx.stop)
		<-tx.done
	})
	return nil
}

// run is the delivery worker loop.
func (tx *Transmitter) run() {
	defer close(tx.done)

	ticker := time.NewTicker(tx.cfg.FlushInterval)
	defer ticker.Stop()

	var batch []*task.Task
	for {
		select {
		case t := <-tx.queue:
			batch = append(batch, t)
			if len(batch) >= tx.cfg.BatchSize {
				tx.flush(batch)
				batch = nil
			}

		case <-ticker.C:
			if len(batch) > 0 {
				tx.flush(batch)
				batch = nil
			}
			tx.replaySpool()

		case <-tx.stop:
			// Close set closed before signaling, so no producer can add
			// to the queue anymore; drain what is buffered and flush.
			for {
				select {
				case t := <-tx.queue:
					batch = append(batch, t)
					if len(batch) >= tx.cfg.BatchSize {
						tx.flush(batch)
						batch = nil
					}
				default:
					if len(batch) > 0 {
						tx.flush(batch)
					}
					return
				}
			}
		}
	}
}

// flush delivers one batch, retrying transient failures. On exhaustion the
// encoded batch is spooled and every task fails.
func (tx *Transmitter) flush(batch []*task.Task) {
	ctx, span := tx.cfg.Spans.StartFlushSpan(context.Background(), len(batch))

	for _, t := range batch {
		t.BeginDelivery()
	}

	body, err := EncodeBatch(batch)
	if err != nil {
		tx.cfg.Spans.EndSpanWithError(span, err)
		tx.failBatch(batch, err)
		return
	}

	result := trkerrors.WithRetryContext(ctx, tx.cfg.Retry, func(ctx context.Context) error {
		dctx, dspan := tx.cfg.Spans.StartDeliverySpan(ctx, tx.client.Endpoint())
		sendErr := tx.client.Send(dctx, body)
		tx.cfg.Spans.EndSpanWithError(dspan, sendErr)
		return sendErr
	})

	tx.cfg.Metrics.RecordBatch(ctx, len(batch), result.Duration, result.Err)

	if result.Err != nil {
		observability.LogBatchFailed(tx.cfg.Logger, len(batch), result.Attempts, result.Err)
		tx.spoolBatch(ctx, body)
		tx.failBatch(batch, result.Err)
		tx.cfg.Spans.EndSpanWithError(span, result.Err)
		return
	}

	observability.LogBatchSent(tx.cfg.Logger, len(batch), result.Attempts, float64(result.Duration.Milliseconds()))
	delegate := tx.Delegate()
	for _, t := range batch {
		t.Complete()
		if delegate != nil {
			delegate.TrackingTaskDidComplete(t)
		}
	}
	tx.cfg.Spans.EndSpanWithError(span, nil)
}

// failBatch fails every task in the batch and notifies the delegate.
func (tx *Transmitter) failBatch(batch []*task.Task, err error) {
	delegate := tx.Delegate()
	for _, t := range batch {
		t.Fail(err)
		if delegate != nil {
			delegate.TrackingTaskDidFail(t, err)
		}
	}
}

// spoolBatch stores an undeliverable batch for later replay.
func (tx *Transmitter) spoolBatch(ctx context.Context, body []byte) {
	if tx.cfg.Spool == nil {
		return
	}
	if _, err := tx.cfg.Spool.Save(body); err != nil {
		observability.LogSpoolError(tx.cfg.Logger, "save", err)
		return
	}
	tx.cfg.Metrics.RecordSpool(ctx, int64(len(body)))
	observability.LogSpooled(tx.cfg.Logger, len(body))
}

// replaySpool attempts one spooled batch per flush tick, oldest first.
// Single attempt per tick; a transient failure leaves the batch spooled
// for a later tick, a permanent rejection deletes it so it cannot block
// the batches behind it.
func (tx *Transmitter) replaySpool() {
	if tx.cfg.Spool == nil {
		return
	}

	id, body, err := tx.cfg.Spool.Next()
	if err != nil {
		if err != spool.ErrEmpty {
			observability.LogSpoolError(tx.cfg.Logger, "next", err)
		}
		return
	}

	if err := tx.client.Send(context.Background(), body); err != nil {
		if trkerrors.IsRetryable(err) {
			return
		}
		observability.LogSpoolError(tx.cfg.Logger, "replay", err)
		if derr := tx.cfg.Spool.Delete(id); derr != nil {
			observability.LogSpoolError(tx.cfg.Logger, "delete", derr)
		}
		return
	}
	if err := tx.cfg.Spool.Delete(id); err != nil {
		observability.LogSpoolError(tx.cfg.Logger, "delete", err)
		return
	}
	observability.LogSpoolReplay(tx.cfg.Logger, len(body))
}
