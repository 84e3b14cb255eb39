package async

import (
	"context"
	"sync"
	"time"

	"log/slog"

	"github.com/ledgerlens/bill-extractor/internal/extract"
)

// Job is one bill to run through the extraction pipeline.
type Job struct {
	Name string
	Text string
	Lang string
}

// Outcome pairs a job with its extraction result or error.
type Outcome struct {
	Name   string
	Result extract.Result
	Err    error
}

type ExtractQueue struct {
	ex      *extract.Extractor
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool

	// outMu is separate from mu: Enqueue can block on a full channel while
	// holding mu, and workers must still be able to record outcomes.
	outMu    sync.Mutex
	outcomes []Outcome
}

type Option func(*ExtractQueue)

func WithWorkers(n int) Option {
	return func(q *ExtractQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *ExtractQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithJobTimeout(d time.Duration) Option {
	return func(q *ExtractQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewExtractQueue(ex *extract.Extractor, logger *slog.Logger, opts ...Option) *ExtractQueue {
	q := &ExtractQueue{
		ex:      ex,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ExtractQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)

				for job := range q.ch {
					ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
					res, err := q.ex.Extract(ctx, extract.BillText{Text: job.Text, Lang: job.Lang}, extract.Options{})
					cancel()

					if err != nil {
						q.logger.Error("extraction failed", "worker_id", workerID, "name", job.Name, "error", err)
					} else {
						q.logger.Info("extracted bill", "worker_id", workerID, "name", job.Name, "attempts", res.Attempts)
					}

					q.outMu.Lock()
					q.outcomes = append(q.outcomes, Outcome{Name: job.Name, Result: res, Err: err})
					q.outMu.Unlock()
				}

				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ExtractQueue) Enqueue(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "name", job.Name)
		return nil
	}
	select {
	case q.ch <- job:
		q.logger.Info("queued bill for extraction", "name", job.Name)
	default:
		q.logger.Warn("queue full, applying backpressure", "name", job.Name)
		q.ch <- job
	}
	return nil
}

// Outcomes returns all completed extractions. Call after Shutdown to get the
// full batch.
func (q *ExtractQueue) Outcomes() []Outcome {
	q.outMu.Lock()
	defer q.outMu.Unlock()
	out := make([]Outcome, len(q.outcomes))
	copy(out, q.outcomes)
	return out
}

func (q *ExtractQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
