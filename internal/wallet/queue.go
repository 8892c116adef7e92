package wallet

import (
	"context"
	"errors"
	"sync"

	"photo-wallet/internal/database"
	"photo-wallet/internal/logging"
	"photo-wallet/internal/metrics"
)

// Outcome classifies one import.
type Outcome string

const (
	OutcomeAdded     Outcome = "added"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeCapacity  Outcome = "capacity"
	OutcomeFailed    Outcome = "failed"
)

// AddResult reports what happened to one upload.
type AddResult struct {
	Filename string          `json:"filename"`
	Outcome  Outcome         `json:"outcome"`
	Photo    *database.Photo `json:"photo,omitempty"`
	Err      error           `json:"-"`
}

// Error returns the error text, or "" when the upload was not a failure.
func (r AddResult) Error() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

const queueBuffer = 64

// Backpressure holds imports back while the process is short of memory.
type Backpressure interface {
	Wait(ctx context.Context) error
}

type job struct {
	ctx    context.Context
	upload Upload
	result chan AddResult
}

// Queue imports uploads one at a time in submission order so the capacity
// and duplicate checks always see the effect of the previous import.
type Queue struct {
	store    *Store
	jobs     chan job
	pressure Backpressure

	mu      sync.Mutex
	started bool
	stopped bool
	stop    chan struct{}
	done    chan struct{}
}

// NewQueue creates a queue feeding store. Call Start before Submit.
func NewQueue(store *Store) *Queue {
	return &Queue{
		store: store,
		jobs:  make(chan job, queueBuffer),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// SetBackpressure makes each import wait on b first. Call before Start.
func (q *Queue) SetBackpressure(b Backpressure) {
	q.pressure = b
}

// Name identifies the queue among background workers.
func (q *Queue) Name() string {
	return "import-queue"
}

// Start launches the import loop. It does nothing after Stop.
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.started || q.stopped {
		return
	}
	q.started = true
	go q.run()
}

// Stop ends the import loop after the current import finishes. Jobs not yet
// started are answered with ErrQueueStopped. Safe to call more than once.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		<-q.done
		return
	}
	q.stopped = true
	close(q.stop)
	started := q.started
	q.mu.Unlock()

	if !started {
		q.drain()
		close(q.done)
	}
	<-q.done
}

func (q *Queue) run() {
	defer close(q.done)
	for {
		select {
		case <-q.stop:
			q.drain()
			return
		case j := <-q.jobs:
			metrics.ImportQueueDepth.Set(float64(len(q.jobs)))
			j.result <- q.process(j)
		}
	}
}

func (q *Queue) drain() {
	for {
		select {
		case j := <-q.jobs:
			j.result <- q.stoppedResult(j.upload)
		default:
			metrics.ImportQueueDepth.Set(0)
			return
		}
	}
}

func (q *Queue) stoppedResult(up Upload) AddResult {
	return q.finish(up, AddResult{Filename: up.Filename, Outcome: OutcomeFailed, Err: ErrQueueStopped})
}

// Submit enqueues uploads and waits for all of them. Results are returned in
// submission order. A full wallet does not stop the batch; later uploads are
// reported with OutcomeCapacity.
func (q *Queue) Submit(ctx context.Context, uploads ...Upload) []AddResult {
	pending := make([]chan AddResult, len(uploads))
	for i, up := range uploads {
		ch := make(chan AddResult, 1)
		pending[i] = ch

		select {
		case <-q.stop:
			ch <- q.stoppedResult(up)
			continue
		default:
		}

		select {
		case q.jobs <- job{ctx: ctx, upload: up, result: ch}:
			metrics.ImportQueueDepth.Set(float64(len(q.jobs)))
		case <-q.stop:
			ch <- q.stoppedResult(up)
		case <-ctx.Done():
			ch <- q.finish(up, AddResult{Filename: up.Filename, Outcome: OutcomeFailed, Err: ctx.Err()})
		}
	}

	results := make([]AddResult, len(uploads))
	for i, ch := range pending {
		select {
		case results[i] = <-ch:
		case <-q.done:
			// A job enqueued after the final drain is never answered.
			select {
			case results[i] = <-ch:
			default:
				results[i] = q.stoppedResult(uploads[i])
			}
		}
	}
	return results
}

func (q *Queue) process(j job) AddResult {
	up := j.upload
	res := AddResult{Filename: up.Filename}

	if err := j.ctx.Err(); err != nil {
		res.Outcome, res.Err = OutcomeFailed, err
		return q.finish(up, res)
	}
	if q.pressure != nil {
		if err := q.pressure.Wait(j.ctx); err != nil {
			res.Outcome, res.Err = OutcomeFailed, err
			return q.finish(up, res)
		}
	}

	if q.store.ActiveCount() >= q.store.Capacity() {
		res.Outcome, res.Err = OutcomeCapacity, ErrCapacityExceeded
		return q.finish(up, res)
	}

	dup, err := q.store.IsDuplicate(j.ctx, up.Data)
	if err != nil {
		res.Outcome, res.Err = OutcomeFailed, err
		return q.finish(up, res)
	}
	if dup {
		res.Outcome = OutcomeDuplicate
		return q.finish(up, res)
	}

	photo, err := q.store.AddPhoto(j.ctx, up)
	switch {
	case errors.Is(err, ErrCapacityExceeded):
		res.Outcome, res.Err = OutcomeCapacity, err
	case err != nil:
		res.Outcome, res.Err = OutcomeFailed, err
	default:
		res.Outcome, res.Photo = OutcomeAdded, photo
	}
	return q.finish(up, res)
}

func (q *Queue) finish(up Upload, res AddResult) AddResult {
	source := up.Source
	if source == "" {
		source = "upload"
	}
	metrics.ImportResultsTotal.WithLabelValues(source, string(res.Outcome)).Inc()

	switch res.Outcome {
	case OutcomeDuplicate:
		logging.Info("Skipped duplicate upload %s", up.Filename)
	case OutcomeCapacity:
		logging.Info("Skipped upload %s: wallet is full", up.Filename)
	case OutcomeFailed:
		logging.Warn("Upload %s failed: %v", up.Filename, res.Err)
	}
	return res
}
