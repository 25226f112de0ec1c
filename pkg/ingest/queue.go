package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/google/uuid"

	"github.com/danielpid/dynamic-rag/pkg/loader"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
	defaultJobHistory        = 1024
)

// Runner runs a single ingestion. *Pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context, ref loader.Ref) Result
}

// Job is an ingestion queued for background execution.
type Job struct {
	ID  string
	Ref loader.Ref

	// State is StateIdle while queued and the terminal state afterwards.
	// While running it follows the pipeline's transitions when the Runner
	// reports them through WithObserver, and is StateLoading otherwise.
	State State

	// Result is set once the job has finished.
	Result *Result
}

// QueueConfig is the configuration for a Queue.
type QueueConfig struct {
	// Runner executes each job.
	Runner Runner

	// NumWorkers is the number of background workers (defaults to 3).
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// History is how many finished jobs stay queryable (defaults to 1024).
	History int

	Logger *slog.Logger
}

// Queue runs ingestion jobs asynchronously on a bounded worker pool.
type Queue struct {
	config *QueueConfig
	queue  chan string
	wg     sync.WaitGroup
	logger *slog.Logger

	mu       sync.Mutex
	jobs     map[string]*Job
	finished []string
	closed   bool
}

// NewQueue creates a Queue and starts its worker goroutines.
func NewQueue(c *QueueConfig) (*Queue, error) {
	if c.Runner == nil {
		return nil, fmt.Errorf("ingest queue requires a runner")
	}
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}
	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}
	if c.History <= 0 {
		c.History = defaultJobHistory
	}
	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	logger := c.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	q := &Queue{
		config: c,
		queue:  make(chan string, c.QueueSize),
		logger: logger,
		jobs:   make(map[string]*Job),
	}

	q.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go q.worker(i)
	}

	return q, nil
}

// Enqueue submits an ingestion of ref. It returns the job and true if the
// job was queued, or false if the queue is full or closed and the job was
// dropped.
func (q *Queue) Enqueue(ref loader.Ref) (Job, bool) {
	job := &Job{
		ID:    uuid.NewString(),
		Ref:   ref,
		State: StateIdle,
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		q.logger.Error("job not queued, queue closed", "source", ref.String())
		return *job, false
	}

	select {
	case q.queue <- job.ID:
		q.jobs[job.ID] = job
		q.logger.Debug("job queued", "job_id", job.ID, "source", ref.String())
		return *job, true
	default:
		q.logger.Error("job not queued, queue full, job dropped", "source", ref.String())
		return *job, false
	}
}

// Job returns a snapshot of the job with the given ID.
func (q *Queue) Job(id string) (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// Close stops accepting jobs and waits for queued and in-flight jobs to drain.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.queue)
	q.mu.Unlock()

	q.wg.Wait()
}

func (q *Queue) worker(id uint) {
	defer q.wg.Done()
	q.logger.Debug("ingest worker started", "worker_id", id)

	for jobID := range q.queue {
		q.processJob(jobID)
	}

	q.logger.Debug("ingest worker stopped", "worker_id", id)
}

func (q *Queue) processJob(id string) {
	q.mu.Lock()
	job, ok := q.jobs[id]
	if !ok {
		q.mu.Unlock()
		return
	}
	job.State = StateLoading
	ref := job.Ref
	q.mu.Unlock()

	ctx := WithObserver(context.Background(), func(t Transition) {
		if t.To.Terminal() {
			return
		}
		q.mu.Lock()
		job.State = t.To
		q.mu.Unlock()
	})
	res := q.config.Runner.Run(ctx, ref)

	q.mu.Lock()
	defer q.mu.Unlock()

	job.State = res.Status
	job.Result = &res
	q.finished = append(q.finished, id)
	for len(q.finished) > q.config.History {
		delete(q.jobs, q.finished[0])
		q.finished = q.finished[1:]
	}

	q.logger.Info("ingest job finished",
		"job_id", id,
		"source", ref.String(),
		"status", string(res.Status),
	)
}
