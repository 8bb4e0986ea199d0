// internal/queue/queue.go
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Fabric is a set of named FIFO-with-delay queues backed by Redis. Each
// queue is four keys:
//
//	<prefix>:<name>:waiting  list of jobs eligible for delivery
//	<prefix>:<name>:delayed  zset of jobs keyed by ready-at millis
//	<prefix>:<name>:active   list of jobs popped but not yet acked
//	<prefix>:<name>:dead     list of jobs that exhausted their retries
//
// Delivery is at-least-once: a job moves waiting -> active atomically
// (RPOPLPUSH) and is removed from active only after its handler returns
// nil. A consumer crash leaves the job in active; RequeueStranded puts such
// jobs back at process start. No ordering is guaranteed between jobs with
// different delays.
type Fabric struct {
	rdb    *redis.Client
	prefix string

	maxAttempts  int
	backoff      time.Duration
	pollInterval time.Duration
	concurrency  int

	handlers map[string]Handler

	// Stats
	totalProcessed int64
	totalRetried   int64
	totalDead      int64

	// Control
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.RWMutex
	running bool
}

// Handler consumes one delivered job. A nil return acks the job; an error
// return schedules a retry (or dead-letters after MaxAttempts).
type Handler func(ctx context.Context, job *Job) error

// Job is the unit of work a queue carries. Data holds only sanitized,
// JSON-primitive values.
type Job struct {
	ID          string                 `json:"id"`
	Queue       string                 `json:"queue"`
	Data        map[string]interface{} `json:"data"`
	Attempt     int                    `json:"attempt"`
	MaxAttempts int                    `json:"max_attempts"`
	EnqueuedAt  time.Time              `json:"enqueued_at"`
}

// Options control a single enqueue.
type Options struct {
	Delay    time.Duration // visibility delay, negative treated as 0
	Attempts int           // max delivery attempts, <=0 uses the fabric default
}

// Config holds fabric tuning knobs.
type Config struct {
	Prefix       string
	MaxAttempts  int
	Backoff      time.Duration // base retry backoff, multiplied by attempt
	PollInterval time.Duration
	Concurrency  int // consumers per queue
}

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{
		Prefix:       "marvo:queue",
		MaxAttempts:  3,
		Backoff:      500 * time.Millisecond,
		PollInterval: 200 * time.Millisecond,
		Concurrency:  2,
	}
}

// New creates a fabric on an already-connected Redis client. The client is
// a shared long-lived resource owned by the caller.
func New(rdb *redis.Client, cfg Config) *Fabric {
	if cfg.Prefix == "" {
		cfg.Prefix = "marvo:queue"
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 500 * time.Millisecond
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 200 * time.Millisecond
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	return &Fabric{
		rdb:          rdb,
		prefix:       cfg.Prefix,
		maxAttempts:  cfg.MaxAttempts,
		backoff:      cfg.Backoff,
		pollInterval: cfg.PollInterval,
		concurrency:  cfg.Concurrency,
		handlers:     make(map[string]Handler),
	}
}

func (f *Fabric) key(queue, suffix string) string {
	return fmt.Sprintf("%s:%s:%s", f.prefix, queue, suffix)
}

// Enqueue sanitizes data and submits one job. Serialization problems are
// raised immediately and nothing reaches Redis; a Redis submission failure
// is logged with the full sanitized payload and returned to the caller.
func (f *Fabric) Enqueue(ctx context.Context, queueName string, data map[string]interface{}, opts Options) (string, error) {
	safeData, err := SanitizeJobData(data)
	if err != nil {
		return "", fmt.Errorf("enqueue %s: %w", queueName, err)
	}

	job := Job{
		ID:          uuid.New().String(),
		Queue:       queueName,
		Data:        safeData,
		Attempt:     0,
		MaxAttempts: safeNonNegative(opts.Attempts, 0),
		EnqueuedAt:  time.Now().UTC(),
	}
	if job.MaxAttempts == 0 {
		job.MaxAttempts = f.maxAttempts
	}

	raw, err := json.Marshal(job)
	if err != nil {
		// Sanitized data should always marshal; treat this as caller error.
		return "", fmt.Errorf("enqueue %s: job not serializable: %w", queueName, err)
	}

	delay := safeDelay(opts.Delay)
	if delay > 0 {
		readyAt := time.Now().Add(delay).UnixMilli()
		err = f.rdb.ZAdd(ctx, f.key(queueName, "delayed"), redis.Z{
			Score:  float64(readyAt),
			Member: raw,
		}).Err()
	} else {
		err = f.rdb.LPush(ctx, f.key(queueName, "waiting"), raw).Err()
	}
	if err != nil {
		log.Printf("[Queue] ❌ failed to add job to %s: %v payload=%s", queueName, err, raw)
		return "", fmt.Errorf("enqueue %s: %w", queueName, err)
	}

	return job.ID, nil
}

// Subscribe registers the handler for a queue. Must be called before Start.
func (f *Fabric) Subscribe(queueName string, h Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[queueName] = h
}

// Start requeues stranded jobs and launches the consumer pools.
func (f *Fabric) Start() error {
	f.mu.Lock()
	if f.running {
		f.mu.Unlock()
		return fmt.Errorf("queue fabric already running")
	}
	f.running = true
	f.ctx, f.cancel = context.WithCancel(context.Background())
	handlers := make(map[string]Handler, len(f.handlers))
	for name, h := range f.handlers {
		handlers[name] = h
	}
	f.mu.Unlock()

	for name, h := range handlers {
		if err := f.RequeueStranded(f.ctx, name); err != nil {
			log.Printf("[Queue] failed to requeue stranded %s jobs: %v", name, err)
		}
		for i := 0; i < f.concurrency; i++ {
			f.wg.Add(1)
			go f.consume(name, h)
		}
	}

	log.Printf("[Queue] started %d queue(s), concurrency=%d", len(handlers), f.concurrency)
	return nil
}

// Stop drains the consumer goroutines. In-flight handlers finish first.
func (f *Fabric) Stop() {
	f.mu.Lock()
	if !f.running {
		f.mu.Unlock()
		return
	}
	f.running = false
	f.cancel()
	f.mu.Unlock()

	f.wg.Wait()
	log.Printf("[Queue] stopped. processed=%d retried=%d dead=%d",
		atomic.LoadInt64(&f.totalProcessed),
		atomic.LoadInt64(&f.totalRetried),
		atomic.LoadInt64(&f.totalDead))
}

func (f *Fabric) consume(queueName string, h Handler) {
	defer f.wg.Done()

	for {
		select {
		case <-f.ctx.Done():
			return
		default:
		}

		f.promoteDue(f.ctx, queueName)

		raw, err := f.rdb.RPopLPush(f.ctx, f.key(queueName, "waiting"), f.key(queueName, "active")).Result()
		if err == redis.Nil {
			select {
			case <-f.ctx.Done():
				return
			case <-time.After(f.pollInterval):
			}
			continue
		}
		if err != nil {
			log.Printf("[Queue] %s: pop error: %v", queueName, err)
			select {
			case <-f.ctx.Done():
				return
			case <-time.After(f.pollInterval):
			}
			continue
		}

		f.process(queueName, h, raw)
	}
}

// promoteDue moves jobs whose ready-at has passed from delayed to waiting.
// Concurrent promoters race on ZREM; whoever removes the member pushes it,
// so a job is promoted exactly once.
func (f *Fabric) promoteDue(ctx context.Context, queueName string) {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	members, err := f.rdb.ZRangeByScore(ctx, f.key(queueName, "delayed"), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   now,
		Count: 128,
	}).Result()
	if err != nil || len(members) == 0 {
		return
	}

	for _, m := range members {
		removed, err := f.rdb.ZRem(ctx, f.key(queueName, "delayed"), m).Result()
		if err != nil || removed == 0 {
			continue
		}
		if err := f.rdb.LPush(ctx, f.key(queueName, "waiting"), m).Err(); err != nil {
			log.Printf("[Queue] %s: failed to promote delayed job: %v", queueName, err)
		}
	}
}

func (f *Fabric) process(queueName string, h Handler, raw string) {
	// Acking and retrying must not be cut short by shutdown; the handler
	// itself still observes the fabric context.
	ackCtx := context.Background()

	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		// dead copy lands before the active ack; a crash in between leaves
		// a duplicate for RequeueStranded instead of losing the job
		log.Printf("[Queue] %s: malformed job, moving to dead: %v", queueName, err)
		f.rdb.LPush(ackCtx, f.key(queueName, "dead"), raw)
		f.rdb.LRem(ackCtx, f.key(queueName, "active"), 1, raw)
		atomic.AddInt64(&f.totalDead, 1)
		return
	}

	err := h(f.ctx, &job)
	if err == nil {
		// Ack: the handler persisted everything it needed to.
		f.rdb.LRem(ackCtx, f.key(queueName, "active"), 1, raw)
		atomic.AddInt64(&f.totalProcessed, 1)
		return
	}

	job.Attempt++
	updated, merr := json.Marshal(job)
	if merr != nil {
		updated = []byte(raw)
	}

	// Same ordering on failure: write the successor entry (dead or delayed)
	// first, then ack the active one.
	if job.Attempt >= job.MaxAttempts {
		log.Printf("[Queue] %s: job %s permanently failed after %d attempts: %v", queueName, job.ID, job.Attempt, err)
		f.rdb.LPush(ackCtx, f.key(queueName, "dead"), updated)
		f.rdb.LRem(ackCtx, f.key(queueName, "active"), 1, raw)
		atomic.AddInt64(&f.totalDead, 1)
		return
	}

	backoff := time.Duration(job.Attempt) * f.backoff
	log.Printf("[Queue] %s: job %s failed (attempt %d/%d), retrying in %s: %v",
		queueName, job.ID, job.Attempt, job.MaxAttempts, backoff, err)
	readyAt := time.Now().Add(backoff).UnixMilli()
	f.rdb.ZAdd(ackCtx, f.key(queueName, "delayed"), redis.Z{
		Score:  float64(readyAt),
		Member: updated,
	})
	f.rdb.LRem(ackCtx, f.key(queueName, "active"), 1, raw)
	atomic.AddInt64(&f.totalRetried, 1)
}

// RequeueStranded moves jobs left in active (consumer crashed before ack)
// back onto waiting for redelivery.
func (f *Fabric) RequeueStranded(ctx context.Context, queueName string) error {
	moved := 0
	for {
		_, err := f.rdb.RPopLPush(ctx, f.key(queueName, "active"), f.key(queueName, "waiting")).Result()
		if err == redis.Nil {
			break
		}
		if err != nil {
			return err
		}
		moved++
	}
	if moved > 0 {
		log.Printf("[Queue] %s: requeued %d stranded job(s)", queueName, moved)
	}
	return nil
}

// Counts reports queue depths for observability and dead-letter inspection.
func (f *Fabric) Counts(ctx context.Context, queueName string) (map[string]int64, error) {
	counts := map[string]int64{}
	for _, suffix := range []string{"waiting", "active", "dead"} {
		n, err := f.rdb.LLen(ctx, f.key(queueName, suffix)).Result()
		if err != nil {
			return nil, err
		}
		counts[suffix] = n
	}
	n, err := f.rdb.ZCard(ctx, f.key(queueName, "delayed")).Result()
	if err != nil {
		return nil, err
	}
	counts["delayed"] = n
	return counts, nil
}

// DeadJobs returns up to limit dead-lettered jobs for manual inspection.
func (f *Fabric) DeadJobs(ctx context.Context, queueName string, limit int64) ([]Job, error) {
	if limit <= 0 {
		limit = 50
	}
	raws, err := f.rdb.LRange(ctx, f.key(queueName, "dead"), 0, limit-1).Result()
	if err != nil {
		return nil, err
	}
	jobs := make([]Job, 0, len(raws))
	for _, raw := range raws {
		var job Job
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// Drain removes every job in every state for a queue.
func (f *Fabric) Drain(ctx context.Context, queueName string) error {
	return f.rdb.Del(ctx,
		f.key(queueName, "waiting"),
		f.key(queueName, "delayed"),
		f.key(queueName, "active"),
		f.key(queueName, "dead"),
	).Err()
}
