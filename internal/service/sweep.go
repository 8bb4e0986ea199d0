// internal/service/sweep.go

package service

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/unclebandit/marvo-backend/internal/queue"
	"github.com/unclebandit/marvo-backend/internal/repository"
)

// Sweeper is the safety net behind the webhook path. Every interval it scans
// for records that replied to the bait but never got the main message (a
// dropped enqueue, a crashed worker) and requeues the main job. Duplicate
// jobs are harmless: the main processor's claim discards losers.
type Sweeper struct {
	StateRepo repository.RecipientStateRepositoryInterface
	Queue     Enqueuer
	Interval  time.Duration
	BatchSize int

	// Lock serializes the sweep across processes when set. Nil means this
	// process sweeps unconditionally.
	Lock *queue.Lock
}

func NewSweeper(stateRepo repository.RecipientStateRepositoryInterface, q Enqueuer, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Sweeper{
		StateRepo: stateRepo,
		Queue:     q,
		Interval:  interval,
		BatchSize: 500,
	}
}

// Start blocks, sweeping every interval until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	log.Printf("[Sweep] 🧹 starting, interval %s", s.Interval)
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[Sweep] stopped")
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	if s.Lock != nil {
		acquired, err := s.Lock.Acquire(ctx)
		if err != nil {
			log.Printf("[Sweep] ⚠️ lock error: %v", err)
			return
		}
		if !acquired {
			return
		}
		defer s.Lock.Release(ctx)
	}

	records, err := s.StateRepo.FindAwaitingMain(ctx, s.BatchSize)
	if err != nil {
		log.Printf("[Sweep] ❌ scan failed: %v", err)
		return
	}
	if len(records) == 0 {
		return
	}

	queued := 0
	for _, rs := range records {
		_, err := s.Queue.Enqueue(ctx, QueueMain, map[string]interface{}{
			"recipientStateId": strconv.Itoa(rs.ID),
		}, queue.Options{})
		if err != nil {
			log.Printf("[Sweep] ⚠️ failed to enqueue main for state %d: %v", rs.ID, err)
			continue
		}
		queued++
	}
	log.Printf("[Sweep] requeued main for %d of %d stuck record(s)", queued, len(records))
}
