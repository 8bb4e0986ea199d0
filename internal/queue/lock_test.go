package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/unclebandit/marvo-backend/internal/queue"
)

func TestLockMutualExclusion(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	ctx := context.Background()

	a := queue.NewLock(rdb, "sweep", time.Minute)
	b := queue.NewLock(rdb, "sweep", time.Minute)

	ok, err := a.Acquire(ctx)
	if err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}

	ok, err = b.Acquire(ctx)
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if ok {
		t.Fatal("second holder acquired a held lock")
	}

	if err := a.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}

	ok, err = b.Acquire(ctx)
	if err != nil || !ok {
		t.Fatalf("acquire after release: ok=%v err=%v", ok, err)
	}
}

func TestLockReleaseOnlyByHolder(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	ctx := context.Background()

	a := queue.NewLock(rdb, "sweep", time.Minute)
	b := queue.NewLock(rdb, "sweep", time.Minute)

	if ok, _ := a.Acquire(ctx); !ok {
		t.Fatal("setup acquire failed")
	}

	// b never held the lock; releasing must not free a's lock
	if err := b.Release(ctx); err != nil {
		t.Fatalf("foreign release errored: %v", err)
	}
	if ok, _ := b.Acquire(ctx); ok {
		t.Fatal("lock was freed by a non-holder")
	}
}

func TestLockExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	ctx := context.Background()

	a := queue.NewLock(rdb, "sweep", 50*time.Millisecond)
	if ok, _ := a.Acquire(ctx); !ok {
		t.Fatal("setup acquire failed")
	}

	mr.FastForward(100 * time.Millisecond)

	b := queue.NewLock(rdb, "sweep", time.Minute)
	if ok, _ := b.Acquire(ctx); !ok {
		t.Fatal("lock should be free after its TTL")
	}
}
