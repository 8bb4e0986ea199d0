// cmd/clearqueue/main.go
//
// Drains the drip queues. Development tool: prints per-queue counts, then
// wipes waiting, delayed, active, and dead jobs.
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/unclebandit/marvo-backend/internal/config"
	"github.com/unclebandit/marvo-backend/internal/queue"
	"github.com/unclebandit/marvo-backend/internal/service"
)

func main() {
	cfg := config.Load()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatal("invalid REDIS_URL:", err)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	ctx := context.Background()
	fabric := queue.New(rdb, queue.DefaultConfig())

	for _, name := range []string{service.QueueBait, service.QueueMain, service.QueueFollowUp} {
		counts, err := fabric.Counts(ctx, name)
		if err != nil {
			log.Fatalf("failed to read counts for %s: %v", name, err)
		}
		fmt.Printf("%s: waiting=%d delayed=%d active=%d dead=%d\n",
			name, counts["waiting"], counts["delayed"], counts["active"], counts["dead"])

		if err := fabric.Drain(ctx, name); err != nil {
			log.Fatalf("failed to drain %s: %v", name, err)
		}
		fmt.Printf("Drained: %s\n", name)
	}

	fmt.Println("All queues cleared!")
}
