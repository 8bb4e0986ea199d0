// cmd/worker/main.go
//
// Standalone queue worker. Runs the same processors as the server binary for
// deployments that split HTTP from message sending.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/unclebandit/marvo-backend/internal/channel"
	"github.com/unclebandit/marvo-backend/internal/config"
	"github.com/unclebandit/marvo-backend/internal/db"
	"github.com/unclebandit/marvo-backend/internal/queue"
	"github.com/unclebandit/marvo-backend/internal/repository"
	"github.com/unclebandit/marvo-backend/internal/service"
)

func main() {
	cfg := config.Load()

	database, err := db.Connect(cfg.Database.DSN())
	if err != nil {
		log.Fatal("failed to connect to DB:", err)
	}
	defer database.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatal("invalid REDIS_URL:", err)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	campaignRepo := &repository.CampaignRepository{DB: database}
	stateRepo := &repository.RecipientStateRepository{DB: database}

	queueCfg := queue.DefaultConfig()
	queueCfg.Concurrency = 4
	fabric := queue.New(rdb, queueCfg)

	dispatcher := channel.NewDispatcher(cfg)
	processor := service.NewDripProcessor(stateRepo, campaignRepo, dispatcher, fabric)
	processor.Register(fabric)

	if err := fabric.Start(); err != nil {
		log.Fatal("failed to start queue workers:", err)
	}

	sweeper := service.NewSweeper(stateRepo, fabric, cfg.Sweep.Interval)
	sweeper.Lock = queue.NewLock(rdb, "sweep:awaiting-main", cfg.Sweep.Interval)
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go sweeper.Start(sweepCtx)

	log.Println("👷 Worker running, waiting for jobs")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Println("shutting down...")
	stopSweep()
	fabric.Stop()
}
