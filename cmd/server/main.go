// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	"github.com/unclebandit/marvo-backend/internal/channel"
	"github.com/unclebandit/marvo-backend/internal/config"
	"github.com/unclebandit/marvo-backend/internal/db"
	"github.com/unclebandit/marvo-backend/internal/handler"
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
	prospectRepo := &repository.ProspectRepository{DB: database}
	stateRepo := &repository.RecipientStateRepository{DB: database}

	fabric := queue.New(rdb, queue.DefaultConfig())
	dispatcher := channel.NewDispatcher(cfg)

	processor := service.NewDripProcessor(stateRepo, campaignRepo, dispatcher, fabric)
	processor.Register(fabric)
	if err := fabric.Start(); err != nil {
		log.Fatal("failed to start queue workers:", err)
	}
	defer fabric.Stop()

	launcher := service.NewLaunchService(campaignRepo, prospectRepo, stateRepo, fabric)
	replies := service.NewReplyService(stateRepo, fabric)

	sweeper := service.NewSweeper(stateRepo, fabric, cfg.Sweep.Interval)
	sweeper.Lock = queue.NewLock(rdb, "sweep:awaiting-main", cfg.Sweep.Interval)
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go sweeper.Start(sweepCtx)

	campaignHandler := handler.NewCampaignHandler(campaignRepo, stateRepo, launcher)
	queueHandler := handler.NewQueueHandler(fabric)
	fbWebhook := handler.NewFacebookWebhookHandler(cfg.Facebook.VerifyToken, replies)
	igWebhook := handler.NewInstagramWebhookHandler(cfg.Instagram.VerifyToken, replies)
	waWebhook := handler.NewWhatsAppWebhookHandler(cfg.WhatsApp.VerifyToken, replies)
	smsWebhook := handler.NewSMSWebhookHandler(replies)
	emailWebhook := handler.NewEmailWebhookHandler(replies)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	// Campaign routes
	r.Post("/api/campaigns", campaignHandler.CreateCampaignHandler)
	r.Get("/api/campaigns", campaignHandler.ListCampaignsHandler)
	r.Get("/api/campaigns/{id}", campaignHandler.GetCampaignHandler)
	r.Post("/api/run-campaign/{campaignId}", campaignHandler.RunCampaignHandler)

	// Queue ops
	r.Get("/api/queues/stats", queueHandler.StatsHandler)
	r.Get("/api/queues/dead", queueHandler.DeadJobsHandler)

	// Platform webhooks
	r.Get("/webhook", fbWebhook.Verify)
	r.Post("/webhook", fbWebhook.Receive)
	r.Get("/webhook/instagram", igWebhook.Verify)
	r.Post("/webhook/instagram", igWebhook.Receive)
	r.Get("/webhook/whatsapp", waWebhook.Verify)
	r.Post("/webhook/whatsapp", waWebhook.Receive)
	r.Post("/webhook/sms", smsWebhook.Receive)
	r.Post("/webhook/email", emailWebhook.Receive)

	log.Printf("🚀 Server running on :%s", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, r))
}
