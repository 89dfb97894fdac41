package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron"
	"github.com/go-redis/redis/v8"

	"github.com/heartlink/backend/internal/config"
	"github.com/heartlink/backend/internal/database"
	"github.com/heartlink/backend/internal/database/migrations"
	"github.com/heartlink/backend/internal/handlers"
	"github.com/heartlink/backend/internal/jobs"
	"github.com/heartlink/backend/internal/middleware"
	"github.com/heartlink/backend/internal/queue"
	"github.com/heartlink/backend/internal/routes"
	"github.com/heartlink/backend/internal/services/lottery"
	"github.com/heartlink/backend/internal/services/webhook"
)

func main() {
	cfg := config.LoadConfig()

	// Initialize database
	db, err := database.InitDB(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Run versioned migrations
	if err := migrations.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize Redis for the webhook dedupe cache; the service degrades
	// to database-only dedupe when Redis is unreachable
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.URL,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Left nil when Redis is down; a *DedupeCache must only be wrapped in the
	// interface once it actually exists.
	var dedupeCache webhook.Deduper
	ctx := context.Background()
	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		log.Printf("Redis unavailable, webhook dedupe falls back to database only: %v", err)
	} else {
		dedupeCache = webhook.NewDedupeCache(redisClient, 0)
	}

	// Initialize job queue and handlers
	jobQueue := queue.NewQueue(db)
	jobs.RegisterJobHandlers(jobQueue, db)
	jobQueue.StartProcessing()

	// Initialize services
	lotteryService := lottery.NewService(db, jobQueue, nil)
	ledger := webhook.NewLedger(db, dedupeCache)
	sendgridProcessor := webhook.NewSendGridProcessor(db, ledger)
	manusProcessor := webhook.NewManusProcessor(db, ledger, jobQueue)

	// Schedule recurring work
	scheduler := gocron.NewScheduler(time.UTC)
	autoDrawJob := jobs.NewAutoDrawJob(db, lotteryService)
	if _, err := scheduler.Every(5).Minutes().Do(autoDrawJob.Run); err != nil {
		log.Fatalf("Failed to schedule auto-draw job: %v", err)
	}
	if _, err := scheduler.Every(1).Minute().Do(jobQueue.RetryHandler().ProcessRetryQueue); err != nil {
		log.Fatalf("Failed to schedule retry sweep: %v", err)
	}
	scheduler.StartAsync()

	// Initialize handlers
	lotteryHandler := handlers.NewLotteryHandler(lotteryService)
	webhookHandler := handlers.NewWebhookHandler(sendgridProcessor, manusProcessor, cfg)

	// Initialize router
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	rateLimiter := middleware.NewRateLimiter(10, 30)

	routes.RegisterLotteryRoutes(router, lotteryHandler, rateLimiter)
	routes.RegisterWebhookRoutes(router, webhookHandler, rateLimiter)

	// Start server
	srv := startServer(router, cfg.Server.Port)

	// Wait for interrupt signal to gracefully shut down
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	scheduler.Stop()
	jobQueue.StopProcessing()
	rateLimiter.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}

// startServer starts the HTTP server
func startServer(router *gin.Engine, port string) *http.Server {
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Heartlink API server started on port %s", port)
	return srv
}
