package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"plaza_backoffice/internal/api"
	"plaza_backoffice/internal/api/middleware"
	"plaza_backoffice/internal/config"
	"plaza_backoffice/internal/ingest"
	"plaza_backoffice/internal/repository/postgresql"
	"plaza_backoffice/internal/service"

	awsgo_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

func main() {
	// 1. Load configuration
	cfg := config.Load()
	log.Println("Configuration loaded.")

	// 2. Database connection
	db, err := postgresql.NewDB(cfg)
	if err != nil {
		log.Fatalf("Could not connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connection established.")

	// 3. AWS SDK config (needed by the SQS consumer and the LPR service)
	awsSDKCfg, err := awsgo_config.LoadDefaultConfig(context.TODO(), awsgo_config.WithRegion(cfg.AWSRegion))
	if err != nil {
		log.Fatalf("Could not load AWS SDK config: %v", err)
	}

	sqsClient := sqs.NewFromConfig(awsSDKCfg)

	var lprService *service.LPRService
	if cfg.LPREnabled {
		rekognitionClient := rekognition.NewFromConfig(awsSDKCfg)
		lprService = service.NewLPRService(rekognitionClient)
		log.Println("LPR service enabled.")
	}

	// 4. Repositories
	userRepo := postgresql.NewPgUserRepository(db)
	lotRepo := postgresql.NewPgParkingLotRepository(db)
	spaceRepo := postgresql.NewPgParkingSpaceRepository(db)
	sessionRepo := postgresql.NewPgParkingSessionRepository(db)
	paymentRepo := postgresql.NewPgPaymentRepository(db)

	// 5. Services
	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpirationHours)
	registryService := service.NewRegistryService(lotRepo, spaceRepo, sessionRepo)
	paymentService := service.NewPaymentService(sessionRepo, paymentRepo, lotRepo, cfg.DefaultHourlyRate)
	occupancyService := service.NewOccupancyService(lotRepo, spaceRepo, sessionRepo, paymentService)
	statsService := service.NewStatsService(spaceRepo, sessionRepo, paymentRepo)

	// 6. Auth middleware
	authMiddleware := middleware.NewAuthMiddleware(authService)

	// 7. SQS payment-notification consumer
	var wg sync.WaitGroup
	consumerCtx, cancelConsumer := context.WithCancel(context.Background())

	if cfg.PaymentQueueURL == "" {
		log.Println("WARNING: PAYMENT_QUEUE_URL not configured, SQS consumer will not run.")
	} else {
		sqsConsumer := ingest.NewSQSConsumer(sqsClient, cfg, paymentService)
		wg.Add(1)
		go func() {
			defer wg.Done()
			sqsConsumer.Start(consumerCtx)
			log.Println("SQS consumer stopped.")
		}()
	}

	// Periodic backfill for closed sessions that never got a payment record.
	go startPaymentBackfillJob(paymentService, cfg.PaymentBackfillWindow)

	// 8. HTTP router
	router := api.SetupRouter(authService, registryService, occupancyService, paymentService, statsService, lprService, authMiddleware)

	// 9. HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		log.Printf("Server listening on port %s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	cancelConsumer()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shut down: %v", err)
	}

	if cfg.PaymentQueueURL != "" {
		log.Println("Waiting up to 5 seconds for SQS consumer to stop...")
		c := make(chan struct{})
		go func() {
			defer close(c)
			wg.Wait()
		}()
		select {
		case <-c:
			log.Println("SQS consumer stopped cleanly.")
		case <-time.After(5 * time.Second):
			log.Println("SQS consumer did not stop in time.")
		}
	}

	log.Println("Server exited.")
}

func startPaymentBackfillJob(paymentService *service.PaymentService, window time.Duration) {
	ticker := time.NewTicker(15 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		now := time.Now().UTC()
		count, err := paymentService.BatchGenerate(ctx, now.Add(-window), now, false)
		if err != nil {
			log.Printf("Payment backfill failed: %v", err)
		} else if count > 0 {
			log.Printf("Payment backfill created %d record(s)", count)
		}
		cancel()
	}
}
