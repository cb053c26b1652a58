package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"hena/stays/internal/api"
	"hena/stays/internal/cache"
	"hena/stays/internal/config"
	"hena/stays/internal/db"
	"hena/stays/internal/email"
	"hena/stays/internal/ingest"
	"hena/stays/internal/platforms"
	"hena/stays/internal/services"
	"hena/stays/internal/storage"
	"hena/stays/internal/tasks"
	"hena/stays/internal/xmlfeed"
)

var runMode = flag.String("m", "all", "Run mode: 'api', 'bg' (background tasks and feed refresh scheduler), 'all' (default)")

func main() {
	flag.Parse()

	cfg, err := config.Load(*runMode)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	mongoClient, mongoDb, err := db.ConnectDB(cfg.MongoURI, cfg.MongoDbName)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.DisconnectDB(mongoClient); err != nil {
			log.Printf("Error disconnecting from MongoDB: %v", err)
		}
	}()
	indexCtx, cancelIndex := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.EnsureIndexes(indexCtx, mongoDb); err != nil {
		log.Fatalf("Failed to create indexes: %v", err)
	}
	cancelIndex()

	redisClient, err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer func() {
		if err := cache.DisconnectRedis(redisClient); err != nil {
			log.Printf("Error disconnecting from Redis: %v", err)
		}
	}()

	// Email sender
	var primaryEmailSender email.Sender
	if os.Getenv("MOCK_SERVICES") == "true" {
		log.Println("MOCK_SERVICES enabled: Using Redis email sender.")
		primaryEmailSender = email.NewRedisSender(redisClient, cfg)
	} else {
		primaryEmailSender = email.NewSMTPSender(cfg)
	}
	compositeSender := email.NewCompositeEmailSender(primaryEmailSender)
	if logEmailsPath := os.Getenv("LOG_EMAILS"); logEmailsPath != "" {
		fileSender, err := email.NewFileEmailSender(logEmailsPath)
		if err != nil {
			log.Printf("WARNING: Failed to initialize file email sender (LOG_EMAILS='%s'): %v. Proceeding without file logging.", logEmailsPath, err)
		} else {
			compositeSender.AddSender(fileSender)
			log.Printf("LOG_EMAILS set, copying outgoing email to %s", logEmailsPath)
		}
	}

	// Stores
	userService := services.NewUserService(mongoDb)
	propertyService := services.NewPropertyService(mongoDb)
	feedService := services.NewFeedService(mongoDb)
	emailTemplateService := services.NewEmailTemplateService(mongoDb)

	taskClient := tasks.NewClient(redisClient)
	defer taskClient.Close()

	deliverer := email.NewDeliverer(emailTemplateService, compositeSender, cfg.SmtpFromAddress)
	var dispatcher email.Dispatcher = deliverer
	if cfg.EmailQueue {
		log.Println("EMAIL_QUEUE enabled: emails are delivered by the background worker.")
		dispatcher = tasks.NewQueueDispatcher(taskClient)
	}
	notifier := email.NewNotifier(dispatcher, cfg)

	var photos ingest.PhotoStore
	if cfg.AwsS3Bucket != "" {
		s3Storage, err := storage.NewS3Storage(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize S3 storage: %v", err)
		}
		photos = s3Storage
	} else {
		log.Println("AWS_S3_BUCKET not set: agent photos keep their feed URLs.")
	}

	// Ingestion pipeline
	fetcher := xmlfeed.NewFetcher(cfg.FeedFetchTimeout, cfg.FeedFetchRetries, cfg.FeedFetchBackoff)
	pipeline := ingest.NewPipeline(
		fetcher,
		platforms.Default(),
		ingest.NewMapper(userService, propertyService),
		ingest.NewValidators(userService, propertyService),
		ingest.NewPublisher(userService, propertyService, notifier, photos),
		feedService,
		userService,
		notifier,
	)

	taskProcessor := tasks.NewTaskProcessor(deliverer, pipeline)
	locker := cache.NewLocker(redisClient)
	refresh := func(ctx context.Context) (bool, error) {
		return tasks.EnqueueFeedsRefresh(ctx, taskClient)
	}

	var wg sync.WaitGroup
	shutdownChan := make(chan struct{}, 1)

	// Service API always runs.
	serviceSrv := &http.Server{
		Addr:    ":" + cfg.ServiceApiPort,
		Handler: api.SetupServiceRouter(cfg, redisClient, shutdownChan),
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("Service API listening on :%s", cfg.ServiceApiPort)
		if err := serviceSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Service API ListenAndServe error: %v", err)
		}
		log.Println("Service API server stopped.")
	}()

	var mainApiSrv *http.Server
	var backgroundTaskSrv *asynq.Server
	var scheduler *tasks.Scheduler

	log.Printf("Starting application in '%s' mode...", cfg.RunMode)

	apiMode := func() {
		mainApiSrv = &http.Server{
			Addr:    ":" + cfg.ApiPort,
			Handler: api.SetupRouter(cfg, userService, pipeline, locker, refresh),
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Printf("Main API listening on :%s", cfg.ApiPort)
			if err := mainApiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Main API ListenAndServe error: %v", err)
			}
			log.Println("Main API server stopped.")
		}()
	}

	bgMode := func() {
		backgroundTaskSrv = tasks.SetupServer(redisClient)
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Println("Background task server starting...")
			if err := backgroundTaskSrv.Run(tasks.NewServeMux(taskProcessor)); err != nil {
				log.Fatalf("Background task server error: %v", err)
			}
			log.Println("Background task server stopped.")
		}()

		scheduler, err = tasks.NewScheduler(taskClient, cfg.FeedRefreshCron)
		if err != nil {
			log.Fatalf("Invalid FEED_REFRESH_CRON %q: %v", cfg.FeedRefreshCron, err)
		}
		scheduler.Start()
	}

	switch cfg.RunMode {
	case "api":
		apiMode()
	case "bg":
		bgMode()
	case "all":
		apiMode()
		bgMode()
	default:
		log.Fatalf("Invalid run mode specified in config: %s.", cfg.RunMode)
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("Received signal: %s. Shutting down gracefully...", sig)
	case <-shutdownChan:
		log.Println("Shutdown requested via Service API. Shutting down gracefully...")
	}

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	if scheduler != nil {
		scheduler.Stop()
	}
	if err := serviceSrv.Shutdown(ctxShutdown); err != nil {
		log.Printf("Service API server shutdown error: %v", err)
	}
	if mainApiSrv != nil {
		if err := mainApiSrv.Shutdown(ctxShutdown); err != nil {
			log.Printf("Main API server shutdown error: %v", err)
		}
	}
	if backgroundTaskSrv != nil {
		backgroundTaskSrv.Shutdown()
	}

	wg.Wait()
	log.Println("Server gracefully stopped")
}
