// Package main provides the main entry point for the Kairan broadcast relay engine
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/kairan-app/kairan/app/handlers"
	"github.com/kairan-app/kairan/app/middleware"
	"github.com/kairan-app/kairan/app/router"
	"github.com/kairan-app/kairan/app/scheduler"
	"github.com/kairan-app/kairan/app/services"
	businessflow "github.com/kairan-app/kairan/business_flow"
	"github.com/kairan-app/kairan/config"
	"github.com/kairan-app/kairan/repository"
)

// Application represents the main application structure
type Application struct {
	router    router.Router
	config    *config.Config
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	log.Println("Starting Kairan relay engine...")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	app.router.SetupRoutes()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s", address)

		if err := app.server.Listen(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-sigChan
	log.Println("Shutting down gracefully...")

	// Stop background workers
	for _, fn := range app.stopFuncs {
		fn()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeCache initializes the Redis client and verifies connectivity
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.DB = cfg.RedisDB
	if cfg.RedisPassword != "" {
		opt.Password = cfg.RedisPassword
	}

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established to %s (db=%d)", cfg.RedisURL, cfg.RedisDB)
	return rc, nil
}

// initializeApplication wires repositories, services, flows, and HTTP layer
func initializeApplication(cfg *config.Config) (*Application, error) {
	var stopFuncs []func()

	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		// Cache is an optimization; run without it rather than refuse to start
		log.Printf("Cache unavailable, continuing without it: %v", err)
		rc = nil
	}
	if rc != nil {
		stopFuncs = append(stopFuncs, func() { _ = rc.Close() })
	}

	// Repositories
	memberRepo := repository.NewMemberRepository(db)
	messageRepo := repository.NewBroadcastMessageRepository(db)
	deliveryLogRepo := repository.NewDeliveryLogRepository(db)
	reactionRepo := repository.NewMessageReactionRepository(db)

	// External services
	gateway := services.NewSMSGatewayService(&cfg.Gateway)
	storage := services.NewObjectStorageService(&cfg.Storage)
	tokenService, err := services.NewTokenService(cfg.JWT.TokenTTL, cfg.JWT.Issuer, cfg.JWT.Audience, cfg.JWT.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	// Business flows
	retryPolicy := businessflow.RetryPolicy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		Backoff: func(attempt int) time.Duration {
			return time.Duration(attempt) * cfg.Retry.BackoffBase
		},
	}
	dispatcher := businessflow.NewDispatcher(gateway, deliveryLogRepo, retryPolicy, businessflow.RealSleeper{})
	mediaFlow := businessflow.NewMediaFlow(storage, &cfg.Media)

	resolver := businessflow.NewReactionResolver(messageRepo, rc, &cfg.Cache, &cfg.Reaction)
	broadcastFlow := businessflow.NewBroadcastFlow(memberRepo, messageRepo, dispatcher, mediaFlow, nil)
	reactionFlow := businessflow.NewReactionFlow(resolver, reactionRepo, rc, &cfg.Cache, nil)
	summaryFlow := businessflow.NewSummaryFlow(reactionRepo, messageRepo, broadcastFlow, &cfg.Summary, nil)
	rosterFlow := businessflow.NewRosterFlow(memberRepo)
	reportFlow := businessflow.NewReportFlow(messageRepo, deliveryLogRepo, memberRepo)
	inboundFlow := businessflow.NewInboundFlow(memberRepo, reactionFlow, broadcastFlow, rosterFlow, summaryFlow, nil)

	// Summary scheduler (silence check + daily cron)
	summaryScheduler := scheduler.NewSummaryScheduler(summaryFlow, cfg.Summary, cfg.Logging)
	schedulerCtx, cancel := context.WithCancel(context.Background())
	stopScheduler := summaryScheduler.Start(schedulerCtx)
	stopFuncs = append(stopFuncs, stopScheduler, cancel)

	// HTTP layer
	webhookHandler := handlers.NewWebhookHandler(inboundFlow, gateway, summaryScheduler.Logger())
	adminHandler := handlers.NewAdminHandler(memberRepo, summaryFlow, reportFlow, tokenService, &cfg.Admin, &cfg.JWT)
	authMiddleware := middleware.NewAuthMiddleware(tokenService)

	r := router.NewFiberRouter(cfg, webhookHandler, adminHandler, authMiddleware)

	return &Application{
		router:    r,
		config:    cfg,
		server:    r.GetApp(),
		stopFuncs: stopFuncs,
	}, nil
}
