package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/x402labs/x402gate/internal/config"
	"github.com/x402labs/x402gate/internal/handler"
	"github.com/x402labs/x402gate/internal/intent"
	"github.com/x402labs/x402gate/internal/middleware"
	"github.com/x402labs/x402gate/internal/pkg/logger"
	"github.com/x402labs/x402gate/internal/repository"
	"github.com/x402labs/x402gate/internal/routing"
	"github.com/x402labs/x402gate/internal/scheduler"
	"github.com/x402labs/x402gate/internal/service"
	"github.com/x402labs/x402gate/internal/settlement"
	"github.com/x402labs/x402gate/internal/stream"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.Server.LogLevel)

	// 2. Initialize Persistence (Postgres > Memory)
	var store repository.Store
	if cfg.Database.DSN != "" {
		pg, err := repository.NewPostgresStore(cfg)
		if err == nil {
			logger.Info("✅ Connected to PostgreSQL")
			store = pg
		} else {
			logger.Error("⚠️ Failed to connect to DB, falling back to memory store", "error", err)
		}
	}
	if store == nil {
		store = repository.NewMemoryStore()
	}

	// Quote cache and execution lock (Redis > Memory)
	var quoteCache repository.QuoteCache
	var execLock repository.ExecutionLock
	if cfg.Redis.Addr != "" {
		redisClient, err := repository.NewRedisClient(cfg)
		if err == nil {
			logger.Info("✅ Connected to Redis")
			quoteCache = redisClient
			execLock = redisClient
		} else {
			logger.Error("⚠️ Failed to connect to Redis, falling back to memory lock", "error", err)
		}
	}
	if execLock == nil {
		execLock = repository.NewMemoryLock()
	}

	// 3. Initialize Core Services
	costModel := routing.NewStaticCostModel()
	generator := routing.NewGenerator(costModel, cfg.Routing)
	aggregator := routing.NewAggregator(costModel, cfg.Routing)

	hub := stream.NewHub()
	hub.Start()

	executor := settlement.NewExecutor(store, execLock, costModel, settlement.WithEventSink(hub))
	parser := intent.NewParser(cfg.Intent)

	settleSvc := service.NewSettleService(cfg, store, generator, aggregator, executor, parser, quoteCache)
	activitySvc := service.NewActivityService(store)

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched, err = scheduler.New(cfg.Scheduler.Spec, store, executor)
		if err != nil {
			log.Fatalf("Failed to initialize scheduler: %v", err)
		}
		sched.Start()
	}

	// 4. Initialize Handlers
	quoteHandler := handler.NewQuoteHandler(settleSvc)
	orderHandler := handler.NewOrderHandler(settleSvc)
	settlementHandler := handler.NewSettlementHandler(settleSvc, hub)
	intentHandler := handler.NewIntentHandler(settleSvc)

	// 5. Setup Router
	r := gin.Default()

	// Global Middleware
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.ActivityMiddleware(activitySvc))

	// Health Check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "service": "x402gate"})
	})

	// Metrics Endpoint
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	// API V1 Routes
	idempotencyStore := middleware.NewInMemIdempotencyStore()
	v1 := r.Group("/v1")
	v1.Use(middleware.RateLimitMiddleware(cfg.RateLimit))
	v1.Use(middleware.IdempotencyMiddleware(idempotencyStore))
	{
		v1.POST("/quote", quoteHandler.GetQuote)
		v1.GET("/quote/:orderId", quoteHandler.GetQuoteStatus)
		v1.POST("/order", middleware.PaymentMiddleware(cfg), orderHandler.CreateOrder)
		v1.PUT("/order/:orderId/execute", orderHandler.ExecuteOrder)
		v1.GET("/settlements", settlementHandler.ListSettlements)
		v1.GET("/settlements/stream", settlementHandler.Stream)
		v1.POST("/intent", intentHandler.ParseIntent)
	}

	// 6. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Info("🚀 x402gate started", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server listen failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if sched != nil {
		sched.Stop()
	}
	hub.Stop()
	activitySvc.Close()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}

	logger.Info("Server exiting")
}
