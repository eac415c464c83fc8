package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/creatorcommerce/backend/internal/application/vendorops"
	domainwebhook "github.com/creatorcommerce/backend/internal/domain/webhook"
	"github.com/creatorcommerce/backend/internal/infrastructure/cache"
	"github.com/creatorcommerce/backend/internal/infrastructure/config"
	"github.com/creatorcommerce/backend/internal/infrastructure/logger"
	"github.com/creatorcommerce/backend/internal/infrastructure/registry"
	"github.com/creatorcommerce/backend/internal/interfaces/http/dto"
	"github.com/creatorcommerce/backend/internal/interfaces/http/handler"
	"github.com/creatorcommerce/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting integration layer",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Load provider descriptors
	reg := registry.New(cfg.Providers, log)

	// Construct adapters for the enabled providers
	adapters := buildAdapters(reg, log)
	rateProviders := buildRateProviders(reg, log)
	ccbill := buildCCBill(reg, log)
	cryptoManager := buildCryptoManager(reg, log)
	verifier := buildWebhookVerifier(reg, log)

	manager := vendorops.NewManager(reg, adapters, rateProviders, vendorops.Options{
		ProviderTimeout:       cfg.Routing.ProviderTimeout,
		DefaultDropshipVendor: cfg.Routing.DefaultDropshipVendor,
	}, log)

	// Webhook replay suppression: Redis when configured, in-memory otherwise
	var dedup domainwebhook.DedupStore
	if addr := cfg.RedisAddr(); addr != "" {
		store, err := cache.NewRedisDedupStore(addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		dedup = store
		log.Info("Using Redis webhook dedup store", zap.String("addr", addr))
	} else {
		dedup = cache.NewMemoryDedupStore()
		log.Info("Using in-memory webhook dedup store")
	}
	defer func() {
		if err := dedup.Close(); err != nil {
			log.Error("Error closing dedup store", zap.Error(err))
		}
	}()

	// Set up HTTP server
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := dto.RegisterValidators(); err != nil {
		log.Fatal("Failed to register validators", zap.Error(err))
	}
	engine := gin.New()
	engine.Use(logger.GinMiddleware(log))
	engine.Use(logger.Recovery(log))

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(handler.NewSystemHandler(cfg.App.Name))
	r.Register(handler.NewVendorHandler(manager))
	r.Register(handler.NewPaymentHandler(ccbill, cryptoManager))
	r.Register(handler.NewWebhookHandler(verifier, dedup, cfg.Routing.WebhookDedupTTL, log))
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
