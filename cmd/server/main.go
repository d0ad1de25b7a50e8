package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	catalogapp "github.com/ledger/backend/internal/application/catalog"
	identityapp "github.com/ledger/backend/internal/application/identity"
	inventoryapp "github.com/ledger/backend/internal/application/inventory"
	partnerapp "github.com/ledger/backend/internal/application/partner"
	reportapp "github.com/ledger/backend/internal/application/report"
	tradeapp "github.com/ledger/backend/internal/application/trade"
	"github.com/ledger/backend/internal/infrastructure/config"
	"github.com/ledger/backend/internal/infrastructure/lock"
	"github.com/ledger/backend/internal/infrastructure/logger"
	"github.com/ledger/backend/internal/infrastructure/persistence"
	"github.com/ledger/backend/internal/infrastructure/storage"
	"github.com/ledger/backend/internal/infrastructure/telemetry"
	"github.com/ledger/backend/internal/interfaces/http/handler"
	"github.com/ledger/backend/internal/interfaces/http/router"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Output:      cfg.Log.Output,
		ServiceName: cfg.App.Name,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting ledger backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("lock", cfg.Lock.Driver),
	)

	ctx := context.Background()

	// Telemetry
	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsExportInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	metrics, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter:  mp.Meter(telemetry.TracerName),
		Logger: log,
	})
	if err != nil {
		log.Fatal("Failed to initialize ledger metrics", zap.Error(err))
	}

	// Document store
	store, err := newDocumentStore(ctx, cfg, log, metrics)
	if err != nil {
		log.Fatal("Failed to initialize document store", zap.Error(err))
	}

	// Keyed locks
	locker, closeLocker, err := newLocker(ctx, cfg, log, metrics)
	if err != nil {
		log.Fatal("Failed to initialize locker", zap.Error(err))
	}
	defer closeLocker()

	// Initialize repositories
	tenantRepo := persistence.NewDocumentTenantRepository(store)
	productRepo := persistence.NewDocumentProductRepository(store, log)
	movementRepo := persistence.NewDocumentMovementRepository(store, log)
	invoiceRepo := persistence.NewDocumentInvoiceRepository(store, log)
	customerRepo := persistence.NewDocumentCustomerRepository(store, log)

	if cfg.Bootstrap.Enabled {
		tenant, err := identityapp.EnsureTenant(ctx, tenantRepo,
			cfg.Bootstrap.TenantID, cfg.Bootstrap.TenantName, cfg.Bootstrap.Timezone)
		if err != nil {
			log.Fatal("Failed to bootstrap tenant", zap.Error(err))
		}
		log.Info("Bootstrap tenant ready",
			zap.String("tenant_id", tenant.ID),
			zap.String("timezone", tenant.Location().String()),
		)
	}

	// Initialize services
	gate := identityapp.NewTenantGate(tenantRepo)

	valuationService := inventoryapp.NewValuationService(productRepo, movementRepo, gate, locker)
	valuationService.SetMetrics(metrics)

	productService := catalogapp.NewProductService(productRepo, valuationService, gate, locker)

	invoiceService := tradeapp.NewInvoiceService(invoiceRepo, productRepo, customerRepo, valuationService, gate, locker)
	invoiceService.SetMetrics(metrics)

	customerService := partnerapp.NewCustomerService(customerRepo, gate)
	reportService := reportapp.NewReportService(productRepo, invoiceRepo, gate)

	// Set Gin mode based on environment
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := router.NewEngine(router.EngineConfig{
		Logger:         log,
		ServiceName:    cfg.Telemetry.ServiceName,
		Tracing:        cfg.Telemetry.Enabled,
		CORSOrigins:    cfg.HTTP.CORSAllowOrigins,
		CORSMethods:    cfg.HTTP.CORSAllowMethods,
		CORSHeaders:    cfg.HTTP.CORSAllowHeaders,
		MaxBodyBytes:   cfg.HTTP.MaxBodySize,
		TrustedProxies: cfg.HTTP.TrustedProxies,
	}, router.Handlers{
		Health:    handler.NewHealthHandler(cfg.App.Name),
		Products:  handler.NewProductHandler(productService),
		Inventory: handler.NewInventoryHandler(valuationService),
		Invoices:  handler.NewInvoiceHandler(invoiceService),
		Customers: handler.NewCustomerHandler(customerService),
		Reports:   handler.NewReportHandler(reportService),
	})

	// Create HTTP server with config
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
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := mp.Shutdown(shutdownCtx); err != nil {
		log.Warn("Meter provider shutdown failed", zap.Error(err))
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Warn("Tracer provider shutdown failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// newDocumentStore builds the configured store, bounded by the operation
// timeout and instrumented with store metrics.
func newDocumentStore(ctx context.Context, cfg *config.Config, log *zap.Logger, metrics *telemetry.LedgerMetrics) (storage.DocumentStore, error) {
	var base storage.DocumentStore
	switch cfg.Storage.Driver {
	case config.StorageDriverS3:
		s3Store, err := storage.NewS3DocumentStore(ctx, &cfg.Storage, storage.WithLogger(log))
		if err != nil {
			return nil, err
		}
		if cfg.Storage.EnsureBucket {
			if err := s3Store.EnsureBucket(ctx); err != nil {
				return nil, fmt.Errorf("ensure bucket %s: %w", s3Store.GetBucket(), err)
			}
		}
		log.Info("Using S3 document store", zap.String("bucket", s3Store.GetBucket()))
		base = s3Store
	default:
		log.Warn("Using in-memory document store; data is lost on restart")
		base = storage.NewMemoryDocumentStore()
	}

	return storage.NewInstrumentedStore(
		storage.NewTimeoutStore(base, cfg.Storage.OperationTimeout),
		metrics,
	), nil
}

// newLocker returns the keyed locker and a func releasing its resources
func newLocker(ctx context.Context, cfg *config.Config, log *zap.Logger, metrics *telemetry.LedgerMetrics) (lock.Locker, func(), error) {
	if cfg.Lock.Driver != config.LockDriverRedis {
		return lock.NewLocalLocker(cfg.Lock.WaitTimeout, metrics), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr(), err)
	}

	locker, err := lock.NewRedisLocker(client, lock.RedisLockerConfig{
		KeyPrefix:     cfg.Lock.KeyPrefix,
		TTL:           cfg.Lock.TTL,
		WaitTimeout:   cfg.Lock.WaitTimeout,
		RetryInterval: cfg.Lock.RetryInterval,
	}, log, metrics)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}

	log.Info("Using redis keyed locks", zap.String("addr", cfg.Redis.Addr()))
	return locker, func() {
		if err := client.Close(); err != nil {
			log.Warn("Error closing redis client", zap.Error(err))
		}
	}, nil
}
