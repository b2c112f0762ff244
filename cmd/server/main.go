package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/banking/sar-workbench/internal/api"
	"github.com/banking/sar-workbench/internal/auditlog"
	"github.com/banking/sar-workbench/internal/config"
	"github.com/banking/sar-workbench/internal/crypto"
	"github.com/banking/sar-workbench/internal/domain"
	"github.com/banking/sar-workbench/internal/events"
	"github.com/banking/sar-workbench/internal/logging"
	"github.com/banking/sar-workbench/internal/metrics"
	"github.com/banking/sar-workbench/internal/narrative"
	"github.com/banking/sar-workbench/internal/referencedata"
	"github.com/banking/sar-workbench/internal/repository/elasticsearch"
	"github.com/banking/sar-workbench/internal/repository/postgres"
	"github.com/banking/sar-workbench/internal/repository/s3"
	"github.com/banking/sar-workbench/internal/service"
	"github.com/banking/sar-workbench/internal/session"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// 1. Config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Logger
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	sugar.Info("Starting SAR Workbench Service...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Reference data and narrative formatter
	catalog, err := referencedata.Load(cfg.Reference.DatasetPath)
	if err != nil {
		sugar.Fatalf("Failed to load reference data: %v", err)
	}
	formatter, err := narrative.NewPlaceholderFormatter()
	if err != nil {
		sugar.Fatalf("Failed to build narrative formatter: %v", err)
	}
	defaultTemplate, err := narrative.ParseTemplateType(cfg.Workflow.DefaultTemplate)
	if err != nil {
		sugar.Fatalf("Invalid workflow.default_template: %v", err)
	}
	defaultRole, err := domain.ParseRole(cfg.Workflow.DefaultRole)
	if err != nil {
		sugar.Fatalf("Invalid workflow.default_role: %v", err)
	}

	// 4. Crypto / Security
	var (
		encryptor *crypto.FieldEncryptor
		signer    auditlog.Signer
	)
	if cfg.Encryption.Enabled() {
		encryptor, err = crypto.NewFieldEncryptor(
			cfg.Encryption.EncryptionKeysBase64,
			cfg.Encryption.CurrentKeyVersion,
			cfg.Encryption.AuditHMACSecret,
		)
		if err != nil {
			sugar.Fatalf("Failed to initialize encryptor: %v", err)
		}
		signer = encryptor
		sugar.Infof("Audit signing enabled (key version %d)", encryptor.CurrentKeyVersion())
	} else {
		sugar.Warn("Encryption keys not configured - audit events are unsigned")
	}

	// 5. Metrics
	m := metrics.New()
	if err := m.Register(prometheus.DefaultRegisterer); err != nil {
		sugar.Fatalf("Failed to register metrics: %v", err)
	}

	// 6. Optional mirrors
	var (
		sinks  service.Sinks
		ledger service.LedgerReader
		search service.EventSearcher
	)

	if cfg.Database.Enabled {
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			sugar.Fatalf("Failed to connect to Postgres: %v", err)
		}
		defer pool.Close()
		if cfg.Database.EnsureSchema {
			if err := postgres.EnsureSchema(ctx, pool); err != nil {
				sugar.Fatalf("Failed to apply ledger schema: %v", err)
			}
		}
		auditRepo := postgres.NewAuditRepository(pool)
		sinks.Store = auditRepo
		sinks.Access = postgres.NewAccessLogRepository(pool)
		ledger = auditRepo

		if cfg.Kafka.LedgerConsumer {
			consumer, err := events.NewLedgerConsumer(cfg.Kafka, auditRepo, logger)
			if err != nil {
				sugar.Fatalf("Failed to create Kafka consumer: %v", err)
			}
			defer consumer.Close()
			go func() {
				sugar.Info("Starting Kafka ledger consumer loop...")
				if err := consumer.Start(ctx); err != nil {
					sugar.Errorf("Kafka consumer failed: %v", err)
				}
			}()
			// The consumer owns ledger writes.
			sinks.Store = nil
		}
	}

	if cfg.Elasticsearch.Enabled {
		esRepo, err := elasticsearch.NewSearchRepository(cfg.Elasticsearch)
		if err != nil {
			sugar.Warnf("Failed to connect to Elasticsearch: %v (Search capabilities will be limited)", err)
		} else {
			sinks.Index = esRepo
			search = esRepo
		}
	}

	if cfg.Kafka.Enabled {
		publisher, err := events.NewAuditPublisher(cfg.Kafka)
		if err != nil {
			sugar.Fatalf("Failed to create Kafka publisher: %v", err)
		}
		defer publisher.Close()
		sinks.Publisher = publisher
	}

	if cfg.S3.Enabled {
		var sealer s3.Sealer
		if encryptor != nil {
			sealer = encryptor
		}
		archive, err := s3.NewArchiveRepository(ctx, cfg.S3, sealer)
		if err != nil {
			sugar.Fatalf("Failed to initialize S3 repository: %v", err)
		}
		sinks.Archive = archive
	}

	// 7. Services
	sessionOpts := session.Options{
		DefaultAlertID: cfg.Workflow.DefaultAlertID,
		AnalystUser:    cfg.Workflow.AnalystUser,
		ReviewerUser:   cfg.Workflow.ReviewerUser,
		InitialRole:    defaultRole,
		Clock:          time.Now,
		Signer:         signer,
	}
	workbench := service.NewWorkbenchService(catalog, formatter, service.Options{
		Session: sessionOpts,
		MaskPII: cfg.Logging.EnablePIIMask,
	}, sinks, m, logger)
	auditService := service.NewAuditService(ledger, search, sinks.Access, signer, logger)

	// 8. API Server
	var guard echo.MiddlewareFunc
	if cfg.Auth.Enabled {
		guard = jwtGuard(cfg.Auth, sugar)
	} else {
		sugar.Warn("JWT Authentication DISABLED")
	}

	e := api.NewRouter(api.RouterConfig{
		Workbench:       workbench,
		Audit:           auditService,
		Reference:       catalog,
		DefaultTemplate: defaultTemplate,
		Metrics:         promhttp.Handler(),
		Guard:           guard,
	})
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	// Start Server
	go func() {
		if err := e.Start(cfg.Server.Addr()); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("Shutting down the server: %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	sugar.Info("Shutting down service...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		sugar.Errorf("Server shutdown: %v", err)
	}
	workbench.Close()
	cancel()
}

// jwtGuard loads the public key named in config. A missing or unreadable key is
// fatal once auth is enabled.
func jwtGuard(cfg config.AuthConfig, sugar *zap.SugaredLogger) echo.MiddlewareFunc {
	keyData, err := os.ReadFile(cfg.JWTPublicKeyPath)
	if err != nil {
		sugar.Fatalf("JWT public key not found at %s: %v", cfg.JWTPublicKeyPath, err)
	}
	guard, err := api.NewJWTGuard(keyData, cfg.JWTIssuer)
	if err != nil {
		sugar.Fatalf("Failed to build JWT guard: %v", err)
	}

	sugar.Infof("JWT Authentication enabled for /sessions/* and /audit/* (issuer %q)", cfg.JWTIssuer)
	return guard
}
