package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"verigate/internal/audit"
	"verigate/internal/document"
	documentmetrics "verigate/internal/document/metrics"
	"verigate/internal/identity"
	"verigate/internal/kyc"
	kycmetrics "verigate/internal/kyc/metrics"
	kycservice "verigate/internal/kyc/service"
	"verigate/internal/objectstore"
	"verigate/internal/platform/config"
	"verigate/internal/platform/httpserver"
	"verigate/internal/platform/logger"
	platformmetrics "verigate/internal/platform/metrics"
	"verigate/internal/platform/postgres"
	"verigate/internal/platform/redis"
	ratelimitmetrics "verigate/internal/ratelimit/metrics"
	ratelimitservice "verigate/internal/ratelimit/service"
	"verigate/internal/ratelimit/store/bucket"
	"verigate/internal/token"
	httptransport "verigate/internal/transport/http"
)

// main wires configuration, stores and services, then runs the HTTP server
// until a shutdown signal. Business logic lives in the internal packages;
// this file only decides which backing implementations to use.
func main() {
	log := logger.New()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Error("configuration invalid", "error", err)
		os.Exit(1)
	}
	if cfg.JWTSigningKeyGenerated {
		log.Warn("no signing key configured, generated an ephemeral one; issued tokens will not survive a restart")
	}

	// Durable stores. An unconfigured database means in-memory stores, which
	// is only acceptable outside production.
	db, err := postgres.Open(cfg.DatabaseURL)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}

	var (
		principalStore identity.Store
		caseStore      kyc.Store
		documentStore  document.Store
		auditStore     audit.Store
	)
	if db != nil {
		defer db.Close()
		principalStore = identity.NewPostgresStore(db)
		caseStore = kyc.NewPostgresStore(db)
		documentStore = document.NewPostgresStore(db)
		auditStore = audit.NewPostgresStore(db)
		log.Info("using postgres stores")
	} else {
		if cfg.IsProduction() {
			log.Error("DATABASE_URL is required in production")
			os.Exit(1)
		}
		principalStore = identity.NewInMemoryStore()
		caseStore = kyc.NewInMemoryStore()
		documentStore = document.NewInMemoryStore()
		auditStore = audit.NewInMemoryStore()
		log.Warn("no database configured, using in-memory stores")
	}

	// Rate-limit backend: Redis when configured, per-process memory otherwise.
	var bucketStore ratelimitservice.BucketStore
	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		bucketStore = bucket.NewRedisBucketStore(redisClient.Client)
		log.Info("using redis rate-limit store")
	} else {
		bucketStore = bucket.NewInMemoryBucketStore()
		log.Info("using in-memory rate-limit store")
	}

	// Optional audit mirror to Kafka.
	var sink audit.Sink
	if len(cfg.Kafka.Brokers) > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		kafkaSink, err := audit.NewKafkaSink(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic)
		cancel()
		if err != nil {
			log.Error("kafka connection failed", "error", err)
			os.Exit(1)
		}
		sink = kafkaSink
		log.Info("mirroring audit records to kafka", "topic", cfg.Kafka.Topic)
	}
	recorder := audit.NewRecorder(auditStore, sink, log)

	verifier := token.NewService(cfg.JWTSigningKey, "verigate")
	loader := identity.NewLoader(principalStore, log, cfg.StoreTimeout)
	limiter := ratelimitservice.NewService(bucketStore, ratelimitservice.Limits{
		GeneralWindow: cfg.RateLimit.Window,
		GeneralMax:    cfg.RateLimit.MaxRequests,
		UploadWindow:  cfg.RateLimit.UploadWindow,
		UploadMax:     cfg.RateLimit.UploadMax,
	}, log, ratelimitmetrics.New())

	// The lock set is shared: submissions and uploads both guard the
	// single-open-case invariant per principal.
	locks := kyc.NewKeyedLocks()
	caseService := kycservice.NewService(caseStore, recorder, auditStore, log,
		kycmetrics.New(), locks, cfg.ApprovalValidity, cfg.StoreTimeout)
	documentService := document.NewService(documentStore, objectstore.NewInMemoryStore(),
		caseStore, recorder, log, documentmetrics.New(), locks, cfg.MaxDocumentBytes, cfg.StoreTimeout)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:      log,
		Verifier:    verifier,
		Loader:      loader,
		Limiter:     limiter,
		HTTPMetrics: platformmetrics.New(),
		Cases:       httptransport.NewCaseHandler(caseService, log),
		Documents:   httptransport.NewDocumentHandler(documentService, log, cfg.MaxDocumentBytes),
	})

	srv := httpserver.New(cfg.Addr, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting verigate", "addr", cfg.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Error("server failed", "error", err)
		os.Exit(1)
	case sig := <-quit:
		log.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}

	// Drain pending audit records after the last request has completed.
	recorder.Close()
}
