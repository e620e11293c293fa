// Command signator-server serves the document signing HTTP API and a gRPC
// health endpoint.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/and161185/signator/internal/blob"
	"github.com/and161185/signator/internal/config"
	"github.com/and161185/signator/internal/limiter"
	"github.com/and161185/signator/internal/llm"
	"github.com/and161185/signator/internal/logging"
	"github.com/and161185/signator/internal/migrate"
	"github.com/and161185/signator/internal/pdfdoc"
	"github.com/and161185/signator/internal/repository/postgres"
	grpcserver "github.com/and161185/signator/internal/server/grpc"
	httpserver "github.com/and161185/signator/internal/server/http"
	"github.com/and161185/signator/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	format := cfg.Log.Format
	if cfg.Server.Dev {
		format = "console"
	}
	logger, err := logging.New(cfg.Log.Level, format)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Server.Addr),
		zap.String("healthAddr", cfg.Server.HealthAddr),
		zap.String("storage", cfg.Storage.Backend),
		zap.Bool("summaries", cfg.SummariesEnabled()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate.Up(ctx, cfg.DB.DSN); err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}

	pool, err := pgxpool.New(ctx, cfg.DB.DSN)
	if err != nil {
		logger.Fatal("pgxpool.New", zap.Error(err))
	}
	defer pool.Close()

	// Repositories
	db := &postgres.DB{Pool: pool}
	userRepo := postgres.NewUserRepo(db)
	docRepo := postgres.NewDocumentRepo(db)
	fieldRepo := postgres.NewFieldRepo(db)
	reqRepo := postgres.NewRequestRepo(db)

	lim := limiter.NewPG(pool, limiter.Policy{
		Window:   cfg.Auth.LoginWindow,
		MaxFails: cfg.Auth.LoginMaxFails,
		BlockFor: cfg.Auth.LoginBlockFor,
	})

	blobs, err := newBlobStore(ctx, cfg)
	if err != nil {
		logger.Fatal("blob store", zap.Error(err))
	}

	var completer llm.Completer
	if cfg.SummariesEnabled() {
		c, err := llm.NewOpenAI(llm.Config{
			APIKey:    cfg.LLM.APIKey,
			BaseURL:   cfg.LLM.BaseURL,
			Model:     cfg.LLM.Model,
			MaxTokens: cfg.LLM.MaxTokens,
			Timeout:   cfg.LLM.Timeout,
			RPS:       cfg.LLM.RPS,
		})
		if err != nil {
			logger.Fatal("llm client", zap.Error(err))
		}
		completer = c
	}

	// Services
	authSvc := service.NewAuthService(userRepo, []byte(cfg.Auth.JWTKey), cfg.Auth.AccessTTL, lim)
	docSvc := service.NewDocumentService(docRepo, fieldRepo, reqRepo, blobs, cfg.Storage.MaxUploadBytes, logger)
	stamper := service.NewStamperService(docRepo, fieldRepo, reqRepo, blobs, pdfdoc.Stamper{}, cfg.Signing.TimeFormat, logger)

	deps := httpserver.Deps{
		Auth:      authSvc,
		Documents: docSvc,
		Fields:    service.NewFieldService(docRepo, fieldRepo),
		Requests:  service.NewSigningService(docRepo, reqRepo, userRepo),
		Signer:    stamper,
		Summaries: service.NewSummaryService(docSvc, docRepo, completer, logger),
		Users:     service.NewUserService(userRepo),
	}

	if !cfg.Server.Dev {
		gin.SetMode(gin.ReleaseMode)
	}
	api := httpserver.New(logger, deps, cfg.Storage.MaxUploadBytes)
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Health
	health := grpcserver.NewHealth(logger, cfg.Server.Dev)
	hlis, err := net.Listen("tcp", cfg.Server.HealthAddr)
	if err != nil {
		logger.Fatal("listen health", zap.Error(err))
	}
	go health.Watch(ctx, db, 5*time.Second)

	errCh := make(chan error, 2)
	go func() {
		logger.Info("health listening", zap.String("addr", cfg.Server.HealthAddr))
		errCh <- health.Serve(hlis)
	}()
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	logger.Info("shutting down")
	health.SetServing(false)
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	health.Shutdown(shutdownTimeout)
	logger.Info("shutdown complete")
}

// newBlobStore picks the configured backend and seals it when an encryption
// key is set.
func newBlobStore(ctx context.Context, cfg *config.Config) (blob.Store, error) {
	var (
		store blob.Store
		err   error
	)
	switch cfg.Storage.Backend {
	case config.BackendS3:
		store, err = blob.NewS3(ctx, blob.S3Config{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
		})
	default:
		store, err = blob.NewFS(cfg.Storage.Dir)
	}
	if err != nil {
		return nil, err
	}
	if len(cfg.Storage.EncryptionKey) == 0 {
		return store, nil
	}
	return blob.NewSealed(store, cfg.Storage.EncryptionKey)
}
