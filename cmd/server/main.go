// Package main is the entry point for the navgate API server.
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

	"navgate/internal/config"
	"navgate/internal/core/security"
	"navgate/internal/domain/auth"
	"navgate/internal/infrastructure/cache"
	v1 "navgate/internal/infrastructure/http/v1"
	"navgate/internal/infrastructure/storage/postgres"
	"navgate/internal/infrastructure/storage/postgres/auth_repo"
	"navgate/internal/nav"
	"navgate/pkg/logger"
	"navgate/pkg/numerator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting navgate server")

	// --- Database ---
	pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
		DSN:               cfg.DB.URL,
		MaxConns:          cfg.DB.MaxConns,
		MinConns:          cfg.DB.MinConns,
		MaxConnLifetime:   cfg.DB.MaxConnLifetime,
		MaxConnIdleTime:   cfg.DB.MaxConnIdleTime,
		HealthCheckPeriod: time.Minute,
	})
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)

	// --- Auth ---
	jwtConfig := auth.DefaultJWTConfig(cfg.Auth.JWTSecret)
	jwtConfig.Issuer = cfg.Auth.JWTIssuer
	jwtConfig.AccessTokenTTL = cfg.Auth.AccessTokenTTL
	jwtService := auth.NewJWTService(jwtConfig)

	authService := auth.NewService(
		auth_repo.NewUserRepo(txManager),
		auth_repo.NewRoleRepo(txManager),
		auth_repo.NewPermissionRepo(txManager),
		auth_repo.NewTokenRepo(txManager),
		txManager,
		jwtService,
		auth.DefaultServiceConfig(),
	)

	// --- Document numbering ---
	// The querier is resolved per call so strict sequence bumps join the
	// surrounding transaction.
	numeratorSvc := numerator.NewFromSource(func(ctx context.Context) numerator.Querier {
		return txManager.GetQuerier(ctx)
	})

	// --- Protocol client ---
	navClient, err := buildNAVClient(cfg, txManager)
	if err != nil {
		log.Fatalw("failed to build protocol client", "error", err)
	}

	mode := nav.Mode(cfg.NAV.Mode)
	if mode != nav.ModeProduction && mode != nav.ModeTest {
		log.Fatalw("invalid NAV_MODE", "mode", cfg.NAV.Mode)
	}

	policy, err := buildFinalizePolicy(cfg.Policy)
	if err != nil {
		log.Fatalw("invalid finalize policy", "error", err)
	}

	audit, err := postgres.NewAuditService(txManager)
	if err != nil {
		log.Fatalw("failed to build audit service", "error", err)
	}

	// --- Router ---
	router, err := v1.NewRouter(v1.RouterConfig{
		Pool:               pool,
		TxManager:          txManager,
		Logger:             log,
		JWTValidator:       jwtService,
		AuthService:        authService,
		Numerator:          numeratorSvc,
		NAVClient:          navClient,
		Mode:               mode,
		Audit:              audit,
		FinalizePolicy:     policy,
		IdempotencyEnabled: true,
	})
	if err != nil {
		log.Fatalw("failed to build router", "error", err)
	}

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		log.Infow("server listening", "addr", cfg.HTTP.Addr, "mode", mode)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("forced shutdown", "error", err)
	}

	log.Info("server stopped")
}

// buildNAVClient assembles the protocol client with payload archiving and
// token caching.
func buildNAVClient(cfg *config.Config, txManager *postgres.TxManager) (*cache.CachedClient, error) {
	archiver, err := postgres.NewPayloadArchive(txManager)
	if err != nil {
		return nil, err
	}

	client := nav.NewClient(nav.Config{
		Software: nav.Software{
			ID:         cfg.NAV.SoftwareID,
			Name:       cfg.NAV.SoftwareName,
			Version:    cfg.NAV.SoftwareVersion,
			DevName:    cfg.NAV.SoftwareDevName,
			DevContact: cfg.NAV.SoftwareDevContact,
			DevCountry: cfg.NAV.SoftwareDevCountry,
			DevTaxNum:  cfg.NAV.SoftwareDevTaxNum,
		},
		Timeout:          cfg.NAV.Timeout,
		SubmitTimeout:    cfg.NAV.SubmitTimeout,
		CompressPayloads: cfg.NAV.CompressPayloads,
		Archiver:         archiver,
	})

	return cache.WrapClient(client), nil
}

// buildFinalizePolicy maps policy configuration onto a period policy.
func buildFinalizePolicy(cfg config.PolicyConfig) (security.FinalizePolicy, error) {
	closedUntil, err := cfg.ClosedUntilTime()
	if err != nil {
		return nil, err
	}

	switch cfg.Mode {
	case "strict":
		return security.NewStrictPolicy(closedUntil), nil
	case "flexible", "":
		return security.NewFlexiblePolicy(30*24*time.Hour, closedUntil), nil
	case "open":
		return security.OpenPolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown policy mode %q", cfg.Mode)
	}
}
