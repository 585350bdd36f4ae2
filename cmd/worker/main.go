// Package main is the entry point for the navgate background worker.
//
// The worker settles in-flight submission lifecycles: it claims the armed
// status trigger, polls the authority for every waiting transaction and
// reconciles timed-out sends. The trigger re-arms itself while anything
// is still pending, so a crashed pass is retried on the next tick.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"navgate/internal/config"
	"navgate/internal/domain/catalogs/company"
	"navgate/internal/domain/catalogs/currency"
	"navgate/internal/domain/catalogs/partner"
	"navgate/internal/domain/credentials"
	"navgate/internal/domain/invoice"
	"navgate/internal/domain/submission"
	"navgate/internal/infrastructure/cache"
	"navgate/internal/infrastructure/storage/postgres"
	"navgate/internal/infrastructure/storage/postgres/catalog_repo"
	"navgate/internal/infrastructure/storage/postgres/document_repo"
	"navgate/internal/infrastructure/storage/postgres/register_repo"
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
	log.Info("starting navgate worker")

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

	txManager := postgres.NewTxManager(pool)

	mode := nav.Mode(cfg.NAV.Mode)
	if mode != nav.ModeProduction && mode != nav.ModeTest {
		log.Fatalw("invalid NAV_MODE", "mode", cfg.NAV.Mode)
	}

	submissionSvc, err := buildSubmissionService(cfg, txManager, pool, mode)
	if err != nil {
		log.Fatalw("failed to build submission service", "error", err)
	}

	triggers := postgres.NewTriggerStore(pool, postgres.TriggerKindStatusUpdate)

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(cfg.Worker.PollInterval)
	defer ticker.Stop()

	log.Infow("worker polling", "interval", cfg.Worker.PollInterval, "mode", mode)

	for {
		select {
		case <-runCtx.Done():
			log.Info("worker stopped")
			return
		case <-ticker.C:
			runPass(runCtx, log, triggers, submissionSvc)
		}
	}
}

// runPass claims the due trigger and, when one was due, runs one status
// update pass. Claiming uses SKIP LOCKED, so concurrent workers never run
// the same pass twice.
func runPass(ctx context.Context, log *logger.Logger, triggers *postgres.TriggerStore, svc *submission.Service) {
	claimed, err := triggers.ClaimDue(ctx, time.Now().UTC())
	if err != nil {
		log.Errorw("claim trigger", "error", err)
		return
	}
	if !claimed {
		return
	}

	log.Info("running status update pass")
	if err := svc.UpdateStatus(ctx, submission.ActorWorker); err != nil {
		log.Errorw("status update pass", "error", err)
	}
}

// buildSubmissionService assembles the submission pipeline the same way
// the API server does, minus the HTTP layer.
func buildSubmissionService(cfg *config.Config, txManager *postgres.TxManager, pool *postgres.Pool, mode nav.Mode) (*submission.Service, error) {
	archiver, err := postgres.NewPayloadArchive(txManager)
	if err != nil {
		return nil, err
	}

	client := cache.WrapClient(nav.NewClient(nav.Config{
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
	}))

	numeratorSvc := numerator.NewFromSource(func(ctx context.Context) numerator.Querier {
		return txManager.GetQuerier(ctx)
	})

	currencySvc := currency.NewService(catalog_repo.NewCurrencyRepo(txManager), txManager)
	companySvc := company.NewService(catalog_repo.NewCompanyRepo(txManager), txManager, numeratorSvc)
	partnerSvc := partner.NewService(catalog_repo.NewPartnerRepo(txManager), txManager, numeratorSvc)
	credentialsSvc := credentials.NewService(catalog_repo.NewCredentialsRepo(txManager), txManager, companySvc, client)

	invoiceRepo := document_repo.NewInvoiceRepo(txManager)
	guard, err := invoice.NewGuardEvaluator()
	if err != nil {
		return nil, err
	}
	checker := invoice.NewChecker(partnerSvc, currencySvc, guard)

	submissionRepo := document_repo.NewSubmissionRepo(txManager)
	historyRepo := register_repo.NewStatusHistoryRepo(txManager)
	builder := submission.NewBuilder(invoiceRepo, companySvc, partnerSvc, currencySvc, invoice.NewXMLRenderer())
	machine := submission.NewMachine(submissionRepo, historyRepo, invoiceRepo, builder, credentialsSvc, client, txManager, mode)
	triggers := postgres.NewTriggerStore(pool, postgres.TriggerKindStatusUpdate)

	return submission.NewService(machine, submissionRepo, historyRepo, invoiceRepo, companySvc, checker, triggers), nil
}
