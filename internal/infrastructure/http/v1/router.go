// Package v1 provides HTTP API version 1.
package v1

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"navgate/internal/core/numerator"
	"navgate/internal/core/security"
	"navgate/internal/domain/auth"
	"navgate/internal/domain/catalogs/company"
	"navgate/internal/domain/catalogs/currency"
	"navgate/internal/domain/catalogs/partner"
	"navgate/internal/domain/catalogs/product"
	"navgate/internal/domain/catalogs/unit"
	"navgate/internal/domain/credentials"
	"navgate/internal/domain/invoice"
	"navgate/internal/domain/reports"
	"navgate/internal/domain/submission"
	"navgate/internal/infrastructure/http/v1/handlers"
	"navgate/internal/infrastructure/http/v1/middleware"
	"navgate/internal/infrastructure/storage/postgres"
	"navgate/internal/infrastructure/storage/postgres/catalog_repo"
	"navgate/internal/infrastructure/storage/postgres/document_repo"
	"navgate/internal/infrastructure/storage/postgres/register_repo"
	"navgate/internal/infrastructure/storage/postgres/report_repo"
	"navgate/internal/nav"
	"navgate/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Pool is the PostgreSQL connection pool (health checks, triggers)
	Pool *postgres.Pool

	// TxManager runs all repository work
	TxManager *postgres.TxManager

	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// AuthService for authentication endpoints
	AuthService *auth.Service

	// Numerator for document number generation
	Numerator numerator.Generator

	// NAVClient is the invoice data reporting protocol client
	NAVClient submission.Client

	// Audit writes the mutation trail (optional)
	Audit *postgres.AuditService

	// Mode selects the authority environment for new submissions
	Mode nav.Mode

	// FinalizePolicy restricts finalization of backdated invoices (optional)
	FinalizePolicy security.FinalizePolicy

	// IdempotencyEnabled enables idempotency middleware
	IdempotencyEnabled bool

	// IdempotencyTTL is how long stored idempotent responses replay
	IdempotencyTTL time.Duration
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	// API v1
	api := router.Group("/api/v1")

	registerAuthRoutes(api, cfg)

	protected := api.Group("")
	protected.Use(middleware.Auth(cfg.JWTValidator)) // 1. Validate JWT
	protected.Use(middleware.UserContext())          // 2. Add UserID to context for domain layer

	if cfg.IdempotencyEnabled {
		ttl := cfg.IdempotencyTTL
		if ttl <= 0 {
			ttl = 10 * time.Minute
		}
		store := postgres.NewIdempotencyStore(cfg.Pool, cfg.TxManager, ttl)
		protected.Use(middleware.Idempotency(store))
	}

	if err := registerAPIRoutes(protected, cfg); err != nil {
		return nil, err
	}

	return router, nil
}

// registerAuthRoutes registers authentication endpoints.
func registerAuthRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	if cfg.AuthService == nil {
		return
	}

	baseHandler := handlers.NewBaseHandler(auditorOf(cfg))
	authHandler := handlers.NewAuthHandler(baseHandler, cfg.AuthService)

	// Public auth endpoints (no JWT required)
	publicAuth := rg.Group("/auth")

	// Protected auth endpoints (JWT required)
	protectedAuth := rg.Group("/auth")
	protectedAuth.Use(middleware.Auth(cfg.JWTValidator))

	authHandler.RegisterRoutes(publicAuth, protectedAuth)
}

// registerAPIRoutes builds the domain object graph and wires all
// authenticated endpoints.
// auditorOf hides the typed-nil service behind a nil interface.
func auditorOf(cfg RouterConfig) handlers.Auditor {
	if cfg.Audit == nil {
		return nil
	}
	return cfg.Audit
}

func registerAPIRoutes(rg *gin.RouterGroup, cfg RouterConfig) error {
	baseHandler := handlers.NewBaseHandler(auditorOf(cfg))
	txm := cfg.TxManager

	// --- Catalog services ---
	currencyRepo := catalog_repo.NewCurrencyRepo(txm)
	currencySvc := currency.NewService(currencyRepo, txm)

	unitRepo := catalog_repo.NewUnitRepo(txm)
	unitSvc := unit.NewService(unitRepo, txm, cfg.Numerator)

	companyRepo := catalog_repo.NewCompanyRepo(txm)
	companySvc := company.NewService(companyRepo, txm, cfg.Numerator)

	partnerRepo := catalog_repo.NewPartnerRepo(txm)
	partnerSvc := partner.NewService(partnerRepo, txm, cfg.Numerator)

	productRepo := catalog_repo.NewProductRepo(txm)
	productSvc := product.NewService(productRepo, txm, cfg.Numerator)

	credentialsRepo := catalog_repo.NewCredentialsRepo(txm)
	credentialsSvc := credentials.NewService(credentialsRepo, txm, companySvc, cfg.NAVClient)

	// Changing a company's tax number invalidates its technical user at the
	// authority, so the credential sets registered under the old number are
	// deactivated until replacements are entered.
	companySvc.Hooks().OnBeforeUpdate(func(ctx context.Context, comp *company.Company) error {
		current, err := companyRepo.GetByID(ctx, comp.ID)
		if err != nil {
			return err
		}
		if current.VATNumber != comp.VATNumber {
			return credentialsSvc.DeactivateForCompany(ctx, comp.ID)
		}
		return nil
	})

	// --- Invoice domain ---
	invoiceRepo := document_repo.NewInvoiceRepo(txm)
	invoiceSvc := invoice.NewService(invoiceRepo, txm, cfg.Numerator).
		WithFinalizePolicy(cfg.FinalizePolicy)

	guard, err := invoice.NewGuardEvaluator()
	if err != nil {
		return err
	}
	checker := invoice.NewChecker(partnerSvc, currencySvc, guard)

	// --- Submission pipeline ---
	submissionRepo := document_repo.NewSubmissionRepo(txm)
	historyRepo := register_repo.NewStatusHistoryRepo(txm)
	builder := submission.NewBuilder(invoiceRepo, companySvc, partnerSvc, currencySvc, invoice.NewXMLRenderer())
	machine := submission.NewMachine(submissionRepo, historyRepo, invoiceRepo, builder, credentialsSvc, cfg.NAVClient, txm, cfg.Mode)
	triggers := postgres.NewTriggerStore(cfg.Pool, postgres.TriggerKindStatusUpdate)
	submissionSvc := submission.NewService(machine, submissionRepo, historyRepo, invoiceRepo, companySvc, checker, triggers)

	// --- Reports ---
	reportSvc := reports.NewService(report_repo.NewReportRepo(txm))

	// --- Catalog routes ---
	catalogs := rg.Group("/catalog")

	{
		group := catalogs.Group("/currencies")
		handler := handlers.NewCurrencyHandler(baseHandler, currencySvc)
		RegisterCatalogRoutes(group, handler, "catalog:currency")
		group.POST("/:id/rate", middleware.RequirePermission("catalog:currency:update"), handler.UpdateRate)
	}

	{
		group := catalogs.Group("/units")
		RegisterCatalogRoutes(group, handlers.NewUnitHandler(baseHandler, unitSvc), "catalog:unit")
	}

	{
		group := catalogs.Group("/companies")
		handler := handlers.NewCompanyHandler(baseHandler, companySvc)
		RegisterCatalogRoutes(group, handler, "catalog:company")
		group.GET("/default", middleware.RequirePermission("catalog:company:read"), handler.GetDefault)
		group.POST("/:id/default", middleware.RequirePermission("catalog:company:update"), handler.SetDefault)
	}

	{
		group := catalogs.Group("/partners")
		RegisterCatalogRoutes(group, handlers.NewPartnerHandler(baseHandler, partnerSvc), "catalog:partner")
	}

	{
		group := catalogs.Group("/products")
		RegisterCatalogRoutes(group, handlers.NewProductHandler(baseHandler, productSvc), "catalog:product")
	}

	// --- Credential routes ---
	{
		group := rg.Group("/credentials")
		handler := handlers.NewCredentialsHandler(baseHandler, credentialsSvc)
		RegisterCatalogRoutes(group, handler, "catalog:credentials")
		group.GET("/by-company", middleware.RequirePermission("catalog:credentials:read"), handler.ListByCompany)
		group.POST("/:id/activate", middleware.RequirePermission("catalog:credentials:manage"), handler.Activate)
		group.POST("/:id/test", middleware.RequirePermission("catalog:credentials:manage"), handler.TestConnection)
	}

	// --- Invoice routes ---
	{
		group := rg.Group("/invoices")
		handler := handlers.NewInvoiceHandler(baseHandler, invoiceSvc)
		group.GET("", middleware.RequirePermission("document:invoice:read"), handler.List)
		group.POST("", middleware.RequirePermission("document:invoice:create"), handler.Create)
		group.GET("/:id", middleware.RequirePermission("document:invoice:read"), handler.Get)
		group.PUT("/:id", middleware.RequirePermission("document:invoice:update"), handler.Update)
		group.DELETE("/:id", middleware.RequirePermission("document:invoice:delete"), handler.Delete)
		group.POST("/:id/finalize", middleware.RequirePermission("document:invoice:finalize"), handler.Finalize)
	}

	// --- Submission routes ---
	{
		group := rg.Group("/submissions")
		handler := handlers.NewSubmissionHandler(baseHandler, submissionSvc)
		group.POST("/check", middleware.RequirePermission("submission:submit"), handler.Check)
		group.POST("", middleware.RequirePermission("submission:submit"), handler.Submit)
		group.POST("/cancel", middleware.RequirePermission("submission:cancel"), handler.Cancel)
		group.POST("/abort/:invoiceId", middleware.RequirePermission("submission:cancel"), handler.Abort)
		group.POST("/update-status", middleware.RequirePermission("submission:submit"), handler.UpdateStatus)
		group.GET("/transactions", middleware.RequirePermission("submission:read"), handler.ListTransactions)
		group.GET("/transactions/:id", middleware.RequirePermission("submission:read"), handler.GetTransaction)
		group.GET("/history/:invoiceId", middleware.RequirePermission("submission:read"), handler.History)
	}

	// --- Audit trail ---
	if cfg.Audit != nil {
		group := rg.Group("/audit")
		handler := handlers.NewAuditHandler(baseHandler, cfg.Audit)
		group.GET("/:entityType/:id", middleware.RequirePermission("audit:read"), handler.History)
	}

	// --- Report routes ---
	{
		group := rg.Group("/reports")
		handler := handlers.NewReportsHandler(baseHandler, reportSvc)
		group.GET("/invoice-journal", middleware.RequirePermission("report:invoices:read"), handler.InvoiceJournal)
		group.GET("/submission-activity", middleware.RequirePermission("report:submissions:read"), handler.SubmissionActivity)
	}

	return nil
}
