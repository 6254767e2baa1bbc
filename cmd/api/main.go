package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/Vigilancia-api/internal/application/billing"
	"github.com/jhoicas/Vigilancia-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/Vigilancia-api/internal/interfaces/http"
	"github.com/jhoicas/Vigilancia-api/internal/observability"
	"github.com/jhoicas/Vigilancia-api/pkg/config"
	"github.com/jhoicas/Vigilancia-api/pkg/logger"
	"github.com/jhoicas/Vigilancia-api/pkg/money"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if cfg.DB.AutoMigrate {
		if _, err := postgres.NewMigrator(pool, os.DirFS(cfg.DB.MigrationsDir), log).Run(ctx); err != nil {
			log.Fatal().Err(err).Msg("migraciones")
		}
	}

	clientRepo := postgres.NewClientRepository(pool)
	siteRepo := postgres.NewSiteRepository(pool)
	invoiceRepo := postgres.NewInvoiceRepository(pool)
	paymentRepo := postgres.NewPaymentRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	metrics := observability.NewMetrics()
	formatter := money.NewFormatter(cfg.Billing.Locale)
	billingCfg := billing.Config{
		InvoicePrefix:     cfg.Billing.InvoicePrefix,
		ServiceLabel:      cfg.Billing.ServiceLabel,
		MaxNumberAttempts: cfg.Billing.MaxNumberAttempts,
	}

	previewUC := billing.NewPreviewUseCase(clientRepo, siteRepo, invoiceRepo, billingCfg, log)
	issuerUC := billing.NewBulkIssueUseCase(txRunner, clientRepo, siteRepo, invoiceRepo, billingCfg, metrics, log)
	invoiceUC := billing.NewInvoiceUseCase(txRunner, clientRepo, siteRepo, invoiceRepo, paymentRepo, billingCfg, log)
	paymentUC := billing.NewPaymentUseCase(txRunner, invoiceRepo, paymentRepo, billingCfg, formatter, metrics, log)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Vigilancia Billing API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		if err := pool.Ping(c.Context()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "service": cfg.App.Name})
		}
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Preview:  previewUC,
		Issuer:   issuerUC,
		Invoices: invoiceUC,
		Payments: paymentUC,
		Metrics:  metrics,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
