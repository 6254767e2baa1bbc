package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/jhoicas/Vigilancia-api/internal/application/billing"
	"github.com/jhoicas/Vigilancia-api/internal/domain/entity"
	"github.com/jhoicas/Vigilancia-api/internal/infrastructure/postgres"
	"github.com/jhoicas/Vigilancia-api/pkg/config"
	"github.com/jhoicas/Vigilancia-api/pkg/logger"
	"github.com/jhoicas/Vigilancia-api/pkg/money"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "billing",
	Short: "Facturación mensual y conciliación de pagos de vigilancia",
	Long: `billing opera el motor de facturación desde la terminal:
previsualiza el período, emite las facturas seleccionadas y consulta
el estado de cobro de una factura.

Usa la misma configuración que la API (DATABASE_URL, DB_*, BILLING_*).`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute corre el comando raíz.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "nivel de log (trace, debug, info, warn, error)")
}

// engine casos de uso cableados contra PostgreSQL.
type engine struct {
	cfg       *config.Config
	pool      *pgxpool.Pool
	preview   *billing.PreviewUseCase
	issuer    *billing.BulkIssueUseCase
	payments  *billing.PaymentUseCase
	formatter *money.Formatter
	log       *logger.Logger
}

func (e *engine) Close() { e.pool.Close() }

func newEngine(ctx context.Context, cmd *cobra.Command) (*engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("cargar configuración: %w", err)
	}
	level, _ := cmd.Flags().GetString("log-level")
	if level == "" {
		level = cfg.App.LogLevel
	}
	log := logger.New(logger.Config{Env: "development", Level: level, Out: os.Stderr})

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
	}

	clientRepo := postgres.NewClientRepository(pool)
	siteRepo := postgres.NewSiteRepository(pool)
	invoiceRepo := postgres.NewInvoiceRepository(pool)
	paymentRepo := postgres.NewPaymentRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	formatter := money.NewFormatter(cfg.Billing.Locale)
	billingCfg := billing.Config{
		InvoicePrefix:     cfg.Billing.InvoicePrefix,
		ServiceLabel:      cfg.Billing.ServiceLabel,
		MaxNumberAttempts: cfg.Billing.MaxNumberAttempts,
	}
	return &engine{
		cfg:       cfg,
		pool:      pool,
		preview:   billing.NewPreviewUseCase(clientRepo, siteRepo, invoiceRepo, billingCfg, log),
		issuer:    billing.NewBulkIssueUseCase(txRunner, clientRepo, siteRepo, invoiceRepo, billingCfg, nil, log),
		payments:  billing.NewPaymentUseCase(txRunner, invoiceRepo, paymentRepo, billingCfg, formatter, nil, log),
		formatter: formatter,
		log:       log,
	}, nil
}

func addPeriodFlags(cmd *cobra.Command) {
	cmd.Flags().Int("month", 0, "mes a facturar (1-12)")
	cmd.Flags().Int("year", 0, "año a facturar")
	_ = cmd.MarkFlagRequired("month")
	_ = cmd.MarkFlagRequired("year")
}

func periodFromFlags(cmd *cobra.Command) (entity.Period, error) {
	month, _ := cmd.Flags().GetInt("month")
	year, _ := cmd.Flags().GetInt("year")
	p := entity.Period{Month: month, Year: year}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}
