package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/jhoicas/Vigilancia-api/internal/application/billing"
	"github.com/jhoicas/Vigilancia-api/internal/observability"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Preview  *billing.PreviewUseCase
	Issuer   *billing.BulkIssueUseCase
	Invoices *billing.InvoiceUseCase
	Payments *billing.PaymentUseCase
	Metrics  *observability.Metrics // nil = /metrics responde 503
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics.Handler()))

	api := app.Group("/api")

	// Facturación mensual: previsualización y emisión masiva
	billingGroup := api.Group("/billing")
	billingHandler := NewBillingHandler(deps.Preview, deps.Issuer)
	billingGroup.Get("/preview", billingHandler.Preview)
	billingGroup.Get("/preview/:clientId", billingHandler.PreviewClient)
	billingGroup.Post("/issue", billingHandler.Issue)

	// Facturas y pagos
	invoices := api.Group("/invoices")
	invoiceHandler := NewInvoiceHandler(deps.Invoices, deps.Payments)
	invoices.Post("/", invoiceHandler.Create)
	invoices.Get("/", invoiceHandler.List)
	invoices.Get("/:id", invoiceHandler.GetByID)
	invoices.Put("/:id", invoiceHandler.Update)
	invoices.Delete("/:id", invoiceHandler.Delete)
	invoices.Post("/:id/issue", invoiceHandler.Issue)
	invoices.Post("/:id/cancel", invoiceHandler.Cancel)
	invoices.Get("/:id/summary", invoiceHandler.Summary)
	invoices.Get("/:id/payments", invoiceHandler.ListPayments)
	invoices.Post("/:id/payments", invoiceHandler.RecordPayment)

	payments := api.Group("/payments")
	paymentHandler := NewPaymentHandler(deps.Payments)
	payments.Put("/:id", paymentHandler.Update)
	payments.Delete("/:id", paymentHandler.Delete)
}
