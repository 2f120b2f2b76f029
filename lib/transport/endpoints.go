package transport

import (
	"github.com/getbuildcamp/billinghub/controllers"
	"github.com/getbuildcamp/billinghub/lib/service"
	"github.com/labstack/echo/v4"
)

// RegisterEndpoints wires the full API surface. secured carries the JWT
// middleware, securedWithStrictRateLimit adds the stricter limiter for
// money-moving endpoints, adminMw guards operator endpoints.
func RegisterEndpoints(svc *service.BillingService, e *echo.Echo, secured *echo.Group, securedWithStrictRateLimit *echo.Group, strictRateLimitMiddleware echo.MiddlewareFunc, adminMw echo.MiddlewareFunc, logMw echo.MiddlewareFunc) {
	e.POST("/auth", controllers.NewAuthController(svc).Auth, strictRateLimitMiddleware, logMw)
	e.POST("/users", controllers.NewCreateUserController(svc).CreateUser, strictRateLimitMiddleware, adminMw, logMw)

	infoCtrl := controllers.NewGetInfoController(svc)
	e.GET("/info", infoCtrl.GetInfo, CreateCacheClient().Middleware(), logMw)

	// provider webhooks and the payer-facing link endpoint carry no
	// bearer auth, the token in the path is the credential
	e.POST("/webhooks/provider/:provider", controllers.NewWebhookController(svc).HandleProviderEvent, strictRateLimitMiddleware, logMw)
	e.POST("/pay/:token", controllers.NewPaymentLinkController(svc).Pay, strictRateLimitMiddleware, logMw)

	invoiceCtrl := controllers.NewInvoiceController(svc)
	secured.GET("/invoices", invoiceCtrl.GetInvoices)
	secured.POST("/invoices", invoiceCtrl.AddInvoice)
	secured.GET("/invoices/:id", invoiceCtrl.GetInvoice)
	secured.PUT("/invoices/:id", invoiceCtrl.UpdateInvoice)
	secured.POST("/invoices/:id/send", invoiceCtrl.SendInvoice)
	secured.POST("/invoices/:id/void", invoiceCtrl.VoidInvoice)

	paymentCtrl := controllers.NewPaymentController(svc)
	secured.GET("/invoices/:id/payments", paymentCtrl.GetPayments)
	securedWithStrictRateLimit.POST("/invoices/:id/payments", paymentCtrl.RecordPayment)
	securedWithStrictRateLimit.POST("/payments/:id/reverse", paymentCtrl.ReversePayment)
	securedWithStrictRateLimit.POST("/invoices/:id/intent", paymentCtrl.CreateIntent)
	securedWithStrictRateLimit.POST("/intents/:id/cancel", paymentCtrl.CancelIntent)

	linkCtrl := controllers.NewPaymentLinkController(svc)
	secured.POST("/invoices/:id/payment_link", linkCtrl.CreatePaymentLink)

	syncCtrl := controllers.NewSyncController(svc)
	secured.GET("/invoices/:id/sync_history", syncCtrl.GetSyncHistory)
	securedWithStrictRateLimit.POST("/invoices/:id/resync", syncCtrl.Resync)

	lateFeeCtrl := controllers.NewLateFeeController(svc)
	secured.POST("/latefee_rules", lateFeeCtrl.CreateRule)
	secured.DELETE("/latefee_rules/:id", lateFeeCtrl.DeactivateRule)

	reminderCtrl := controllers.NewReminderController(svc)
	secured.POST("/reminders", reminderCtrl.CreateReminder)
	secured.DELETE("/reminders/:id", reminderCtrl.DeactivateReminder)
	secured.GET("/invoices/:id/reminders", reminderCtrl.GetDeliveries)
	secured.POST("/reminder_deliveries/:id/events", reminderCtrl.RecordEvent)

	drawCtrl := controllers.NewDrawController(svc)
	secured.POST("/contracts/:id/draws", drawCtrl.CreateSchedule)
	secured.GET("/contracts/:id/draws", drawCtrl.GetSchedule)
	securedWithStrictRateLimit.POST("/draws/:id/bill", drawCtrl.BillDraw)
	secured.GET("/contracts/:id/retainage", drawCtrl.GetRetainageLedger)
	securedWithStrictRateLimit.POST("/contracts/:id/retainage/release", drawCtrl.ReleaseRetainage)

	budgetCtrl := controllers.NewBudgetController(svc)
	secured.POST("/budgets", budgetCtrl.CreateBudget)
	secured.GET("/budgets/:id", budgetCtrl.GetBudget)
	secured.PUT("/budgets/:id", budgetCtrl.UpdateBudget)
	secured.POST("/budgets/:id/lines", budgetCtrl.AddLine)
	secured.POST("/budgets/:id/lock", budgetCtrl.LockBudget)

	// operator triggers, normally driven by billingctl or cron
	e.POST("/admin/sync/run", syncCtrl.RunSync, adminMw, logMw)
	e.POST("/admin/latefees/run", lateFeeCtrl.RunLateFees, adminMw, logMw)
	e.POST("/admin/reminders/run", reminderCtrl.RunReminders, adminMw, logMw)
}
