package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/getbuildcamp/billinghub/lib/responses"
	"github.com/getbuildcamp/billinghub/lib/service"
	"github.com/labstack/echo/v4"
)

// PaymentLinkController : payment link controller struct
type PaymentLinkController struct {
	svc *service.BillingService
}

func NewPaymentLinkController(svc *service.BillingService) *PaymentLinkController {
	return &PaymentLinkController{svc: svc}
}

type CreatePaymentLinkResponseBody struct {
	Token     string    `json:"token"`
	MaxUses   int       `json:"max_uses"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CreatePaymentLink mints a payer-facing token for one invoice. The token
// is only ever returned here.
func (controller *PaymentLinkController) CreatePaymentLink(c echo.Context) error {
	orgId := c.Get("OrgID").(int64)
	invoiceId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	link, token, err := controller.svc.CreatePaymentLink(c.Request().Context(), orgId, invoiceId)
	if err != nil {
		c.Logger().Errorf("Failed to create payment link for invoice %d: %v", invoiceId, err)
		resp := responses.FromServiceError(err)
		return c.JSON(resp.HttpStatusCode, resp)
	}
	return c.JSON(http.StatusOK, &CreatePaymentLinkResponseBody{
		Token:     token,
		MaxUses:   link.MaxUses,
		ExpiresAt: link.ExpiresAt.Time,
	})
}

// Pay is the unauthenticated payer entry point. Presenting a valid token
// burns one use and returns the invoice together with a payment intent for
// the open balance.
func (controller *PaymentLinkController) Pay(c echo.Context) error {
	ctx := c.Request().Context()

	invoice, err := controller.svc.ConsumePaymentLink(ctx, c.Param("token"))
	if err != nil {
		resp := responses.FromServiceError(err)
		return c.JSON(resp.HttpStatusCode, resp)
	}

	intent, err := controller.svc.CreatePaymentIntent(ctx, invoice.OrgID, invoice.ID)
	if err != nil {
		c.Logger().Errorf("Failed to create intent for invoice %d: %v", invoice.ID, err)
		resp := responses.FromServiceError(err)
		return c.JSON(resp.HttpStatusCode, resp)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"invoice": apiInvoice(invoice),
		"intent":  intent,
	})
}
