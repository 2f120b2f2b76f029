package controllers

import (
	"net/http"
	"strconv"

	"github.com/getbuildcamp/billinghub/db/models"
	"github.com/getbuildcamp/billinghub/lib/responses"
	"github.com/getbuildcamp/billinghub/lib/service"
	"github.com/labstack/echo/v4"
)

// PaymentController : Payment controller struct
type PaymentController struct {
	svc *service.BillingService
}

func NewPaymentController(svc *service.BillingService) *PaymentController {
	return &PaymentController{svc: svc}
}

type GetPaymentsResponseBody struct {
	Payments []models.Payment `json:"payments"`
}

func (controller *PaymentController) GetPayments(c echo.Context) error {
	orgId := c.Get("OrgID").(int64)
	invoiceId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	payments, err := controller.svc.PaymentsFor(c.Request().Context(), orgId, invoiceId)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &GetPaymentsResponseBody{Payments: payments})
}

type RecordPaymentRequestBody struct {
	AmountCents int64  `json:"amount_cents" validate:"required,gt=0"`
	Method      string `json:"method" validate:"oneof=check cash ach card"`
	Reference   string `json:"reference"`
}

// RecordPayment records an out-of-band payment (check, cash, bank
// transfer) against an invoice.
func (controller *PaymentController) RecordPayment(c echo.Context) error {
	orgId := c.Get("OrgID").(int64)
	invoiceId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	var body RecordPaymentRequestBody
	if err := c.Bind(&body); err != nil {
		c.Logger().Errorf("Failed to load record payment request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	payment, err := controller.svc.RecordManualPayment(c.Request().Context(), orgId, invoiceId, body.AmountCents, body.Method, body.Reference)
	if err != nil {
		c.Logger().Errorf("Failed to record payment on invoice %d: %v", invoiceId, err)
		resp := responses.FromServiceError(err)
		return c.JSON(resp.HttpStatusCode, resp)
	}
	return c.JSON(http.StatusOK, payment)
}

type ReversePaymentRequestBody struct {
	Reference string `json:"reference"`
}

func (controller *PaymentController) ReversePayment(c echo.Context) error {
	orgId := c.Get("OrgID").(int64)
	paymentId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	var body ReversePaymentRequestBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	reversal, err := controller.svc.ReversePayment(c.Request().Context(), orgId, paymentId, body.Reference)
	if err != nil {
		c.Logger().Errorf("Failed to reverse payment %d: %v", paymentId, err)
		resp := responses.FromServiceError(err)
		return c.JSON(resp.HttpStatusCode, resp)
	}
	return c.JSON(http.StatusOK, reversal)
}

// CreateIntent returns the provider intent for the invoice's current
// balance, reusing a live one when present.
func (controller *PaymentController) CreateIntent(c echo.Context) error {
	orgId := c.Get("OrgID").(int64)
	invoiceId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	intent, err := controller.svc.CreatePaymentIntent(c.Request().Context(), orgId, invoiceId)
	if err != nil {
		c.Logger().Errorf("Failed to create intent for invoice %d: %v", invoiceId, err)
		resp := responses.FromServiceError(err)
		return c.JSON(resp.HttpStatusCode, resp)
	}
	return c.JSON(http.StatusOK, intent)
}

func (controller *PaymentController) CancelIntent(c echo.Context) error {
	orgId := c.Get("OrgID").(int64)
	intentId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	if err := controller.svc.CancelPaymentIntent(c.Request().Context(), orgId, intentId); err != nil {
		c.Logger().Errorf("Failed to cancel intent %d: %v", intentId, err)
		resp := responses.FromServiceError(err)
		return c.JSON(resp.HttpStatusCode, resp)
	}
	return c.NoContent(http.StatusNoContent)
}
