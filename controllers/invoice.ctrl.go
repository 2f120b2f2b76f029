package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/getbuildcamp/billinghub/db/models"
	"github.com/getbuildcamp/billinghub/lib/responses"
	"github.com/getbuildcamp/billinghub/lib/service"
	"github.com/labstack/echo/v4"
)

// InvoiceController : Invoice controller struct
type InvoiceController struct {
	svc *service.BillingService
}

func NewInvoiceController(svc *service.BillingService) *InvoiceController {
	return &InvoiceController{svc: svc}
}

// Invoice is the API shape of an invoice. display_status adds the derived
// overdue state on top of the stored status.
type Invoice struct {
	*models.Invoice
	DisplayStatus string `json:"display_status"`
}

type GetInvoicesResponseBody struct {
	Invoices []Invoice `json:"invoices"`
}

func apiInvoice(invoice *models.Invoice) Invoice {
	return Invoice{
		Invoice:       invoice,
		DisplayStatus: service.DisplayStatus(invoice, time.Now()),
	}
}

func (controller *InvoiceController) GetInvoices(c echo.Context) error {
	orgId := c.Get("OrgID").(int64)

	invoices, err := controller.svc.InvoicesFor(c.Request().Context(), orgId, c.QueryParam("status"))
	if err != nil {
		return err
	}

	response := make([]Invoice, len(invoices))
	for i := range invoices {
		response[i] = apiInvoice(&invoices[i])
	}
	return c.JSON(http.StatusOK, &GetInvoicesResponseBody{Invoices: response})
}

func (controller *InvoiceController) GetInvoice(c echo.Context) error {
	orgId := c.Get("OrgID").(int64)
	invoiceId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	invoice, err := controller.svc.FindInvoice(c.Request().Context(), orgId, invoiceId)
	if err != nil {
		return c.JSON(http.StatusNotFound, responses.NotFoundError)
	}
	return c.JSON(http.StatusOK, apiInvoice(invoice))
}

func (controller *InvoiceController) AddInvoice(c echo.Context) error {
	orgId := c.Get("OrgID").(int64)

	var body service.CreateInvoiceParams
	if err := c.Bind(&body); err != nil {
		c.Logger().Errorf("Failed to load create invoice request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	invoice, err := controller.svc.CreateInvoice(c.Request().Context(), orgId, body)
	if err != nil {
		c.Logger().Errorf("Failed to create invoice: %v", err)
		resp := responses.FromServiceError(err)
		return c.JSON(resp.HttpStatusCode, resp)
	}
	return c.JSON(http.StatusOK, apiInvoice(invoice))
}

type UpdateInvoiceRequestBody struct {
	Version int64 `json:"version" validate:"gte=1"`
	service.CreateInvoiceParams
}

func (controller *InvoiceController) UpdateInvoice(c echo.Context) error {
	orgId := c.Get("OrgID").(int64)
	invoiceId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	var body UpdateInvoiceRequestBody
	if err := c.Bind(&body); err != nil {
		c.Logger().Errorf("Failed to load update invoice request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	invoice, err := controller.svc.UpdateInvoice(c.Request().Context(), orgId, invoiceId, body.Version, body.CreateInvoiceParams)
	if err != nil {
		c.Logger().Errorf("Failed to update invoice %d: %v", invoiceId, err)
		resp := responses.FromServiceError(err)
		return c.JSON(resp.HttpStatusCode, resp)
	}
	return c.JSON(http.StatusOK, apiInvoice(invoice))
}

func (controller *InvoiceController) SendInvoice(c echo.Context) error {
	orgId := c.Get("OrgID").(int64)
	invoiceId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	invoice, err := controller.svc.SendInvoice(c.Request().Context(), orgId, invoiceId)
	if err != nil {
		c.Logger().Errorf("Failed to send invoice %d: %v", invoiceId, err)
		resp := responses.FromServiceError(err)
		return c.JSON(resp.HttpStatusCode, resp)
	}
	return c.JSON(http.StatusOK, apiInvoice(invoice))
}

func (controller *InvoiceController) VoidInvoice(c echo.Context) error {
	orgId := c.Get("OrgID").(int64)
	invoiceId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	invoice, err := controller.svc.VoidInvoice(c.Request().Context(), orgId, invoiceId)
	if err != nil {
		c.Logger().Errorf("Failed to void invoice %d: %v", invoiceId, err)
		resp := responses.FromServiceError(err)
		return c.JSON(resp.HttpStatusCode, resp)
	}
	return c.JSON(http.StatusOK, apiInvoice(invoice))
}
