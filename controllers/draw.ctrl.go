package controllers

import (
	"net/http"
	"strconv"

	"github.com/getbuildcamp/billinghub/db/models"
	"github.com/getbuildcamp/billinghub/lib/responses"
	"github.com/getbuildcamp/billinghub/lib/service"
	"github.com/labstack/echo/v4"
)

// DrawController : draw schedule and retainage controller struct
type DrawController struct {
	svc *service.BillingService
}

func NewDrawController(svc *service.BillingService) *DrawController {
	return &DrawController{svc: svc}
}

type CreateDrawScheduleRequestBody struct {
	Entries []service.DrawEntryParams `json:"entries" validate:"required,dive"`
}

type DrawScheduleResponseBody struct {
	Entries []models.DrawScheduleEntry `json:"entries"`
}

func (controller *DrawController) CreateSchedule(c echo.Context) error {
	orgId := c.Get("OrgID").(int64)
	contractId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	var body CreateDrawScheduleRequestBody
	if err := c.Bind(&body); err != nil {
		c.Logger().Errorf("Failed to load draw schedule request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	entries, err := controller.svc.CreateDrawSchedule(c.Request().Context(), orgId, contractId, body.Entries)
	if err != nil {
		resp := responses.FromServiceError(err)
		return c.JSON(resp.HttpStatusCode, resp)
	}
	return c.JSON(http.StatusOK, &DrawScheduleResponseBody{Entries: entries})
}

func (controller *DrawController) GetSchedule(c echo.Context) error {
	orgId := c.Get("OrgID").(int64)
	contractId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	entries, err := controller.svc.DrawSchedule(c.Request().Context(), orgId, contractId)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &DrawScheduleResponseBody{Entries: entries})
}

// BillDraw turns one pending draw into a draft invoice.
func (controller *DrawController) BillDraw(c echo.Context) error {
	orgId := c.Get("OrgID").(int64)
	drawId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	invoice, err := controller.svc.BillDraw(c.Request().Context(), orgId, drawId)
	if err != nil {
		c.Logger().Errorf("Failed to bill draw %d: %v", drawId, err)
		resp := responses.FromServiceError(err)
		return c.JSON(resp.HttpStatusCode, resp)
	}
	return c.JSON(http.StatusOK, apiInvoice(invoice))
}

type RetainageLedgerResponseBody struct {
	Entries        []models.RetainageEntry `json:"entries"`
	HeldTotalCents int64                   `json:"held_total_cents"`
}

func (controller *DrawController) GetRetainageLedger(c echo.Context) error {
	orgId := c.Get("OrgID").(int64)
	contractId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	entries, held, err := controller.svc.RetainageLedger(c.Request().Context(), orgId, contractId)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &RetainageLedgerResponseBody{Entries: entries, HeldTotalCents: held})
}

type ReleaseRetainageRequestBody struct {
	EntryIDs []int64 `json:"entry_ids" validate:"required,min=1"`
}

// ReleaseRetainage bills the selected held entries through a new invoice.
func (controller *DrawController) ReleaseRetainage(c echo.Context) error {
	orgId := c.Get("OrgID").(int64)
	contractId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	var body ReleaseRetainageRequestBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	invoice, err := controller.svc.ReleaseRetainage(c.Request().Context(), orgId, contractId, body.EntryIDs)
	if err != nil {
		c.Logger().Errorf("Failed to release retainage on contract %d: %v", contractId, err)
		resp := responses.FromServiceError(err)
		return c.JSON(resp.HttpStatusCode, resp)
	}
	return c.JSON(http.StatusOK, apiInvoice(invoice))
}
