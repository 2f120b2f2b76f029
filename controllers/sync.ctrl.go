package controllers

import (
	"net/http"
	"strconv"

	"github.com/getbuildcamp/billinghub/db/models"
	"github.com/getbuildcamp/billinghub/lib/responses"
	"github.com/getbuildcamp/billinghub/lib/service"
	"github.com/labstack/echo/v4"
)

// SyncController : accounting sync controller struct
type SyncController struct {
	svc *service.BillingService
}

func NewSyncController(svc *service.BillingService) *SyncController {
	return &SyncController{svc: svc}
}

type SyncHistoryResponseBody struct {
	History []models.SyncHistory `json:"history"`
}

func (controller *SyncController) GetSyncHistory(c echo.Context) error {
	orgId := c.Get("OrgID").(int64)
	invoiceId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	history, err := controller.svc.SyncHistoryFor(c.Request().Context(), orgId, invoiceId)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &SyncHistoryResponseBody{History: history})
}

// Resync pushes one invoice to the accounting system immediately,
// bypassing the automatic retry cap. The attempt outcome is returned with
// the refreshed invoice so the caller sees synced or error right away.
func (controller *SyncController) Resync(c echo.Context) error {
	orgId := c.Get("OrgID").(int64)
	invoiceId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	invoice, err := controller.svc.ManualResync(c.Request().Context(), orgId, invoiceId)
	if err != nil && invoice == nil {
		resp := responses.FromServiceError(err)
		return c.JSON(resp.HttpStatusCode, resp)
	}
	if err != nil {
		c.Logger().Errorf("Manual resync failed for invoice %d: %v", invoiceId, err)
	}
	return c.JSON(http.StatusOK, apiInvoice(invoice))
}

// RunSync drains the pending queue once. Admin only.
func (controller *SyncController) RunSync(c echo.Context) error {
	synced, failed, err := controller.svc.SyncPendingNow(c.Request().Context())
	if err != nil {
		return err
	}
	requeued, err := controller.svc.RetryFailedSyncs(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"synced":   synced,
		"failed":   failed,
		"requeued": requeued,
	})
}
