package controllers

import (
	"io"
	"net/http"

	"github.com/getbuildcamp/billinghub/lib/responses"
	"github.com/getbuildcamp/billinghub/lib/service"
	"github.com/getbuildcamp/billinghub/provider"
	"github.com/labstack/echo/v4"
)

// WebhookController : provider webhook intake
type WebhookController struct {
	svc *service.BillingService
}

func NewWebhookController(svc *service.BillingService) *WebhookController {
	return &WebhookController{svc: svc}
}

// HandleProviderEvent reconciles one provider webhook delivery. Returning
// 200 for duplicates matters: the provider retries on anything else and a
// processed event must not be retried forever.
func (controller *WebhookController) HandleProviderEvent(c echo.Context) error {
	providerName := c.Param("provider")

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	event, err := provider.ParseWebhookEvent(providerName, body)
	if err != nil {
		c.Logger().Errorf("Failed to parse %s webhook: %v", providerName, err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	result, err := controller.svc.ReconcileProviderEvent(c.Request().Context(), event)
	if err != nil {
		if service.IsReconcileNoop(err) {
			return c.JSON(http.StatusOK, echo.Map{"duplicate": true})
		}
		c.Logger().Errorf("Failed to reconcile %s event %s: %v", providerName, event.ProviderPaymentID, err)
		resp := responses.FromServiceError(err)
		return c.JSON(resp.HttpStatusCode, resp)
	}
	return c.JSON(http.StatusOK, result)
}
