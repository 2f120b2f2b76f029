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

// ReminderController : reminder schedule controller struct
type ReminderController struct {
	svc *service.BillingService
}

func NewReminderController(svc *service.BillingService) *ReminderController {
	return &ReminderController{svc: svc}
}

func (controller *ReminderController) CreateReminder(c echo.Context) error {
	orgId := c.Get("OrgID").(int64)

	var body service.ReminderParams
	if err := c.Bind(&body); err != nil {
		c.Logger().Errorf("Failed to load reminder request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	reminder, err := controller.svc.CreateReminder(c.Request().Context(), orgId, body)
	if err != nil {
		resp := responses.FromServiceError(err)
		return c.JSON(resp.HttpStatusCode, resp)
	}
	return c.JSON(http.StatusOK, reminder)
}

func (controller *ReminderController) DeactivateReminder(c echo.Context) error {
	orgId := c.Get("OrgID").(int64)
	reminderId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	if err = controller.svc.DeactivateReminder(c.Request().Context(), orgId, reminderId); err != nil {
		resp := responses.FromServiceError(err)
		return c.JSON(resp.HttpStatusCode, resp)
	}
	return c.NoContent(http.StatusNoContent)
}

type GetDeliveriesResponseBody struct {
	Deliveries []models.ReminderDelivery `json:"deliveries"`
}

func (controller *ReminderController) GetDeliveries(c echo.Context) error {
	orgId := c.Get("OrgID").(int64)
	invoiceId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	deliveries, err := controller.svc.ReminderDeliveriesFor(c.Request().Context(), orgId, invoiceId)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, &GetDeliveriesResponseBody{Deliveries: deliveries})
}

type ReminderEventRequestBody struct {
	Status string `json:"status" validate:"oneof=delivered clicked failed"`
}

// RecordEvent accepts delivery feedback from the sending channel
// (delivered, clicked, failed).
func (controller *ReminderController) RecordEvent(c echo.Context) error {
	orgId := c.Get("OrgID").(int64)
	deliveryId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	var body ReminderEventRequestBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	if err = controller.svc.RecordReminderEvent(c.Request().Context(), orgId, deliveryId, body.Status); err != nil {
		resp := responses.FromServiceError(err)
		return c.JSON(resp.HttpStatusCode, resp)
	}
	return c.NoContent(http.StatusNoContent)
}

// RunReminders sends all due reminders for today once. Admin only.
func (controller *ReminderController) RunReminders(c echo.Context) error {
	sent, err := controller.svc.SendDueReminders(c.Request().Context(), time.Now())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"sent": sent})
}
