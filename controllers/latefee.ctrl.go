package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/getbuildcamp/billinghub/lib/responses"
	"github.com/getbuildcamp/billinghub/lib/service"
	"github.com/labstack/echo/v4"
)

// LateFeeController : late fee rule controller struct
type LateFeeController struct {
	svc *service.BillingService
}

func NewLateFeeController(svc *service.BillingService) *LateFeeController {
	return &LateFeeController{svc: svc}
}

func (controller *LateFeeController) CreateRule(c echo.Context) error {
	orgId := c.Get("OrgID").(int64)

	var body service.LateFeeRuleParams
	if err := c.Bind(&body); err != nil {
		c.Logger().Errorf("Failed to load late fee rule request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	rule, err := controller.svc.CreateLateFeeRule(c.Request().Context(), orgId, body)
	if err != nil {
		resp := responses.FromServiceError(err)
		return c.JSON(resp.HttpStatusCode, resp)
	}
	return c.JSON(http.StatusOK, rule)
}

func (controller *LateFeeController) DeactivateRule(c echo.Context) error {
	orgId := c.Get("OrgID").(int64)
	ruleId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	if err = controller.svc.DeactivateLateFeeRule(c.Request().Context(), orgId, ruleId); err != nil {
		resp := responses.FromServiceError(err)
		return c.JSON(resp.HttpStatusCode, resp)
	}
	return c.NoContent(http.StatusNoContent)
}

// RunLateFees applies all due late fees once. Admin only; the pass is
// idempotent so overlapping runs are harmless.
func (controller *LateFeeController) RunLateFees(c echo.Context) error {
	applied, err := controller.svc.ApplyLateFees(c.Request().Context(), time.Now())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"applied": applied})
}
