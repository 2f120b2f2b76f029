package controllers

import (
	"net/http"
	"strconv"

	"github.com/getbuildcamp/billinghub/lib/responses"
	"github.com/getbuildcamp/billinghub/lib/service"
	"github.com/labstack/echo/v4"
)

// BudgetController : project budget controller struct
type BudgetController struct {
	svc *service.BillingService
}

func NewBudgetController(svc *service.BillingService) *BudgetController {
	return &BudgetController{svc: svc}
}

type BudgetRequestBody struct {
	ProjectID  int64  `json:"project_id"`
	Name       string `json:"name"`
	TotalCents int64  `json:"total_cents" validate:"gte=0"`
}

func (controller *BudgetController) CreateBudget(c echo.Context) error {
	orgId := c.Get("OrgID").(int64)

	var body BudgetRequestBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	budget, err := controller.svc.CreateBudget(c.Request().Context(), orgId, body.ProjectID, body.Name, body.TotalCents)
	if err != nil {
		resp := responses.FromServiceError(err)
		return c.JSON(resp.HttpStatusCode, resp)
	}
	return c.JSON(http.StatusOK, budget)
}

func (controller *BudgetController) GetBudget(c echo.Context) error {
	orgId := c.Get("OrgID").(int64)
	budgetId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	budget, err := controller.svc.FindBudget(c.Request().Context(), orgId, budgetId)
	if err != nil {
		return c.JSON(http.StatusNotFound, responses.NotFoundError)
	}
	return c.JSON(http.StatusOK, budget)
}

func (controller *BudgetController) UpdateBudget(c echo.Context) error {
	orgId := c.Get("OrgID").(int64)
	budgetId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	var body BudgetRequestBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	budget, err := controller.svc.UpdateBudget(c.Request().Context(), orgId, budgetId, body.Name, body.TotalCents)
	if err != nil {
		resp := responses.FromServiceError(err)
		return c.JSON(resp.HttpStatusCode, resp)
	}
	return c.JSON(http.StatusOK, budget)
}

func (controller *BudgetController) AddLine(c echo.Context) error {
	orgId := c.Get("OrgID").(int64)
	budgetId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	var body service.BudgetLineParams
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	line, err := controller.svc.AddBudgetLine(c.Request().Context(), orgId, budgetId, body)
	if err != nil {
		resp := responses.FromServiceError(err)
		return c.JSON(resp.HttpStatusCode, resp)
	}
	return c.JSON(http.StatusOK, line)
}

func (controller *BudgetController) LockBudget(c echo.Context) error {
	orgId := c.Get("OrgID").(int64)
	budgetId, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	budget, err := controller.svc.LockBudget(c.Request().Context(), orgId, budgetId)
	if err != nil {
		resp := responses.FromServiceError(err)
		return c.JSON(resp.HttpStatusCode, resp)
	}
	return c.JSON(http.StatusOK, budget)
}
