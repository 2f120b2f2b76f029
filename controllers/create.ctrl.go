package controllers

import (
	"net/http"
	"strings"

	"github.com/getbuildcamp/billinghub/lib/responses"
	"github.com/getbuildcamp/billinghub/lib/service"
	"github.com/labstack/echo/v4"
)

// CreateUserController : Create user controller struct
type CreateUserController struct {
	svc *service.BillingService
}

func NewCreateUserController(svc *service.BillingService) *CreateUserController {
	return &CreateUserController{svc: svc}
}

type CreateUserRequestBody struct {
	OrgID    int64  `json:"org_id"`
	OrgName  string `json:"org_name"`
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}
type CreateUserResponseBody struct {
	ID    int64  `json:"id"`
	OrgID int64  `json:"org_id"`
	Login string `json:"login"`
}

func (controller *CreateUserController) CreateUser(c echo.Context) error {
	var body CreateUserRequestBody

	if err := c.Bind(&body); err != nil {
		c.Logger().Errorf("Failed to load create user request body: %v", err)
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, responses.BadArgumentsError)
	}

	user, err := controller.svc.CreateUser(c.Request().Context(), body.OrgID, body.OrgName, body.Login, body.Password)
	if err != nil {
		c.Logger().Errorf("Failed to create user: %v", err)
		if strings.Contains(err.Error(), "duplicate") && strings.Contains(err.Error(), "login") {
			return c.JSON(http.StatusBadRequest, responses.LoginTakenError)
		}
		resp := responses.FromServiceError(err)
		return c.JSON(resp.HttpStatusCode, resp)
	}

	return c.JSON(http.StatusOK, &CreateUserResponseBody{
		ID:    user.ID,
		OrgID: user.OrgID,
		Login: user.Login,
	})
}
