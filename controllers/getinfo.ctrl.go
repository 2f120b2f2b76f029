package controllers

import (
	"net/http"

	"github.com/getbuildcamp/billinghub/lib/service"
	"github.com/labstack/echo/v4"
)

// GetInfoController : GetInfoController struct
type GetInfoController struct {
	svc *service.BillingService
}

func NewGetInfoController(svc *service.BillingService) *GetInfoController {
	return &GetInfoController{svc: svc}
}

type GetInfoResponse struct {
	Name        string `json:"name"`
	Currency    string `json:"currency"`
	NetTermsDay int    `json:"default_net_terms_days"`
}

func (controller *GetInfoController) GetInfo(c echo.Context) error {
	return c.JSON(http.StatusOK, &GetInfoResponse{
		Name:        "BillingHub",
		Currency:    controller.svc.Config.DefaultCurrency,
		NetTermsDay: controller.svc.Config.DefaultNetTermsDays,
	})
}
