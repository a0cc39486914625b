package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nebulahq/nebula/internal/app/service/rates"
	setsvc "github.com/nebulahq/nebula/internal/app/service/settings"
	"github.com/nebulahq/nebula/pkg/response"
)

// RegisterSettingsRoutes wires the singleton settings row and the manual
// exchange-rate refresh under r.
func RegisterSettingsRoutes(r gin.IRouter, svc *setsvc.Service, ratesSvc *rates.Service) {
	r.GET("/settings", func(c *gin.Context) {
		st, err := svc.Get(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, response.ErrorT(response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(st))
	})

	r.PUT("/settings", func(c *gin.Context) {
		var in setsvc.UpdateInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorT(response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		st, err := svc.Update(c.Request.Context(), in)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorT(response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(st))
	})

	r.POST("/settings/rates/update", func(c *gin.Context) {
		force := c.Query("force") == "true"
		st, err := svc.Get(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, response.ErrorT(response.APIResponseCodeError, err.Error()))
			return
		}
		result, err := ratesSvc.UpdateRates(c.Request.Context(), st, force)
		if err != nil {
			status := http.StatusBadGateway
			if errors.Is(err, rates.ErrExchangeDisabled) || errors.Is(err, rates.ErrMissingAPIKey) {
				status = http.StatusBadRequest
			}
			c.JSON(status, response.ErrorT(response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(result))
	})
}
