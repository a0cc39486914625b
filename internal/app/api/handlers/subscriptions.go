package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	subsvc "github.com/nebulahq/nebula/internal/app/service/subscription"
	"github.com/nebulahq/nebula/pkg/response"
)

// RegisterSubscriptionRoutes wires subscription CRUD under r.
func RegisterSubscriptionRoutes(r gin.IRouter, svc *subsvc.Service) {
	// @Summary  List subscriptions
	// @Tags     Subscriptions
	// @Produce  json
	// @Router   /api/v1/subscriptions/scan [post]
	r.POST("/subscriptions/scan", func(c *gin.Context) {
		var req subsvc.ScanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorT(response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := svc.Scan(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusInternalServerError, response.ErrorT(response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	})

	r.GET("/subscriptions", func(c *gin.Context) {
		res, err := svc.Scan(c.Request.Context(), &subsvc.ScanRequest{Size: 200, SortBy: "id", SortOrder: "desc"})
		if err != nil {
			c.JSON(http.StatusInternalServerError, response.ErrorT(response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	})

	r.GET("/subscriptions/:id", func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		sub, err := svc.Get(c.Request.Context(), id)
		if err != nil {
			writeSubscriptionError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(sub))
	})

	r.POST("/subscriptions", func(c *gin.Context) {
		var in subsvc.Input
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorT(response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		sub, err := svc.Create(c.Request.Context(), in)
		if err != nil {
			writeSubscriptionError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(sub))
	})

	r.PUT("/subscriptions/:id", func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		var in subsvc.Input
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorT(response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		sub, err := svc.Update(c.Request.Context(), id, in)
		if err != nil {
			writeSubscriptionError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(sub))
	})

	r.DELETE("/subscriptions/:id", func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		if err := svc.Delete(c.Request.Context(), id); err != nil {
			writeSubscriptionError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(gin.H{"ok": true}))
	})
}

func writeSubscriptionError(c *gin.Context, err error) {
	var verr *subsvc.ValidationError
	switch {
	case errors.Is(err, subsvc.ErrNotFound):
		c.JSON(http.StatusNotFound, response.ErrorT(response.APIResponseCodeNotFound, "subscription not found"))
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, response.ErrorT(response.APIResponseCodeBadRequest, verr.Msg))
	default:
		c.JSON(http.StatusInternalServerError, response.ErrorT(response.APIResponseCodeError, err.Error()))
	}
}
