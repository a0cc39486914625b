package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nebulahq/nebula/internal/app/service/logstore"
	"github.com/nebulahq/nebula/pkg/response"
)

// RegisterLogRoutes wires the activity log view.
func RegisterLogRoutes(r gin.IRouter, svc *logstore.Service) {
	r.GET("/logs", func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
		rows, err := svc.Recent(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, response.ErrorT(response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(gin.H{"items": rows}))
	})
}
