package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nebulahq/nebula/pkg/response"
)

// parseID extracts a positive integer path parameter or aborts with 400.
func parseID(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		c.JSON(http.StatusBadRequest, response.ErrorT(response.APIResponseCodeBadRequest, "invalid id"))
		return 0, false
	}
	return uint(v), true
}
