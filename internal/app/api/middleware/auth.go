package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nebulahq/nebula/internal/app/service/auth"
	"github.com/nebulahq/nebula/pkg/response"
)

// AuthMiddleware guards a route group with the optional session auth.
// When auth is disabled or no password has been configured, requests
// pass through untouched.
func AuthMiddleware(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, err := svc.Status(c.Request.Context())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, response.ErrorT(response.APIResponseCodeError, err.Error()))
			return
		}
		if !status.Enabled || !status.Configured {
			c.Next()
			return
		}

		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if token == "" || svc.ValidateToken(token) != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorT(response.APIResponseCodeUnauthorized, "unauthorized"))
			return
		}
		c.Next()
	}
}
