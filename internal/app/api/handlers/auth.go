package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	authsvc "github.com/nebulahq/nebula/internal/app/service/auth"
	"github.com/nebulahq/nebula/pkg/response"
)

// RegisterAuthRoutes wires login and password management. These routes
// stay outside the auth guard so a user can actually log in.
func RegisterAuthRoutes(r gin.IRouter, svc *authsvc.Service) {
	r.GET("/auth/status", func(c *gin.Context) {
		status, err := svc.Status(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, response.ErrorT(response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(status))
	})

	r.POST("/auth/login", func(c *gin.Context) {
		var body struct {
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorT(response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		token, err := svc.Login(c.Request.Context(), body.Password)
		if err != nil {
			switch {
			case errors.Is(err, authsvc.ErrBadCredentials):
				c.JSON(http.StatusUnauthorized, response.ErrorT(response.APIResponseCodeUnauthorized, "invalid password"))
			case errors.Is(err, authsvc.ErrNotConfigured):
				c.JSON(http.StatusBadRequest, response.ErrorT(response.APIResponseCodeBadRequest, err.Error()))
			default:
				c.JSON(http.StatusInternalServerError, response.ErrorT(response.APIResponseCodeError, err.Error()))
			}
			return
		}
		c.JSON(http.StatusOK, response.OKT(gin.H{"token": token}))
	})
}

// RegisterAuthAdminRoutes wires password changes; these sit behind the
// auth guard once auth is configured.
func RegisterAuthAdminRoutes(r gin.IRouter, svc *authsvc.Service) {
	r.POST("/auth/password", func(c *gin.Context) {
		var body struct {
			Password string `json:"password" binding:"required"`
			Enabled  bool   `json:"enabled"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorT(response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if err := svc.SetPassword(c.Request.Context(), body.Password, body.Enabled); err != nil {
			var perr *authsvc.PasswordPolicyError
			if errors.As(err, &perr) {
				c.JSON(http.StatusBadRequest, response.ErrorT(response.APIResponseCodeBadRequest, perr.Msg))
				return
			}
			c.JSON(http.StatusInternalServerError, response.ErrorT(response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(gin.H{"ok": true}))
	})
}
