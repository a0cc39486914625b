package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nebulahq/nebula/internal/app/service/webhook"
	"github.com/nebulahq/nebula/pkg/response"
)

// RegisterWebhookRoutes wires webhook channel CRUD and the manual test
// send under r.
func RegisterWebhookRoutes(r gin.IRouter, svc *webhook.Service) {
	r.GET("/webhooks", func(c *gin.Context) {
		rows, err := svc.ListChannels(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, response.ErrorT(response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(gin.H{"items": rows}))
	})

	r.POST("/webhooks", func(c *gin.Context) {
		var in webhook.ChannelInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorT(response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		ch, err := svc.CreateChannel(c.Request.Context(), in)
		if err != nil {
			writeWebhookError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(ch))
	})

	r.PUT("/webhooks/:id", func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		var in webhook.ChannelInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorT(response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		ch, err := svc.UpdateChannel(c.Request.Context(), id, in)
		if err != nil {
			writeWebhookError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(ch))
	})

	r.DELETE("/webhooks/:id", func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		if err := svc.DeleteChannel(c.Request.Context(), id); err != nil {
			writeWebhookError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(gin.H{"ok": true}))
	})

	// @Summary  Send a test notification through one channel
	// @Tags     Webhooks
	// @Produce  json
	// @Router   /api/v1/webhooks/{id}/test [post]
	r.POST("/webhooks/:id/test", func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		var body struct {
			SubscriptionID *uint `json:"subscription_id"`
		}
		// Body is optional; a bare POST tests with the synthetic context.
		_ = c.ShouldBindJSON(&body)

		result, err := svc.TestSend(c.Request.Context(), id, body.SubscriptionID)
		if err != nil {
			writeWebhookError(c, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(result))
	})
}

func writeWebhookError(c *gin.Context, err error) {
	var terr *webhook.TemplateError
	switch {
	case errors.Is(err, webhook.ErrChannelNotFound):
		c.JSON(http.StatusNotFound, response.ErrorT(response.APIResponseCodeNotFound, "webhook channel not found"))
	case errors.Is(err, webhook.ErrInvalidURL), errors.Is(err, webhook.ErrNameRequired), errors.As(err, &terr):
		c.JSON(http.StatusBadRequest, response.ErrorT(response.APIResponseCodeBadRequest, err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, response.ErrorT(response.APIResponseCodeError, err.Error()))
	}
}
