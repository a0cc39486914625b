package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	bksvc "github.com/nebulahq/nebula/internal/app/service/backup"
	setsvc "github.com/nebulahq/nebula/internal/app/service/settings"
	"github.com/nebulahq/nebula/internal/models"
	"github.com/nebulahq/nebula/pkg/response"
)

// RegisterBackupRoutes wires the manual backup trigger and the audit list.
func RegisterBackupRoutes(r gin.IRouter, svc *bksvc.Service, settings *setsvc.Service) {
	r.POST("/backup/run", func(c *gin.Context) {
		st, err := settings.Get(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, response.ErrorT(response.APIResponseCodeError, err.Error()))
			return
		}
		if err := svc.RunBackup(c.Request.Context(), st, models.BackupTypeManual); err != nil {
			status := http.StatusBadGateway
			if errors.Is(err, bksvc.ErrWebdavNotConfigured) {
				status = http.StatusBadRequest
			}
			c.JSON(status, response.ErrorT(response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(gin.H{"ok": true}))
	})

	r.GET("/backup/records", func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
		rows, err := svc.Records(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, response.ErrorT(response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(gin.H{"items": rows}))
	})
}
