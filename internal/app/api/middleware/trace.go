package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/nebulahq/nebula/pkg/tool"
)

// TraceMiddleware adds a trace ID to the request context.
// It reads X-Request-ID if provided by the client; otherwise generates one.
// The trace ID is stored in both gin.Context (key: "traceID") and the
// request's context.Context so non-gin code paths can pick it up.
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader("X-Request-ID")
		if traceID == "" {
			traceID = tool.TraceID()
		}

		c.Set("traceID", traceID)
		ctx := context.WithValue(c.Request.Context(), "traceID", traceID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
