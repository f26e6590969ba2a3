package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"dustforce-relay/internal/shared/logger"
	"dustforce-relay/internal/shared/response"
)

// Recovery creates a recovery middleware
func Recovery(l *logger.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		requestID := c.GetString("request_id")
		log := l
		if requestID != "" {
			log = l.WithRequestID(requestID)
		}

		log.Errorf(c.Request.Context(), "Panic recovered: %v", recovered)

		response.Error(c, response.NewInternalError("Internal server error", fmt.Errorf("%v", recovered)))
		c.AbortWithStatus(http.StatusInternalServerError)
	})
}

