package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"dustforce-relay/internal/shared/logger"
)

const requestIDHeader = "X-Request-ID"

// RequestID tags every request with an id: the client's X-Request-ID if
// it sent one, a fresh UUID otherwise. The id is echoed in the response
// header and stored in the request context so log lines carry it.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set("request_id", requestID)
		c.Request = c.Request.WithContext(logger.ContextWithRequestID(c.Request.Context(), requestID))
		c.Writer.Header().Set(requestIDHeader, requestID)

		c.Next()
	}
}

// GetRequestID returns the id RequestID assigned to this request.
func GetRequestID(c *gin.Context) string {
	if id, ok := c.Get("request_id"); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}
