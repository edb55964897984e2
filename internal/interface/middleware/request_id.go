package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/inkwell/pkg/response"
)

const RequestIDHeader = "X-Request-ID"

// RequestIDMiddleware tags each request with an id, echoed in the response
// header and envelope. Inbound ids are kept only when they parse as UUIDs so
// clients cannot inject arbitrary text into logs.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if parsed, err := uuid.Parse(id); err == nil {
			id = parsed.String()
		} else {
			id = uuid.NewString()
		}
		c.Set(response.RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// RequestFields are the log fields identifying the current request.
func RequestFields(c *gin.Context) logrus.Fields {
	return logrus.Fields{
		"request_id": response.RequestID(c),
		"method":     c.Request.Method,
		"path":       c.FullPath(),
		"ip":         c.ClientIP(),
	}
}
