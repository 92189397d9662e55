package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sghealthtrack/healthtrack-api/internal/handler"
)

// DefaultMaxBodySize fits a form slip with every custom item.
const DefaultMaxBodySize int64 = 1 << 20

// SizeLimit rejects bodies larger than maxBytes.
func SizeLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			handler.Fail(c, http.StatusRequestEntityTooLarge, "Request body is too large")
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
