package middleware

import (
	"net/http"

	"wax-intake/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

// BodyLimitMiddleware caps the request body before the multipart
// parse runs, so an oversized upload is rejected cheaply.
func BodyLimitMiddleware(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.JSON(http.StatusBadRequest, httpdto.NewMessageResponse("file too large"))
			c.Abort()
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
