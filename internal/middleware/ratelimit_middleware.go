package middleware

import (
	"net/http"
	"strconv"

	"wax-intake/internal/redis"
	"wax-intake/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

// RateLimitMiddleware bounds uploads per client address. It runs
// before the multipart body is touched so abusive clients never reach
// the expensive stages.
func RateLimitMiddleware(limiter redis.UploadLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := limiter.AllowUpload(c.Request.Context(), c.ClientIP())
		if err != nil {
			c.JSON(http.StatusInternalServerError, httpdto.NewMessageResponse("rate limit error"))
			c.Abort()
			return
		}

		setRateLimitHeaders(c, result)

		if !result.Allowed {
			c.JSON(http.StatusTooManyRequests, httpdto.NewMessageResponse("too many submissions, try again later"))
			c.Abort()
			return
		}

		c.Next()
	}
}

// setRateLimitHeaders sets standard rate limit response headers
func setRateLimitHeaders(c *gin.Context, result *redis.RateLimitResult) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(int64(result.ResetIn.Seconds()), 10))
}
