package middleware

import (
	"net/http"
	"os"

	"main/utils"

	"github.com/gin-gonic/gin"
)

// CronAuthMiddleware guards the cron trigger endpoints with the shared
// scheduler secret. The secret arrives in X-Cron-Secret or, for schedulers
// that only support an Authorization header, there instead.
func CronAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		expected := os.Getenv("CRON_SECRET")
		if expected == "" {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "CRON_SECRET not configured"})
			c.Abort()
			return
		}

		secret := c.GetHeader("X-Cron-Secret")
		if secret == "" {
			secret = c.GetHeader("Authorization")
		}

		if secret == "" || secret != expected {
			utils.TrackError("auth", "invalid_cron_secret")
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Unauthorized"})
			c.Abort()
			return
		}

		c.Next()
	}
}
