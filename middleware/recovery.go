package middleware

import (
	"log"

	"main/utils"

	"github.com/gin-gonic/gin"
)

func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				utils.TrackError("panic", "handler_panic")
				log.Printf("Panic recovered in %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
				c.AbortWithStatus(500)
			}
		}()
		c.Next()
	}
}
