package handler

import (
	"os"

	"main/utils"

	"github.com/gin-gonic/gin"
)

// InstanceCheckHandler reports whether the instance has its required
// configuration. Deploy tooling polls this before routing traffic.
func InstanceCheckHandler(c *gin.Context) {
	missing := []string{}

	for _, key := range []string{"MONGO_URI", "MONGO_DB", "CRON_SECRET"} {
		if os.Getenv(key) == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		utils.ServiceUnavailable(c, "Instance is missing required configuration", gin.H{"missing": missing})
		return
	}

	utils.Success(c, gin.H{"configured": true})
}
