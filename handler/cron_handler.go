package handler

import (
	"log"
	"net/http"
	"time"

	"main/dto"
	"main/services"

	"github.com/gin-gonic/gin"
)

// UpdateSessionsHandler runs one reconciliation pass over open sessions.
// Triggered by the external scheduler, typically once per minute.
func UpdateSessionsHandler(c *gin.Context, reconciler *services.Reconciler) {
	result, err := reconciler.Reconcile(time.Now())
	if err != nil {
		log.Printf("Cron update-sessions error: %v", err)
		c.JSON(http.StatusInternalServerError, dto.ReconcileResponse{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, dto.ReconcileResponse{
		Success:        true,
		UpdatedStarted: result.Started,
		UpdatedEnded:   result.Ended,
		UpdatedStatus:  result.StatusUpdated,
	})
}

// UpdateUsersHandler refreshes every stored username from the Roblox users
// API.
func UpdateUsersHandler(c *gin.Context, sync *services.UserSync) {
	log.Println("[UserSync] Starting global user info update")

	result, err := sync.Run(c.Request.Context())
	if err != nil {
		log.Printf("Cron update-users error: %v", err)
		c.JSON(http.StatusInternalServerError, dto.UserSyncResponse{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, dto.UserSyncResponse{
		Success:    true,
		TotalUsers: result.Total,
		Updated:    result.Updated,
		Failed:     result.Failed,
	})
}

// BirthdaysHandler sends today's birthday notifications for every
// workspace with the feature enabled.
func BirthdaysHandler(c *gin.Context, birthdays *services.BirthdayNotifier) {
	result, err := birthdays.Run(time.Now())
	if err != nil {
		log.Printf("Cron birthdays error: %v", err)
		c.JSON(http.StatusInternalServerError, dto.BirthdayResponse{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, dto.BirthdayResponse{
		Success:    true,
		Workspaces: result.Workspaces,
		Notified:   result.Notified,
	})
}
