package handler

import (
	"errors"
	"log"
	"net/http"

	"main/dto"
	"main/services"

	"github.com/gin-gonic/gin"
)

// BulkActivityHandler ingests a reporter-submitted batch of occupancy
// events. The Authorization header carries the workspace's opaque reporter
// key.
func BulkActivityHandler(c *gin.Context, ingestor *services.BulkIngestor) {
	authorization := c.GetHeader("Authorization")
	if authorization == "" {
		c.JSON(http.StatusBadRequest, dto.BulkResponse{
			Success: false,
			Error:   "Authorization key missing",
		})
		return
	}

	var req dto.BulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.BulkResponse{
			Success: false,
			Error:   "Events array is required and must not be empty",
		})
		return
	}

	results, err := ingestor.ProcessBulkEvents(c.Request.Context(), authorization, req.Events)
	if err != nil {
		if errors.Is(err, services.ErrUnauthorized) {
			c.JSON(http.StatusUnauthorized, dto.BulkResponse{
				Success: false,
				Error:   "Unauthorized",
			})
			return
		}
		log.Printf("Unexpected error in /api/activity/bulk: %v", err)
		c.JSON(http.StatusInternalServerError, dto.BulkResponse{
			Success: false,
			Error:   "Internal server error",
		})
		return
	}

	c.JSON(http.StatusOK, dto.BulkResponse{
		Success: true,
		Results: &results,
	})
}
