package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// GetDeliveryReport returns the per-item delivery status counts for a feed
func (h *Handlers) GetDeliveryReport(c *gin.Context) {
	accountID := c.Param("accountID")
	feedID := c.Param("feedID")

	reports, err := h.reports.FeedReport(accountID, feedID)
	if err != nil {
		logrus.Errorf("Failed to build delivery report for %s/%s: %v", accountID, feedID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build delivery report"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"accountId": accountID,
		"feedId":    feedID,
		"items":     reports,
	})
}
