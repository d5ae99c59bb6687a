package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/JesusMartinezCamps/bibofit-sub000/models"

	"github.com/gin-gonic/gin"
)

// GET /api/slots/:id/effective?date=YYYY-MM-DD
func GetEffectiveSlot(c *gin.Context) {
	slotID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid slot id"})
		return
	}
	date, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid 'date' query param. Use YYYY-MM-DD"})
		return
	}

	view, err := deps.Plans.EffectiveSlotView(uint(slotID), date)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// GET /api/progress?date=YYYY-MM-DD
func GetDayProgress(c *gin.Context) {
	date, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid 'date' query param. Use YYYY-MM-DD"})
		return
	}

	progress, err := deps.Plans.DayProgressFor(c.GetUint("userID"), date)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

// PUT /api/slots/:id/target
func UpdateSlotTarget(c *gin.Context) {
	slotID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid slot id"})
		return
	}

	var target models.MacroTotals
	if err := c.ShouldBindJSON(&target); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := deps.Plans.UpdateSlotTarget(c.GetUint("userID"), uint(slotID), target); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
