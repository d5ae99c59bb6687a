package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

type CreateEquivalenceInput struct {
	SourceKind string `json:"source_kind" binding:"required"`
	SourceID   uint   `json:"source_id" binding:"required"`
	TargetSlot uint   `json:"target_slot_id" binding:"required"`
	LogDate    string `json:"log_date" binding:"required"` // YYYY-MM-DD
}

// POST /api/equivalence
func CreateEquivalence(c *gin.Context) {
	var input CreateEquivalenceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	logDate, err := time.Parse("2006-01-02", input.LogDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid log_date format. Use YYYY-MM-DD"})
		return
	}

	userID := c.GetUint("userID")
	result, err := deps.Ledger.Create(c.Request.Context(), userID, input.SourceKind, input.SourceID, input.TargetSlot, logDate)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// DELETE /api/equivalence/:id — idempotent; 204 whether or not the row still
// existed.
func UndoEquivalence(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid adjustment id"})
		return
	}

	if err := deps.Ledger.Undo(uint(id)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/equivalence/active?slot_id=&date=
func GetActiveEquivalence(c *gin.Context) {
	slotID, err := strconv.ParseUint(c.Query("slot_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid 'slot_id' query param"})
		return
	}
	date, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid 'date' query param. Use YYYY-MM-DD"})
		return
	}

	adjustment, err := deps.Ledger.GetActiveAdjustment(uint(slotID), date)
	if err != nil {
		respondError(c, err)
		return
	}
	if adjustment == nil {
		c.JSON(http.StatusOK, gin.H{"adjustment": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"adjustment": adjustment})
}
