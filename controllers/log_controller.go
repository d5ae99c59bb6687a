package controllers

import (
	"net/http"
	"time"

	"github.com/JesusMartinezCamps/bibofit-sub000/services"

	"github.com/gin-gonic/gin"
)

type logMealInput struct {
	Name  string                    `json:"name" binding:"required"`
	AteAt time.Time                 `json:"ate_at" binding:"required"`
	Items []services.LogItemRequest `json:"items" binding:"required"`
}

// POST /api/logs/meals
func LogFreeMeal(c *gin.Context) {
	var body logMealInput
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	meal, macros, err := deps.Logs.AddFreeMeal(c.GetUint("userID"), body.Name, body.AteAt, body.Items)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"meal": meal, "macros": macros})
}

type logSnackInput struct {
	AteAt time.Time                 `json:"ate_at" binding:"required"`
	Items []services.LogItemRequest `json:"items" binding:"required"`
}

// POST /api/logs/snacks
func LogSnack(c *gin.Context) {
	var body logSnackInput
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	snack, macros, err := deps.Logs.AddSnack(c.GetUint("userID"), body.AteAt, body.Items)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"snack": snack, "macros": macros})
}

// GET /api/logs?date=YYYY-MM-DD
func ListLogs(c *gin.Context) {
	date, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid 'date' query param. Use YYYY-MM-DD"})
		return
	}
	from := date
	to := from.Add(24 * time.Hour)
	userID := c.GetUint("userID")

	meals, err := deps.Logs.ListFreeMealsByDateRange(userID, from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	snacks, err := deps.Logs.ListSnacksByDateRange(userID, from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"meals": meals, "snacks": snacks})
}
