package controllers

import (
	"net/http"

	"github.com/JesusMartinezCamps/bibofit-sub000/models"

	"github.com/gin-gonic/gin"
)

// GET /api/foods/:id/verdict?user_created=true|false
func GetFoodVerdict(c *gin.Context) {
	key := models.FoodKey{
		FoodID:        c.Param("id"),
		IsUserCreated: c.Query("user_created") == "true",
	}

	catalog, err := deps.Catalog.GetFoodsByKeys([]models.FoodKey{key})
	if err != nil {
		respondError(c, err)
		return
	}
	food, ok := catalog.Get(key)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "food not found"})
		return
	}

	profile, err := deps.Restrictions.GetUserRestrictions(c.GetUint("userID"))
	if err != nil {
		respondError(c, err)
		return
	}

	verdict := deps.Restrictions.Classify(food, profile)
	c.JSON(http.StatusOK, gin.H{
		"food_id":     key.FoodID,
		"verdict":     verdict,
		"avoid_class": verdict.IsAvoidClass(),
	})
}
