package controllers

import (
	"net/http"
	"strconv"

	"github.com/JesusMartinezCamps/bibofit-sub000/services"

	"github.com/gin-gonic/gin"
)

// PUT /api/recipes/:id/ingredients
func ReplaceRecipeIngredients(c *gin.Context) {
	recipeID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recipe id"})
		return
	}

	var body struct {
		Items []services.IngredientRequest `json:"items" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	recipe, err := deps.Recipes.ReplaceIngredients(c.GetUint("userID"), uint(recipeID), body.Items)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}
