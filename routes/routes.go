package routes

import (
	"github.com/JesusMartinezCamps/bibofit-sub000/controllers"
	"github.com/JesusMartinezCamps/bibofit-sub000/middlewares"

	"github.com/gin-gonic/gin"
)

func SetupRouter() *gin.Engine {
	r := gin.Default()

	// Public auth routes
	auth := r.Group("/auth")
	{
		auth.POST("/register", controllers.Register)
		auth.POST("/login", controllers.Login)
	}

	api := r.Group("/api")
	api.Use(middlewares.AuthMiddleware())
	{
		api.POST("/equivalence", controllers.CreateEquivalence)
		api.DELETE("/equivalence/:id", controllers.UndoEquivalence)
		api.GET("/equivalence/active", controllers.GetActiveEquivalence)

		api.GET("/slots/:id/effective", controllers.GetEffectiveSlot)
		api.PUT("/slots/:id/target", controllers.UpdateSlotTarget)
		api.GET("/progress", controllers.GetDayProgress)

		api.PUT("/recipes/:id/ingredients", controllers.ReplaceRecipeIngredients)

		api.POST("/logs/meals", controllers.LogFreeMeal)
		api.POST("/logs/snacks", controllers.LogSnack)
		api.GET("/logs", controllers.ListLogs)

		api.GET("/foods/:id/verdict", controllers.GetFoodVerdict)
		api.GET("/restrictions", controllers.GetRestrictions)
		api.PUT("/restrictions", controllers.UpdateRestrictions)
	}

	ws := r.Group("/ws")
	ws.Use(middlewares.AuthMiddleware())
	{
		ws.GET("", controllers.EventsWS)
	}

	return r
}
