package controllers

import (
	"errors"
	"net/http"

	"github.com/JesusMartinezCamps/bibofit-sub000/services"

	"github.com/gin-gonic/gin"
)

// Deps holds the services the handlers use. Wired once at startup.
type Deps struct {
	Auth         *services.AuthService
	Catalog      *services.CatalogService
	Restrictions *services.RestrictionService
	Ledger       *services.EquivalenceService
	Plans        *services.PlanService
	Recipes      *services.RecipeService
	Logs         *services.LogService
	Hub          *services.RealtimeHub
}

var deps Deps

func Init(d Deps) {
	deps = d
}

// respondError maps the service error taxonomy onto HTTP statuses. Solver and
// persistence failures are retryable; the underlying detail rides along for
// diagnostics instead of being swallowed.
func respondError(c *gin.Context, err error) {
	var validation *services.ValidationError
	var conflict *services.ConflictError
	var solver *services.SolverError
	var persistence *services.PersistenceError

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Reason})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"error": conflict.Reason})
	case errors.As(err, &solver):
		c.JSON(http.StatusBadGateway, gin.H{"error": "rebalancing failed, please retry", "detail": solver.Error(), "retryable": true})
	case errors.As(err, &persistence):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save the adjustment, please retry", "detail": persistence.Error(), "retryable": true})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
