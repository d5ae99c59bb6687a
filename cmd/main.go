package main

import (
	"log"

	"github.com/JesusMartinezCamps/bibofit-sub000/config"
	"github.com/JesusMartinezCamps/bibofit-sub000/controllers"
	"github.com/JesusMartinezCamps/bibofit-sub000/routes"
	"github.com/JesusMartinezCamps/bibofit-sub000/services"
	"github.com/JesusMartinezCamps/bibofit-sub000/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := utils.InitLogger(cfg.IsProduction)
	defer logger.Sync()

	db, err := config.InitDB(cfg)
	if err != nil {
		logger.Fatalw("database init failed", "error", err)
	}

	catalog := services.NewCatalogService(db)
	restrictions := services.NewRestrictionService(db)

	var solver services.QuantitySolver
	if cfg.SolverURL != "" {
		solver = services.NewRemoteSolver(cfg.SolverURL, cfg.SolverTimeout)
		logger.Infow("using remote quantity solver", "url", cfg.SolverURL)
	} else {
		solver = services.NewLocalSolver(catalog)
		logger.Infow("using in-process quantity solver")
	}
	solverSvc := services.NewSolverService(solver, restrictions)

	hub := services.NewRealtimeHub()
	ledger := services.NewEquivalenceService(db, catalog, restrictions, solverSvc, cfg.PendingAdjustmentMaxAge).WithHub(hub)

	if err := ledger.ReapStalePending(); err != nil {
		logger.Warnw("stale pending reap on boot failed", "error", err)
	}

	controllers.Init(controllers.Deps{
		Auth:         services.NewAuthService(db),
		Catalog:      catalog,
		Restrictions: restrictions,
		Ledger:       ledger,
		Plans:        services.NewPlanService(db, catalog, ledger),
		Recipes:      services.NewRecipeService(db, ledger),
		Logs:         services.NewLogService(db, catalog),
		Hub:          hub,
	})

	r := routes.SetupRouter()
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Fatalw("server stopped", "error", err)
	}
}
