package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/JesusMartinezCamps/bibofit-sub000/models"
	"github.com/JesusMartinezCamps/bibofit-sub000/utils"

	"github.com/google/uuid"
)

// Wire protocol of the quantity solver. Request and response are the only two
// legal shapes; anything else is a protocol error.

type SolverIngredient struct {
	FoodID   string  `json:"foodId"`
	Quantity float64 `json:"quantity"`
}

type SolverTargets struct {
	Proteins float64 `json:"proteins"`
	Carbs    float64 `json:"carbs"`
	Fats     float64 `json:"fats"`
}

type SolveRequest struct {
	Ingredients []SolverIngredient `json:"ingredients"`
	Targets     SolverTargets      `json:"targets"`
}

type solveResponse struct {
	BalancedIngredients []SolverIngredient `json:"balancedIngredients"`
	Error               string             `json:"error"`
}

// QuantitySolver rebalances ingredient quantities toward a macro target. The
// remote implementation calls the external solver service; the local one runs
// the NNLS kernel in-process and doubles as the default when no SOLVER_URL is
// configured.
type QuantitySolver interface {
	Solve(ctx context.Context, req SolveRequest) ([]SolverIngredient, error)
}

// Quantities below this are "remove the ingredient" and come back as zero.
const solverQuantityEpsilon = 1e-3

// ---------------------------------------------------------------------------
// Remote solver
// ---------------------------------------------------------------------------

type RemoteSolver struct {
	url    string
	client *http.Client
}

func NewRemoteSolver(url string, timeout time.Duration) *RemoteSolver {
	return &RemoteSolver{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (s *RemoteSolver) Solve(ctx context.Context, req SolveRequest) ([]SolverIngredient, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, &SolverError{Reason: "failed to marshal solve payload", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return nil, &SolverError{Reason: "failed to create solve request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	requestID := uuid.NewString()
	httpReq.Header.Set("X-Request-ID", requestID)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, &SolverError{Reason: "solver call failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &SolverError{Reason: "failed to read solver response", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &SolverError{Reason: fmt.Sprintf("solver API error %d: %s", resp.StatusCode, string(body))}
	}

	var sr solveResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, &SolverError{Reason: "failed to parse solver JSON", Err: err}
	}
	if sr.Error != "" {
		return nil, &SolverError{Reason: "solver rejected request: " + sr.Error}
	}
	if sr.BalancedIngredients == nil {
		utils.Log.Warnw("solver returned neither result nor error", "requestId", requestID)
		return nil, &SolverError{Reason: "solver response matched neither protocol shape"}
	}
	return sr.BalancedIngredients, nil
}

// ---------------------------------------------------------------------------
// Local solver
// ---------------------------------------------------------------------------

// LocalSolver runs the least-squares rebalancing in-process. Ingredients whose
// food cannot be resolved keep their current quantity; macro rows to which no
// ingredient contributes are dropped rather than forcing zeros elsewhere.
type LocalSolver struct {
	catalog *CatalogService
}

func NewLocalSolver(catalog *CatalogService) *LocalSolver {
	return &LocalSolver{catalog: catalog}
}

// Each ingredient may grow to at most this multiple of its current quantity,
// so a garnish is never solved into the entire dish.
const localSolverGrowthCap = 5.0

func (s *LocalSolver) Solve(ctx context.Context, req SolveRequest) ([]SolverIngredient, error) {
	if err := ctx.Err(); err != nil {
		return nil, &SolverError{Reason: "solve cancelled", Err: err}
	}
	if len(req.Ingredients) == 0 {
		return []SolverIngredient{}, nil
	}

	vectors, err := s.macroVectors(req.Ingredients)
	if err != nil {
		return nil, &SolverError{Reason: "failed to resolve solver foods", Err: err}
	}

	// Variables are the resolvable ingredients; the rest are held as-is.
	varIdx := make([]int, 0, len(req.Ingredients))
	for i := range req.Ingredients {
		if vectors[i] != nil {
			varIdx = append(varIdx, i)
		}
	}

	out := make([]SolverIngredient, len(req.Ingredients))
	copy(out, req.Ingredients)
	if len(varIdx) == 0 {
		return out, nil
	}

	targets := []float64{req.Targets.Proteins, req.Targets.Carbs, req.Targets.Fats}

	// Drop macro rows with no contributing ingredient: rebalancing fat when
	// nothing contains fat must not zero the rest of the dish.
	var a [][]float64
	var b []float64
	for row := 0; row < 3; row++ {
		contributes := false
		for _, i := range varIdx {
			if vectors[i][row] != 0 {
				contributes = true
				break
			}
		}
		if !contributes {
			continue
		}
		line := make([]float64, len(varIdx))
		for col, i := range varIdx {
			line[col] = vectors[i][row]
		}
		a = append(a, line)
		b = append(b, targets[row])
	}
	if len(a) == 0 {
		return out, nil
	}

	upper := make([]float64, len(varIdx))
	for col, i := range varIdx {
		if q := req.Ingredients[i].Quantity; q > 0 {
			upper[col] = q * localSolverGrowthCap
		}
	}

	solved, err := utils.NNLSBounded(a, b, upper)
	if err != nil {
		return nil, &SolverError{Reason: "nnls failed", Err: err}
	}

	for col, i := range varIdx {
		q := solved[col]
		if q < solverQuantityEpsilon {
			q = 0
		}
		out[i].Quantity = q
	}
	return out, nil
}

// macroVectors resolves {proteins, carbs, fats} per quantity unit for each
// requested ingredient; nil marks an unresolvable food. The wire protocol only
// carries a bare foodId, so global foods shadow user-created ones here.
func (s *LocalSolver) macroVectors(ings []SolverIngredient) ([][]float64, error) {
	keys := make([]models.FoodKey, 0, len(ings)*2)
	for _, ing := range ings {
		keys = append(keys,
			models.FoodKey{FoodID: ing.FoodID, IsUserCreated: false},
			models.FoodKey{FoodID: ing.FoodID, IsUserCreated: true},
		)
	}
	catalog, err := s.catalog.GetFoodsByKeys(keys)
	if err != nil {
		return nil, err
	}

	vectors := make([][]float64, len(ings))
	for i, ing := range ings {
		food, ok := catalog.Get(models.FoodKey{FoodID: ing.FoodID})
		if !ok {
			food, ok = catalog.Get(models.FoodKey{FoodID: ing.FoodID, IsUserCreated: true})
		}
		if !ok {
			continue
		}
		factor := perQuantityFactor(food)
		vectors[i] = []float64{
			food.MacrosPer100.Proteins * factor,
			food.MacrosPer100.Carbs * factor,
			food.MacrosPer100.Fats * factor,
		}
	}
	return vectors, nil
}
