package services

import (
	"context"
	"math"

	"github.com/JesusMartinezCamps/bibofit-sub000/models"
)

// RecipeLine is one ingredient of one scheduled recipe, the unit the
// rebalancing workflow moves around.
type RecipeLine struct {
	RecipeID uint
	Food     models.FoodKey
	Quantity float64
}

// RebalancedLine is a RecipeLine after solving. Changed marks lines whose
// quantity actually moved; only those become ledger rows.
type RebalancedLine struct {
	RecipeLine
	NewQuantity float64
	Changed     bool
}

// SolverService prepares solver calls and validates their results: it decides
// which ingredients are eligible variables, reduces the target by what the
// held ingredients already contribute, and rejects responses that do not match
// the request one-to-one.
type SolverService struct {
	solver       QuantitySolver
	restrictions *RestrictionService
}

func NewSolverService(solver QuantitySolver, restrictions *RestrictionService) *SolverService {
	return &SolverService{solver: solver, restrictions: restrictions}
}

const quantityChangedTolerance = 1e-9

// Rebalance adjusts the quantities of lines toward target. Ingredients whose
// food carries an avoid-class verdict for the profile are held at their
// current quantity and never sent to the solver; a macro mismatch is never
// "fixed" by increasing a restricted ingredient. Unresolvable foods are held
// too.
func (s *SolverService) Rebalance(ctx context.Context, lines []RecipeLine, target models.MacroTotals, profile *models.RestrictionProfile, catalog Catalog) ([]RebalancedLine, error) {
	out := make([]RebalancedLine, len(lines))
	eligible := make([]int, 0, len(lines))
	heldMacros := models.MacroTotals{}

	for i, line := range lines {
		out[i] = RebalancedLine{RecipeLine: line, NewQuantity: line.Quantity}

		food, ok := catalog.Get(line.Food)
		if !ok {
			continue // unresolvable: held, contributes nothing
		}
		if s.restrictions.Classify(food, profile).IsAvoidClass() {
			heldMacros = heldMacros.Add(lineMacros(MacroLine{Food: line.Food, Quantity: line.Quantity}, catalog))
			continue
		}
		eligible = append(eligible, i)
	}

	if len(eligible) == 0 {
		return out, nil
	}

	// Held ingredients still count toward the meal, so the solver aims the
	// eligible set at what remains of the target.
	remaining := target.SubClamped(heldMacros)

	req := SolveRequest{
		Ingredients: make([]SolverIngredient, len(eligible)),
		Targets: SolverTargets{
			Proteins: remaining.Proteins,
			Carbs:    remaining.Carbs,
			Fats:     remaining.Fats,
		},
	}
	for k, i := range eligible {
		req.Ingredients[k] = SolverIngredient{FoodID: lines[i].Food.FoodID, Quantity: lines[i].Quantity}
	}

	balanced, err := s.solver.Solve(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := validateBalanced(req.Ingredients, balanced); err != nil {
		return nil, err
	}

	for k, i := range eligible {
		q := balanced[k].Quantity
		if q < solverQuantityEpsilon {
			q = 0
		}
		out[i].NewQuantity = q
		out[i].Changed = math.Abs(q-lines[i].Quantity) > quantityChangedTolerance
	}
	return out, nil
}

// validateBalanced enforces the one-to-one contract: same length, same foodId
// per position, sane quantities. A partial or garbage result must surface as a
// failure, never as data.
func validateBalanced(request, response []SolverIngredient) error {
	if len(response) != len(request) {
		return &SolverError{Reason: "solver returned a different ingredient count than requested"}
	}
	for i := range response {
		if response[i].FoodID != request[i].FoodID {
			return &SolverError{Reason: "solver result does not match request one-to-one"}
		}
		q := response[i].Quantity
		if math.IsNaN(q) || math.IsInf(q, 0) || q < 0 {
			return &SolverError{Reason: "solver returned an invalid quantity"}
		}
	}
	return nil
}
